// Copyright 2016-2019 DutchSec (https://dutchsec.com/)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package profiler

import (
	"net/http"
	_ "net/http/pprof"

	logging "github.com/op/go-logging"
	"github.com/pkg/profile"
)

var log = logging.MustGetLogger("honeytrap/profiler")

const pprofAddress = "127.0.0.1:6060"

type Profiler interface {
	Start()
	Stop()
}

func Dummy() *dummyProfiler {
	return &dummyProfiler{}
}

type dummyProfiler struct {
}

func (p *dummyProfiler) Start() {
}

func (p *dummyProfiler) Stop() {
}

// New returns a profiler writing its profile to the working directory and
// serving pprof on localhost while running.
func New(options ...func(*profile.Profile)) *profiler {
	return &profiler{
		options: append(options, profile.ProfilePath("."), profile.NoShutdownHook),
	}
}

type profiler struct {
	p interface {
		Stop()
	}

	server *http.Server

	options []func(*profile.Profile)
}

func (p *profiler) Start() {
	p.server = &http.Server{
		Addr:    pprofAddress,
		Handler: http.DefaultServeMux,
	}

	go func(server *http.Server) {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("Error serving pprof: %s", err.Error())
		}
	}(p.server)

	p.p = profile.Start(p.options...)
	log.Infof("Profiler started, pprof on %s.", pprofAddress)
}

func (p *profiler) Stop() {
	if p.p == nil {
		return
	}

	p.p.Stop()
	p.server.Close()
}
