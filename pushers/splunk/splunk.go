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
package splunk

import (
	"net/http"
	"time"

	hec "github.com/fuyufjh/splunk-hec-go"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	logging "github.com/op/go-logging"
)

var (
	_ = pushers.Register("splunk", New)
)

var log = logging.MustGetLogger("channels/splunk")

const (
	batchSize     = 100
	flushInterval = 5 * time.Second
)

// Backend delivers events to a splunk http event collector cluster.
type Backend struct {
	Config

	client hec.HEC

	ch chan event.Event
}

// New returns a splunk backed Channel.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	c := Backend{
		ch: make(chan event.Event, 100),
	}

	for _, optionFn := range options {
		if err := optionFn(&c); err != nil {
			return nil, err
		}
	}

	if len(c.Endpoints) == 0 {
		return nil, ErrEndpointsNotSet
	}

	if c.Token == "" {
		return nil, ErrTokenNotSet
	}

	client := hec.NewCluster(c.Endpoints, c.Token)
	client.SetHTTPClient(&http.Client{
		Transport: &http.Transport{
			TLSClientConfig: c.tlsConfig,
		},
		Timeout: 20 * time.Second,
	})

	c.client = client

	go c.run()

	return &c, nil
}

func toHEC(e event.Event) *hec.Event {
	ev := hec.NewEvent(event.ToMap(e))
	ev.Source = hec.String("honeytrap")
	ev.SourceType = hec.String("_json")

	if v, ok := e.Load("date"); !ok {
	} else if t, ok := v.(time.Time); ok {
		ev.SetTime(t)
	}

	return ev
}

func (b Backend) run() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []*hec.Event

	for {
		select {
		case e := <-b.ch:
			batch = append(batch, toHEC(e))
			if len(batch) < batchSize {
				continue
			}
		case <-ticker.C:
			if len(batch) == 0 {
				continue
			}
		}

		if err := b.client.WriteBatch(batch); err != nil {
			log.Errorf("Error sending %d events to splunk: %s", len(batch), err.Error())
		}

		batch = batch[:0]
	}
}

// Send queues the event for the next batch.
func (b Backend) Send(e event.Event) {
	b.ch <- e
}
