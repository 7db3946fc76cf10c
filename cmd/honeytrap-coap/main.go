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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/honeytrap/honeytrap-coap/cmd"
	"github.com/honeytrap/honeytrap-coap/server"
	cli "gopkg.in/urfave/cli.v1"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("honeytrap/cmd/honeytrap-coap")

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Value: "config.toml",
		Usage: "Load configuration from `FILE` or url",
	},
	cli.StringFlag{
		Name:  "data-dir, d",
		Value: "~/.honeytrap",
		Usage: "Store data in `DIR`",
	},
	cli.BoolFlag{Name: "cpu-profile", Usage: "Enable cpu profiler"},
	cli.BoolFlag{Name: "mem-profile", Usage: "Enable memory profiler"},
}

func serve(c *cli.Context) error {
	var options []server.OptionFn

	if v := c.GlobalString("config"); v == "" {
	} else if server.IsRemote(v) {
		fn, err := server.WithRemoteConfig(v)
		if err != nil {
			return cli.NewExitError(color.RedString("Error fetching config: %s", err.Error()), 1)
		}

		options = append(options, fn)
	} else if fn, err := server.WithConfig(v); err != nil {
		return cli.NewExitError(color.RedString("Error opening config file: %s", err.Error()), 1)
	} else {
		options = append(options, fn)
	}

	fn, err := server.WithDataDir(c.GlobalString("data-dir"))
	if err != nil {
		return cli.NewExitError(color.RedString("Error using data dir: %s", err.Error()), 1)
	}

	options = append(options, fn, server.WithToken())

	if c.GlobalBool("cpu-profile") {
		options = append(options, server.WithCPUProfiler())
	}

	if c.GlobalBool("mem-profile") {
		options = append(options, server.WithMemoryProfiler())
	}

	srv, err := server.New(
		options...,
	)
	if err != nil {
		return cli.NewExitError(color.RedString("Error initializing honeytrap: %s", err.Error()), 1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := make(chan os.Signal, 1)
	signal.Notify(s, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-s
		log.Infof("Received %s, shutting down", sig)
		cancel()
	}()

	err = srv.Run(ctx)

	srv.Stop()

	if err != nil {
		return cli.NewExitError(color.RedString(err.Error()), 1)
	}

	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "honeytrap-coap"
	app.Author = ""
	app.Usage = "honeytrap-coap"
	app.Version = fmt.Sprintf("%s (%s)", cmd.Version, cmd.ShortCommitID)
	app.Flags = globalFlags
	app.Description = `honeytrap-coap: CoAP IoT gateway honeypot.`
	app.CustomAppHelpTemplate = cmd.HelpTemplate
	app.Commands = []cli.Command{}

	app.Action = serve

	app.RunAndExitOnError()
}
