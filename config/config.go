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
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("honeytrap/config")

var format = logging.MustStringFormatter(
	"%{color}%{time:15:04:05.000} %{module} ▶ %{level:.4s} %{id:03x} %{message}%{color:reset}",
)

// Config defines the central type where all configuration is umarshalled to.
type Config struct {
	toml.MetaData

	Listener toml.Primitive `toml:"listener"`

	Web toml.Primitive `toml:"web"`

	Services   map[string]toml.Primitive `toml:"service"`
	Ports      []toml.Primitive          `toml:"port"`
	Channels   map[string]toml.Primitive `toml:"channel"`
	Transforms map[string]toml.Primitive `toml:"transform"`

	Filters []toml.Primitive `toml:"filter"`

	Logging []Logging `toml:"logging"`
}

// Logging configures a single go-logging backend.
type Logging struct {
	Output string `toml:"output"`
	Level  string `toml:"level"`
}

// Default Config defines the default Config to be used to set default values.
var Default = Config{}

// Load attempts to load the giving toml configuration file.
func (c *Config) Load(r io.Reader) error {
	md, err := toml.DecodeReader(r, c)
	if err != nil {
		return err
	}
	c.MetaData = md

	if len(c.Logging) == 0 {
		fmt.Println("Warning: no logging backends configured. Add one to view log messages.")
		return nil
	}

	var backends []logging.Backend
	for _, l := range c.Logging {
		backend, err := newBackend(l)
		if err != nil {
			return err
		}

		backends = append(backends, backend)
	}

	logging.SetBackend(backends...)
	return nil
}

func newBackend(l Logging) (logging.LeveledBackend, error) {
	var output io.Writer

	switch l.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		f, err := os.OpenFile(os.ExpandEnv(l.Output), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0660)
		if err != nil {
			return nil, fmt.Errorf("logging output %s: %w", l.Output, err)
		}

		output = f
	}

	level, err := logging.LogLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level %q: %w", l.Level, err)
	}

	backend := logging.NewLogBackend(output, "", 0)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	backendLeveled := logging.AddModuleLevel(backendFormatter)
	backendLeveled.SetLevel(level, "")

	return backendLeveled, nil
}
