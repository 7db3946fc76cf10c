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
package transforms

import (
	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

var (
	_ = Register("tag", Tag)
)

type tagConfig struct {
	Fields map[string]string `toml:"fields"`
}

// Tag adds the configured static fields to every event, without replacing
// values the event already carries.
func Tag(c toml.Primitive, decoder pushers.TomlDecoder) (TransformFunc, error) {
	cfg := tagConfig{}
	if err := decoder.PrimitiveDecode(c, &cfg); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	for k, v := range cfg.Fields {
		fields[k] = v
	}

	return func(e event.Event, send func(event.Event)) {
		event.MergeFrom(fields)(e)
		send(e)
	}, nil
}
