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
package pushers

import (
	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/event"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("honeytrap/channels")

// Channel defines a interface which exposes a single method for delivering
// events to a giving underline service.
type Channel interface {
	Send(event.Event)
}

// ChannelFunc creates a configured Channel.
type ChannelFunc func(...func(Channel) error) (Channel, error)

var (
	channels = map[string]ChannelFunc{}
)

// Register adds the channel constructor under the giving key. The result is
// returned so it can be used as `var _ = Register(...)`.
func Register(key string, fn ChannelFunc) ChannelFunc {
	channels[key] = fn
	return fn
}

// Get returns the channel constructor for key.
func Get(key string) (ChannelFunc, bool) {
	if fn, ok := channels[key]; ok {
		return fn, true
	}

	return nil, false
}

// Range calls fn for every registered channel type.
func Range(fn func(string)) {
	for k := range channels {
		fn(k)
	}
}

// TomlDecoder decodes a primitive into the destination value.
type TomlDecoder interface {
	PrimitiveDecode(primValue toml.Primitive, v interface{}) error
}

// WithConfig decodes the channel configuration into the channel.
func WithConfig(c toml.Primitive, decoder TomlDecoder) func(Channel) error {
	return func(d Channel) error {
		return decoder.PrimitiveDecode(c, d)
	}
}

// MustDummy returns a channel discarding every event.
func MustDummy() Channel {
	return dummyChannel{}
}

type dummyChannel struct{}

func (dummyChannel) Send(event.Event) {}
