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
package listener

import (
	"context"
	"errors"
	"net"
)

// ErrClosed is returned by Accept once the listener has been closed.
var ErrClosed = errors.New("listener closed")

// ListenerFunc creates a configured Listener.
type ListenerFunc func(...func(Listener) error) (Listener, error)

var (
	listeners = map[string]ListenerFunc{}
)

// Register adds the listener constructor under key.
func Register(key string, fn ListenerFunc) ListenerFunc {
	listeners[key] = fn
	return fn
}

// Get returns the listener constructor registered under key.
func Get(key string) (ListenerFunc, bool) {
	fn, ok := listeners[key]
	return fn, ok
}

func Range(fn func(string)) {
	for k := range listeners {
		fn(k)
	}
}

// Listener hands out one net.Conn per received datagram.
type Listener interface {
	Start(ctx context.Context) error
	Close() error
	Accept() (net.Conn, error)
}
