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
package coap

import (
	"context"
	"net"
	"sync"

	"github.com/honeytrap/honeytrap-coap/event"
)

type collector struct {
	m      sync.Mutex
	events []event.Event
}

func (c *collector) Send(e event.Event) {
	c.m.Lock()
	defer c.m.Unlock()

	c.events = append(c.events, e)
}

// ofType returns the collected events with the type.
func (c *collector) ofType(t string) []event.Event {
	c.m.Lock()
	defer c.m.Unlock()

	var result []event.Event
	for _, e := range c.events {
		if e.Get("type") == t {
			result = append(result, e)
		}
	}

	return result
}

type record struct {
	peer, method, path string
	payload            []byte
	metadata           string
}

type recorder struct {
	m       sync.Mutex
	records []record
}

func (r *recorder) Record(peer, method, path string, payload []byte, metadata string) {
	r.m.Lock()
	defer r.m.Unlock()

	r.records = append(r.records, record{peer, method, path, payload, metadata})
}

type dispatcherFunc func(context.Context, *Request) *Response

func (fn dispatcherFunc) ServeCoAP(ctx context.Context, req *Request) *Response {
	return fn(ctx, req)
}

var attacker = &net.UDPAddr{IP: net.ParseIP("192.0.2.66"), Port: 40123}
