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
package eventbus

import (
	"testing"

	"github.com/honeytrap/honeytrap-coap/event"
)

type counter int

func (c *counter) Send(event.Event) {
	*c++
}

func TestSendFansOut(t *testing.T) {
	bus := New()

	var a, b counter
	bus.Subscribe(&a)
	bus.Subscribe(&b)

	bus.Send(event.New())
	bus.Send(event.New())

	if a != 2 || b != 2 {
		t.Errorf("Expected both subscribers to receive 2 events, got %d and %d", a, b)
	}
}
