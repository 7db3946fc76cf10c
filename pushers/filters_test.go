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
package pushers_test

import (
	"testing"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

const (
	passed = "✓"
	failed = "✗"
)

type collector struct {
	events []event.Event
}

func (c *collector) Send(e event.Event) {
	c.events = append(c.events, e)
}

var (
	alert = event.New(
		event.Sensor("services"),
		event.Category("coap"),
		event.Type("coap-alert"),
	)

	request = event.New(
		event.Sensor("services"),
		event.Category("coap"),
		event.Type("coap-request"),
	)

	heartbeat = event.New(
		event.Sensor("honeytrap"),
		event.Category("heartbeat"),
	)
)

func TestRegexFilter(t *testing.T) {
	t.Logf("Given the need to filter events based on event fields")
	{
		t.Logf("\tWhen filtering is based on the 'category' field")
		{
			c := &collector{}
			ch := pushers.FilterChannel(c, pushers.RegexFilterFunc("category", []string{"^coap$"}))

			for _, e := range []event.Event{alert, request, heartbeat} {
				ch.Send(e)
			}

			if len(c.events) != 2 {
				t.Fatalf("\t%s\t Should have delivered two events: %d.", failed, len(c.events))
			}
			t.Logf("\t%s\t Should have delivered two events.", passed)
		}

		t.Logf("\tWhen filtering with multiple expressions on the 'type' field")
		{
			c := &collector{}
			ch := pushers.FilterChannel(c, pushers.RegexFilterFunc("type", []string{"^nomatch$", "alert$"}))

			for _, e := range []event.Event{alert, request, heartbeat} {
				ch.Send(e)
			}

			if len(c.events) != 1 {
				t.Fatalf("\t%s\t Should have delivered only the alert: %d.", failed, len(c.events))
			}
			t.Logf("\t%s\t Should have delivered only the alert.", passed)
		}
	}
}

func TestTokenChannel(t *testing.T) {
	c := &collector{}
	ch := pushers.TokenChannel(c, "abc")

	ch.Send(event.New())

	if len(c.events) != 1 {
		t.Fatalf("Expected one event, got %d", len(c.events))
	}

	if v := c.events[0].Get("token"); v != "abc" {
		t.Errorf("Expected token abc, got %s", v)
	}
}
