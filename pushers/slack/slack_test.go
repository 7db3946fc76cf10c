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
package slack

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

const (
	passed = "✓"
	failed = "✗"
)

func withWebhook(url string) func(pushers.Channel) error {
	return func(c pushers.Channel) error {
		c.(*Backend).WebhookURL = url
		return nil
	}
}

func TestSlackPusher(t *testing.T) {
	t.Logf("Given the need to post alerts to Slack channels")
	{
		t.Logf("\tWhen no webhook url is configured")
		{
			if _, err := New(); err == nil {
				t.Fatalf("\t%s\t Should have failed to create a channel.", failed)
			}
			t.Logf("\t%s\t Should have failed to create a channel.", passed)
		}

		t.Logf("\tWhen an alert is sent")
		{
			received := make(chan Message, 1)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var m Message
				json.NewDecoder(r.Body).Decode(&m)
				received <- m
			}))
			defer srv.Close()

			c, err := New(withWebhook(srv.URL))
			if err != nil {
				t.Fatalf("\t%s\t Should have created a channel: %s.", failed, err)
			}

			c.Send(event.New(
				event.Sensor("services"),
				event.Category("coap"),
				event.Type("coap-alert"),
				event.Message("possible injection attempt"),
			))

			select {
			case m := <-received:
				if m.Text != "possible injection attempt" {
					t.Fatalf("\t%s\t Should have posted the event message: %q.", failed, m.Text)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\t Should have posted to the webhook.", failed)
			}
			t.Logf("\t%s\t Should have posted the event message.", passed)
		}
	}
}
