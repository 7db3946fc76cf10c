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
	"strings"

	"github.com/honeytrap/honeytrap-coap/event"
)

// commands are matched in order, the first match wins.
var commands = []struct {
	keyword string
	reply   string
}{
	{"reboot", "Reboot command accepted, device restarting"},
	{"shutdown", "Shutdown command accepted, device powering off"},
	{"reset", "Factory reset initiated"},
}

func (d *Device) controlPost(ctx context.Context, req *Request) *Response {
	text, err := decodeText(req.Payload)
	if err != nil {
		return BadRequest("Invalid command encoding")
	}

	text = strings.ToLower(text)

	command, reply := "unknown", "Command received"
	for _, c := range commands {
		if strings.Contains(text, c.keyword) {
			command, reply = c.keyword, c.reply
			break
		}
	}

	d.c.Send(requestEvent(req,
		event.Type("coap-control"),
		event.Custom("coap.command", command),
		event.Payload(req.Payload),
	))

	return Changed(reply)
}
