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
	"github.com/plgd-dev/go-coap/v3/message"
)

const adminPrompt = "Admin interface. Authenticate with POST user=admin&pass=admin or send a bearer token."

func (d *Device) adminGet(ctx context.Context, req *Request) *Response {
	return Content(message.TextPlain, []byte(adminPrompt))
}

func (d *Device) adminPost(ctx context.Context, req *Request) *Response {
	text, err := decodeText(req.Payload)
	if err != nil {
		return BadRequest("Invalid credentials encoding")
	}

	ok := strings.Contains(text, "user=admin") && strings.Contains(text, "pass=admin")

	outcome := "failure"
	if ok {
		outcome = "success"
	}

	d.c.Send(requestEvent(req,
		event.Type("coap-auth"),
		event.Custom("coap.auth", outcome),
		event.Payload(req.Payload),
	))

	if !ok {
		return Unauthorized("Invalid credentials")
	}

	log.Warningf("[ALERT] Default admin credentials used by %s", req.Peer())
	return Changed("Login successful")
}
