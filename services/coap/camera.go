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
	"encoding/base64"

	"github.com/honeytrap/honeytrap-coap/audit"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/plgd-dev/go-coap/v3/message"
)

var fakeImage = []byte(base64.StdEncoding.EncodeToString([]byte("This is a fake camera image")))

func (d *Device) cameraGet(ctx context.Context, req *Request) *Response {
	log.Debugf("[Camera] Sending image to %s", req.Peer())
	return Content(message.TextPlain, fakeImage)
}

func (d *Device) cameraPost(ctx context.Context, req *Request) *Response {
	log.Infof("[Camera] Received POST from %s: %s", req.Peer(), audit.Text(req.Payload))

	d.c.Send(requestEvent(req,
		event.Type("coap-camera"),
		event.Payload(req.Payload),
	))

	return Changed("Camera stream started (simulated)")
}
