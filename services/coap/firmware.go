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
)

func (d *Device) firmwarePost(ctx context.Context, req *Request) *Response {
	if len(req.Payload) > d.FirmwareLimit {
		d.alert(req, "overflow", "firmware payload of %d bytes exceeds %d bytes", len(req.Payload), d.FirmwareLimit)
		return InternalError("Buffer overflow detected while processing firmware image")
	}

	return Changed("Firmware upload accepted")
}
