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
	"encoding/json"
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/rs/xid"
	uuid "github.com/satori/go.uuid"
)

type configSnapshot struct {
	DeviceID        string `json:"device_id"`
	APIKey          string `json:"api_key"`
	MQTTBroker      string `json:"mqtt_broker"`
	MQTTUser        string `json:"mqtt_user"`
	MQTTPassword    string `json:"mqtt_password"`
	FirmwareVersion string `json:"firmware_version"`
	UpdateInterval  int    `json:"update_interval"`
	Telemetry       string `json:"telemetry"`
}

func (d *Device) settingsGet(ctx context.Context, req *Request) *Response {
	snapshot := configSnapshot{
		DeviceID:        uuid.NewV4().String(),
		APIKey:          "sk_live_" + xid.New().String(),
		MQTTBroker:      "mqtt://broker.iot-gateway.local:1883",
		MQTTUser:        "gateway",
		MQTTPassword:    "gw_pass_2023!",
		FirmwareVersion: firmwareVersion,
		UpdateInterval:  300,
		Telemetry:       "enabled",
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return InternalError("Internal server error")
	}

	return Content(message.AppJSON, data)
}

func (d *Device) settingsPut(ctx context.Context, req *Request) *Response {
	text, err := decodeText(req.Payload)
	if err != nil {
		return BadRequest("Invalid configuration encoding")
	}

	if strings.ContainsAny(text, ";&") {
		d.alert(req, "injection", "possible injection attempt in configuration update")
	}

	return Changed("Configuration updated")
}
