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
	"fmt"
	"math/rand"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	"github.com/honeytrap/honeytrap-coap/services"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

const defaultFirmwareLimit = 100

// Device is the simulated gateway behind the resources.
type Device struct {
	Sensor *Sensor

	// FirmwareLimit is the largest accepted firmware payload.
	FirmwareLimit int

	c pushers.Channel

	intn func(int) int
}

// NewDevice returns a device sending its events to c.
func NewDevice(sensor *Sensor, firmwareLimit int, c pushers.Channel) *Device {
	if firmwareLimit <= 0 {
		firmwareLimit = defaultFirmwareLimit
	}

	return &Device{
		Sensor:        sensor,
		FirmwareLimit: firmwareLimit,
		c:             c,
		intn:          rand.Intn,
	}
}

// Resources returns the resource table of the device.
func (d *Device) Resources() []Resource {
	return []Resource{
		{
			Path:         "/temperature",
			ResourceType: "temperature-c",
			Interface:    "sensor",
			Observable:   true,
			Methods: map[codes.Code]HandlerFunc{
				codes.GET: d.Sensor.get,
			},
		},
		{
			Path:         "/camera",
			ResourceType: "camera",
			Interface:    "actuator",
			Methods: map[codes.Code]HandlerFunc{
				codes.GET:  d.cameraGet,
				codes.POST: d.cameraPost,
			},
		},
		{
			Path:         "/debug",
			ResourceType: "debug",
			Interface:    "diagnostic",
			Methods: map[codes.Code]HandlerFunc{
				codes.GET: d.debugGet,
			},
		},
		{
			Path:         "/firmware",
			ResourceType: "firmware",
			Interface:    "update",
			Methods: map[codes.Code]HandlerFunc{
				codes.POST: d.firmwarePost,
			},
		},
		{
			Path:         "/admin",
			ResourceType: "admin",
			Interface:    "auth",
			Methods: map[codes.Code]HandlerFunc{
				codes.GET:  d.adminGet,
				codes.POST: d.adminPost,
			},
		},
		{
			Path:         "/config",
			ResourceType: "config",
			Interface:    "settings",
			Methods: map[codes.Code]HandlerFunc{
				codes.GET: d.settingsGet,
				codes.PUT: d.settingsPut,
			},
		},
		{
			Path:         "/control",
			ResourceType: "control",
			Interface:    "actuator",
			Methods: map[codes.Code]HandlerFunc{
				codes.POST: d.controlPost,
			},
		},
	}
}

func requestEvent(req *Request, opts ...event.Option) event.Event {
	return event.New(
		append([]event.Option{
			services.EventOptions,
			event.Category("coap"),
			event.Protocol("udp"),
			event.SourceAddr(req.Addr),
			event.Custom("coap.method", req.Method.String()),
			event.Custom("coap.path", req.Path),
		}, opts...)...,
	)
}

// alert raises a diagnostic alert for req.
func (d *Device) alert(req *Request, kind string, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	log.Warningf("[ALERT] %s from %s on %s", msg, req.Peer(), req.Path)

	alertsTotal.WithLabelValues(kind).Inc()

	d.c.Send(requestEvent(req,
		event.Type("coap-alert"),
		event.SeverityWarn,
		event.Custom("coap.alert", kind),
		event.Message("%s", msg),
		event.Payload(req.Payload),
	))
}
