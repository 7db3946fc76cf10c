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
	"fmt"
	"math"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	"github.com/honeytrap/honeytrap-coap/services"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

const (
	initialTemperature = 20.0
	baseTemperature    = 20.0
	minDrift           = -3.0
	maxDrift           = 8.0

	defaultSensorInterval = 60 * time.Second
	defaultCameraTrigger  = 25.0
)

// loopbackAddr is the requester of the sensor's own camera requests, which
// keeps them out of the audit log.
var loopbackAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5683}

// Sensor simulates the temperature sensor. The drift loop is the only writer
// of the value; handlers read it through Temperature.
type Sensor struct {
	value atomic.Uint64

	interval time.Duration
	trigger  float64

	// rnd returns a value in [0, 1).
	rnd func() float64

	camera  Dispatcher
	publish func(context.Context, *Response)

	c pushers.Channel
}

// NewSensor returns a sensor drifting every interval and starting the
// camera above trigger.
func NewSensor(interval time.Duration, trigger float64) *Sensor {
	if interval <= 0 {
		interval = defaultSensorInterval
	}

	if trigger == 0 {
		trigger = defaultCameraTrigger
	}

	s := &Sensor{
		interval: interval,
		trigger:  trigger,
		rnd:      rand.Float64,
		c:        pushers.MustDummy(),
	}

	s.set(initialTemperature)
	return s
}

// Temperature returns the current value in °C.
func (s *Sensor) Temperature() float64 {
	return math.Float64frombits(s.value.Load())
}

func (s *Sensor) set(v float64) {
	s.value.Store(math.Float64bits(v))
	temperatureGauge.Set(v)
}

func (s *Sensor) reading() *Response {
	return Content(message.TextPlain, []byte(fmt.Sprintf("%.2f °C", s.Temperature())))
}

func (s *Sensor) get(ctx context.Context, req *Request) *Response {
	return s.reading()
}

// tick draws a new value, notifies observers and starts the camera when
// the value is above the trigger.
func (s *Sensor) tick(ctx context.Context) {
	v := baseTemperature + minDrift + (maxDrift-minDrift)*s.rnd()
	s.set(v)

	log.Infof("[TempSensor] Updated temperature: %.2f °C", v)

	if s.publish != nil {
		s.publish(ctx, s.reading())
	}

	s.c.Send(event.New(
		services.EventOptions,
		event.Category("coap"),
		event.Type("coap-temperature"),
		event.Custom("coap.temperature", v),
	))

	if v <= s.trigger {
		return
	}

	log.Infof("[TempSensor] High temperature! Triggering camera action...")

	if err := s.startCamera(ctx); err != nil {
		log.Errorf("[TempSensor] Failed to reach camera: %s", err.Error())
	}
}

func (s *Sensor) startCamera(ctx context.Context) error {
	if s.camera == nil {
		return fmt.Errorf("no camera attached")
	}

	resp := s.camera.ServeCoAP(ctx, &Request{
		Addr:    loopbackAddr,
		Method:  codes.POST,
		Path:    "/camera",
		Payload: []byte("start stream"),
		Observe: -1,
	})

	if resp.Code != codes.Changed {
		return fmt.Errorf("camera answered %s", resp.Code)
	}

	log.Infof("[TempSensor] Camera responded: %s", resp.Payload)
	return nil
}

// Run drifts the temperature until ctx is done.
func (s *Sensor) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.tick(ctx)
		}
	}
}
