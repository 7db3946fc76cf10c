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
// Package coap implements a deceptive IoT gateway speaking CoAP over udp.
//
// The gateway exposes a temperature sensor, a camera and a set of
// management resources. Every request is written to the audit log, and
// requests matching simple attack heuristics raise alerts on the event
// channel.
//
// Configuration:
//
//	[service.coap]
//	type="coap"
//	audit-log="coap_audit.log"
//	sensor-interval="60s"
//	firmware-limit=100
//	camera-trigger=25.0
//
//	[[port]]
//	port="udp/5683"
//	services=["coap"]
package coap

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/honeytrap/honeytrap-coap/audit"
	"github.com/honeytrap/honeytrap-coap/config"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	"github.com/honeytrap/honeytrap-coap/services"
	logging "github.com/op/go-logging"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp/coder"
	"golang.org/x/sync/errgroup"
)

var log = logging.MustGetLogger("services/coap")

var (
	_ = services.Register("coap", CoAP)
)

const (
	maxDatagramSize = 65535

	limiterIdle = 10 * time.Minute
)

// Config is the [service.<name>] section of a coap service.
type Config struct {
	AuditLog       string       `toml:"audit-log"`
	SensorInterval config.Delay `toml:"sensor-interval"`
	FirmwareLimit  int          `toml:"firmware-limit"`
	CameraTrigger  float64      `toml:"camera-trigger"`

	RateInterval config.Delay `toml:"rate-interval"`
	RateBurst    int          `toml:"rate-burst"`
}

// CoAP returns the coap gateway service.
func CoAP(options ...services.ServicerFunc) (services.Servicer, error) {
	s := &coapService{
		Config: Config{
			AuditLog:       "coap_audit.log",
			SensorInterval: config.Delay(defaultSensorInterval),
			FirmwareLimit:  defaultFirmwareLimit,
			CameraTrigger:  defaultCameraTrigger,
			RateInterval:   config.Delay(100 * time.Millisecond),
			RateBurst:      20,
		},
		c: pushers.MustDummy(),
	}

	s.mid.Store(uint32(rand.Intn(0x10000)))

	for _, o := range options {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	s.setup()
	return s, nil
}

type coapService struct {
	Config

	c       pushers.Channel
	dataDir string

	audit     *audit.Log
	sensor    *Sensor
	device    *Device
	router    *Router
	observers *Observers
	limiter   *services.Limiter

	mid atomic.Uint32
}

func (s *coapService) SetChannel(c pushers.Channel) {
	s.c = c
}

func (s *coapService) SetDataDir(dir string) {
	s.dataDir = dir
}

func (s *coapService) setup() {
	path := s.AuditLog
	if !filepath.IsAbs(path) && s.dataDir != "" {
		path = filepath.Join(s.dataDir, path)
	}

	s.audit = audit.New(path)

	s.sensor = NewSensor(s.SensorInterval.Duration(), s.CameraTrigger)
	s.sensor.c = s.c

	s.device = NewDevice(s.sensor, s.FirmwareLimit, s.c)
	s.router = NewRouter(s.audit, s.device.Resources()...)
	s.observers = NewObservers(maxObservers, s.nextMID)

	s.sensor.camera = s.router
	s.sensor.publish = func(ctx context.Context, resp *Response) {
		s.observers.Notify(ctx, "/temperature", resp)
	}

	s.limiter = services.NewLimiter(s.RateInterval.Duration(), s.RateBurst)

	for _, res := range s.router.Resources() {
		log.Debugf("Resource %s (%s)", res.Path, strings.Join(res.methods(), ", "))
	}
}

func (s *coapService) nextMID() int32 {
	return int32(uint16(s.mid.Add(1)))
}

// CanHandle accepts datagrams carrying CoAP version 1.
func (s *coapService) CanHandle(payload []byte) bool {
	return len(payload) >= 4 && payload[0]>>6 == 1
}

// Run drives the sensor until ctx is done.
func (s *coapService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.sensor.Run(ctx)
	})

	g.Go(func() error {
		t := time.NewTicker(limiterIdle)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if n := s.limiter.Sweep(limiterIdle); n > 0 {
					log.Debugf("Forgot %d idle peers", n)
				}
			}
		}
	})

	return g.Wait()
}

// Close closes the audit log.
func (s *coapService) Close() error {
	return s.audit.Close()
}

func isRequest(code codes.Code) bool {
	return code >= codes.GET && code < codes.Code(32)
}

func readBody(msg *pool.Message) ([]byte, error) {
	body := msg.Body()
	if body == nil {
		return nil, nil
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return io.ReadAll(body)
}

func newRequest(addr net.Addr, msg *pool.Message) (*Request, error) {
	path, err := msg.Options().Path()
	if err != nil {
		path = "/"
	}

	payload, err := readBody(msg)
	if err != nil {
		return nil, err
	}

	observe := int64(-1)
	if v, err := msg.Options().Observe(); err == nil {
		observe = int64(v)
	}

	return &Request{
		Addr:     addr,
		Method:   msg.Code(),
		Path:     path,
		Payload:  payload,
		Metadata: formatOptions(msg.Options()),
		Observe:  observe,
	}, nil
}

func encode(ctx context.Context, typ message.Type, mid int32, token message.Token, resp *Response, observe int64) ([]byte, error) {
	msg := pool.NewMessage(ctx)
	defer msg.Reset()

	msg.SetType(typ)
	msg.SetMessageID(mid)
	msg.SetCode(resp.Code)

	if len(token) > 0 {
		msg.SetToken(token)
	}

	if observe >= 0 {
		msg.SetObserve(uint32(observe))
	}

	if len(resp.Payload) > 0 {
		msg.SetContentFormat(resp.ContentFormat)
		msg.SetBody(bytes.NewReader(resp.Payload))
	}

	data, err := msg.MarshalWithEncoder(coder.DefaultCoder)
	if err != nil {
		return nil, err
	}

	return append([]byte{}, data...), nil
}

func (s *coapService) reply(ctx context.Context, conn net.Conn, typ message.Type, mid int32, token message.Token, resp *Response, observe int64) error {
	data, err := encode(ctx, typ, mid, token, resp, observe)
	if err != nil {
		return err
	}

	_, err = conn.Write(data)
	return err
}

// observe handles the observe option of a successful GET, returning the
// sequence number to put in the response or -1.
func (s *coapService) observe(req *Request, token message.Token, conn net.Conn, resp *Response) int64 {
	if req.Method != codes.GET || req.Observe < 0 || resp.Code != codes.Content {
		return -1
	}

	res, ok := s.router.Lookup(req.Path)
	if !ok || !res.Observable {
		return -1
	}

	switch req.Observe {
	case 0:
		seq, err := s.observers.Add(req.Path, req.Peer(), token, conn)
		if err != nil {
			log.Warningf("Observer %s of %s refused: %s", req.Peer(), req.Path, err.Error())
			return -1
		}

		s.c.Send(requestEvent(req, event.Type("coap-observe")))
		return int64(seq)
	case 1:
		s.observers.Remove(req.Path, req.Peer(), token)
	}

	return -1
}

func (s *coapService) Handle(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, maxDatagramSize)

	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}

	data := buf[:n]

	msg := pool.NewMessage(ctx)
	defer msg.Reset()

	if _, err := msg.UnmarshalWithDecoder(coder.DefaultCoder, data); err != nil {
		malformedTotal.Inc()

		s.c.Send(event.New(
			services.EventOptions,
			event.Category("coap"),
			event.Type("coap-malformed"),
			event.Protocol("udp"),
			event.SourceAddr(conn.RemoteAddr()),
			event.DestinationAddr(conn.LocalAddr()),
			event.Payload(data),
			event.Error(err),
		))

		return nil
	}

	// the limiter only holds back replies, every request is still recorded
	allowed := s.limiter.Allow(conn.RemoteAddr())
	if !allowed {
		rateLimitedTotal.Inc()
	}

	peer := conn.RemoteAddr().String()

	switch msg.Type() {
	case message.Reset:
		if n := s.observers.RemovePeer(peer); n > 0 {
			log.Debugf("Removed %d observers of %s after reset", n, peer)
		}
		return nil
	case message.Acknowledgement:
		return nil
	}

	if !isRequest(msg.Code()) {
		// pings and unexpected responses are answered with a reset
		if allowed && msg.Type() == message.Confirmable {
			return s.reply(ctx, conn, message.Reset, msg.MessageID(), nil, &Response{Code: codes.Empty}, -1)
		}
		return nil
	}

	req, err := newRequest(conn.RemoteAddr(), msg)
	if err != nil {
		return err
	}

	token := append(message.Token{}, msg.Token()...)

	s.c.Send(requestEvent(req,
		event.Type("coap-request"),
		event.DestinationAddr(conn.LocalAddr()),
		event.Payload(req.Payload),
		event.Custom("coap.metadata", req.Metadata),
	))

	resp := s.router.ServeCoAP(ctx, req)
	if !allowed {
		return nil
	}

	observe := s.observe(req, token, conn, resp)

	typ, mid := message.NonConfirmable, s.nextMID()
	if msg.Type() == message.Confirmable {
		typ, mid = message.Acknowledgement, msg.MessageID()
	}

	return s.reply(ctx, conn, typ, mid, token, resp, observe)
}
