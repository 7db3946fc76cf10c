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
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/listener"
	"github.com/honeytrap/honeytrap-coap/services"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp/coder"
)

var gateway = &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 5683}

func newTestService(t *testing.T) (*coapService, *collector, string) {
	dir := t.TempDir()
	col := &collector{}

	s, err := CoAP(
		services.WithChannel(col),
		services.WithDataDir(dir),
	)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		s.(*coapService).Close()
	})

	return s.(*coapService), col, filepath.Join(dir, "coap_audit.log")
}

type datagram struct {
	typ     message.Type
	code    codes.Code
	mid     int32
	token   message.Token
	path    string
	payload []byte
	observe int64
}

func (d datagram) encode(t *testing.T) []byte {
	msg := pool.NewMessage(context.Background())
	defer msg.Reset()

	msg.SetType(d.typ)
	msg.SetCode(d.code)
	msg.SetMessageID(d.mid)

	if len(d.token) > 0 {
		msg.SetToken(d.token)
	}

	if d.path != "" {
		if err := msg.SetPath(d.path); err != nil {
			t.Fatal(err)
		}
	}

	if d.observe >= 0 {
		msg.SetObserve(uint32(d.observe))
	}

	if d.payload != nil {
		msg.SetBody(bytes.NewReader(d.payload))
	}

	data, err := msg.MarshalWithEncoder(coder.DefaultCoder)
	if err != nil {
		t.Fatal(err)
	}

	return append([]byte{}, data...)
}

type replies struct {
	data [][]byte
}

func (r *replies) conn(raddr *net.UDPAddr, data []byte) *listener.DatagramConn {
	return &listener.DatagramConn{
		Buffer: data,
		Laddr:  gateway,
		Raddr:  raddr,
		WriteFn: func(b []byte, addr *net.UDPAddr) (int, error) {
			r.data = append(r.data, append([]byte{}, b...))
			return len(b), nil
		},
	}
}

func exchange(t *testing.T, s *coapService, raddr *net.UDPAddr, data []byte) *pool.Message {
	r := &replies{}

	if err := s.Handle(context.Background(), r.conn(raddr, data)); err != nil {
		t.Fatal(err)
	}

	switch len(r.data) {
	case 0:
		return nil
	case 1:
		return decode(t, r.data[0])
	default:
		t.Fatalf("expected a single reply, got %d", len(r.data))
		return nil
	}
}

func request(code codes.Code, path string, payload []byte) datagram {
	return datagram{
		typ:     message.Confirmable,
		code:    code,
		mid:     0x1234,
		token:   message.Token{0xca, 0xfe},
		path:    path,
		payload: payload,
		observe: -1,
	}
}

func auditLines(t *testing.T, s *coapService, path string) []string {
	s.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestFirmwareEndToEnd(t *testing.T) {
	s, col, _ := newTestService(t)

	resp := exchange(t, s, attacker, request(codes.POST, "/firmware", make([]byte, 50)).encode(t))
	if resp == nil {
		t.Fatal("expected a reply")
	}

	if resp.Type() != message.Acknowledgement || resp.MessageID() != 0x1234 || !bytes.Equal(resp.Token(), []byte{0xca, 0xfe}) {
		t.Fatalf("expected a piggybacked ack, got %s %d %x", resp.Type(), resp.MessageID(), resp.Token())
	}

	if resp.Code() != codes.Changed {
		t.Fatalf("50 bytes: expected %s, got %s", codes.Changed, resp.Code())
	}

	resp = exchange(t, s, attacker, request(codes.POST, "/firmware", make([]byte, 150)).encode(t))
	if resp.Code() != codes.InternalServerError {
		t.Fatalf("150 bytes: expected %s, got %s", codes.InternalServerError, resp.Code())
	}

	body, _ := readBody(resp)
	if !strings.Contains(string(body), "overflow") {
		t.Fatalf("expected an overflow message, got %q", body)
	}

	alerts := col.ofType("coap-alert")
	if len(alerts) != 1 || alerts[0].Get("coap.alert") != "overflow" {
		t.Fatalf("expected one overflow alert, got %d", len(alerts))
	}

	if len(col.ofType("coap-request")) != 2 {
		t.Fatal("expected a request event per datagram")
	}
}

func TestAuditEndToEnd(t *testing.T) {
	s, _, path := newTestService(t)

	loopback := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000}

	exchange(t, s, loopback, request(codes.POST, "/camera", []byte("start stream")).encode(t))
	exchange(t, s, attacker, request(codes.PUT, "/config", []byte("ssid=x&psk=y")).encode(t))

	lines := auditLines(t, s, path)
	if len(lines) != 2 {
		t.Fatalf("expected header and one record, got %q", lines)
	}

	fields := strings.Split(lines[1], ", ")
	if len(fields) != 6 {
		t.Fatalf("unexpected record %q", lines[1])
	}

	if fields[1] != attacker.String() || fields[2] != "PUT" || fields[3] != "/config" || fields[4] != "ssid=x&psk=y" {
		t.Fatalf("unexpected record %q", lines[1])
	}
}

func TestRateLimitedRequestsAudited(t *testing.T) {
	s, col, path := newTestService(t)

	answered := 0
	for i := 0; i < 30; i++ {
		if exchange(t, s, attacker, request(codes.PUT, "/config", []byte("ssid=x")).encode(t)) != nil {
			answered++
		}
	}

	if answered < 20 || answered >= 30 {
		t.Fatalf("expected the burst to be answered and the rest dropped, got %d replies", answered)
	}

	if n := len(col.ofType("coap-request")); n != 30 {
		t.Fatalf("expected 30 request events, got %d", n)
	}

	lines := auditLines(t, s, path)
	if len(lines) != 31 {
		t.Fatalf("expected header and 30 records, got %d lines", len(lines))
	}
}

func TestNonConfirmable(t *testing.T) {
	s, _, _ := newTestService(t)

	d := request(codes.GET, "/camera", nil)
	d.typ = message.NonConfirmable

	resp := exchange(t, s, attacker, d.encode(t))
	if resp == nil || resp.Type() != message.NonConfirmable || resp.Code() != codes.Content {
		t.Fatal("expected a non confirmable reply")
	}
}

func TestPing(t *testing.T) {
	s, _, _ := newTestService(t)

	d := datagram{typ: message.Confirmable, code: codes.Empty, mid: 77, observe: -1}

	resp := exchange(t, s, attacker, d.encode(t))
	if resp == nil || resp.Type() != message.Reset || resp.MessageID() != 77 {
		t.Fatal("expected a reset reply to a ping")
	}
}

func TestMalformed(t *testing.T) {
	s, col, _ := newTestService(t)

	if resp := exchange(t, s, attacker, []byte{0x40, 0x01}); resp != nil {
		t.Fatal("expected no reply to a malformed datagram")
	}

	if len(col.ofType("coap-malformed")) != 1 {
		t.Fatal("expected a malformed event")
	}
}

func TestUnknownPath(t *testing.T) {
	s, _, _ := newTestService(t)

	resp := exchange(t, s, attacker, request(codes.GET, "/shell", nil).encode(t))
	if resp.Code() != codes.NotFound {
		t.Fatalf("expected %s, got %s", codes.NotFound, resp.Code())
	}

	resp = exchange(t, s, attacker, request(codes.DELETE, "/temperature", nil).encode(t))
	if resp.Code() != codes.MethodNotAllowed {
		t.Fatalf("expected %s, got %s", codes.MethodNotAllowed, resp.Code())
	}
}

func TestDiscoveryEndToEnd(t *testing.T) {
	s, _, _ := newTestService(t)

	resp := exchange(t, s, attacker, request(codes.GET, "/.well-known/core", nil).encode(t))
	if resp.Code() != codes.Content {
		t.Fatalf("expected %s, got %s", codes.Content, resp.Code())
	}

	cf, err := resp.ContentFormat()
	if err != nil || cf != message.AppLinkFormat {
		t.Fatalf("expected link-format, got %v (%v)", cf, err)
	}

	body, _ := readBody(resp)
	if !strings.Contains(string(body), `</temperature>;rt="temperature-c";if="sensor";obs`) {
		t.Fatalf("unexpected discovery %s", body)
	}
}

func TestObserveEndToEnd(t *testing.T) {
	s, col, _ := newTestService(t)

	peer := &net.UDPAddr{IP: net.ParseIP("192.0.2.77"), Port: 50000}
	r := &replies{}

	d := request(codes.GET, "/temperature", nil)
	d.observe = 0

	if err := s.Handle(context.Background(), r.conn(peer, d.encode(t))); err != nil {
		t.Fatal(err)
	}

	if len(r.data) != 1 {
		t.Fatalf("expected a registration reply, got %d", len(r.data))
	}

	resp := decode(t, r.data[0])
	if seq, err := resp.Observe(); err != nil || seq != 0 {
		t.Fatalf("expected observe 0 in the registration reply, got %d (%v)", seq, err)
	}

	if s.observers.Len() != 1 || len(col.ofType("coap-observe")) != 1 {
		t.Fatal("expected the observer to be registered")
	}

	s.sensor.rnd = func() float64 { return 0 }
	s.sensor.tick(context.Background())

	if len(r.data) != 2 {
		t.Fatalf("expected a notification, got %d writes", len(r.data))
	}

	note := decode(t, r.data[1])
	if note.Type() != message.NonConfirmable || !bytes.Equal(note.Token(), []byte{0xca, 0xfe}) {
		t.Fatalf("unexpected notification %s %x", note.Type(), note.Token())
	}

	if seq, err := note.Observe(); err != nil || seq != 1 {
		t.Fatalf("expected observe 1, got %d (%v)", seq, err)
	}

	body, _ := readBody(note)
	if string(body) != "17.00 °C" {
		t.Fatalf("unexpected notification payload %q", body)
	}

	rst := datagram{typ: message.Reset, code: codes.Empty, mid: note.MessageID(), observe: -1}
	exchange(t, s, peer, rst.encode(t))

	if s.observers.Len() != 0 {
		t.Fatal("expected a reset to remove the observer")
	}
}

func TestObserveDeregister(t *testing.T) {
	s, _, _ := newTestService(t)

	d := request(codes.GET, "/temperature", nil)
	d.observe = 0
	exchange(t, s, attacker, d.encode(t))

	d.observe = 1
	resp := exchange(t, s, attacker, d.encode(t))

	if _, err := resp.Observe(); err == nil {
		t.Fatal("expected no observe option after deregistration")
	}

	if s.observers.Len() != 0 {
		t.Fatal("expected the observer to be removed")
	}
}

func TestObserveNotObservable(t *testing.T) {
	s, _, _ := newTestService(t)

	d := request(codes.GET, "/camera", nil)
	d.observe = 0
	exchange(t, s, attacker, d.encode(t))

	if s.observers.Len() != 0 {
		t.Fatal("expected /camera not to accept observers")
	}
}

func TestCanHandle(t *testing.T) {
	s, _, _ := newTestService(t)

	if !s.CanHandle(request(codes.GET, "/temperature", nil).encode(t)) {
		t.Fatal("expected a coap datagram to be accepted")
	}

	if s.CanHandle([]byte("GET / HTTP/1.1\r\n")) {
		t.Fatal("expected other protocols to be refused")
	}
}

func TestConfig(t *testing.T) {
	var c struct {
		Service map[string]toml.Primitive `toml:"service"`
	}

	md, err := toml.Decode(`
[service.coap]
type="coap"
audit-log="gateway.log"
sensor-interval="30s"
firmware-limit=64
camera-trigger=26.5
`, &c)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()

	srv, err := CoAP(
		services.WithDataDir(dir),
		services.WithConfig(c.Service["coap"], &md),
	)
	if err != nil {
		t.Fatal(err)
	}

	s := srv.(*coapService)
	defer s.Close()

	if s.FirmwareLimit != 64 || s.device.FirmwareLimit != 64 {
		t.Fatalf("expected firmware limit 64, got %d", s.FirmwareLimit)
	}

	if s.sensor.interval.Seconds() != 30 || s.sensor.trigger != 26.5 {
		t.Fatalf("unexpected sensor settings %s %f", s.sensor.interval, s.sensor.trigger)
	}

	if _, err := os.Stat(filepath.Join(dir, "gateway.log")); err != nil {
		t.Fatalf("expected the audit log in the data dir: %s", err)
	}
}
