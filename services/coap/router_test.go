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
	"testing"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

func newTestRouter() (*Router, *recorder) {
	d, _ := newTestDevice()

	rec := &recorder{}
	return NewRouter(rec, d.Resources()...), rec
}

func serve(r *Router, method codes.Code, path string, payload []byte) *Response {
	return r.ServeCoAP(context.Background(), &Request{
		Addr:     attacker,
		Method:   method,
		Path:     path,
		Payload:  payload,
		Metadata: "Content-Format=0",
		Observe:  -1,
	})
}

func TestRouterDispatch(t *testing.T) {
	r, _ := newTestRouter()

	tests := []struct {
		method codes.Code
		path   string
		code   codes.Code
	}{
		{codes.GET, "/temperature", codes.Content},
		{codes.GET, "/camera", codes.Content},
		{codes.POST, "/camera", codes.Changed},
		{codes.GET, "/debug", codes.Content},
		{codes.POST, "/firmware", codes.Changed},
		{codes.GET, "/admin", codes.Content},
		{codes.POST, "/admin", codes.Unauthorized},
		{codes.GET, "/config", codes.Content},
		{codes.PUT, "/config", codes.Changed},
		{codes.POST, "/control", codes.Changed},
		{codes.GET, "/.well-known/core", codes.Content},
		{codes.GET, "/unknown", codes.NotFound},
		{codes.GET, "/Temperature", codes.NotFound},
		{codes.POST, "/temperature", codes.MethodNotAllowed},
		{codes.GET, "/firmware", codes.MethodNotAllowed},
		{codes.DELETE, "/config", codes.MethodNotAllowed},
	}

	for _, tc := range tests {
		if resp := serve(r, tc.method, tc.path, nil); resp.Code != tc.code {
			t.Errorf("%s %s: expected %s, got %s", tc.method, tc.path, tc.code, resp.Code)
		}
	}
}

func TestRouterAuditsOncePerRequest(t *testing.T) {
	r, rec := newTestRouter()

	serve(r, codes.PUT, "/config", []byte("interval=5"))
	serve(r, codes.GET, "/nothing", nil)

	if len(rec.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rec.records))
	}

	got := rec.records[0]
	if got.peer != attacker.String() || got.method != "PUT" || got.path != "/config" || string(got.payload) != "interval=5" || got.metadata != "Content-Format=0" {
		t.Fatalf("unexpected record %+v", got)
	}

	if rec.records[1].path != "/nothing" {
		t.Fatalf("expected unknown paths to be recorded, got %+v", rec.records[1])
	}
}

func TestRouterRecoversPanic(t *testing.T) {
	rec := &recorder{}

	r := NewRouter(rec, Resource{
		Path: "/boom",
		Methods: map[codes.Code]HandlerFunc{
			codes.GET: func(ctx context.Context, req *Request) *Response {
				panic("boom")
			},
		},
	})

	if resp := serve(r, codes.GET, "/boom", nil); resp.Code != codes.InternalServerError {
		t.Fatalf("expected %s, got %s", codes.InternalServerError, resp.Code)
	}
}

func TestDiscoveryFromTable(t *testing.T) {
	r, _ := newTestRouter()

	resp := serve(r, codes.GET, wellKnownCore, nil)
	if resp.ContentFormat != message.AppLinkFormat {
		t.Fatalf("expected link-format, got %v", resp.ContentFormat)
	}

	links := strings.Split(string(resp.Payload), ",")

	var paths []string
	for _, res := range r.Resources() {
		if res.Path != wellKnownCore {
			paths = append(paths, res.Path)
		}
	}

	if len(links) != len(paths) {
		t.Fatalf("expected %d links, got %d: %s", len(paths), len(links), resp.Payload)
	}

	for i, path := range paths {
		if !strings.HasPrefix(links[i], "<"+path+">;") {
			t.Errorf("expected link for %s, got %s", path, links[i])
		}
	}

	if links[0] != `</temperature>;rt="temperature-c";if="sensor";obs` {
		t.Errorf("unexpected temperature link %s", links[0])
	}

	if strings.Contains(links[1], "obs") {
		t.Errorf("expected camera not to be observable: %s", links[1])
	}
}

func TestResourceMethods(t *testing.T) {
	r, _ := newTestRouter()

	res, ok := r.Lookup("/config")
	if !ok {
		t.Fatal("expected /config to be registered")
	}

	if got := strings.Join(res.methods(), ","); got != "GET,PUT" {
		t.Fatalf("unexpected methods %s", got)
	}
}

func TestFormatOptions(t *testing.T) {
	opts := message.Options{
		{ID: message.URIPath, Value: []byte("config")},
		{ID: message.ContentFormat, Value: []byte{50}},
		{ID: message.URIQuery, Value: []byte("k=v")},
		{ID: message.ETag, Value: []byte{0x00, 0x01}},
	}

	if got := formatOptions(opts); got != "Content-Format=50; Uri-Query=k=v; ETag=0001" {
		t.Fatalf("unexpected metadata %q", got)
	}

	opts = message.Options{
		{ID: message.ETag, Value: []byte{0xff}},
	}

	if got := formatOptions(opts); got != "ETag=ff" {
		t.Fatalf("unexpected metadata %q", got)
	}
}
