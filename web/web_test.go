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
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/honeytrap/honeytrap-coap/event"
)

const (
	passed = "✓"
	failed = "✗"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestConfig(t *testing.T) {
	var c struct {
		Web toml.Primitive `toml:"web"`
	}

	md, err := toml.Decode(`
[web]
listen="0.0.0.0:9000"
enabled=true
`, &c)
	if err != nil {
		t.Fatal(err)
	}

	w, err := New(WithConfig(c.Web, &md))
	if err != nil {
		t.Fatal(err)
	}

	if !w.Enabled || w.ListenAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected config: enabled=%t listen=%s", w.Enabled, w.ListenAddress)
	}
}

func TestDisabledRunReturns(t *testing.T) {
	w, _ := New()

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected nil, got %s", err)
	}
}

func TestStatus(t *testing.T) {
	w, _ := New()

	w.Send(event.New(event.Category("coap")))
	w.Send(event.New(event.Category("heartbeat")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status struct {
		Version string `json:"version"`
		Events  uint64 `json:"events"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}

	if status.Events != 1 {
		t.Fatalf("expected 1 event counted, got %d", status.Events)
	}

	if status.Version == "" {
		t.Fatal("expected a version")
	}
}

func TestMetrics(t *testing.T) {
	w, _ := New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("expected prometheus exposition")
	}
}

func TestLiveEvents(t *testing.T) {
	t.Logf("Given a websocket client of the live event feed")
	{
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w, _ := New()
		go w.run(ctx)

		srv := httptest.NewServer(w.router())
		defer srv.Close()

		ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
		if err != nil {
			t.Fatalf("\t%s\t Should have connected: %s.", failed, err)
		}
		defer ws.Close()

		read := func() (string, map[string]interface{}) {
			ws.SetReadDeadline(time.Now().Add(5 * time.Second))

			var msg struct {
				Type string                 `json:"type"`
				Data map[string]interface{} `json:"data"`
			}

			if err := ws.ReadJSON(&msg); err != nil {
				t.Fatalf("\t%s\t Should have read a frame: %s.", failed, err)
			}

			return msg.Type, msg.Data
		}

		t.Logf("\tWhen the client connects")
		{
			if typ, data := read(); typ != "metadata" || data["version"] == nil {
				t.Fatalf("\t%s\t Should have received metadata, got %s.", failed, typ)
			}
			t.Logf("\t%s\t Should have received metadata.", passed)
		}

		t.Logf("\tWhen a heartbeat and an alert are sent")
		{
			w.Send(event.New(event.Category("heartbeat")))
			w.Send(event.New(event.Category("coap"), event.Type("coap-alert")))

			typ, data := read()
			if typ != "event" || data["type"] != "coap-alert" {
				t.Fatalf("\t%s\t Should have received only the alert, got %s %v.", failed, typ, data)
			}
			t.Logf("\t%s\t Should have received only the alert.", passed)
		}
	}
}
