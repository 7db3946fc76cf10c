/*
* Honeytrap
* Copyright (C) 2016-2017 DutchSec (https://dutchsec.com/)
*
* This program is free software; you can redistribute it and/or modify it under
* the terms of the GNU Affero General Public License version 3 as published by the
* Free Software Foundation.
*
* This program is distributed in the hope that it will be useful, but WITHOUT
* ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
* FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for more
* details.
*
* You should have received a copy of the GNU Affero General Public License
* version 3 along with this program in the file "LICENSE".  If not, see
* <http://www.gnu.org/licenses/agpl-3.0.txt>.
*
* See https://honeytrap.io/ for more details. All requests should be sent to
* licensing@honeytrap.io
*
* The interactive user interfaces in modified source and object code versions
* of this program must display Appropriate Legal Notices, as required under
* Section 5 of the GNU Affero General Public License version 3.
*
* In accordance with Section 7(b) of the GNU Affero General Public License version 3,
* these Appropriate Legal Notices must retain the display of the "Powered by
* Honeytrap" logo and retain the original copyright notice. If the display of the
* logo is not reasonably feasible for technical reasons, the Appropriate Legal Notices
* must display the words "Powered by Honeytrap" and retain the original copyright notice.
 */
// Package web serves the optional operator surface: prometheus metrics, a
// status document and a websocket feed of live events.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/honeytrap/honeytrap-coap/cmd"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	logging "github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logging.MustGetLogger("honeytrap/web")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type web struct {
	ListenAddress string `toml:"listen"`
	Enabled       bool   `toml:"enabled"`

	start  time.Time
	events atomic.Uint64

	messageCh chan json.Marshaler

	// Registered connections, owned by run.
	connections map[*connection]bool

	register   chan *connection
	unregister chan *connection

	done chan struct{}
}

// New returns the web surface. It is disabled until configured.
func New(options ...func(*web) error) (*web, error) {
	hc := web{
		ListenAddress: "127.0.0.1:8089",
		Enabled:       false,

		start: time.Now(),

		messageCh: make(chan json.Marshaler, 100),

		connections: map[*connection]bool{},
		register:    make(chan *connection),
		unregister:  make(chan *connection),

		done: make(chan struct{}),
	}

	for _, optionFn := range options {
		if err := optionFn(&hc); err != nil {
			return nil, err
		}
	}

	return &hc, nil
}

// WithConfig decodes the [web] section.
func WithConfig(c toml.Primitive, decoder pushers.TomlDecoder) func(*web) error {
	return func(w *web) error {
		return decoder.PrimitiveDecode(c, w)
	}
}

// Message is a typed frame on the websocket feed.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MarshalJSON encodes the frame.
func (msg Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type": msg.Type,
		"data": msg.Data,
	})
}

// Data wraps data in a frame of the given type.
func Data(typ string, data interface{}) json.Marshaler {
	return &Message{
		Type: typ,
		Data: data,
	}
}

// Metadata is sent once to every new websocket client.
type Metadata struct {
	Start         time.Time
	Version       string
	ReleaseTag    string
	CommitID      string
	ShortCommitID string
}

// MarshalJSON encodes the metadata.
func (metadata Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"start":         metadata.Start,
		"version":       metadata.Version,
		"release_tag":   metadata.ReleaseTag,
		"commitid":      metadata.CommitID,
		"shortcommitid": metadata.ShortCommitID,
	})
}

func (w *web) metadata() Metadata {
	return Metadata{
		Start:         w.start,
		Version:       cmd.Version,
		ReleaseTag:    cmd.ReleaseTag,
		CommitID:      cmd.CommitID,
		ShortCommitID: cmd.ShortCommitID,
	}
}

// Send queues the event for websocket clients. Heartbeats are skipped and
// events are dropped while the queue is full.
func (w *web) Send(e event.Event) {
	if e.Get("category") == "heartbeat" {
		return
	}

	w.events.Add(1)

	select {
	case w.messageCh <- Data("event", e):
	default:
	}
}

func (w *web) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/status", w.status)
	r.GET("/ws", w.serveWS)

	return r
}

func (w *web) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":       cmd.Version,
		"shortcommitid": cmd.ShortCommitID,
		"start":         w.start,
		"uptime":        time.Since(w.start).Round(time.Second).String(),
		"events":        w.events.Load(),
	})
}

// Run serves until ctx is cancelled. A disabled surface returns at once.
func (w *web) Run(ctx context.Context) error {
	if !w.Enabled {
		return nil
	}

	server := &http.Server{
		Addr:    w.ListenAddress,
		Handler: w.router(),
	}

	go w.run(ctx)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error shutting down web interface: %s", err.Error())
		}
	}()

	log.Infof("Web interface started: %s", w.ListenAddress)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (w *web) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case c := <-w.register:
			w.connections[c] = true
		case c := <-w.unregister:
			if _, ok := w.connections[c]; ok {
				delete(w.connections, c)
				close(c.send)
			}
		case msg := <-w.messageCh:
			for c := range w.connections {
				select {
				case c.send <- msg:
				default:
					delete(w.connections, c)
					close(c.send)
				}
			}
		case <-ctx.Done():
			for c := range w.connections {
				delete(w.connections, c)
				close(c.send)
			}

			return
		}
	}
}

func (w *web) serveWS(ctx *gin.Context) {
	ws, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Errorf("Could not upgrade connection: %s", err.Error())
		return
	}

	c := &connection{
		ws:   ws,
		send: make(chan json.Marshaler, 100),
	}

	c.send <- Data("metadata", w.metadata())

	select {
	case w.register <- c:
	case <-w.done:
		ws.Close()
		return
	}

	log.Debug("Connection upgraded.")

	defer func() {
		select {
		case w.unregister <- c:
		case <-w.done:
		}

		ws.Close()

		log.Debug("Connection closed")
	}()

	go c.writePump()
	c.readPump()
}
