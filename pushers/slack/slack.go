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
package slack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("channels/slack")

var (
	_ = pushers.Register("slack", New)
)

// Config defines a struct which holds configuration field values used by the
// Backend for it's message delivery to the slack channel API.
type Config struct {
	WebhookURL string `toml:"webhook_url"`
	Username   string `toml:"username"`
	IconURL    string `toml:"icon_url"`
	IconEmoji  string `toml:"icon_emoji"`
}

// Backend provides a struct which holds the configured means by which
// slack notifications are sent into giving slack groups and channels.
type Backend struct {
	Config

	client *http.Client

	ch chan map[string]interface{}
}

// New returns a new instance of a Backend.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	c := Backend{
		ch: make(chan map[string]interface{}, 100),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 5,
			},
			Timeout: 20 * time.Second,
		},
	}

	for _, optionFn := range options {
		if err := optionFn(&c); err != nil {
			return nil, err
		}
	}

	if c.WebhookURL == "" {
		return nil, errors.New("Invalid Config: WebhookURL can not be empty")
	}

	go c.run()

	return &c, nil
}

func (b Backend) message(ev map[string]interface{}) Message {
	category, _ := ev["category"].(string)
	sensor, _ := ev["sensor"].(string)
	etype, _ := ev["type"].(string)

	msg := Message{
		Text:      fmt.Sprintf("Event with category %q of type %q for sensor %q occurred", category, etype, sensor),
		IconURL:   b.IconURL,
		IconEmoji: b.IconEmoji,
		Username:  b.Username,
	}

	if m, ok := ev["message"].(string); ok {
		msg.Text = m
	}

	keys := make([]string, 0, len(ev))
	for name := range ev {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	fields := Attachment{
		Title:  "Event Fields",
		Author: "HoneyTrap",
	}

	for _, name := range keys {
		switch vo := ev[name].(type) {
		case string:
			fields.AddField(name, vo)
		default:
			data, err := json.Marshal(vo)
			if err != nil {
				continue
			}

			fields.AddField(name, string(data))
		}
	}

	msg.AddAttachment(fields)
	return msg
}

func (b Backend) post(msg Message) error {
	data := new(bytes.Buffer)
	if err := json.NewEncoder(data).Encode(msg); err != nil {
		return err
	}

	req, err := http.NewRequest("POST", b.WebhookURL, data)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status code %d", res.StatusCode)
	}

	return nil
}

func (b Backend) run() {
	for ev := range b.ch {
		if err := b.post(b.message(ev)); err != nil {
			log.Errorf("Error posting to endpoint(%q): %s", b.WebhookURL, err.Error())
		}
	}
}

// Send queues the event for delivery.
func (b Backend) Send(e event.Event) {
	b.ch <- event.ToMap(e)
}

// Message is the payload of a slack webhook.
type Message struct {
	Text        string       `json:"text"`
	IconEmoji   string       `json:"icon_emoji"`
	IconURL     string       `json:"icon_url"`
	Username    string       `json:"username"`
	Attachments []Attachment `json:"attachments"`
}

func (a *Message) AddAttachment(attachment Attachment) {
	a.Attachments = append(a.Attachments, attachment)
}

type Attachment struct {
	Title    string  `json:"title"`
	Author   string  `json:"author_name,omitempty"`
	Fallback string  `json:"fallback,omitempty"`
	Fields   []Field `json:"fields"`
	Text     string  `json:"text"`
}

func (a *Attachment) AddField(title string, value string) *Attachment {
	a.Fields = append(a.Fields, Field{Title: title, Value: value, Short: true})
	return a
}

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
