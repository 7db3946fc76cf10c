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
package console

import (
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

var (
	_ = pushers.Register("console", New)
)

// New returns a new instance of a Console channel writing to stdout.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	c := Console{
		Writer: os.Stdout,
		ch:     make(chan map[string]interface{}, 100),
	}

	for _, optionFn := range options {
		if err := optionFn(&c); err != nil {
			return nil, err
		}
	}

	go c.run()

	return &c, nil
}

// Console provides a backend for outputing event details directly to
// the current console.
type Console struct {
	io.Writer

	ch chan map[string]interface{}
}

func printify(s string) string {
	var sb strings.Builder

	for _, r := range s {
		if !unicode.IsPrint(r) {
			buf := make([]byte, 4)

			n := utf8.EncodeRune(buf, r)
			fmt.Fprintf(&sb, "\\x%s", hex.EncodeToString(buf[:n]))
			continue
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

func format(e map[string]interface{}) string {
	var params []string
	for k, v := range e {
		switch x := v.(type) {
		case net.IP:
			params = append(params, fmt.Sprintf("%s=%s", k, x.String()))
		case uint32, uint16, uint8, uint,
			int32, int16, int8, int:
			params = append(params, fmt.Sprintf("%s=%d", k, v))
		case float64:
			params = append(params, fmt.Sprintf("%s=%.2f", k, x))
		case time.Time:
			params = append(params, fmt.Sprintf("%s=%s", k, x.String()))
		case string:
			params = append(params, fmt.Sprintf("%s=%s", k, printify(x)))
		default:
			params = append(params, fmt.Sprintf("%s=%#v", k, v))
		}
	}

	sort.Strings(params)
	return fmt.Sprintf("%s > %s > %s\n", e["sensor"], e["category"], strings.Join(params, ", "))
}

func (b Console) run() {
	for e := range b.ch {
		fmt.Fprint(b.Writer, format(e))
	}
}

// Send queues the event for printing.
func (b *Console) Send(e event.Event) {
	b.ch <- event.ToMap(e)
}
