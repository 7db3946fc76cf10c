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
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

var errInvalidText = errors.New("payload is not valid utf-8")

// Request is a decoded inbound request.
type Request struct {
	Addr    net.Addr
	Method  codes.Code
	Path    string
	Payload []byte

	// Metadata is the printable form of the options, path excluded.
	Metadata string

	// Observe holds the observe option, -1 when absent.
	Observe int64
}

// Peer returns the address of the requester as host:port.
func (r *Request) Peer() string {
	if r.Addr == nil {
		return ""
	}

	return r.Addr.String()
}

// Response is produced by every handler.
type Response struct {
	Code          codes.Code
	ContentFormat message.MediaType
	Payload       []byte
}

func Content(format message.MediaType, payload []byte) *Response {
	return &Response{Code: codes.Content, ContentFormat: format, Payload: payload}
}

func Changed(text string) *Response {
	return &Response{Code: codes.Changed, ContentFormat: message.TextPlain, Payload: []byte(text)}
}

func BadRequest(text string) *Response {
	return &Response{Code: codes.BadRequest, ContentFormat: message.TextPlain, Payload: []byte(text)}
}

func Unauthorized(text string) *Response {
	return &Response{Code: codes.Unauthorized, ContentFormat: message.TextPlain, Payload: []byte(text)}
}

func InternalError(text string) *Response {
	return &Response{Code: codes.InternalServerError, ContentFormat: message.TextPlain, Payload: []byte(text)}
}

func NotFound() *Response {
	return &Response{Code: codes.NotFound}
}

func MethodNotAllowed() *Response {
	return &Response{Code: codes.MethodNotAllowed}
}

func decodeText(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", errInvalidText
	}

	return string(payload), nil
}

var optionNames = map[message.OptionID]string{
	message.IfMatch:       "If-Match",
	message.URIHost:       "Uri-Host",
	message.ETag:          "ETag",
	message.IfNoneMatch:   "If-None-Match",
	message.Observe:       "Observe",
	message.URIPort:       "Uri-Port",
	message.LocationPath:  "Location-Path",
	message.ContentFormat: "Content-Format",
	message.MaxAge:        "Max-Age",
	message.URIQuery:      "Uri-Query",
	message.Accept:        "Accept",
	message.LocationQuery: "Location-Query",
	message.Block2:        "Block2",
	message.Block1:        "Block1",
	message.Size2:         "Size2",
	message.ProxyURI:      "Proxy-Uri",
	message.ProxyScheme:   "Proxy-Scheme",
	message.Size1:         "Size1",
}

var uintOptions = map[message.OptionID]bool{
	message.Observe:       true,
	message.URIPort:       true,
	message.ContentFormat: true,
	message.MaxAge:        true,
	message.Accept:        true,
	message.Block2:        true,
	message.Block1:        true,
	message.Size2:         true,
	message.Size1:         true,
}

func decodeUint(v []byte) uint64 {
	var n uint64
	for _, b := range v {
		n = n<<8 | uint64(b)
	}
	return n
}

func printable(v []byte) bool {
	if !utf8.Valid(v) {
		return false
	}

	for _, r := range string(v) {
		if !unicode.IsPrint(r) {
			return false
		}
	}

	return true
}

// formatOptions renders options as "Name=value" pairs separated by "; ".
// Uri-Path is left out, it is recorded as the path.
func formatOptions(opts message.Options) string {
	parts := make([]string, 0, len(opts))

	for _, o := range opts {
		if o.ID == message.URIPath {
			continue
		}

		name, ok := optionNames[o.ID]
		if !ok {
			name = fmt.Sprintf("Option(%d)", uint16(o.ID))
		}

		var value string
		switch {
		case uintOptions[o.ID]:
			value = fmt.Sprintf("%d", decodeUint(o.Value))
		case printable(o.Value):
			value = string(o.Value)
		default:
			value = fmt.Sprintf("%x", o.Value)
		}

		parts = append(parts, name+"="+value)
	}

	return strings.Join(parts, "; ")
}
