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
package transforms

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

type transformChannel struct {
	destination pushers.Channel
	fn          TransformFunc
}

func (c transformChannel) Send(input event.Event) {
	c.fn(input, c.destination.Send)
}

// Transform returns a channel which passes every event through fn before it
// reaches dest. A transform may drop, modify or duplicate events.
func Transform(dest pushers.Channel, fn TransformFunc) pushers.Channel {
	return transformChannel{destination: dest, fn: fn}
}

// TransformFunc modifies the event and hands the result(s) to send.
type TransformFunc func(e event.Event, send func(event.Event))

// TransformerFunc builds a TransformFunc from its configuration section.
type TransformerFunc func(c toml.Primitive, decoder pushers.TomlDecoder) (TransformFunc, error)

var transformers = make(map[string]TransformerFunc)

// Register adds a transform constructor. The return value allows for
// `var _ = Register("name", fn)`.
func Register(name string, fn TransformerFunc) TransformerFunc {
	transformers[name] = fn
	return fn
}

// Get builds the named transform using its configuration section.
func Get(name string, c toml.Primitive, decoder pushers.TomlDecoder) (TransformFunc, error) {
	fn, ok := transformers[name]
	if !ok {
		return nil, fmt.Errorf("Transform %s not found", name)
	}

	return fn(c, decoder)
}

// Chain combines the transforms into one, applied in order.
func Chain(fns ...TransformFunc) TransformFunc {
	return func(e event.Event, send func(event.Event)) {
		if len(fns) == 0 {
			send(e)
			return
		}

		fns[0](e, func(e event.Event) {
			Chain(fns[1:]...)(e, send)
		})
	}
}
