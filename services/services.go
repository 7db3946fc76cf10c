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
package services

import (
	"context"
	"net"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

// ServiceFunc creates a configured Servicer.
type ServiceFunc func(...ServicerFunc) (Servicer, error)

var (
	services = map[string]ServiceFunc{}
)

type ServicerFunc func(Servicer) error

// Register adds the service constructor under key. The return value allows
// for `var _ = Register("name", fn)`.
func Register(key string, fn ServiceFunc) ServiceFunc {
	services[key] = fn
	return fn
}

func Range(fn func(string)) {
	for k := range services {
		fn(k)
	}
}

// Get returns the service constructor registered under key.
func Get(key string) (ServiceFunc, bool) {
	fn, ok := services[key]
	return fn, ok
}

// CanHandlerer is implemented by services which can tell from the first
// bytes of a connection whether they understand it.
type CanHandlerer interface {
	CanHandle([]byte) bool
}

type Servicer interface {
	Handle(context.Context, net.Conn) error

	SetChannel(pushers.Channel)
}

// Runner is implemented by services with background work, run for the
// lifetime of the server.
type Runner interface {
	Run(context.Context) error
}

func WithChannel(eb pushers.Channel) ServicerFunc {
	return func(d Servicer) error {
		d.SetChannel(eb)
		return nil
	}
}

type SetDataDirer interface {
	SetDataDir(string)
}

// WithDataDir passes the data directory to services storing files.
func WithDataDir(dir string) ServicerFunc {
	return func(s Servicer) error {
		if d, ok := s.(SetDataDirer); ok {
			d.SetDataDir(dir)
		}
		return nil
	}
}

type TomlDecoder interface {
	PrimitiveDecode(primValue toml.Primitive, v interface{}) error
}

func WithConfig(c toml.Primitive, decoder TomlDecoder) ServicerFunc {
	return func(s Servicer) error {
		return decoder.PrimitiveDecode(c, s)
	}
}

var (
	SensorLow = event.Sensor("services")

	EventOptions = event.NewWith(
		SensorLow,
	)
)
