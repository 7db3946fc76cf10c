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
package transforms

import (
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/event"
)

type section struct {
	Transform map[string]toml.Primitive `toml:"transform"`
}

func decode(t *testing.T, data string) (*toml.MetaData, section) {
	s := section{}
	md, err := toml.Decode(data, &s)
	if err != nil {
		t.Fatal(err)
	}
	return &md, s
}

func TestTag(t *testing.T) {
	md, s := decode(t, `
[transform.tag]

[transform.tag.fields]
site = "lab-1"
sensor = "ignored"
`)

	fn, err := Get("tag", s.Transform["tag"], md)
	if err != nil {
		t.Fatal(err)
	}

	var got []event.Event
	fn(event.New(event.Sensor("coap")), func(e event.Event) {
		got = append(got, e)
	})

	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}

	if v := got[0].Get("site"); v != "lab-1" {
		t.Errorf("expected site lab-1, got %q", v)
	}

	if v := got[0].Get("sensor"); v != "coap" {
		t.Errorf("expected existing sensor to be kept, got %q", v)
	}
}

func TestGeoipRequiresDatabase(t *testing.T) {
	md, s := decode(t, `
[transform.geoip]
`)

	if _, err := Get("geoip", s.Transform["geoip"], md); err != ErrNoDatabase {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}

func TestGeoipMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mmdb")

	md, s := decode(t, `
[transform.geoip]
database = "`+filepath.ToSlash(path)+`"
`)

	if _, err := Get("geoip", s.Transform["geoip"], md); err == nil {
		t.Fatal("expected an error opening a missing database")
	}
}

func TestUnknownTransform(t *testing.T) {
	md, s := decode(t, ``)

	if _, err := Get("yara", s.Transform["yara"], md); err == nil {
		t.Fatal("expected an error for an unknown transform")
	}
}

func TestChain(t *testing.T) {
	double := func(e event.Event, send func(event.Event)) {
		send(e)
		send(e)
	}

	mark := func(e event.Event, send func(event.Event)) {
		e.Store("marked", "yes")
		send(e)
	}

	count := 0
	Chain(double, mark)(event.New(), func(e event.Event) {
		if e.Get("marked") != "yes" {
			t.Error("expected event to pass through every transform")
		}
		count++
	})

	if count != 2 {
		t.Fatalf("expected 2 events, got %d", count)
	}
}
