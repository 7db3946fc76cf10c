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
package file

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
)

func WithPath(path string) func(pushers.Channel) error {
	return func(f pushers.Channel) error {
		fc := f.(*FileBackend)
		fc.File = path
		return nil
	}
}

func WithMaxSize(maxSize int64) func(pushers.Channel) error {
	return func(f pushers.Channel) error {
		fc := f.(*FileBackend)
		fc.MaxSize = maxSize
		return nil
	}
}

func TestWritesJSONLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "events.log")

	channel, err := New(WithPath(p))
	if err != nil {
		t.Fatalf("Error creating new file channel: %s", err)
	}

	for i := 0; i < 10; i++ {
		channel.Send(event.New(event.Category("coap"), event.Custom("sequence", i)))
	}

	channel.(*FileBackend).Close()

	f, err := os.Open(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := map[string]interface{}{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("Line %d is not json: %s", count, err)
		}

		if m["category"] != "coap" {
			t.Errorf("Unexpected category: %v", m["category"])
		}

		count++
	}

	if count != 10 {
		t.Errorf("Expected 10 lines, got %d", count)
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "events.log")

	channel, err := New(WithPath(p), WithMaxSize(1024))
	if err != nil {
		t.Fatalf("Error creating new file channel: %s", err)
	}

	for i := 0; i < 200; i++ {
		channel.Send(event.New(event.Category("coap"), event.Custom("sequence", i)))
	}

	channel.(*FileBackend).Close()

	matches, err := filepath.Glob(p + ".*")
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) == 0 {
		t.Errorf("Expected rotated files in %s", dir)
	}
}

func TestNoFilename(t *testing.T) {
	if _, err := New(); err != ErrNoFilename {
		t.Errorf("Expected ErrNoFilename, got %v", err)
	}
}
