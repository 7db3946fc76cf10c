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
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	logging "github.com/op/go-logging"
)

var (
	_ = pushers.Register("file", New)
)

var (
	defaultMaxSize = int64(1024 * 1024 * 1024)

	flushInterval = time.Second
	flushSize     = 500 * 1024

	log = logging.MustGetLogger("channels/file")
)

var (
	// ErrNoFilename is returned when the channel has no filename configured.
	ErrNoFilename = errors.New("File channel: filename not set")
	// ErrMaxSizeTooSmall is returned for a max size below 1024 bytes.
	ErrMaxSizeTooSmall = errors.New("File channel: minimal max size is 1024")
)

// New returns a new instance of a FileBackend.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	fc := FileBackend{
		FileConfig: FileConfig{
			MaxSize: defaultMaxSize,
			Mode:    0600,
		},
		request: make(chan map[string]interface{}, 100),
		done:    make(chan struct{}),
	}

	for _, optionFn := range options {
		if err := optionFn(&fc); err != nil {
			return nil, err
		}
	}

	if fc.File == "" {
		return nil, ErrNoFilename
	}

	if fc.MaxSize < 1024 {
		return nil, ErrMaxSizeTooSmall
	}

	if !filepath.IsAbs(fc.File) {
		if pwd, err := os.Getwd(); err == nil {
			fc.File = filepath.Join(pwd, fc.File)
		}
	}

	dest, err := OpenRotateFile(fc.File, os.FileMode(fc.Mode), fc.MaxSize)
	if err != nil {
		return nil, err
	}

	go fc.writeLoop(dest)

	return &fc, nil
}

// FileConfig defines the config used to setup the FileBackend.
type FileConfig struct {
	MaxSize int64  `toml:"maxsize"`
	File    string `toml:"filename"`
	Mode    uint32 `toml:"mode"`
}

// FileBackend writes every event as a json line into a size bounded,
// rotating file.
type FileBackend struct {
	FileConfig

	request chan map[string]interface{}
	done    chan struct{}
	once    sync.Once
}

// Close flushes pending events and closes the file.
func (f *FileBackend) Close() error {
	f.once.Do(func() {
		close(f.request)
	})

	<-f.done
	return nil
}

// Send queues the event for writing.
func (f *FileBackend) Send(e event.Event) {
	f.request <- event.ToMap(e)
}

func (f *FileBackend) writeLoop(dest io.WriteCloser) {
	defer close(f.done)
	defer dest.Close()

	var buf bytes.Buffer

	flush := func() {
		if buf.Len() == 0 {
			return
		}

		if _, err := io.Copy(dest, &buf); err != nil {
			log.Errorf("Failed to copy data to File : %+q", err)
		}

		buf.Reset()
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-f.request:
			if !ok {
				flush()
				return
			}

			if err := json.NewEncoder(&buf).Encode(req); err != nil {
				log.Errorf("Failed to marshal event to JSON : %+q", err)
				continue
			}

			if buf.Len() < flushSize {
				continue
			}
		case <-ticker.C:
		}

		flush()
	}
}
