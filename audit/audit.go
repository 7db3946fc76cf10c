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
// Package audit implements the append-only request log. Every request from
// a non loopback peer becomes exactly one line:
//
//	<timestamp>, <peer>, <method>, <path>, <payload>, <metadata>
//
// Write failures are reported through the diagnostic logger, never to the
// caller.
package audit

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("honeytrap/audit")

// ErrClosed is reported for records written after Close.
var ErrClosed = errors.New("audit log closed")

// Log is an append-only audit log backed by a file. It is safe for
// concurrent use.
type Log struct {
	path string

	m      sync.Mutex
	w      io.WriteCloser
	closed bool

	now func() time.Time
}

// New returns a log appending to path. A file that can not be opened now is
// retried on the next record.
func New(path string) *Log {
	l := &Log{
		path: path,
		now:  time.Now,
	}

	l.m.Lock()
	defer l.m.Unlock()

	if err := l.open(); err != nil {
		log.Errorf("Error opening audit log %s: %s", path, err.Error())
	}

	return l
}

func (l *Log) timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

// open writes a start header on an empty file, a restart marker otherwise.
func (l *Log) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	marker := fmt.Sprintf("# audit log started %s\n", l.timestamp())
	if fi.Size() > 0 {
		marker = fmt.Sprintf("# restarted %s\n", l.timestamp())
	}

	if _, err := io.WriteString(f, marker); err != nil {
		f.Close()
		return err
	}

	l.w = f
	return nil
}

// IsLoopback reports whether peer (host[:port]) is a loopback address.
func IsLoopback(peer string) bool {
	if strings.HasPrefix(peer, "127.") {
		return true
	}

	host, _, err := net.SplitHostPort(peer)
	if err != nil {
		host = strings.Trim(peer, "[]")
	}

	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Text decodes the payload for the log line. Every invalid byte becomes
// U+FFFD and line breaks are escaped so one record stays one line.
func Text(payload []byte) string {
	var sb strings.Builder

	for len(payload) > 0 {
		r, size := utf8.DecodeRune(payload)
		payload = payload[size:]

		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// Record appends one line for the request. Requests from loopback peers are
// not recorded.
func (l *Log) Record(peer, method, path string, payload []byte, metadata string) {
	if IsLoopback(peer) {
		return
	}

	line := fmt.Sprintf("%s, %s, %s, %s, %s, %s\n", l.timestamp(), peer, method, path, Text(payload), metadata)

	l.m.Lock()
	defer l.m.Unlock()

	if err := l.write(line); err != nil {
		log.Errorf("Error writing audit record for %s %s from %s: %s", method, path, peer, err.Error())
	}
}

func (l *Log) write(line string) error {
	if l.closed {
		return ErrClosed
	}

	if l.w == nil {
		if err := l.open(); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(l.w, line); err != nil {
		// reopen on the next record
		l.w.Close()
		l.w = nil
		return err
	}

	return nil
}

// Close closes the underlying file. Later records are dropped.
func (l *Log) Close() error {
	l.m.Lock()
	defer l.m.Unlock()

	l.closed = true

	if l.w == nil {
		return nil
	}

	err := l.w.Close()
	l.w = nil
	return err
}
