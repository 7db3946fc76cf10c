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
package listener

import (
	"io"
	"net"
	"time"
)

// DatagramConn presents a single received datagram as a net.Conn. Writes are
// sent back to the originating peer through WriteFn.
type DatagramConn struct {
	Buffer []byte

	Laddr net.Addr
	Raddr *net.UDPAddr

	WriteFn func(b []byte, addr *net.UDPAddr) (int, error)

	off int
}

// Peek returns the unread part of the datagram without consuming it.
func (dc *DatagramConn) Peek() []byte {
	return dc.Buffer[dc.off:]
}

func (dc *DatagramConn) Read(b []byte) (int, error) {
	if dc.off >= len(dc.Buffer) {
		return 0, io.EOF
	}

	n := copy(b, dc.Buffer[dc.off:])
	dc.off += n
	return n, nil
}

func (dc *DatagramConn) Write(b []byte) (int, error) {
	if dc.WriteFn == nil {
		return len(b), nil
	}

	return dc.WriteFn(b, dc.Raddr)
}

// Close is a no-op; the conn stays writable so observers can keep it.
func (dc *DatagramConn) Close() error {
	return nil
}

func (dc *DatagramConn) LocalAddr() net.Addr {
	return dc.Laddr
}

func (dc *DatagramConn) RemoteAddr() net.Addr {
	return dc.Raddr
}

func (dc *DatagramConn) SetDeadline(t time.Time) error {
	return nil
}

func (dc *DatagramConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (dc *DatagramConn) SetWriteDeadline(t time.Time) error {
	return nil
}
