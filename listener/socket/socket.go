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
package socket

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/honeytrap/honeytrap-coap/listener"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("listeners/socket")

var (
	_ = listener.Register("socket", New)
)

const maxDatagramSize = 65535

type socketListener struct {
	socketConfig

	ch   chan net.Conn
	done chan struct{}
	once sync.Once

	m     sync.Mutex
	conns []*net.UDPConn
}

type socketConfig struct {
	Addresses []net.Addr
}

func (sc *socketConfig) AddAddress(a net.Addr) {
	sc.Addresses = append(sc.Addresses, a)
}

// New returns a listener receiving datagrams on the configured udp
// addresses.
func New(options ...func(listener.Listener) error) (listener.Listener, error) {
	l := socketListener{
		socketConfig: socketConfig{},
		ch:           make(chan net.Conn),
		done:         make(chan struct{}),
	}

	for _, option := range options {
		if err := option(&l); err != nil {
			return nil, err
		}
	}

	return &l, nil
}

// Start binds every address. A failure to bind closes the sockets bound so
// far and is returned.
func (sl *socketListener) Start(ctx context.Context) error {
	for _, address := range sl.Addresses {
		ua, ok := address.(*net.UDPAddr)
		if !ok {
			sl.Close()
			return errors.New("socket listener only supports udp addresses")
		}

		conn, err := net.ListenUDP("udp", ua)
		if err != nil {
			sl.Close()
			return err
		}

		sl.m.Lock()
		sl.conns = append(sl.conns, conn)
		sl.m.Unlock()

		log.Infof("Listener started: udp/%s", conn.LocalAddr())

		go sl.serve(conn)
	}

	go func() {
		select {
		case <-ctx.Done():
			sl.Close()
		case <-sl.done:
		}
	}()

	return nil
}

func (sl *socketListener) serve(conn *net.UDPConn) {
	laddr := conn.LocalAddr()

	var buf [maxDatagramSize]byte

	for {
		n, raddr, err := conn.ReadFromUDP(buf[:])
		if err != nil {
			select {
			case <-sl.done:
				return
			default:
			}

			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				log.Errorf("Error reading udp: %s", err.Error())
				continue
			}

			log.Errorf("Error reading udp, stopping: %s", err.Error())
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		select {
		case sl.ch <- &listener.DatagramConn{
			Buffer:  data,
			Laddr:   laddr,
			Raddr:   raddr,
			WriteFn: conn.WriteToUDP,
		}:
		case <-sl.done:
			return
		}
	}
}

// Addrs returns the bound local addresses.
func (sl *socketListener) Addrs() []net.Addr {
	sl.m.Lock()
	defer sl.m.Unlock()

	addrs := make([]net.Addr, 0, len(sl.conns))
	for _, c := range sl.conns {
		addrs = append(addrs, c.LocalAddr())
	}

	return addrs
}

func (sl *socketListener) Accept() (net.Conn, error) {
	select {
	case c := <-sl.ch:
		return c, nil
	case <-sl.done:
		return nil, listener.ErrClosed
	}
}

func (sl *socketListener) Close() error {
	sl.once.Do(func() {
		close(sl.done)

		sl.m.Lock()
		defer sl.m.Unlock()

		for _, c := range sl.conns {
			c.Close()
		}
	})

	return nil
}
