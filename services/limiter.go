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
package services

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a per source ip limiter allowing burst datagrams and
// then one every interval.
func NewLimiter(interval time.Duration, burst int) *Limiter {
	return &Limiter{
		interval: rate.Every(interval),
		burst:    burst,
		peers:    map[string]*peerLimit{},
	}
}

type peerLimit struct {
	*rate.Limiter

	seen time.Time
}

// Limiter keeps a token bucket per source ip, so responses can not be used
// for amplification.
type Limiter struct {
	m     sync.Mutex
	peers map[string]*peerLimit

	interval rate.Limit
	burst    int
}

func ipOf(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.TCPAddr:
		return a.IP
	}

	return nil
}

// Allow reports whether the peer may be answered now.
func (l *Limiter) Allow(addr net.Addr) bool {
	ip := ipOf(addr)
	if ip == nil {
		return false
	}

	key := ip.String()
	now := time.Now()

	l.m.Lock()
	defer l.m.Unlock()

	p, ok := l.peers[key]
	if !ok {
		p = &peerLimit{Limiter: rate.NewLimiter(l.interval, l.burst)}
		l.peers[key] = p
	}

	p.seen = now
	return p.AllowN(now, 1)
}

// Sweep forgets peers not seen for idle, returning how many were removed.
func (l *Limiter) Sweep(idle time.Duration) int {
	deadline := time.Now().Add(-idle)

	l.m.Lock()
	defer l.m.Unlock()

	count := 0
	for key, p := range l.peers {
		if p.seen.Before(deadline) {
			delete(l.peers, key)
			count++
		}
	}

	return count
}
