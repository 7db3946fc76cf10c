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
	"context"
	"encoding/hex"
	"errors"
	"io"
	"sync"

	"github.com/plgd-dev/go-coap/v3/message"
)

const maxObservers = 64

// ErrTooManyObservers is returned when the observer limit is reached.
var ErrTooManyObservers = errors.New("too many observers")

type observer struct {
	path  string
	peer  string
	token message.Token

	w   io.Writer
	seq uint32
	gen uint64
}

// Observers keeps the peers observing a resource and pushes notifications
// to them.
type Observers struct {
	m         sync.Mutex
	observers map[string]*observer

	limit   int
	nextMID func() int32
}

// NewObservers returns a registry of at most limit observers.
func NewObservers(limit int, nextMID func() int32) *Observers {
	return &Observers{
		observers: map[string]*observer{},
		limit:     limit,
		nextMID:   nextMID,
	}
}

func observerKey(path, peer string, token message.Token) string {
	return path + "|" + peer + "|" + hex.EncodeToString(token)
}

// Add registers peer for path. Notifications are written to w. It returns
// the current sequence number of the observation.
func (o *Observers) Add(path, peer string, token message.Token, w io.Writer) (uint32, error) {
	key := observerKey(path, peer, token)

	o.m.Lock()
	defer o.m.Unlock()

	if ob, ok := o.observers[key]; ok {
		ob.w = w
		ob.gen++
		return ob.seq, nil
	}

	if len(o.observers) >= o.limit {
		return 0, ErrTooManyObservers
	}

	o.observers[key] = &observer{
		path:  path,
		peer:  peer,
		token: append(message.Token{}, token...),
		w:     w,
	}

	observersGauge.Set(float64(len(o.observers)))
	return 0, nil
}

// Remove deregisters a single observation.
func (o *Observers) Remove(path, peer string, token message.Token) {
	o.m.Lock()
	defer o.m.Unlock()

	delete(o.observers, observerKey(path, peer, token))
	observersGauge.Set(float64(len(o.observers)))
}

// RemovePeer deregisters every observation of peer, returning the count.
func (o *Observers) RemovePeer(peer string) int {
	o.m.Lock()
	defer o.m.Unlock()

	count := 0
	for key, ob := range o.observers {
		if ob.peer == peer {
			delete(o.observers, key)
			count++
		}
	}

	observersGauge.Set(float64(len(o.observers)))
	return count
}

// Len returns the number of observations.
func (o *Observers) Len() int {
	o.m.Lock()
	defer o.m.Unlock()

	return len(o.observers)
}

// notification is taken under the lock, the observer itself may be
// re-registered while it is written.
type notification struct {
	key   string
	peer  string
	token message.Token
	w     io.Writer
	seq   uint32
	gen   uint64
}

// Notify pushes resp to every observer of path as a non confirmable
// notification. Observers which can not be written to are dropped.
func (o *Observers) Notify(ctx context.Context, path string, resp *Response) {
	o.m.Lock()

	var targets []notification
	for key, ob := range o.observers {
		if ob.path != path {
			continue
		}

		ob.seq = (ob.seq + 1) & 0xffffff
		targets = append(targets, notification{
			key:   key,
			peer:  ob.peer,
			token: ob.token,
			w:     ob.w,
			seq:   ob.seq,
			gen:   ob.gen,
		})
	}

	o.m.Unlock()

	for _, n := range targets {
		data, err := encode(ctx, message.NonConfirmable, o.nextMID(), n.token, resp, int64(n.seq))
		if err != nil {
			log.Errorf("Error encoding notification for %s: %s", n.peer, err.Error())
			continue
		}

		if _, err := n.w.Write(data); err != nil {
			log.Debugf("Dropping observer %s of %s: %s", n.peer, path, err.Error())
			o.drop(n)
		}
	}
}

// drop removes the observer of n, unless it registered again since.
func (o *Observers) drop(n notification) {
	o.m.Lock()
	defer o.m.Unlock()

	if ob, ok := o.observers[n.key]; !ok || ob.gen != n.gen {
		return
	}

	delete(o.observers, n.key)
	observersGauge.Set(float64(len(o.observers)))
}
