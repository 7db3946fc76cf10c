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
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/honeytrap/honeytrap-coap/cmd"
	"github.com/honeytrap/honeytrap-coap/config"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/server/profiler"
	"github.com/honeytrap/honeytrap-coap/web"

	"github.com/honeytrap/honeytrap-coap/listener"
	_ "github.com/honeytrap/honeytrap-coap/listener/socket"

	"github.com/honeytrap/honeytrap-coap/services"
	_ "github.com/honeytrap/honeytrap-coap/services/coap"

	"github.com/honeytrap/honeytrap-coap/pushers/eventbus"

	_ "github.com/honeytrap/honeytrap-coap/pushers/console"
	_ "github.com/honeytrap/honeytrap-coap/pushers/elasticsearch"
	_ "github.com/honeytrap/honeytrap-coap/pushers/file"
	_ "github.com/honeytrap/honeytrap-coap/pushers/kafka"
	_ "github.com/honeytrap/honeytrap-coap/pushers/rabbitmq"
	_ "github.com/honeytrap/honeytrap-coap/pushers/slack"
	_ "github.com/honeytrap/honeytrap-coap/pushers/splunk"

	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("honeytrap/server")

const (
	defaultListener = "socket"
	defaultService  = "coap"
	defaultPort     = "udp/0.0.0.0:5683"

	heartbeatInterval = 30 * time.Second
)

// Honeytrap coordinates the channels, services and listener of the
// honeypot.
type Honeytrap struct {
	config *config.Config

	profiler profiler.Profiler

	bus *eventbus.EventBus

	token string

	dataDir string

	// Maps a port to the services configured on it.
	ports map[net.Addr][]*ServiceMap

	services []*ServiceMap
}

// New returns a new instance of a Honeytrap struct.
func New(options ...OptionFn) (*Honeytrap, error) {
	h := &Honeytrap{
		config:   &config.Config{},
		bus:      eventbus.New(),
		profiler: profiler.Dummy(),
		ports:    map[net.Addr][]*ServiceMap{},
	}

	for _, fn := range options {
		if err := fn(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// ServiceMap wraps a Servicer with its configured name and type.
type ServiceMap struct {
	Service services.Servicer

	Name string
	Type string
}

var (
	ErrNoServicesGivenPort = errors.New("no services for the given port")
	ErrNoSuitableService   = errors.New("no suitable service for the given port")
)

type peeker interface {
	Peek() []byte
}

// findService picks the service for conn among those configured on its
// local port. A single service is picked directly; otherwise the first one
// that either cannot tell or accepts the peeked bytes.
func (hc *Honeytrap) findService(conn net.Conn) (*ServiceMap, error) {
	localAddr := conn.LocalAddr()

	var candidates []*ServiceMap

	for k, sc := range hc.ports {
		if !compareAddr(k, localAddr) {
			continue
		}

		candidates = sc
	}

	if len(candidates) == 0 {
		return nil, ErrNoServicesGivenPort
	} else if len(candidates) == 1 {
		return candidates[0], nil
	}

	for _, sm := range candidates {
		ch, ok := sm.Service.(services.CanHandlerer)
		if !ok {
			return sm, nil
		}

		p, ok := conn.(peeker)
		if !ok {
			continue
		}

		if ch.CanHandle(p.Peek()) {
			return sm, nil
		}
	}

	return nil, ErrNoSuitableService
}

func (hc *Honeytrap) heartbeat(ctx context.Context) error {
	beat := time.NewTicker(heartbeatInterval)
	defer beat.Stop()

	count := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-beat.C:
		}

		hc.bus.Send(event.New(
			event.HeartbeatSensor,
			event.Category("heartbeat"),
			event.SeverityInfo,
			event.Custom("sequence", count),
		))

		count++
	}
}

// ToAddr parses "protocol/(host:)port" and returns the address, protocol
// and port.
func ToAddr(input string) (net.Addr, string, int, error) {
	parts := strings.Split(input, "/")

	if len(parts) != 2 {
		return nil, "", 0, errors.New("wrong format (needs to be \"protocol/(host:)port\")")
	}

	proto := parts[0]

	host, port, err := net.SplitHostPort(parts[1])
	if err != nil {
		port = parts[1]
	}

	portUint16, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return nil, "", 0, errors.Wrap(err, "error parsing port value")
	}

	switch proto {
	case "tcp":
		addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, port))
		return addr, proto, int(portUint16), err
	case "udp":
		addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
		return addr, proto, int(portUint16), err
	default:
		return nil, "", 0, errors.Errorf("unknown protocol %s", proto)
	}
}

// IsTerminal returns true when f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if isatty.IsTerminal(f.Fd()) {
		return true
	} else if isatty.IsCygwinTerminal(f.Fd()) {
		return true
	}

	return false
}

// compareAddr matches addresses of the same network by port, and by IP when
// both carry one.
func compareAddr(addr1 net.Addr, addr2 net.Addr) bool {
	if ta1, ok := addr1.(*net.TCPAddr); ok {
		ta2, ok := addr2.(*net.TCPAddr)
		if !ok {
			return false
		}

		return ta1.Port == ta2.Port && sameIP(ta1.IP, ta2.IP)
	} else if ua1, ok := addr1.(*net.UDPAddr); ok {
		ua2, ok := addr2.(*net.UDPAddr)
		if !ok {
			return false
		}

		return ua1.Port == ua2.Port && sameIP(ua1.IP, ua2.IP)
	}

	return false
}

// sameIP treats unspecified addresses as wildcards.
func sameIP(ip1, ip2 net.IP) bool {
	if ip1 == nil || ip1.IsUnspecified() {
		return true
	} else if ip2 == nil || ip2.IsUnspecified() {
		return true
	}

	return ip1.Equal(ip2)
}

func (hc *Honeytrap) banner() {
	if IsTerminal(os.Stdout) {
		fmt.Println(color.YellowString(`
 _   _                       _____                %c
| | | | ___  _ __   ___ _   |_   _| __ __ _ _ __
| |_| |/ _ \| '_ \ / _ \ | | || || '__/ _' | '_ \
|  _  | (_) | | | |  __/ |_| || || | | (_| | |_) |
|_| |_|\___/|_| |_|\___|\__, ||_||_|  \__,_| .__/
                        |___/              |_|
`, 127855))
	}

	fmt.Println(color.YellowString("Honeytrap starting (%s)...", hc.token))
	fmt.Println(color.YellowString("Version: %s (%s)", cmd.Version, cmd.ShortCommitID))
}

// Run configures the honeypot and serves until ctx is cancelled. Only a
// failure to start the listener is returned.
func (hc *Honeytrap) Run(ctx context.Context) error {
	hc.banner()

	log.Debugf("Using datadir: %s", hc.dataDir)

	hc.profiler.Start()

	hc.setupChannels()

	w, err := web.New(
		web.WithConfig(hc.config.Web, hc.config),
	)
	if err != nil {
		log.Errorf("Error parsing configuration of web: %s", err.Error())
		w, _ = web.New()
	}

	hc.bus.Subscribe(w)

	serviceList := hc.setupServices()

	l, err := hc.setupListener()
	if err != nil {
		hc.close()
		return err
	}

	hc.setupPorts(l, serviceList)

	if len(hc.config.Undecoded()) != 0 {
		log.Warningf("Unrecognized keys in configuration: %v", hc.config.Undecoded())
	}

	if err := l.Start(ctx); err != nil {
		fmt.Println(color.RedString("Error starting listener: %s", err.Error()))
		hc.close()
		return errors.Wrap(err, "error starting listener")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})

	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err == listener.ErrClosed {
				return nil
			} else if err != nil {
				return err
			}

			go hc.handle(ctx, conn)
		}
	})

	g.Go(func() error {
		return hc.heartbeat(ctx)
	})

	g.Go(func() error {
		if err := w.Run(ctx); err != nil {
			log.Errorf(color.RedString("Error running web interface: %s", err.Error()))
		}

		return nil
	})

	for _, sm := range hc.services {
		r, ok := sm.Service.(services.Runner)
		if !ok {
			continue
		}

		sm := sm
		g.Go(func() error {
			hc.runService(ctx, sm, r)
			return nil
		})
	}

	err = g.Wait()

	hc.close()

	return err
}

// runService runs the background work of a service until ctx is done,
// announcing its start and end on the bus.
func (hc *Honeytrap) runService(ctx context.Context, sm *ServiceMap, r services.Runner) {
	hc.bus.Send(event.New(
		event.ServiceSensor,
		event.ServiceStarted,
		event.Category(sm.Type),
		event.Service(sm.Name),
		event.SeverityInfo,
	))

	err := r.Run(ctx)
	if err != nil {
		log.Errorf(color.RedString("Error running service %s: %s", sm.Name, err.Error()))
	}

	opts := []event.Option{
		event.ServiceSensor,
		event.ServiceEnded,
		event.Category(sm.Type),
		event.Service(sm.Name),
		event.SeverityInfo,
	}

	if err != nil {
		opts = append(opts, event.SeverityError, event.Error(err))
	}

	hc.bus.Send(event.New(opts...))
}

// close releases service resources once the listener has stopped.
func (hc *Honeytrap) close() {
	for _, sm := range hc.services {
		c, ok := sm.Service.(io.Closer)
		if !ok {
			continue
		}

		if err := c.Close(); err != nil {
			log.Errorf("Error closing service %s: %s", sm.Name, err.Error())
		}
	}
}

func (hc *Honeytrap) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		trace := make([]byte, 1024)
		count := runtime.Stack(trace, false)
		log.Errorf("Error: %v", r)
		log.Errorf("Stack of %d bytes: %s", count, string(trace[:count]))

		message := event.Message("%+v", r)
		if err, ok := r.(error); ok {
			message = event.Message("%+v", err)
		}

		hc.bus.Send(event.New(
			event.SeverityFatal,
			event.SourceAddr(conn.RemoteAddr()),
			event.DestinationAddr(conn.LocalAddr()),
			event.Stack(),
			message,
		))
	}()

	log.Debugf("Accepted datagram for %s => %s", conn.RemoteAddr(), conn.LocalAddr())

	sm, err := hc.findService(conn)
	if err != nil {
		log.Debugf("No suitable handler for %s => %s: %s", conn.RemoteAddr(), conn.LocalAddr(), err.Error())
		return
	}

	log.Debugf("Handling datagram for %s => %s %s(%s)", conn.RemoteAddr(), conn.LocalAddr(), sm.Name, sm.Type)

	if err := sm.Service.Handle(ctx, conn); err != nil {
		log.Errorf(color.RedString("Error handling service: %s: %s", sm.Name, err.Error()))
	}
}

// Stop reports the shutdown of honeytrap.
func (hc *Honeytrap) Stop() {
	hc.profiler.Stop()

	fmt.Println(color.YellowString("Honeytrap stopped."))
}
