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
	"net"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/honeytrap/honeytrap-coap/listener"
	"github.com/honeytrap/honeytrap-coap/pushers"
	"github.com/honeytrap/honeytrap-coap/services"
	"github.com/honeytrap/honeytrap-coap/transforms"
)

// setupChannels creates the configured channels and subscribes them to the
// bus through their filters.
func (hc *Honeytrap) setupChannels() {
	channels := map[string]pushers.Channel{}
	isChannelUsed := map[string]bool{}

	for key, s := range hc.config.Channels {
		x := struct {
			Type string `toml:"type"`
		}{}

		if err := hc.config.PrimitiveDecode(s, &x); err != nil {
			log.Errorf("Error parsing configuration of channel: %s", err.Error())
			continue
		}

		if x.Type == "" {
			log.Errorf("Error parsing configuration of channel %s: type not set", key)
			continue
		}

		if channelFunc, ok := pushers.Get(x.Type); !ok {
			log.Errorf("Channel %s not supported on platform (%s)", x.Type, key)
		} else if d, err := channelFunc(
			pushers.WithConfig(s, hc.config),
		); err != nil {
			log.Errorf(color.RedString("Error initializing channel %s(%s): %s", key, x.Type, err))
		} else {
			channels[key] = d
			isChannelUsed[key] = false
		}
	}

	for _, s := range hc.config.Filters {
		x := struct {
			Channels   []string `toml:"channel"`
			Services   []string `toml:"services"`
			Categories []string `toml:"categories"`
			Transforms []string `toml:"transforms"`
		}{}

		if err := hc.config.PrimitiveDecode(s, &x); err != nil {
			log.Errorf("Error parsing configuration of filter: %s", err.Error())
			continue
		}

		var fns []transforms.TransformFunc
		for _, name := range x.Transforms {
			fn, err := hc.transform(name)
			if err != nil {
				log.Errorf("Error initializing transform %s: %s", name, err.Error())
				continue
			}

			fns = append(fns, fn)
		}

		for _, name := range x.Channels {
			channel, ok := channels[name]
			if !ok {
				log.Errorf("Could not find channel %s for filter", name)
				continue
			}

			isChannelUsed[name] = true

			if len(fns) != 0 {
				channel = transforms.Transform(channel, transforms.Chain(fns...))
			}

			channel = pushers.TokenChannel(channel, hc.token)

			if len(x.Categories) != 0 {
				channel = pushers.FilterChannel(channel, pushers.RegexFilterFunc("category", x.Categories))
			}

			if len(x.Services) != 0 {
				channel = pushers.FilterChannel(channel, pushers.RegexFilterFunc("service", x.Services))
			}

			if err := hc.bus.Subscribe(channel); err != nil {
				log.Errorf("Could not add channel %s to bus: %s", name, err.Error())
			}
		}
	}

	for name, isUsed := range isChannelUsed {
		if !isUsed {
			log.Warningf("Channel %s is unused. Did you forget to add a filter?", name)
		}
	}
}

// transform builds the transform configured under [transform.<name>]. The
// type defaults to the name.
func (hc *Honeytrap) transform(name string) (transforms.TransformFunc, error) {
	s, ok := hc.config.Transforms[name]
	if !ok {
		return nil, errors.Errorf("transform %s is not configured", name)
	}

	x := struct {
		Type string `toml:"type"`
	}{}

	if err := hc.config.PrimitiveDecode(s, &x); err != nil {
		return nil, err
	}

	if x.Type == "" {
		x.Type = name
	}

	return transforms.Get(x.Type, s, hc.config)
}

// setupServices creates the configured services. Without any configured
// service a default coap service is created.
func (hc *Honeytrap) setupServices() map[string]*ServiceMap {
	serviceList := map[string]*ServiceMap{}

	add := func(key, typ string, options ...services.ServicerFunc) {
		fn, ok := services.Get(typ)
		if !ok {
			log.Errorf(color.RedString("Could not find type %s for service %s", typ, key))
			return
		}

		options = append([]services.ServicerFunc{
			services.WithChannel(hc.bus),
			services.WithDataDir(hc.dataDir),
		}, options...)

		service, err := fn(options...)
		if err != nil {
			log.Errorf(color.RedString("Error initializing service %s(%s): %s", key, typ, err.Error()))
			return
		}

		sm := &ServiceMap{
			Service: service,
			Name:    key,
			Type:    typ,
		}

		serviceList[key] = sm
		hc.services = append(hc.services, sm)

		log.Infof("Configured service %s (%s)", typ, key)
	}

	if len(hc.config.Services) == 0 {
		log.Warningf("No services configured, using default %s service", defaultService)
		add(defaultService, defaultService)
		return serviceList
	}

	for key, s := range hc.config.Services {
		x := struct {
			Type string `toml:"type"`
			Port string `toml:"port"`
		}{}

		if err := hc.config.PrimitiveDecode(s, &x); err != nil {
			log.Errorf("Error parsing configuration of service %s: %s", key, err.Error())
			continue
		}

		if x.Port != "" {
			log.Errorf("Ports in services are deprecated, add services to ports instead")
			continue
		}

		add(key, x.Type, services.WithConfig(s, hc.config))
	}

	return serviceList
}

// setupListener creates the configured listener, the socket listener when
// none is configured.
func (hc *Honeytrap) setupListener() (listener.Listener, error) {
	x := struct {
		Type string `toml:"type"`
	}{}

	if err := hc.config.PrimitiveDecode(hc.config.Listener, &x); err != nil {
		return nil, errors.Wrap(err, "error parsing configuration of listener")
	}

	if x.Type == "" {
		x.Type = defaultListener
	}

	listenerFunc, ok := listener.Get(x.Type)
	if !ok {
		return nil, errors.Errorf("listener %s not supported on platform", x.Type)
	}

	l, err := listenerFunc(
		listener.WithChannel(hc.bus),
		listener.WithConfig(hc.config.Listener, hc.config),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "error initializing listener %s", x.Type)
	}

	return l, nil
}

type portConfig struct {
	Port     string   `toml:"port"`
	Ports    []string `toml:"ports"`
	Services []string `toml:"services"`
}

// setupPorts maps the configured ports to their services and adds them to
// the listener. Without any configured port all services are bound to the
// default port.
func (hc *Honeytrap) setupPorts(l listener.Listener, serviceList map[string]*ServiceMap) {
	var configs []portConfig

	for _, s := range hc.config.Ports {
		x := portConfig{}

		if err := hc.config.PrimitiveDecode(s, &x); err != nil {
			log.Errorf("Error parsing configuration of generic ports: %s", err.Error())
			continue
		}

		configs = append(configs, x)
	}

	if len(hc.config.Ports) == 0 {
		x := portConfig{Port: defaultPort}
		for name := range serviceList {
			x.Services = append(x.Services, name)
		}

		sort.Strings(x.Services)
		configs = append(configs, x)
	}

	isServiceUsed := map[string]bool{}
	for name := range serviceList {
		isServiceUsed[name] = false
	}

	for _, x := range configs {
		var ports []string
		if x.Ports != nil {
			ports = x.Ports
		}
		if x.Port != "" {
			ports = append(ports, x.Port)
		}
		if x.Port != "" && x.Ports != nil {
			log.Warning("Both \"port\" and \"ports\" were defined, this can be confusing")
		} else if x.Port == "" && x.Ports == nil {
			log.Error("Neither \"port\" nor \"ports\" were defined")
			continue
		}

		if len(x.Services) == 0 {
			log.Warning("No services defined for port(s) " + strings.Join(ports, ", "))
		}

		for _, portStr := range ports {
			addr, _, _, err := ToAddr(portStr)
			if err != nil {
				log.Errorf("Error parsing port string: %s", err.Error())
				continue
			}

			if addr.Network() != "udp" {
				log.Errorf("Port %s is not a udp port, it won't be listened on", portStr)
				continue
			}

			var servicePtrs []*ServiceMap
			for _, serviceName := range x.Services {
				ptr, ok := serviceList[serviceName]
				if !ok {
					log.Errorf("Unknown service '%s' for port %s", serviceName, portStr)
					continue
				}

				servicePtrs = append(servicePtrs, ptr)
				isServiceUsed[serviceName] = true
			}

			if len(servicePtrs) == 0 {
				log.Errorf("Port %s has no valid services, it won't be listened on", portStr)
				continue
			}

			if hc.hasPort(addr) {
				log.Errorf("Port %s was already defined, ignoring the newer definition", portStr)
				continue
			}

			a, ok := l.(listener.AddAddresser)
			if !ok {
				log.Errorf("Listener does not accept addresses, ignoring port %s", portStr)
				continue
			}

			hc.ports[addr] = servicePtrs
			a.AddAddress(addr)

			log.Infof("Configured port %s/%s", addr.Network(), addr.String())
		}
	}

	for name, isUsed := range isServiceUsed {
		if !isUsed {
			log.Warningf("Service %s is defined but not used", name)
		}
	}
}

func (hc *Honeytrap) hasPort(addr net.Addr) bool {
	for k := range hc.ports {
		if compareAddr(k, addr) {
			return true
		}
	}

	return false
}
