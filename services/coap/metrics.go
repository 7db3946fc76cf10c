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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "honeytrap"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coap",
			Name:      "requests_total",
			Help:      "Total number of routed CoAP requests",
		},
		[]string{"method", "path", "code"},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coap",
			Name:      "alerts_total",
			Help:      "Total number of raised alerts by kind",
		},
		[]string{"alert"},
	)

	malformedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coap",
			Name:      "malformed_total",
			Help:      "Total number of datagrams which could not be decoded",
		},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coap",
			Name:      "rate_limited_total",
			Help:      "Total number of datagrams dropped by the rate limiter",
		},
	)

	temperatureGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coap",
			Name:      "temperature_celsius",
			Help:      "Current simulated temperature",
		},
	)

	observersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coap",
			Name:      "observers",
			Help:      "Number of registered observers",
		},
	)
)
