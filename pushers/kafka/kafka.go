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
package kafka

import (
	"encoding/json"
	"errors"

	sarama "github.com/Shopify/sarama"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"

	logging "github.com/op/go-logging"
)

var (
	_ = pushers.Register("kafka", New)
)

var log = logging.MustGetLogger("channels/kafka")

var (
	// ErrNoBrokers is returned when no brokers are configured.
	ErrNoBrokers = errors.New("kafka: brokers not set")
	// ErrNoTopic is returned when no topic is configured.
	ErrNoTopic = errors.New("kafka: topic not set")
)

// Config defines the kafka channel configuration.
type Config struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// Backend defines a struct which provides a channel for delivery
// of events to a kafka topic.
type Backend struct {
	Config

	producer sarama.AsyncProducer

	ch chan map[string]interface{}
}

// New returns a kafka backed Channel.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	c := Backend{
		ch: make(chan map[string]interface{}, 100),
	}

	for _, optionFn := range options {
		if err := optionFn(&c); err != nil {
			return nil, err
		}
	}

	if err := c.Config.validate(); err != nil {
		return nil, err
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true

	producer, err := sarama.NewAsyncProducer(c.Brokers, config)
	if err != nil {
		return nil, err
	}
	c.producer = producer

	go c.run()

	return &c, nil
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}

	if c.Topic == "" {
		return ErrNoTopic
	}

	return nil
}

func (hc Backend) run() {
	defer hc.producer.AsyncClose()

	for data := range hc.ch {
		marshalledData, err := json.Marshal(data)
		if err != nil {
			log.Errorf("Error marshaling event: %s", err.Error())
			continue
		}

		hc.producer.Input() <- &sarama.ProducerMessage{
			Topic: hc.Topic,
			Value: sarama.ByteEncoder(marshalledData),
		}

		select {
		case <-hc.producer.Successes():
		case msg := <-hc.producer.Errors():
			log.Errorf("Error producing event to kafka: %s", msg)
		}
	}
}

// Send queues the event for delivery to kafka.
func (hc Backend) Send(e event.Event) {
	hc.ch <- event.ToMap(e)
}
