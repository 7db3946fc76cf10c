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
package elasticsearch

import (
	"context"
	"time"

	uuid "github.com/satori/go.uuid"
	elastic "gopkg.in/olivere/elastic.v5"

	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	logging "github.com/op/go-logging"
)

var (
	_ = pushers.Register("elasticsearch", New)
)

var log = logging.MustGetLogger("channels/elasticsearch")

// Backend indexes events in bulk into elasticsearch.
type Backend struct {
	Config

	bp *elastic.BulkProcessor
}

// New returns an elasticsearch backed Channel.
func New(options ...func(pushers.Channel) error) (pushers.Channel, error) {
	c := Backend{}

	for _, optionFn := range options {
		if err := optionFn(&c); err != nil {
			return nil, err
		}
	}

	if c.URL == nil {
		return nil, ErrElasticsearchNoURL
	}

	client, err := elastic.NewClient(c.options...)
	if err != nil {
		return nil, err
	}

	bp, err := client.BulkProcessor().
		Name("honeytrap").
		Workers(1).
		BulkActions(100).
		FlushInterval(5 * time.Second).
		Do(context.Background())
	if err != nil {
		return nil, err
	}

	c.bp = bp

	return &c, nil
}

// Send adds the event to the bulk processor.
func (hc Backend) Send(e event.Event) {
	doc := event.ToMap(e)

	messageID := uuid.NewV4()

	r := elastic.NewBulkIndexRequest().
		Index(hc.index).
		Type("event").
		Id(messageID.String()).
		Doc(doc)

	hc.bp.Add(r)
}
