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
	"crypto/tls"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	elastic "gopkg.in/olivere/elastic.v5"
)

var (
	// ErrElasticsearchNoURL will be returned if no url has been set in configuration
	ErrElasticsearchNoURL = errors.New("Elasticsearch url has not been set")
	// ErrElasticsearchNoIndex will be returned if no path has been set in the url which is being used as index
	ErrElasticsearchNoIndex = errors.New("Elasticsearch index has not been set")
)

// Config defines a struct which holds configuration values for a SearchBackend.
type Config struct {
	options []elastic.ClientOptionFunc

	// URL configures the Elasticsearch server and index to send messages to
	URL *url.URL

	// InsecureSkipVerify configures if the client should not verify tls configuration
	InsecureSkipVerify bool

	// Sniff defines if the client should find all nodes
	Sniff bool

	index string
}

// UnmarshalTOML deserializes the giving data into the config.
func (c *Config) UnmarshalTOML(p interface{}) error {
	c.options = []elastic.ClientOptionFunc{
		elastic.SetRetrier(&Retrier{}),
	}

	data, _ := p.(map[string]interface{})

	s, ok := data["url"].(string)
	if !ok || s == "" {
		return ErrElasticsearchNoURL
	}

	u, err := url.Parse(s)
	if err != nil {
		return err
	}

	parts := strings.Split(u.Path, "/")
	if len(parts) != 2 || parts[1] == "" {
		return ErrElasticsearchNoIndex
	}

	c.index = parts[1]

	u.Path = ""
	c.URL = u

	c.options = append(c.options, elastic.SetURL(u.String()))
	c.options = append(c.options, elastic.SetScheme(u.Scheme))

	log.Debugf("Using URL: %s with index: %s", u.String(), c.index)

	if username, ok := data["username"].(string); !ok {
	} else if password, ok := data["password"].(string); !ok {
	} else {
		c.options = append(c.options, elastic.SetBasicAuth(username, password))

		log.Debugf("Using authentication with username: %s and password.", username)
	}

	if b, ok := data["insecure"].(bool); ok {
		c.InsecureSkipVerify = b
	}

	if b, ok := data["sniff"].(bool); ok {
		c.Sniff = b
	}

	c.options = append(c.options, elastic.SetSniff(c.Sniff))

	c.options = append(c.options, elastic.SetHttpClient(&http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 5,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: c.InsecureSkipVerify,
			},
		},
		Timeout: 20 * time.Second,
	}))

	return nil
}
