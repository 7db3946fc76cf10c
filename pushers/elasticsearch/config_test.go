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
	"testing"
)

func TestUnmarshalTOML(t *testing.T) {
	var c Config

	err := c.UnmarshalTOML(map[string]interface{}{
		"url":      "https://127.0.0.1:9200/honeytrap",
		"username": "elastic",
		"password": "changeme",
		"insecure": true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if c.index != "honeytrap" {
		t.Errorf("Expected index honeytrap, got %s", c.index)
	}

	if c.URL.Path != "" {
		t.Errorf("Expected index to be removed from url, got %s", c.URL)
	}

	if !c.InsecureSkipVerify {
		t.Errorf("Expected insecure to be set")
	}
}

func TestUnmarshalTOMLErrors(t *testing.T) {
	var c Config

	if err := c.UnmarshalTOML(map[string]interface{}{}); err != ErrElasticsearchNoURL {
		t.Errorf("Expected ErrElasticsearchNoURL, got %v", err)
	}

	if err := c.UnmarshalTOML(map[string]interface{}{"url": "http://127.0.0.1:9200"}); err != ErrElasticsearchNoIndex {
		t.Errorf("Expected ErrElasticsearchNoIndex, got %v", err)
	}
}
