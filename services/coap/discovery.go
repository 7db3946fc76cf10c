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
	"fmt"
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
)

// links renders the table in link-format, leaving out the discovery
// resource itself.
func (r *Router) links() string {
	links := make([]string, 0, len(r.resources))

	for _, res := range r.resources {
		if res.Path == wellKnownCore {
			continue
		}

		link := fmt.Sprintf("<%s>", res.Path)
		if res.ResourceType != "" {
			link += fmt.Sprintf(";rt=%q", res.ResourceType)
		}
		if res.Interface != "" {
			link += fmt.Sprintf(";if=%q", res.Interface)
		}
		if res.Observable {
			link += ";obs"
		}

		links = append(links, link)
	}

	return strings.Join(links, ",")
}

func (r *Router) discovery(ctx context.Context, req *Request) *Response {
	return Content(message.AppLinkFormat, []byte(r.links()))
}
