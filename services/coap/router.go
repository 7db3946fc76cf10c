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
	"runtime"
	"sort"

	"github.com/plgd-dev/go-coap/v3/message/codes"
)

const wellKnownCore = "/.well-known/core"

// HandlerFunc answers a request. Handlers never fail, errors become a
// response.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Resource is one entry of the resource table. The same table drives
// routing and discovery.
type Resource struct {
	Path         string
	ResourceType string
	Interface    string
	Observable   bool

	Methods map[codes.Code]HandlerFunc
}

// Recorder receives one audit record per routed request.
type Recorder interface {
	Record(peer, method, path string, payload []byte, metadata string)
}

// Dispatcher routes a request to its resource.
type Dispatcher interface {
	ServeCoAP(ctx context.Context, req *Request) *Response
}

// Router dispatches requests by path and method. The table is fixed after
// NewRouter.
type Router struct {
	audit Recorder

	resources []Resource
	index     map[string]int
}

// NewRouter builds the router for resources and adds the discovery
// resource listing them.
func NewRouter(audit Recorder, resources ...Resource) *Router {
	r := &Router{
		audit: audit,
		index: map[string]int{},
	}

	for _, res := range resources {
		r.add(res)
	}

	r.add(Resource{
		Path: wellKnownCore,
		Methods: map[codes.Code]HandlerFunc{
			codes.GET: r.discovery,
		},
	})

	return r
}

func (r *Router) add(res Resource) {
	if i, ok := r.index[res.Path]; ok {
		r.resources[i] = res
		return
	}

	r.index[res.Path] = len(r.resources)
	r.resources = append(r.resources, res)
}

// Lookup returns the resource registered for path.
func (r *Router) Lookup(path string) (Resource, bool) {
	i, ok := r.index[path]
	if !ok {
		return Resource{}, false
	}

	return r.resources[i], true
}

// Resources returns the table in registration order.
func (r *Router) Resources() []Resource {
	return append([]Resource{}, r.resources...)
}

// ServeCoAP records the request and dispatches it.
func (r *Router) ServeCoAP(ctx context.Context, req *Request) (resp *Response) {
	r.audit.Record(req.Peer(), req.Method.String(), req.Path, req.Payload, req.Metadata)

	label := "unknown"

	defer func() {
		if rec := recover(); rec != nil {
			trace := make([]byte, 1024)
			count := runtime.Stack(trace, false)
			log.Errorf("Panic handling %s %s: %v", req.Method, req.Path, rec)
			log.Errorf("Stack of %d bytes: %s", count, string(trace[:count]))

			resp = InternalError("Internal server error")
		} else if resp == nil {
			resp = InternalError("Internal server error")
		}

		requestsTotal.WithLabelValues(req.Method.String(), label, resp.Code.String()).Inc()
	}()

	res, ok := r.Lookup(req.Path)
	if !ok {
		return NotFound()
	}

	label = res.Path

	fn, ok := res.Methods[req.Method]
	if !ok {
		return MethodNotAllowed()
	}

	return fn(ctx, req)
}

// methods returns the supported method names of a resource, sorted. The
// resource table is logged with it at startup.
func (res Resource) methods() []string {
	names := make([]string, 0, len(res.Methods))
	for code := range res.Methods {
		names = append(names, code.String())
	}

	sort.Strings(names)
	return names
}
