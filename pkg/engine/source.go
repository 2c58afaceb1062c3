/*
Copyright 2023 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import (
	"sync"
)

// RequestDecoder produces a native request on demand. Returning nil means the
// request could not be decoded
type RequestDecoder[T any] interface {
	Decode() *T
}

// RequestSource hands a backend its request, decoding it the first time it is asked for.
// Requests the backend never looks at are never decoded
type RequestSource[T any] struct {
	once    sync.Once
	decoder RequestDecoder[T]
	request *T
}

type SearchRequestSource = RequestSource[SearchRequest]
type DocsumRequestSource = RequestSource[DocsumRequest]

func NewRequestSource[T any](decoder RequestDecoder[T]) *RequestSource[T] {
	return &RequestSource[T]{
		decoder: decoder,
	}
}

// NewDecodedRequestSource wraps a request that is already in native form
func NewDecodedRequestSource[T any](request *T) *RequestSource[T] {
	requestSource := &RequestSource[T]{
		request: request,
	}

	// nothing left to decode
	requestSource.once.Do(func() {})

	return requestSource
}

// Get returns the decoded request, or nil if it could not be decoded. The result is memoized
func (rs *RequestSource[T]) Get() *T {
	rs.once.Do(func() {
		rs.request = rs.decoder.Decode()
		rs.decoder = nil
	})

	return rs.request
}
