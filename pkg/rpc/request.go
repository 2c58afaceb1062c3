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

package rpc

import (
	"sync/atomic"
	"time"

	"github.com/nuclio/errors"
)

// CompletionHandler is called exactly once, when the request is completed
type CompletionHandler func(request *Request)

// Request is a single call, either received by a server or issued through a target.
// A request is owned by whoever handles it until Complete is called, after which
// it must not be touched
type Request struct {
	methodName        string
	params            Values
	returnValues      Values
	errorCode         ErrorCode
	errorMessage      string
	arrivedAt         time.Time
	detached          atomic.Bool
	completed         atomic.Bool
	completionHandler CompletionHandler
}

// NewRequest creates an outgoing request for the given method
func NewRequest(methodName string) *Request {
	return &Request{
		methodName: methodName,
		arrivedAt:  time.Now(),
	}
}

// NewInboundRequest creates a request as received from a peer
func NewInboundRequest(methodName string, params Values, arrivedAt time.Time) *Request {
	return &Request{
		methodName: methodName,
		params:     params,
		arrivedAt:  arrivedAt,
	}
}

func (r *Request) GetMethodName() string {
	return r.methodName
}

func (r *Request) GetParams() *Values {
	return &r.params
}

func (r *Request) GetReturn() *Values {
	return &r.returnValues
}

// GetArrivalTime returns when the request was read off the connection
func (r *Request) GetArrivalTime() time.Time {
	return r.arrivedAt
}

// Detach tells the supervisor that the handler will complete the request itself,
// possibly after the handler has returned
func (r *Request) Detach() {
	r.detached.Store(true)
}

func (r *Request) IsDetached() bool {
	return r.detached.Load()
}

// SetError marks the request as failed. Any return values are dropped
func (r *Request) SetError(errorCode ErrorCode, errorMessage string) {
	r.errorCode = errorCode
	r.errorMessage = errorMessage
	r.returnValues = nil
}

func (r *Request) IsError() bool {
	return r.errorCode != ErrorCodeNone
}

func (r *Request) GetErrorCode() ErrorCode {
	return r.errorCode
}

func (r *Request) GetErrorMessage() string {
	return r.errorMessage
}

// CheckReturnTypes verifies the return values match spec, and fails the request if not
func (r *Request) CheckReturnTypes(spec string) bool {
	if r.IsError() {
		return false
	}

	if typeString := r.returnValues.TypeString(); typeString != spec {
		r.SetError(ErrorCodeWrongReturn, "unexpected return types: "+typeString)
		return false
	}

	return true
}

// Complete hands the request back to the transport. Completing a request twice
// is a programming error and panics
func (r *Request) Complete() {
	if !r.completed.CompareAndSwap(false, true) {
		panic(errors.Wrapf(ErrAlreadyCompleted, "Method %s", r.methodName))
	}

	if r.completionHandler != nil {
		r.completionHandler(r)
	}
}

func (r *Request) IsCompleted() bool {
	return r.completed.Load()
}

// SetCompletionHandler registers the function Complete hands the request to
func (r *Request) SetCompletionHandler(completionHandler CompletionHandler) {
	r.completionHandler = completionHandler
}
