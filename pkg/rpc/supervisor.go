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
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nuclio/searchnode/pkg/rpc/worker"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/samber/lo"
)

const validValueTypes = "bhilsx"

// Handler serves a single method. A handler that does not detach the request
// has it completed for it as soon as it returns
type Handler func(request *Request)

// ValueDescription documents one parameter or return value
type ValueDescription struct {
	Name        string
	Description string
}

// Method binds a name and its type specs to a handler
type Method struct {
	Name        string
	ParamSpec   string
	ReturnSpec  string
	Description string
	Params      []ValueDescription
	Returns     []ValueDescription
	Handler     Handler
}

// SupervisorStatistics holds dispatch counters. Fields are updated atomically
type SupervisorStatistics struct {
	RequestsReceived uint64
	RequestsRejected uint64
	RequestsHandled  uint64
}

// DiffFrom returns the counters accumulated since prev
func (s *SupervisorStatistics) DiffFrom(prev *SupervisorStatistics) SupervisorStatistics {
	return SupervisorStatistics{
		RequestsReceived: s.RequestsReceived - prev.RequestsReceived,
		RequestsRejected: s.RequestsRejected - prev.RequestsRejected,
		RequestsHandled:  s.RequestsHandled - prev.RequestsHandled,
	}
}

// Supervisor dispatches requests to registered methods on a pool of workers
type Supervisor struct {

	// accessed atomically, keep as first field for alignment
	statistics SupervisorStatistics

	logger            logger.Logger
	methodsLock       sync.RWMutex
	methods           map[string]*Method
	allocator         worker.Allocator
	allocationTimeout time.Duration
}

func NewSupervisor(parentLogger logger.Logger,
	allocator worker.Allocator,
	allocationTimeout time.Duration) (*Supervisor, error) {

	if allocator == nil {
		return nil, errors.New("Supervisor requires a worker allocator")
	}

	return &Supervisor{
		logger:            parentLogger.GetChild("supervisor"),
		methods:           map[string]*Method{},
		allocator:         allocator,
		allocationTimeout: allocationTimeout,
	}, nil
}

// AddMethod registers a method. Names must be unique
func (s *Supervisor) AddMethod(method *Method) error {
	if method.Name == "" {
		return errors.New("Method name must not be empty")
	}

	if method.Handler == nil {
		return errors.Errorf("Method %s has no handler", method.Name)
	}

	for _, spec := range []string{method.ParamSpec, method.ReturnSpec} {
		if invalidIndex := strings.IndexFunc(spec, func(r rune) bool {
			return !strings.ContainsRune(validValueTypes, r)
		}); invalidIndex != -1 {
			return errors.Errorf("Method %s has an invalid type spec: %s", method.Name, spec)
		}
	}

	s.methodsLock.Lock()
	defer s.methodsLock.Unlock()

	if _, found := s.methods[method.Name]; found {
		return errors.Wrapf(ErrMethodExists, "Method %s", method.Name)
	}

	s.methods[method.Name] = method

	s.logger.DebugWith("Method added",
		"name", method.Name,
		"paramSpec", method.ParamSpec,
		"returnSpec", method.ReturnSpec)

	return nil
}

// GetMethods returns all registered methods, ordered by name
func (s *Supervisor) GetMethods() []*Method {
	s.methodsLock.RLock()
	defer s.methodsLock.RUnlock()

	methods := lo.Values(s.methods)

	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})

	return methods
}

// Invoke dispatches the request. completionHandler is called exactly once, possibly
// before Invoke returns
func (s *Supervisor) Invoke(request *Request, completionHandler CompletionHandler) {
	atomic.AddUint64(&s.statistics.RequestsReceived, 1)

	request.SetCompletionHandler(completionHandler)

	method := s.getMethod(request.GetMethodName())
	if method == nil {
		s.reject(request, ErrorCodeNoSuchMethod, "no such method: "+request.GetMethodName())
		return
	}

	if typeString := request.GetParams().TypeString(); typeString != method.ParamSpec {
		s.reject(request, ErrorCodeWrongParams, "wrong parameters: "+typeString)
		return
	}

	workerInstance, err := s.allocator.Allocate(s.allocationTimeout)
	if err != nil {
		s.reject(request, ErrorCodeOverload, "no available workers")
		return
	}

	go func() {
		defer s.allocator.Release(workerInstance)

		workerInstance.Run(func() {
			method.Handler(request)

			if !request.IsDetached() {
				request.Complete()
			}
		})

		atomic.AddUint64(&s.statistics.RequestsHandled, 1)
	}()
}

// Drain blocks until no handler is running
func (s *Supervisor) Drain(ctx context.Context) error {
	return s.allocator.Drain(ctx)
}

// GetStatistics returns dispatch counters
func (s *Supervisor) GetStatistics() *SupervisorStatistics {
	return &s.statistics
}

// GetAllocator returns the allocator handlers run on
func (s *Supervisor) GetAllocator() worker.Allocator {
	return s.allocator
}

func (s *Supervisor) getMethod(name string) *Method {
	s.methodsLock.RLock()
	defer s.methodsLock.RUnlock()

	return s.methods[name]
}

func (s *Supervisor) reject(request *Request, errorCode ErrorCode, errorMessage string) {
	atomic.AddUint64(&s.statistics.RequestsRejected, 1)

	s.logger.DebugWith("Rejecting request",
		"method", request.GetMethodName(),
		"errorCode", errorCode,
		"errorMessage", errorMessage)

	request.SetError(errorCode, errorMessage)
	request.Complete()
}
