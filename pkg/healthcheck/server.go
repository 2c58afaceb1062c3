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


package healthcheck

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/nuclio/searchnode/pkg/common/status"

	"github.com/heptiolabs/healthcheck"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

type Configuration struct {
	Enabled       bool
	ListenAddress string
}

// Server exposes /live and /ready. The node is ready when its status is Ready
type Server struct {
	logger         logger.Logger
	configuration  *Configuration
	statusProvider status.Provider
	handler        healthcheck.Handler
	listener       net.Listener
	httpServer     *http.Server
}

func NewServer(parentLogger logger.Logger,
	statusProvider status.Provider,
	configuration *Configuration) (*Server, error) {

	if statusProvider == nil {
		return nil, errors.New("Health check server requires a status provider")
	}

	newServer := &Server{
		logger:         parentLogger.GetChild("healthcheck.server"),
		configuration:  configuration,
		statusProvider: statusProvider,
		handler:        healthcheck.NewHandler(),
	}

	// register the node's status check as its readiness check
	newServer.handler.AddReadinessCheck("node_readiness", func() error {
		if currentStatus := newServer.statusProvider.GetStatus(); currentStatus != status.Ready {
			return errors.Errorf("Node is %s", currentStatus)
		}

		return nil
	})

	// alive for as long as the process serves
	newServer.handler.AddLivenessCheck("node_liveness", func() error {
		return nil
	})

	return newServer, nil
}

func (s *Server) Start() error {

	// if we're disabled, simply log and do nothing
	if !s.configuration.Enabled {
		s.logger.Debug("Disabled, not listening")
		return nil
	}

	listener, err := net.Listen("tcp", s.configuration.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "Failed to listen on %s", s.configuration.ListenAddress)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.WarnWith("Health check server stopped", "err", err.Error())
		}
	}()

	s.logger.InfoWith("Listening", "listenAddress", listener.Addr().String())

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownErr := s.httpServer.Shutdown(ctx)

	// Serve may not have picked up the listener yet
	s.listener.Close() // nolint: errcheck

	return shutdownErr
}

func (s *Server) GetHandler() http.Handler {
	return s.handler
}

// GetAddress returns the address the server listens on, once started
func (s *Server) GetAddress() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}
