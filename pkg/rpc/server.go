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
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/rs/xid"
)

// ServerConfiguration tunes the listening side of the transport
type ServerConfiguration struct {
	MaxFrameSize int
	WriteTimeout time.Duration
}

// Server accepts connections and feeds their requests to a supervisor
type Server struct {
	logger               logger.Logger
	supervisor           *Supervisor
	configuration        ServerConfiguration
	listener             net.Listener
	closing              atomic.Bool
	connectionsLock      sync.Mutex
	connections          map[string]*serverConnection
	connectionsWaitGroup sync.WaitGroup
}

type serverConnection struct {
	id     string
	logger logger.Logger
	framer *framer
	server *Server
}

func NewServer(parentLogger logger.Logger,
	supervisor *Supervisor,
	configuration ServerConfiguration) (*Server, error) {

	if supervisor == nil {
		return nil, errors.New("Server requires a supervisor")
	}

	return &Server{
		logger:        parentLogger.GetChild("server"),
		supervisor:    supervisor,
		configuration: configuration,
		connections:   map[string]*serverConnection{},
	}, nil
}

// Listen binds the server to address. Port 0 picks a free port
func (s *Server) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "Failed to listen on %s", address)
	}

	s.listener = listener

	s.logger.InfoWith("Listening", "address", listener.Addr().String())

	return nil
}

// GetAddress returns the bound address, e.g. 127.0.0.1:41503
func (s *Server) GetAddress() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Serve accepts connections until the server is closed
func (s *Server) Serve() error {
	if s.listener == nil {
		return ErrServerNotListened
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}

			return errors.Wrap(err, "Failed to accept connection")
		}

		s.startConnection(conn)
	}
}

// Close stops accepting, closes open connections and waits for their readers to exit.
// Requests still being handled complete into closed connections
func (s *Server) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	var listenerErr error
	if s.listener != nil {
		listenerErr = s.listener.Close()
	}

	s.connectionsLock.Lock()
	for _, connection := range s.connections {
		connection.framer.close() // nolint: errcheck
	}
	s.connectionsLock.Unlock()

	s.connectionsWaitGroup.Wait()

	return listenerErr
}

// GetNumConnections returns the number of open connections
func (s *Server) GetNumConnections() int {
	s.connectionsLock.Lock()
	defer s.connectionsLock.Unlock()

	return len(s.connections)
}

func (s *Server) startConnection(conn net.Conn) {
	connection := &serverConnection{
		id:     xid.New().String(),
		framer: newFramer(conn, s.configuration.MaxFrameSize, s.configuration.WriteTimeout),
		server: s,
	}
	connection.logger = s.logger.GetChild(connection.id)

	s.connectionsLock.Lock()

	// a close that raced the accept must not leak the connection
	if s.closing.Load() {
		s.connectionsLock.Unlock()
		connection.framer.close() // nolint: errcheck
		return
	}

	s.connections[connection.id] = connection
	s.connectionsWaitGroup.Add(1)
	s.connectionsLock.Unlock()

	connection.logger.DebugWith("Connection accepted", "remoteAddress", conn.RemoteAddr().String())

	go func() {
		defer s.connectionsWaitGroup.Done()
		defer s.removeConnection(connection)

		connection.readLoop()
	}()
}

func (s *Server) removeConnection(connection *serverConnection) {
	connection.framer.close() // nolint: errcheck

	s.connectionsLock.Lock()
	delete(s.connections, connection.id)
	s.connectionsLock.Unlock()
}

func (sc *serverConnection) readLoop() {
	for {
		incomingPacket, err := sc.framer.readPacket()
		if err != nil {
			if errors.RootCause(err) != io.EOF && !sc.server.closing.Load() {
				sc.logger.DebugWith("Connection read failed", "err", err.Error())
			}

			return
		}

		if incomingPacket.Type != packetTypeRequest {
			sc.logger.WarnWith("Ignoring unexpected packet", "type", incomingPacket.Type)
			continue
		}

		requestID := incomingPacket.ID
		request := NewInboundRequest(incomingPacket.Method, incomingPacket.Values, time.Now())

		sc.server.supervisor.Invoke(request, func(completedRequest *Request) {
			sc.writeReply(requestID, completedRequest)
		})
	}
}

func (sc *serverConnection) writeReply(requestID uint32, request *Request) {
	reply := &packet{
		Type: packetTypeReply,
		ID:   requestID,
	}

	if request.IsError() {
		reply.ErrorCode = request.GetErrorCode()
		reply.ErrorMessage = request.GetErrorMessage()
	} else {
		reply.Values = *request.GetReturn()
	}

	err := sc.framer.writePacket(reply)
	if err == nil {
		return
	}

	sc.logger.DebugWith("Failed to write reply",
		"requestID", requestID,
		"method", request.GetMethodName(),
		"err", err.Error())

	// nothing reached the wire, answer with an error so the caller does not wait out its deadline
	if errors.RootCause(err) == ErrFrameTooLarge {
		err = sc.framer.writePacket(&packet{
			Type:         packetTypeReply,
			ID:           requestID,
			ErrorCode:    ErrorCodeBadReply,
			ErrorMessage: "reply exceeds maximum frame size",
		})
		if err == nil {
			return
		}
	}

	// the stream may hold a partial frame, drop the connection so pending calls fail now
	sc.logger.WarnWith("Closing connection after failed reply write",
		"requestID", requestID,
		"err", err.Error())

	sc.framer.close() // nolint: errcheck
}
