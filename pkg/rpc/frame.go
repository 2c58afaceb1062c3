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
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nuclio/errors"
	"github.com/vmihailenco/msgpack/v4"
)

const (
	frameHeaderSize = 4

	DefaultMaxFrameSize = 512 * 1024 * 1024
)

type packetType uint8

const (
	packetTypeRequest packetType = 1
	packetTypeReply   packetType = 2
)

// packet is what travels inside a frame, msgpack encoded
type packet struct {
	Type         packetType `msgpack:"p"`
	ID           uint32     `msgpack:"id"`
	Method       string     `msgpack:"m,omitempty"`
	Values       Values     `msgpack:"v,omitempty"`
	ErrorCode    ErrorCode  `msgpack:"ec,omitempty"`
	ErrorMessage string     `msgpack:"em,omitempty"`
}

// framer reads and writes length prefixed packets: [4 bytes big endian length][packet]
type framer struct {
	conn         net.Conn
	reader       *bufio.Reader
	writeLock    sync.Mutex
	writer       *bufio.Writer
	maxFrameSize int
	writeTimeout time.Duration
}

func newFramer(conn net.Conn, maxFrameSize int, writeTimeout time.Duration) *framer {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	return &framer{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		writer:       bufio.NewWriter(conn),
		maxFrameSize: maxFrameSize,
		writeTimeout: writeTimeout,
	}
}

// readPacket blocks until a full packet is read. Only one goroutine may read
func (f *framer) readPacket() (*packet, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(f.reader, header); err != nil {
		return nil, err
	}

	frameSize := binary.BigEndian.Uint32(header)
	if int64(frameSize) > int64(f.maxFrameSize) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "Frame of %d bytes", frameSize)
	}

	body := make([]byte, frameSize)
	if _, err := io.ReadFull(f.reader, body); err != nil {
		return nil, errors.Wrap(err, "Failed to read frame body")
	}

	decodedPacket := packet{}
	if err := msgpack.Unmarshal(body, &decodedPacket); err != nil {
		return nil, errors.Wrap(err, "Failed to decode packet")
	}

	return &decodedPacket, nil
}

// writePacket encodes and flushes a packet. Safe for concurrent use
func (f *framer) writePacket(outgoingPacket *packet) error {
	body, err := msgpack.Marshal(outgoingPacket)
	if err != nil {
		return errors.Wrap(err, "Failed to encode packet")
	}

	if len(body) > f.maxFrameSize {
		return errors.Wrapf(ErrFrameTooLarge, "Frame of %d bytes", len(body))
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(body)))

	f.writeLock.Lock()
	defer f.writeLock.Unlock()

	if f.writeTimeout > 0 {
		if err := f.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout)); err != nil {
			return errors.Wrap(err, "Failed to set write deadline")
		}
	}

	if _, err := f.writer.Write(header); err != nil {
		return errors.Wrap(err, "Failed to write frame header")
	}

	if _, err := f.writer.Write(body); err != nil {
		return errors.Wrap(err, "Failed to write frame body")
	}

	return f.writer.Flush()
}

func (f *framer) close() error {
	return f.conn.Close()
}
