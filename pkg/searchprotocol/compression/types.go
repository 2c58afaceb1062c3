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

package compression

import (
	"strings"

	"github.com/nuclio/errors"
)

var (
	ErrUnsupportedCodec = errors.New("Unsupported compression type")
	ErrSizeMismatch     = errors.New("Uncompressed size mismatch")
	ErrCorruptPayload   = errors.New("Corrupt compressed payload")
)

// Type is the one byte codec tag carried on the wire. The numeric values are
// shared with remote peers and must never change
type Type uint8

const (
	TypeNone Type = 0
	TypeLZ4  Type = 6
	TypeZSTD Type = 7
)

const (
	DefaultMinGainPercent = 80

	// upper bound on the uncompressed size a peer may announce
	MaxUncompressedSize = 256 * 1024 * 1024
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeLZ4:
		return "lz4"
	case TypeZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// IsKnown returns true if the tag names a codec this package can decode
func (t Type) IsKnown() bool {
	switch t {
	case TypeNone, TypeLZ4, TypeZSTD:
		return true
	default:
		return false
	}
}

// ParseType resolves a configured codec name
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "", "none", "raw":
		return TypeNone, nil
	case "lz4":
		return TypeLZ4, nil
	case "zstd":
		return TypeZSTD, nil
	default:
		return TypeNone, errors.Wrapf(ErrUnsupportedCodec, "Unknown compression type: %s", name)
	}
}

// Config describes how outgoing payloads are compressed
type Config struct {
	Type           Type
	Level          int
	Threshold      int
	MinGainPercent int
}

// UseCompression returns true if the configuration may produce a compressed payload at all
func (c *Config) UseCompression() bool {
	return c.Type != TypeNone
}

// ShouldCompress returns true if a payload of the given size is large enough to be compressed
func (c *Config) ShouldCompress(size int) bool {
	return c.UseCompression() && size > c.Threshold
}

func (c *Config) minGainPercent() int {
	if c.MinGainPercent <= 0 || c.MinGainPercent > 100 {
		return DefaultMinGainPercent
	}

	return c.MinGainPercent
}

// Policy holds the process wide encode configuration. It is immutable once created
type Policy struct {
	config Config
}

func NewPolicy(config Config) (*Policy, error) {
	if !config.Type.IsKnown() {
		return nil, errors.Wrapf(ErrUnsupportedCodec, "Compression type %d", config.Type)
	}

	if config.Threshold < 0 {
		return nil, errors.Errorf("Compression threshold must not be negative, got %d", config.Threshold)
	}

	if config.Level < 0 {
		return nil, errors.Errorf("Compression level must not be negative, got %d", config.Level)
	}

	if config.MinGainPercent == 0 {
		config.MinGainPercent = DefaultMinGainPercent
	}

	if config.MinGainPercent < 0 || config.MinGainPercent > 100 {
		return nil, errors.Errorf("Minimum gain must be a percentage, got %d", config.MinGainPercent)
	}

	return &Policy{
		config: config,
	}, nil
}

// EncodeConfig returns a copy of the configuration used to encode outgoing payloads
func (p *Policy) EncodeConfig() Config {
	return p.config
}
