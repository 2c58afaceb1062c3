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


package nodeconfig

import (
	"time"

	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"

	"github.com/nuclio/errors"
)

type Config struct {
	RPC         RPC         `json:"rpc,omitempty"`
	Compression Compression `json:"compression,omitempty"`
	Logger      Logger      `json:"logger,omitempty"`
	Metrics     Metrics     `json:"metrics,omitempty"`
	HealthCheck WebServer   `json:"healthCheck,omitempty"`
	Monitor     Monitor     `json:"monitor,omitempty"`
}

type RPC struct {
	ListenAddress     string `json:"listenAddress,omitempty"`
	NumWorkers        int    `json:"numWorkers,omitempty"`
	AllocationTimeout string `json:"allocationTimeout,omitempty"`
	WriteTimeout      string `json:"writeTimeout,omitempty"`
	DrainTimeout      string `json:"drainTimeout,omitempty"`
	MaxFrameSize      int    `json:"maxFrameSize,omitempty"`
}

// Compression configures how replies are compressed. Type is one of none, lz4 or zstd
type Compression struct {
	Type           string `json:"type,omitempty"`
	Level          int    `json:"level,omitempty"`
	Threshold      int    `json:"threshold,omitempty"`
	MinGainPercent int    `json:"minGainPercent,omitempty"`
}

// Logger configures the process logger. Level is one of debug, info, warn or error and
// Encoding is either json or console
type Logger struct {
	Level    string `json:"level,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

type WebServer struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	ListenAddress string `json:"listenAddress,omitempty"`
}

type Metrics struct {
	WebServer
	InstanceName string `json:"instanceName,omitempty"`
}

// Monitor configures what the built-in monitor backend reports to pings
type Monitor struct {
	DistributionKey  int32  `json:"distributionKey,omitempty"`
	ActiveDocs       uint64 `json:"activeDocs,omitempty"`
	IsBlockingWrites bool   `json:"isBlockingWrites,omitempty"`
	Async            bool   `json:"async,omitempty"`
}

// Validate checks that every value can be parsed
func (c *Config) Validate() error {
	if c.RPC.ListenAddress == "" {
		return errors.New("RPC listen address must be set")
	}

	if c.RPC.NumWorkers <= 0 {
		return errors.Errorf("Number of workers must be positive (got %d)", c.RPC.NumWorkers)
	}

	if c.RPC.MaxFrameSize < 0 {
		return errors.Errorf("Max frame size must not be negative (got %d)", c.RPC.MaxFrameSize)
	}

	for name, value := range map[string]string{
		"allocationTimeout": c.RPC.AllocationTimeout,
		"writeTimeout":      c.RPC.WriteTimeout,
		"drainTimeout":      c.RPC.DrainTimeout,
	} {
		if _, err := parseDuration(value); err != nil {
			return errors.Wrapf(err, "Invalid rpc.%s", name)
		}
	}

	if _, err := c.GetCompressionConfig(); err != nil {
		return errors.Wrap(err, "Invalid compression configuration")
	}

	return nil
}

func (c *Config) GetAllocationTimeout() time.Duration {
	duration, _ := parseDuration(c.RPC.AllocationTimeout)
	return duration
}

func (c *Config) GetWriteTimeout() time.Duration {
	duration, _ := parseDuration(c.RPC.WriteTimeout)
	return duration
}

func (c *Config) GetDrainTimeout() time.Duration {
	duration, _ := parseDuration(c.RPC.DrainTimeout)
	return duration
}

// GetCompressionConfig returns the reply compression settings
func (c *Config) GetCompressionConfig() (compression.Config, error) {
	compressionType, err := compression.ParseType(c.Compression.Type)
	if err != nil {
		return compression.Config{}, errors.Wrap(err, "Failed to parse compression type")
	}

	compressionConfig := compression.Config{
		Type:           compressionType,
		Level:          c.Compression.Level,
		Threshold:      c.Compression.Threshold,
		MinGainPercent: c.Compression.MinGainPercent,
	}

	// let the policy reject out of range values
	if _, err := compression.NewPolicy(compressionConfig); err != nil {
		return compression.Config{}, err
	}

	return compressionConfig, nil
}

// IsEnabled returns false only when the server was explicitly disabled
func (ws *WebServer) IsEnabled() bool {
	return ws.Enabled == nil || *ws.Enabled
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	return time.ParseDuration(value)
}
