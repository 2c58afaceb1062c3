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
	"io"
	"os"

	"github.com/nuclio/searchnode/pkg/common"

	"github.com/imdario/mergo"
	"github.com/nuclio/errors"
	"sigs.k8s.io/yaml"
)

type Reader struct{}

func NewReader() (*Reader, error) {
	return &Reader{}, nil
}

// Read parses a yaml configuration and fills whatever it leaves out with defaults
func (r *Reader) Read(reader io.Reader, config *Config) error {
	configBytes, err := io.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "Failed to read node configuration")
	}

	if err := yaml.UnmarshalStrict(configBytes, config); err != nil {
		return errors.Wrap(err, "Failed to parse node configuration")
	}

	if err := mergo.Merge(config, r.GetDefaultConfiguration()); err != nil {
		return errors.Wrap(err, "Failed to merge default configuration")
	}

	return config.Validate()
}

// ReadFileOrDefault returns the default configuration when there's no file at configurationPath
func (r *Reader) ReadFileOrDefault(configurationPath string) (*Config, error) {
	if configurationPath == "" || !common.FileExists(configurationPath) {
		return r.GetDefaultConfiguration(), nil
	}

	configurationFile, err := os.Open(configurationPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open configuration file %s", configurationPath)
	}

	// close after
	defer configurationFile.Close() // nolint: errcheck

	var config Config
	if err := r.Read(configurationFile, &config); err != nil {
		return nil, errors.Wrapf(err, "Failed to read configuration file %s", configurationPath)
	}

	return &config, nil
}

func (r *Reader) GetDefaultConfiguration() *Config {
	trueValue := true

	return &Config{
		RPC: RPC{
			ListenAddress:     ":19110",
			NumWorkers:        64,
			AllocationTimeout: "10s",
			WriteTimeout:      "30s",
			DrainTimeout:      "30s",
		},
		Compression: Compression{
			Type:      "lz4",
			Level:     6,
			Threshold: 1000,
		},
		Logger: Logger{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: Metrics{
			WebServer: WebServer{
				Enabled:       &trueValue,
				ListenAddress: ":8090",
			},
			InstanceName: "searchnode",
		},
		HealthCheck: WebServer{
			Enabled:       &trueValue,
			ListenAddress: ":8082",
		},
	}
}
