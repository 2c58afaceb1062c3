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


package loggersink

import (
	"io"
	"strings"

	"github.com/nuclio/searchnode/pkg/nodeconfig"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
)

// CreateLogger returns the process logger, writing to writer at the configured level
func CreateLogger(name string, configuration *nodeconfig.Logger, writer io.Writer) (logger.Logger, error) {
	level, err := parseLevel(configuration.Level)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse logger level")
	}

	encoding := configuration.Encoding
	if encoding == "" {
		encoding = "json"
	}

	// get the default encoding and override line ending to newline
	encoderConfig := nucliozap.NewEncoderConfig()
	encoderConfig.JSON.LineEnding = "\n"

	return nucliozap.NewNuclioZap(name,
		encoding,
		encoderConfig,
		writer,
		writer,
		level)
}

func parseLevel(levelName string) (nucliozap.Level, error) {
	switch strings.ToLower(levelName) {
	case "", "info":
		return nucliozap.InfoLevel, nil
	case "debug":
		return nucliozap.DebugLevel, nil
	case "warn", "warning":
		return nucliozap.WarnLevel, nil
	case "error":
		return nucliozap.ErrorLevel, nil
	default:
		return nucliozap.InfoLevel, errors.Errorf("Unknown logger level: %s", levelName)
	}
}
