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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"

	"github.com/stretchr/testify/suite"
)

type ReaderTestSuite struct {
	suite.Suite
	reader *Reader
}

func (suite *ReaderTestSuite) SetupTest() {
	suite.reader, _ = NewReader()
}

func (suite *ReaderTestSuite) TestMissingFileReturnsDefaults() {
	config, err := suite.reader.ReadFileOrDefault(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Require().NoError(err)
	suite.Require().Equal(suite.reader.GetDefaultConfiguration(), config)
	suite.Require().NoError(config.Validate())

	config, err = suite.reader.ReadFileOrDefault("")
	suite.Require().NoError(err)
	suite.Require().Equal(64, config.RPC.NumWorkers)
}

func (suite *ReaderTestSuite) TestFileOverridesDefaults() {
	configurationPath := filepath.Join(suite.T().TempDir(), "node.yaml")

	suite.Require().NoError(os.WriteFile(configurationPath, []byte(`
rpc:
  listenAddress: 127.0.0.1:20000
  allocationTimeout: 250ms
compression:
  type: zstd
  level: 3
  threshold: 512
metrics:
  enabled: false
monitor:
  distributionKey: 7
  async: true
`), 0600))

	config, err := suite.reader.ReadFileOrDefault(configurationPath)
	suite.Require().NoError(err)

	suite.Require().Equal("127.0.0.1:20000", config.RPC.ListenAddress)
	suite.Require().Equal(250*time.Millisecond, config.GetAllocationTimeout())
	suite.Require().Equal(30*time.Second, config.GetDrainTimeout())

	// untouched values come from the defaults
	suite.Require().Equal(64, config.RPC.NumWorkers)
	suite.Require().Equal("info", config.Logger.Level)

	// an explicit false survives the merge
	suite.Require().False(config.Metrics.IsEnabled())
	suite.Require().Equal(":8090", config.Metrics.ListenAddress)
	suite.Require().True(config.HealthCheck.IsEnabled())

	suite.Require().Equal(int32(7), config.Monitor.DistributionKey)
	suite.Require().True(config.Monitor.Async)

	compressionConfig, err := config.GetCompressionConfig()
	suite.Require().NoError(err)
	suite.Require().Equal(compression.Config{Type: compression.TypeZSTD, Level: 3, Threshold: 512}, compressionConfig)
}

func (suite *ReaderTestSuite) TestInvalidConfiguration() {
	for _, testCase := range []struct {
		name          string
		configuration string
	}{
		{name: "unknownCodec", configuration: "compression: {type: brotli}"},
		{name: "badMinGain", configuration: "compression: {minGainPercent: 150}"},
		{name: "badDuration", configuration: "rpc: {allocationTimeout: soon}"},
		{name: "unknownField", configuration: "rpc: {listenPort: 80}"},
		{name: "notYaml", configuration: "rpc: ["},
	} {
		var config Config

		err := suite.reader.Read(strings.NewReader(testCase.configuration), &config)
		suite.Require().Error(err, testCase.name)
	}
}

func TestReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ReaderTestSuite))
}
