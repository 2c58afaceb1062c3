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


package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nuclio/searchnode/pkg/loggersink"
	"github.com/nuclio/searchnode/pkg/node"
	"github.com/nuclio/searchnode/pkg/nodeconfig"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
)

type serveCommandeer struct {
	cmd               *cobra.Command
	rootCommandeer    *RootCommandeer
	configurationPath string
	listenAddress     string
}

func newServeCommandeer(rootCommandeer *RootCommandeer) *serveCommandeer {
	commandeer := &serveCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search protocol until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			configuration, err := commandeer.readConfiguration()
			if err != nil {
				return errors.Wrap(err, "Failed to read configuration")
			}

			loggerInstance, err := loggersink.CreateLogger("searchnode", &configuration.Logger, cmd.OutOrStdout())
			if err != nil {
				return errors.Wrap(err, "Failed to create logger")
			}

			nodeInstance, err := node.NewNode(loggerInstance, configuration)
			if err != nil {
				return errors.Wrap(err, "Failed to create node")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return nodeInstance.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&commandeer.configurationPath, "config", "c", "", "Path of configuration file")
	cmd.Flags().StringVarP(&commandeer.listenAddress, "listen", "l", "", "RPC listen address, overrides the configuration")

	commandeer.cmd = cmd

	return commandeer
}

func (s *serveCommandeer) readConfiguration() (*nodeconfig.Config, error) {
	reader, err := nodeconfig.NewReader()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create configuration reader")
	}

	configuration, err := reader.ReadFileOrDefault(s.configurationPath)
	if err != nil {
		return nil, err
	}

	if s.listenAddress != "" {
		configuration.RPC.ListenAddress = s.listenAddress
	}

	if s.rootCommandeer.verbose {
		configuration.Logger.Level = "debug"
	}

	return configuration, nil
}
