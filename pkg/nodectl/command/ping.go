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
	"time"

	"github.com/nuclio/searchnode/pkg/searchprotocol/adapter"
	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type pingResult struct {
	Address          string `json:"address"`
	Online           bool   `json:"online"`
	ActiveDocs       int64  `json:"activeDocs"`
	DistributionKey  int32  `json:"distributionKey"`
	IsBlockingWrites bool   `json:"isBlockingWrites"`
	RoundTrip        string `json:"roundTrip"`
}

type pingCommandeer struct {
	cmd             *cobra.Command
	rootCommandeer  *RootCommandeer
	address         string
	timeout         time.Duration
	compressionType string
}

func newPingCommandeer(rootCommandeer *RootCommandeer) *pingCommandeer {
	commandeer := &pingCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Ask a node whether it is online",
		RunE: func(cmd *cobra.Command, args []string) error {
			if commandeer.address == "" {
				return errors.New("Ping requires an address")
			}

			compressionType, err := compression.ParseType(commandeer.compressionType)
			if err != nil {
				return errors.Wrap(err, "Failed to parse compression type")
			}

			// initialize root
			if err := rootCommandeer.initialize(); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			ctx, cancel := context.WithTimeout(context.Background(), commandeer.timeout)
			defer cancel()

			client, err := adapter.NewClient(ctx,
				rootCommandeer.loggerInstance,
				commandeer.address,
				compression.Config{Type: compressionType})
			if err != nil {
				return errors.Wrapf(err, "Failed to connect to %s", commandeer.address)
			}

			defer client.Close() // nolint: errcheck

			startedAt := time.Now()

			monitorReply, err := client.Ping(ctx)
			if err != nil {
				return errors.Wrap(err, "Failed to ping")
			}

			output, err := yaml.Marshal(&pingResult{
				Address:          commandeer.address,
				Online:           monitorReply.Online,
				ActiveDocs:       monitorReply.ActiveDocs,
				DistributionKey:  monitorReply.DistributionKey,
				IsBlockingWrites: monitorReply.IsBlockingWrites,
				RoundTrip:        time.Since(startedAt).String(),
			})
			if err != nil {
				return errors.Wrap(err, "Failed to render reply")
			}

			_, err = cmd.OutOrStdout().Write(output)
			return err
		},
	}

	cmd.Flags().StringVarP(&commandeer.address, "address", "a", "", "Node rpc address (host:port)")
	cmd.Flags().DurationVarP(&commandeer.timeout, "timeout", "t", 5*time.Second, "Time to wait for the reply")
	cmd.Flags().StringVarP(&commandeer.compressionType, "compression", "", "none", "Request compression - none / lz4 / zstd")

	commandeer.cmd = cmd

	return commandeer
}
