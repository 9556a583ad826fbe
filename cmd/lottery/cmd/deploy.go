// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/ethersphere/lottery/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initDeployCmd() {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the lottery contracts to a network",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			logger, err := c.newLogger(cmd)
			if err != nil {
				return err
			}

			o, err := c.nodeOptions(cmd)
			if err != nil {
				return err
			}

			deployments, err := node.Deploy(cmd.Context(), logger, o)
			if err != nil {
				return err
			}

			for _, d := range deployments {
				cmd.Printf("%s %s %s\n", d.Name, d.Address.Hex(), d.TransactionHash.Hex())
			}
			return nil
		},
	}

	c.setChainFlags(cmd)

	c.root.AddCommand(cmd)
}
