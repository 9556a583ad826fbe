// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ethersphere/lottery/pkg/keeper"
	"github.com/ethersphere/lottery/pkg/node"
	"github.com/spf13/cobra"
)

func (c *command) initStartCmd() {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Deploy the contracts and keep the lottery running",
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

			n, err := node.NewNode(cmd.Context(), logger, o)
			if err != nil {
				return err
			}

			// Wait for termination or interrupt signals.
			// We want to clean up things at the end.
			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, syscall.SIGINT, syscall.SIGTERM)

			// Block main goroutine until it is interrupted
			sig := <-interruptChannel

			logger.Debug("signal received", "signal", sig)
			logger.Info("shutting down")

			// Shutdown
			done := make(chan struct{})
			go func() {
				defer close(done)

				if err := n.Shutdown(); err != nil {
					logger.Error(err, "shutdown failed")
				}
			}()

			// allow process termination by receiving another signal.
			select {
			case sig := <-interruptChannel:
				logger.Debug("signal received", "signal", sig)
			case <-done:
			}

			return nil
		},
	}

	c.setChainFlags(cmd)
	cmd.Flags().String(optionNameAPIAddr, ":8080", "HTTP API listen address")
	cmd.Flags().String(optionNameRPCAddr, "", "json-rpc listen address of the in-process chain")
	cmd.Flags().StringSlice(optionCORSAllowedOrigins, []string{}, "origins with CORS headers enabled")
	cmd.Flags().Duration(optionNameKeeperInterval, keeper.DefaultInterval, "interval between upkeep checks")
	cmd.Flags().Bool(optionNameDisableKeeper, false, "do not perform upkeep")

	c.root.AddCommand(cmd)
}
