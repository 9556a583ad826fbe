// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/ethersphere/lottery/pkg/config"
	"github.com/spf13/cobra"
)

func (c *command) initNetworksCmd() {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List the configured networks",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

			table := config.NewTable()
			if f := c.config.GetString(optionNameNetworksFile); f != "" {
				if table, err = config.LoadNetworks(f); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHAIN ID\tURL\tDEVELOPMENT")
			for _, name := range table.Names() {
				n, _ := table.Get(name)
				url := n.URL
				if url == "" {
					url = "-"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%t\n", n.Name, n.ChainID, url, n.Development)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String(optionNameNetworksFile, "", "yaml file overriding the built-in networks")

	c.root.AddCommand(cmd)
}
