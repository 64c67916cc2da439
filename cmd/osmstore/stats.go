// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatsCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print entity and arena counts for a freshly opened store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			s, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			stats := s.Stats()

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("metric", "value")
			rows := [][]string{
				{"nodes", strconv.Itoa(stats.Nodes)},
				{"ways", strconv.Itoa(stats.Ways)},
				{"relations", strconv.Itoa(stats.Relations)},
				{"arena_bytes", strconv.FormatInt(stats.ArenaBytes, 10)},
				{"arena_growths", strconv.FormatInt(stats.ArenaGrowths, 10)},
			}
			for _, row := range rows {
				if err := table.Append(row[0], row[1]); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}
}
