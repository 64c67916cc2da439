// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command osmstore loads a plain-text stand-in for an OSM extract into
// the arena-backed entity store, prints store statistics, and answers
// node queries against a freshly opened store interactively or over a
// minimal HTTP interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tilemaker-go/osmstore/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "osmstore",
		Short: "Inspect and query an arena-backed OSM entity store",
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")

	if err := config.BindFlags(root, v); err != nil {
		panic(err)
	}

	root.AddCommand(newIngestCommand(v))
	root.AddCommand(newStatsCommand(v))
	root.AddCommand(newReplCommand(v))
	root.AddCommand(newServeCommand(v))
	return root
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	return config.Load(v)
}
