// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tilemaker-go/osmstore/osm"
	"github.com/tilemaker-go/osmstore/store"
)

func newReplCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively query a freshly opened store",
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

			return runRepl(s)
		},
	}
}

func runRepl(s *store.Store) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("osmstore repl. Commands: insert-node <id> <latp> <lon>, node <id>, quit")

	for {
		input, err := line.Prompt("osmstore> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "quit" || input == "exit" {
			return nil
		}

		if err := runReplCommand(s, input); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func runReplCommand(s *store.Store, input string) error {
	fields := strings.Fields(input)
	switch fields[0] {
	case "insert-node":
		if len(fields) != 4 {
			return fmt.Errorf("usage: insert-node <id> <latp> <lon>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		latp, err := strconv.ParseInt(fields[2], 10, 32)
		if err != nil {
			return err
		}
		lon, err := strconv.ParseInt(fields[3], 10, 32)
		if err != nil {
			return err
		}
		if err := s.InsertNode(osm.NodeID(id), osm.LatpLon{Latp: int32(latp), Lon: int32(lon)}); err != nil {
			return err
		}
		fmt.Println("ok")

	case "node":
		if len(fields) != 2 {
			return fmt.Errorf("usage: node <id>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return err
		}
		coord, err := s.LookupNode(osm.NodeID(id))
		if err != nil {
			return err
		}
		x, y := coord.Float64s()
		fmt.Printf("lon=%f latp=%f\n", x, y)

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}
