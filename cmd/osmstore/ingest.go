// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tilemaker-go/osmstore/osm"
	"github.com/tilemaker-go/osmstore/store"
)

// newIngestCommand loads entities from a plain-text stand-in format
// (one entity per line) into a fresh store and reports the resulting
// Stats. The real PBF parser is an external collaborator; this command
// exists to exercise and smoke-test the store without one.
//
// Line formats:
//
//	N <id> <latp> <lon>
//	W <id> <node-id>...
//	R <id> O <way-id>... I <way-id>...
func newIngestCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Load nodes, ways, and relations from a plain-text entity file",
		Args:  cobra.ExactArgs(1),
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

			if err := ingestFile(s, args[0]); err != nil {
				return err
			}

			stats := s.Stats()
			fmt.Printf("ingested: nodes=%d ways=%d relations=%d arena_bytes=%d arena_growths=%d\n",
				stats.Nodes, stats.Ways, stats.Relations, stats.ArenaBytes, stats.ArenaGrowths)
			return nil
		},
	}
	return cmd
}

func ingestFile(s *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ingestLine(s, line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func ingestLine(s *store.Store, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "N":
		if len(fields) != 4 {
			return fmt.Errorf("node record wants 3 fields, got %d", len(fields)-1)
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
		return s.InsertNode(osm.NodeID(id), osm.LatpLon{Latp: int32(latp), Lon: int32(lon)})

	case "W":
		if len(fields) < 2 {
			return fmt.Errorf("way record needs an id")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		nodes, err := parseNodeIDs(fields[2:])
		if err != nil {
			return err
		}
		_, err = s.InsertWay(osm.WayID(id), nodes)
		return err

	case "R":
		if len(fields) < 2 {
			return fmt.Errorf("relation record needs an id")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return err
		}
		outer, inner, err := parseRelationWays(fields[2:])
		if err != nil {
			return err
		}
		_, err = s.InsertRelation(osm.RelationID(id), outer, inner)
		return err

	default:
		return fmt.Errorf("unknown record kind %q", fields[0])
	}
}

func parseNodeIDs(fields []string) ([]osm.NodeID, error) {
	ids := make([]osm.NodeID, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = osm.NodeID(n)
	}
	return ids, nil
}

func parseRelationWays(fields []string) (outer, inner []osm.WayID, err error) {
	var target *[]osm.WayID
	for _, f := range fields {
		switch f {
		case "O":
			target = &outer
			continue
		case "I":
			target = &inner
			continue
		}
		if target == nil {
			return nil, nil, fmt.Errorf("way id %q before O or I marker", f)
		}
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		*target = append(*target, osm.WayID(n))
	}
	return outer, inner, nil
}
