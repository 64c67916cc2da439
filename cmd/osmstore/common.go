// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tilemaker-go/osmstore/config"
	"github.com/tilemaker-go/osmstore/store"
	"github.com/tilemaker-go/osmstore/telemetry"
)

// openStore constructs a Store from cfg against a fresh, private
// Prometheus registry, returned alongside it so the serve subcommand can
// expose it over /metrics without reaching into the store's internals.
func openStore(cfg *config.Config) (*store.Store, *prometheus.Registry, error) {
	kind := store.CompactNodeStore
	if cfg.NodeStoreKind == "sparse" {
		kind = store.SparseNodeStore
	}

	reg := prometheus.NewRegistry()
	s, err := store.New(store.Options{
		ArenaPath:         cfg.ArenaPath,
		InitialArenaSize:  cfg.InitialArenaSize,
		NodeStoreKind:     kind,
		ExpectedNodes:     cfg.ExpectedNodes,
		ExpectedWays:      cfg.ExpectedWays,
		ExpectedRelations: cfg.ExpectedRelations,
		WayCacheSize:      cfg.WayCacheSize,
		Logger:            telemetry.NewLogger(cfg.LogLevel),
		Registry:          reg,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, reg, nil
}
