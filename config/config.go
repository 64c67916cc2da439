// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config loads osmstore's runtime configuration from a YAML
// file, environment variables, and CLI flags (in that increasing order
// of precedence), via viper/pflag/cobra, with an optional fsnotify-based
// hot-reload hook for long-running processes.
package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the set of knobs a bulk load needs. Only the values that
// matter before the next New() call are hot-reloadable; an arena
// already mapped is never resized or reopened in response to a config
// change.
type Config struct {
	ArenaPath         string `mapstructure:"arena_path"`
	InitialArenaSize  int64  `mapstructure:"initial_arena_size"`
	NodeStoreKind     string `mapstructure:"node_store_kind"` // "compact" or "sparse"
	ExpectedNodes     int    `mapstructure:"expected_nodes"`
	ExpectedWays      int    `mapstructure:"expected_ways"`
	ExpectedRelations int    `mapstructure:"expected_relations"`
	WayCacheSize      int    `mapstructure:"way_cache_size"`
	LogLevel          string `mapstructure:"log_level"`
}

const (
	defaultInitialArenaSize = 1_024_000_000
	defaultWayCacheSize     = 4096
)

// BindFlags registers the CLI overrides for every Config field on cmd
// and binds them into v, so viper.Unmarshal later reflects whichever of
// default / file / env / flag wins.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("arena-path", "", "path to the scratch mmap arena file")
	flags.Int64("initial-arena-size", defaultInitialArenaSize, "initial arena size in bytes")
	flags.String("node-store-kind", "compact", "node store layout: compact or sparse")
	flags.Int("expected-nodes", 0, "expected node count, used to presize the node store")
	flags.Int("expected-ways", 0, "expected way count, used to presize the way store")
	flags.Int("expected-relations", 0, "expected relation count, used to presize the relation store")
	flags.Int("way-cache-size", defaultWayCacheSize, "bounded LRU size for assembled way geometries")
	flags.String("log-level", "info", "logrus level: debug, info, warn, error")

	for _, name := range []string{
		"arena_path", "initial_arena_size", "node_store_kind",
		"expected_nodes", "expected_ways", "expected_relations",
		"way_cache_size", "log_level",
	} {
		flagName := flagNameFor(name)
		if err := v.BindPFlag(name, flags.Lookup(flagName)); err != nil {
			return errors.Wrapf(err, "bind flag %s", flagName)
		}
	}
	return nil
}

func flagNameFor(key string) string {
	out := make([]byte, 0, len(key))
	for _, r := range key {
		if r == '_' {
			out = append(out, '-')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// Load reads configuration from the bound file/env/flags into a Config,
// applying defaults for anything left unset.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("OSMSTORE")
	v.AutomaticEnv()

	v.SetDefault("initial_arena_size", defaultInitialArenaSize)
	v.SetDefault("node_store_kind", "compact")
	v.SetDefault("way_cache_size", defaultWayCacheSize)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if cfg.ArenaPath == "" {
		return nil, fmt.Errorf("config: arena_path is required")
	}
	return &cfg, nil
}

// WatchAndReload installs a viper config-file watcher (backed by
// fsnotify) that re-unmarshals into a fresh Config and invokes onChange
// whenever the file changes on disk. It does not touch any store or
// arena already constructed from a prior Config.
func WatchAndReload(v *viper.Viper, onChange func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err == nil {
			onChange(&cfg)
		}
	})
}
