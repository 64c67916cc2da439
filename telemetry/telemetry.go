// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package telemetry wires up the structured logger, Prometheus metrics,
// and OpenTelemetry tracer the façade and CLI share.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds a logrus.Logger emitting JSON at the given level
// ("debug", "info", "warn", "error"). An unrecognized level falls back
// to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Metrics holds the Prometheus instruments the façade updates during
// ingestion and assembly.
type Metrics struct {
	ArenaGrowths     prometheus.Counter
	Nodes            prometheus.Gauge
	Ways             prometheus.Gauge
	Relations        prometheus.Gauge
	AssembleDuration prometheus.Histogram
	AssembleErrors   prometheus.Counter
}

// NewMetrics registers the osmstore instrument set against reg. Passing
// a fresh prometheus.NewRegistry() keeps tests isolated from the global
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ArenaGrowths: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmstore_arena_growths_total",
			Help: "Number of times the backing arena file has doubled in size.",
		}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmstore_nodes",
			Help: "Number of nodes currently held in the node store.",
		}),
		Ways: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmstore_ways",
			Help: "Number of ways currently held in the way store.",
		}),
		Relations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmstore_relations",
			Help: "Number of relations currently held in the relation store.",
		}),
		AssembleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "osmstore_assemble_duration_seconds",
			Help: "Time spent assembling a geometry from stored references.",
		}),
		AssembleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmstore_assemble_errors_total",
			Help: "Number of assembly operations that returned an error.",
		}),
	}

	reg.MustRegister(m.ArenaGrowths, m.Nodes, m.Ways, m.Relations, m.AssembleDuration, m.AssembleErrors)
	return m
}

// NewTracerProvider constructs a minimal OpenTelemetry tracer provider
// and registers it as the global provider, returning a tracer scoped to
// the osmstore façade, and the provider's shutdown func. It always sets
// the global provider; callers that don't want that side effect can
// skip this function and pass a tracer from their own provider in the
// façade's options instead.
func NewTracerProvider() (trace.Tracer, func(context.Context) error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Tracer("github.com/tilemaker-go/osmstore"), tp.Shutdown
}
