// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes Prometheus instrumentation for the gate and the
// verification pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on its own registry, so tests can build
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	Verifications    *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Coalesced        prometheus.Counter
	FallbackCalls    prometheus.Counter
	PipelineDuration prometheus.Histogram
}

// New builds a Metrics with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimgate_verifications_total",
			Help: "Completed verifications by final status.",
		}, []string{"status"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimgate_admission_rejections_total",
			Help: "Requests rejected at the gate by reason.",
		}, []string{"reason"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_result_cache_hits_total",
			Help: "Verification result cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_result_cache_misses_total",
			Help: "Verification result cache misses.",
		}),
		Coalesced: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_coalesced_requests_total",
			Help: "Requests that joined an in-flight verification instead of starting one.",
		}),
		FallbackCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimgate_fallback_invocations_total",
			Help: "Low-confidence verifications escalated to the fallback model.",
		}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimgate_pipeline_duration_seconds",
			Help:    "End-to-end verification pipeline latency.",
			Buckets: []float64{.01, .025, .05, .1, .15, .2, .3, .5, 1, 2.5},
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
