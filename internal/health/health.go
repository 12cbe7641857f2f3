// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package health fans out liveness probes to every collaborator and folds
// the results into one verdict. Critical collaborator failures make the
// service unhealthy; optional ones only degrade it.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/veritaslabs/claimgate/internal/buildinfo"
)

// Overall service verdicts.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// probeTimeout bounds each individual probe.
const probeTimeout = 2 * time.Second

// Probe checks one collaborator.
type Probe func(ctx context.Context) error

// ServiceStatus is one collaborator's probe outcome.
type ServiceStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the aggregate health response.
type Report struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceStatus `json:"services"`
}

type target struct {
	name     string
	critical bool
	probe    Probe
}

// Aggregator runs registered probes concurrently.
type Aggregator struct {
	targets []target
}

// NewAggregator builds an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Register adds a probe. Critical targets take the whole service down when
// they fail; others only degrade it.
func (a *Aggregator) Register(name string, critical bool, probe Probe) {
	a.targets = append(a.targets, target{name: name, critical: critical, probe: probe})
}

// Check probes every target and folds the outcomes.
func (a *Aggregator) Check(ctx context.Context) Report {
	report := Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   buildinfo.Version,
		Services:  make(map[string]ServiceStatus, len(a.targets)),
	}

	type outcome struct {
		name     string
		critical bool
		status   ServiceStatus
	}

	results := make(chan outcome, len(a.targets))
	var wg sync.WaitGroup
	for _, t := range a.targets {
		wg.Add(1)
		go func(t target) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			start := time.Now()
			err := t.probe(probeCtx)
			status := ServiceStatus{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				status.Status = StatusUnhealthy
				status.Error = err.Error()
			}
			results <- outcome{name: t.name, critical: t.critical, status: status}
		}(t)
	}
	wg.Wait()
	close(results)

	for r := range results {
		report.Services[r.name] = r.status
		if r.status.Status == StatusHealthy {
			continue
		}
		if r.critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}
