// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/veritaslabs/claimgate/internal/admission"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/claim"
	"github.com/veritaslabs/claimgate/internal/health"
	"github.com/veritaslabs/claimgate/internal/metrics"
	"github.com/veritaslabs/claimgate/internal/persistence"
)

// Verifier resolves one claim, reporting whether the result was cached.
type Verifier interface {
	Verify(ctx context.Context, req *claim.Request) (*claim.Result, bool, error)
}

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Gate     *admission.Controller
	Verifier Verifier
	Health   *health.Aggregator
	Metrics  *metrics.Metrics
	Cache    *cache.ResultCache
	// Store serves the analytics surface. Nil disables those routes' data.
	Store      persistence.Store
	Production bool
	Debug      bool
}

// Server owns the router and its collaborators.
type Server struct {
	router     *gin.Engine
	gate       *admission.Controller
	verifier   Verifier
	health     *health.Aggregator
	metrics    *metrics.Metrics
	cache      *cache.ResultCache
	store      persistence.Store
	production bool
}

// NewServer builds the router with all routes registered.
func NewServer(deps Deps) *Server {
	if deps.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:     gin.New(),
		gate:       deps.Gate,
		verifier:   deps.Verifier,
		health:     deps.Health,
		metrics:    deps.Metrics,
		cache:      deps.Cache,
		store:      deps.Store,
		production: deps.Production,
	}

	s.router.Use(gin.Recovery(), requestIDMiddleware(), requestLogger())

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	protected := s.router.Group("/", s.admissionMiddleware())
	protected.POST("/verify", s.handleVerify)

	admin := protected.Group("/", s.requireAdmin())
	admin.GET("/analytics/verifications", s.handleRecentVerifications)
	admin.GET("/analytics/summary", s.handleAnalyticsSummary)
	admin.GET("/cache/stats", s.handleCacheStats)
	admin.POST("/cache/invalidate", s.handleCacheInvalidate)

	return s
}

// Handler exposes the router for the http.Server and for tests.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
