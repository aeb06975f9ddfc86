// Package server wires the search service's HTTP surface: the hybrid
// query engine, the facet/SKU store, and the facet composer behind
// /search, /facets, and a health endpoint.
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"catalogue-search/internal/config"
	"catalogue-search/internal/facetcompose"
	"catalogue-search/internal/handlers"
	"catalogue-search/internal/queryengine"
)

// Server wires the HTTP surface over the query engine and facet composer.
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   zerolog.Logger
	engine   *queryengine.Engine
	composer *facetcompose.Composer
	facets   handlers.FacetQuerier
}

// New creates a server instance. facets may be nil when no facet/SKU
// store is configured; the /facets endpoint then always degrades to
// facets_complete=false. Whether /search results are enhanced with SKU
// data depends only on the composer's own store.
func New(cfg *config.Config, engine *queryengine.Engine, composer *facetcompose.Composer, facets handlers.FacetQuerier, logger zerolog.Logger) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		engine:   engine,
		composer: composer,
		facets:   facets,
	}
}

// zerologMiddleware logs each request through the server's structured
// logger.
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes.
func (s *Server) Initialize() {
	s.echo = echo.New()

	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.HideBanner = true

	s.setupRoutes()
}

// setupRoutes configures all application routes.
func (s *Server) setupRoutes() {
	api := s.echo.Group("")

	api.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{echo.GET, echo.HEAD, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders:    []string{echo.HeaderContentLength, echo.HeaderContentType},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	api.GET("/", handlers.RootHandler(s.config.Version))
	api.GET("/healthz", handlers.HealthHandler(s.config.Version, s.engine.NumItems()))

	defaults := handlers.SearchDefaults{
		K:             s.config.DefaultK,
		CandidatePool: s.config.DefaultCandidatePool,
		Weights: queryengine.Weights{
			PhoneticBoost:        s.config.DefaultPhoneticBoost,
			ProductPhoneticBoost: s.config.ProductPhoneticBoost,
			PhoneticApproxBoost:  s.config.PhoneticApproxBoost,
			FuzzyJaroWeight:      s.config.FuzzyJaroWeight,
			PhoneticCodeMaxEdits: s.config.PhoneticCodeMaxEdits,
		},
		OnlyActiveFacetsDflt: s.config.OnlyActiveFacetsDefault,
	}
	api.GET("/search", handlers.SearchHandler(s.engine, s.composer, defaults))
	api.GET("/facets", handlers.FacetsHandler(s.facets, s.config.OnlyActiveFacetsDefault))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Handler returns the underlying HTTP handler, for use with httptest
// servers in integration tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
