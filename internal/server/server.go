// Package server exposes the question-answering surface over HTTP:
// one-shot questions, graph statistics, health, and metrics.
package server

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/graph"
	"github.com/medigraph/medigraph/internal/qa"
)

// GraphReader is the read surface the server needs from the graph store.
type GraphReader interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error)
	Stats(ctx context.Context) (*graph.Stats, error)
}

type Server struct {
	echo   *echo.Echo
	router *qa.Router
	store  GraphReader
	log    zerolog.Logger
}

func New(router *qa.Router, store GraphReader, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	s := &Server{echo: e, router: router, store: store, log: log}

	e.POST("/questions", s.handleQuestion)
	e.GET("/stats", s.handleStats)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
