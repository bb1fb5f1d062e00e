package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medigraph/medigraph/internal/qa"
)

type questionRequest struct {
	Question  string `json:"question"`
	Translate bool   `json:"translate"`
}

func (s *Server) handleQuestion(c echo.Context) error {
	var req questionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	ctx := c.Request().Context()
	start := time.Now()

	var resp qa.Response
	if req.Translate {
		resp = s.router.AnswerTranslated(ctx, req.Question)
	} else {
		resp = s.router.Answer(ctx, req.Question)
	}

	name := resp.Intent
	if name == "" {
		name = "unmatched"
	}
	questionsTotal.WithLabelValues(name).Inc()
	questionDuration.Observe(time.Since(start).Seconds())

	s.log.Info().
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Str("intent", name).
		Msg("question answered")

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats query failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "graph store unavailable")
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
