// Package dashboard serves the read-only manager view over HTTP: session
// listings with filters, per-session detail, and a small HTML overview.
package dashboard

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/screening"
	"github.com/talentscout/screener/internal/store"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// Store is the read-only slice of persistence the dashboard needs. The
// dashboard never writes.
type Store interface {
	ListSessions(ctx context.Context, filter store.Filter) ([]store.Summary, error)
	GetDetail(ctx context.Context, sessionID string) (*store.Detail, error)
}

// Server hosts the dashboard endpoints.
type Server struct {
	store  Store
	logger *zap.Logger
	echo   *echo.Echo
}

// New builds the server and registers its routes.
func New(st Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{store: st, logger: logger, echo: e}

	e.GET("/", s.index)
	e.GET("/healthz", s.healthz)
	e.GET("/api/sessions", s.listSessions)
	e.GET("/api/sessions/:id", s.getSession)

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("dashboard listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// parseFilter reads the stage and min_score query parameters, rejecting
// values that could silently match nothing.
func parseFilter(c echo.Context) (store.Filter, error) {
	var filter store.Filter

	if raw := c.QueryParam("stage"); raw != "" {
		stage, err := screening.ParseStage(strings.ToUpper(raw))
		if err != nil {
			return filter, fmt.Errorf("unknown stage %q", raw)
		}
		filter.Stage = stage
	}

	if raw := c.QueryParam("min_score"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, fmt.Errorf("min_score %q is not a number", raw)
		}
		filter.MinScore = &min
	}

	return filter, nil
}

func (s *Server) listSessions(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	summaries, err := s.store.ListSessions(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error("list sessions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

func (s *Server) getSession(c echo.Context) error {
	detail, err := s.store.GetDetail(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		s.logger.Error("get session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, detail)
}

type indexData struct {
	Total     int
	Completed int
	AvgScore  string
	Sessions  []store.Summary
}

func (s *Server) index(c echo.Context) error {
	summaries, err := s.store.ListSessions(c.Request().Context(), store.Filter{})
	if err != nil {
		s.logger.Error("render index", zap.Error(err))
		return c.String(http.StatusInternalServerError, "internal error")
	}

	data := indexData{Total: len(summaries), Sessions: summaries, AvgScore: "-"}
	var sum float64
	var scored int
	for _, sm := range summaries {
		if sm.Completed {
			data.Completed++
		}
		if sm.Score != nil {
			sum += *sm.Score
			scored++
		}
	}
	if scored > 0 {
		data.AvgScore = fmt.Sprintf("%.1f", sum/float64(scored))
	}

	var b strings.Builder
	if err := indexTemplate.Execute(&b, data); err != nil {
		s.logger.Error("render index", zap.Error(err))
		return c.String(http.StatusInternalServerError, "internal error")
	}
	return c.HTML(http.StatusOK, b.String())
}
