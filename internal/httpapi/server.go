// Package httpapi is the ambient ops-status surface: a small Echo app
// exposing /health and /api/state so an operator can see room
// occupancy without a core protocol round-trip. It is not one of the
// hub's six wire endpoints, trimmed to the two read-only routes that
// make sense here (no blob upload/download routes: file transfer is a
// custom stream protocol, not HTTP).
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"lanhub/internal/fileshare"
	"lanhub/internal/presenter"
	"lanhub/internal/registry"
)

// Server is the Echo application.
type Server struct {
	echo  *echo.Echo
	reg   *registry.Registry
	coord *presenter.Coordinator
	files *fileshare.Store
}

// New constructs the status app.
func New(reg *registry.Registry, coord *presenter.Coordinator, files *fileshare.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, reg: reg, coord: coord, files: files}
	e.GET("/health", s.handleHealth)
	e.GET("/api/state", s.handleState)
	return s
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			slog.Debug("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// Echo exposes the underlying instance for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Run starts the status server and blocks until ctx cancellation.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down status server")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

type healthResponse struct {
	Status       string `json:"status"`
	Participants int    `json:"participants"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Participants: s.reg.Count()})
}

type rosterEntry struct {
	ID       uint32 `json:"id"`
	Username string `json:"username"`
}

type stateResponse struct {
	Participants []rosterEntry `json:"participants"`
	Presenter    *uint32       `json:"presenter,omitempty"`
	Files        int           `json:"files"`
	FileBytes    int64         `json:"file_bytes"`
}

func (s *Server) handleState(c echo.Context) error {
	roster := s.reg.Roster()
	entries := make([]rosterEntry, len(roster))
	for i, r := range roster {
		entries[i] = rosterEntry{ID: r.ID, Username: r.Username}
	}

	resp := stateResponse{
		Participants: entries,
		Files:        s.files.FileCount(),
		FileBytes:    s.files.TotalBytes(),
	}
	if id := s.coord.Current(); id != presenter.None {
		resp.Presenter = &id
	}
	return c.JSON(http.StatusOK, resp)
}
