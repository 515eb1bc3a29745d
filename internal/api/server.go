package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/service"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success  bool              `json:"success"`
	Data     any               `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// Server is the HTTP query surface of the dashboard calendar.
type Server struct {
	echo            *echo.Echo
	dashboard       *calendar.Dashboard
	fetcher         calendar.RecordFetcher
	customService   *service.CustomEventService
	calendarService *service.CalendarService
}

func New(secret string, dashboard *calendar.Dashboard, fetcher calendar.RecordFetcher, customSvc *service.CustomEventService, calendarSvc *service.CalendarService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:            e,
		dashboard:       dashboard,
		fetcher:         fetcher,
		customService:   customSvc,
		calendarService: calendarSvc,
	}
	e.HTTPErrorHandler = s.handleHTTPError

	e.GET("/health", s.health)

	g := e.Group("/api/calendar", RequireAuth(secret))
	g.GET("/day", s.day)
	g.GET("/range", s.rangeEvents)
	g.GET("/month", s.month)
	g.POST("/click", s.click)
	g.GET("/menu", s.menu)
	g.GET("/custom", s.listCustom)
	g.POST("/custom", s.createCustom)
	g.PUT("/custom/:id", s.updateCustom)
	g.DELETE("/custom/:id", s.deleteCustom)
	g.POST("/refresh", s.refresh)
	g.GET("/feed.ics", s.feed)

	return s
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start(addr string) error {
	log.Printf("Starting API server on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func ok(c echo.Context, status int, data any, warnings ...string) error {
	var w []string
	for _, msg := range warnings {
		if msg != "" {
			w = append(w, msg)
		}
	}
	return c.JSON(status, APIResponse{Success: true, Data: data, Warnings: w})
}

// fail maps domain errors onto status codes.
func fail(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, APIResponse{Error: "VALIDATION_ERROR", Fields: verr.Fields})
	case errors.Is(err, domain.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, APIResponse{Error: "UNAUTHENTICATED"})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, APIResponse{Error: "NOT_FOUND"})
	}
	log.Printf("API error on %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, APIResponse{Error: "INTERNAL_ERROR"})
}

func badRequest(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, APIResponse{Error: "VALIDATION_ERROR", Fields: fields})
}

func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "INTERNAL_ERROR"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		log.Printf("API error on %s %s: %v", c.Request().Method, c.Path(), err)
	}
	if err := c.JSON(status, APIResponse{Error: msg}); err != nil {
		log.Printf("Error writing error response: %v", err)
	}
}

// mount returns the live view of the caller's company and the warning of
// its initial load, if any.
func (s *Server) mount(c echo.Context) (*calendar.Live, string, error) {
	live, report, err := s.dashboard.Mount(c.Request().Context(), tenantFrom(c))
	if err != nil {
		return nil, "", err
	}
	return live, report.Message(), nil
}
