package api

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/domain"
)

// maxRangeDays bounds /range queries.
const maxRangeDays = 366

var reYYYYMMDD = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type EventResponse struct {
	SourceType  string `json:"source_type"`
	SourceID    string `json:"source_id"`
	Title       string `json:"title"`
	OccursAt    string `json:"occurs_at"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	AllDay      bool   `json:"all_day"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

type DayResponse struct {
	Date      string          `json:"date"`
	HasEvents bool            `json:"has_events"`
	Events    []EventResponse `json:"events"`
}

type MonthResponse struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Days  []int `json:"days"`
}

type CustomEventResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	Time        *string `json:"time,omitempty"`
	Description *string `json:"description,omitempty"`
	UserID      string  `json:"user_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type customEventRequest struct {
	Title       *string `json:"title"`
	Type        *string `json:"type"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Description *string `json:"description"`
}

type clickRequest struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
}

type refreshResponse struct {
	Generation uint64 `json:"generation"`
}

func (s *Server) health(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]string{"status": "ok"})
}

// parseDay reads a YYYY-MM-DD query parameter as a day in the view's zone.
func parseDay(c echo.Context, name string, loc *time.Location) (time.Time, bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if !reYYYYMMDD.MatchString(v) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	return t, err == nil
}

// GET /api/calendar/day?date=YYYY-MM-DD
func (s *Server) day(c echo.Context) error {
	live, warning, err := s.mount(c)
	if err != nil {
		return fail(c, err)
	}
	view := live.Snapshot()

	date, valid := parseDay(c, "date", view.Location())
	if !valid {
		return badRequest(c, map[string]string{"date": "må være ÅÅÅÅ-MM-DD"})
	}

	events := view.EventsOnDate(date)
	return ok(c, http.StatusOK, DayResponse{
		Date:      date.Format("2006-01-02"),
		HasEvents: len(events) > 0,
		Events:    eventsToResponse(events, view.Location()),
	}, warning)
}

// GET /api/calendar/range?from=YYYY-MM-DD&to=YYYY-MM-DD (both inclusive)
func (s *Server) rangeEvents(c echo.Context) error {
	live, warning, err := s.mount(c)
	if err != nil {
		return fail(c, err)
	}
	view := live.Snapshot()

	fields := map[string]string{}
	from, fromOK := parseDay(c, "from", view.Location())
	if !fromOK {
		fields["from"] = "må være ÅÅÅÅ-MM-DD"
	}
	to, toOK := parseDay(c, "to", view.Location())
	if !toOK {
		fields["to"] = "må være ÅÅÅÅ-MM-DD"
	}
	if fromOK && toOK {
		if to.Before(from) {
			fields["to"] = "kan ikke være før fra-dato"
		} else if to.Sub(from) > maxRangeDays*24*time.Hour {
			fields["to"] = "maks " + strconv.Itoa(maxRangeDays) + " dager"
		}
	}
	if len(fields) > 0 {
		return badRequest(c, fields)
	}

	events := view.EventsInRange(from, to.AddDate(0, 0, 1))
	return ok(c, http.StatusOK, eventsToResponse(events, view.Location()), warning)
}

// GET /api/calendar/month?year=2025&month=3
func (s *Server) month(c echo.Context) error {
	live, warning, err := s.mount(c)
	if err != nil {
		return fail(c, err)
	}

	fields := map[string]string{}
	year, err := strconv.Atoi(c.QueryParam("year"))
	if err != nil || year < 1 || year > 9999 {
		fields["year"] = "ugyldig år"
	}
	month, err := strconv.Atoi(c.QueryParam("month"))
	if err != nil || month < 1 || month > 12 {
		fields["month"] = "må være 1-12"
	}
	if len(fields) > 0 {
		return badRequest(c, fields)
	}

	days := live.Snapshot().DaysWithEvents(year, time.Month(month))
	if days == nil {
		days = []int{}
	}
	return ok(c, http.StatusOK, MonthResponse{Year: year, Month: month, Days: days}, warning)
}

// POST /api/calendar/click
func (s *Server) click(c echo.Context) error {
	var req clickRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Error: "INVALID_PAYLOAD"})
	}
	src := domain.SourceType(req.SourceType)
	if !src.Valid() {
		return badRequest(c, map[string]string{"source_type": "ukjent kilde"})
	}
	if strings.TrimSpace(req.SourceID) == "" {
		return badRequest(c, map[string]string{"source_id": "påkrevd"})
	}

	live, warning, err := s.mount(c)
	if err != nil {
		return fail(c, err)
	}
	ev, found := live.Snapshot().Find(src, req.SourceID)
	if !found {
		if src == domain.SourceCustom {
			return fail(c, domain.ErrNotFound)
		}
		ev = domain.CalendarEvent{SourceType: src, SourceID: req.SourceID}
	}

	action := calendar.NewResolver(s.fetcher).OnEventClick(c.Request().Context(), tenantFrom(c), ev)
	return ok(c, http.StatusOK, action, warning)
}

// GET /api/calendar/menu?date=YYYY-MM-DD
func (s *Server) menu(c echo.Context) error {
	loc := s.dashboard.Options().Location
	date, valid := parseDay(c, "date", loc)
	if !valid {
		return badRequest(c, map[string]string{"date": "må være ÅÅÅÅ-MM-DD"})
	}
	return ok(c, http.StatusOK, calendar.NewResolver(s.fetcher).OnDateClick(date, nil))
}

// GET /api/calendar/custom
func (s *Server) listCustom(c echo.Context) error {
	events, err := s.customService.ListCustom(c.Request().Context(), tenantFrom(c))
	if err != nil {
		return fail(c, err)
	}
	out := make([]CustomEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, customToResponse(e))
	}
	return ok(c, http.StatusOK, out)
}

// POST /api/calendar/custom
func (s *Server) createCustom(c echo.Context) error {
	var req customEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Error: "INVALID_PAYLOAD"})
	}
	draft := domain.CustomEventDraft{
		Title:       deref(req.Title),
		Type:        deref(req.Type),
		Date:        deref(req.Date),
		Time:        req.Time,
		Description: req.Description,
	}

	// Mounting first lets the insert notification reach the caller's view.
	if _, _, err := s.mount(c); err != nil {
		return fail(c, err)
	}
	e, err := s.customService.Create(c.Request().Context(), tenantFrom(c), draft)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, customToResponse(e))
}

// PUT /api/calendar/custom/:id
func (s *Server) updateCustom(c echo.Context) error {
	var req customEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIResponse{Error: "INVALID_PAYLOAD"})
	}
	patch := domain.CustomEventPatch{
		Title:       req.Title,
		Type:        req.Type,
		Date:        req.Date,
		Time:        req.Time,
		Description: req.Description,
	}
	e, err := s.customService.Update(c.Request().Context(), tenantFrom(c), c.Param("id"), patch)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, customToResponse(e))
}

// DELETE /api/calendar/custom/:id
func (s *Server) deleteCustom(c echo.Context) error {
	if err := s.customService.Delete(c.Request().Context(), tenantFrom(c), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]string{"id": c.Param("id")})
}

// POST /api/calendar/refresh
func (s *Server) refresh(c echo.Context) error {
	live, _, err := s.mount(c)
	if err != nil {
		return fail(c, err)
	}
	report := live.Refresh(c.Request().Context())
	return ok(c, http.StatusOK, refreshResponse{Generation: report.Generation}, report.Message())
}

// GET /api/calendar/feed.ics
func (s *Server) feed(c echo.Context) error {
	live, _, err := s.mount(c)
	if err != nil {
		return fail(c, err)
	}
	ics, err := s.calendarService.FeedICS(live.Snapshot(), "Dronekalender")
	if err != nil {
		return fail(c, err)
	}
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

func eventsToResponse(events []domain.CalendarEvent, loc *time.Location) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		at := e.OccursAt.In(loc)
		out = append(out, EventResponse{
			SourceType:  string(e.SourceType),
			SourceID:    e.SourceID,
			Title:       e.Title,
			OccursAt:    at.Format(time.RFC3339),
			Date:        at.Format("2006-01-02"),
			Time:        e.FormatTime(),
			AllDay:      e.IsAllDay(),
			Category:    e.Category,
			Description: e.Description,
		})
	}
	return out
}

func customToResponse(e *domain.CustomEvent) CustomEventResponse {
	return CustomEventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Type:        e.Type,
		Date:        e.Date,
		Time:        e.Time,
		Description: e.Description,
		UserID:      e.UserID,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
