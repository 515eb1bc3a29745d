package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/clients/caldav"
	"github.com/tazhate/dronecal/internal/domain"
)

// uidSuffix marks events owned by the exporter. Remote events without it
// are never touched.
const uidSuffix = "@dronecal"

// CalendarService exports the aggregated calendar to CalDAV and iCalendar
// and formats it for chat digests.
type CalendarService struct {
	caldavClient *caldav.Client
	calendarPath string
	timezone     *time.Location
}

// NewCalendarService creates a new calendar service. client may be nil.
func NewCalendarService(client *caldav.Client, tz *time.Location) *CalendarService {
	if tz == nil {
		tz = time.UTC
	}
	return &CalendarService{
		caldavClient: client,
		timezone:     tz,
	}
}

// IsConfigured returns true if CalDAV client is configured
func (s *CalendarService) IsConfigured() bool {
	return s.caldavClient != nil && s.caldavClient.IsConfigured()
}

// SetCalendarPath sets the calendar path to mirror into
func (s *CalendarService) SetCalendarPath(path string) {
	s.calendarPath = path
	if s.caldavClient != nil {
		s.caldavClient.SetCalendarID(path)
	}
}

// DiscoverCalendars returns available remote calendars
func (s *CalendarService) DiscoverCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}
	return s.caldavClient.DiscoverCalendars(ctx)
}

// SyncResult contains export results
type SyncResult struct {
	Added   int
	Updated int
	Deleted int
	Errors  []string
}

// ExportUID is the remote UID of a calendar event.
func ExportUID(ev domain.CalendarEvent) string {
	return fmt.Sprintf("%s-%s%s", ev.SourceType, ev.SourceID, uidSuffix)
}

// Export mirrors the events of view within [from, to) to the remote calendar.
// Exported events that disappeared from the view are deleted remotely.
func (s *CalendarService) Export(ctx context.Context, view *calendar.View, from, to time.Time) (*SyncResult, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("CalDAV not configured")
	}
	if s.calendarPath == "" {
		return nil, fmt.Errorf("calendar path not set")
	}

	remote, err := s.caldavClient.GetEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get remote events: %w", err)
	}
	remoteByUID := make(map[string]caldav.Event, len(remote))
	for _, e := range remote {
		remoteByUID[e.UID] = e
	}

	result := &SyncResult{}
	wanted := make(map[string]bool)
	for _, ev := range view.EventsInRange(from, to) {
		local := s.toCalDAV(ev)
		wanted[local.UID] = true

		existing, exists := remoteByUID[local.UID]
		if exists && !eventChanged(&local, &existing) {
			continue
		}
		if err := s.caldavClient.PutEvent(ctx, &local); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("put %s: %v", local.UID, err))
			continue
		}
		if exists {
			result.Updated++
		} else {
			result.Added++
		}
	}

	for uid := range remoteByUID {
		if wanted[uid] || !strings.HasSuffix(uid, uidSuffix) {
			continue
		}
		if err := s.caldavClient.DeleteEvent(ctx, uid); err != nil {
			// Don't fail if event doesn't exist
			if !strings.Contains(err.Error(), "404") && !strings.Contains(err.Error(), "not found") {
				result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", uid, err))
			}
			continue
		}
		result.Deleted++
	}

	return result, nil
}

// eventChanged checks if the remote copy differs from the local event
func eventChanged(local, remote *caldav.Event) bool {
	if local.Summary != remote.Summary {
		return true
	}
	if local.Description != remote.Description {
		return true
	}
	if local.Category != remote.Category {
		return true
	}
	if local.AllDay != remote.AllDay {
		return true
	}
	if local.AllDay {
		return !sameDate(local.StartTime, remote.StartTime)
	}
	return !local.StartTime.Equal(remote.StartTime)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// toCalDAV converts an event. Events without a time of day become all-day
// entries; timed events get a one hour slot.
func (s *CalendarService) toCalDAV(ev domain.CalendarEvent) caldav.Event {
	e := caldav.Event{
		UID:         ExportUID(ev),
		Summary:     ev.Title,
		Description: ev.Description,
		Category:    ev.Category,
	}
	at := ev.OccursAt.In(s.timezone)
	if ev.IsAllDay() {
		y, m, d := at.Date()
		e.AllDay = true
		e.StartTime = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		e.EndTime = e.StartTime.AddDate(0, 0, 1)
	} else {
		e.StartTime = at
		e.EndTime = at.Add(time.Hour)
	}
	return e
}

// FeedICS serializes every event of view as one iCalendar document.
func (s *CalendarService) FeedICS(view *calendar.View, name string) (string, error) {
	all := view.All()
	events := make([]caldav.Event, 0, len(all))
	for _, ev := range all {
		events = append(events, s.toCalDAV(ev))
	}
	out, err := caldav.SerializeCalendar(caldav.NewFeed(name, events))
	if err != nil {
		return "", fmt.Errorf("encode ics feed: %w", err)
	}
	return out, nil
}

// FormatEventList formats events for display, grouped by day
func (s *CalendarService) FormatEventList(events []domain.CalendarEvent) string {
	if len(events) == 0 {
		return "Ingen hendelser"
	}

	var sb strings.Builder
	var currentDate string

	for _, e := range events {
		at := e.OccursAt.In(s.timezone)
		eventDate := at.Format("02.01")

		if eventDate != currentDate {
			if currentDate != "" {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("📅 %s, %s:\n", norwegianWeekday(at.Weekday()), eventDate))
			currentDate = eventDate
		}

		sb.WriteString("  " + formatLine(e, at) + "\n")
	}

	return sb.String()
}

// FormatTodayBriefing formats today's events for the morning digest.
// It returns an empty string when there is nothing to report.
func (s *CalendarService) FormatTodayBriefing(events []domain.CalendarEvent) string {
	if len(events) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("📅 I dag:\n")
	for _, e := range events {
		sb.WriteString("• " + formatLine(e, e.OccursAt.In(s.timezone)) + "\n")
	}
	return sb.String()
}

func formatLine(e domain.CalendarEvent, at time.Time) string {
	var line string
	if e.IsAllDay() {
		line = fmt.Sprintf("%s (hele dagen)", e.Title)
	} else {
		line = fmt.Sprintf("%s %s", at.Format("15:04"), e.Title)
	}
	if e.Category != "" {
		line += " [" + e.Category + "]"
	}
	return line
}

func norwegianWeekday(wd time.Weekday) string {
	days := []string{"søndag", "mandag", "tirsdag", "onsdag", "torsdag", "fredag", "lørdag"}
	return days[wd]
}
