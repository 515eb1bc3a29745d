package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
)

// rule is the title/category synthesis for one source type.
type rule struct {
	category string
	title    func(subject string) string
	dateOnly bool
}

func verbatim(s string) string { return s }

func prefix(p string) func(string) string {
	return func(s string) string { return p + s }
}

func suffix(sfx string) func(string) string {
	return func(s string) string { return s + sfx }
}

var rules = map[domain.SourceType]rule{
	domain.SourceMission:   {category: domain.CategoryMission, title: verbatim},
	domain.SourceDocument:  {category: domain.CategoryDocument, title: suffix(" utgår"), dateOnly: true},
	domain.SourceDrone:     {category: domain.CategoryMaintenance, title: prefix("Inspeksjon: "), dateOnly: true},
	domain.SourceEquipment: {category: domain.CategoryMaintenance, title: prefix("Vedlikehold: "), dateOnly: true},
	domain.SourceIncident:  {category: domain.CategoryIncident, title: verbatim},
}

func derive(src domain.SourceType, id, subject, description string, at time.Time) (domain.CalendarEvent, error) {
	r, ok := rules[src]
	if !ok {
		return domain.CalendarEvent{}, fmt.Errorf("no synthesis rule for %q", src)
	}
	if id == "" {
		return domain.CalendarEvent{}, fmt.Errorf("%s row without id", src)
	}
	return domain.CalendarEvent{
		SourceType:  src,
		SourceID:    id,
		Title:       r.title(strings.TrimSpace(subject)),
		OccursAt:    at,
		Category:    r.category,
		Description: description,
		AllDay:      r.dateOnly,
	}, nil
}

var errNoDate = errors.New("date of interest is empty")

func fromMission(m *domain.Mission, loc *time.Location) (domain.CalendarEvent, error) {
	if m.StartsAt == nil {
		return domain.CalendarEvent{}, fmt.Errorf("mission %s: %w", m.ID, errNoDate)
	}
	at, err := ParseTimestamp(*m.StartsAt, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("mission %s: %w", m.ID, err)
	}
	return derive(domain.SourceMission, m.ID, m.Title, m.Location, at)
}

func fromDocument(d *domain.Document, loc *time.Location) (domain.CalendarEvent, error) {
	if d.ValidUntil == nil {
		return domain.CalendarEvent{}, fmt.Errorf("document %s: %w", d.ID, errNoDate)
	}
	at, err := ParseDate(*d.ValidUntil, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return derive(domain.SourceDocument, d.ID, d.Title, "", at)
}

func fromDrone(d *domain.Drone, loc *time.Location) (domain.CalendarEvent, error) {
	if d.NextInspection == nil {
		return domain.CalendarEvent{}, fmt.Errorf("drone %s: %w", d.ID, errNoDate)
	}
	at, err := ParseDate(*d.NextInspection, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("drone %s: %w", d.ID, err)
	}
	return derive(domain.SourceDrone, d.ID, d.Model, d.SerialNumber, at)
}

func fromEquipment(e *domain.Equipment, loc *time.Location) (domain.CalendarEvent, error) {
	if e.NextMaintenance == nil {
		return domain.CalendarEvent{}, fmt.Errorf("equipment %s: %w", e.ID, errNoDate)
	}
	at, err := ParseDate(*e.NextMaintenance, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("equipment %s: %w", e.ID, err)
	}
	return derive(domain.SourceEquipment, e.ID, e.Name, e.Type, at)
}

func fromIncident(i *domain.Incident, loc *time.Location) (domain.CalendarEvent, error) {
	if i.OccurredAt == nil {
		return domain.CalendarEvent{}, fmt.Errorf("incident %s: %w", i.ID, errNoDate)
	}
	at, err := ParseTimestamp(*i.OccurredAt, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("incident %s: %w", i.ID, err)
	}
	return derive(domain.SourceIncident, i.ID, i.Title, i.Description, at)
}

// FromCustom maps a calendar_events row to its calendar event: date plus
// optional HH:MM, local midnight when no time is set.
func FromCustom(e *domain.CustomEvent, loc *time.Location) (domain.CalendarEvent, error) {
	at, err := ParseDate(e.Date, loc)
	if err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("custom event %s: %w", e.ID, err)
	}
	allDay := e.Time == nil || *e.Time == ""
	if !allDay {
		h, m, err := ParseClock(*e.Time)
		if err != nil {
			return domain.CalendarEvent{}, fmt.Errorf("custom event %s: %w", e.ID, err)
		}
		at = time.Date(at.Year(), at.Month(), at.Day(), h, m, 0, 0, loc)
	}

	category := e.Type
	if category == "" {
		category = domain.DefaultCustomType
	}
	var description string
	if e.Description != nil {
		description = *e.Description
	}
	return domain.CalendarEvent{
		SourceType:  domain.SourceCustom,
		SourceID:    e.ID,
		Title:       e.Title,
		OccursAt:    at,
		Category:    category,
		Description: description,
		AllDay:      allDay,
	}, nil
}

// ParseDate parses a calendar date ("YYYY-MM-DD") as local midnight. Full
// timestamps are accepted and truncated to their local date.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := ParseTimestamp(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses a stored timestamp. Values with a zone are converted
// to loc; wall-clock values are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseClock parses "HH:MM" (seconds, if present, are ignored).
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil || len(s) < 5 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
