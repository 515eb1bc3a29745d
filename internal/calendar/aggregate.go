package calendar

import (
	"log"
	"sort"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
)

// View is an immutable, time-ordered set of calendar events.
type View struct {
	events []domain.CalendarEvent
	loc    *time.Location
}

// Aggregate merges derived batches and custom rows into one view ordered by
// OccursAt, then SourceType, then SourceID. It is a pure function of its
// arguments; the input order of batches and rows does not affect the result.
func Aggregate(batches [][]domain.CalendarEvent, custom []*domain.CustomEvent, loc *time.Location) *View {
	if loc == nil {
		loc = time.Local
	}

	n := len(custom)
	for _, b := range batches {
		n += len(b)
	}

	events := make([]domain.CalendarEvent, 0, n)
	for _, b := range batches {
		events = append(events, b...)
	}
	for _, row := range custom {
		if row == nil {
			continue
		}
		ev, err := FromCustom(row, loc)
		if err != nil {
			log.Printf("calendar: skipping custom event: %v", err)
			continue
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool { return less(events[i], events[j]) })
	return &View{events: events, loc: loc}
}

func less(a, b domain.CalendarEvent) bool {
	if !a.OccursAt.Equal(b.OccursAt) {
		return a.OccursAt.Before(b.OccursAt)
	}
	if a.SourceType != b.SourceType {
		return a.SourceType < b.SourceType
	}
	return a.SourceID < b.SourceID
}

// Location returns the zone days are bucketed in.
func (v *View) Location() *time.Location { return v.loc }

func (v *View) Len() int { return len(v.events) }

// All returns a copy of every event in order.
func (v *View) All() []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, len(v.events))
	copy(out, v.events)
	return out
}

// EventsInRange returns events with from <= OccursAt < to.
func (v *View) EventsInRange(from, to time.Time) []domain.CalendarEvent {
	start := sort.Search(len(v.events), func(i int) bool { return !v.events[i].OccursAt.Before(from) })
	var out []domain.CalendarEvent
	for i := start; i < len(v.events) && v.events[i].OccursAt.Before(to); i++ {
		out = append(out, v.events[i])
	}
	return out
}

// EventsOnDate returns the events on the calendar day named by date's
// year/month/day, bucketed in the view's location.
func (v *View) EventsOnDate(date time.Time) []domain.CalendarEvent {
	start := v.dayStart(date)
	return v.EventsInRange(start, start.AddDate(0, 0, 1))
}

func (v *View) HasEventsOnDate(date time.Time) bool {
	start := v.dayStart(date)
	i := sort.Search(len(v.events), func(i int) bool { return !v.events[i].OccursAt.Before(start) })
	return i < len(v.events) && v.events[i].OccursAt.Before(start.AddDate(0, 0, 1))
}

// DaysWithEvents returns the days of the month that have at least one event.
func (v *View) DaysWithEvents(year int, month time.Month) []int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, v.loc)
	var days []int
	for _, ev := range v.EventsInRange(first, first.AddDate(0, 1, 0)) {
		d := ev.OccursAt.In(v.loc).Day()
		if len(days) == 0 || days[len(days)-1] != d {
			days = append(days, d)
		}
	}
	return days
}

// Find returns the event with the given identity.
func (v *View) Find(src domain.SourceType, id string) (domain.CalendarEvent, bool) {
	for _, ev := range v.events {
		if ev.SourceType == src && ev.SourceID == id {
			return ev, true
		}
	}
	return domain.CalendarEvent{}, false
}

func (v *View) dayStart(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, v.loc)
}
