package calendar

import (
	"testing"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
)

func TestAggregateMergesSourcesInTimeOrder(t *testing.T) {
	loc := time.UTC

	mission, err := fromMission(&domain.Mission{ID: "m1", Title: "Inspeksjon Oslo", StartsAt: strPtr("2025-03-10T09:00:00")}, loc)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := fromDocument(&domain.Document{ID: "d1", Title: "Forsikring", ValidUntil: strPtr("2025-03-10")}, loc)
	if err != nil {
		t.Fatal(err)
	}
	custom := []*domain.CustomEvent{{ID: "c1", Title: "Møte", Type: "Møte", Date: "2025-03-10", Time: strPtr("14:00")}}

	view := Aggregate([][]domain.CalendarEvent{{mission}, {doc}}, custom, loc)
	got := view.EventsOnDate(at(loc, 2025, 3, 10, 12, 0))

	want := []string{"Forsikring utgår", "Inspeksjon Oslo", "Møte"}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("event %d = %q, want %q", i, got[i].Title, title)
		}
	}
	if !got[0].IsAllDay() || got[0].FormatTime() != "Hele dagen" {
		t.Errorf("document should be all-day, got %s", got[0].FormatTime())
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	loc := time.UTC
	noon := at(loc, 2025, 3, 10, 12, 0)

	a := []domain.CalendarEvent{
		event(domain.SourceMission, "m2", "B", noon),
		event(domain.SourceMission, "m1", "A", noon),
	}
	b := []domain.CalendarEvent{
		event(domain.SourceDocument, "d1", "C", noon),
		event(domain.SourceIncident, "i1", "D", at(loc, 2025, 3, 9, 8, 0)),
	}
	custom := []*domain.CustomEvent{
		{ID: "c2", Title: "E", Date: "2025-03-10", Time: strPtr("12:00")},
		{ID: "c1", Title: "F", Date: "2025-03-10", Time: strPtr("12:00")},
	}
	reversed := []*domain.CustomEvent{custom[1], custom[0]}

	first := Aggregate([][]domain.CalendarEvent{a, b}, custom, loc).All()
	second := Aggregate([][]domain.CalendarEvent{b, {a[1], a[0]}}, reversed, loc).All()

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Errorf("position %d: %s vs %s", i, first[i].Key(), second[i].Key())
		}
	}

	// Same instant: ordered by source type, then id.
	want := []string{"incident:i1", "custom:c1", "custom:c2", "document:d1", "mission:m1", "mission:m2"}
	for i, key := range want {
		if first[i].Key() != key {
			t.Errorf("position %d = %s, want %s", i, first[i].Key(), key)
		}
	}
}

func TestAggregateIsComplete(t *testing.T) {
	loc := time.UTC
	var batches [][]domain.CalendarEvent
	total := 0
	for i, src := range domain.DerivedSources {
		var batch []domain.CalendarEvent
		for j := 0; j <= i; j++ {
			batch = append(batch, event(src, string(rune('a'+j)), "x", at(loc, 2025, 1, 1+j, 0, 0)))
			total++
		}
		batches = append(batches, batch)
	}
	custom := []*domain.CustomEvent{{ID: "c1", Title: "x", Date: "2025-01-01"}}
	total++

	view := Aggregate(batches, custom, loc)
	if view.Len() != total {
		t.Errorf("Len = %d, want %d", view.Len(), total)
	}
	for _, b := range batches {
		for _, ev := range b {
			if _, ok := view.Find(ev.SourceType, ev.SourceID); !ok {
				t.Errorf("missing %s", ev.Key())
			}
		}
	}
}

func TestAggregateSkipsMalformedCustomRows(t *testing.T) {
	custom := []*domain.CustomEvent{
		{ID: "ok", Title: "x", Date: "2025-01-01"},
		{ID: "bad", Title: "y", Date: "01.01.2025"},
		nil,
	}
	view := Aggregate(nil, custom, time.UTC)
	if view.Len() != 1 {
		t.Errorf("Len = %d, want 1", view.Len())
	}
}

func TestDayBucketingUsesViewLocation(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)

	// 23:30 local on the 10th is 22:30 UTC, and 00:15 local on the 11th is
	// still the 10th in UTC.
	late := event(domain.SourceMission, "m1", "Sen", at(loc, 2025, 3, 10, 23, 30))
	early := event(domain.SourceMission, "m2", "Tidlig", at(loc, 2025, 3, 11, 0, 15))
	view := Aggregate([][]domain.CalendarEvent{{late, early}}, nil, loc)

	on10 := view.EventsOnDate(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	if len(on10) != 1 || on10[0].SourceID != "m1" {
		t.Errorf("10th = %v", on10)
	}
	on11 := view.EventsOnDate(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC))
	if len(on11) != 1 || on11[0].SourceID != "m2" {
		t.Errorf("11th = %v", on11)
	}

	for _, ev := range view.All() {
		day := ev.OccursAt.In(loc)
		if !view.HasEventsOnDate(day) {
			t.Errorf("HasEventsOnDate(%v) = false", day)
		}
	}
	if view.HasEventsOnDate(at(loc, 2025, 3, 12, 0, 0)) {
		t.Error("HasEventsOnDate true for empty day")
	}
}

func TestDaysWithEventsAndRange(t *testing.T) {
	loc := time.UTC
	view := Aggregate([][]domain.CalendarEvent{{
		event(domain.SourceMission, "m1", "a", at(loc, 2025, 2, 28, 10, 0)),
		event(domain.SourceMission, "m2", "b", at(loc, 2025, 3, 3, 10, 0)),
		event(domain.SourceMission, "m3", "c", at(loc, 2025, 3, 3, 15, 0)),
		event(domain.SourceMission, "m4", "d", at(loc, 2025, 3, 31, 23, 59)),
		event(domain.SourceMission, "m5", "e", at(loc, 2025, 4, 1, 0, 0)),
	}}, nil, loc)

	days := view.DaysWithEvents(2025, time.March)
	if len(days) != 2 || days[0] != 3 || days[1] != 31 {
		t.Errorf("DaysWithEvents = %v", days)
	}

	r := view.EventsInRange(at(loc, 2025, 3, 3, 10, 0), at(loc, 2025, 3, 3, 15, 0))
	if len(r) != 1 || r[0].SourceID != "m2" {
		t.Errorf("EventsInRange is not half-open: %v", r)
	}
}
