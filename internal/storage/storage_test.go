package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/realtime"
)

type recorder struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recorder) Publish(c realtime.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) last() realtime.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[len(r.changes)-1]
}

func newTestStorage(t *testing.T) (*Storage, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := New(filepath.Join(t.TempDir(), "db", "test.db"), rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, rec
}

func strPtr(s string) *string { return &s }

func TestCalendarEventLifecycle(t *testing.T) {
	ctx := context.Background()
	s, rec := newTestStorage(t)

	e := &domain.CustomEvent{
		CompanyID: "c1",
		UserID:    "u1",
		Title:     "Møte",
		Type:      "Møte",
		Date:      "2025-03-10",
		Time:      strPtr("14:00"),
	}
	if err := s.CreateCalendarEvent(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if c := rec.last(); c.Kind != realtime.Insert || c.Table != realtime.TableCalendarEvents || c.RowID != e.ID {
		t.Errorf("unexpected change %+v", c)
	}

	got, err := s.GetCalendarEvent(ctx, "c1", e.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Time == nil || *got.Time != "14:00" || got.Description != nil {
		t.Errorf("unexpected row %+v", got)
	}

	if other, _ := s.GetCalendarEvent(ctx, "c2", e.ID); other != nil {
		t.Error("row visible to another company")
	}

	got.Title = "Flyttet møte"
	ok, err := s.UpdateCalendarEvent(ctx, got)
	if err != nil || !ok {
		t.Fatalf("update: %v %v", ok, err)
	}
	c := rec.last()
	newRow, oldRow := realtime.Decode[domain.CustomEvent](c)
	if c.Kind != realtime.Update || newRow.Title != "Flyttet møte" || oldRow.Title != "Møte" {
		t.Errorf("unexpected update change %+v", c)
	}

	ok, err = s.DeleteCalendarEvent(ctx, "c2", e.ID)
	if err != nil || ok {
		t.Fatalf("cross-company delete: %v %v", ok, err)
	}
	ok, err = s.DeleteCalendarEvent(ctx, "c1", e.ID)
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if c := rec.last(); c.Kind != realtime.Delete || c.New != nil || c.Old == nil {
		t.Errorf("unexpected delete change %+v", c)
	}

	list, err := s.ListCalendarEvents(ctx, "c1")
	if err != nil || len(list) != 0 {
		t.Errorf("list after delete: %v %v", list, err)
	}
}

func TestListsApplyDatePredicateAndTenant(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	docs := []*domain.Document{
		{CompanyID: "c1", Title: "Forsikring", ValidUntil: strPtr("2025-03-10")},
		{CompanyID: "c1", Title: "Håndbok"},
		{CompanyID: "c2", Title: "Annet selskap", ValidUntil: strPtr("2025-03-11")},
	}
	for _, d := range docs {
		if err := s.CreateDocument(ctx, d); err != nil {
			t.Fatalf("create document: %v", err)
		}
	}

	got, err := s.ListExpiringDocuments(ctx, "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Forsikring" {
		t.Errorf("got %+v", got)
	}

	if err := s.CreateMission(ctx, &domain.Mission{CompanyID: "c1", Title: "Inspeksjon Oslo", StartsAt: strPtr("2025-03-10T09:00")}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateMission(ctx, &domain.Mission{CompanyID: "c1", Title: "Uten tid"}); err != nil {
		t.Fatal(err)
	}
	missions, err := s.ListScheduledMissions(ctx, "c1")
	if err != nil || len(missions) != 1 || missions[0].Status != domain.MissionPlanned {
		t.Errorf("missions = %+v, err = %v", missions, err)
	}
}

func TestUpdateAndDeleteSourceRowsPublish(t *testing.T) {
	ctx := context.Background()
	s, rec := newTestStorage(t)

	d := &domain.Drone{CompanyID: "c1", Model: "DJI M30", NextInspection: strPtr("2025-04-01")}
	if err := s.CreateDrone(ctx, d); err != nil {
		t.Fatal(err)
	}
	d.NextInspection = nil
	if err := s.UpdateDrone(ctx, d); err != nil {
		t.Fatal(err)
	}
	if c := rec.last(); c.Table != realtime.TableDrones || c.Kind != realtime.Update {
		t.Errorf("unexpected change %+v", c)
	}
	due, err := s.ListDronesDueInspection(ctx, "c1")
	if err != nil || len(due) != 0 {
		t.Errorf("due = %+v, err = %v", due, err)
	}

	i := &domain.Incident{CompanyID: "c1", Title: "Nødlanding", OccurredAt: strPtr("2025-03-09T12:30:00+01:00")}
	if err := s.CreateIncident(ctx, i); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteIncident(ctx, "c1", i.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetIncident(ctx, "c1", i.ID); got != nil {
		t.Error("incident still present")
	}
	if c := rec.last(); c.Table != realtime.TableIncidents || c.Kind != realtime.Delete {
		t.Errorf("unexpected change %+v", c)
	}
}
