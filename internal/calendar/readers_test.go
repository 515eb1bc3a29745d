package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
)

type fakeStore struct {
	missions  []*domain.Mission
	documents []*domain.Document
	err       error
	company   string
}

func (s *fakeStore) ListScheduledMissions(ctx context.Context, companyID string) ([]*domain.Mission, error) {
	s.company = companyID
	return s.missions, s.err
}

func (s *fakeStore) ListExpiringDocuments(ctx context.Context, companyID string) ([]*domain.Document, error) {
	s.company = companyID
	return s.documents, s.err
}

func (s *fakeStore) ListDronesDueInspection(ctx context.Context, companyID string) ([]*domain.Drone, error) {
	return nil, s.err
}

func (s *fakeStore) ListEquipmentDueMaintenance(ctx context.Context, companyID string) ([]*domain.Equipment, error) {
	return nil, s.err
}

func (s *fakeStore) ListDatedIncidents(ctx context.Context, companyID string) ([]*domain.Incident, error) {
	return nil, s.err
}

func TestReaderDropsMalformedRows(t *testing.T) {
	store := &fakeStore{missions: []*domain.Mission{
		{ID: "m1", Title: "OK", StartsAt: strPtr("2025-03-10T09:00:00")},
		{ID: "m2", Title: "Ugyldig", StartsAt: strPtr("neste uke")},
		{ID: "m3", Title: "Uten tid"},
		nil,
	}}

	events, err := MissionReader(store, time.UTC).ListEvents(context.Background(), testTenant)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].SourceID != "m1" {
		t.Errorf("events = %v", events)
	}
	if store.company != "c1" {
		t.Errorf("queried company %q", store.company)
	}
}

func TestReaderErrors(t *testing.T) {
	boom := errors.New("db down")
	store := &fakeStore{err: boom}
	r := DocumentReader(store, time.UTC)

	if _, err := r.ListEvents(context.Background(), testTenant); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
	if _, err := r.ListEvents(context.Background(), domain.Tenant{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestNewReadersCoverDerivedSources(t *testing.T) {
	readers := NewReaders(&fakeStore{}, time.UTC)
	if len(readers) != len(domain.DerivedSources) {
		t.Fatalf("got %d readers", len(readers))
	}
	for i, src := range domain.DerivedSources {
		if readers[i].Source() != src {
			t.Errorf("reader %d serves %s, want %s", i, readers[i].Source(), src)
		}
	}
}
