package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
)

// fakeReader serves a fixed contribution. When gate is set, ListEvents
// blocks until the gate is closed, ignoring its context.
type fakeReader struct {
	src domain.SourceType

	mu     sync.Mutex
	events []domain.CalendarEvent
	err    error
	gate   chan struct{}
	calls  int
}

func newFakeReader(src domain.SourceType, events ...domain.CalendarEvent) *fakeReader {
	return &fakeReader{src: src, events: events}
}

func (r *fakeReader) Source() domain.SourceType { return r.src }

func (r *fakeReader) ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.CalendarEvent, error) {
	r.mu.Lock()
	r.calls++
	gate := r.gate
	events := append([]domain.CalendarEvent(nil), r.events...)
	err := r.err
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return events, err
}

func (r *fakeReader) set(events []domain.CalendarEvent, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = events
	r.err = err
}

func (r *fakeReader) block() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	return r.gate
}

func (r *fakeReader) unblock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = nil
}

func (r *fakeReader) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeCustom is an in-memory CustomLister. entered is signalled on every
// call so tests can interleave notifications with an in-flight read.
type fakeCustom struct {
	mu      sync.Mutex
	rows    []*domain.CustomEvent
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (c *fakeCustom) ListCustom(ctx context.Context, tenant domain.Tenant) ([]*domain.CustomEvent, error) {
	c.mu.Lock()
	rows := append([]*domain.CustomEvent(nil), c.rows...)
	err := c.err
	gate := c.gate
	entered := c.entered
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return rows, err
}

type fakeFetcher struct {
	mu        sync.Mutex
	missions  map[string]*domain.Mission
	documents map[string]*domain.Document
	drones    map[string]*domain.Drone
	equipment map[string]*domain.Equipment
	incidents map[string]*domain.Incident
	calls     int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		missions:  map[string]*domain.Mission{},
		documents: map[string]*domain.Document{},
		drones:    map[string]*domain.Drone{},
		equipment: map[string]*domain.Equipment{},
		incidents: map[string]*domain.Incident{},
	}
}

func (f *fakeFetcher) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeFetcher) GetMission(ctx context.Context, companyID, id string) (*domain.Mission, error) {
	f.count()
	return f.missions[id], nil
}

func (f *fakeFetcher) GetDocument(ctx context.Context, companyID, id string) (*domain.Document, error) {
	f.count()
	return f.documents[id], nil
}

func (f *fakeFetcher) GetDrone(ctx context.Context, companyID, id string) (*domain.Drone, error) {
	f.count()
	return f.drones[id], nil
}

func (f *fakeFetcher) GetEquipment(ctx context.Context, companyID, id string) (*domain.Equipment, error) {
	f.count()
	return f.equipment[id], nil
}

func (f *fakeFetcher) GetIncident(ctx context.Context, companyID, id string) (*domain.Incident, error) {
	f.count()
	return f.incidents[id], nil
}

type recordingToaster struct {
	infos  []string
	errors []string
}

func (t *recordingToaster) Info(msg string)  { t.infos = append(t.infos, msg) }
func (t *recordingToaster) Error(msg string) { t.errors = append(t.errors, msg) }

type recordingDialogs struct {
	opened []string
}

func (d *recordingDialogs) OpenMission(m *domain.Mission)   { d.opened = append(d.opened, "mission:"+m.ID) }
func (d *recordingDialogs) OpenDocument(x *domain.Document) { d.opened = append(d.opened, "document:"+x.ID) }
func (d *recordingDialogs) OpenIncident(i *domain.Incident) { d.opened = append(d.opened, "incident:"+i.ID) }

type recordingCreation struct {
	kind CreationKind
	date time.Time
	done func()
}

func (c *recordingCreation) OpenCreate(kind CreationKind, date time.Time, done func()) {
	c.kind = kind
	c.date = date
	c.done = done
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []RefreshReport
}

func (n *recordingNotifier) NotifyRefreshFailures(tenant domain.Tenant, report RefreshReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reports)
}

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func event(src domain.SourceType, id, title string, when time.Time) domain.CalendarEvent {
	return domain.CalendarEvent{SourceType: src, SourceID: id, Title: title, OccursAt: when}
}

func strPtr(s string) *string { return &s }

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(time.Millisecond)
	}
}
