package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/realtime"
)

func TestDashboardMountsOneViewPerCompany(t *testing.T) {
	hub := realtime.NewHub()
	reader := newFakeReader(domain.SourceMission, event(domain.SourceMission, "m1", "x", at(time.UTC, 2025, 3, 10, 9, 0)))
	d := NewDashboard([]Reader{reader}, &fakeCustom{}, hub, Options{Location: time.UTC})
	defer d.Close()
	ctx := context.Background()

	a, report, err := d.Mount(ctx, domain.Tenant{CompanyID: "b", UserID: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() || a.Snapshot().Len() != 1 {
		t.Fatalf("initial load: report=%v len=%d", report, a.Snapshot().Len())
	}

	again, _, err := d.Mount(ctx, domain.Tenant{CompanyID: "b", UserID: "other"})
	if err != nil {
		t.Fatal(err)
	}
	if again != a {
		t.Error("second mount created a new view")
	}

	if _, _, err := d.Mount(ctx, domain.Tenant{CompanyID: "a", UserID: "u"}); err != nil {
		t.Fatal(err)
	}
	mounted := d.Mounted()
	if len(mounted) != 2 || mounted[0].Tenant().CompanyID != "a" {
		t.Errorf("Mounted = %v", mounted)
	}

	reports := d.RefreshAll(ctx)
	if len(reports) != 2 {
		t.Errorf("RefreshAll returned %d reports", len(reports))
	}

	d.Unmount("b")
	if len(d.Mounted()) != 1 {
		t.Error("unmount did not remove the view")
	}
	if hub.Subscribers(realtime.TableMissions) != 1 {
		t.Errorf("subscribers = %d after unmount", hub.Subscribers(realtime.TableMissions))
	}

	d.Close()
	if hub.Subscribers(realtime.TableMissions) != 0 {
		t.Error("close left subscriptions behind")
	}
}

func TestDashboardRejectsAnonymousMount(t *testing.T) {
	d := NewDashboard(nil, &fakeCustom{}, realtime.NewHub(), Options{})
	if _, _, err := d.Mount(context.Background(), domain.Tenant{}); err == nil {
		t.Error("expected error")
	}
	if len(d.Mounted()) != 0 {
		t.Error("failed mount was registered")
	}
}

type mountResult struct {
	live   *Live
	report RefreshReport
	err    error
}

func mountAsync(d *Dashboard, tenant domain.Tenant) <-chan mountResult {
	ch := make(chan mountResult, 1)
	go func() {
		l, r, err := d.Mount(context.Background(), tenant)
		ch <- mountResult{live: l, report: r, err: err}
	}()
	return ch
}

func TestDashboardConcurrentMountWaitsForInitialLoad(t *testing.T) {
	day := at(time.UTC, 2025, 3, 10, 0, 0)
	reader := newFakeReader(domain.SourceMission, event(domain.SourceMission, "m1", "Inspeksjon", at(time.UTC, 2025, 3, 10, 9, 0)))
	gate := reader.block()
	d := NewDashboard([]Reader{reader}, &fakeCustom{}, realtime.NewHub(), Options{Location: time.UTC})
	defer d.Close()

	first := mountAsync(d, domain.Tenant{CompanyID: "c1", UserID: "u1"})
	waitFor(t, func() bool { return reader.callCount() == 1 })
	second := mountAsync(d, domain.Tenant{CompanyID: "c1", UserID: "u2"})

	select {
	case res := <-second:
		t.Fatalf("second mount returned during the initial load (err=%v)", res.err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	for i, ch := range []<-chan mountResult{first, second} {
		res := <-ch
		if res.err != nil {
			t.Fatalf("mount %d: %v", i, res.err)
		}
		if !res.report.OK() {
			t.Errorf("mount %d: failures %v", i, res.report.Failures)
		}
		if n := len(res.live.Snapshot().EventsOnDate(day)); n != 1 {
			t.Errorf("mount %d: %d events on the 10th, want 1", i, n)
		}
	}
	if reader.callCount() != 1 {
		t.Errorf("reader called %d times, want 1", reader.callCount())
	}
}

func TestDashboardMountOutlivesCancelledRequest(t *testing.T) {
	reader := newFakeReader(domain.SourceMission, event(domain.SourceMission, "m1", "Inspeksjon", at(time.UTC, 2025, 3, 10, 9, 0)))
	d := NewDashboard([]Reader{reader}, &fakeCustom{}, realtime.NewHub(), Options{Location: time.UTC})
	defer d.Close()
	tenant := domain.Tenant{CompanyID: "c1", UserID: "u1"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l, report, err := d.Mount(ctx, tenant)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Errorf("initial load failed with a cancelled request: %v", report.Failures)
	}
	if l.Snapshot().Len() != 1 {
		t.Errorf("Len = %d after first mount", l.Snapshot().Len())
	}

	again, report, err := d.Mount(context.Background(), tenant)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() || again.Snapshot().Len() != 1 {
		t.Errorf("second mount: failures=%v len=%d", report.Failures, again.Snapshot().Len())
	}
}

func TestDashboardRetriesViewThatNeverLoaded(t *testing.T) {
	ev := event(domain.SourceMission, "m1", "Inspeksjon", at(time.UTC, 2025, 3, 10, 9, 0))
	reader := newFakeReader(domain.SourceMission)
	reader.set(nil, errors.New("database is locked"))
	d := NewDashboard([]Reader{reader}, &fakeCustom{}, realtime.NewHub(), Options{Location: time.UTC})
	defer d.Close()
	tenant := domain.Tenant{CompanyID: "c1", UserID: "u1"}
	ctx := context.Background()

	l, report, err := d.Mount(ctx, tenant)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() || l.Snapshot().Len() != 0 {
		t.Fatalf("first mount: failures=%v len=%d", report.Failures, l.Snapshot().Len())
	}

	_, report, _ = d.Mount(ctx, tenant)
	if !strings.Contains(report.Message(), "mission") {
		t.Errorf("later mount lost the warning: %q", report.Message())
	}

	reader.set([]domain.CalendarEvent{ev}, nil)
	_, report, _ = d.Mount(ctx, tenant)
	if !report.OK() || l.Snapshot().Len() != 1 {
		t.Errorf("recovered mount: failures=%v len=%d", report.Failures, l.Snapshot().Len())
	}

	calls := reader.callCount()
	if _, _, err := d.Mount(ctx, tenant); err != nil {
		t.Fatal(err)
	}
	if reader.callCount() != calls {
		t.Error("loaded view was read again on mount")
	}
}
