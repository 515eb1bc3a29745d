package calendar

import (
	"context"
	"sort"
	"sync"

	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/realtime"
)

// Dashboard keeps one mounted Live view per company.
type Dashboard struct {
	readers []Reader
	custom  CustomLister
	feed    realtime.Feed
	opts    Options

	mu    sync.Mutex
	views map[string]*mount
}

// mount is a registry entry. ready is closed once the initial load of live
// has settled.
type mount struct {
	live  *Live
	ready chan struct{}
}

func NewDashboard(readers []Reader, custom CustomLister, feed realtime.Feed, opts Options) *Dashboard {
	return &Dashboard{
		readers: readers,
		custom:  custom,
		feed:    feed,
		opts:    opts.normalized(),
		views:   make(map[string]*mount),
	}
}

// Options returns the options mounted views are created with.
func (d *Dashboard) Options() Options { return d.opts }

// Mount returns the live view of the tenant's company, creating and loading
// it on first use. Callers arriving while the initial load is running wait
// for it. The report lists the sources currently failing; a view that has
// never read every source is refreshed again before it is returned.
// Loads ignore ctx cancellation and are bounded by the read timeout.
func (d *Dashboard) Mount(ctx context.Context, tenant domain.Tenant) (*Live, RefreshReport, error) {
	d.mu.Lock()
	if m, ok := d.views[tenant.CompanyID]; ok {
		d.mu.Unlock()
		select {
		case <-m.ready:
		case <-ctx.Done():
			return nil, RefreshReport{}, ctx.Err()
		}
		if !m.live.Loaded() {
			return m.live, m.live.Refresh(context.WithoutCancel(ctx)), nil
		}
		return m.live, m.live.Status(), nil
	}
	l, err := NewLive(tenant, d.readers, d.custom, d.feed, d.opts)
	if err != nil {
		d.mu.Unlock()
		return nil, RefreshReport{}, err
	}
	m := &mount{live: l, ready: make(chan struct{})}
	d.views[tenant.CompanyID] = m
	d.mu.Unlock()

	defer close(m.ready)
	return l, l.Start(context.WithoutCancel(ctx)), nil
}

// Unmount tears down the company's view and its subscriptions.
func (d *Dashboard) Unmount(companyID string) {
	d.mu.Lock()
	m, ok := d.views[companyID]
	delete(d.views, companyID)
	d.mu.Unlock()

	if ok {
		m.live.Close()
	}
}

// Mounted returns the mounted views ordered by company.
func (d *Dashboard) Mounted() []*Live {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*Live, 0, len(d.views))
	for _, m := range d.views {
		out = append(out, m.live)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].tenant.CompanyID < out[j].tenant.CompanyID })
	return out
}

// RefreshAll runs a full refresh of every mounted view.
func (d *Dashboard) RefreshAll(ctx context.Context) map[string]RefreshReport {
	reports := make(map[string]RefreshReport)
	for _, l := range d.Mounted() {
		reports[l.tenant.CompanyID] = l.Refresh(ctx)
	}
	return reports
}

func (d *Dashboard) Close() {
	d.mu.Lock()
	views := d.views
	d.views = make(map[string]*mount)
	d.mu.Unlock()

	for _, m := range views {
		m.live.Close()
	}
}
