package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/realtime"
)

const DefaultReadTimeout = 10 * time.Second

// tables maps every watched table to the source whose contribution it feeds.
var tables = map[realtime.Table]domain.SourceType{
	realtime.TableMissions:       domain.SourceMission,
	realtime.TableDocuments:      domain.SourceDocument,
	realtime.TableDrones:         domain.SourceDrone,
	realtime.TableEquipment:      domain.SourceEquipment,
	realtime.TableIncidents:      domain.SourceIncident,
	realtime.TableCalendarEvents: domain.SourceCustom,
}

// SourceFailure reports that one source could not be read. The source keeps
// its previous contribution.
type SourceFailure struct {
	Source domain.SourceType
	Err    error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("read %s: %v", f.Source, f.Err)
}

func (f SourceFailure) Unwrap() error { return f.Err }

// RefreshReport summarises one refresh cycle.
type RefreshReport struct {
	Generation uint64
	Failures   []SourceFailure
}

func (r RefreshReport) OK() bool { return len(r.Failures) == 0 }

// Message is the single user-facing line for a refresh with failures.
func (r RefreshReport) Message() string {
	if r.OK() {
		return ""
	}
	names := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		names = append(names, string(f.Source))
	}
	return "Kunne ikke oppdatere: " + strings.Join(names, ", ")
}

// FailureNotifier is told once per refresh that had failing sources.
type FailureNotifier interface {
	NotifyRefreshFailures(tenant domain.Tenant, report RefreshReport)
}

type Options struct {
	Location    *time.Location
	ReadTimeout time.Duration
	Notifier    FailureNotifier
}

func (o Options) normalized() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	return o
}

// Live keeps the aggregated calendar of one tenant current. It owns each
// source's contribution and the custom rows; change notifications are its
// only writers besides explicit refreshes.
type Live struct {
	tenant  domain.Tenant
	readers map[domain.SourceType]Reader
	custom  CustomLister
	feed    realtime.Feed
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	contributions map[domain.SourceType][]domain.CalendarEvent
	customRows    []*domain.CustomEvent
	started       map[domain.SourceType]uint64
	applied       map[domain.SourceType]uint64
	failing       map[domain.SourceType]SourceFailure
	generation    uint64
	view          *View
	unsubs        []realtime.Unsubscribe
	closed        bool

	pending sync.WaitGroup
}

func NewLive(tenant domain.Tenant, readers []Reader, custom CustomLister, feed realtime.Feed, opts Options) (*Live, error) {
	if tenant.CompanyID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if custom == nil {
		return nil, errors.New("custom event lister is required")
	}

	l := &Live{
		tenant:        tenant,
		readers:       make(map[domain.SourceType]Reader, len(readers)),
		custom:        custom,
		feed:          feed,
		opts:          opts.normalized(),
		contributions: make(map[domain.SourceType][]domain.CalendarEvent),
		started:       make(map[domain.SourceType]uint64),
		applied:       make(map[domain.SourceType]uint64),
		failing:       make(map[domain.SourceType]SourceFailure),
	}
	for _, r := range readers {
		l.readers[r.Source()] = r
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l, nil
}

func (l *Live) Tenant() domain.Tenant { return l.tenant }

// Start subscribes to the change feed and performs the initial full refresh.
// Subscribing first means changes committed during the initial load are not lost.
func (l *Live) Start(ctx context.Context) RefreshReport {
	l.subscribe()
	return l.Refresh(ctx)
}

func (l *Live) subscribe() {
	if l.feed == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.unsubs) > 0 {
		return
	}
	for table, src := range tables {
		table, src := table, src
		if src == domain.SourceCustom {
			l.unsubs = append(l.unsubs, l.feed.Subscribe(table, l.onCustomChange))
			continue
		}
		l.unsubs = append(l.unsubs, l.feed.Subscribe(table, func(c realtime.Change) { l.onSourceChange(src, c) }))
	}
}

// Close deregisters every subscription and stops background reloads.
func (l *Live) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	unsubs := l.unsubs
	l.unsubs = nil
	l.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	l.cancel()
	l.pending.Wait()
}

// Wait blocks until notification-triggered reloads have finished.
func (l *Live) Wait() {
	l.pending.Wait()
}

// Generation increases every time the aggregated view changes.
func (l *Live) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Snapshot returns the current aggregated view.
func (l *Live) Snapshot() *View {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.view == nil {
		batches := make([][]domain.CalendarEvent, 0, len(domain.DerivedSources))
		for _, src := range domain.DerivedSources {
			batches = append(batches, l.contributions[src])
		}
		l.view = Aggregate(batches, l.customRows, l.opts.Location)
	}
	return l.view
}

// Status reports the sources whose most recent read failed. Their events in
// the view are the last ones read successfully, if any.
func (l *Live) Status() RefreshReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	report := RefreshReport{Generation: l.generation}
	for _, src := range l.sources() {
		if f, ok := l.failing[src]; ok {
			report.Failures = append(report.Failures, f)
		}
	}
	return report
}

// Loaded reports whether every source has been read successfully at least once.
func (l *Live) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, src := range l.sources() {
		if l.applied[src] == 0 {
			return false
		}
	}
	return true
}

// sources lists the readable sources in aggregation order, custom last.
func (l *Live) sources() []domain.SourceType {
	sources := make([]domain.SourceType, 0, len(domain.DerivedSources)+1)
	for _, src := range domain.DerivedSources {
		if _, ok := l.readers[src]; ok {
			sources = append(sources, src)
		}
	}
	return append(sources, domain.SourceCustom)
}

type loadResult struct {
	source domain.SourceType
	ticket uint64
	events []domain.CalendarEvent
	rows   []*domain.CustomEvent
	err    error
}

// Refresh reloads every source concurrently and applies the results together
// once all reads have settled. Failed sources keep their previous contribution.
func (l *Live) Refresh(ctx context.Context) RefreshReport {
	sources := l.sources()

	tickets := make(map[domain.SourceType]uint64, len(sources))
	l.mu.Lock()
	for _, src := range sources {
		l.started[src]++
		tickets[src] = l.started[src]
	}
	l.mu.Unlock()

	results := make([]loadResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domain.SourceType) {
			defer wg.Done()
			results[i] = l.load(ctx, src, tickets[src])
		}(i, src)
	}
	wg.Wait()

	report := l.apply(results...)
	l.notify(report)
	return report
}

// RefreshSource reloads a single source and replaces its contribution wholesale.
func (l *Live) RefreshSource(ctx context.Context, src domain.SourceType) error {
	if src != domain.SourceCustom {
		if _, ok := l.readers[src]; !ok {
			return fmt.Errorf("no reader for %s", src)
		}
	}

	l.mu.Lock()
	l.started[src]++
	ticket := l.started[src]
	l.mu.Unlock()

	report := l.apply(l.load(ctx, src, ticket))
	l.notify(report)
	if !report.OK() {
		return report.Failures[0]
	}
	return nil
}

// load runs one source read bounded by the read timeout. A reader that
// ignores its context is abandoned when the deadline passes.
func (l *Live) load(ctx context.Context, src domain.SourceType, ticket uint64) loadResult {
	ctx, cancel := context.WithTimeout(ctx, l.opts.ReadTimeout)
	defer cancel()

	done := make(chan loadResult, 1)
	go func() {
		res := loadResult{source: src, ticket: ticket}
		if src == domain.SourceCustom {
			res.rows, res.err = l.custom.ListCustom(ctx, l.tenant)
		} else {
			res.events, res.err = l.readers[src].ListEvents(ctx, l.tenant)
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return loadResult{source: src, ticket: ticket, err: ctx.Err()}
	}
}

// apply installs completed loads whose ticket is newer than the last applied
// one for that source. Older loads finishing late are discarded.
func (l *Live) apply(results ...loadResult) RefreshReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	var report RefreshReport
	changed := false
	for _, res := range results {
		if res.err != nil {
			log.Printf("calendar: company %s: read %s failed: %v", l.tenant.CompanyID, res.source, res.err)
			f := SourceFailure{Source: res.source, Err: res.err}
			report.Failures = append(report.Failures, f)
			if res.ticket > l.applied[res.source] {
				l.failing[res.source] = f
			}
			continue
		}
		if l.closed || res.ticket <= l.applied[res.source] {
			continue
		}
		l.applied[res.source] = res.ticket
		delete(l.failing, res.source)
		if res.source == domain.SourceCustom {
			l.customRows = res.rows
		} else {
			l.contributions[res.source] = res.events
		}
		changed = true
	}
	if changed {
		l.invalidate()
	}
	report.Generation = l.generation
	return report
}

func (l *Live) notify(report RefreshReport) {
	if report.OK() || l.opts.Notifier == nil {
		return
	}
	l.opts.Notifier.NotifyRefreshFailures(l.tenant, report)
}

// invalidate must be called with mu held.
func (l *Live) invalidate() {
	l.generation++
	l.view = nil
}

func (l *Live) onSourceChange(src domain.SourceType, c realtime.Change) {
	if c.CompanyID != l.tenant.CompanyID {
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pending.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.pending.Done()
		if err := l.RefreshSource(l.ctx, src); err != nil {
			log.Printf("calendar: reload %s after %s on %s: %v", src, c.Kind, c.Table, err)
		}
	}()
}

// onCustomChange patches the custom rows in place. The custom ticket is
// bumped so a full reload that started before this change cannot undo it.
func (l *Live) onCustomChange(c realtime.Change) {
	if c.CompanyID != l.tenant.CompanyID {
		return
	}
	newRow, oldRow := realtime.Decode[domain.CustomEvent](c)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	switch c.Kind {
	case realtime.Insert, realtime.Update:
		if newRow == nil {
			log.Printf("calendar: %s on %s without row payload", c.Kind, c.Table)
			return
		}
		row := *newRow
		l.customRows = upsertRow(l.customRows, &row)
	case realtime.Delete:
		id := c.RowID
		if id == "" && oldRow != nil {
			id = oldRow.ID
		}
		l.customRows = removeRow(l.customRows, id)
	default:
		return
	}

	l.started[domain.SourceCustom]++
	l.applied[domain.SourceCustom] = l.started[domain.SourceCustom]
	l.invalidate()
}

func upsertRow(rows []*domain.CustomEvent, row *domain.CustomEvent) []*domain.CustomEvent {
	out := make([]*domain.CustomEvent, 0, len(rows)+1)
	replaced := false
	for _, r := range rows {
		if r.ID == row.ID {
			out = append(out, row)
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, row)
	}
	return out
}

func removeRow(rows []*domain.CustomEvent, id string) []*domain.CustomEvent {
	out := make([]*domain.CustomEvent, 0, len(rows))
	for _, r := range rows {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
