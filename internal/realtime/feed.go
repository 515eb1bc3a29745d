// Package realtime carries row-level change notifications from storage to
// live views. Consumers depend on Feed only; Hub is the in-process
// implementation used by the sqlite storage.
package realtime

import (
	"log"
	"sort"
	"sync"
	"time"
)

// Table is the name of a table that emits change notifications.
type Table string

const (
	TableMissions       Table = "missions"
	TableDocuments      Table = "documents"
	TableDrones         Table = "drones"
	TableEquipment      Table = "equipment"
	TableIncidents      Table = "incidents"
	TableCalendarEvents Table = "calendar_events"
)

// Kind is the type of row change.
type Kind string

const (
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
)

// Change describes a single committed row change.
type Change struct {
	Table     Table
	Kind      Kind
	CompanyID string
	RowID     string
	New       any // nil on delete
	Old       any // nil on insert
	At        time.Time
}

// Handler receives changes for one table.
type Handler func(Change)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Feed delivers changes for a table to subscribers.
type Feed interface {
	Subscribe(table Table, fn Handler) Unsubscribe
}

// Publisher is implemented by anything storage can announce changes to.
type Publisher interface {
	Publish(c Change)
}

// Decode extracts typed rows from a change. Either result may be nil.
func Decode[R any](c Change) (newRow, oldRow *R) {
	newRow = asRow[R](c.New)
	oldRow = asRow[R](c.Old)
	return newRow, oldRow
}

func asRow[R any](v any) *R {
	switch r := v.(type) {
	case *R:
		return r
	case R:
		return &r
	}
	return nil
}

type subscription struct {
	id uint64
	fn Handler
}

// Hub is an in-process Feed and Publisher. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[Table]map[uint64]Handler
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Table]map[uint64]Handler)}
}

func (h *Hub) Subscribe(table Table, fn Handler) Unsubscribe {
	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[table] == nil {
		h.subs[table] = make(map[uint64]Handler)
	}
	h.subs[table][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[table], id)
			if len(h.subs[table]) == 0 {
				delete(h.subs, table)
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(c Change) {
	if c.At.IsZero() {
		c.At = time.Now()
	}

	h.mu.RLock()
	handlers := make([]subscription, 0, len(h.subs[c.Table]))
	for id, fn := range h.subs[c.Table] {
		handlers = append(handlers, subscription{id: id, fn: fn})
	}
	h.mu.RUnlock()

	sort.Slice(handlers, func(i, j int) bool { return handlers[i].id < handlers[j].id })
	for _, s := range handlers {
		deliver(s.fn, c)
	}
}

// Subscribers returns the number of live subscriptions for a table.
func (h *Hub) Subscribers(table Table) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

// deliver keeps one failing handler from taking down the publisher.
func deliver(fn Handler, c Change) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("realtime: handler for %s %s panicked: %v", c.Table, c.Kind, r)
		}
	}()
	fn(c)
}
