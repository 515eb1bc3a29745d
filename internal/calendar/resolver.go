package calendar

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tazhate/dronecal/internal/domain"
)

// ActionKind is the outcome of resolving a calendar click.
type ActionKind string

const (
	ActionOpened ActionKind = "opened"
	ActionInfo   ActionKind = "info"
	ActionFailed ActionKind = "failed"
)

// ReasonNotFound is reported when the clicked event's source row no longer exists.
const ReasonNotFound = "not found"

// ResolvedAction tells the caller what a click led to.
type ResolvedAction struct {
	Kind       ActionKind        `json:"kind"`
	EntityType domain.SourceType `json:"entity_type,omitempty"`
	Record     any               `json:"record,omitempty"`
	Message    string            `json:"message,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}

// ClickState is the resolver's position in the click state machine.
type ClickState string

const (
	StateIdle      ClickState = "idle"
	StateResolving ClickState = "resolving"
	StateOpened    ClickState = "opened"
	StateInfo      ClickState = "info"
	StateFailed    ClickState = "failed"
)

// RecordFetcher loads the authoritative row behind a derived event. A
// missing row is reported as (nil, nil).
type RecordFetcher interface {
	GetMission(ctx context.Context, companyID, id string) (*domain.Mission, error)
	GetDocument(ctx context.Context, companyID, id string) (*domain.Document, error)
	GetDrone(ctx context.Context, companyID, id string) (*domain.Drone, error)
	GetEquipment(ctx context.Context, companyID, id string) (*domain.Equipment, error)
	GetIncident(ctx context.Context, companyID, id string) (*domain.Incident, error)
}

// DetailDialogs shows full records. Only missions, documents and incidents
// have dedicated viewers.
type DetailDialogs interface {
	OpenMission(m *domain.Mission)
	OpenDocument(d *domain.Document)
	OpenIncident(i *domain.Incident)
}

// Toaster shows short non-blocking messages.
type Toaster interface {
	Info(msg string)
	Error(msg string)
}

// Resolver maps clicks on the calendar to records and UI actions.
type Resolver struct {
	fetcher  RecordFetcher
	dialogs  DetailDialogs
	toaster  Toaster
	creation CreationDialogs

	mu           sync.Mutex
	state        ClickState
	onTransition func(from, to ClickState)
}

func NewResolver(fetcher RecordFetcher) *Resolver {
	return &Resolver{fetcher: fetcher, state: StateIdle}
}

func (r *Resolver) SetDialogs(d DetailDialogs)           { r.dialogs = d }
func (r *Resolver) SetToaster(t Toaster)                 { r.toaster = t }
func (r *Resolver) SetCreationDialogs(c CreationDialogs) { r.creation = c }

// OnTransition registers a hook called on every state change.
func (r *Resolver) OnTransition(fn func(from, to ClickState)) {
	r.mu.Lock()
	r.onTransition = fn
	r.mu.Unlock()
}

func (r *Resolver) State() ClickState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Reset returns the resolver to idle, e.g. after the opened dialog closed.
func (r *Resolver) Reset() {
	r.transition(StateIdle)
}

func (r *Resolver) transition(to ClickState) {
	r.mu.Lock()
	from := r.state
	r.state = to
	hook := r.onTransition
	r.mu.Unlock()

	if hook != nil && from != to {
		hook(from, to)
	}
}

// OnEventClick resolves a clicked event. It never returns an error: failures
// are reported as ActionFailed and the event stays in the view until the
// next refresh.
func (r *Resolver) OnEventClick(ctx context.Context, tenant domain.Tenant, ev domain.CalendarEvent) ResolvedAction {
	if ev.SourceType == domain.SourceCustom {
		msg := ev.Title
		if ev.Description != "" {
			msg += ": " + ev.Description
		}
		r.toastInfo(msg)
		r.transition(StateInfo)
		return ResolvedAction{Kind: ActionInfo, EntityType: domain.SourceCustom, Message: msg}
	}

	r.transition(StateResolving)

	if !ev.SourceType.IsDerived() {
		return r.fail(ev, fmt.Sprintf("unknown source type %q", ev.SourceType))
	}
	if ev.SourceID == "" {
		return r.fail(ev, "missing source id")
	}

	record, err := r.fetch(ctx, tenant.CompanyID, ev.SourceType, ev.SourceID)
	if err != nil {
		log.Printf("calendar: fetch %s %s: %v", ev.SourceType, ev.SourceID, err)
		return r.fail(ev, err.Error())
	}
	if record == nil {
		r.toastError("Fant ikke oppføringen. Den kan ha blitt slettet.")
		return r.fail(ev, ReasonNotFound)
	}

	switch rec := record.(type) {
	case *domain.Mission:
		if r.dialogs != nil {
			r.dialogs.OpenMission(rec)
		}
	case *domain.Document:
		if r.dialogs != nil {
			r.dialogs.OpenDocument(rec)
		}
	case *domain.Incident:
		if r.dialogs != nil {
			r.dialogs.OpenIncident(rec)
		}
	case *domain.Drone:
		msg := fmt.Sprintf("%s (%s): neste inspeksjon %s", rec.Model, rec.SerialNumber, ev.FormatDate())
		r.toastInfo(msg)
		r.transition(StateInfo)
		return ResolvedAction{Kind: ActionInfo, EntityType: domain.SourceDrone, Record: rec, Message: msg}
	case *domain.Equipment:
		msg := fmt.Sprintf("%s: neste vedlikehold %s", rec.Name, ev.FormatDate())
		r.toastInfo(msg)
		r.transition(StateInfo)
		return ResolvedAction{Kind: ActionInfo, EntityType: domain.SourceEquipment, Record: rec, Message: msg}
	}

	r.transition(StateOpened)
	return ResolvedAction{Kind: ActionOpened, EntityType: ev.SourceType, Record: record}
}

// fetch returns nil without error when the row is gone. The typed nil
// pointers from the fetcher are normalised to an untyped nil.
func (r *Resolver) fetch(ctx context.Context, companyID string, src domain.SourceType, id string) (any, error) {
	switch src {
	case domain.SourceMission:
		m, err := r.fetcher.GetMission(ctx, companyID, id)
		if m == nil || err != nil {
			return nil, err
		}
		return m, nil
	case domain.SourceDocument:
		d, err := r.fetcher.GetDocument(ctx, companyID, id)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	case domain.SourceDrone:
		d, err := r.fetcher.GetDrone(ctx, companyID, id)
		if d == nil || err != nil {
			return nil, err
		}
		return d, nil
	case domain.SourceEquipment:
		e, err := r.fetcher.GetEquipment(ctx, companyID, id)
		if e == nil || err != nil {
			return nil, err
		}
		return e, nil
	case domain.SourceIncident:
		i, err := r.fetcher.GetIncident(ctx, companyID, id)
		if i == nil || err != nil {
			return nil, err
		}
		return i, nil
	}
	return nil, fmt.Errorf("no fetcher for %s", src)
}

func (r *Resolver) fail(ev domain.CalendarEvent, reason string) ResolvedAction {
	r.transition(StateFailed)
	return ResolvedAction{Kind: ActionFailed, EntityType: ev.SourceType, Reason: reason}
}

func (r *Resolver) toastInfo(msg string) {
	if r.toaster != nil {
		r.toaster.Info(msg)
	}
}

func (r *Resolver) toastError(msg string) {
	if r.toaster != nil {
		r.toaster.Error(msg)
	}
}
