package calendar

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
)

// Reader produces the calendar events of one source type for a tenant. It is
// read-only and idempotent; result order is unspecified.
type Reader interface {
	Source() domain.SourceType
	ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.CalendarEvent, error)
}

// SourceStore is the read side of the five source tables, filtered to rows
// that have a date of interest.
type SourceStore interface {
	ListScheduledMissions(ctx context.Context, companyID string) ([]*domain.Mission, error)
	ListExpiringDocuments(ctx context.Context, companyID string) ([]*domain.Document, error)
	ListDronesDueInspection(ctx context.Context, companyID string) ([]*domain.Drone, error)
	ListEquipmentDueMaintenance(ctx context.Context, companyID string) ([]*domain.Equipment, error)
	ListDatedIncidents(ctx context.Context, companyID string) ([]*domain.Incident, error)
}

// CustomLister lists the calendar_events rows of a tenant.
type CustomLister interface {
	ListCustom(ctx context.Context, tenant domain.Tenant) ([]*domain.CustomEvent, error)
}

type rowReader[R any] struct {
	source  domain.SourceType
	list    func(ctx context.Context, companyID string) ([]*R, error)
	toEvent func(*R, *time.Location) (domain.CalendarEvent, error)
	loc     *time.Location
}

func (r *rowReader[R]) Source() domain.SourceType { return r.source }

func (r *rowReader[R]) ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.CalendarEvent, error) {
	if tenant.CompanyID == "" {
		return nil, domain.ErrUnauthenticated
	}

	rows, err := r.list(ctx, tenant.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list %s rows: %w", r.source, err)
	}

	events := make([]domain.CalendarEvent, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		ev, err := r.toEvent(row, r.loc)
		if err != nil {
			log.Printf("calendar: dropping malformed row: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func newRowReader[R any](src domain.SourceType, loc *time.Location, list func(context.Context, string) ([]*R, error), toEvent func(*R, *time.Location) (domain.CalendarEvent, error)) Reader {
	if loc == nil {
		loc = time.Local
	}
	return &rowReader[R]{source: src, list: list, toEvent: toEvent, loc: loc}
}

func MissionReader(s SourceStore, loc *time.Location) Reader {
	return newRowReader(domain.SourceMission, loc, s.ListScheduledMissions, fromMission)
}

func DocumentReader(s SourceStore, loc *time.Location) Reader {
	return newRowReader(domain.SourceDocument, loc, s.ListExpiringDocuments, fromDocument)
}

func DroneReader(s SourceStore, loc *time.Location) Reader {
	return newRowReader(domain.SourceDrone, loc, s.ListDronesDueInspection, fromDrone)
}

func EquipmentReader(s SourceStore, loc *time.Location) Reader {
	return newRowReader(domain.SourceEquipment, loc, s.ListEquipmentDueMaintenance, fromEquipment)
}

func IncidentReader(s SourceStore, loc *time.Location) Reader {
	return newRowReader(domain.SourceIncident, loc, s.ListDatedIncidents, fromIncident)
}

// NewReaders returns one reader per derived source type.
func NewReaders(s SourceStore, loc *time.Location) []Reader {
	return []Reader{
		MissionReader(s, loc),
		DocumentReader(s, loc),
		DroneReader(s, loc),
		EquipmentReader(s, loc),
		IncidentReader(s, loc),
	}
}
