package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/storage"
)

var reHHMM = regexp.MustCompile(`^\d{2}:\d{2}$`)

// CustomEventService is the read/write adapter for user-authored calendar entries.
type CustomEventService struct {
	storage *storage.Storage
}

func NewCustomEventService(s *storage.Storage) *CustomEventService {
	return &CustomEventService{storage: s}
}

// ListCustom returns the company's custom calendar entries.
func (s *CustomEventService) ListCustom(ctx context.Context, tenant domain.Tenant) ([]*domain.CustomEvent, error) {
	if tenant.CompanyID == "" {
		return nil, domain.ErrUnauthenticated
	}
	events, err := s.storage.ListCalendarEvents(ctx, tenant.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

func (s *CustomEventService) Get(ctx context.Context, tenant domain.Tenant, id string) (*domain.CustomEvent, error) {
	if tenant.CompanyID == "" {
		return nil, domain.ErrUnauthenticated
	}
	e, err := s.storage.GetCalendarEvent(ctx, tenant.CompanyID, id)
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// Create validates and stores a new entry owned by the tenant's user.
func (s *CustomEventService) Create(ctx context.Context, tenant domain.Tenant, draft domain.CustomEventDraft) (*domain.CustomEvent, error) {
	if !tenant.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}

	e := &domain.CustomEvent{
		CompanyID:   tenant.CompanyID,
		UserID:      tenant.UserID,
		Title:       draft.Title,
		Type:        draft.Type,
		Date:        draft.Date,
		Time:        draft.Time,
		Description: draft.Description,
	}
	normalize(e)
	if err := validate(e); err != nil {
		return nil, err
	}

	if err := s.storage.CreateCalendarEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("create calendar event: %w", err)
	}
	return e, nil
}

// Update applies a patch. The patched row is validated as a whole before writing.
func (s *CustomEventService) Update(ctx context.Context, tenant domain.Tenant, id string, patch domain.CustomEventPatch) (*domain.CustomEvent, error) {
	if !tenant.IsAuthenticated() {
		return nil, domain.ErrUnauthenticated
	}

	current, err := s.storage.GetCalendarEvent(ctx, tenant.CompanyID, id)
	if err != nil {
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	updated := patch.Apply(*current)
	normalize(&updated)
	if err := validate(&updated); err != nil {
		return nil, err
	}

	ok, err := s.storage.UpdateCalendarEvent(ctx, &updated)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &updated, nil
}

func (s *CustomEventService) Delete(ctx context.Context, tenant domain.Tenant, id string) error {
	if !tenant.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}
	ok, err := s.storage.DeleteCalendarEvent(ctx, tenant.CompanyID, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

func normalize(e *domain.CustomEvent) {
	e.Title = strings.TrimSpace(e.Title)
	e.Type = strings.TrimSpace(e.Type)
	if e.Type == "" {
		e.Type = domain.DefaultCustomType
	}
	e.Date = strings.TrimSpace(e.Date)
	if e.Time != nil {
		t := strings.TrimSpace(*e.Time)
		if t == "" {
			e.Time = nil
		} else {
			e.Time = &t
		}
	}
	if e.Description != nil && strings.TrimSpace(*e.Description) == "" {
		e.Description = nil
	}
}

func validate(e *domain.CustomEvent) error {
	fields := map[string]string{}
	if e.Title == "" {
		fields["title"] = "tittel er påkrevd"
	}
	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		fields["date"] = "må være en gyldig dato (ÅÅÅÅ-MM-DD)"
	}
	if e.Time != nil {
		if _, err := time.Parse("15:04", *e.Time); err != nil || !reHHMM.MatchString(*e.Time) {
			fields["time"] = "må være på formen TT:MM"
		}
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}
