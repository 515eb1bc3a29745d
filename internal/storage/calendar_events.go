package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/realtime"
)

// === Calendar Events ===

const calendarEventColumns = `id, company_id, user_id, title, type, event_date, event_time, description, created_at, updated_at`

func scanCalendarEvent(row interface{ Scan(...any) error }) (*domain.CustomEvent, error) {
	e := &domain.CustomEvent{}
	err := row.Scan(&e.ID, &e.CompanyID, &e.UserID, &e.Title, &e.Type, &e.Date, &e.Time, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// CreateCalendarEvent creates a new custom calendar event
func (s *Storage) CreateCalendarEvent(ctx context.Context, e *domain.CustomEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (id, company_id, user_id, title, type, event_date, event_time, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, e.UserID, e.Title, e.Type, e.Date, e.Time, e.Description, now, now,
	)
	if err != nil {
		return err
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	cp := *e
	s.publish(realtime.TableCalendarEvents, realtime.Insert, e.CompanyID, e.ID, &cp, nil)
	return nil
}

// GetCalendarEvent returns a custom calendar event by ID within a company
func (s *Storage) GetCalendarEvent(ctx context.Context, companyID, id string) (*domain.CustomEvent, error) {
	e, err := scanCalendarEvent(s.db.QueryRowContext(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events WHERE id = ? AND company_id = ?`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListCalendarEvents returns all custom calendar events of a company
func (s *Storage) ListCalendarEvents(ctx context.Context, companyID string) ([]*domain.CustomEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events WHERE company_id = ? ORDER BY event_date ASC, event_time ASC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.CustomEvent
	for rows.Next() {
		e, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateCalendarEvent updates an existing custom calendar event. It reports
// false when no row of that company has the event's ID.
func (s *Storage) UpdateCalendarEvent(ctx context.Context, e *domain.CustomEvent) (bool, error) {
	old, err := s.GetCalendarEvent(ctx, e.CompanyID, e.ID)
	if err != nil || old == nil {
		return false, err
	}
	e.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE calendar_events SET title = ?, type = ?, event_date = ?, event_time = ?, description = ?, updated_at = ?
		 WHERE id = ? AND company_id = ?`,
		e.Title, e.Type, e.Date, e.Time, e.Description, e.UpdatedAt, e.ID, e.CompanyID,
	)
	if err != nil {
		return false, err
	}
	if !affected(res) {
		return false, nil
	}
	cp := *e
	s.publish(realtime.TableCalendarEvents, realtime.Update, e.CompanyID, e.ID, &cp, old)
	return true, nil
}

// DeleteCalendarEvent deletes a custom calendar event. It reports false when
// nothing was deleted.
func (s *Storage) DeleteCalendarEvent(ctx context.Context, companyID, id string) (bool, error) {
	old, err := s.GetCalendarEvent(ctx, companyID, id)
	if err != nil || old == nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return false, err
	}
	if !affected(res) {
		return false, nil
	}
	s.publish(realtime.TableCalendarEvents, realtime.Delete, companyID, id, nil, old)
	return true, nil
}
