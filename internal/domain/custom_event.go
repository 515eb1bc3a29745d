package domain

import "time"

// DefaultCustomType is used when a custom entry is saved without a type.
const DefaultCustomType = "Annet"

// CustomEvent is a user-authored calendar entry (calendar_events row).
type CustomEvent struct {
	ID          string
	CompanyID   string
	UserID      string
	Title       string
	Type        string
	Date        string  // "YYYY-MM-DD"
	Time        *string // "HH:MM"
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CustomEventDraft holds the fields of a not-yet-saved custom entry.
type CustomEventDraft struct {
	Title       string
	Type        string
	Date        string
	Time        *string
	Description *string
}

// CustomEventPatch changes only the non-nil fields.
type CustomEventPatch struct {
	Title       *string
	Type        *string
	Date        *string
	Time        *string
	Description *string
}

// Apply returns a copy of e with the patch applied. An empty Time or
// Description string clears the field.
func (p CustomEventPatch) Apply(e CustomEvent) CustomEvent {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		if *p.Time == "" {
			e.Time = nil
		} else {
			t := *p.Time
			e.Time = &t
		}
	}
	if p.Description != nil {
		if *p.Description == "" {
			e.Description = nil
		} else {
			d := *p.Description
			e.Description = &d
		}
	}
	return e
}
