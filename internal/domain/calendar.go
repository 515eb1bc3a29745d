package domain

import "time"

// SourceType names the entity a calendar event was derived from.
type SourceType string

const (
	SourceMission   SourceType = "mission"
	SourceDocument  SourceType = "document"
	SourceDrone     SourceType = "drone"
	SourceEquipment SourceType = "equipment"
	SourceIncident  SourceType = "incident"
	SourceCustom    SourceType = "custom"
)

// DerivedSources lists the source types whose events are computed from other tables.
var DerivedSources = []SourceType{
	SourceMission,
	SourceDocument,
	SourceDrone,
	SourceEquipment,
	SourceIncident,
}

// IsDerived reports whether events of this type are projections of another entity.
func (s SourceType) IsDerived() bool {
	return s != SourceCustom && s.Valid()
}

func (s SourceType) Valid() bool {
	switch s {
	case SourceMission, SourceDocument, SourceDrone, SourceEquipment, SourceIncident, SourceCustom:
		return true
	}
	return false
}

// Calendar categories. Custom events use their own type as category.
const (
	CategoryMission     = "Oppdrag"
	CategoryMaintenance = "Vedlikehold"
	CategoryDocument    = "Dokument"
	CategoryIncident    = "Hendelse"
)

// CalendarEvent is the unified, computed-on-read projection shown in the calendar.
type CalendarEvent struct {
	SourceType  SourceType
	SourceID    string // empty only for unsaved custom drafts
	Title       string
	OccursAt    time.Time
	Category    string
	Description string
	AllDay      bool // the source has a date but no time of day
}

// Key identifies the event within one aggregation pass.
func (e CalendarEvent) Key() string {
	return string(e.SourceType) + ":" + e.SourceID
}

func (e CalendarEvent) IsAllDay() bool {
	return e.AllDay
}

// FormatTime returns the time of day for display
func (e CalendarEvent) FormatTime() string {
	if e.IsAllDay() {
		return "Hele dagen"
	}
	return e.OccursAt.Format("15:04")
}

// FormatDate returns formatted date for display
func (e CalendarEvent) FormatDate() string {
	return e.OccursAt.Format("02.01.2006")
}
