package domain

import "time"

type Severity string

const (
	SeverityLow      Severity = "Lav"
	SeverityMedium   Severity = "Middels"
	SeverityHigh     Severity = "Høy"
	SeverityCritical Severity = "Kritisk"
)

// Incident is a reported safety occurrence.
type Incident struct {
	ID          string
	CompanyID   string
	Title       string  // tittel
	Description string  // beskrivelse
	Severity    Severity
	Status      string
	OccurredAt  *string // hendelsestidspunkt
	CreatedAt   time.Time
}
