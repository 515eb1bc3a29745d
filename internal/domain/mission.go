package domain

import "time"

type MissionStatus string

const (
	MissionPlanned   MissionStatus = "Planlagt"
	MissionOngoing   MissionStatus = "Pågående"
	MissionCompleted MissionStatus = "Fullført"
)

// Mission is a planned or flown drone operation.
type Mission struct {
	ID          string
	CompanyID   string
	Title       string  // tittel
	Location    string  // lokasjon
	StartsAt    *string // tidspunkt, stored as text (RFC3339 or local wall clock)
	Status      MissionStatus
	Description string
	CreatedAt   time.Time
}
