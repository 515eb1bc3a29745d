package domain

import "time"

// Drone is an aircraft in the company fleet.
type Drone struct {
	ID             string
	CompanyID      string
	Model          string  // modell
	SerialNumber   string  // serienummer
	NextInspection *string // neste_inspeksjon, "YYYY-MM-DD"
	CreatedAt      time.Time
}

// Equipment is any non-aircraft resource with a maintenance schedule.
type Equipment struct {
	ID              string
	CompanyID       string
	Name            string  // navn
	Type            string
	NextMaintenance *string // neste_vedlikehold, "YYYY-MM-DD"
	CreatedAt       time.Time
}
