package caldav

import "time"

// Calendar represents a remote CalDAV calendar
type Calendar struct {
	ID          string // Calendar path
	DisplayName string
	URL         string
}

// Event is a single VEVENT mirrored to or read from a remote calendar
type Event struct {
	UID         string
	Summary     string
	Description string
	Category    string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
}
