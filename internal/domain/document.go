package domain

import "time"

// Document is a tenant document with an optional expiry date.
type Document struct {
	ID         string
	CompanyID  string
	Title      string  // tittel
	Category   string  // kategori
	ValidUntil *string // gyldig_til, "YYYY-MM-DD"
	CreatedAt  time.Time
}
