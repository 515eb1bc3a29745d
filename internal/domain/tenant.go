package domain

// Tenant is the explicit company/user context every read and write runs under.
type Tenant struct {
	CompanyID string
	UserID    string
}

// IsAuthenticated reports whether both company and user are known.
func (t Tenant) IsAuthenticated() bool {
	return t.CompanyID != "" && t.UserID != ""
}
