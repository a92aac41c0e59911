package domain

import "fmt"

// Scope restricts an operation to one tenant and optionally one user.
// The tenant is mandatory: no retrieval or write crosses tenants.
type Scope struct {
	tenantID string
	userID   string
}

// NewScope validates and creates a Scope. userID may be empty.
func NewScope(tenantID, userID string) (Scope, error) {
	if tenantID == "" {
		return Scope{}, fmt.Errorf("tenant_id is required: %w", ErrValidation)
	}
	return Scope{tenantID: tenantID, userID: userID}, nil
}

// TenantID returns the tenant isolation key.
func (s Scope) TenantID() string { return s.tenantID }

// UserID returns the optional user filter, empty when tenant-wide.
func (s Scope) UserID() string { return s.userID }

// HasUser reports whether the scope narrows to a single user.
func (s Scope) HasUser() bool { return s.userID != "" }
