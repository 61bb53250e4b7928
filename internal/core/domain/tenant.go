package domain

import "strings"

// Tenant scopes every repository call. The zero value is rejected by the
// persistence layer, so a query without a tenant filter cannot be issued.
type Tenant struct {
	id string
}

func NewTenant(id string) (Tenant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Tenant{}, NewValidationError("tenant_id é obrigatório.")
	}
	return Tenant{id: id}, nil
}

func (t Tenant) ID() string {
	return t.id
}

func (t Tenant) IsZero() bool {
	return t.id == ""
}

func (t Tenant) String() string {
	return t.id
}
