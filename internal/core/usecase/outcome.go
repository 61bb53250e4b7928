package usecase

import "github.com/kirillkom/legal-workflow/internal/core/domain"

// outcomeLabel buckets an operation result for metrics.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid"
	case domain.IsKind(err, domain.ErrNotFound):
		return "not_found"
	case domain.IsKind(err, domain.ErrConflict):
		return "conflict"
	case domain.IsKind(err, domain.ErrUnprocessable):
		return "unprocessable"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "error"
	}
}

func requireTenant(tenant domain.Tenant) error {
	if tenant.IsZero() {
		return domain.NewError(domain.ErrUnauthorized, "Tenant não identificado.")
	}
	return nil
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
