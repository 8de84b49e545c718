package ports

import (
	"context"

	"github.com/storefront/store-api/internal/core/domain"
)

// AuditRepository persists the authentication audit trail.
type AuditRepository interface {
	// InsertEvent appends one event to the auth_events collection.
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
