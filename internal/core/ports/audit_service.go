package ports

import (
	"context"

	"github.com/storefront/store-api/internal/core/domain"
)

// AuditService records a single audit event synchronously.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}

// AuditSink accepts events for asynchronous recording. Enqueue must not block
// the request path; implementations may drop events under back-pressure.
type AuditSink interface {
	Enqueue(event domain.AuthEvent)
}
