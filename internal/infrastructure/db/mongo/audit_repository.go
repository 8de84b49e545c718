package mongo

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/storefront/store-api/internal/core/domain"
)

const collectionAuthEvents = "auth_events"

// AuditRetention is how long auth events are kept before the TTL index
// removes them.
const AuditRetention = 90 * 24 * time.Hour

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAuthEvents)}
}

type authEventDoc struct {
	Type       string    `bson:"type"`
	UserID     string    `bson:"user_id,omitempty"`
	Email      string    `bson:"email"`
	IP         string    `bson:"ip,omitempty"`
	UserAgent  string    `bson:"user_agent,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// InsertEvent appends one event to the audit trail.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := authEventDoc{
		Type:       string(event.Type),
		UserID:     event.UserID,
		Email:      event.Email,
		IP:         event.IP,
		UserAgent:  event.UserAgent,
		OccurredAt: event.OccurredAt.UTC(),
		RecordedAt: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return oops.In("mongo").
			With("collection", collectionAuthEvents).
			With("operation", "insert event").
			With("type", doc.Type).
			Wrap(err)
	}
	return nil
}
