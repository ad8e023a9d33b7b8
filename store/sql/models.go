package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type subscriptionRecord struct {
	bun.BaseModel `bun:"table:webhook_subscriptions,alias:ws"`

	ID             string    `bun:"id,pk"`
	OrganizationID string    `bun:"organization_id,notnull"`
	Name           string    `bun:"name,notnull"`
	TargetURL      string    `bun:"target_url,notnull"`
	Secret         string    `bun:"secret,notnull"`
	EventTypes     []string  `bun:"event_types,type:jsonb,notnull"`
	Active         bool      `bun:"active,notnull"`
	TimeoutMS      int       `bun:"timeout_ms,notnull"`
	RetryCount     int       `bun:"retry_count,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// deliveryRecord stores the payload snapshot as raw bytes, never as parsed
// JSON: a retry re-signs the stored bytes verbatim, so the column must give
// back exactly what dispatch wrote.
type deliveryRecord struct {
	bun.BaseModel `bun:"table:webhook_deliveries,alias:wd"`

	ID             string     `bun:"id,pk"`
	SubscriptionID string     `bun:"subscription_id,notnull"`
	EventType      string     `bun:"event_type,notnull"`
	Payload        []byte     `bun:"payload,notnull"`
	ResponseStatus *int       `bun:"response_status"`
	DeliveredAt    *time.Time `bun:"delivered_at,nullzero"`
	FailedAt       *time.Time `bun:"failed_at,nullzero"`
	FailureReason  string     `bun:"failure_reason"`
	RetryCount     int        `bun:"retry_count,notnull"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
