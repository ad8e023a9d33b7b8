package sqlstore

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

func newSubscriptionRecord(sub core.Subscription, now time.Time) *subscriptionRecord {
	return &subscriptionRecord{
		ID:             strings.TrimSpace(sub.ID),
		OrganizationID: strings.TrimSpace(sub.OrganizationID),
		Name:           sub.Name,
		TargetURL:      sub.TargetURL,
		Secret:         sub.Secret,
		EventTypes:     copyStringSlice(sub.EventTypes),
		Active:         sub.Active,
		TimeoutMS:      sub.TimeoutMS,
		RetryCount:     sub.RetryCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *subscriptionRecord) toDomain() core.Subscription {
	if r == nil {
		return core.Subscription{}
	}
	return core.Subscription{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Name:           r.Name,
		TargetURL:      r.TargetURL,
		Secret:         r.Secret,
		EventTypes:     copyStringSlice(r.EventTypes),
		Active:         r.Active,
		TimeoutMS:      r.TimeoutMS,
		RetryCount:     r.RetryCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newDeliveryRecord(in core.CreateDeliveryInput, now time.Time) *deliveryRecord {
	return &deliveryRecord{
		SubscriptionID: strings.TrimSpace(in.SubscriptionID),
		EventType:      strings.TrimSpace(in.EventType),
		Payload:        append([]byte(nil), in.Payload...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *deliveryRecord) toDomain() core.Delivery {
	if r == nil {
		return core.Delivery{}
	}
	delivery := core.Delivery{
		ID:             r.ID,
		SubscriptionID: r.SubscriptionID,
		EventType:      r.EventType,
		Payload:        append(json.RawMessage(nil), r.Payload...),
		FailureReason:  r.FailureReason,
		RetryCount:     r.RetryCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.ResponseStatus != nil {
		status := *r.ResponseStatus
		delivery.ResponseStatus = &status
	}
	if r.DeliveredAt != nil {
		at := *r.DeliveredAt
		delivery.DeliveredAt = &at
	}
	if r.FailedAt != nil {
		at := *r.FailedAt
		delivery.FailedAt = &at
	}
	return delivery
}

// copyStringSlice always returns a non-nil slice so jsonb columns marked
// notnull receive "[]" instead of NULL.
func copyStringSlice(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	return append([]string(nil), in...)
}
