package query

import "strings"

const (
	TypeListSubscriptions = "webhooks.query.subscription.list"
	TypeGetSubscription   = "webhooks.query.subscription.get"
	TypeListDeliveries    = "webhooks.query.deliveries.list"
	TypeListEventTypes    = "webhooks.query.event_types.list"
)

type ListSubscriptionsMessage struct {
	OrganizationID string
}

func (ListSubscriptionsMessage) Type() string { return TypeListSubscriptions }

func (m ListSubscriptionsMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return queryValidationError("organization_id", "organization id is required")
	}
	return nil
}

type GetSubscriptionMessage struct {
	OrganizationID string
	SubscriptionID string
}

func (GetSubscriptionMessage) Type() string { return TypeGetSubscription }

func (m GetSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return queryValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return queryValidationError("subscription_id", "subscription id is required")
	}
	return nil
}

// ListDeliveriesMessage pages through a subscription's delivery history.
// Limit zero falls back to the service's configured page cap.
type ListDeliveriesMessage struct {
	OrganizationID string
	SubscriptionID string
	Limit          int
}

func (ListDeliveriesMessage) Type() string { return TypeListDeliveries }

func (m ListDeliveriesMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return queryValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return queryValidationError("subscription_id", "subscription id is required")
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type ListEventTypesMessage struct{}

func (ListEventTypesMessage) Type() string { return TypeListEventTypes }

func (ListEventTypesMessage) Validate() error { return nil }
