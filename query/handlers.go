package query

import (
	"context"

	"github.com/goliatone/go-webhooks/core"
)

// SubscriptionReader is the read-only slice of the webhook service the
// subscription queries use. *core.Service satisfies it.
type SubscriptionReader interface {
	ListSubscriptions(ctx context.Context, orgID string) ([]core.Subscription, error)
	GetSubscription(ctx context.Context, orgID string, id string) (core.Subscription, error)
}

type DeliveryReader interface {
	ListDeliveries(ctx context.Context, orgID string, subscriptionID string, limit int) ([]core.Delivery, error)
}

type EventTypeReader interface {
	ListEventTypes() []core.EventTypeDescriptor
}

type ListSubscriptionsQuery struct {
	reader SubscriptionReader
}

func NewListSubscriptionsQuery(reader SubscriptionReader) *ListSubscriptionsQuery {
	return &ListSubscriptionsQuery{reader: reader}
}

func (q *ListSubscriptionsQuery) Query(ctx context.Context, msg ListSubscriptionsMessage) ([]core.Subscription, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: subscription reader is required")
	}
	return q.reader.ListSubscriptions(ctx, msg.OrganizationID)
}

type GetSubscriptionQuery struct {
	reader SubscriptionReader
}

func NewGetSubscriptionQuery(reader SubscriptionReader) *GetSubscriptionQuery {
	return &GetSubscriptionQuery{reader: reader}
}

func (q *GetSubscriptionQuery) Query(ctx context.Context, msg GetSubscriptionMessage) (core.Subscription, error) {
	if q == nil || q.reader == nil {
		return core.Subscription{}, queryDependencyError("query: subscription reader is required")
	}
	return q.reader.GetSubscription(ctx, msg.OrganizationID, msg.SubscriptionID)
}

type ListDeliveriesQuery struct {
	reader DeliveryReader
}

func NewListDeliveriesQuery(reader DeliveryReader) *ListDeliveriesQuery {
	return &ListDeliveriesQuery{reader: reader}
}

func (q *ListDeliveriesQuery) Query(ctx context.Context, msg ListDeliveriesMessage) ([]core.Delivery, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.ListDeliveries(ctx, msg.OrganizationID, msg.SubscriptionID, msg.Limit)
}

type ListEventTypesQuery struct {
	reader EventTypeReader
}

func NewListEventTypesQuery(reader EventTypeReader) *ListEventTypesQuery {
	return &ListEventTypesQuery{reader: reader}
}

func (q *ListEventTypesQuery) Query(_ context.Context, _ ListEventTypesMessage) ([]core.EventTypeDescriptor, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: event type reader is required")
	}
	return q.reader.ListEventTypes(), nil
}
