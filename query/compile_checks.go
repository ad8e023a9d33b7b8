package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

var (
	_ gocmd.Querier[ListSubscriptionsMessage, []core.Subscription]     = (*ListSubscriptionsQuery)(nil)
	_ gocmd.Querier[GetSubscriptionMessage, core.Subscription]         = (*GetSubscriptionQuery)(nil)
	_ gocmd.Querier[ListDeliveriesMessage, []core.Delivery]            = (*ListDeliveriesQuery)(nil)
	_ gocmd.Querier[ListEventTypesMessage, []core.EventTypeDescriptor] = (*ListEventTypesQuery)(nil)
)
