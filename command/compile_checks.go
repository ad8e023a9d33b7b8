package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateSubscriptionMessage] = (*CreateSubscriptionCommand)(nil)
	_ gocmd.Commander[UpdateSubscriptionMessage] = (*UpdateSubscriptionCommand)(nil)
	_ gocmd.Commander[DeleteSubscriptionMessage] = (*DeleteSubscriptionCommand)(nil)
	_ gocmd.Commander[RegenerateSecretMessage]   = (*RegenerateSecretCommand)(nil)
	_ gocmd.Commander[TestFireMessage]           = (*TestFireCommand)(nil)
	_ gocmd.Commander[DispatchEventMessage]      = (*DispatchEventCommand)(nil)
	_ gocmd.Commander[RetryDeliveryMessage]      = (*RetryDeliveryCommand)(nil)
	_ gocmd.Commander[PruneDeliveriesMessage]    = (*PruneDeliveriesCommand)(nil)
)
