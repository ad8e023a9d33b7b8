package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

// MutatingService is the slice of the webhook service the command handlers
// drive. *core.Service satisfies it.
type MutatingService interface {
	CreateSubscription(ctx context.Context, orgID string, in core.CreateSubscriptionInput) (core.Subscription, error)
	UpdateSubscription(ctx context.Context, orgID string, id string, in core.UpdateSubscriptionInput) (core.Subscription, error)
	DeleteSubscription(ctx context.Context, orgID string, id string) error
	RegenerateSubscriptionSecret(ctx context.Context, orgID string, id string) (core.Subscription, error)
	TestFire(ctx context.Context, orgID string, subscriptionID string) (core.TestFireResult, error)
	Dispatch(ctx context.Context, orgID string, eventType string, data map[string]any) core.DispatchStats
	RetryDelivery(ctx context.Context, orgID string, deliveryID string) (core.RetryResult, error)
	PruneDeliveries(ctx context.Context, policy core.DeliveryRetentionPolicy) (int, error)
}

type CreateSubscriptionCommand struct {
	service MutatingService
}

func NewCreateSubscriptionCommand(service MutatingService) *CreateSubscriptionCommand {
	return &CreateSubscriptionCommand{service: service}
}

func (c *CreateSubscriptionCommand) Execute(ctx context.Context, msg CreateSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.CreateSubscription(ctx, msg.OrganizationID, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateSubscriptionCommand struct {
	service MutatingService
}

func NewUpdateSubscriptionCommand(service MutatingService) *UpdateSubscriptionCommand {
	return &UpdateSubscriptionCommand{service: service}
}

func (c *UpdateSubscriptionCommand) Execute(ctx context.Context, msg UpdateSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.UpdateSubscription(ctx, msg.OrganizationID, msg.SubscriptionID, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteSubscriptionCommand struct {
	service MutatingService
}

func NewDeleteSubscriptionCommand(service MutatingService) *DeleteSubscriptionCommand {
	return &DeleteSubscriptionCommand{service: service}
}

func (c *DeleteSubscriptionCommand) Execute(ctx context.Context, msg DeleteSubscriptionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	return c.service.DeleteSubscription(ctx, msg.OrganizationID, msg.SubscriptionID)
}

type RegenerateSecretCommand struct {
	service MutatingService
}

func NewRegenerateSecretCommand(service MutatingService) *RegenerateSecretCommand {
	return &RegenerateSecretCommand{service: service}
}

func (c *RegenerateSecretCommand) Execute(ctx context.Context, msg RegenerateSecretMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscription service is required")
	}
	out, err := c.service.RegenerateSubscriptionSecret(ctx, msg.OrganizationID, msg.SubscriptionID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type TestFireCommand struct {
	service MutatingService
}

func NewTestFireCommand(service MutatingService) *TestFireCommand {
	return &TestFireCommand{service: service}
}

func (c *TestFireCommand) Execute(ctx context.Context, msg TestFireMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: test fire service is required")
	}
	out, err := c.service.TestFire(ctx, msg.OrganizationID, msg.SubscriptionID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DispatchEventCommand struct {
	service MutatingService
}

func NewDispatchEventCommand(service MutatingService) *DispatchEventCommand {
	return &DispatchEventCommand{service: service}
}

// Execute runs the fan-out and stores the per-pass stats. Dispatch never
// returns an error; endpoint failures are recorded in the ledger, not
// surfaced to the emitting code path.
func (c *DispatchEventCommand) Execute(ctx context.Context, msg DispatchEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: dispatch service is required")
	}
	stats := c.service.Dispatch(ctx, msg.OrganizationID, msg.EventType, msg.Data)
	storeResult(ctx, stats)
	return nil
}

type RetryDeliveryCommand struct {
	service MutatingService
}

func NewRetryDeliveryCommand(service MutatingService) *RetryDeliveryCommand {
	return &RetryDeliveryCommand{service: service}
}

func (c *RetryDeliveryCommand) Execute(ctx context.Context, msg RetryDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delivery service is required")
	}
	out, err := c.service.RetryDelivery(ctx, msg.OrganizationID, msg.DeliveryID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PruneDeliveriesCommand struct {
	service MutatingService
}

func NewPruneDeliveriesCommand(service MutatingService) *PruneDeliveriesCommand {
	return &PruneDeliveriesCommand{service: service}
}

func (c *PruneDeliveriesCommand) Execute(ctx context.Context, msg PruneDeliveriesMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delivery service is required")
	}
	pruned, err := c.service.PruneDeliveries(ctx, msg.Policy)
	if err != nil {
		return err
	}
	storeResult(ctx, pruned)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
