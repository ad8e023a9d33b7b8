package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeCreateSubscription = "webhooks.command.subscription.create"
	TypeUpdateSubscription = "webhooks.command.subscription.update"
	TypeDeleteSubscription = "webhooks.command.subscription.delete"
	TypeRegenerateSecret   = "webhooks.command.subscription.regenerate_secret"
	TypeTestFire           = "webhooks.command.subscription.test_fire"
	TypeDispatchEvent      = "webhooks.command.event.dispatch"
	TypeRetryDelivery      = "webhooks.command.delivery.retry"
	TypePruneDeliveries    = "webhooks.command.deliveries.prune"
)

type CreateSubscriptionMessage struct {
	OrganizationID string
	Input          core.CreateSubscriptionInput
}

func (CreateSubscriptionMessage) Type() string { return TypeCreateSubscription }

func (m CreateSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.Input.Name) == "" {
		return commandValidationError("name", "name is required")
	}
	if strings.TrimSpace(m.Input.TargetURL) == "" {
		return commandValidationError("target_url", "target url is required")
	}
	if len(m.Input.EventTypes) == 0 {
		return commandValidationError("event_types", "at least one event type is required")
	}
	return nil
}

type UpdateSubscriptionMessage struct {
	OrganizationID string
	SubscriptionID string
	Input          core.UpdateSubscriptionInput
}

func (UpdateSubscriptionMessage) Type() string { return TypeUpdateSubscription }

func (m UpdateSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return commandValidationError("subscription_id", "subscription id is required")
	}
	if m.Input.Empty() {
		return commandValidationError("input", "at least one field is required")
	}
	return nil
}

type DeleteSubscriptionMessage struct {
	OrganizationID string
	SubscriptionID string
}

func (DeleteSubscriptionMessage) Type() string { return TypeDeleteSubscription }

func (m DeleteSubscriptionMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return commandValidationError("subscription_id", "subscription id is required")
	}
	return nil
}

type RegenerateSecretMessage struct {
	OrganizationID string
	SubscriptionID string
}

func (RegenerateSecretMessage) Type() string { return TypeRegenerateSecret }

func (m RegenerateSecretMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return commandValidationError("subscription_id", "subscription id is required")
	}
	return nil
}

type TestFireMessage struct {
	OrganizationID string
	SubscriptionID string
}

func (TestFireMessage) Type() string { return TypeTestFire }

func (m TestFireMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.SubscriptionID) == "" {
		return commandValidationError("subscription_id", "subscription id is required")
	}
	return nil
}

// DispatchEventMessage fans an application event out to every matching
// subscription. The event type is checked against the fixed vocabulary here
// because dispatch itself never surfaces errors to its caller.
type DispatchEventMessage struct {
	OrganizationID string
	EventType      string
	Data           map[string]any
}

func (DispatchEventMessage) Type() string { return TypeDispatchEvent }

func (m DispatchEventMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	eventType := strings.TrimSpace(m.EventType)
	if eventType == "" {
		return commandValidationError("event_type", "event type is required")
	}
	if !core.IsValidEventType(eventType) {
		return commandValidationError("event_type", fmt.Sprintf("unknown event type %q", eventType))
	}
	return nil
}

type RetryDeliveryMessage struct {
	OrganizationID string
	DeliveryID     string
}

func (RetryDeliveryMessage) Type() string { return TypeRetryDelivery }

func (m RetryDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.OrganizationID) == "" {
		return commandValidationError("organization_id", "organization id is required")
	}
	if strings.TrimSpace(m.DeliveryID) == "" {
		return commandValidationError("delivery_id", "delivery id is required")
	}
	return nil
}

type PruneDeliveriesMessage struct {
	Policy core.DeliveryRetentionPolicy
}

func (PruneDeliveriesMessage) Type() string { return TypePruneDeliveries }

func (m PruneDeliveriesMessage) Validate() error {
	if err := m.Policy.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid retention policy")
	}
	return nil
}
