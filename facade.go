package webhooks

import (
	"fmt"

	webhookcommand "github.com/goliatone/go-webhooks/command"
	webhookquery "github.com/goliatone/go-webhooks/query"
)

type CommandQueryService interface {
	webhookcommand.MutatingService
	webhookquery.SubscriptionReader
	webhookquery.DeliveryReader
	webhookquery.EventTypeReader
}

type Commands struct {
	CreateSubscription *webhookcommand.CreateSubscriptionCommand
	UpdateSubscription *webhookcommand.UpdateSubscriptionCommand
	DeleteSubscription *webhookcommand.DeleteSubscriptionCommand
	RegenerateSecret   *webhookcommand.RegenerateSecretCommand
	TestFire           *webhookcommand.TestFireCommand
	DispatchEvent      *webhookcommand.DispatchEventCommand
	RetryDelivery      *webhookcommand.RetryDeliveryCommand
	PruneDeliveries    *webhookcommand.PruneDeliveriesCommand
}

type Queries struct {
	ListSubscriptions *webhookquery.ListSubscriptionsQuery
	GetSubscription   *webhookquery.GetSubscriptionQuery
	ListDeliveries    *webhookquery.ListDeliveriesQuery
	ListEventTypes    *webhookquery.ListEventTypesQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("webhooks: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateSubscription: webhookcommand.NewCreateSubscriptionCommand(service),
		UpdateSubscription: webhookcommand.NewUpdateSubscriptionCommand(service),
		DeleteSubscription: webhookcommand.NewDeleteSubscriptionCommand(service),
		RegenerateSecret:   webhookcommand.NewRegenerateSecretCommand(service),
		TestFire:           webhookcommand.NewTestFireCommand(service),
		DispatchEvent:      webhookcommand.NewDispatchEventCommand(service),
		RetryDelivery:      webhookcommand.NewRetryDeliveryCommand(service),
		PruneDeliveries:    webhookcommand.NewPruneDeliveriesCommand(service),
	}
	facade.queries = Queries{
		ListSubscriptions: webhookquery.NewListSubscriptionsQuery(service),
		GetSubscription:   webhookquery.NewGetSubscriptionQuery(service),
		ListDeliveries:    webhookquery.NewListDeliveriesQuery(service),
		ListEventTypes:    webhookquery.NewListEventTypesQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
