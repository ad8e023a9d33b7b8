package webhooks

import (
	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/transport"
)

type Config = core.Config

type SubscriptionsConfig = core.SubscriptionsConfig
type DeliveriesConfig = core.DeliveriesConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type SubscriptionStore = core.SubscriptionStore
type DeliveryLedger = core.DeliveryLedger
type StoreProvider = core.StoreProvider
type RepositoryStoreFactory = core.RepositoryStoreFactory
type Deliverer = core.Deliverer
type DeliveryRequest = core.DeliveryRequest
type DeliveryResponse = core.DeliveryResponse
type MetricsRecorder = core.MetricsRecorder
type WebhookService = core.WebhookService

type Subscription = core.Subscription
type CreateSubscriptionInput = core.CreateSubscriptionInput
type UpdateSubscriptionInput = core.UpdateSubscriptionInput

type Delivery = core.Delivery
type DeliveryStatus = core.DeliveryStatus
type Payload = core.Payload
type DeliveryRetentionPolicy = core.DeliveryRetentionPolicy

type DispatchStats = core.DispatchStats
type AttemptOutcome = core.AttemptOutcome
type RetryResult = core.RetryResult
type TestFireResult = core.TestFireResult

type EventTypeDescriptor = core.EventTypeDescriptor
type SignatureHeader = core.SignatureHeader

const EventTypeTest = core.EventTypeTest

const (
	DeliveryStatusPending   = core.DeliveryStatusPending
	DeliveryStatusDelivered = core.DeliveryStatusDelivered
	DeliveryStatusFailed    = core.DeliveryStatusFailed
)

const (
	HeaderSignature = core.HeaderSignature
	HeaderEvent     = core.HeaderEvent
	HeaderID        = core.HeaderID
	HeaderRetry     = core.HeaderRetry
)

var (
	ErrSubscriptionNotFound = core.ErrSubscriptionNotFound
	ErrDeliveryNotFound     = core.ErrDeliveryNotFound
	ErrInvalidEventType     = core.ErrInvalidEventType
	ErrInvalidTargetURL     = core.ErrInvalidTargetURL
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithSubscriptionStore = core.WithSubscriptionStore
	WithDeliveryLedger    = core.WithDeliveryLedger
	WithDeliverer         = core.WithDeliverer
	WithRandomSource      = core.WithRandomSource
	WithClock             = core.WithClock
)

var (
	ComputeSignature     = core.ComputeSignature
	SignPayload          = core.SignPayload
	ParseSignatureHeader = core.ParseSignatureHeader
	VerifySignature      = core.VerifySignature
	ParsePayload         = core.ParsePayload
	EventTypes           = core.EventTypes
	IsValidEventType     = core.IsValidEventType
	DescribeEventType    = core.DescribeEventType
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewService builds the webhook service with a default HTTP sender already
// wired. Caller options are applied after it, so an injected Deliverer
// replaces the default.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	base := append([]Option{core.WithDeliverer(transport.NewHTTPSender(nil))}, opts...)
	return core.NewService(cfg, base...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}
