package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SubscriptionStore persists tenant-scoped endpoint registrations. Every
// method that takes an orgID must filter by it; implementations report
// cross-tenant access as not-found rather than forbidden.
type SubscriptionStore interface {
	List(ctx context.Context, orgID string) ([]Subscription, error)
	ListActiveByEvent(ctx context.Context, orgID string, eventType string) ([]Subscription, error)
	Get(ctx context.Context, orgID string, id string) (Subscription, error)
	Create(ctx context.Context, sub Subscription) (Subscription, error)
	Update(ctx context.Context, orgID string, id string, in UpdateSubscriptionInput) (Subscription, error)
	UpdateSecret(ctx context.Context, orgID string, id string, secret string) (Subscription, error)
	Delete(ctx context.Context, orgID string, id string) error
}

// DeliveryLedger records one row per attempted transmission. Rows are
// append-only from dispatch's point of view; only outcome fields and the
// retry counter mutate afterwards. Tenant checks happen upstream through
// the owning subscription.
type DeliveryLedger interface {
	Create(ctx context.Context, in CreateDeliveryInput) (Delivery, error)
	Get(ctx context.Context, id string) (Delivery, error)
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]Delivery, error)
	MarkDelivered(ctx context.Context, id string, responseStatus int, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) error
	IncrementRetryCount(ctx context.Context, id string) error
	Prune(ctx context.Context, policy DeliveryRetentionPolicy) (int, error)
}

// DeliveryRequest is one outbound POST. Body carries the exact signed
// payload bytes; Timeout bounds the whole attempt.
type DeliveryRequest struct {
	URL     string
	Body    []byte
	Headers map[string]string
	Timeout time.Duration
}

type DeliveryResponse struct {
	StatusCode int
	Duration   time.Duration
}

// Deliverer executes a single webhook POST. A returned error means the
// request never produced an HTTP response (timeout, DNS, refused, TLS);
// any response, whatever the status code, returns nil.
type Deliverer interface {
	Deliver(ctx context.Context, req DeliveryRequest) (DeliveryResponse, error)
}

type StoreProvider interface {
	SubscriptionStore() SubscriptionStore
	DeliveryLedger() DeliveryLedger
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// WebhookService is the full operation surface of the subsystem. Callers
// that only need a slice of it should declare their own narrower
// interface; this one exists so the concrete Service cannot drift from
// the documented API.
type WebhookService interface {
	ListSubscriptions(ctx context.Context, orgID string) ([]Subscription, error)
	GetSubscription(ctx context.Context, orgID, id string) (Subscription, error)
	CreateSubscription(ctx context.Context, orgID string, in CreateSubscriptionInput) (Subscription, error)
	UpdateSubscription(ctx context.Context, orgID, id string, in UpdateSubscriptionInput) (Subscription, error)
	DeleteSubscription(ctx context.Context, orgID, id string) error
	RegenerateSubscriptionSecret(ctx context.Context, orgID, id string) (Subscription, error)
	ListEventTypes() []EventTypeDescriptor
	Dispatch(ctx context.Context, orgID, eventType string, data map[string]any) DispatchStats
	TestFire(ctx context.Context, orgID, subscriptionID string) (TestFireResult, error)
	ListDeliveries(ctx context.Context, orgID, subscriptionID string, limit int) ([]Delivery, error)
	RetryDelivery(ctx context.Context, orgID, deliveryID string) (RetryResult, error)
	PruneDeliveries(ctx context.Context, policy DeliveryRetentionPolicy) (int, error)
}
