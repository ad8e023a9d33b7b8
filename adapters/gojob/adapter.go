package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

// Job identifiers the host application's runner can route to the webhook
// service. The subsystem itself runs no worker or scheduler; these exist so
// dispatch and ledger pruning can be carried by the host's go-job queue.
const (
	JobIDDispatch        = "webhooks.dispatch"
	JobIDPruneDeliveries = "webhooks.deliveries.prune"
)

// NewDispatchMessage builds the execution message for a queued webhook
// fan-out. The idempotency key covers org and event so an accidentally
// double-enqueued business operation collapses to one dispatch.
func NewDispatchMessage(orgID, eventType string, data map[string]any) (*core.JobExecutionMessage, error) {
	orgID = strings.TrimSpace(orgID)
	eventType = strings.TrimSpace(eventType)
	if orgID == "" {
		return nil, fmt.Errorf("gojob: organization id is required")
	}
	if !core.IsValidEventType(eventType) {
		return nil, fmt.Errorf("gojob: unknown event type %q", eventType)
	}
	return &core.JobExecutionMessage{
		JobID: JobIDDispatch,
		Parameters: map[string]any{
			"organization_id": orgID,
			"event":           eventType,
			"data":            copyAnyMap(data),
		},
		IdempotencyKey: JobIDDispatch + "::" + orgID + "::" + eventType,
		DedupPolicy:    "drop",
	}, nil
}

// DispatchArguments unpacks a dispatch execution message back into the
// Dispatch call's arguments.
func DispatchArguments(msg *core.JobExecutionMessage) (orgID string, eventType string, data map[string]any, err error) {
	if msg == nil || msg.JobID != JobIDDispatch {
		return "", "", nil, fmt.Errorf("gojob: message is not a dispatch job")
	}
	orgID, _ = msg.Parameters["organization_id"].(string)
	eventType, _ = msg.Parameters["event"].(string)
	if strings.TrimSpace(orgID) == "" || strings.TrimSpace(eventType) == "" {
		return "", "", nil, fmt.Errorf("gojob: dispatch job requires organization_id and event parameters")
	}
	if raw, ok := msg.Parameters["data"].(map[string]any); ok {
		data = copyAnyMap(raw)
	}
	return orgID, eventType, data, nil
}

// NewPruneMessage builds the execution message for a scheduled delivery
// retention sweep.
func NewPruneMessage(policy core.DeliveryRetentionPolicy) (*core.JobExecutionMessage, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &core.JobExecutionMessage{
		JobID: JobIDPruneDeliveries,
		Parameters: map[string]any{
			"ttl_seconds": int64(policy.TTL / time.Second),
			"row_cap":     int64(policy.RowCap),
		},
		IdempotencyKey: JobIDPruneDeliveries,
		DedupPolicy:    "drop",
	}, nil
}

// PruneArguments unpacks a prune execution message into the retention
// policy it carries.
func PruneArguments(msg *core.JobExecutionMessage) (core.DeliveryRetentionPolicy, error) {
	if msg == nil || msg.JobID != JobIDPruneDeliveries {
		return core.DeliveryRetentionPolicy{}, fmt.Errorf("gojob: message is not a prune job")
	}
	policy := core.DeliveryRetentionPolicy{
		TTL:    time.Duration(toInt64(msg.Parameters["ttl_seconds"])) * time.Second,
		RowCap: int(toInt64(msg.Parameters["row_cap"])),
	}
	if err := policy.Validate(); err != nil {
		return core.DeliveryRetentionPolicy{}, err
	}
	return policy, nil
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a webhook runtime message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the webhook contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps webhook nack options to go-job.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// FromNackOptions maps go-job nack options to the webhook contract.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeliveryAdapter(delivery, a.policy), nil
}

type WorkerHookAdapter struct {
	hook core.JobWorkerHook
}

func NewWorkerHookAdapter(hook core.JobWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, mapWorkerEvent(event))
}

func mapWorkerEvent(event worker.Event) core.JobWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	return core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func toInt64(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case float64:
		return int64(typed)
	default:
		return 0
	}
}

var (
	_ core.JobEnqueuer   = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery   = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer   = (*DequeuerAdapter)(nil)
	_ worker.Hook        = (*WorkerHookAdapter)(nil)
	_ core.JobWorkerHook = (*compatCoreHook)(nil)
)

// compatCoreHook only exists to assert local compile-time compatibility.
type compatCoreHook struct{}

func (compatCoreHook) OnStart(context.Context, core.JobWorkerEvent)   {}
func (compatCoreHook) OnSuccess(context.Context, core.JobWorkerEvent) {}
func (compatCoreHook) OnFailure(context.Context, core.JobWorkerEvent) {}
func (compatCoreHook) OnRetry(context.Context, core.JobWorkerEvent)   {}
