package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSubscriptionNotFound = errors.New("core: subscription not found")
	ErrDeliveryNotFound     = errors.New("core: delivery not found")
	ErrInvalidEventType     = errors.New("core: invalid event type")
	ErrInvalidTargetURL     = errors.New("core: invalid target url")
)

// Subscription is a tenant-scoped registration of an outbound endpoint. Every
// read and write against it must filter by OrganizationID; a subscription is
// never visible outside its owning organization.
type Subscription struct {
	ID             string
	OrganizationID string
	Name           string
	TargetURL      string
	Secret         string
	EventTypes     []string
	Active         bool
	TimeoutMS      int
	RetryCount     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Timeout returns the per-attempt delivery deadline. Zero or negative
// TimeoutMS falls back to the supplied default.
func (s Subscription) Timeout(fallback time.Duration) time.Duration {
	if s.TimeoutMS <= 0 {
		return fallback
	}
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// SubscribesTo reports whether the subscription requested the given event
// type tag.
func (s Subscription) SubscribesTo(eventType string) bool {
	eventType = strings.TrimSpace(eventType)
	for _, tag := range s.EventTypes {
		if tag == eventType {
			return true
		}
	}
	return false
}

type CreateSubscriptionInput struct {
	Name       string
	TargetURL  string
	EventTypes []string
}

// UpdateSubscriptionInput carries a partial mutation. Nil fields are left
// untouched; a non-nil empty EventTypes slice clears the event set.
type UpdateSubscriptionInput struct {
	Name       *string
	TargetURL  *string
	EventTypes []string
	Active     *bool
}

func (in UpdateSubscriptionInput) Empty() bool {
	return in.Name == nil && in.TargetURL == nil && in.EventTypes == nil && in.Active == nil
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery is one attempted transmission of one payload to one subscription.
// The payload snapshot is immutable after creation so a later manual retry
// replays the identical bytes, including the original event id.
type Delivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	Payload        json.RawMessage
	ResponseStatus *int
	DeliveredAt    *time.Time
	FailedAt       *time.Time
	FailureReason  string
	RetryCount     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Status derives the delivery state from the outcome timestamps. A row is in
// exactly one state: delivered_at and failed_at are mutually exclusive.
func (d Delivery) Status() DeliveryStatus {
	switch {
	case d.DeliveredAt != nil:
		return DeliveryStatusDelivered
	case d.FailedAt != nil:
		return DeliveryStatusFailed
	default:
		return DeliveryStatusPending
	}
}

type CreateDeliveryInput struct {
	SubscriptionID string
	EventType      string
	Payload        json.RawMessage
}

func (in CreateDeliveryInput) Validate() error {
	if strings.TrimSpace(in.SubscriptionID) == "" {
		return fmt.Errorf("core: delivery subscription id is required")
	}
	if strings.TrimSpace(in.EventType) == "" {
		return fmt.Errorf("core: delivery event type is required")
	}
	if len(in.Payload) == 0 {
		return fmt.Errorf("core: delivery payload snapshot is required")
	}
	return nil
}

// Payload is the wire-level envelope POSTed to subscriber endpoints. It is a
// value object: it is never persisted on its own, only embedded inside a
// Delivery's payload snapshot. Field order matters for readability of the
// serialized body, not for the signature, which covers the exact bytes.
type Payload struct {
	ID             string         `json:"id"`
	Event          string         `json:"event"`
	Timestamp      string         `json:"timestamp"`
	OrganizationID string         `json:"organization_id"`
	Data           map[string]any `json:"data"`
}

// ParsePayload decodes a stored payload snapshot back into its envelope.
func ParsePayload(raw []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Payload{}, fmt.Errorf("core: decode payload snapshot: %w", err)
	}
	return payload, nil
}

// DispatchStats summarizes one fan-out pass. Dispatch exposes no error
// channel to its caller; outcomes are collected here, logged, and discarded.
type DispatchStats struct {
	Matched      int
	Delivered    int
	Failed       int
	RecordErrors int
}

// AttemptOutcome is the transport-level result of a single POST. Any HTTP
// response, including 4xx/5xx, counts as delivered; only connection-level
// failures mark the attempt failed.
type AttemptOutcome struct {
	Delivered      bool
	ResponseStatus int
	FailureReason  string
	Duration       time.Duration
}

// RetryResult is returned by manual delivery replay. Unlike dispatch, retry
// is operator-initiated and its outcome must be observable.
type RetryResult struct {
	Delivery Delivery
	Outcome  AttemptOutcome
}

// TestFireResult reports a synthetic endpoint probe. Test-fire writes no
// ledger row; the raw status or failure reason is the only trace.
type TestFireResult struct {
	SubscriptionID string
	PayloadID      string
	EventType      string
	Outcome        AttemptOutcome
}

// DeliveryRetentionPolicy bounds ledger growth. A zero TTL disables the age
// cut; a zero RowCap disables the count cut.
type DeliveryRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

func (p DeliveryRetentionPolicy) Validate() error {
	if p.TTL < 0 {
		return fmt.Errorf("core: retention ttl must not be negative")
	}
	if p.RowCap < 0 {
		return fmt.Errorf("core: retention row cap must not be negative")
	}
	if p.TTL == 0 && p.RowCap == 0 {
		return fmt.Errorf("core: retention policy requires a ttl or a row cap")
	}
	return nil
}

func cloneSubscription(sub Subscription) Subscription {
	cloned := sub
	cloned.EventTypes = append([]string(nil), sub.EventTypes...)
	return cloned
}

func cloneDelivery(delivery Delivery) Delivery {
	cloned := delivery
	cloned.Payload = append(json.RawMessage(nil), delivery.Payload...)
	cloned.ResponseStatus = cloneIntPointer(delivery.ResponseStatus)
	cloned.DeliveredAt = cloneTimePointer(delivery.DeliveredAt)
	cloned.FailedAt = cloneTimePointer(delivery.FailedAt)
	return cloned
}

func cloneIntPointer(input *int) *int {
	if input == nil {
		return nil
	}
	value := *input
	return &value
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := *input
	return &value
}
