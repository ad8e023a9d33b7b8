package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outbound request headers attached to every webhook delivery.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderID        = "X-Webhook-ID"
	HeaderRetry     = "X-Webhook-Retry"
)

// Dispatch fans an event out to every active subscription of the
// organization that selected its event type. The payload is serialized
// once and the identical bytes go to every receiver under a shared
// payload id, so a subscriber outage never changes what its peers see.
//
// Dispatch never returns an error: emitting an event must not fail the
// business operation that produced it. Failures are recorded on the
// delivery ledger and logged, and the returned stats summarize what
// happened for callers that want to surface it.
func (s *Service) Dispatch(ctx context.Context, orgID, eventType string, data map[string]any) DispatchStats {
	startedAt := time.Now().UTC()
	stats := DispatchStats{}
	fields := map[string]any{
		"organization_id": orgID,
		"event":           eventType,
	}
	defer func() {
		fields["matched"] = stats.Matched
		fields["delivered"] = stats.Delivered
		fields["failed"] = stats.Failed
		s.observeOperation(ctx, startedAt, "dispatch", nil, fields)
	}()

	if s == nil || s.subscriptionStore == nil || s.deliveryLedger == nil {
		s.logError(ctx, "webhook dispatch skipped: stores are not configured", fields)
		return stats
	}

	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		s.logWarn(ctx, "webhook dispatch skipped: organization context is required", fields)
		return stats
	}
	if !IsValidEventType(eventType) {
		s.logWarn(ctx, "webhook dispatch skipped: unknown event type", fields)
		return stats
	}

	subs, err := s.subscriptionStore.ListActiveByEvent(ctx, orgID, eventType)
	if err != nil {
		s.logError(ctx, "webhook dispatch skipped: listing subscriptions failed", withErrorField(fields, err))
		return stats
	}
	stats.Matched = len(subs)
	if len(subs) == 0 {
		return stats
	}

	// Snapshot the caller's map so the serialized bytes stay the single
	// source of truth; nil data serializes as an empty object.
	payload := Payload{
		ID:             uuid.NewString(),
		Event:          eventType,
		Timestamp:      s.clockNow().Format(time.RFC3339),
		OrganizationID: orgID,
		Data:           copyAnyMap(data),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.logError(ctx, "webhook dispatch skipped: payload serialization failed", withErrorField(fields, err))
		return stats
	}
	if max := s.config.Deliveries.PayloadMaxBytes; max > 0 && len(body) > max {
		fields["payload_bytes"] = len(body)
		s.logError(ctx, "webhook dispatch skipped: payload exceeds configured size limit", fields)
		return stats
	}
	fields["payload_id"] = payload.ID

	for _, sub := range subs {
		outcome := s.deliverAndRecord(ctx, sub, eventType, payload.ID, body, &stats)
		if outcome.Delivered {
			stats.Delivered++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// deliverAndRecord runs the ledger-then-attempt sequence for one
// subscription: create the pending row, POST, then mark the row with the
// outcome. A ledger write failure is logged and counted but never stops
// the attempt; the receiver still gets its webhook.
func (s *Service) deliverAndRecord(ctx context.Context, sub Subscription, eventType, payloadID string, body []byte, stats *DispatchStats) AttemptOutcome {
	logFields := map[string]any{
		"organization_id": sub.OrganizationID,
		"subscription_id": sub.ID,
		"event":           eventType,
		"payload_id":      payloadID,
	}

	deliveryID := ""
	record, err := s.deliveryLedger.Create(ctx, CreateDeliveryInput{
		SubscriptionID: sub.ID,
		EventType:      eventType,
		Payload:        body,
	})
	if err != nil {
		stats.RecordErrors++
		s.logError(ctx, "webhook delivery row could not be created", withErrorField(logFields, err))
	} else {
		deliveryID = record.ID
		logFields["delivery_id"] = deliveryID
	}

	outcome := s.attemptDelivery(ctx, sub, eventType, payloadID, body, false)
	s.markDeliveryOutcome(ctx, deliveryID, outcome, stats, logFields)
	return outcome
}

// markDeliveryOutcome writes the attempt result back onto the ledger row
// and emits the per-attempt log line and counter.
func (s *Service) markDeliveryOutcome(ctx context.Context, deliveryID string, outcome AttemptOutcome, stats *DispatchStats, logFields map[string]any) {
	at := s.clockNow()
	status := DeliveryStatusFailed
	if outcome.Delivered {
		status = DeliveryStatusDelivered
		logFields["response_status"] = outcome.ResponseStatus
	} else {
		logFields["failure_reason"] = outcome.FailureReason
	}
	logFields["duration_ms"] = outcome.Duration.Milliseconds()

	if deliveryID != "" {
		var markErr error
		if outcome.Delivered {
			markErr = s.deliveryLedger.MarkDelivered(ctx, deliveryID, outcome.ResponseStatus, at)
		} else {
			markErr = s.deliveryLedger.MarkFailed(ctx, deliveryID, outcome.FailureReason, at)
		}
		if markErr != nil {
			if stats != nil {
				stats.RecordErrors++
			}
			s.logError(ctx, "webhook delivery row could not be updated", withErrorField(logFields, markErr))
		}
	}

	if outcome.Delivered {
		s.logInfo(ctx, "webhook delivered", logFields)
	} else {
		s.logWarn(ctx, "webhook delivery failed", logFields)
	}
	s.recordCounter(ctx, "webhooks.deliveries.total", 1, map[string]string{
		"status": string(status),
	})
}

// attemptDelivery signs the payload bytes and POSTs them to the
// subscription endpoint. Any HTTP response counts as delivered no matter
// the status code; only a transport-level failure (timeout, refused
// connection, TLS error) counts as failed.
func (s *Service) attemptDelivery(ctx context.Context, sub Subscription, eventType, payloadID string, body []byte, retry bool) AttemptOutcome {
	if s == nil || s.deliverer == nil {
		return AttemptOutcome{FailureReason: "webhook deliverer is not configured"}
	}

	signedAt := s.clockNow().Unix()
	headers := map[string]string{
		"Content-Type":  "application/json",
		"User-Agent":    s.config.Deliveries.UserAgent,
		HeaderSignature: SignPayload(sub.Secret, signedAt, body),
		HeaderEvent:     eventType,
		HeaderID:        payloadID,
	}
	if retry {
		headers[HeaderRetry] = "true"
	}

	defaultTimeout := time.Duration(s.config.Subscriptions.DefaultTimeoutMS) * time.Millisecond
	attemptStarted := time.Now()
	resp, err := s.deliverer.Deliver(ctx, DeliveryRequest{
		URL:     sub.TargetURL,
		Body:    body,
		Headers: headers,
		Timeout: sub.Timeout(defaultTimeout),
	})
	elapsed := time.Since(attemptStarted)
	if err != nil {
		return AttemptOutcome{
			FailureReason: failureReason(err),
			Duration:      elapsed,
		}
	}
	return AttemptOutcome{
		Delivered:      true,
		ResponseStatus: resp.StatusCode,
		Duration:       elapsed,
	}
}

// TestFire sends a synthetic payload to one subscription so an operator
// can confirm the endpoint and secret before real traffic flows. The
// attempt bypasses the delivery ledger entirely and the raw outcome is
// returned instead.
func (s *Service) TestFire(ctx context.Context, orgID, subscriptionID string) (result TestFireResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"organization_id": orgID,
		"subscription_id": subscriptionID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "test_fire", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return
	}
	orgID, err = s.requireOrganization(orgID)
	if err != nil {
		err = s.mapError(err)
		return
	}
	if strings.TrimSpace(subscriptionID) == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return
	}

	sub, err := s.subscriptionStore.Get(ctx, orgID, subscriptionID)
	if err != nil {
		err = s.mapError(err)
		return
	}

	payload := Payload{
		ID:             uuid.NewString(),
		Event:          EventTypeTest,
		Timestamp:      s.clockNow().Format(time.RFC3339),
		OrganizationID: orgID,
		Data: map[string]any{
			"message": "test webhook delivery",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		err = s.mapError(fmt.Errorf("core: serialize test payload: %w", err))
		return
	}

	outcome := s.attemptDelivery(ctx, sub, EventTypeTest, payload.ID, body, false)
	fields["delivered"] = outcome.Delivered

	return TestFireResult{
		SubscriptionID: sub.ID,
		PayloadID:      payload.ID,
		EventType:      EventTypeTest,
		Outcome:        outcome,
	}, nil
}

// failureReason renders a transport error the way an operator will read
// it on the delivery row.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout exceeded waiting for response"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout exceeded waiting for response"
	}
	return err.Error()
}

func withErrorField(fields map[string]any, err error) map[string]any {
	merged := cloneFields(fields)
	if err != nil {
		merged["error"] = err.Error()
	}
	return merged
}
