package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ListDeliveries returns the recorded delivery attempts for one
// subscription, newest first. The subscription lookup doubles as the
// tenant check: asking about another organization's subscription reports
// not-found before any delivery rows are touched.
func (s *Service) ListDeliveries(ctx context.Context, orgID, subscriptionID string, limit int) ([]Delivery, error) {
	if s == nil || s.subscriptionStore == nil || s.deliveryLedger == nil {
		return nil, s.mapError(fmt.Errorf("core: subscription store and delivery ledger are required"))
	}

	orgID, err := s.requireOrganization(orgID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, s.mapError(fmt.Errorf("core: subscription id is required"))
	}

	sub, err := s.subscriptionStore.Get(ctx, orgID, subscriptionID)
	if err != nil {
		return nil, s.mapError(err)
	}

	if limit <= 0 {
		limit = s.config.Deliveries.ListLimit
	}
	if max := s.config.Deliveries.MaxListLimit; max > 0 && limit > max {
		limit = max
	}

	deliveries, err := s.deliveryLedger.ListBySubscription(ctx, sub.ID, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	return deliveries, nil
}

// RetryDelivery replays a recorded delivery: the stored payload bytes are
// re-signed with a fresh timestamp and sent again under the original
// payload id, with a retry marker header set. The attempt is marked on the
// same ledger row and the retry counter increments whether or not the
// receiver accepted it.
//
// A delivery whose subscription belongs to another organization reports
// not-found, indistinguishable from an id that never existed.
func (s *Service) RetryDelivery(ctx context.Context, orgID, deliveryID string) (result RetryResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"organization_id": orgID,
		"delivery_id":     deliveryID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "deliveries.retry", err, fields)
	}()

	if s.subscriptionStore == nil || s.deliveryLedger == nil {
		err = s.mapError(fmt.Errorf("core: subscription store and delivery ledger are required"))
		return
	}
	orgID, err = s.requireOrganization(orgID)
	if err != nil {
		err = s.mapError(err)
		return
	}
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		err = s.mapError(fmt.Errorf("core: delivery id is required"))
		return
	}

	delivery, err := s.deliveryLedger.Get(ctx, deliveryID)
	if err != nil {
		err = s.mapError(err)
		return
	}

	sub, subErr := s.subscriptionStore.Get(ctx, orgID, delivery.SubscriptionID)
	if subErr != nil {
		if errors.Is(subErr, ErrSubscriptionNotFound) {
			subErr = fmt.Errorf("core: %w: %s", ErrDeliveryNotFound, deliveryID)
		}
		err = s.mapError(subErr)
		return
	}
	fields["subscription_id"] = sub.ID
	fields["event"] = delivery.EventType

	payload, parseErr := ParsePayload(delivery.Payload)
	if parseErr != nil {
		err = s.mapError(fmt.Errorf("core: stored payload is not valid JSON: %w", parseErr))
		return
	}
	fields["payload_id"] = payload.ID

	outcome := s.attemptDelivery(ctx, sub, delivery.EventType, payload.ID, delivery.Payload, true)
	fields["delivered"] = outcome.Delivered

	logFields := cloneFields(fields)
	s.markDeliveryOutcome(ctx, delivery.ID, outcome, nil, logFields)

	if incErr := s.deliveryLedger.IncrementRetryCount(ctx, delivery.ID); incErr != nil {
		s.logError(ctx, "webhook retry counter could not be updated", withErrorField(fields, incErr))
	}

	updated, getErr := s.deliveryLedger.Get(ctx, delivery.ID)
	if getErr != nil {
		s.logError(ctx, "webhook delivery row could not be reloaded", withErrorField(fields, getErr))
		updated = delivery
	}

	return RetryResult{Delivery: updated, Outcome: outcome}, nil
}

// PruneDeliveries trims old ledger rows per the retention policy and
// reports how many were removed. Intended to run from a scheduled job in
// the host application.
func (s *Service) PruneDeliveries(ctx context.Context, policy DeliveryRetentionPolicy) (pruned int, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "deliveries.prune", err, fields)
	}()

	if s.deliveryLedger == nil {
		err = s.mapError(fmt.Errorf("core: delivery ledger is required"))
		return
	}
	if err = policy.Validate(); err != nil {
		err = s.mapError(err)
		return
	}

	pruned, err = s.deliveryLedger.Prune(ctx, policy)
	if err != nil {
		err = s.mapError(err)
		return
	}
	fields["pruned"] = pruned
	return pruned, nil
}
