package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ListSubscriptions returns every subscription registered for the
// organization, newest first.
func (s *Service) ListSubscriptions(ctx context.Context, orgID string) ([]Subscription, error) {
	if s == nil || s.subscriptionStore == nil {
		return nil, s.mapError(fmt.Errorf("core: subscription store is required"))
	}

	orgID, err := s.requireOrganization(orgID)
	if err != nil {
		return nil, s.mapError(err)
	}

	subs, err := s.subscriptionStore.List(ctx, orgID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return subs, nil
}

// GetSubscription fetches a single subscription scoped to the organization.
// A subscription owned by another tenant reports not-found rather than
// acknowledging that the identifier exists.
func (s *Service) GetSubscription(ctx context.Context, orgID, id string) (Subscription, error) {
	if s == nil || s.subscriptionStore == nil {
		return Subscription{}, s.mapError(fmt.Errorf("core: subscription store is required"))
	}

	orgID, err := s.requireOrganization(orgID)
	if err != nil {
		return Subscription{}, s.mapError(err)
	}
	if strings.TrimSpace(id) == "" {
		return Subscription{}, s.mapError(fmt.Errorf("core: subscription id is required"))
	}

	sub, err := s.subscriptionStore.Get(ctx, orgID, id)
	if err != nil {
		return Subscription{}, s.mapError(err)
	}
	return sub, nil
}

// CreateSubscription registers a new endpoint for the organization. The
// subscription starts active with a freshly generated signing secret and
// the configured default timeout and retry budget.
func (s *Service) CreateSubscription(ctx context.Context, orgID string, in CreateSubscriptionInput) (sub Subscription, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"organization_id": orgID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "subscriptions.create", err, fields)
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

	name := strings.TrimSpace(in.Name)
	if name == "" {
		err = s.mapError(newFieldValidationError("name", "name is required"))
		return
	}

	target, err := validateTargetURL(in.TargetURL)
	if err != nil {
		err = s.mapError(err)
		return
	}

	events := normalizeEventTypes(in.EventTypes)
	if err = validateEventTypes(events); err != nil {
		err = s.mapError(err)
		return
	}

	secret, err := generateSecret(s.randomSource, s.config.Subscriptions.SecretBytes)
	if err != nil {
		err = s.mapError(err)
		return
	}

	sub, err = s.subscriptionStore.Create(ctx, Subscription{
		OrganizationID: orgID,
		Name:           name,
		TargetURL:      target,
		Secret:         secret,
		EventTypes:     events,
		Active:         true,
		TimeoutMS:      s.config.Subscriptions.DefaultTimeoutMS,
		RetryCount:     s.config.Subscriptions.DefaultRetryBudget,
	})
	if err != nil {
		err = s.mapError(err)
		return
	}
	fields["subscription_id"] = sub.ID
	return sub, nil
}

// UpdateSubscription applies a partial update. Omitted fields keep their
// stored values; a provided URL or event list is re-validated the same way
// create validates them.
func (s *Service) UpdateSubscription(ctx context.Context, orgID, id string, in UpdateSubscriptionInput) (sub Subscription, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"organization_id": orgID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "subscriptions.update", err, fields)
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
	if strings.TrimSpace(id) == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return
	}
	if in.Empty() {
		err = s.mapError(fmt.Errorf("core: at least one field is required"))
		return
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			err = s.mapError(newFieldValidationError("name", "name cannot be empty"))
			return
		}
		in.Name = &name
	}
	if in.TargetURL != nil {
		target, urlErr := validateTargetURL(*in.TargetURL)
		if urlErr != nil {
			err = s.mapError(urlErr)
			return
		}
		in.TargetURL = &target
	}
	if in.EventTypes != nil {
		events := normalizeEventTypes(in.EventTypes)
		if err = validateEventTypes(events); err != nil {
			err = s.mapError(err)
			return
		}
		in.EventTypes = events
	}

	sub, err = s.subscriptionStore.Update(ctx, orgID, id, in)
	if err != nil {
		err = s.mapError(err)
		return
	}
	return sub, nil
}

// DeleteSubscription removes the subscription permanently. Delivery rows
// recorded against it stay in place for audit history.
func (s *Service) DeleteSubscription(ctx context.Context, orgID, id string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"organization_id": orgID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "subscriptions.delete", err, fields)
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
	if strings.TrimSpace(id) == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return
	}

	if err = s.subscriptionStore.Delete(ctx, orgID, id); err != nil {
		err = s.mapError(err)
		return
	}
	return nil
}

// RegenerateSubscriptionSecret replaces the signing secret and returns the
// updated subscription. The previous secret stops verifying immediately;
// callers read the new value from the returned record.
func (s *Service) RegenerateSubscriptionSecret(ctx context.Context, orgID, id string) (sub Subscription, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"organization_id": orgID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "subscriptions.regenerate_secret", err, fields)
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
	if strings.TrimSpace(id) == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return
	}

	secret, err := generateSecret(s.randomSource, s.config.Subscriptions.SecretBytes)
	if err != nil {
		err = s.mapError(err)
		return
	}

	sub, err = s.subscriptionStore.UpdateSecret(ctx, orgID, id, secret)
	if err != nil {
		err = s.mapError(err)
		return
	}
	return sub, nil
}

// ListEventTypes exposes the event vocabulary subscriptions can select
// from. The list is static per build.
func (s *Service) ListEventTypes() []EventTypeDescriptor {
	return EventTypes()
}

func validateTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("core: %w: url is required", ErrInvalidTargetURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("core: %w: %v", ErrInvalidTargetURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("core: %w: scheme must be http or https", ErrInvalidTargetURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("core: %w: host is required", ErrInvalidTargetURL)
	}
	return parsed.String(), nil
}
