package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhooks/core"
)

const subscriptionCacheKeyPrefix = "go-webhooks::active_subscriptions::v1"

// CachedSubscriptionStore layers a read-through cache over the dispatch hot
// path. Only ListActiveByEvent is cached; management reads and writes pass
// straight through, and every mutation drops the owning organization's
// cached entries so dispatch never fans out against a stale roster.
type CachedSubscriptionStore struct {
	base  core.SubscriptionStore
	cache repositorycache.CacheService
}

func NewCachedSubscriptionStore(
	base core.SubscriptionStore,
	cacheService repositorycache.CacheService,
) (*CachedSubscriptionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base subscription store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: subscription cache service is required")
	}
	return &CachedSubscriptionStore{base: base, cache: cacheService}, nil
}

// ActiveSubscriptionsCacheKey returns the deterministic cache key contract
// for dispatch roster reads:
// go-webhooks::active_subscriptions::v1::<organization>::<event_type>
// with each segment URL-path escaped.
func ActiveSubscriptionsCacheKey(orgID string, eventType string) (string, error) {
	orgID = strings.TrimSpace(orgID)
	eventType = strings.TrimSpace(eventType)
	if orgID == "" || eventType == "" {
		return "", fmt.Errorf("sqlstore: organization id and event type are required")
	}
	return subscriptionCacheKeyPrefix + "::" + url.PathEscape(orgID) + "::" + url.PathEscape(eventType), nil
}

func (s *CachedSubscriptionStore) List(ctx context.Context, orgID string) ([]core.Subscription, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	return s.base.List(ctx, orgID)
}

func (s *CachedSubscriptionStore) ListActiveByEvent(ctx context.Context, orgID string, eventType string) ([]core.Subscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	cacheKey, err := ActiveSubscriptionsCacheKey(orgID, eventType)
	if err != nil {
		return nil, err
	}
	subs, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.Subscription, error) {
		fetched, fetchErr := s.base.ListActiveByEvent(ctx, orgID, eventType)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneSubscriptions(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneSubscriptions(subs), nil
}

func (s *CachedSubscriptionStore) Get(ctx context.Context, orgID string, id string) (core.Subscription, error) {
	if s == nil || s.base == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	return s.base.Get(ctx, orgID, id)
}

func (s *CachedSubscriptionStore) Create(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	created, err := s.base.Create(ctx, sub)
	if err != nil {
		return core.Subscription{}, err
	}
	if err := s.invalidateOrganization(ctx, created.OrganizationID); err != nil {
		return core.Subscription{}, err
	}
	return created, nil
}

func (s *CachedSubscriptionStore) Update(ctx context.Context, orgID string, id string, in core.UpdateSubscriptionInput) (core.Subscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	updated, err := s.base.Update(ctx, orgID, id, in)
	if err != nil {
		return core.Subscription{}, err
	}
	if err := s.invalidateOrganization(ctx, orgID); err != nil {
		return core.Subscription{}, err
	}
	return updated, nil
}

func (s *CachedSubscriptionStore) UpdateSecret(ctx context.Context, orgID string, id string, secret string) (core.Subscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	updated, err := s.base.UpdateSecret(ctx, orgID, id, secret)
	if err != nil {
		return core.Subscription{}, err
	}
	if err := s.invalidateOrganization(ctx, orgID); err != nil {
		return core.Subscription{}, err
	}
	return updated, nil
}

func (s *CachedSubscriptionStore) Delete(ctx context.Context, orgID string, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	if err := s.base.Delete(ctx, orgID, id); err != nil {
		return err
	}
	return s.invalidateOrganization(ctx, orgID)
}

// invalidateOrganization drops every cached roster for the organization. A
// mutation can add or remove any tag from a subscription, so all entries
// under the org are suspect; the vocabulary is fixed, which keeps the sweep
// bounded.
func (s *CachedSubscriptionStore) invalidateOrganization(ctx context.Context, orgID string) error {
	for _, descriptor := range core.EventTypes() {
		key, err := ActiveSubscriptionsCacheKey(orgID, descriptor.Tag)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func cloneSubscriptions(subs []core.Subscription) []core.Subscription {
	out := make([]core.Subscription, 0, len(subs))
	for _, sub := range subs {
		sub.EventTypes = copyStringSlice(sub.EventTypes)
		out = append(out, sub)
	}
	return out
}

var _ core.SubscriptionStore = (*CachedSubscriptionStore)(nil)
