package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubscriptionStore persists webhook endpoint registrations. Every read and
// write filters by organization; a row owned by another tenant surfaces as
// core.ErrSubscriptionNotFound, never as a permission error.
type SubscriptionStore struct {
	db   *bun.DB
	repo repository.Repository[*subscriptionRecord]
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*subscriptionRecord](db, subscriptionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid subscription repository wiring: %w", err)
		}
	}
	return &SubscriptionStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SubscriptionStore) List(ctx context.Context, orgID string) ([]core.Subscription, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("sqlstore: organization id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("organization_id", "=", orgID),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Subscription, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *SubscriptionStore) ListActiveByEvent(ctx context.Context, orgID string, eventType string) ([]core.Subscription, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	orgID = strings.TrimSpace(orgID)
	eventType = strings.TrimSpace(eventType)
	if orgID == "" || eventType == "" {
		return nil, fmt.Errorf("sqlstore: organization id and event type are required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("organization_id", "=", orgID),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.active = ?", true)
		}),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	// Tag membership is checked in process so the filter behaves the same
	// on postgres and sqlite.
	out := make([]core.Subscription, 0, len(records))
	for _, record := range records {
		sub := record.toDomain()
		if !sub.SubscribesTo(eventType) {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *SubscriptionStore) Get(ctx context.Context, orgID string, id string) (core.Subscription, error) {
	if s == nil || s.db == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	record, err := s.getRecord(ctx, orgID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	return record.toDomain(), nil
}

func (s *SubscriptionStore) Create(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if s == nil || s.repo == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	if strings.TrimSpace(sub.OrganizationID) == "" {
		return core.Subscription{}, fmt.Errorf("sqlstore: organization id is required")
	}
	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = uuid.NewString()
	}
	record := newSubscriptionRecord(sub, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Subscription{}, err
	}
	return created.toDomain(), nil
}

func (s *SubscriptionStore) Update(ctx context.Context, orgID string, id string, in core.UpdateSubscriptionInput) (core.Subscription, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	record, err := s.getRecord(ctx, orgID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	if in.Name != nil {
		record.Name = *in.Name
	}
	if in.TargetURL != nil {
		record.TargetURL = *in.TargetURL
	}
	if in.EventTypes != nil {
		record.EventTypes = copyStringSlice(in.EventTypes)
	}
	if in.Active != nil {
		record.Active = *in.Active
	}
	record.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.Subscription{}, err
	}
	return updated.toDomain(), nil
}

func (s *SubscriptionStore) UpdateSecret(ctx context.Context, orgID string, id string, secret string) (core.Subscription, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Subscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	if strings.TrimSpace(secret) == "" {
		return core.Subscription{}, fmt.Errorf("sqlstore: signing secret is required")
	}
	record, err := s.getRecord(ctx, orgID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	record.Secret = secret
	record.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.Subscription{}, err
	}
	return updated.toDomain(), nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, orgID string, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: subscription store is not configured")
	}
	orgID = strings.TrimSpace(orgID)
	id = strings.TrimSpace(id)
	if orgID == "" || id == "" {
		return fmt.Errorf("sqlstore: organization id and subscription id are required")
	}
	res, err := s.db.NewDelete().
		Model((*subscriptionRecord)(nil)).
		Where("id = ?", id).
		Where("organization_id = ?", orgID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrSubscriptionNotFound, id)
	}
	return nil
}

func (s *SubscriptionStore) getRecord(ctx context.Context, orgID string, id string) (*subscriptionRecord, error) {
	orgID = strings.TrimSpace(orgID)
	id = strings.TrimSpace(id)
	if orgID == "" || id == "" {
		return nil, fmt.Errorf("sqlstore: organization id and subscription id are required")
	}
	record := &subscriptionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.organization_id = ?", orgID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrSubscriptionNotFound, id)
		}
		return nil, err
	}
	return record, nil
}

var _ core.SubscriptionStore = (*SubscriptionStore)(nil)
