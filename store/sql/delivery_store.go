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

// DeliveryStore is the durable delivery ledger. Rows are inserted once by
// dispatch; afterwards only the outcome columns and the retry counter ever
// change. Tenant scoping happens upstream through the owning subscription.
type DeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryRecord]
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *DeliveryStore) Create(ctx context.Context, in core.CreateDeliveryInput) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	if err := in.Validate(); err != nil {
		return core.Delivery{}, err
	}
	record := newDeliveryRecord(in, time.Now().UTC())
	record.ID = uuid.NewString()
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Delivery{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryStore) Get(ctx context.Context, id string) (core.Delivery, error) {
	if s == nil || s.db == nil {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Delivery{}, fmt.Errorf("sqlstore: delivery id is required")
	}
	record := &deliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Delivery{}, fmt.Errorf("%w: %s", core.ErrDeliveryNotFound, id)
		}
		return core.Delivery{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryStore) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]core.Delivery, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, fmt.Errorf("sqlstore: subscription id is required")
	}
	selectors := []repository.SelectCriteria{
		repository.SelectBy("subscription_id", "=", subscriptionID),
		repository.OrderBy("created_at DESC"),
	}
	if limit > 0 {
		selectors = append(selectors, repository.SelectPaginate(limit, 0))
	}
	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}
	out := make([]core.Delivery, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *DeliveryStore) MarkDelivered(ctx context.Context, id string, responseStatus int, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: delivery id is required")
	}
	res, err := s.db.NewUpdate().
		Model((*deliveryRecord)(nil)).
		Set("response_status = ?", responseStatus).
		Set("delivered_at = ?", at.UTC()).
		Set("failed_at = NULL").
		Set("failure_reason = ''").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDeliveryNotFound, id)
	}
	return nil
}

func (s *DeliveryStore) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: delivery id is required")
	}
	res, err := s.db.NewUpdate().
		Model((*deliveryRecord)(nil)).
		Set("failure_reason = ?", reason).
		Set("failed_at = ?", at.UTC()).
		Set("delivered_at = NULL").
		Set("response_status = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDeliveryNotFound, id)
	}
	return nil
}

func (s *DeliveryStore) IncrementRetryCount(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: delivery id is required")
	}
	res, err := s.db.NewUpdate().
		Model((*deliveryRecord)(nil)).
		Set("retry_count = retry_count + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrDeliveryNotFound, id)
	}
	return nil
}

func (s *DeliveryStore) Prune(ctx context.Context, policy core.DeliveryRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	deleted := 0
	now := time.Now().UTC()

	if policy.TTL > 0 {
		cutoff := now.Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*deliveryRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*deliveryRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM webhook_deliveries WHERE id IN (SELECT id FROM webhook_deliveries ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

var _ core.DeliveryLedger = (*DeliveryStore)(nil)
