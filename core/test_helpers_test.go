package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type memorySubscriptionStore struct {
	mu    sync.Mutex
	next  int
	order []string
	byID  map[string]Subscription

	listErr       error
	listActiveErr error
	createErr     error
	updateErr     error
}

func newMemorySubscriptionStore() *memorySubscriptionStore {
	return &memorySubscriptionStore{byID: map[string]Subscription{}}
}

func (s *memorySubscriptionStore) seed(sub Subscription) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		s.next++
		sub.ID = fmt.Sprintf("sub_%d", s.next)
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}
	s.byID[sub.ID] = cloneSubscription(sub)
	s.order = append(s.order, sub.ID)
	return cloneSubscription(sub)
}

func (s *memorySubscriptionStore) List(_ context.Context, orgID string) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []Subscription{}
	for i := len(s.order) - 1; i >= 0; i-- {
		record, ok := s.byID[s.order[i]]
		if !ok || record.OrganizationID != orgID {
			continue
		}
		out = append(out, cloneSubscription(record))
	}
	return out, nil
}

func (s *memorySubscriptionStore) ListActiveByEvent(_ context.Context, orgID string, eventType string) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listActiveErr != nil {
		return nil, s.listActiveErr
	}
	out := []Subscription{}
	for i := len(s.order) - 1; i >= 0; i-- {
		record, ok := s.byID[s.order[i]]
		if !ok || record.OrganizationID != orgID {
			continue
		}
		if !record.Active || !record.SubscribesTo(eventType) {
			continue
		}
		out = append(out, cloneSubscription(record))
	}
	return out, nil
}

func (s *memorySubscriptionStore) Get(_ context.Context, orgID string, id string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok || record.OrganizationID != orgID {
		return Subscription{}, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	return cloneSubscription(record), nil
}

func (s *memorySubscriptionStore) Create(_ context.Context, sub Subscription) (Subscription, error) {
	if s.createErr != nil {
		return Subscription{}, s.createErr
	}
	return s.seed(sub), nil
}

func (s *memorySubscriptionStore) Update(_ context.Context, orgID string, id string, in UpdateSubscriptionInput) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Subscription{}, s.updateErr
	}
	record, ok := s.byID[id]
	if !ok || record.OrganizationID != orgID {
		return Subscription{}, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	if in.Name != nil {
		record.Name = *in.Name
	}
	if in.TargetURL != nil {
		record.TargetURL = *in.TargetURL
	}
	if in.EventTypes != nil {
		record.EventTypes = append([]string(nil), in.EventTypes...)
	}
	if in.Active != nil {
		record.Active = *in.Active
	}
	record.UpdatedAt = time.Now().UTC()
	s.byID[id] = record
	return cloneSubscription(record), nil
}

func (s *memorySubscriptionStore) UpdateSecret(_ context.Context, orgID string, id string, secret string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok || record.OrganizationID != orgID {
		return Subscription{}, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	record.Secret = secret
	record.UpdatedAt = time.Now().UTC()
	s.byID[id] = record
	return cloneSubscription(record), nil
}

func (s *memorySubscriptionStore) Delete(_ context.Context, orgID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok || record.OrganizationID != orgID {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	delete(s.byID, id)
	return nil
}

type memoryDeliveryLedger struct {
	mu    sync.Mutex
	next  int
	order []string
	byID  map[string]Delivery

	createErr        error
	getErr           error
	markDeliveredErr error
	markFailedErr    error
	incrementErr     error
}

func newMemoryDeliveryLedger() *memoryDeliveryLedger {
	return &memoryDeliveryLedger{byID: map[string]Delivery{}}
}

func (s *memoryDeliveryLedger) Create(_ context.Context, in CreateDeliveryInput) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Delivery{}, s.createErr
	}
	if err := in.Validate(); err != nil {
		return Delivery{}, err
	}
	s.next++
	record := Delivery{
		ID:             fmt.Sprintf("del_%d", s.next),
		SubscriptionID: in.SubscriptionID,
		EventType:      in.EventType,
		Payload:        append([]byte(nil), in.Payload...),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	s.byID[record.ID] = record
	s.order = append(s.order, record.ID)
	return cloneDelivery(record), nil
}

func (s *memoryDeliveryLedger) Get(_ context.Context, id string) (Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Delivery{}, s.getErr
	}
	record, ok := s.byID[id]
	if !ok {
		return Delivery{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	return cloneDelivery(record), nil
}

func (s *memoryDeliveryLedger) ListBySubscription(_ context.Context, subscriptionID string, limit int) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Delivery{}
	for i := len(s.order) - 1; i >= 0; i-- {
		record, ok := s.byID[s.order[i]]
		if !ok || record.SubscriptionID != subscriptionID {
			continue
		}
		out = append(out, cloneDelivery(record))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memoryDeliveryLedger) MarkDelivered(_ context.Context, id string, responseStatus int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markDeliveredErr != nil {
		return s.markDeliveredErr
	}
	record, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	record.ResponseStatus = &responseStatus
	record.DeliveredAt = &at
	record.FailedAt = nil
	record.FailureReason = ""
	record.UpdatedAt = time.Now().UTC()
	s.byID[id] = record
	return nil
}

func (s *memoryDeliveryLedger) MarkFailed(_ context.Context, id string, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markFailedErr != nil {
		return s.markFailedErr
	}
	record, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	record.FailureReason = reason
	record.FailedAt = &at
	record.DeliveredAt = nil
	record.ResponseStatus = nil
	record.UpdatedAt = time.Now().UTC()
	s.byID[id] = record
	return nil
}

func (s *memoryDeliveryLedger) IncrementRetryCount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return s.incrementErr
	}
	record, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	}
	record.RetryCount++
	record.UpdatedAt = time.Now().UTC()
	s.byID[id] = record
	return nil
}

func (s *memoryDeliveryLedger) Prune(_ context.Context, policy DeliveryRetentionPolicy) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	if policy.TTL > 0 {
		cutoff := time.Now().UTC().Add(-policy.TTL)
		for id, record := range s.byID {
			if record.CreatedAt.Before(cutoff) {
				delete(s.byID, id)
				pruned++
			}
		}
	}
	if policy.RowCap > 0 && len(s.byID) > policy.RowCap {
		for i := 0; i < len(s.order) && len(s.byID) > policy.RowCap; i++ {
			id := s.order[i]
			if _, ok := s.byID[id]; !ok {
				continue
			}
			delete(s.byID, id)
			pruned++
		}
	}
	return pruned, nil
}

func (s *memoryDeliveryLedger) snapshot(id string) (Delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok {
		return Delivery{}, false
	}
	return cloneDelivery(record), true
}

type stubDeliverer struct {
	mu       sync.Mutex
	requests []DeliveryRequest
	respond  func(req DeliveryRequest) (DeliveryResponse, error)
}

func (d *stubDeliverer) Deliver(_ context.Context, req DeliveryRequest) (DeliveryResponse, error) {
	d.mu.Lock()
	captured := DeliveryRequest{
		URL:     req.URL,
		Body:    append([]byte(nil), req.Body...),
		Headers: map[string]string{},
		Timeout: req.Timeout,
	}
	for key, value := range req.Headers {
		captured.Headers[key] = value
	}
	d.requests = append(d.requests, captured)
	respond := d.respond
	d.mu.Unlock()

	if respond != nil {
		return respond(req)
	}
	return DeliveryResponse{StatusCode: 200}, nil
}

func (d *stubDeliverer) captured() []DeliveryRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DeliveryRequest(nil), d.requests...)
}

type captureMetrics struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]int
	tags       map[string]map[string]string
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{
		counters:   map[string]int64{},
		histograms: map[string]int{},
		tags:       map[string]map[string]string{},
	}
}

func (m *captureMetrics) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
	m.tags[name] = tags
}

func (m *captureMetrics) ObserveHistogram(_ context.Context, name string, _ float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name]++
	m.tags[name] = tags
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func newTestService(t *testing.T, subs *memorySubscriptionStore, ledger *memoryDeliveryLedger, sender *stubDeliverer, extra ...Option) *Service {
	t.Helper()
	options := []Option{
		WithLogger(stubLogger{}),
	}
	if subs != nil {
		options = append(options, WithSubscriptionStore(subs))
	}
	if ledger != nil {
		options = append(options, WithDeliveryLedger(ledger))
	}
	if sender != nil {
		options = append(options, WithDeliverer(sender))
	}
	options = append(options, extra...)
	service, err := NewService(DefaultConfig(), options...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}
