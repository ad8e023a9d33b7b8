package core

import (
	"context"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFieldMap(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFieldMap(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFieldMap(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func cloneFieldMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

func hasLog(items []capturedLog, level string, message string) bool {
	for _, item := range items {
		if item.level == level && item.msg == message {
			return true
		}
	}
	return false
}

func newObservedService(t *testing.T, metrics *captureMetrics, logger *captureLogger) *Service {
	t.Helper()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLogger(logger),
		WithSubscriptionStore(newMemorySubscriptionStore()),
		WithDeliveryLedger(newMemoryDeliveryLedger()),
		WithDeliverer(&stubDeliverer{}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceObservability_CreateSubscriptionSuccess(t *testing.T) {
	ctx := context.Background()
	metrics := newCaptureMetrics()
	logger := newCaptureLogger()
	svc := newObservedService(t, metrics, logger)

	_, err := svc.CreateSubscription(ctx, "org_1", CreateSubscriptionInput{
		Name:       "siem feed",
		TargetURL:  "https://siem.example.com/hook",
		EventTypes: []string{"vendor.created"},
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	if metrics.counters["webhooks.subscriptions.create.total"] != 1 {
		t.Fatalf("expected create counter, got %v", metrics.counters)
	}
	tags := metrics.tags["webhooks.subscriptions.create.total"]
	if tags["status"] != "success" {
		t.Fatalf("expected success status tag, got %v", tags)
	}
	if tags["organization_id"] != "org_1" {
		t.Fatalf("expected organization tag, got %v", tags)
	}
	if metrics.histograms["webhooks.subscriptions.create.duration_ms"] != 1 {
		t.Fatalf("expected duration histogram, got %v", metrics.histograms)
	}
	if !hasLog(logger.snapshot(), "info", "subscriptions.create succeeded") {
		t.Fatalf("expected structured success log")
	}
}

func TestServiceObservability_DispatchCountsDeliveries(t *testing.T) {
	ctx := context.Background()
	metrics := newCaptureMetrics()
	logger := newCaptureLogger()

	subs := newMemorySubscriptionStore()
	subs.seed(Subscription{
		OrganizationID: "org_1",
		TargetURL:      "https://a.example.com/hook",
		Secret:         "whsec_x",
		EventTypes:     []string{"vendor.created"},
		Active:         true,
	})
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLogger(logger),
		WithSubscriptionStore(subs),
		WithDeliveryLedger(newMemoryDeliveryLedger()),
		WithDeliverer(&stubDeliverer{}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.Dispatch(ctx, "org_1", "vendor.created", nil)

	if metrics.counters["webhooks.dispatch.total"] != 1 {
		t.Fatalf("expected dispatch counter, got %v", metrics.counters)
	}
	if metrics.counters["webhooks.deliveries.total"] != 1 {
		t.Fatalf("expected per-delivery counter, got %v", metrics.counters)
	}
	if tags := metrics.tags["webhooks.deliveries.total"]; tags["status"] != string(DeliveryStatusDelivered) {
		t.Fatalf("expected delivered status tag, got %v", tags)
	}
	if !hasLog(logger.snapshot(), "info", "webhook delivered") {
		t.Fatalf("expected delivery log")
	}
}

func TestServiceObservability_FailuresCountAndLog(t *testing.T) {
	ctx := context.Background()
	metrics := newCaptureMetrics()
	logger := newCaptureLogger()
	svc := newObservedService(t, metrics, logger)

	_, err := svc.CreateSubscription(ctx, "org_1", CreateSubscriptionInput{
		Name:      "bad",
		TargetURL: "ftp://files.example.com/drop",
	})
	if err == nil {
		t.Fatalf("expected validation failure")
	}

	if tags := metrics.tags["webhooks.subscriptions.create.total"]; tags["status"] != "failure" {
		t.Fatalf("expected failure status tag, got %v", tags)
	}
	if !hasLog(logger.snapshot(), "error", "subscriptions.create failed") {
		t.Fatalf("expected structured failure log")
	}
}

func TestServiceObservability_EnrichesStructuredErrorFields(t *testing.T) {
	metrics := newCaptureMetrics()
	logger := newCaptureLogger()
	svc := newObservedService(t, metrics, logger)

	richErr := goerrors.New("receiver timeout", goerrors.CategoryExternal).
		WithCode(502).
		WithTextCode(WebhookErrorDeliveryFailed).
		WithSeverity(goerrors.SeverityCritical).
		WithMetadata(map[string]any{
			"trace_id":       "trace_123",
			"request_id":     "req_123",
			"signing_secret": "whsec_super_sensitive",
		})
	svc.observeOperation(
		context.Background(),
		time.Now().UTC().Add(-100*time.Millisecond),
		"dispatch",
		richErr,
		map[string]any{"organization_id": "org_1"},
	)

	records := logger.snapshot()
	if len(records) == 0 {
		t.Fatalf("expected logs to be emitted")
	}
	last := records[len(records)-1]
	if last.fields["error_category"] != "external" {
		t.Fatalf("expected error_category external, got %#v", last.fields["error_category"])
	}
	if last.fields["error_text_code"] != WebhookErrorDeliveryFailed {
		t.Fatalf("expected error_text_code %q, got %#v", WebhookErrorDeliveryFailed, last.fields["error_text_code"])
	}
	if last.fields["error_severity"] != goerrors.SeverityCritical.String() {
		t.Fatalf("expected critical severity, got %#v", last.fields["error_severity"])
	}
	if last.fields["request_id"] != "req_123" {
		t.Fatalf("expected request_id propagation, got %#v", last.fields["request_id"])
	}
	if last.fields["trace_id"] != "trace_123" {
		t.Fatalf("expected trace_id propagation, got %#v", last.fields["trace_id"])
	}

	metadata, ok := last.fields["error_metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected redacted error_metadata map, got %#v", last.fields["error_metadata"])
	}
	if metadata["signing_secret"] != RedactedValue {
		t.Fatalf("expected signing_secret to be redacted, got %#v", metadata["signing_secret"])
	}
}
