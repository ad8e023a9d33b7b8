package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-webhooks/core"
)

const defaultClientTimeout = 30 * time.Second

// defaultDrainBytes caps how much of a receiver's response body is read
// before the connection is released. Receiver bodies are never recorded.
const defaultDrainBytes int64 = 256 << 10

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSender posts signed webhook payloads to subscriber endpoints. It
// satisfies core.Deliverer: any HTTP response returns nil alongside its
// status code, and only transport-level failures surface as errors.
type HTTPSender struct {
	Client        HTTPDoer
	MaxDrainBytes int64
}

func NewHTTPSender(client HTTPDoer) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &HTTPSender{
		Client:        client,
		MaxDrainBytes: defaultDrainBytes,
	}
}

func (s *HTTPSender) Deliver(ctx context.Context, req core.DeliveryRequest) (core.DeliveryResponse, error) {
	if s == nil || s.Client == nil {
		return core.DeliveryResponse{}, senderError(
			"transport: http sender requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	targetURL := strings.TrimSpace(req.URL)
	if targetURL == "" {
		return core.DeliveryResponse{}, senderError(
			"transport: delivery url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, targetURL, bytes.NewReader(req.Body))
	if err != nil {
		return core.DeliveryResponse{}, senderWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: build webhook request",
			http.StatusBadRequest,
			map[string]any{"target_url": targetURL},
		)
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	startedAt := time.Now()
	httpRes, err := s.Client.Do(httpReq)
	elapsed := time.Since(startedAt)
	if err != nil {
		// The client error is returned as-is; reason rendering upstream
		// inspects the chain for net.Error timeouts.
		return core.DeliveryResponse{}, err
	}
	defer httpRes.Body.Close()

	drainResponseBody(httpRes.Body, s.drainLimit())

	return core.DeliveryResponse{
		StatusCode: httpRes.StatusCode,
		Duration:   elapsed,
	}, nil
}

func (s *HTTPSender) drainLimit() int64 {
	if s != nil && s.MaxDrainBytes > 0 {
		return s.MaxDrainBytes
	}
	return defaultDrainBytes
}

// drainResponseBody consumes what the receiver wrote, bounded, so the
// underlying connection stays reusable.
func drainResponseBody(body io.Reader, limit int64) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, limit))
}

var _ core.Deliverer = (*HTTPSender)(nil)
