package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/memegate/internal/pool"
	"github.com/BaSui01/memegate/internal/tlsutil"
	"github.com/BaSui01/memegate/types"
)

const instrumentationName = "github.com/BaSui01/memegate/llm/image"

// maxUpstreamBody caps how much of an upstream reply is buffered.
const maxUpstreamBody = 64 << 20

// Option customises a provider at construction time.
type Option func(*options)

type options struct {
	client *http.Client
	logger *zap.Logger
}

// WithHTTPClient overrides the outbound HTTP client. The provider's timeout still applies
// through the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger used for upstream call diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// transport performs the single outbound POST every adapter needs.
type transport struct {
	provider string
	model    string
	timeout  time.Duration
	headers  map[string]string
	client   *http.Client
	logger   *zap.Logger
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

func newTransport(provider string, cfg ProviderConfig, opts []Option) *transport {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = tlsutil.UpstreamHTTPClient()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	duration, err := otel.Meter(instrumentationName).Float64Histogram(
		"memegate.provider.request.duration",
		metric.WithDescription("Duration of outbound image provider calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		o.logger.Warn("failed to create provider duration histogram", zap.Error(err))
	}

	return &transport{
		provider: provider,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		headers:  cfg.ExtraHeaders,
		client:   o.client,
		logger:   o.logger.With(zap.String("provider", provider)),
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
	}
}

// postJSON sends payload to endpoint. Only 2xx replies with a JSON body are returned
// as *RawResponse; everything else becomes a *types.Error.
func (t *transport) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload any) (*RawResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewInternalError("").WithCause(fmt.Errorf("marshal request: %w", err)).WithProvider(t.provider)
	}

	ctx, span := t.tracer.Start(ctx, "image.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("memegate.provider", t.provider),
			attribute.String("memegate.model", t.model),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := t.do(ctx, endpoint, headers, body)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("provider", t.provider),
			attribute.Int("status", status),
		))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Warn("image provider call failed",
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	t.logger.Debug("image provider call succeeded",
		zap.Int("status", status),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("elapsed", elapsed))
	return resp, nil
}

func (t *transport) do(parent context.Context, endpoint string, headers map[string]string, body []byte) (*RawResponse, error) {
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewInternalError("").WithCause(fmt.Errorf("build request: %w", err)).WithProvider(t.provider)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, mapTransportError(parent, err, t.provider)
	}
	defer resp.Body.Close()

	buf := pool.ResponseBufferPool.Get()
	defer pool.ResponseBufferPool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxUpstreamBody)); err != nil {
		return &RawResponse{StatusCode: resp.StatusCode}, mapTransportError(parent, err, t.provider)
	}
	data := bytes.Clone(buf.Bytes())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RawResponse{StatusCode: resp.StatusCode, Body: data},
			MapUpstreamError(resp.StatusCode, data, t.provider)
	}
	if !json.Valid(data) {
		return &RawResponse{StatusCode: resp.StatusCode, Body: data},
			types.NewInternalError("").
				WithCause(fmt.Errorf("upstream returned non-JSON body (%d bytes)", len(data))).
				WithProvider(t.provider)
	}
	return &RawResponse{StatusCode: resp.StatusCode, Body: data}, nil
}
