package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	"github.com/smallbiznis/orgadmin/internal/config"
	"github.com/smallbiznis/orgadmin/internal/masking"
	"github.com/smallbiznis/orgadmin/internal/observability/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Client-Request-Id"
	userAgent       = "orgadmin"
)

// Request describes one logical API call. Path is relative to the
// organization base URL.
type Request struct {
	Method string
	Path   string
	Query  Query
	Body   any
}

// DeleteResult is the confirmation returned by deletion endpoints.
type DeleteResult struct {
	Object  string `json:"object"`
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	AdminKey          string
	Timeout           time.Duration
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Retry             RetryPolicy
	Log               *zap.Logger
	Metrics           *metrics.Metrics
	TracerProvider    trace.TracerProvider
}

type Params struct {
	fx.In

	Config         config.Config
	Log            *zap.Logger
	Metrics        *metrics.Metrics     `optional:"true"`
	TracerProvider trace.TracerProvider `optional:"true"`
}

// Client issues authenticated requests against the organization API.
// It holds no per-call state and is safe to share.
type Client struct {
	baseURL  string
	adminKey string
	http     *http.Client
	limiter  *rate.Limiter
	retry    RetryPolicy
	log      *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func New(p Params) *Client {
	return NewClient(Options{
		BaseURL:           p.Config.BaseURL,
		AdminKey:          p.Config.AdminKey,
		Timeout:           p.Config.RequestTimeout,
		RequestsPerSecond: p.Config.RequestsPerSecond,
		Retry:             RetryPolicy{MaxRetries: p.Config.MaxRetries},
		Log:               p.Log,
		Metrics:           p.Metrics,
		TracerProvider:    p.TracerProvider,
	})
}

func NewClient(opts Options) *Client {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		adminKey: strings.TrimSpace(opts.AdminKey),
		http:     httpClient,
		limiter:  limiter,
		retry:    opts.Retry,
		log:      log.Named("client"),
		metrics:  opts.Metrics,
		tracer:   tp.Tracer("orgadmin/client"),
	}
}

func (c *Client) Get(ctx context.Context, path string, query Query, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes a 2xx body into out. out may be nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c.adminKey == "" {
		return apierr.Configuration("OPENAI_ADMIN_KEY", "admin key is required; set OPENAI_ADMIN_KEY or pass --admin-key")
	}
	if c.baseURL == "" {
		return apierr.Configuration("ORGADMIN_BASE_URL", "base url is required")
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	return c.withRetry(ctx, method, func() error {
		return c.send(ctx, method, target, req.Path, payload, out)
	})
}

func (c *Client) send(ctx context.Context, method, target, path string, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &apierr.TransportError{Method: method, URL: target, Err: err}
		}
	}

	ctx, span := c.tracer.Start(ctx, "orgadmin.api "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("url.path", path),
	)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", "Bearer "+c.adminKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return &apierr.TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(method, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if ce := c.log.Check(zap.DebugLevel, "request completed"); ce != nil {
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed),
		}
		if payload != nil {
			fields = append(fields, zap.String("body", masking.Payload(payload)))
		}
		ce.Write(fields...)
	}
	if err != nil {
		return &apierr.TransportError{Method: method, URL: target, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		span.SetStatus(codes.Error, resp.Status)
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		span.SetStatus(codes.Error, "decode error")
		return &apierr.DecodeError{Status: resp.StatusCode, Body: raw, Err: err}
	}
	return nil
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newAPIError(status int, raw []byte) error {
	apiErr := &apierr.APIError{Status: status, RawBody: raw}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		if envelope.Error.Code != nil {
			apiErr.Code = fmt.Sprint(envelope.Error.Code)
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}
