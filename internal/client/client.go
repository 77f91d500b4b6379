// Package client is the HTTP client the probes use to talk to the API under
// test. It deliberately knows nothing about pass/fail rules: it sends one
// request, hands back the status code and body, and leaves judgement to the
// caller.
//
// Every request carries a fresh W3C trace context so a failing probe can be
// matched to server logs by its trace ID.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/bgricker/apiprobe/internal/logging"
)

// Options configure a Client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	Logger       *slog.Logger
	LogRequests  bool
	LogResponses bool
	HTTPClient   *http.Client
}

// Client issues JSON requests against a single base URL.
type Client struct {
	baseURL      string
	http         *http.Client
	logger       *slog.Logger
	logRequests  bool
	logResponses bool
	propagator   propagation.TextMapPropagator
}

// Request describes one call. Body, when non-nil, is encoded as JSON. Token,
// when non-empty, is sent as a bearer credential.
type Request struct {
	Method string
	Path   string
	Body   any
	Token  string
}

// New creates a client from opts.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		http:         httpClient,
		logger:       logger,
		logRequests:  opts.LogRequests,
		logResponses: opts.LogResponses,
		propagator:   propagation.TraceContext{},
	}
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and returns the response. A non-nil error means no usable
// response was obtained: the request could not be built, the transport
// failed, or the body could not be read.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	ctx, traceID := withTraceContext(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		c.logger.Debug("http request failed",
			"method", req.Method, "path", req.Path, "duration", duration,
			"trace_id", traceID.String(), "error", err)
		return Response{TraceID: traceID.String(), Duration: duration}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Debug("reading response body failed",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode,
			"trace_id", traceID.String(), "error", err)
		return Response{StatusCode: resp.StatusCode, TraceID: traceID.String(), Duration: duration},
			fmt.Errorf("reading response body: %w", err)
	}

	if c.logRequests {
		c.logger.Debug("request",
			"method", req.Method, "path", req.Path, "status", resp.StatusCode,
			"duration", duration, "trace_id", traceID.String())
	}
	if c.logResponses && len(respBody) > 0 {
		c.logger.Debug("response body", "method", req.Method, "path", req.Path, "body", string(respBody))
	}

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		TraceID:    traceID.String(),
		Duration:   duration,
	}, nil
}

// withTraceContext attaches a new sampled span context so the propagator
// emits traceparent and tracestate headers for this request.
func withTraceContext(ctx context.Context) (context.Context, trace.TraceID) {
	traceID := trace.TraceID(uuid.New())

	var spanID trace.SpanID
	spanSeed := uuid.New()
	copy(spanID[:], spanSeed[:len(spanID)])

	state, _ := trace.ParseTraceState("apiprobe=smoke")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		TraceState: state,
	})
	return trace.ContextWithSpanContext(ctx, sc), traceID
}
