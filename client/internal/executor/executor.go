// Package executor issues exactly one HTTP call for an endpoint descriptor
// and normalises the outcome into a Result.
package executor

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/environment"
	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
	"github.com/Theruz/8aAscents/client/internal/transport"
)

// RequestIDHeader carries a fresh id on every network call.
const RequestIDHeader = "X-Request-ID"

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
}

// Executor runs descriptors against the network.
type Executor struct {
	env       environment.Environment
	transport transport.Transport
	logger    zerolog.Logger
	mockDelay time.Duration
	newID     func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for the per-call log line.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMockDelay delays mock-mode results. Negative values are treated as 0.
func WithMockDelay(d time.Duration) Option {
	return func(e *Executor) {
		if d < 0 {
			d = 0
		}
		e.mockDelay = d
	}
}

// WithRequestIDs overrides the request id generator.
func WithRequestIDs(fn func() string) Option {
	return func(e *Executor) { e.newID = fn }
}

// New returns an Executor sending through tr for the deployment env.
func New(env environment.Environment, tr transport.Transport, opts ...Option) *Executor {
	e := &Executor{
		env:       env,
		transport: tr,
		logger:    log.Logger.With().Str("component", "executor").Logger(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute issues d and classifies the outcome:
//   - no response (connection, timeout, cancel): *errors.TransportError
//   - non-2xx status: *errors.ServerError parsed from the body
//   - 2xx with a body that does not fit shape: *errors.DecodingError
//   - otherwise the payload for shape.
//
// In mock mode nothing is sent; the shape's mock value is returned after
// the configured delay.
func (e *Executor) Execute(ctx context.Context, d endpoint.Descriptor, shape Shape, extraHeaders map[string]string) Result {
	if e.env.Mode() == environment.ModeMock {
		return e.mock(ctx, d, shape)
	}

	start := time.Now()
	req, err := e.encode(d, extraHeaders)
	if err != nil {
		res := Result{Kind: shape.kind, Err: err}
		e.logCall(d, nil, res, time.Since(start))
		return res
	}

	resp, err := e.transport.Send(ctx, req)
	res := e.classify(shape, resp, err)
	e.logCall(d, req, res, time.Since(start))
	return res
}

func (e *Executor) encode(d endpoint.Descriptor, extraHeaders map[string]string) (*endpoint.Request, error) {
	target, err := e.env.Target(d.Category())
	if err != nil {
		return nil, &apierrors.EncodingError{Op: "target", Err: err}
	}
	req, err := d.Encode(target)
	if err != nil {
		return nil, err
	}
	for k, v := range extraHeaders {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set(RequestIDHeader, e.newID())
	return req, nil
}

func (e *Executor) classify(shape Shape, resp *transport.Response, sendErr error) Result {
	res := Result{Kind: shape.kind}
	if sendErr != nil {
		res.Err = apierrors.ClassifyTransport(sendErr)
		return res
	}

	res.StatusCode = resp.StatusCode
	res.Header = resp.Header
	res.Body = resp.Body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = apierrors.NewServerError(resp.StatusCode, resp.Body)
		return res
	}

	return shape.fill(res)
}

func (e *Executor) mock(ctx context.Context, d endpoint.Descriptor, shape Shape) Result {
	if e.mockDelay > 0 {
		timer := time.NewTimer(e.mockDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Result{Kind: shape.kind, Err: apierrors.ClassifyTransport(ctx.Err())}
		}
	}

	res := shape.fillMock(Result{Kind: shape.kind})
	e.logger.Debug().Str("endpoint", d.String()).Str("shape", shape.kind.String()).Msg("mock call resolved")
	return res
}

// logCall writes the completed-call line: Info on success, Warn on error.
// Nothing is rendered when the level is disabled.
func (e *Executor) logCall(d endpoint.Descriptor, req *endpoint.Request, res Result, took time.Duration) {
	ev := e.logger.Info()
	if res.Err != nil {
		ev = e.logger.Warn()
	}
	if !ev.Enabled() {
		return
	}

	ev = ev.Str("endpoint", d.String()).
		Str("method", d.Method()).
		Dur("duration", took)
	if req != nil {
		ev = ev.Str("url", req.URL.String()).
			Str("request_id", req.Header.Get(RequestIDHeader)).
			Interface("headers", redact(req.Header))
		if len(req.Body) > 0 {
			ev = ev.Bytes("body", req.Body)
		}
	}
	if res.StatusCode != 0 {
		ev = ev.Int("status", res.StatusCode)
	}
	if res.Err != nil {
		ev.Err(res.Err).Msg("request failed")
		return
	}
	switch res.Kind {
	case KindSingle:
		ev = ev.Interface("payload", res.Object)
	case KindList:
		ev = ev.Interface("payload", res.List)
	case KindRaw:
		ev = ev.Interface("payload", res.Raw)
	}
	ev.Msg("request completed")
}

func redact(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if redactedHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = []string{"[redacted]"}
			continue
		}
		out[k] = vs
	}
	return out
}
