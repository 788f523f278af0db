// Package transport sends encoded requests over HTTP.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/Theruz/8aAscents/client/internal/endpoint"
)

// DefaultTimeout bounds a single request end to end.
const DefaultTimeout = 30 * time.Second

// Response is what came back from the backend.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request. Cancelling ctx aborts it.
type Transport interface {
	Send(ctx context.Context, req *endpoint.Request) (*Response, error)
}

// Resty is the Transport backed by a resty client.
type Resty struct {
	client  *resty.Client
	limiter *rate.Limiter
}

type settings struct {
	timeout   time.Duration
	userAgent string
	debug     bool
	tracing   bool
	rateLimit float64
	base      http.RoundTripper
}

// Option configures a Resty transport.
type Option func(*settings)

// WithTimeout sets the per-request timeout. Values <= 0 keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.userAgent = ua }
}

// WithDebug dumps every request and response at debug level.
func WithDebug(enabled bool) Option {
	return func(s *settings) { s.debug = enabled }
}

// WithTracing wraps the round tripper with OpenTelemetry client spans.
func WithTracing(enabled bool) Option {
	return func(s *settings) { s.tracing = enabled }
}

// WithRateLimit caps outgoing requests per second. 0 disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(s *settings) { s.rateLimit = perSecond }
}

// WithRoundTripper replaces the base round tripper (tests, proxies).
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(s *settings) { s.base = rt }
}

// NewResty builds the default transport. The debug dump is also enabled when
// DebugRequested reports true.
func NewResty(opts ...Option) *Resty {
	s := settings{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}

	rt := s.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if s.debug || DebugRequested() {
		rt = &debugTransport{base: rt}
	}
	if s.tracing {
		rt = otelhttp.NewTransport(rt)
	}

	c := resty.New().
		SetTransport(rt).
		SetTimeout(s.timeout)
	if s.userAgent != "" {
		c.SetHeader("User-Agent", s.userAgent)
	}

	t := &Resty{client: c}
	if s.rateLimit > 0 {
		burst := int(s.rateLimit)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(s.rateLimit), burst)
	}
	return t
}

// Send implements Transport.
func (t *Resty) Send(ctx context.Context, req *endpoint.Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	r := t.client.R().SetContext(ctx)
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}

	if req.Multipart() {
		r.SetMultipartFormData(req.Form)
		for _, a := range req.Attachments {
			r.SetMultipartField(a.Field, a.FileName, a.ContentType, bytes.NewReader(a.Data))
		}
	} else if len(req.Body) > 0 {
		r.SetHeader("Content-Type", req.ContentType)
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// HasCookie reports whether the jar holds an unexpired cookie called name
// for u. The jar drops expired cookies itself.
func (t *Resty) HasCookie(u *url.URL, name string) bool {
	jar := t.client.GetClient().Jar
	if jar == nil {
		return false
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return true
		}
	}
	return false
}

// DiscardCookie removes the cookie called name for u from the jar.
func (t *Resty) DiscardCookie(u *url.URL, name string) {
	jar := t.client.GetClient().Jar
	if jar == nil {
		return
	}
	jar.SetCookies(u, []*http.Cookie{{Name: name, Path: "/", MaxAge: -1}})
}

func (t *Resty) String() string {
	return fmt.Sprintf("resty(timeout=%s)", t.client.GetClient().Timeout)
}
