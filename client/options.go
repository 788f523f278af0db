package client

// This file defines functional options that configure the Client during
// construction. Options override the ASCENTS_* environment variables.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Theruz/8aAscents/client/internal/environment"
	"github.com/Theruz/8aAscents/client/internal/session"
	"github.com/Theruz/8aAscents/client/internal/transport"
)

// Option configures a Client during construction in New.
type Option func(*options) error

type options struct {
	cfg       environment.Config
	env       environment.Environment
	transport transport.Transport
	session   *session.Manager
	logger    *zerolog.Logger
	debug     bool
	tracing   bool
}

// WithHTTPTimeout bounds a single HTTP request, connection and body read
// included. Prefer per-call context deadlines; this is the coarse safety
// net. The value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		o.cfg.RequestTimeout = d
		return nil
	}
}

// WithDebugLogging dumps every request and response at debug level.
// Do not enable it in production: dumps include headers and bodies.
func WithDebugLogging(enabled bool) Option {
	return func(o *options) error {
		o.debug = enabled
		return nil
	}
}

// WithEnvironment replaces the environment resolved from ASCENTS_MODE and
// ASCENTS_HOSTS_FILE.
func WithEnvironment(env Environment) Option {
	return func(o *options) error {
		if env == nil {
			return fmt.Errorf("environment must not be nil")
		}
		o.env = env
		return nil
	}
}

// WithMode selects the environment mode, keeping the configured hosts.
func WithMode(mode Mode) Option {
	return func(o *options) error {
		if _, err := environment.ParseMode(string(mode)); err != nil {
			return err
		}
		o.cfg.Mode = mode
		return nil
	}
}

// WithHostsFile merges a YAML hosts file over the built-in hosts.
func WithHostsFile(path string) Option {
	return func(o *options) error {
		o.cfg.HostsFile = path
		return nil
	}
}

// WithTransport replaces the default resty transport. Timeout, debug,
// tracing and rate-limit options do not apply to a custom transport.
func WithTransport(t Transport) Option {
	return func(o *options) error {
		if t == nil {
			return fmt.Errorf("transport must not be nil")
		}
		o.transport = t
		return nil
	}
}

// WithSession shares a session manager with the caller. The Client installs
// its logout hook on it.
func WithSession(m *SessionManager) Option {
	return func(o *options) error {
		if m == nil {
			return fmt.Errorf("session must not be nil")
		}
		o.session = m
		return nil
	}
}

// WithWorkers sets how many calls run at once.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("workers must be > 0, got %d", n)
		}
		o.cfg.Workers = n
		return nil
	}
}

// WithQueueSize sets how many calls may wait for a worker.
func WithQueueSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("queue size must be > 0, got %d", n)
		}
		o.cfg.QueueSize = n
		return nil
	}
}

// WithLogger sets the logger every component derives from.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = &l
		return nil
	}
}

// WithTracing wraps the HTTP transport with OpenTelemetry client spans.
func WithTracing(enabled bool) Option {
	return func(o *options) error {
		o.tracing = enabled
		return nil
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(o *options) error {
		if perSecond < 0 {
			return fmt.Errorf("rate limit must be >= 0")
		}
		o.cfg.RateLimit = perSecond
		return nil
	}
}

// WithMockDelay sets the simulated latency of mock mode.
func WithMockDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("mock delay must be >= 0")
		}
		o.cfg.MockDelay = d
		return nil
	}
}

// WithUserAgent sets the User-Agent of the default transport.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.cfg.UserAgent = ua
		return nil
	}
}
