// Package client is the entry point to the Ascents backend.
//
// Every call goes through a deduplicating dispatcher: equivalent calls in
// flight at the same time share one network request. Calls run on a
// bounded worker pool and report to a session that tracks the signed-in
// user's auth level.
package client

import (
	"context"
	"net/url"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Theruz/8aAscents/client/internal/api"
	"github.com/Theruz/8aAscents/client/internal/dispatch"
	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/environment"
	"github.com/Theruz/8aAscents/client/internal/executor"
	"github.com/Theruz/8aAscents/client/internal/session"
	"github.com/Theruz/8aAscents/client/internal/shardqueue"
	"github.com/Theruz/8aAscents/client/internal/transport"
)

// RememberMeCookie is the cookie that keeps a remembered login alive.
const RememberMeCookie = "remember-me"

// cookieJar is implemented by transports that keep cookies.
type cookieJar interface {
	HasCookie(u *url.URL, name string) bool
	DiscardCookie(u *url.URL, name string)
}

type Client struct {
	env       environment.Environment
	transport transport.Transport
	coord     *dispatch.Coordinator
	session   *session.Manager
	logger    zerolog.Logger

	profiles *Profiles
	sessions *Sessions

	closedOnce uint32 // ensures Close is idempotent
}

// New builds a Client from the ASCENTS_* environment and opts.
func New(opts ...Option) (*Client, error) {
	cfg, err := environment.LoadConfig()
	if err != nil {
		return nil, err
	}
	o := &options{cfg: cfg}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	logger := log.Logger
	if o.logger != nil {
		logger = *o.logger
	}

	env := o.env
	if env == nil {
		if env, err = environment.FromConfig(o.cfg); err != nil {
			return nil, err
		}
	}

	tr := o.transport
	if tr == nil {
		tr = transport.NewResty(
			transport.WithTimeout(o.cfg.RequestTimeout),
			transport.WithUserAgent(o.cfg.UserAgent),
			transport.WithDebug(o.debug),
			transport.WithTracing(o.tracing),
			transport.WithRateLimit(o.cfg.RateLimit),
		)
	}

	sess := o.session
	if sess == nil {
		sess = session.NewManager(session.WithLogger(component(logger, "session")))
	}

	pool, err := shardqueue.LoadConfig()
	if err != nil {
		return nil, err
	}
	pool.Shards = o.cfg.Workers
	pool.QueueSize = o.cfg.QueueSize

	exec := executor.New(env, tr,
		executor.WithLogger(component(logger, "executor")),
		executor.WithMockDelay(o.cfg.MockDelay),
	)
	c := &Client{
		env:       env,
		transport: tr,
		session:   sess,
		logger:    component(logger, "client"),
		coord: dispatch.New(exec, sess,
			dispatch.WithPoolConfig(pool),
			dispatch.WithLogger(component(logger, "dispatch")),
		),
	}
	c.profiles = &Profiles{c: c}
	c.sessions = &Sessions{c: c}
	sess.SetLogoutHook(c.onLogout)

	c.logger.Debug().
		Str("mode", string(env.Mode())).
		Int("workers", pool.Shards).
		Int("queue_size", pool.QueueSize).
		Msg("client ready")
	return c, nil
}

func component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Call submits d and waits for its Result. The error is the Result's error,
// or ctx's when the caller stopped waiting first; the shared call keeps
// running for its other waiters in that case.
func (c *Client) Call(ctx context.Context, d Descriptor, shape Shape) (Result, error) {
	call := c.coord.Submit(ctx, d, shape, nil)
	res, err := call.Wait(ctx)
	if err != nil {
		return Result{}, err
	}
	return res, res.Err
}

// CallAsync submits d and returns at once. cb runs on a worker goroutine
// when the call resolves; it may be nil.
func (c *Client) CallAsync(ctx context.Context, d Descriptor, shape Shape, cb Callback) *Call {
	return c.coord.Submit(ctx, d, shape, cb)
}

// Pending returns the number of calls in flight.
func (c *Client) Pending() int { return c.coord.Pending() }

// Profiles groups the profile endpoints.
func (c *Client) Profiles() *Profiles { return c.profiles }

// Sessions groups the login endpoints.
func (c *Client) Sessions() *Sessions { return c.sessions }

// Session returns the session manager.
func (c *Client) Session() *SessionManager { return c.session }

// Mode returns the environment mode the client talks to.
func (c *Client) Mode() Mode { return c.env.Mode() }

// HasRememberMeCookie reports whether the transport holds a remember-me
// cookie for the sessions host.
func (c *Client) HasRememberMeCookie() bool {
	jar, ok := c.transport.(cookieJar)
	if !ok {
		return false
	}
	u, ok := c.sessionsURL()
	return ok && jar.HasCookie(u, RememberMeCookie)
}

// onLogout ends the server session of a signed-in user and forgets the
// remember-me cookie unless credentials are preserved.
func (c *Client) onLogout(previous endpoint.AuthLevel, preserveCredentials bool) {
	if previous >= endpoint.AuthLevelOne {
		c.coord.Submit(context.Background(), api.LogoutEndpoint(), executor.Empty(), func(res executor.Result) {
			outcome := "ok"
			if res.Err != nil {
				outcome = "error"
				c.logger.Warn().Err(res.Err).Msg("server logout failed")
			}
			serverLogoutsTotal.WithLabelValues(outcome).Inc()
		})
	}
	if preserveCredentials {
		return
	}
	jar, ok := c.transport.(cookieJar)
	if !ok {
		return
	}
	if u, ok := c.sessionsURL(); ok {
		jar.DiscardCookie(u, RememberMeCookie)
	}
}

func (c *Client) sessionsURL() (*url.URL, bool) {
	t, err := c.env.Target(endpoint.CategorySessions)
	if err != nil || t.Host == "" {
		return nil, false
	}
	req, err := api.LogoutEndpoint().Encode(t)
	if err != nil {
		return nil, false
	}
	return &url.URL{Scheme: req.URL.Scheme, Host: req.URL.Host, Path: "/"}, true
}

// Close cancels pending calls and stops the worker pool. Safe to call
// multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	err := c.coord.Close()
	c.session.Close()
	return err
}

// --------------------------------------------------------------------
// Profile operations - delegated to internal/api
// --------------------------------------------------------------------

// Profiles is the profile service of a Client.
type Profiles struct{ c *Client }

// Create creates a profile for the signed-in account.
func (p *Profiles) Create(ctx context.Context, req CreateProfileRequest) error {
	return api.CreateProfile(ctx, p.c.coord, req)
}

// CreateAsync creates a profile and reports to cb.
func (p *Profiles) CreateAsync(ctx context.Context, req CreateProfileRequest, cb func(error)) (*Call, error) {
	return api.CreateProfileAsync(ctx, p.c.coord, req, cb)
}

// Get fetches one profile.
func (p *Profiles) Get(ctx context.Context, profileID int) (*Profile, error) {
	return api.GetProfile(ctx, p.c.coord, profileID)
}

// GetAsync fetches one profile and reports to cb.
func (p *Profiles) GetAsync(ctx context.Context, profileID int, cb func(*Profile, error)) (*Call, error) {
	return api.GetProfileAsync(ctx, p.c.coord, profileID, cb)
}

// --------------------------------------------------------------------
// Session operations - delegated to internal/api
// --------------------------------------------------------------------

// Sessions is the login service of a Client.
type Sessions struct{ c *Client }

// Login signs in and raises the session to level two.
func (s *Sessions) Login(ctx context.Context, req LoginRequest) error {
	return api.Login(ctx, s.c.coord, s.c.session, req)
}

// LoginAsync signs in and reports to cb.
func (s *Sessions) LoginAsync(ctx context.Context, req LoginRequest, cb func(error)) (*Call, error) {
	return api.LoginAsync(ctx, s.c.coord, s.c.session, req, cb)
}

// Logout ends the server session, then clears the local one. The local
// session is cleared even when the server call fails.
func (s *Sessions) Logout(ctx context.Context) error {
	err := api.Logout(ctx, s.c.coord, s.c.session)
	s.c.session.Logout(false)
	return err
}
