// Package session tracks the authentication state the dispatcher consults
// when a call completes, along with the two inactivity timers of a signed-in
// user.
package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Theruz/8aAscents/client/internal/endpoint"
)

const (
	// DefaultBackendTimeout fires a keep-alive shortly before the backend
	// drops an idle session.
	DefaultBackendTimeout = 29 * time.Minute
	// DefaultApplicationTimeout expires a session the user left idle.
	DefaultApplicationTimeout = 30 * time.Minute
)

// Session is what the dispatcher needs from the session layer.
type Session interface {
	CurrentAuthLevel() endpoint.AuthLevel
	OnAuthenticatedRequestCompleted()
	OnForceLogout(preserveCredentials bool)
}

// EventKind identifies a session Event.
type EventKind int

const (
	EventForceLogout EventKind = iota
	EventBackendKeepAlive
	EventApplicationTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventForceLogout:
		return "force_logout"
	case EventBackendKeepAlive:
		return "backend_keep_alive"
	case EventApplicationTimeout:
		return "application_timeout"
	default:
		return "unknown"
	}
}

// Event is delivered on Manager.Events.
type Event struct {
	Kind                EventKind
	Level               endpoint.AuthLevel // level when the event fired
	PreserveCredentials bool               // EventForceLogout only
}

// Timer is the part of *time.Timer the Manager uses.
type Timer interface {
	Stop() bool
}

// Clock schedules timer callbacks. Tests inject a fake one.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// LogoutHook runs after Logout reset the state. previous is the level the
// session had before.
type LogoutHook func(previous endpoint.AuthLevel, preserveCredentials bool)

// Manager is the default Session.
type Manager struct {
	mu         sync.RWMutex
	level      endpoint.AuthLevel
	email      string
	rememberMe bool

	clock          Clock
	backendTimeout time.Duration
	appTimeout     time.Duration
	backendTimer   Timer
	appTimer       Timer

	events   chan Event
	onLogout LogoutHook
	logger   zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithTimeouts overrides the backend and application inactivity timeouts.
// Zero keeps the default.
func WithTimeouts(backend, application time.Duration) Option {
	return func(m *Manager) {
		if backend > 0 {
			m.backendTimeout = backend
		}
		if application > 0 {
			m.appTimeout = application
		}
	}
}

// WithLogoutHook registers fn to run after every Logout.
func WithLogoutHook(fn LogoutHook) Option {
	return func(m *Manager) { m.onLogout = fn }
}

// WithEventBuffer sets the capacity of the Events channel. Events that do not
// fit are dropped.
func WithEventBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.events = make(chan Event, n)
		}
	}
}

// WithLogger sets the Manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager returns a signed-out Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:          realClock{},
		backendTimeout: DefaultBackendTimeout,
		appTimeout:     DefaultApplicationTimeout,
		events:         make(chan Event, 16),
		logger:         log.Logger.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetLogoutHook replaces the hook registered with WithLogoutHook.
func (m *Manager) SetLogoutHook(fn LogoutHook) {
	m.mu.Lock()
	m.onLogout = fn
	m.mu.Unlock()
}

// Events delivers force-logout and timer notifications.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) CurrentAuthLevel() endpoint.AuthLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// SetAuthLevel records a new authentication level.
func (m *Manager) SetAuthLevel(level endpoint.AuthLevel) {
	m.mu.Lock()
	m.level = level
	m.mu.Unlock()
}

// RememberEmail stores the signed-in email and the remember-me choice.
func (m *Manager) RememberEmail(email string, rememberMe bool) {
	m.mu.Lock()
	m.email = email
	m.rememberMe = rememberMe
	m.mu.Unlock()
}

// Email returns the remembered email, if any.
func (m *Manager) Email() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.email
}

// RememberMe reports whether the user asked to be remembered.
func (m *Manager) RememberMe() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rememberMe
}

// OnAuthenticatedRequestCompleted restarts the backend inactivity timer.
// A signed-out session has no backend timer.
func (m *Manager) OnAuthenticatedRequestCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backendTimer != nil {
		m.backendTimer.Stop()
		m.backendTimer = nil
	}
	if m.level == endpoint.AuthNone {
		return
	}
	m.backendTimer = m.clock.AfterFunc(m.backendTimeout, func() {
		m.emit(Event{Kind: EventBackendKeepAlive, Level: m.CurrentAuthLevel()})
	})
}

// ResetInactivity restarts the application inactivity timer. Call it on
// every user interaction.
func (m *Manager) ResetInactivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appTimer != nil {
		m.appTimer.Stop()
	}
	m.appTimer = m.clock.AfterFunc(m.appTimeout, func() {
		m.emit(Event{Kind: EventApplicationTimeout, Level: m.CurrentAuthLevel()})
	})
}

// OnForceLogout signs the user out after the backend rejected an
// authenticated call.
func (m *Manager) OnForceLogout(preserveCredentials bool) {
	level := m.CurrentAuthLevel()
	m.logger.Warn().Str("level", level.String()).Bool("preserve_credentials", preserveCredentials).Msg("forced logout")
	m.Logout(preserveCredentials)
	m.emit(Event{Kind: EventForceLogout, Level: level, PreserveCredentials: preserveCredentials})
}

// Logout resets the level to none, stops both timers and, unless
// preserveCredentials is set, forgets the email and remember-me choice.
// The logout hook runs afterwards without the lock held.
func (m *Manager) Logout(preserveCredentials bool) {
	m.mu.Lock()
	previous := m.level
	m.level = endpoint.AuthNone
	if !preserveCredentials {
		m.email = ""
		m.rememberMe = false
	}
	for _, t := range []Timer{m.backendTimer, m.appTimer} {
		if t != nil {
			t.Stop()
		}
	}
	m.backendTimer, m.appTimer = nil, nil
	hook := m.onLogout
	m.mu.Unlock()

	if hook != nil {
		hook(previous, preserveCredentials)
	}
}

// Close stops both timers.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range []Timer{m.backendTimer, m.appTimer} {
		if t != nil {
			t.Stop()
		}
	}
	m.backendTimer, m.appTimer = nil, nil
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Debug().Str("event", ev.Kind.String()).Msg("session event dropped, no reader")
	}
}
