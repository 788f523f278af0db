// Package fakebackend is an in-memory stand-in for the Ascents backend. It
// serves the sessions and profiles routes with cookie-based sessions and
// counts every request, for tests and offline development.
package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const (
	// SessionCookie authenticates calls after a login.
	SessionCookie = "SESSION"
	// RememberMeCookie is set when a login asks to be remembered.
	RememberMeCookie = "remember-me"
)

// Profile is the backend's JSON view of a profile.
type Profile struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
	Address   string `json:"address,omitempty"`
	Main      bool   `json:"main"`

	InsuranceNumber string `json:"-"`
}

type fieldError struct {
	FieldName string `json:"fieldName"`
	Message   string `json:"message"`
}

type apiError struct {
	Message     string       `json:"message"`
	FieldErrors []fieldError `json:"fieldErrors,omitempty"`
}

// Backend holds users, sessions and profiles in memory.
type Backend struct {
	mu       sync.Mutex
	users    map[string]string // email -> password
	sessions map[string]string // token -> email
	profiles map[int]Profile
	nextID   int
	hits     map[string]int
	delay    time.Duration
	hold     chan struct{}
	open     bool

	router chi.Router
}

// Option configures a Backend.
type Option func(*Backend)

// WithUser registers a login.
func WithUser(email, password string) Option {
	return func(b *Backend) { b.users[email] = password }
}

// WithProfile seeds a profile. Its ID is kept.
func WithProfile(p Profile) Option {
	return func(b *Backend) {
		b.profiles[p.ID] = p
		if p.ID >= b.nextID {
			b.nextID = p.ID + 1
		}
	}
}

// WithDelay delays every response.
func WithDelay(d time.Duration) Option {
	return func(b *Backend) { b.delay = d }
}

// WithOpenAccess serves profile routes without a session.
func WithOpenAccess() Option {
	return func(b *Backend) { b.open = true }
}

// New builds a Backend and its router.
func New(opts ...Option) *Backend {
	b := &Backend{
		users:    map[string]string{},
		sessions: map[string]string{},
		profiles: map[int]Profile{},
		nextID:   1,
		hits:     map[string]int{},
	}
	for _, opt := range opts {
		opt(b)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.count)
	r.Use(b.pace)
	r.Post("/v1/sessions/login", b.login)
	r.Group(func(r chi.Router) {
		r.Use(b.authenticated)
		r.Post("/v1/session/logout", b.logout)
		r.Post("/v1/profiles", b.createProfile)
		r.Get("/v1/profiles/{id}", b.getProfile)
	})
	b.router = r
	return b
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// Hits returns how many requests reached "METHOD /path".
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// Hold makes every request wait until the returned release func is called.
func (b *Backend) Hold() (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.hold == ch {
				b.hold = nil
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// ExpireSessions drops every session so authenticated calls answer 401.
func (b *Backend) ExpireSessions() {
	b.mu.Lock()
	b.sessions = map[string]string{}
	b.mu.Unlock()
}

// Profile returns a stored profile.
func (b *Backend) Profile(id int) (Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	return p, ok
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("fakebackend: request")
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) pace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		hold, delay := b.hold, b.delay
		b.mu.Unlock()
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.open {
			next.ServeHTTP(w, r)
			return
		}
		c, err := r.Cookie(SessionCookie)
		b.mu.Lock()
		_, ok := b.sessions[cookieValue(c, err)]
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, apiError{Message: "Session expired"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: "Malformed form"})
		return
	}
	email, password := r.PostForm.Get("email"), r.PostForm.Get("password")

	b.mu.Lock()
	want, ok := b.users[email]
	if !ok || want != password {
		b.mu.Unlock()
		writeError(w, http.StatusUnauthorized, apiError{Message: "Invalid credentials"})
		return
	}
	token := newToken()
	b.sessions[token] = email
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	if r.PostForm.Get("rememberMe") == "1" {
		http.SetCookie(w, &http.Cookie{Name: RememberMeCookie, Value: newToken(), Path: "/", MaxAge: 30 * 24 * 3600})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, c.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) createProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BirthDate       string `json:"birthDate"`
		InsuranceNumber string `json:"insuranceNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: "Malformed body"})
		return
	}
	var fields []fieldError
	if req.BirthDate == "" {
		fields = append(fields, fieldError{FieldName: "birthDate", Message: "must not be empty"})
	}
	if req.InsuranceNumber == "" {
		fields = append(fields, fieldError{FieldName: "insuranceNumber", Message: "must not be empty"})
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, apiError{Message: "Validation failed", FieldErrors: fields})
		return
	}

	b.mu.Lock()
	p := Profile{ID: b.nextID, BirthDate: req.BirthDate, InsuranceNumber: req.InsuranceNumber, Main: len(b.profiles) == 0}
	b.profiles[p.ID] = p
	b.nextID++
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: "Invalid profile id"})
		return
	}
	p, ok := b.Profile(id)
	if !ok {
		writeError(w, http.StatusNotFound, apiError{Message: "Profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e apiError) {
	writeJSON(w, status, e)
}

func cookieValue(c *http.Cookie, err error) string {
	if err != nil {
		return ""
	}
	return c.Value
}

func newToken() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
