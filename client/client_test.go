package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Theruz/8aAscents/internal/fakebackend"
)

const (
	testEmail    = "jane@example.ch"
	testPassword = "s3cret"
)

func newBackendClient(t *testing.T, opts ...Option) (*Client, *fakebackend.Backend) {
	t.Helper()
	b := fakebackend.New(
		fakebackend.WithUser(testEmail, testPassword),
		fakebackend.WithProfile(fakebackend.Profile{ID: 1, FirstName: "Jane", LastName: "Doe", BirthDate: "1990-01-01", Main: true}),
	)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	env := NewEnvironment(ModeDevelopment, HostTable{
		ModeDevelopment: {Default: Target{Scheme: "http", Host: host, Port: port}},
	})

	c, err := New(append([]Option{WithEnvironment(env)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, b
}

func TestNew_MockModeFromEnv(t *testing.T) {
	t.Setenv("ASCENTS_MODE", "mock")
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, ModeMock, c.Mode())

	p, err := c.Profiles().Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestNew_RejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero timeout", WithHTTPTimeout(0)},
		{"zero workers", WithWorkers(0)},
		{"negative queue", WithQueueSize(-1)},
		{"negative rate", WithRateLimit(-1)},
		{"negative mock delay", WithMockDelay(-time.Second)},
		{"unknown mode", WithMode("moon")},
		{"nil environment", WithEnvironment(nil)},
		{"nil transport", WithTransport(nil)},
		{"nil session", WithSession(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNew_BadEnvironmentVariable(t *testing.T) {
	t.Setenv("ASCENTS_MODE", "moon")
	_, err := New()
	assert.Error(t, err)
}

func TestClient_LoginGetLogout(t *testing.T) {
	c, b := newBackendClient(t, WithWorkers(2), WithQueueSize(8))
	ctx := context.Background()

	require.NoError(t, c.Sessions().Login(ctx, LoginRequest{Email: testEmail, Password: testPassword, RememberMe: true}))
	assert.Equal(t, AuthLevelTwo, c.Session().CurrentAuthLevel())
	assert.True(t, c.HasRememberMeCookie())

	p, err := c.Profiles().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Doe", p.LastName)

	require.NoError(t, c.Sessions().Logout(ctx))
	assert.Equal(t, AuthNone, c.Session().CurrentAuthLevel())
	assert.Empty(t, c.Session().Email())
	assert.False(t, c.HasRememberMeCookie())
	assert.Equal(t, 1, b.Hits(http.MethodPost, "/v1/session/logout"))
}

func TestClient_LogoutRejectedByServerSendsOnce(t *testing.T) {
	c, b := newBackendClient(t)
	ctx := context.Background()
	require.NoError(t, c.Sessions().Login(ctx, LoginRequest{Email: testEmail, Password: testPassword}))
	b.ExpireSessions()

	err := c.Sessions().Logout(ctx)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, AuthNone, c.Session().CurrentAuthLevel())
	assert.Empty(t, c.Session().Email())

	select {
	case ev := <-c.Session().Events():
		t.Fatalf("unexpected session event %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, b.Hits(http.MethodPost, "/v1/session/logout"))
}

func TestClient_LocalLogoutFiresServerLogout(t *testing.T) {
	c, b := newBackendClient(t)
	before := testutil.ToFloat64(serverLogoutsTotal.WithLabelValues("ok"))

	require.NoError(t, c.Sessions().Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword, RememberMe: true}))
	c.Session().Logout(false)

	assert.False(t, c.HasRememberMeCookie())
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(serverLogoutsTotal.WithLabelValues("ok")) == before+1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.Hits(http.MethodPost, "/v1/session/logout"))
}

func TestClient_SignedOutLogoutStaysLocal(t *testing.T) {
	c, b := newBackendClient(t)
	c.Session().Logout(true)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, b.Hits(http.MethodPost, "/v1/session/logout"))
}

func TestClient_CallAsyncDeduplicates(t *testing.T) {
	c, b := newBackendClient(t)
	require.NoError(t, c.Sessions().Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword}))

	d := NewDescriptor(CategoryProfiles, http.MethodGet, "/v1/profiles/{id}",
		EndpointAuth(AuthLevelOne), EndpointPathParams("1"))
	release := b.Hold()

	var wg sync.WaitGroup
	wg.Add(2)
	results := make([]Result, 2)
	first := c.CallAsync(context.Background(), d, Raw(), func(r Result) { results[0] = r; wg.Done() })
	second := c.CallAsync(context.Background(), d, Raw(), func(r Result) { results[1] = r; wg.Done() })
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Pending())

	release()
	wg.Wait()
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, "Jane", r.Raw["firstName"])
	}
	assert.Equal(t, 1, b.Hits(http.MethodGet, "/v1/profiles/1"))
}

func TestClient_CallTypedAndErrors(t *testing.T) {
	c, _ := newBackendClient(t)
	ctx := context.Background()
	d := NewDescriptor(CategoryProfiles, http.MethodGet, "/v1/profiles/{id}",
		EndpointAuth(AuthLevelOne), EndpointPathParams("1"))

	_, err := c.Call(ctx, d, Single[Profile]())
	assert.True(t, IsUnauthorized(err))
	assert.True(t, IsIrrecoverable(err))

	require.NoError(t, c.Sessions().Login(ctx, LoginRequest{Email: testEmail, Password: testPassword}))
	res, err := c.Call(ctx, d, Single[Profile]())
	require.NoError(t, err)
	p, err := ObjectAs[Profile](res)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)

	broken := NewDescriptor(CategoryProfiles, http.MethodGet, "/v1/profiles/{id}")
	_, err = c.Call(ctx, broken, Empty())
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestClient_CallAfterClose(t *testing.T) {
	c, _ := newBackendClient(t)
	require.NoError(t, c.Close())

	_, err := c.Call(context.Background(), NewDescriptor(CategorySessions, http.MethodPost, "/v1/sessions/login"), Empty())
	assert.ErrorIs(t, err, ErrConnection)
	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestClient_SharedSession(t *testing.T) {
	sess := NewSessionManager(SessionTimeouts(time.Minute, time.Minute))
	c, _ := newBackendClient(t, WithSession(sess))
	assert.Same(t, sess, c.Session())

	require.NoError(t, c.Sessions().Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword}))
	assert.Equal(t, AuthLevelTwo, sess.CurrentAuthLevel())
}
