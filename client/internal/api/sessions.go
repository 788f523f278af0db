package api

import (
	"context"
	"net/http"

	"github.com/Theruz/8aAscents/client/internal/dispatch"
	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/executor"
	"github.com/Theruz/8aAscents/client/internal/types"
)

// LoginEndpoint describes the form-encoded password login.
func LoginEndpoint(req types.LoginRequest) endpoint.Descriptor {
	return endpoint.New(endpoint.CategorySessions, http.MethodPost, "v1/sessions/login",
		endpoint.WithEncoding(endpoint.EncodingForm),
		endpoint.WithBody(map[string]any{
			"email":      req.Email,
			"password":   req.Password,
			"rememberMe": req.RememberMe,
		}),
		endpoint.WithDescription("login"),
	)
}

// LogoutEndpoint describes the server-side logout.
func LogoutEndpoint() endpoint.Descriptor {
	return endpoint.New(endpoint.CategorySessions, http.MethodPost, "v1/session/logout",
		endpoint.WithAuth(endpoint.AuthLevelOne),
		endpoint.WithDescription("logout"),
	)
}

// LoginAsync signs in. On success the session is raised to level two and
// remembers the email before cb runs.
func LoginAsync(ctx context.Context, d Dispatcher, sess SessionState, req types.LoginRequest, cb func(error)) (*dispatch.Call, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return d.Submit(ctx, LoginEndpoint(req), executor.Empty(), func(res executor.Result) {
		if res.OK() && sess != nil {
			sess.SetAuthLevel(endpoint.AuthLevelTwo)
			sess.RememberEmail(req.Email, req.RememberMe)
		}
		if cb != nil {
			cb(res.Err)
		}
	}), nil
}

// Login signs in and waits for the outcome.
func Login(ctx context.Context, d Dispatcher, sess SessionState, req types.LoginRequest) error {
	done := make(chan error, 1)
	if _, err := LoginAsync(ctx, d, sess, req, func(err error) { done <- err }); err != nil {
		return err
	}
	return awaitErr(ctx, done)
}

// LogoutAsync ends the server session. The level drops to none before the
// request is sent, so a 401 from the backend cannot force a second logout.
func LogoutAsync(ctx context.Context, d Dispatcher, sess SessionState, cb func(error)) *dispatch.Call {
	if sess != nil {
		sess.SetAuthLevel(endpoint.AuthNone)
	}
	return d.Submit(ctx, LogoutEndpoint(), executor.Empty(), func(res executor.Result) {
		if cb != nil {
			cb(res.Err)
		}
	})
}

// Logout ends the server session and waits for the outcome.
func Logout(ctx context.Context, d Dispatcher, sess SessionState) error {
	done := make(chan error, 1)
	LogoutAsync(ctx, d, sess, func(err error) { done <- err })
	return awaitErr(ctx, done)
}
