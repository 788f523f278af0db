package api

import (
	"context"

	"github.com/Theruz/8aAscents/client/internal/dispatch"
	"github.com/Theruz/8aAscents/client/internal/endpoint"
	"github.com/Theruz/8aAscents/client/internal/executor"
)

// Dispatcher submits descriptors. *dispatch.Coordinator implements it.
type Dispatcher interface {
	Submit(ctx context.Context, d endpoint.Descriptor, shape executor.Shape, cb dispatch.Callback) *dispatch.Call
}

// SessionState is the part of the session the sessions endpoints update.
type SessionState interface {
	SetAuthLevel(endpoint.AuthLevel)
	RememberEmail(email string, rememberMe bool)
}

// await waits for the callback result on ch. Giving up on ctx leaves the
// shared call running for its other waiters.
func await(ctx context.Context, ch <-chan executor.Result) (executor.Result, error) {
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return executor.Result{}, ctx.Err()
	}
}

func awaitErr(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// collect returns a callback feeding a buffered channel, for await.
func collect() (dispatch.Callback, <-chan executor.Result) {
	ch := make(chan executor.Result, 1)
	return func(r executor.Result) { ch <- r }, ch
}
