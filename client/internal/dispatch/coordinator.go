// Package dispatch is the deduplicating front door every call goes through.
//
// Submitting a descriptor that is equivalent to one already in flight does
// not issue a second request: the caller is attached as another waiter of the
// existing call and receives the same Result. Distinct calls run on a bounded
// worker pool.
//
// Cancellation is all-or-nothing: Call.Cancel aborts the shared request for
// every waiter. A single waiter cannot withdraw on its own.
package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Theruz/8aAscents/client/internal/endpoint"
	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
	"github.com/Theruz/8aAscents/client/internal/executor"
	"github.com/Theruz/8aAscents/client/internal/session"
	"github.com/Theruz/8aAscents/client/internal/shardqueue"
)

// Runner executes one descriptor. *executor.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, d endpoint.Descriptor, shape executor.Shape, extraHeaders map[string]string) executor.Result
}

// Callback receives the Result of a call. It runs on a worker goroutine and
// should return quickly.
type Callback func(executor.Result)

// Coordinator owns the set of pending calls.
type Coordinator struct {
	runner  Runner
	session session.Session
	pool    *shardqueue.ShardExecutor
	headers map[string]string
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[string]*Call
	closed  bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPoolConfig sizes the worker pool.
func WithPoolConfig(cfg shardqueue.Config) Option {
	return func(c *Coordinator) {
		if c.pool != nil {
			c.pool.Stop()
		}
		c.pool = shardqueue.NewShardExecutor(cfg)
	}
}

// WithHeaders adds headers to every request. Descriptor headers win.
func WithHeaders(h map[string]string) Option {
	return func(c *Coordinator) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithLogger sets the Coordinator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New returns a Coordinator running calls through runner and reporting
// completions to sess.
func New(runner Runner, sess session.Session, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner:  runner,
		session: sess,
		headers: map[string]string{},
		pending: map[string]*Call{},
		logger:  log.Logger.With().Str("component", "dispatch").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = shardqueue.NewShardExecutor(shardqueue.Config{})
	}
	return c
}

// Submit schedules d, or joins the in-flight call equivalent to d, and
// registers cb as a waiter. cb may be nil. The returned Call is shared by
// every waiter of the equivalence class.
//
// ctx only scopes the submission; cancelling it does not abort a call other
// waiters may depend on. Use Call.Cancel for that.
//
// A waiter that joins with a different shape still shares the one request:
// cb receives the response reinterpreted for its own shape. Call.Result
// reports the shape of the submit that started the call.
func (c *Coordinator) Submit(ctx context.Context, d endpoint.Descriptor, shape executor.Shape, cb Callback) *Call {
	key := d.Key()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		call := c.newCall(ctx, key, d, shape, cb)
		call.abort(&apierrors.TransportError{Reason: apierrors.Connection, Err: shardqueue.ErrExecutorClosed})
		return call
	}
	if call, ok := c.pending[key]; ok {
		if cb != nil {
			call.waiters = append(call.waiters, waiter{cb: cb, shape: shape})
		}
		c.mu.Unlock()
		deduplicatedTotal.Inc()
		c.logger.Debug().Str("endpoint", d.String()).Msg("joined in-flight call")
		return call
	}
	call := c.newCall(ctx, key, d, shape, cb)
	c.pending[key] = call
	pendingCalls.Set(float64(len(c.pending)))
	c.mu.Unlock()

	callsTotal.WithLabelValues(shape.Kind().String()).Inc()

	// Submission may wait for room in the pool, so it happens outside the lock.
	if err := c.pool.Submit(call.ctx, "", shardqueue.JobFunc(call.run)); err != nil {
		call.abort(&apierrors.TransportError{Reason: apierrors.Connection, Err: err})
	}
	return call
}

func (c *Coordinator) newCall(ctx context.Context, key string, d endpoint.Descriptor, shape executor.Shape, cb Callback) *Call {
	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	call := &Call{
		coord:  c,
		key:    key,
		desc:   d,
		shape:  shape,
		ctx:    callCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if cb != nil {
		call.waiters = []waiter{{cb: cb, shape: shape}}
	}
	return call
}

// Pending returns the number of calls in flight.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// InFlight reports whether a call equivalent to d is pending.
func (c *Coordinator) InFlight(d endpoint.Descriptor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[d.Key()]
	return ok
}

// Close cancels every pending call and stops the worker pool. Later submits
// fail with a connection TransportError. Close is idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	calls := make([]*Call, 0, len(c.pending))
	for _, call := range c.pending {
		calls = append(calls, call)
	}
	c.mu.Unlock()

	for _, call := range calls {
		call.Cancel()
	}
	return c.pool.Close()
}

// complete fans res out to every waiter and then runs the session side
// effects. It runs exactly once per call. Calls that never reached the
// runner (sent is false) have no side effects.
func (c *Coordinator) complete(call *Call, res executor.Result, sent bool) {
	c.mu.Lock()
	if c.pending[call.key] == call {
		delete(c.pending, call.key)
		pendingCalls.Set(float64(len(c.pending)))
	}
	waiters := call.waiters
	call.waiters = nil
	c.mu.Unlock()

	call.result = res
	close(call.done)

	for _, w := range waiters {
		c.notify(call, w, res)
	}
	if sent {
		c.sideEffects(call.desc, res)
	}
}

func (c *Coordinator) notify(call *Call, w waiter, res executor.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Str("endpoint", call.desc.String()).Msg("waiter callback panic")
		}
	}()
	if !w.shape.Same(call.shape) {
		res = executor.Reshape(res, w.shape)
	}
	w.cb(res)
}

func (c *Coordinator) sideEffects(d endpoint.Descriptor, res executor.Result) {
	if c.session == nil {
		return
	}
	if d.Auth() > endpoint.AuthNone {
		c.session.OnAuthenticatedRequestCompleted()
	}
	if res.StatusCode == http.StatusUnauthorized && c.session.CurrentAuthLevel() > endpoint.AuthNone {
		forceLogoutsTotal.Inc()
		c.session.OnForceLogout(true)
	}
}

const (
	statePending int32 = iota
	stateRunning
	stateDone
)

type waiter struct {
	cb    Callback
	shape executor.Shape
}

// Call is one in-flight request shared by all its waiters.
type Call struct {
	coord  *Coordinator
	key    string
	desc   endpoint.Descriptor
	shape  executor.Shape
	ctx    context.Context
	cancel context.CancelFunc
	state  atomic.Int32

	waiters []waiter // guarded by coord.mu

	done   chan struct{}
	result executor.Result // written once before done is closed
}

// Descriptor returns the descriptor the call was created for.
func (c *Call) Descriptor() endpoint.Descriptor { return c.desc }

// Done is closed once the Result is available.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result blocks until the call resolves and returns its outcome.
func (c *Call) Result() executor.Result {
	<-c.done
	return c.result
}

// Wait blocks until the call resolves or ctx is done. Giving up on ctx
// leaves the shared call running.
func (c *Call) Wait(ctx context.Context) (executor.Result, error) {
	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		return executor.Result{}, ctx.Err()
	}
}

// Cancel aborts the shared call. Every waiter receives a cancelled
// TransportError. It has no effect once the call resolved.
func (c *Call) Cancel() {
	c.cancel()
	c.abort(&apierrors.TransportError{Reason: apierrors.Cancelled, Err: context.Canceled})
}

// abort completes a call that never started.
func (c *Call) abort(err error) {
	if !c.state.CompareAndSwap(statePending, stateDone) {
		return
	}
	c.cancel()
	c.coord.complete(c, executor.Result{Kind: c.shape.Kind(), Err: err}, false)
}

func (c *Call) run(context.Context) error {
	if !c.state.CompareAndSwap(statePending, stateRunning) {
		return nil
	}
	res, ok := c.execute()
	c.state.Store(stateDone)
	c.cancel()
	c.coord.complete(c, res, ok)
	return nil
}

// execute runs the descriptor, turning a runner panic into a failed Result
// so the call still resolves for every waiter.
func (c *Call) execute() (res executor.Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.coord.logger.Error().Interface("panic", r).Str("endpoint", c.desc.String()).Msg("runner panic")
			res = executor.Result{
				Kind: c.shape.Kind(),
				Err:  &apierrors.TransportError{Reason: apierrors.Connection, Err: fmt.Errorf("%w: %v", shardqueue.ErrJobPanic, r)},
			}
			ok = false
		}
	}()
	return c.coord.runner.Execute(c.ctx, c.desc, c.shape, c.coord.headers), true
}
