// Package shardqueue provides a bounded worker pool. Jobs submitted with a
// key run in FIFO order on the shard that key hashes to; jobs submitted with
// an empty key go to a shared queue that every worker consumes, so they run
// as soon as any worker is free.
//
// Each job runs at most once. Nothing is retried.
package shardqueue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const sharedLabel = "shared"

var errBusy = errors.New("queue busy")

type queuedJob struct {
	ctx context.Context
	job Job
}

// ShardExecutor runs Jobs on cfg.Shards worker goroutines.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards
	shared chan queuedJob

	done   chan struct{} // closed in Stop()
	closed uint32        // 0 → running, 1 → closed

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	if cfg.Shards <= 0 {
		cfg.Shards = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 50 * time.Millisecond
	}

	p := &ShardExecutor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		shared: make(chan queuedJob, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job. An empty key selects the shared queue.
//
//   - Returns nil on success.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns ErrQueueFull (wrapped in *QueueFullError) if the queue stayed
//     full for EnqueueTimeout.
//   - Returns ctx.Err() if the caller‑provided context is cancelled first.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&p.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	shard, label, ch := -1, sharedLabel, p.shared
	if key != "" {
		shard = p.shardFor(key)
		label = labelFor(shard)
		ch = p.queues[shard]
	}
	qj := queuedJob{ctx: ctx, job: job}

	// Admission polls the queue with exponential backoff until it has room
	// or EnqueueTimeout elapses.
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = p.cfg.EnqueueTimeout
	exp.Reset()

	err := backoff.Retry(func() error {
		select {
		case <-p.done:
			return backoff.Permanent(ErrExecutorClosed)
		case <-ctx.Done():
			return backoff.Permanent(ctx.Err())
		default:
		}
		select {
		case ch <- qj:
			return nil
		default:
			return errBusy
		}
	}, backoff.WithContext(exp, ctx))

	switch {
	case err == nil:
		submissionsTotal.WithLabelValues(label).Inc()
		return nil
	case errors.Is(err, errBusy):
		queueFullTotal.WithLabelValues(label).Inc()
		return &QueueFullError{Shard: shard, Length: len(ch), Capacity: cap(ch)}
	default:
		return err
	}
}

// Stop signals every worker to finish draining its queue, waits for them to
// terminate, and then returns. It is idempotent and safe for concurrent use.
func (p *ShardExecutor) Stop() {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return
	}

	log.Debug().Int("shards", p.cfg.Shards).Msg("shardqueue: stopping executor")
	close(p.done)
	p.wg.Wait()
	log.Debug().Msg("shardqueue: executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, own <-chan queuedJob) {
	defer p.wg.Done()

	label := labelFor(idx)
	for {
		select {
		case qj := <-own:
			p.run(label, qj)
			queueDepth.WithLabelValues(label).Set(float64(len(own)))

		case qj := <-p.shared:
			p.run(label, qj)
			queueDepth.WithLabelValues(sharedLabel).Set(float64(len(p.shared)))

		case <-p.done:
			drained := p.drain(label, own) + p.drain(label, p.shared)
			if drained > 0 {
				log.Debug().Int("worker", idx).Int("jobs", drained).Msg("shardqueue: drained remaining jobs")
			}
			queueDepth.WithLabelValues(label).Set(0)
			return
		}
	}
}

func (p *ShardExecutor) drain(label string, ch <-chan queuedJob) int {
	n := 0
	for {
		select {
		case qj := <-ch:
			p.run(label, qj)
			n++
		default:
			return n
		}
	}
}

// run executes one job, skipping it when its context is already done. A
// panicking job is reported to the ErrorHandler and the worker carries on.
func (p *ShardExecutor) run(label string, qj queuedJob) {
	if qj.job == nil {
		return
	}
	if err := qj.ctx.Err(); err != nil {
		p.safeHandleError(err)
		return
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("shard", label).Msg("shardqueue: job panic")
				err = fmt.Errorf("%w: %v", ErrJobPanic, r)
			}
		}()
		return qj.job.Run(qj.ctx)
	}()
	runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	p.safeHandleError(err)
}

func (p *ShardExecutor) safeHandleError(err error) {
	if err == nil || p.cfg.ErrorHandler == nil {
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("shardqueue: error handler panic")
			}
		}()
		p.cfg.ErrorHandler(err)
	}()
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
