package shardqueue

import (
	"errors"
	"fmt"
)

// ErrQueueFull reports transient back‑pressure: the queue stayed full for
// the whole admission window.
var ErrQueueFull = errors.New("shard queue full")

// ErrExecutorClosed reports a permanent condition: the executor has been
// stopped and will accept no further work.
var ErrExecutorClosed = errors.New("shard executor closed")

// ErrJobPanic is handed to the ErrorHandler when a job panics.
var ErrJobPanic = errors.New("shard job panicked")

// QueueFullError carries diagnostics while satisfying errors.Is(_, ErrQueueFull).
type QueueFullError struct {
	Shard    int // -1 for the shared queue
	Length   int // queue length at timeout
	Capacity int // cap(queue)
}

func (e *QueueFullError) Error() string {
	if e.Shard < 0 {
		return fmt.Sprintf("shared queue full (len=%d cap=%d)", e.Length, e.Capacity)
	}
	return fmt.Sprintf("shard queue %d full (len=%d cap=%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }
