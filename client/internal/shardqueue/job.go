package shardqueue

import "context"

// Job is a unit of work executed by a ShardExecutor. Run is invoked at most
// once per submission, with the context given to Submit.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job for JobFunc.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }
