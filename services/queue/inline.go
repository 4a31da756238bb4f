package queuesvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/task"
)

// InlineQueue runs jobs in the current process, in a goroutine or synchronously.
type InlineQueue struct {
	runner *task.Runner
	logger core.Logger
	sync   bool
	wg     sync.WaitGroup
}

var _ task.Queue = (*InlineQueue)(nil)

func NewInlineQueue(runner *task.Runner, logger core.Logger) *InlineQueue {
	return &InlineQueue{runner: runner, logger: logger}
}

// NewSyncQueue runs every job before Submit returns. Used by tests and the admin CLI.
func NewSyncQueue(runner *task.Runner, logger core.Logger) *InlineQueue {
	return &InlineQueue{runner: runner, logger: logger, sync: true}
}

// Submit never fails: the job outcome is only logged.
func (q *InlineQueue) Submit(ctx context.Context, job task.Job) error {
	if q.sync {
		q.run(ctx, job)
		return nil
	}

	// detached from the submitting request
	ctx = context.Background()
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.run(ctx, job)
	}()
	return nil
}

// Wait blocks until the running jobs are done.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}

func (q *InlineQueue) run(ctx context.Context, job task.Job) {
	if err := q.runner.Handle(ctx, job); err != nil {
		q.logger.Error(fmt.Sprintf("job %s (%s): %v", job.ID, job.Name, err), err)
	}
}
