// Package queuesvc implements task.Queue with a Redis list and in process.
package queuesvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/task"
)

const pollTimeout = 5 * time.Second

// RedisQueue is an at-least-once queue on a Redis list.
// A consumed job is moved to a processing list and removed from it once handled;
// jobs still in processing when a consumer starts (a crash) are queued again.
type RedisQueue struct {
	client     redis.UniversalClient
	name       string
	processing string
	logger     core.Logger
}

var _ task.Queue = (*RedisQueue)(nil)

func NewRedisQueue(client redis.UniversalClient, name string, logger core.Logger) *RedisQueue {
	vala.BeginValidation().Validate(
		vala.IsNotNil(client, "client"),
		vala.StringNotEmpty(name, "name"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &RedisQueue{client: client, name: name, processing: name + ":processing", logger: logger}
}

func (q *RedisQueue) Submit(ctx context.Context, job task.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrapf(err, "encoding job %s", job.ID)
	}
	return errors.Wrapf(q.client.LPush(ctx, q.name, data).Err(), "submitting job %s", job.ID)
}

// Len returns the number of jobs waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// Requeue moves the jobs left in processing back to the queue and returns their number.
func (q *RedisQueue) Requeue(ctx context.Context) (int, error) {
	var n int
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.name).Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrap(err, "requeueing jobs")
		}
		n++
	}
}

// Consume hands every job to h until ctx is done. Handler errors are logged, the job is not retried.
func (q *RedisQueue) Consume(ctx context.Context, h task.Handler) error {
	if n, err := q.Requeue(ctx); err != nil {
		return err
	} else if n > 0 {
		q.logger.Warn(fmt.Sprintf("queue %s: requeued %d unfinished jobs", q.name, n))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		data, err := q.client.BRPopLPush(ctx, q.name, q.processing, pollTimeout).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "consuming %s", q.name)
		}

		q.handle(ctx, data, h)

		if err = q.client.LRem(context.Background(), q.processing, 1, data).Err(); err != nil {
			q.logger.Error(fmt.Sprintf("queue %s: acknowledging job: %v", q.name, err), err)
		}
	}
}

func (q *RedisQueue) handle(ctx context.Context, data []byte, h task.Handler) {
	var job task.Job
	if err := json.Unmarshal(data, &job); err != nil {
		q.logger.Error(fmt.Sprintf("queue %s: dropping malformed job: %v", q.name, err), err)
		return
	}

	q.logger.Info(fmt.Sprintf("job %s (%s): started", job.ID, job.Name))
	if err := h(ctx, job); err != nil {
		q.logger.Error(fmt.Sprintf("job %s (%s): %v", job.ID, job.Name, err), err)
		return
	}
	q.logger.Info(fmt.Sprintf("job %s (%s): done", job.ID, job.Name))
}
