package queuesvc_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/task"
	queuesvc "github.com/trezcool/chuo/services/queue"
	"github.com/trezcool/chuo/tests"
)

func newRedisQueue(t *testing.T) (*queuesvc.RedisQueue, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queuesvc.NewRedisQueue(client, "chuo:jobs", testutil.NewLogger(&core.Config{TestMode: true})), client
}

func newJob(t *testing.T, name string, args interface{}) task.Job {
	t.Helper()
	job, err := task.NewJob(name, args, testutil.Now)
	require.NoError(t, err)
	return job
}

func TestRedisQueue_Consume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q, client := newRedisQueue(t)

	jobs := []task.Job{
		newJob(t, "first", map[string]int{"n": 1}),
		newJob(t, "broken", nil),
		newJob(t, "last", map[string]int{"n": 3}),
	}
	for _, job := range jobs {
		require.NoError(t, q.Submit(ctx, job))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	var handled []string
	err = q.Consume(ctx, func(_ context.Context, job task.Job) error {
		handled = append(handled, job.Name)
		if job.Name == "last" {
			cancel()
		}
		if job.Name == "broken" {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "broken", "last"}, handled, "FIFO, failures are not retried")
	n, err = q.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	processing, err := client.LLen(context.Background(), "chuo:jobs:processing").Result()
	require.NoError(t, err)
	assert.Zero(t, processing, "handled jobs are acknowledged")
}

func TestRedisQueue_Requeue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q, client := newRedisQueue(t)

	// left behind by a crashed consumer
	orphan := newJob(t, "orphan", nil)
	data, err := json.Marshal(orphan)
	require.NoError(t, err)
	require.NoError(t, client.LPush(ctx, "chuo:jobs:processing", "not json", data).Err())

	var got []task.Job
	err = q.Consume(ctx, func(_ context.Context, job task.Job) error {
		got = append(got, job)
		cancel()
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 1, "malformed jobs are dropped")
	assert.Equal(t, orphan.ID, got[0].ID)
	assert.Equal(t, orphan.SubmittedAt, got[0].SubmittedAt)
}

func TestInlineQueue(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewLogger(&core.Config{TestMode: true})

	var (
		mu   sync.Mutex
		seen []string
	)
	runner := task.NewRunner()
	runner.Register("record", func(_ context.Context, job task.Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.ID)
		return nil
	})
	runner.Register("fail", func(context.Context, task.Job) error { return errors.New("boom") })

	t.Run("sync", func(t *testing.T) {
		seen = nil
		q := queuesvc.NewSyncQueue(runner, logger)
		job := newJob(t, "record", nil)
		require.NoError(t, q.Submit(ctx, job))
		assert.Equal(t, []string{job.ID}, seen)

		assert.NoError(t, q.Submit(ctx, newJob(t, "fail", nil)), "outcome is only logged")
		assert.NoError(t, q.Submit(ctx, newJob(t, "unknown", nil)))
	})

	t.Run("async", func(t *testing.T) {
		seen = nil
		q := queuesvc.NewInlineQueue(runner, logger)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		for i := 0; i < 5; i++ {
			require.NoError(t, q.Submit(cancelled, newJob(t, "record", nil)))
		}
		q.Wait()
		assert.Len(t, seen, 5, "jobs outlive the submitting request")
	})
}
