// Command worker executes the background jobs submitted to the Redis queue.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	dig_container "github.com/trezcool/chuo/apps/api/di/dig"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/task"
	queuesvc "github.com/trezcool/chuo/services/queue"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		db *sqlx.DB,
		redisClient *redis.Client,
		runner *task.Runner,
	) {
		if conf.Queue.Engine != "redis" {
			logger.Fatal(fmt.Sprintf("worker: queue engine is %q, jobs run in the API process", conf.Queue.Engine))
		}
		defer func() {
			if db != nil {
				_ = db.Close()
			}
			_ = redisClient.Close()
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info(fmt.Sprintf("Worker started : version %q, queue %q, jobs %v", conf.Build, conf.Queue.Name, runner.Names()))

		q := queuesvc.NewRedisQueue(redisClient, conf.Queue.Name, logger)
		if err := q.Consume(ctx, runner.Handle); err != nil {
			logger.Fatal(fmt.Sprintf("worker: %v", err), err)
		}
		logger.Info("Worker stopped")
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
