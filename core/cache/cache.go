// Package cache memoizes the expensive read paths: the course catalogue, the weekly schedule and the debtors report.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/report"
)

const (
	CoursesKey  = "courses_with_teachers"
	ScheduleKey = "weekly_schedule"
	DebtorsKey  = "debtors_report"
)

// ErrCacheMiss is returned by a Store when the key is absent or expired. It is not a failure: the value is recomputed.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get decodes the value stored under key into dest, or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Source computes the cached values from the store of record.
type Source interface {
	CourseListing(ctx context.Context) ([]report.CourseListing, error)
	ScheduleListing(ctx context.Context) ([]report.ScheduleListing, error)
	Debtors(ctx context.Context) ([]report.Debtor, error)
}

// UniversityCache serves each read path from the Store, computing it from the Source on a miss.
// Concurrent misses may compute the same value twice; the last write wins.
type UniversityCache struct {
	store  Store
	src    Source
	cfg    core.CacheConfig
	logger core.Logger
}

func NewUniversityCache(store Store, src Source, cfg core.CacheConfig, logger core.Logger) *UniversityCache {
	vala.BeginValidation().Validate(
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(src, "src"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &UniversityCache{store: store, src: src, cfg: cfg, logger: logger}
}

func (c *UniversityCache) Courses(ctx context.Context) ([]report.CourseListing, error) {
	return getOrCompute(ctx, c, CoursesKey, c.cfg.CoursesTTL, c.src.CourseListing)
}

func (c *UniversityCache) Schedule(ctx context.Context) ([]report.ScheduleListing, error) {
	return getOrCompute(ctx, c, ScheduleKey, c.cfg.ScheduleTTL, c.src.ScheduleListing)
}

func (c *UniversityCache) Debtors(ctx context.Context) ([]report.Debtor, error) {
	return getOrCompute(ctx, c, DebtorsKey, c.cfg.DebtorsTTL, c.src.Debtors)
}

// InvalidateAll drops the three keys. A store failure is logged, the next reads may then be stale until expiry.
func (c *UniversityCache) InvalidateAll(ctx context.Context) {
	if err := c.store.Delete(ctx, CoursesKey, ScheduleKey, DebtorsKey); err != nil {
		c.logger.Error(fmt.Sprintf("cache: invalidating: %v", err), err)
		return
	}
	c.logger.Info("university cache invalidated")
}

// Warm recomputes and stores every read path, courses first, then schedule, then debtors.
func (c *UniversityCache) Warm(ctx context.Context) error {
	c.InvalidateAll(ctx)
	if _, err := c.Courses(ctx); err != nil {
		return errors.Wrap(err, "warming courses")
	}
	if _, err := c.Schedule(ctx); err != nil {
		return errors.Wrap(err, "warming schedule")
	}
	if _, err := c.Debtors(ctx); err != nil {
		return errors.Wrap(err, "warming debtors")
	}
	return nil
}

func getOrCompute[T any](ctx context.Context, c *UniversityCache, key string, ttl time.Duration, compute func(context.Context) ([]T, error)) ([]T, error) {
	var data []T
	err := c.store.Get(ctx, key, &data)
	if err == nil {
		return data, nil
	}
	if errors.Cause(err) != ErrCacheMiss {
		// serve from the source of record
		c.logger.Warn(fmt.Sprintf("cache: reading %s: %v", key, err), err)
	}

	if data, err = compute(ctx); err != nil {
		return nil, err
	}
	if err = c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn(fmt.Sprintf("cache: writing %s: %v", key, err), err)
	}
	return data, nil
}
