package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/report"
	cachesvc "github.com/trezcool/chuo/services/cache"
	"github.com/trezcool/chuo/tests"
)

var ctx = context.Background()

// countingSource counts the computations of every read path.
type countingSource struct {
	courses, schedule, debtors int
	err                        error
}

func (s *countingSource) CourseListing(context.Context) ([]report.CourseListing, error) {
	s.courses++
	return []report.CourseListing{{Name: "Algebra"}}, s.err
}

func (s *countingSource) ScheduleListing(context.Context) ([]report.ScheduleListing, error) {
	s.schedule++
	return []report.ScheduleListing{{Room: "B12"}}, s.err
}

func (s *countingSource) Debtors(context.Context) ([]report.Debtor, error) {
	s.debtors++
	return []report.Debtor{{FullName: "Asha"}}, s.err
}

// brokenStore fails every operation.
type brokenStore struct{}

func (*brokenStore) Get(context.Context, string, interface{}) error { return errors.New("store down") }
func (*brokenStore) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("store down")
}
func (*brokenStore) Delete(context.Context, ...string) error { return errors.New("store down") }

var ttls = core.CacheConfig{CoursesTTL: 15 * time.Minute, ScheduleTTL: 30 * time.Minute, DebtorsTTL: 10 * time.Minute}

func newCache(store cache.Store, src cache.Source) *cache.UniversityCache {
	return cache.NewUniversityCache(store, src, ttls, testutil.NewLogger(&core.Config{TestMode: true}))
}

func TestUniversityCache_expiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testutil.Now)
	src := new(countingSource)
	uc := newCache(cachesvc.NewMemoryStore(clock), src)

	read := func() {
		_, err := uc.Courses(ctx)
		require.NoError(t, err)
		_, err = uc.Schedule(ctx)
		require.NoError(t, err)
		_, err = uc.Debtors(ctx)
		require.NoError(t, err)
	}

	read()
	read()
	assert.Equal(t, countingSource{courses: 1, schedule: 1, debtors: 1}, *src)

	clock.Advance(10 * time.Minute) // debtors expire
	read()
	assert.Equal(t, countingSource{courses: 1, schedule: 1, debtors: 2}, *src)

	clock.Advance(5 * time.Minute) // courses expire
	read()
	assert.Equal(t, countingSource{courses: 2, schedule: 1, debtors: 2}, *src)

	clock.Advance(15 * time.Minute)
	read()
	assert.Equal(t, countingSource{courses: 3, schedule: 2, debtors: 3}, *src)
}

func TestUniversityCache_invalidateAndWarm(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testutil.Now)
	store := cachesvc.NewMemoryStore(clock)
	src := new(countingSource)
	uc := newCache(store, src)

	require.NoError(t, uc.Warm(ctx))
	assert.Equal(t, countingSource{courses: 1, schedule: 1, debtors: 1}, *src)

	var debtors []report.Debtor
	require.NoError(t, store.Get(ctx, cache.DebtorsKey, &debtors))
	require.Len(t, debtors, 1)
	assert.Equal(t, "Asha", debtors[0].FullName)
	assert.True(t, debtors[0].Debt.IsZero(), debtors[0].Debt.String())

	uc.InvalidateAll(ctx)
	for _, key := range []string{cache.CoursesKey, cache.ScheduleKey, cache.DebtorsKey} {
		assert.Equal(t, cache.ErrCacheMiss, store.Get(ctx, key, &debtors), key)
	}

	courses, err := uc.Courses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []report.CourseListing{{Name: "Algebra"}}, courses)
	assert.Equal(t, 2, src.courses)
}

func TestUniversityCache_storeFailures(t *testing.T) {
	src := new(countingSource)
	uc := newCache(&brokenStore{}, src)

	// served from the source of record
	courses, err := uc.Courses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	_, err = uc.Courses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.courses)

	assert.NotPanics(t, func() { uc.InvalidateAll(ctx) })
}

func TestUniversityCache_sourceFailure(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testutil.Now)
	store := cachesvc.NewMemoryStore(clock)
	uc := newCache(store, &countingSource{err: errors.New("db down")})

	_, err := uc.Debtors(ctx)
	assert.EqualError(t, err, "db down")
	var debtors []report.Debtor
	assert.Equal(t, cache.ErrCacheMiss, store.Get(ctx, cache.DebtorsKey, &debtors), "errors are not cached")

	assert.EqualError(t, uc.Warm(ctx), "warming courses: db down")
}
