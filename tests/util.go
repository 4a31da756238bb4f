// Package testutil wires the application on the in-memory database for tests.
package testutil

import (
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/jobs"
	"github.com/trezcool/chuo/core/report"
	"github.com/trezcool/chuo/core/task"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/services/cache"
	"github.com/trezcool/chuo/services/email"
	"github.com/trezcool/chuo/services/logger"
	"github.com/trezcool/chuo/services/queue"
	"github.com/trezcool/chuo/services/tabular"
	"github.com/trezcool/chuo/storage/database/inmem"
)

// Now is the instant the fake clock of every Env starts at: Wednesday, 2024-03-13 10:00 UTC.
var Now = time.Date(2024, time.March, 13, 10, 0, 0, 0, time.UTC)

// Env is a fully wired application backed by inmemdb.
type Env struct {
	Conf   *core.Config
	Clock  clockwork.FakeClock
	Logger core.Logger
	Mailer *emailsvc.ConsoleServiceMock

	DB        *inmemdb.DB
	Repo      academic.Repository // audited
	UserRepo  user.Repository
	AuditRepo audit.Repository

	UserSvc     *user.Service
	AcademicSvc *academic.Service
	Reports     *report.Engine
	Cache       *cache.UniversityCache
	CacheStore  *cachesvc.MemoryStore
	Runner      *task.Runner
	Queue       *queuesvc.InlineQueue // synchronous

	Importer    *jobs.Importer
	Reminder    *jobs.ExamReminder
	PerfReports *jobs.PerformanceReports
}

func NewConfig(t *testing.T) *core.Config {
	return &core.Config{
		AppName:          "Chuo",
		Env:              "TEST",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "Chuo", Address: "noreply@chuo.test"},
		WorkDir:          t.TempDir(),
		ReportsDir:       t.TempDir(),
		UploadsDir:       t.TempDir(),
		Server: core.ServerConfig{
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Database: core.DatabaseConfig{Engine: "inmem"},
		Cache: core.CacheConfig{
			Engine:      "memory",
			CoursesTTL:  15 * time.Minute,
			ScheduleTTL: 30 * time.Minute,
			DebtorsTTL:  10 * time.Minute,
		},
		Queue: core.QueueConfig{Engine: "inline", Name: "chuo:test"},
	}
}

// NewLogger returns a logger that discards everything.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func NewEnv(t *testing.T) *Env {
	conf := NewConfig(t)
	clock := clockwork.NewFakeClockAt(Now)
	logger := NewLogger(conf)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	db := inmemdb.Open(clock)
	repo := academic.NewAuditedRepository(inmemdb.NewAcademicRepository(db), audit.NewRecorder(logger, clock))
	reports := report.NewEngine(inmemdb.NewReportRepository(db))
	store := cachesvc.NewMemoryStore(clock)
	uc := cache.NewUniversityCache(store, reports, conf.Cache, logger)
	userRepo := inmemdb.NewUserRepository(db)
	auditRepo := inmemdb.NewAuditRepository(db)

	env := &Env{
		Conf:        conf,
		Clock:       clock,
		Logger:      logger,
		Mailer:      mailer,
		DB:          db,
		Repo:        repo,
		UserRepo:    userRepo,
		AuditRepo:   auditRepo,
		UserSvc:     user.NewService(user.NewAuditedRepository(userRepo, auditRepo, audit.NewRecorder(logger, clock))),
		AcademicSvc: academic.NewService(repo, uc, clock),
		Reports:     reports,
		Cache:       uc,
		CacheStore:  store,
		Runner:      task.NewRunner(),
		Importer:    jobs.NewImporter(repo, uc, tabular.NewReader(), mailer, logger),
		Reminder:    jobs.NewExamReminder(repo, mailer, clock),
		PerfReports: jobs.NewPerformanceReports(repo, clock, conf.ReportsDir),
	}
	jobs.Register(env.Runner, env.Importer, env.Reminder, env.PerfReports, logger)
	env.Queue = queuesvc.NewSyncQueue(env.Runner, logger)
	return env
}
