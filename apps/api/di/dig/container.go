package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/jobs"
	"github.com/trezcool/chuo/core/report"
	"github.com/trezcool/chuo/core/task"
	"github.com/trezcool/chuo/core/user"
	cachesvc "github.com/trezcool/chuo/services/cache"
	emailsvc "github.com/trezcool/chuo/services/email"
	logsvc "github.com/trezcool/chuo/services/logger"
	queuesvc "github.com/trezcool/chuo/services/queue"
	"github.com/trezcool/chuo/services/tabular"
	"github.com/trezcool/chuo/storage/database"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/chuo/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are the stores of record of the selected database engine.
// The postgres schema is not migrated here, see database.Migrate.
type Repositories struct {
	dig.Out
	DB       *sqlx.DB            // nil with the inmem engine
	Academic academic.Repository `name:"academicStore"` // not audited
	Users    user.Repository     `name:"userStore"`     // not audited
	Audit    audit.Repository
	Reports  report.Repository
}

type academicStoreParam struct {
	dig.In
	Repo academic.Repository `name:"academicStore"`
}

type userStoreParam struct {
	dig.In
	Repo user.Repository `name:"userStore"`
}

// ServerParams are the dependencies of the API server.
type ServerParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	Clock       clockwork.Clock
	UserSvc     *user.Service
	AcademicSvc *academic.Service
	Reports     *report.Engine
	Cache       *cache.UniversityCache
	AuditRepo   audit.Repository
	Queue       task.Queue
}

func newStdLogger(prefix string, flags int) *log.Logger {
	return log.New(os.Stdout, prefix, flags)
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(newStdLogger("API : ", log.LstdFlags), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(newStdLogger("DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam, clock clockwork.Clock) Repositories {
	switch conf.Database.Engine {
	case "inmem":
		loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
		db := inmemdb.Open(clock)
		return Repositories{
			Academic: inmemdb.NewAcademicRepository(db),
			Users:    inmemdb.NewUserRepository(db),
			Audit:    inmemdb.NewAuditRepository(db),
			Reports:  inmemdb.NewReportRepository(db),
		}
	case "postgres":
	default:
		loggerParam.Logger.Fatal(fmt.Sprintf("unknown database engine %q", conf.Database.Engine))
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		return database.Open(conf)
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Repositories{
		DB:       db,
		Academic: sqlxrepos.NewAcademicRepository(db),
		Users:    sqlxrepos.NewUserRepository(db),
		Audit:    sqlxrepos.NewAuditRepository(db),
		Reports:  sqlxrepos.NewReportRepository(db),
	}
}

// newAcademicRepository records an audit log for every change of the store.
func newAcademicRepository(store academicStoreParam, logger core.Logger, clock clockwork.Clock) academic.Repository {
	return academic.NewAuditedRepository(store.Repo, audit.NewRecorder(logger, clock))
}

// newUserRepository records an audit log for every saved user.
func newUserRepository(store userStoreParam, auditRepo audit.Repository, logger core.Logger, clock clockwork.Clock) user.Repository {
	return user.NewAuditedRepository(store.Repo, auditRepo, audit.NewRecorder(logger, clock))
}

// newRedisClient returns nil when neither the cache nor the queue use Redis.
func newRedisClient(conf *core.Config, logger core.Logger) *redis.Client {
	if conf.Cache.Engine != "redis" && conf.Queue.Engine != "redis" {
		return nil
	}
	client, err := cachesvc.NewRedisClient(context.Background(), conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	return client
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, newStdLogger("MAIL : ", log.LstdFlags), logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newCacheStore(conf *core.Config, client *redis.Client, clock clockwork.Clock) cache.Store {
	if conf.Cache.Engine == "redis" {
		return cachesvc.NewRedisStore(client, strings.ToLower(conf.AppName)+":cache:")
	}
	return cachesvc.NewMemoryStore(clock)
}

func newCacheSource(engine *report.Engine) cache.Source {
	return engine
}

func newUniversityCache(conf *core.Config, store cache.Store, src cache.Source, logger core.Logger) *cache.UniversityCache {
	return cache.NewUniversityCache(store, src, conf.Cache, logger)
}

func newCacheInvalidator(uc *cache.UniversityCache) academic.CacheInvalidator {
	return uc
}

func newRowReader() jobs.RowReader {
	return tabular.NewReader()
}

func newPerformanceReports(conf *core.Config, repo academic.Repository, clock clockwork.Clock) *jobs.PerformanceReports {
	return jobs.NewPerformanceReports(repo, clock, conf.ReportsDir)
}

func newRunner(imp *jobs.Importer, rem *jobs.ExamReminder, rep *jobs.PerformanceReports, logger core.Logger) *task.Runner {
	r := task.NewRunner()
	jobs.Register(r, imp, rem, rep, logger)
	return r
}

func newQueue(conf *core.Config, client *redis.Client, runner *task.Runner, logger core.Logger) task.Queue {
	if conf.Queue.Engine == "redis" {
		return queuesvc.NewRedisQueue(client, conf.Queue.Name, logger)
	}
	return queuesvc.NewInlineQueue(runner, logger)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Clock:       p.Clock,
		UserSvc:     p.UserSvc,
		AcademicSvc: p.AcademicSvc,
		Reports:     p.Reports,
		Cache:       p.Cache,
		AuditRepo:   p.AuditRepo,
		Queue:       p.Queue,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newClock))
	must(c.Provide(newRepositories))
	must(c.Provide(newAcademicRepository))
	must(c.Provide(newUserRepository))
	must(c.Provide(newRedisClient))
	must(c.Provide(newEmailService))
	must(c.Provide(report.NewEngine))
	must(c.Provide(newCacheStore))
	must(c.Provide(newCacheSource))
	must(c.Provide(newUniversityCache))
	must(c.Provide(newCacheInvalidator))
	must(c.Provide(user.NewService))
	must(c.Provide(academic.NewService))
	must(c.Provide(newRowReader))
	must(c.Provide(jobs.NewImporter))
	must(c.Provide(jobs.NewExamReminder))
	must(c.Provide(newPerformanceReports))
	must(c.Provide(newRunner))
	must(c.Provide(newQueue))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
