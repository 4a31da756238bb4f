package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/cache"
	"github.com/trezcool/chuo/core/report"
	"github.com/trezcool/chuo/core/task"
	"github.com/trezcool/chuo/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Clock          clockwork.Clock
		DisableReqLogs bool

		UserSvc     *user.Service
		AcademicSvc *academic.Service
		Reports     *report.Engine
		Cache       *cache.UniversityCache
		AuditRepo   audit.Repository
		Queue       task.Queue
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Clock, "Clock"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.AcademicSvc, "AcademicSvc"),
		vala.IsNotNil(deps.Reports, "Reports"),
		vala.IsNotNil(deps.Cache, "Cache"),
		vala.IsNotNil(deps.AuditRepo, "AuditRepo"),
		vala.IsNotNil(deps.Queue, "Queue"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1", middleware.JWTWithConfig(newJWTConfig(conf.SecretKey)), principalMiddleware(s.deps.UserSvc))

	registerUserAPI(v1, s.deps.UserSvc)
	registerAcademicAPI(v1, s.deps.AcademicSvc)
	registerReportAPI(v1, s.deps.Reports, s.deps.Cache, s.deps.AcademicSvc)
	registerAuditAPI(v1, s.deps.AuditRepo)
	registerJobAPI(v1, s.deps.Queue, s.deps.AcademicSvc, s.deps.Clock, conf.UploadsDir)
}

// Start blocks until the server stops; a failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Wrap(s.app.Shutdown(ctx), "shutting down server")
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
