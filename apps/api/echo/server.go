package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/college/core"
	"github.com/trezcool/college/core/fee"
	"github.com/trezcool/college/core/notice"
	"github.com/trezcool/college/core/stats"
	"github.com/trezcool/college/core/user"
)

type (
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		Translator ut.Translator
		Files      core.FileStorage

		UserSvc   *user.Service
		FeeSvc    *fee.Service
		NoticeSvc *notice.Service
		StatsSvc  *stats.Service
	}

	Server struct {
		opts     *Options
		app      *echo.Echo
		sessions *sessions
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		sessions: newSessions(opts.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit("10M"))

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.POST("/login", s.login)
	s.app.GET("/logout", s.logout)
	s.app.GET("/setup-admin", s.setupAdmin)

	if conf.Uploads.Backend == core.UploadsLocal {
		s.app.Static(conf.Uploads.BaseURL, conf.Uploads.Dir)
	}

	session := s.sessions.middleware()

	admin := s.app.Group("/admin", session, roleMiddleware(user.RoleAdmin))
	admin.GET("/dashboard", s.adminDashboard)
	admin.GET("/add-student", s.addStudentForm)
	admin.POST("/add-student", s.addStudent)
	admin.GET("/manage-students", s.manageStudents)
	admin.GET("/edit-student/:id", s.editStudentForm)
	admin.POST("/update-student/:id", s.updateStudent)
	admin.GET("/manage-fees", s.manageFees)
	admin.POST("/record-payment", s.recordPayment)
	admin.GET("/student-payments/:id", s.studentPayments)
	admin.POST("/add-fee-structure", s.addFeeStructure)
	admin.POST("/update-fee-structure/:id", s.updateFeeStructure)
	admin.GET("/upload-notices", s.uploadNoticesPage)
	admin.POST("/upload-notice", s.uploadNotice)

	student := s.app.Group("/student", session, roleMiddleware(user.RoleStudent))
	student.GET("/dashboard", s.studentDashboard)
}

// Start blocks serving requests; a listener failure is sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the running process to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
