package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/settlement"
)

type (
	// ServerDeps carries everything the API needs; all fields are required.
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		SettlementSvc *settlement.Service
		CoachSvc      *coach.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil) // interface compliance check

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")

	registerSettlementAPI(v1, s.deps.SettlementSvc, s.deps.Validate)
	registerCoachAPI(v1, s.deps.CoachSvc, s.deps.Validate, s.deps.Conf)

	// TODO: swagger !!
}

func (s *server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	addr := fmt.Sprintf("%s:%d", s.deps.Conf.Server.Host, s.deps.Conf.Server.Port)
	s.errs <- s.app.Start(addr)
}

// signalShutdown is handed to the error handler so a caught core.shutdown
// error can stop the server gracefully.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to FunnelsEye Back Office API!")
}
