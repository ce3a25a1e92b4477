package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/core/progress"
	"github.com/reelbingo/promo/core/proof"
	"github.com/reelbingo/promo/core/support"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		ParticipantSvc participant.Service
		ProgressSvc    progress.Service
		ProofSvc       proof.Service
		SupportSvc     *support.Service
		MailSvc        core.EmailService
		Validate       *validator.Validate
		Translator     ut.Translator
		MediaDir       string // served under /media when proofs are kept on local disk
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.jwt, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	if s.deps.MediaDir != "" {
		s.app.Static("/media", s.deps.MediaDir)
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwt)

	registerParticipantAPI(v1, jwt, s.deps, s.jwt)
	registerSubmissionAPI(v1, jwt, s.deps, s.jwt)
	registerProgressAPI(v1, jwt, s.deps, s.jwt)
	registerSupportAPI(v1, s.deps)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown asks the owner of the server to shut it down gracefully.
func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Reel Bingo API!")
}
