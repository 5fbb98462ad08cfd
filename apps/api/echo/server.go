package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Conf           *core.Config
		Logger         core.Logger
		Translator     ut.Translator
		// Registerer receives the HTTP metrics. Metrics are off when nil.
		Registerer prometheus.Registerer

		UserSvc        *user.Service
		AcademicSvc    *academic.Service
		CertificateSvc *certificate.Service
		SubmissionSvc  *submission.Service
		ProjectSvc     *project.Service
		PostSvc        *post.Service
		ImportSvc      *importer.Service
		StatsSvc       *stats.Service
	}

	Server struct {
		opts     Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
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
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.FrontendBaseURL != "" {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: []string{conf.FrontendBaseURL},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	if conf.Media.MaxUploadSize > 0 {
		s.app.Use(middleware.BodyLimit(bodyLimit(conf.Media.MaxUploadSize)))
	}
	if s.opts.Registerer != nil {
		s.app.Use(newMetrics(s.opts.Registerer, "efiling").middleware())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	if prefix := mediaPrefix(conf.Media.BaseURL); prefix != "" {
		s.app.Static(prefix, conf.Media.Root)
	}

	api := s.app.Group("/api")
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(jwtConfig(conf)),
		activeUserMiddleware(s.opts.UserSvc),
	}
	admin := adminMiddleware(s.opts.UserSvc)

	registerUserAPI(api, authed, admin, s.opts.UserSvc, conf)
	registerAcademicAPI(api, authed, admin, s.opts.AcademicSvc)
	registerCertificateAPI(api, authed, admin, s.opts.CertificateSvc)
	registerSubmissionAPI(api, authed, admin, s.opts.SubmissionSvc, s.opts.UserSvc)
	registerProjectAPI(api, authed, s.opts.ProjectSvc, s.opts.UserSvc)
	registerPostAPI(api, authed, admin, s.opts.PostSvc, s.opts.UserSvc)
	registerLinkAPI(api, authed, admin, s.opts.ImportSvc, s.opts.UserSvc)
	registerStatsAPI(api, authed, admin, s.opts.StatsSvc)
}

// bodyLimit caps a request at the largest project upload plus 1M of form fields, in echo's size notation.
func bodyLimit(maxUploadSize int64) string {
	return strconv.FormatInt((maxUploadSize*project.MaxFiles)>>10+1024, 10) + "K"
}

// mediaPrefix returns the path under which uploads are served, if they are served by the API.
func mediaPrefix(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		return "/" + p
	}
	return ""
}

func (s *Server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors reports the listener failures.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives interrupts and shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
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

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the volunteer hours e-filing API!")
}
