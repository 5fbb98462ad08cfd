package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	echoapi "github.com/mamamind47/sfa-efilling-sub001/apps/api/echo"
	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
	emailsvc "github.com/mamamind47/sfa-efilling-sub001/services/email"
	logsvc "github.com/mamamind47/sfa-efilling-sub001/services/logger"
	schedulersvc "github.com/mamamind47/sfa-efilling-sub001/services/scheduler"
	storagesvc "github.com/mamamind47/sfa-efilling-sub001/services/storage"
	"github.com/mamamind47/sfa-efilling-sub001/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams gathers everything the HTTP server needs.
type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Translator ut.Translator

	UserSvc        *user.Service
	AcademicSvc    *academic.Service
	CertificateSvc *certificate.Service
	SubmissionSvc  *submission.Service
	ProjectSvc     *project.Service
	PostSvc        *post.Service
	ImportSvc      *importer.Service
	StatsSvc       *stats.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) *database.Store {
	setUp := func() (*database.Store, error) {
		if conf.Database.Engine != database.EngineMemory {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}
		}
		store, err := database.NewStore(conf)
		if err != nil {
			return nil, err
		}
		if db := store.DB(); db != nil {
			if err = database.Migrate(db); err != nil {
				return nil, err
			}
		}
		return store, nil
	}

	store, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return store
}

// repositories exposes the repositories of the store to the service constructors.
func repositories(s *database.Store) (
	core.Transactor,
	user.Repository,
	academic.Repository,
	certificate.Repository,
	submission.Repository,
	project.Repository,
	post.Repository,
	importer.Repository,
	stats.Repository,
) {
	return s.Tx, s.Users, s.Years, s.Certificates, s.Submissions, s.Projects, s.Posts, s.Imports, s.Stats
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger, conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newFileStorage(conf *core.Config, logger core.Logger) core.FileStorage {
	return storagesvc.NewLocalStorage(logger, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newScheduler(
	submissions *submission.Service,
	projects *project.Service,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *schedulersvc.Scheduler {
	return schedulersvc.New(submissions, projects, users, mailSvc, logger, conf)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Address:        p.Conf.Server.Host,
		DisableReqLogs: p.Conf.TestMode,
		Conf:           p.Conf,
		Logger:         p.Logger,
		Translator:     p.Translator,
		Registerer:     prometheus.DefaultRegisterer,
		UserSvc:        p.UserSvc,
		AcademicSvc:    p.AcademicSvc,
		CertificateSvc: p.CertificateSvc,
		SubmissionSvc:  p.SubmissionSvc,
		ProjectSvc:     p.ProjectSvc,
		PostSvc:        p.PostSvc,
		ImportSvc:      p.ImportSvc,
		StatsSvc:       p.StatsSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(repositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newFileStorage))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(academic.NewService))
	must(c.Provide(certificate.NewService))
	must(c.Provide(submission.NewService))
	must(c.Provide(project.NewService))
	must(c.Provide(post.NewService))
	must(c.Provide(importer.NewService))
	must(c.Provide(stats.NewService))

	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
