// Package schedulersvc runs the periodic jobs of the API.
package schedulersvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type (
	PendingCounter interface {
		CountPending(ctx context.Context) (int, error)
	}

	SubmittedCounter interface {
		CountSubmitted(ctx context.Context) (int, error)
	}

	AdminLister interface {
		Admins(ctx context.Context) ([]user.User, error)
	}

	// Scheduler emails the review queue digest to every active admin.
	Scheduler struct {
		cron        *cron.Cron
		spec        string
		submissions PendingCounter
		projects    SubmittedCounter
		users       AdminLister
		mail        core.EmailService
		logger      core.Logger
	}

	digestData struct {
		PendingSubmissions int
		SubmittedProjects  int
	}
)

const jobTimeout = time.Minute

func New(
	submissions PendingCounter,
	projects SubmittedCounter,
	users AdminLister,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Scheduler {
	vala.BeginValidation().Validate(
		vala.IsNotNil(submissions, "submissions"),
		vala.IsNotNil(projects, "projects"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		spec:        conf.Scheduler.DigestSpec,
		submissions: submissions,
		projects:    projects,
		users:       users,
		mail:        mailSvc,
		logger:      logger,
	}
}

// Start registers the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := s.SendDigest(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("review digest: %v", err), err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "scheduling review digest %q", s.spec)
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SendDigest emails the admins when something waits for review. Returns the number of emails sent.
func (s *Scheduler) SendDigest(ctx context.Context) (int, error) {
	var data digestData
	var err error
	if data.PendingSubmissions, err = s.submissions.CountPending(ctx); err != nil {
		return 0, errors.Wrap(err, "counting pending submissions")
	}
	if data.SubmittedProjects, err = s.projects.CountSubmitted(ctx); err != nil {
		return 0, errors.Wrap(err, "counting submitted projects")
	}
	if data.PendingSubmissions == 0 && data.SubmittedProjects == 0 {
		return 0, nil
	}

	admins, err := s.users.Admins(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing admins")
	}
	msgs := make([]*core.EmailMessage, 0, len(admins))
	for _, adm := range admins {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: adm.Name, Address: adm.Email}},
			Subject:      "Items waiting for review",
			TemplateName: "review_digest",
			TemplateData: data,
		})
	}
	if len(msgs) > 0 {
		s.mail.SendMessages(msgs...)
	}
	return len(msgs), nil
}
