package submission

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

const maxFilesPerSubmission = 10

var ErrNotFound = core.NewNotFoundError("submission")

type (
	Repository interface {
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		// GetSubmission returns the submission with its status logs (oldest first) and files.
		GetSubmission(ctx context.Context, id int64) (Submission, error)
		QuerySubmissions(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Submission, int, error)
		// UpdateSubmission saves Status, Hours & UpdatedAt when s.Version is current, then bumps the version.
		// Returns core.ErrStaleVersion otherwise.
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
		AddStatusLog(ctx context.Context, log StatusLog) (StatusLog, error)
		AddSubmissionFiles(ctx context.Context, files []File) ([]File, error)
		DeleteSubmission(ctx context.Context, id int64) error
		CountSubmissions(ctx context.Context, filter QueryFilter) (int, error)
	}

	Service struct {
		tx            core.Transactor
		repo          Repository
		years         *academic.Service
		certs         *certificate.Service
		users         *user.Service
		files         core.FileStorage
		mail          core.EmailService
		validate      *validator.Validate
		maxUploadSize int64
	}
)

func NewService(
	tx core.Transactor,
	repo Repository,
	years *academic.Service,
	certs *certificate.Service,
	users *user.Service,
	files core.FileStorage,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(years, "years"),
		vala.IsNotNil(certs, "certs"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{
		tx:            tx,
		repo:          repo,
		years:         years,
		certs:         certs,
		users:         users,
		files:         files,
		mail:          mailSvc,
		validate:      validate,
		maxUploadSize: conf.Media.MaxUploadSize,
	}
}

func canAccess(actor user.User, s Submission) bool {
	return actor.IsAdmin() || actor.ID == s.UserID
}

func (svc *Service) Create(ctx context.Context, actor user.User, ns NewSubmission) (Submission, error) {
	ns.Description = core.CleanString(ns.Description)
	if err := svc.validate.Struct(ns); err != nil {
		return Submission{}, err
	}

	var err error
	if actor.IsAdmin() {
		_, err = svc.years.EnsureExists(ctx, ns.AcademicYearID)
	} else {
		_, err = svc.years.EnsureOpen(ctx, ns.AcademicYearID)
	}
	if err != nil {
		return Submission{}, err
	}

	s := Submission{
		UserID:         actor.ID,
		Type:           ns.Type,
		AcademicYearID: ns.AcademicYearID,
		Description:    ns.Description,
		HoursRequested: ns.HoursRequested,
		Status:         StatusPending,
		Version:        1,
	}
	if ns.Type == TypeCertificate {
		if ns.CertificateTypeID == 0 {
			return Submission{}, core.NewFieldError("certificate_type_id", "certificate type is required for certificate submissions")
		}
		ct, err := svc.certs.GetActive(ctx, ns.CertificateTypeID)
		if err != nil {
			return Submission{}, err
		}
		s.CertificateTypeID = null.Int64From(ct.ID)
		s.HoursRequested = ct.Hours
	} else {
		if ns.CertificateTypeID != 0 {
			return Submission{}, core.NewFieldError("certificate_type_id", "only certificate submissions reference a certificate type")
		}
		if ns.HoursRequested <= 0 {
			return Submission{}, core.NewFieldError("hours_requested", "requested hours must be greater than 0")
		}
	}

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		now := core.NowFunc()
		s.CreatedAt, s.UpdatedAt = now, now
		created, err := svc.repo.CreateSubmission(ctx, s)
		if err != nil {
			return errors.Wrap(err, "creating submission")
		}
		s = created
		_, err = svc.repo.AddStatusLog(ctx, StatusLog{
			SubmissionID: s.ID,
			Status:       StatusPending,
			ChangedBy:    actor.ID,
			ChangedAt:    now,
		})
		return errors.Wrap(err, "adding status log")
	})
	if err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, s.ID)
}

func (svc *Service) Get(ctx context.Context, actor user.User, id int64) (Submission, error) {
	s, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	if !canAccess(actor, s) {
		return Submission{}, core.ErrForbidden
	}
	return s, nil
}

// Query lists submissions; students only ever see their own.
func (svc *Service) Query(ctx context.Context, actor user.User, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Submission, core.PageInfo, error) {
	if !actor.IsAdmin() {
		filter.UserID = actor.ID
	}
	subs, total, err := svc.repo.QuerySubmissions(ctx, filter, page.Clean(), core.SafeOrderings(ordering, OrderingFields))
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying submissions")
	}
	return subs, core.NewPageInfo(page, total), nil
}

func (svc *Service) CountPending(ctx context.Context) (int, error) {
	return svc.repo.CountSubmissions(ctx, QueryFilter{Status: StatusPending})
}

// AttachFiles stores evidence files on a pending submission.
func (svc *Service) AttachFiles(ctx context.Context, actor user.User, id int64, uploads []core.Upload) (Submission, error) {
	s, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Submission{}, err
	}
	if s.CurrentStatus() != StatusPending {
		return Submission{}, core.NewConflictError(errors.Errorf("files cannot be added to a submission that is %s", s.CurrentStatus()))
	}
	if len(uploads) == 0 {
		return Submission{}, core.NewFieldError("files", "at least one file is required")
	}
	if len(s.Files)+len(uploads) > maxFilesPerSubmission {
		return Submission{}, core.NewFieldError("files", fmt.Sprintf("a submission holds at most %d files", maxFilesPerSubmission))
	}
	accept := func(u core.Upload) bool { return u.IsImage() || u.IsPDF() }
	if err := core.CheckUploads("files", uploads, svc.maxUploadSize, accept, "image or PDF"); err != nil {
		return Submission{}, err
	}

	dir := "submissions/" + strconv.FormatInt(s.ID, 10)
	files := make([]File, 0, len(uploads))
	for _, u := range uploads {
		stored, err := svc.files.Save(ctx, dir, u)
		if err != nil {
			svc.discard(ctx, files)
			return Submission{}, errors.Wrap(err, "storing file")
		}
		files = append(files, File{
			SubmissionID: s.ID,
			Filename:     stored.Filename,
			Path:         stored.Path,
			URL:          stored.URL,
			ContentType:  stored.ContentType,
			Size:         stored.Size,
			CreatedAt:    core.NowFunc(),
		})
	}
	if _, err := svc.repo.AddSubmissionFiles(ctx, files); err != nil {
		svc.discard(ctx, files)
		return Submission{}, errors.Wrap(err, "saving submission files")
	}
	return svc.repo.GetSubmission(ctx, s.ID)
}

func (svc *Service) discard(ctx context.Context, files []File) {
	for _, f := range files {
		_ = svc.files.Delete(ctx, f.Path)
	}
}

// review applies a decision on s. Must run inside a transaction.
func (svc *Service) review(ctx context.Context, actor user.User, s Submission, r Review) (Submission, error) {
	to, err := Next(s.CurrentStatus(), r.Action)
	if err != nil {
		return Submission{}, err
	}
	reason := cleanReason(r.Reason)

	switch to {
	case StatusApproved:
		hours := s.HoursRequested
		if r.Hours > 0 {
			if s.Type == TypeCertificate && r.Hours != s.HoursRequested {
				return Submission{}, core.NewFieldError("hours", "hours of certificate submissions are fixed by the certificate catalog")
			}
			hours = r.Hours
		}
		s.Hours = null.IntFrom(hours)
		reason = null.String{}
	case StatusRejected:
		if !reason.Valid {
			return Submission{}, core.NewFieldError("reason", "a reason is required to reject")
		}
		s.Hours = null.Int{}
	}

	now := core.NowFunc()
	s.Status = to
	s.UpdatedAt = now
	updated, err := svc.repo.UpdateSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}
	log, err := svc.repo.AddStatusLog(ctx, StatusLog{
		SubmissionID: s.ID,
		Status:       to,
		Reason:       reason,
		ChangedBy:    actor.ID,
		ChangedAt:    now,
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "adding status log")
	}
	updated.StatusLogs = append(s.StatusLogs, log)
	updated.Files = s.Files
	return updated, nil
}

// Review approves or rejects one pending submission.
func (svc *Service) Review(ctx context.Context, actor user.User, id int64, r Review) (Submission, error) {
	if !actor.IsAdmin() {
		return Submission{}, core.ErrForbidden
	}
	if err := svc.validate.Struct(r); err != nil {
		return Submission{}, err
	}

	var reviewed Submission
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		s, err := svc.repo.GetSubmission(ctx, id)
		if err != nil {
			return err
		}
		if r.Version != 0 && r.Version != s.Version {
			return core.ErrStaleVersion
		}
		reviewed, err = svc.review(ctx, actor, s, r)
		return err
	})
	if err != nil {
		return Submission{}, err
	}
	svc.notify(ctx, reviewed)
	return reviewed, nil
}

// BatchReview approves or rejects several pending certificate submissions at once. All or nothing.
func (svc *Service) BatchReview(ctx context.Context, actor user.User, br BatchReview) ([]Submission, error) {
	if !actor.IsAdmin() {
		return nil, core.ErrForbidden
	}
	if err := svc.validate.Struct(br); err != nil {
		return nil, err
	}
	if br.Action == ActionReject && !cleanReason(br.Reason).Valid {
		return nil, core.NewFieldError("reason", "a reason is required to reject")
	}

	ids := core.UniqueIDs(br.IDs)
	reviewed := make([]Submission, 0, len(ids))
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var missing, notCertificate []string
		subs := make([]Submission, 0, len(ids))
		for _, id := range ids {
			s, err := svc.repo.GetSubmission(ctx, id)
			if err != nil {
				if core.IsNotFound(err) {
					missing = append(missing, strconv.FormatInt(id, 10))
					continue
				}
				return err
			}
			if s.Type != TypeCertificate {
				notCertificate = append(notCertificate, strconv.FormatInt(id, 10))
			}
			subs = append(subs, s)
		}
		if len(missing) > 0 {
			return core.NewFieldError("ids", "unknown submissions: "+strings.Join(missing, ", "))
		}
		if len(notCertificate) > 0 {
			return core.NewFieldError("ids", "batch review only applies to certificate submissions: "+strings.Join(notCertificate, ", "))
		}

		for _, s := range subs {
			done, err := svc.review(ctx, actor, s, Review{Action: br.Action, Reason: br.Reason})
			if err != nil {
				return errors.Wrapf(err, "reviewing submission %d", s.ID)
			}
			reviewed = append(reviewed, done)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.notify(ctx, reviewed...)
	return reviewed, nil
}

// Delete removes a submission: owners while it is pending, admins at any time.
func (svc *Service) Delete(ctx context.Context, actor user.User, id int64) error {
	s, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && s.CurrentStatus() != StatusPending {
		return core.NewConflictError(errors.Errorf("a submission that is %s cannot be deleted", s.CurrentStatus()))
	}
	if err := svc.repo.DeleteSubmission(ctx, s.ID); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	svc.discard(ctx, s.Files)
	return nil
}

func (svc *Service) notify(ctx context.Context, subs ...Submission) {
	if svc.mail == nil || len(subs) == 0 {
		return
	}
	ids := make([]int64, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.UserID)
	}
	owners, err := svc.users.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	byID := make(map[int64]user.User, len(owners))
	for _, o := range owners {
		byID[o.ID] = o
	}

	msgs := make([]*core.EmailMessage, 0, len(subs))
	for _, s := range subs {
		owner, ok := byID[s.UserID]
		if !ok || owner.Email == "" {
			continue
		}
		data := decisionMail{SubmissionID: s.ID, Type: s.Type, Decision: s.CurrentStatus()}
		if s.Hours.Valid {
			data.Hours = s.Hours.Int
		}
		if n := len(s.StatusLogs); n > 0 {
			data.Reason = s.StatusLogs[n-1].Reason.String
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: owner.Name, Address: owner.Email}},
			Subject:      fmt.Sprintf("Submission #%d %s", s.ID, data.Decision),
			TemplateName: "submission_decision",
			TemplateData: data,
		})
	}
	svc.mail.SendMessages(msgs...)
}
