package project

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

var (
	ErrNotFound            = core.NewNotFoundError("project")
	ErrParticipantNotFound = core.NewNotFoundError("participant")
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project) (Project, error)
		GetProject(ctx context.Context, id int64) (Project, error)
		QueryProjects(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Project, int, error)
		// UpdateProject saves p when p.Version is current, then bumps the version.
		// Returns core.ErrStaleVersion otherwise.
		UpdateProject(ctx context.Context, p Project) (Project, error)
		DeleteProject(ctx context.Context, id int64) error
		CountProjects(ctx context.Context, filter QueryFilter) (int, error)

		AddProjectStatusLog(ctx context.Context, log StatusLog) (StatusLog, error)
		// QueryProjectStatusLogs returns the history of a project, oldest first.
		QueryProjectStatusLogs(ctx context.Context, projectID int64) ([]StatusLog, error)

		// AddParticipants inserts pending participants, skipping users already in the project.
		// Returns how many were added.
		AddParticipants(ctx context.Context, projectID int64, userIDs []int64, at time.Time) (int, error)
		QueryParticipants(ctx context.Context, projectID int64) ([]Participant, error)
		// UpdateParticipant saves the decision fields when p.Version is current, then bumps the version.
		UpdateParticipant(ctx context.Context, p Participant) (Participant, error)
		// ResetParticipants puts every participant of a project back to pending.
		ResetParticipants(ctx context.Context, projectID int64, at time.Time) error
		DeleteParticipant(ctx context.Context, projectID, userID int64) error

		AddProjectFiles(ctx context.Context, files []File) ([]File, error)
		QueryProjectFiles(ctx context.Context, projectID int64) ([]File, error)
	}

	Service struct {
		tx            core.Transactor
		repo          Repository
		years         *academic.Service
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
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{
		tx:            tx,
		repo:          repo,
		years:         years,
		users:         users,
		files:         files,
		mail:          mailSvc,
		validate:      validate,
		maxUploadSize: conf.Media.MaxUploadSize,
	}
}

func (svc *Service) Create(ctx context.Context, usr user.User, np NewProject) (Detail, error) {
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Detail{}, err
	}
	start, end, err := parsePeriod(np.StartDate, np.EndDate)
	if err != nil {
		return Detail{}, err
	}
	if err := svc.checkYear(ctx, usr, np.AcademicYearID); err != nil {
		return Detail{}, err
	}
	members := core.UniqueIDs(np.ParticipantIDs)
	if err := svc.checkUsers(ctx, members); err != nil {
		return Detail{}, err
	}

	var p Project
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		now := core.NowFunc()
		created, err := svc.repo.CreateProject(ctx, Project{
			Name:           np.Name,
			Type:           np.Type,
			Description:    np.Description,
			Location:       np.Location,
			Province:       np.Province,
			Campus:         np.Campus,
			StartDate:      start,
			EndDate:        end,
			HoursPerPerson: np.HoursPerPerson,
			AcademicYearID: np.AcademicYearID,
			CreatedBy:      usr.ID,
			Status:         StatusDraft,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return errors.Wrap(err, "creating project")
		}
		p = created
		if _, err := svc.repo.AddProjectStatusLog(ctx, StatusLog{
			ProjectID: p.ID,
			Action:    ActionCreate,
			ToStatus:  StatusDraft,
			ChangedBy: usr.ID,
			ChangedAt: now,
		}); err != nil {
			return errors.Wrap(err, "adding status log")
		}
		if len(members) > 0 {
			_, err = svc.repo.AddParticipants(ctx, p.ID, members, now)
			return errors.Wrap(err, "adding participants")
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, usr, p)
}

func (svc *Service) checkYear(ctx context.Context, usr user.User, yearID int64) error {
	var err error
	if usr.IsAdmin() {
		_, err = svc.years.EnsureExists(ctx, yearID)
	} else {
		_, err = svc.years.EnsureOpen(ctx, yearID)
	}
	return err
}

// checkUsers fails with a field error naming the ids that are not known users.
func (svc *Service) checkUsers(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := svc.users.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "loading users")
	}
	known := make(map[int64]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	if len(missing) > 0 {
		return core.NewFieldError("user_ids", "unknown users: "+strings.Join(missing, ", "))
	}
	return nil
}

func parsePeriod(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := parseDate("start_date", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("end_date", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, core.NewFieldError("end_date", "end date must not be before the start date")
	}
	return start, end, nil
}

// load returns the project if usr may see it: admins, its creator and its participants.
func (svc *Service) load(ctx context.Context, usr user.User, id int64) (Project, []Participant, error) {
	p, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, nil, err
	}
	parts, err := svc.repo.QueryParticipants(ctx, p.ID)
	if err != nil {
		return Project{}, nil, errors.Wrap(err, "loading participants")
	}
	if usr.IsAdmin() || isOwner(usr, p) {
		return p, parts, nil
	}
	for _, pt := range parts {
		if pt.UserID == usr.ID {
			return p, parts, nil
		}
	}
	return Project{}, nil, core.ErrForbidden
}

func (svc *Service) detail(ctx context.Context, usr user.User, p Project) (Detail, error) {
	parts, err := svc.repo.QueryParticipants(ctx, p.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "loading participants")
	}
	files, err := svc.repo.QueryProjectFiles(ctx, p.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "loading files")
	}
	return Detail{
		Project:        p,
		Participants:   parts,
		Files:          files,
		AllowedActions: AllowedActions(usr, p),
	}, nil
}

func (svc *Service) Get(ctx context.Context, usr user.User, id int64) (Detail, error) {
	p, _, err := svc.load(ctx, usr, id)
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, usr, p)
}

// Query lists projects; students see the ones they created or joined.
func (svc *Service) Query(ctx context.Context, usr user.User, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Project, core.PageInfo, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.VisibleTo = 0
	if !usr.IsAdmin() {
		filter.VisibleTo = usr.ID
	}
	projects, total, err := svc.repo.QueryProjects(ctx, filter, page.Clean(), core.SafeOrderings(ordering, OrderingFields))
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying projects")
	}
	return projects, core.NewPageInfo(page, total), nil
}

func (svc *Service) CountSubmitted(ctx context.Context) (int, error) {
	return svc.repo.CountProjects(ctx, QueryFilter{Status: StatusSubmitted})
}

func (svc *Service) History(ctx context.Context, usr user.User, id int64) ([]StatusLog, error) {
	p, _, err := svc.load(ctx, usr, id)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryProjectStatusLogs(ctx, p.ID)
}

func (svc *Service) Update(ctx context.Context, usr user.User, id int64, up UpdateProject) (Detail, error) {
	if err := svc.validate.Struct(up); err != nil {
		return Detail{}, err
	}

	var p Project
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if p, _, err = svc.load(ctx, usr, id); err != nil {
			return err
		}
		if !editable(usr, p) {
			if !usr.IsAdmin() && !isOwner(usr, p) {
				return core.ErrForbidden
			}
			return core.NewConflictError(errors.Errorf("a project that is %s cannot be edited", p.Status))
		}
		if up.Version != 0 && up.Version != p.Version {
			return core.ErrStaleVersion
		}
		if err := svc.apply(ctx, usr, &p, up); err != nil {
			return err
		}
		p.UpdatedAt = core.NowFunc()
		p, err = svc.repo.UpdateProject(ctx, p)
		return err
	})
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, usr, p)
}

func (svc *Service) apply(ctx context.Context, usr user.User, p *Project, up UpdateProject) error {
	if name := core.CleanString(up.Name); name != "" {
		p.Name = name
	}
	if up.Type != "" {
		p.Type = up.Type
	}
	if up.Description != nil {
		p.Description = core.CleanString(*up.Description)
	}
	if up.Location != nil {
		p.Location = core.CleanString(*up.Location)
	}
	if up.Province != nil {
		p.Province = core.CleanString(*up.Province)
	}
	if up.Campus != nil {
		p.Campus = core.CleanString(*up.Campus)
	}
	startDate, endDate := p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout)
	if up.StartDate != "" {
		startDate = up.StartDate
	}
	if up.EndDate != "" {
		endDate = up.EndDate
	}
	start, end, err := parsePeriod(startDate, endDate)
	if err != nil {
		return err
	}
	p.StartDate, p.EndDate = start, end
	if up.AcademicYearID != 0 && up.AcademicYearID != p.AcademicYearID {
		if err := svc.checkYear(ctx, usr, up.AcademicYearID); err != nil {
			return err
		}
		p.AcademicYearID = up.AcademicYearID
	}
	return nil
}

// Delete removes a project that has not been approved.
func (svc *Service) Delete(ctx context.Context, usr user.User, id int64) error {
	p, _, err := svc.load(ctx, usr, id)
	if err != nil {
		return err
	}
	if !usr.IsAdmin() && !isOwner(usr, p) {
		return core.ErrForbidden
	}
	if p.Status == StatusApproved {
		return core.NewConflictError(errors.New("an approved project cannot be deleted"))
	}
	files, err := svc.repo.QueryProjectFiles(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "loading files")
	}
	if err := svc.repo.DeleteProject(ctx, p.ID); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	svc.discard(ctx, files)
	return nil
}

func (svc *Service) Submit(ctx context.Context, usr user.User, id int64, in ActionInput) (Detail, error) {
	return svc.Transition(ctx, usr, id, ActionSubmit, in)
}

func (svc *Service) Approve(ctx context.Context, usr user.User, id int64, in ActionInput) (Detail, error) {
	return svc.Transition(ctx, usr, id, ActionApprove, in)
}

// Open approves a draft directly.
func (svc *Service) Open(ctx context.Context, usr user.User, id int64, in ActionInput) (Detail, error) {
	return svc.Transition(ctx, usr, id, ActionOpen, in)
}

func (svc *Service) Reject(ctx context.Context, usr user.User, id int64, in ActionInput) (Detail, error) {
	return svc.Transition(ctx, usr, id, ActionReject, in)
}

// Transition applies a lifecycle action. Reaching approved resets every participant to pending.
func (svc *Service) Transition(ctx context.Context, usr user.User, id int64, a Action, in ActionInput) (Detail, error) {
	if err := svc.validate.Struct(in); err != nil {
		return Detail{}, err
	}
	reason := cleanReason(in.Reason)
	if a == ActionReject && !reason.Valid {
		return Detail{}, core.NewFieldError("reason", "a reason is required to reject")
	}

	var p Project
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if p, _, err = svc.load(ctx, usr, id); err != nil {
			return err
		}
		from := p.Status
		to, err := Next(usr, p, a)
		if err != nil {
			return err
		}
		if in.Version != 0 && in.Version != p.Version {
			return core.ErrStaleVersion
		}

		now := core.NowFunc()
		p.Status = to
		p.UpdatedAt = now
		if a == ActionReject {
			p.RejectionReason = reason
		} else {
			p.RejectionReason = null.String{}
		}
		if p, err = svc.repo.UpdateProject(ctx, p); err != nil {
			return err
		}
		if to == StatusApproved {
			if err := svc.repo.ResetParticipants(ctx, p.ID, now); err != nil {
				return errors.Wrap(err, "resetting participants")
			}
		}
		log := StatusLog{
			ProjectID:  p.ID,
			Action:     a,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  usr.ID,
			ChangedAt:  now,
		}
		if a == ActionReject {
			log.Reason = reason
		}
		_, err = svc.repo.AddProjectStatusLog(ctx, log)
		return errors.Wrap(err, "adding status log")
	})
	if err != nil {
		return Detail{}, err
	}
	if a != ActionSubmit {
		svc.notifyOwner(ctx, p)
	}
	return svc.detail(ctx, usr, p)
}

// AddParticipants adds users to a project as pending participants.
func (svc *Service) AddParticipants(ctx context.Context, usr user.User, id int64, in ParticipantsInput) (Detail, error) {
	if err := svc.validate.Struct(in); err != nil {
		return Detail{}, err
	}
	ids := core.UniqueIDs(in.UserIDs)
	if len(ids) == 0 {
		return Detail{}, core.NewFieldError("user_ids", "select at least one user")
	}

	var p Project
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if p, _, err = svc.load(ctx, usr, id); err != nil {
			return err
		}
		if !manageable(usr, p) {
			return core.ErrForbidden
		}
		if err := svc.checkUsers(ctx, ids); err != nil {
			return err
		}
		_, err = svc.repo.AddParticipants(ctx, p.ID, ids, core.NowFunc())
		return errors.Wrap(err, "adding participants")
	})
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, usr, p)
}

// RemoveParticipant drops a participant who has not been approved.
func (svc *Service) RemoveParticipant(ctx context.Context, usr user.User, id, userID int64) (Detail, error) {
	var p Project
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var (
			parts []Participant
			err   error
		)
		if p, parts, err = svc.load(ctx, usr, id); err != nil {
			return err
		}
		if !manageable(usr, p) {
			return core.ErrForbidden
		}
		for _, pt := range parts {
			if pt.UserID != userID {
				continue
			}
			if pt.Status == ParticipantApproved {
				return core.NewConflictError(errors.New("an approved participant must be reverted before removal"))
			}
			return svc.repo.DeleteParticipant(ctx, p.ID, userID)
		}
		return ErrParticipantNotFound
	})
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, usr, p)
}

func (svc *Service) ApproveParticipants(ctx context.Context, usr user.User, id int64, in ParticipantsInput) (Detail, error) {
	return svc.ReviewParticipants(ctx, usr, id, ParticipantApprove, in)
}

func (svc *Service) RejectParticipants(ctx context.Context, usr user.User, id int64, in ParticipantsInput) (Detail, error) {
	return svc.ReviewParticipants(ctx, usr, id, ParticipantReject, in)
}

func (svc *Service) RevertParticipants(ctx context.Context, usr user.User, id int64, in ParticipantsInput) (Detail, error) {
	return svc.ReviewParticipants(ctx, usr, id, ParticipantRevert, in)
}

func (svc *Service) ReapproveParticipants(ctx context.Context, usr user.User, id int64, in ParticipantsInput) (Detail, error) {
	return svc.ReviewParticipants(ctx, usr, id, ParticipantReapprove, in)
}

// ReviewParticipants applies one decision to the selected participants of an approved project.
// Either every selected participant changes or none does.
func (svc *Service) ReviewParticipants(ctx context.Context, usr user.User, id int64, a ParticipantAction, in ParticipantsInput) (Detail, error) {
	if !usr.IsAdmin() {
		return Detail{}, core.ErrForbidden
	}
	if err := svc.validate.Struct(in); err != nil {
		return Detail{}, err
	}
	if _, ok := participantTransitions[a]; !ok {
		return Detail{}, core.NewFieldError("action", fmt.Sprintf("unknown action %q", a))
	}
	ids := core.UniqueIDs(in.UserIDs)
	if len(ids) == 0 {
		return Detail{}, core.NewFieldError("user_ids", "select at least one participant")
	}
	reason := cleanReason(in.Reason)
	if a == ParticipantReject && !reason.Valid {
		return Detail{}, core.NewFieldError("reason", "a reason is required to reject")
	}

	var (
		p       Project
		changed []Participant
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var (
			parts []Participant
			err   error
		)
		if p, parts, err = svc.load(ctx, usr, id); err != nil {
			return err
		}
		if in.Version != 0 && in.Version != p.Version {
			return core.ErrStaleVersion
		}
		if p.Status != StatusApproved {
			return core.NewConflictError(errors.Errorf("participants of a project that is %s cannot be reviewed", p.Status))
		}

		byUser := make(map[int64]Participant, len(parts))
		for _, pt := range parts {
			byUser[pt.UserID] = pt
		}
		var missing []string
		for _, uid := range ids {
			if _, ok := byUser[uid]; !ok {
				missing = append(missing, strconv.FormatInt(uid, 10))
			}
		}
		if len(missing) > 0 {
			return core.NewFieldError("user_ids", "not participants of this project: "+strings.Join(missing, ", "))
		}

		now := core.NowFunc()
		for _, uid := range ids {
			pt := byUser[uid]
			to, err := NextParticipant(pt.Status, a)
			if err != nil {
				return errors.Wrapf(err, "participant %d", uid)
			}
			if to == pt.Status && to == ParticipantApproved {
				continue
			}
			switch to {
			case ParticipantApproved:
				pt.HoursReceived = null.IntFrom(p.HoursPerPerson)
				pt.ApprovedAt = null.TimeFrom(now)
				pt.RejectionReason = null.String{}
			case ParticipantRejected:
				pt.HoursReceived = null.Int{}
				pt.ApprovedAt = null.Time{}
				pt.RejectionReason = reason
			case ParticipantPending:
				pt.HoursReceived = null.Int{}
				pt.ApprovedAt = null.Time{}
				pt.RejectionReason = null.String{}
			}
			pt.Status = to
			pt.UpdatedAt = now
			updated, err := svc.repo.UpdateParticipant(ctx, pt)
			if err != nil {
				return errors.Wrapf(err, "updating participant %d", uid)
			}
			changed = append(changed, updated)
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}
	if a == ParticipantApprove || a == ParticipantReject || a == ParticipantReapprove {
		svc.notifyParticipants(ctx, p, changed)
	}
	return svc.detail(ctx, usr, p)
}

// checkUpload returns an error when usr cannot add these documents to p.
func (svc *Service) checkUpload(ctx context.Context, usr user.User, p Project, photos, certificates []core.Upload) error {
	if !usr.IsAdmin() && !isOwner(usr, p) {
		return core.ErrForbidden
	}
	if !uploadable(usr, p) {
		return core.NewConflictError(errors.Errorf("files cannot be added to a project that is %s", p.Status))
	}
	existing, err := svc.repo.QueryProjectFiles(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "loading files")
	}
	return CheckDocuments(existing, photos, certificates)
}

// UploadFiles stores photos and certificates of a project that is not yet approved.
// The document rules are checked again, and the project version bumped, in the transaction
// that records the files.
func (svc *Service) UploadFiles(ctx context.Context, usr user.User, id int64, photos, certificates []core.Upload) (Detail, error) {
	p, _, err := svc.load(ctx, usr, id)
	if err != nil {
		return Detail{}, err
	}
	if err := svc.checkUpload(ctx, usr, p, photos, certificates); err != nil {
		return Detail{}, err
	}
	if err := core.CheckUploads("photos", photos, svc.maxUploadSize, core.Upload.IsImage, "image"); err != nil {
		return Detail{}, err
	}
	accept := func(u core.Upload) bool { return u.IsImage() || u.IsPDF() }
	if err := core.CheckUploads("certificates", certificates, svc.maxUploadSize, accept, "image or PDF"); err != nil {
		return Detail{}, err
	}

	dir := "projects/" + strconv.FormatInt(p.ID, 10)
	files := make([]File, 0, len(photos)+len(certificates))
	store := func(kind FileKind, uploads []core.Upload) error {
		for _, u := range uploads {
			stored, err := svc.files.Save(ctx, dir, u)
			if err != nil {
				return errors.Wrap(err, "storing file")
			}
			files = append(files, File{
				ProjectID:   p.ID,
				Kind:        kind,
				Filename:    stored.Filename,
				Path:        stored.Path,
				URL:         stored.URL,
				ContentType: stored.ContentType,
				Size:        stored.Size,
				UploadedBy:  usr.ID,
				CreatedAt:   core.NowFunc(),
			})
		}
		return nil
	}
	if err := store(FilePhoto, photos); err != nil {
		svc.discard(ctx, files)
		return Detail{}, err
	}
	if err := store(FileCertificate, certificates); err != nil {
		svc.discard(ctx, files)
		return Detail{}, err
	}

	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		cur, err := svc.repo.GetProject(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := svc.checkUpload(ctx, usr, cur, photos, certificates); err != nil {
			return err
		}
		cur.UpdatedAt = core.NowFunc()
		if p, err = svc.repo.UpdateProject(ctx, cur); err != nil {
			return err
		}
		_, err = svc.repo.AddProjectFiles(ctx, files)
		return errors.Wrap(err, "saving project files")
	})
	if err != nil {
		svc.discard(ctx, files)
		return Detail{}, err
	}
	return svc.detail(ctx, usr, p)
}

func (svc *Service) discard(ctx context.Context, files []File) {
	for _, f := range files {
		_ = svc.files.Delete(ctx, f.Path)
	}
}

func (svc *Service) notifyOwner(ctx context.Context, p Project) {
	if svc.mail == nil {
		return
	}
	owner, err := svc.users.GetByID(ctx, p.CreatedBy)
	if err != nil || owner.Email == "" {
		return
	}
	data := decisionMail{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Decision:    string(p.Status),
		Hours:       p.HoursPerPerson,
		Reason:      p.RejectionReason.String,
	}
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject:      fmt.Sprintf("Project %q %s", p.Name, p.Status),
		TemplateName: "project_decision",
		TemplateData: data,
	})
}

func (svc *Service) notifyParticipants(ctx context.Context, p Project, parts []Participant) {
	if svc.mail == nil || len(parts) == 0 {
		return
	}
	ids := make([]int64, 0, len(parts))
	for _, pt := range parts {
		ids = append(ids, pt.UserID)
	}
	users, err := svc.users.GetByIDs(ctx, ids)
	if err != nil {
		return
	}
	byID := make(map[int64]user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	msgs := make([]*core.EmailMessage, 0, len(parts))
	for _, pt := range parts {
		u, ok := byID[pt.UserID]
		if !ok || u.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: u.Name, Address: u.Email}},
			Subject:      fmt.Sprintf("Your participation in %q was %s", p.Name, pt.Status),
			TemplateName: "participant_decision",
			TemplateData: decisionMail{
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Decision:    string(pt.Status),
				Hours:       int(pt.HoursReceived.Int),
				Reason:      pt.RejectionReason.String,
			},
		})
	}
	svc.mail.SendMessages(msgs...)
}
