package inmemdb

import (
	"context"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	defer repo.db.lock(ctx)()

	s.ID = repo.db.nextID()
	s.StatusLogs, s.Files = nil, nil
	repo.db.t.submissions[s.ID] = s
	return s, nil
}

// load must be called with the lock held.
func (repo *submissionRepository) load(s submission.Submission) submission.Submission {
	s.StatusLogs = []submission.StatusLog{}
	for _, l := range repo.db.t.submissionLogs {
		if l.SubmissionID == s.ID {
			s.StatusLogs = append(s.StatusLogs, l)
		}
	}
	s.Files = []submission.File{}
	for _, f := range repo.db.t.submissionFile {
		if f.SubmissionID == s.ID {
			s.Files = append(s.Files, f)
		}
	}
	return s
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id int64) (submission.Submission, error) {
	defer repo.db.lock(ctx)()

	s, ok := repo.db.t.submissions[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	return repo.load(s), nil
}

func submissionField(s submission.Submission, field string) interface{} {
	switch field {
	case "id":
		return s.ID
	case "type":
		return string(s.Type)
	case "hours_requested":
		return s.HoursRequested
	case "created_at":
		return s.CreatedAt
	case "updated_at":
		return s.UpdatedAt
	}
	return nil
}

func (repo *submissionRepository) filter(filter submission.QueryFilter) []submission.Submission {
	subs := make([]submission.Submission, 0)
	for _, s := range repo.db.t.submissions {
		if filter.UserID != 0 && s.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.AcademicYearID != 0 && s.AcademicYearID != filter.AcademicYearID {
			continue
		}
		subs = append(subs, s)
	}
	return subs
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]submission.Submission, int, error) {
	defer repo.db.lock(ctx)()

	subs := repo.filter(filter)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	order(subs, ordering, submissionField, func(s submission.Submission) int64 { return s.ID })
	subs = paginate(subs, page)
	for i := range subs {
		subs[i] = repo.load(subs[i])
	}
	return subs, len(repo.filter(filter)), nil
}

func (repo *submissionRepository) CountSubmissions(ctx context.Context, filter submission.QueryFilter) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.filter(filter)), nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.t.submissions[s.ID]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	if orig.Version != s.Version {
		return submission.Submission{}, core.ErrStaleVersion
	}
	orig.Status = s.Status
	orig.Hours = s.Hours
	orig.UpdatedAt = s.UpdatedAt
	orig.Version++
	repo.db.t.submissions[s.ID] = orig
	return orig, nil
}

func (repo *submissionRepository) AddStatusLog(ctx context.Context, log submission.StatusLog) (submission.StatusLog, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.submissions[log.SubmissionID]; !ok {
		return submission.StatusLog{}, submission.ErrNotFound
	}
	log.ID = repo.db.nextID()
	repo.db.t.submissionLogs = append(repo.db.t.submissionLogs, log)
	return log, nil
}

func (repo *submissionRepository) AddSubmissionFiles(ctx context.Context, files []submission.File) ([]submission.File, error) {
	defer repo.db.lock(ctx)()

	out := make([]submission.File, 0, len(files))
	for _, f := range files {
		f.ID = repo.db.nextID()
		repo.db.t.submissionFile = append(repo.db.t.submissionFile, f)
		out = append(out, f)
	}
	return out, nil
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.submissions[id]; !ok {
		return submission.ErrNotFound
	}
	delete(repo.db.t.submissions, id)
	logs := repo.db.t.submissionLogs[:0]
	for _, l := range repo.db.t.submissionLogs {
		if l.SubmissionID != id {
			logs = append(logs, l)
		}
	}
	repo.db.t.submissionLogs = logs
	files := repo.db.t.submissionFile[:0]
	for _, f := range repo.db.t.submissionFile {
		if f.SubmissionID != id {
			files = append(files, f)
		}
	}
	repo.db.t.submissionFile = files
	return nil
}
