package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
)

const submissionColumns = `id, user_id, type, academic_year_id, certificate_type_id, description, hours_requested,
	hours, status, version, created_at, updated_at`

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO submissions
		(user_id, type, academic_year_id, certificate_type_id, description, hours_requested, hours, status, version, created_at, updated_at)
		VALUES (:user_id, :type, :academic_year_id, :certificate_type_id, :description, :hours_requested, :hours, :status,
		:version, :created_at, :updated_at)`, s)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	s.ID = id
	s.StatusLogs, s.Files = nil, nil
	return s, nil
}

// load fills the status logs and files of subs.
func (repo *submissionRepository) load(ctx context.Context, subs []submission.Submission) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]int64, len(subs))
	idx := make(map[int64]int, len(subs))
	for i := range subs {
		ids[i] = subs[i].ID
		idx[subs[i].ID] = i
		subs[i].StatusLogs = []submission.StatusLog{}
		subs[i].Files = []submission.File{}
	}

	var logs []submission.StatusLog
	err := repo.db.selectAll(ctx, &logs, `SELECT id, submission_id, status, reason, changed_by, changed_at
		FROM submission_status_logs WHERE submission_id = ANY(?) ORDER BY changed_at, id`, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "selecting submission status logs")
	}
	for _, l := range logs {
		i := idx[l.SubmissionID]
		subs[i].StatusLogs = append(subs[i].StatusLogs, l)
	}

	var files []submission.File
	err = repo.db.selectAll(ctx, &files, `SELECT id, submission_id, filename, path, url, content_type, size, created_at
		FROM submission_files WHERE submission_id = ANY(?) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "selecting submission files")
	}
	for _, f := range files {
		i := idx[f.SubmissionID]
		subs[i].Files = append(subs[i].Files, f)
	}
	return nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id int64) (submission.Submission, error) {
	var s submission.Submission
	if err := repo.db.get(ctx, &s, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "finding submission")
	}
	subs := []submission.Submission{s}
	if err := repo.load(ctx, subs); err != nil {
		return submission.Submission{}, err
	}
	return subs[0], nil
}

func submissionWhere(filter submission.QueryFilter) *where {
	w := &where{}
	if filter.UserID != 0 {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.AcademicYearID != 0 {
		w.add("academic_year_id = ?", filter.AcademicYearID)
	}
	return w
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]submission.Submission, int, error) {
	var subs []submission.Submission
	total, err := repo.db.queryPage(ctx, &subs, submissionColumns, "FROM submissions", submissionWhere(filter),
		core.OrderClause(ordering, "created_at ASC, id ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying submissions")
	}
	if err = repo.load(ctx, subs); err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (repo *submissionRepository) CountSubmissions(ctx context.Context, filter submission.QueryFilter) (int, error) {
	w := submissionWhere(filter)
	var n int
	err := repo.db.get(ctx, &n, `SELECT COUNT(*) FROM submissions`+w.String(), w.args...)
	return n, errors.Wrap(err, "counting submissions")
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	n, err := repo.db.execute(ctx, `UPDATE submissions SET status = ?, hours = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`, s.Status, s.Hours, s.UpdatedAt, s.ID, s.Version)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n == 0 {
		return submission.Submission{}, repo.db.staleOrMissing(ctx, "submissions", submission.ErrNotFound, "id = ?", s.ID)
	}
	return repo.GetSubmission(ctx, s.ID)
}

func (repo *submissionRepository) AddStatusLog(ctx context.Context, log submission.StatusLog) (submission.StatusLog, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO submission_status_logs (submission_id, status, reason, changed_by, changed_at)
		VALUES (:submission_id, :status, :reason, :changed_by, :changed_at)`, log)
	if isForeignKeyViolation(err) {
		return submission.StatusLog{}, submission.ErrNotFound
	}
	if err != nil {
		return submission.StatusLog{}, errors.Wrap(err, "inserting submission status log")
	}
	log.ID = id
	return log, nil
}

func (repo *submissionRepository) AddSubmissionFiles(ctx context.Context, files []submission.File) ([]submission.File, error) {
	out := make([]submission.File, 0, len(files))
	for _, f := range files {
		id, err := repo.db.insert(ctx, `INSERT INTO submission_files (submission_id, filename, path, url, content_type, size, created_at)
			VALUES (:submission_id, :filename, :path, :url, :content_type, :size, :created_at)`, f)
		if err != nil {
			return nil, errors.Wrap(err, "inserting submission file")
		}
		f.ID = id
		out = append(out, f)
	}
	return out, nil
}

func (repo *submissionRepository) DeleteSubmission(ctx context.Context, id int64) error {
	n, err := repo.db.execute(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	if n == 0 {
		return submission.ErrNotFound
	}
	return nil
}
