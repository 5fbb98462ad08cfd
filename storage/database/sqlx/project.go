package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
)

const (
	projectColumns = `id, name, type, description, location, province, campus, start_date, end_date, hours_per_person,
	academic_year_id, created_by, status, rejection_reason, version, created_at, updated_at`

	participantSelect = `SELECT pp.project_id, pp.user_id, u.name AS user_name, u.student_code, pp.status,
	pp.hours_received, pp.approved_at, pp.rejection_reason, pp.version, pp.created_at, pp.updated_at
	FROM project_participants pp JOIN users u ON u.id = pp.user_id`
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO projects
		(name, type, description, location, province, campus, start_date, end_date, hours_per_person, academic_year_id,
		created_by, status, rejection_reason, version, created_at, updated_at)
		VALUES (:name, :type, :description, :location, :province, :campus, :start_date, :end_date, :hours_per_person,
		:academic_year_id, :created_by, :status, :rejection_reason, :version, :created_at, :updated_at)`, p)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}
	p.ID = id
	return p, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id int64) (project.Project, error) {
	var p project.Project
	if err := repo.db.get(ctx, &p, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id); err != nil {
		return project.Project{}, trapNoRowsErr(err, project.ErrNotFound, "finding project")
	}
	return p, nil
}

func projectWhere(filter project.QueryFilter) *where {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}
	if filter.AcademicYearID != 0 {
		w.add("academic_year_id = ?", filter.AcademicYearID)
	}
	if filter.CreatedBy != 0 {
		w.add("created_by = ?", filter.CreatedBy)
	}
	w.search(filter.Search, "name", "location")
	if filter.VisibleTo != 0 {
		w.add(`(created_by = ? OR EXISTS (SELECT 1 FROM project_participants pp
			WHERE pp.project_id = projects.id AND pp.user_id = ?))`, filter.VisibleTo, filter.VisibleTo)
	}
	return w
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter project.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]project.Project, int, error) {
	var projects []project.Project
	total, err := repo.db.queryPage(ctx, &projects, projectColumns, "FROM projects", projectWhere(filter),
		core.OrderClause(ordering, "created_at ASC, id ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying projects")
	}
	return projects, total, nil
}

func (repo *projectRepository) CountProjects(ctx context.Context, filter project.QueryFilter) (int, error) {
	w := projectWhere(filter)
	var n int
	err := repo.db.get(ctx, &n, `SELECT COUNT(*) FROM projects`+w.String(), w.args...)
	return n, errors.Wrap(err, "counting projects")
}

func (repo *projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	n, err := repo.db.execute(ctx, `UPDATE projects SET name = ?, type = ?, description = ?, location = ?, province = ?,
		campus = ?, start_date = ?, end_date = ?, academic_year_id = ?, status = ?, rejection_reason = ?, updated_at = ?,
		version = version + 1 WHERE id = ? AND version = ?`,
		p.Name, p.Type, p.Description, p.Location, p.Province, p.Campus, p.StartDate, p.EndDate, p.AcademicYearID,
		p.Status, p.RejectionReason, p.UpdatedAt, p.ID, p.Version)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "updating project")
	}
	if n == 0 {
		return project.Project{}, repo.db.staleOrMissing(ctx, "projects", project.ErrNotFound, "id = ?", p.ID)
	}
	return repo.GetProject(ctx, p.ID)
}

func (repo *projectRepository) DeleteProject(ctx context.Context, id int64) error {
	n, err := repo.db.execute(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting project")
	}
	if n == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (repo *projectRepository) AddProjectStatusLog(ctx context.Context, log project.StatusLog) (project.StatusLog, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO project_status_logs (project_id, action, from_status, to_status, reason, changed_by, changed_at)
		VALUES (:project_id, :action, :from_status, :to_status, :reason, :changed_by, :changed_at)`, log)
	if isForeignKeyViolation(err) {
		return project.StatusLog{}, project.ErrNotFound
	}
	if err != nil {
		return project.StatusLog{}, errors.Wrap(err, "inserting project status log")
	}
	log.ID = id
	return log, nil
}

func (repo *projectRepository) QueryProjectStatusLogs(ctx context.Context, projectID int64) ([]project.StatusLog, error) {
	logs := []project.StatusLog{}
	err := repo.db.selectAll(ctx, &logs, `SELECT id, project_id, action, from_status, to_status, reason, changed_by, changed_at
		FROM project_status_logs WHERE project_id = ? ORDER BY changed_at, id`, projectID)
	return logs, errors.Wrap(err, "selecting project status logs")
}

func (repo *projectRepository) AddParticipants(ctx context.Context, projectID int64, userIDs []int64, at time.Time) (int, error) {
	n, err := repo.db.execute(ctx, `INSERT INTO project_participants (project_id, user_id, status, version, created_at, updated_at)
		SELECT ?, u.id, ?, 1, ?, ? FROM users u WHERE u.id = ANY(?)
		ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, project.ParticipantPending, at, at, pq.Array(userIDs))
	if isForeignKeyViolation(err) {
		return 0, project.ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "inserting participants")
	}
	return int(n), nil
}

func (repo *projectRepository) QueryParticipants(ctx context.Context, projectID int64) ([]project.Participant, error) {
	parts := []project.Participant{}
	err := repo.db.selectAll(ctx, &parts, participantSelect+` WHERE pp.project_id = ? ORDER BY u.name, pp.user_id`, projectID)
	return parts, errors.Wrap(err, "selecting participants")
}

func (repo *projectRepository) UpdateParticipant(ctx context.Context, pt project.Participant) (project.Participant, error) {
	n, err := repo.db.execute(ctx, `UPDATE project_participants SET status = ?, hours_received = ?, approved_at = ?,
		rejection_reason = ?, updated_at = ?, version = version + 1
		WHERE project_id = ? AND user_id = ? AND version = ?`,
		pt.Status, pt.HoursReceived, pt.ApprovedAt, pt.RejectionReason, pt.UpdatedAt, pt.ProjectID, pt.UserID, pt.Version)
	if err != nil {
		return project.Participant{}, errors.Wrap(err, "updating participant")
	}
	if n == 0 {
		return project.Participant{}, repo.db.staleOrMissing(ctx, "project_participants", project.ErrParticipantNotFound,
			"project_id = ? AND user_id = ?", pt.ProjectID, pt.UserID)
	}

	var out project.Participant
	err = repo.db.get(ctx, &out, participantSelect+` WHERE pp.project_id = ? AND pp.user_id = ?`, pt.ProjectID, pt.UserID)
	return out, errors.Wrap(err, "reloading participant")
}

func (repo *projectRepository) ResetParticipants(ctx context.Context, projectID int64, at time.Time) error {
	_, err := repo.db.execute(ctx, `UPDATE project_participants SET status = ?, hours_received = NULL, approved_at = NULL,
		rejection_reason = NULL, updated_at = ?, version = version + 1 WHERE project_id = ?`,
		project.ParticipantPending, at, projectID)
	return errors.Wrap(err, "resetting participants")
}

func (repo *projectRepository) DeleteParticipant(ctx context.Context, projectID, userID int64) error {
	n, err := repo.db.execute(ctx, `DELETE FROM project_participants WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return errors.Wrap(err, "deleting participant")
	}
	if n == 0 {
		return project.ErrParticipantNotFound
	}
	return nil
}

func (repo *projectRepository) AddProjectFiles(ctx context.Context, files []project.File) ([]project.File, error) {
	out := make([]project.File, 0, len(files))
	for _, f := range files {
		id, err := repo.db.insert(ctx, `INSERT INTO project_files
			(project_id, kind, filename, path, url, content_type, size, uploaded_by, created_at)
			VALUES (:project_id, :kind, :filename, :path, :url, :content_type, :size, :uploaded_by, :created_at)`, f)
		if err != nil {
			return nil, errors.Wrap(err, "inserting project file")
		}
		f.ID = id
		out = append(out, f)
	}
	return out, nil
}

func (repo *projectRepository) QueryProjectFiles(ctx context.Context, projectID int64) ([]project.File, error) {
	files := []project.File{}
	err := repo.db.selectAll(ctx, &files, `SELECT id, project_id, kind, filename, path, url, content_type, size, uploaded_by, created_at
		FROM project_files WHERE project_id = ? ORDER BY id`, projectID)
	return files, errors.Wrap(err, "selecting project files")
}
