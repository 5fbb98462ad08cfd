package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	defer repo.db.lock(ctx)()

	p.ID = repo.db.nextID()
	repo.db.t.projects[p.ID] = p
	return p, nil
}

func (repo *projectRepository) GetProject(ctx context.Context, id int64) (project.Project, error) {
	defer repo.db.lock(ctx)()

	if p, ok := repo.db.t.projects[id]; ok {
		return p, nil
	}
	return project.Project{}, project.ErrNotFound
}

func projectField(p project.Project, field string) interface{} {
	switch field {
	case "id":
		return p.ID
	case "name":
		return p.Name
	case "status":
		return string(p.Status)
	case "start_date":
		return p.StartDate
	case "end_date":
		return p.EndDate
	case "created_at":
		return p.CreatedAt
	case "updated_at":
		return p.UpdatedAt
	}
	return nil
}

func (repo *projectRepository) joined(projectID, userID int64) bool {
	_, ok := repo.db.t.participants[memberKey{projectID, userID}]
	return ok
}

func (repo *projectRepository) filter(filter project.QueryFilter) []project.Project {
	projects := make([]project.Project, 0)
	for _, p := range repo.db.t.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.AcademicYearID != 0 && p.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.CreatedBy != 0 && p.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Search != "" && !contains(p.Name, filter.Search) && !contains(p.Location, filter.Search) {
			continue
		}
		if filter.VisibleTo != 0 && p.CreatedBy != filter.VisibleTo && !repo.joined(p.ID, filter.VisibleTo) {
			continue
		}
		projects = append(projects, p)
	}
	return projects
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter project.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]project.Project, int, error) {
	defer repo.db.lock(ctx)()

	projects := repo.filter(filter)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	order(projects, ordering, projectField, func(p project.Project) int64 { return p.ID })
	return paginate(projects, page), len(projects), nil
}

func (repo *projectRepository) CountProjects(ctx context.Context, filter project.QueryFilter) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.filter(filter)), nil
}

func (repo *projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.t.projects[p.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	if orig.Version != p.Version {
		return project.Project{}, core.ErrStaleVersion
	}
	p.CreatedBy, p.CreatedAt, p.HoursPerPerson = orig.CreatedBy, orig.CreatedAt, orig.HoursPerPerson
	p.Version++
	repo.db.t.projects[p.ID] = p
	return p, nil
}

func (repo *projectRepository) DeleteProject(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.projects[id]; !ok {
		return project.ErrNotFound
	}
	delete(repo.db.t.projects, id)
	for k := range repo.db.t.participants {
		if k.projectID == id {
			delete(repo.db.t.participants, k)
		}
	}
	files := repo.db.t.projectFiles[:0]
	for _, f := range repo.db.t.projectFiles {
		if f.ProjectID != id {
			files = append(files, f)
		}
	}
	repo.db.t.projectFiles = files
	logs := repo.db.t.projectLogs[:0]
	for _, l := range repo.db.t.projectLogs {
		if l.ProjectID != id {
			logs = append(logs, l)
		}
	}
	repo.db.t.projectLogs = logs
	return nil
}

func (repo *projectRepository) AddProjectStatusLog(ctx context.Context, log project.StatusLog) (project.StatusLog, error) {
	defer repo.db.lock(ctx)()

	log.ID = repo.db.nextID()
	repo.db.t.projectLogs = append(repo.db.t.projectLogs, log)
	return log, nil
}

func (repo *projectRepository) QueryProjectStatusLogs(ctx context.Context, projectID int64) ([]project.StatusLog, error) {
	defer repo.db.lock(ctx)()

	logs := []project.StatusLog{}
	for _, l := range repo.db.t.projectLogs {
		if l.ProjectID == projectID {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (repo *projectRepository) AddParticipants(ctx context.Context, projectID int64, userIDs []int64, at time.Time) (int, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.projects[projectID]; !ok {
		return 0, project.ErrNotFound
	}
	added := 0
	for _, uid := range userIDs {
		k := memberKey{projectID, uid}
		if _, ok := repo.db.t.participants[k]; ok {
			continue
		}
		if _, ok := repo.db.t.users[uid]; !ok {
			continue
		}
		repo.db.t.participants[k] = project.Participant{
			ProjectID: projectID,
			UserID:    uid,
			Status:    project.ParticipantPending,
			Version:   1,
			CreatedAt: at,
			UpdatedAt: at,
		}
		added++
	}
	return added, nil
}

// withUser fills the user columns of pt. Must be called with the lock held.
func (repo *projectRepository) withUser(pt project.Participant) project.Participant {
	if u, ok := repo.db.t.users[pt.UserID]; ok {
		pt.Name, pt.StudentCode = u.Name, u.StudentCode
	}
	return pt
}

func (repo *projectRepository) QueryParticipants(ctx context.Context, projectID int64) ([]project.Participant, error) {
	defer repo.db.lock(ctx)()

	parts := []project.Participant{}
	for k, pt := range repo.db.t.participants {
		if k.projectID == projectID {
			parts = append(parts, repo.withUser(pt))
		}
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Name != parts[j].Name {
			return parts[i].Name < parts[j].Name
		}
		return parts[i].UserID < parts[j].UserID
	})
	return parts, nil
}

func (repo *projectRepository) UpdateParticipant(ctx context.Context, pt project.Participant) (project.Participant, error) {
	defer repo.db.lock(ctx)()

	k := memberKey{pt.ProjectID, pt.UserID}
	orig, ok := repo.db.t.participants[k]
	if !ok {
		return project.Participant{}, project.ErrParticipantNotFound
	}
	if orig.Version != pt.Version {
		return project.Participant{}, core.ErrStaleVersion
	}
	orig.Status = pt.Status
	orig.HoursReceived = pt.HoursReceived
	orig.ApprovedAt = pt.ApprovedAt
	orig.RejectionReason = pt.RejectionReason
	orig.UpdatedAt = pt.UpdatedAt
	orig.Version++
	repo.db.t.participants[k] = orig
	return repo.withUser(orig), nil
}

func (repo *projectRepository) ResetParticipants(ctx context.Context, projectID int64, at time.Time) error {
	defer repo.db.lock(ctx)()

	for k, pt := range repo.db.t.participants {
		if k.projectID != projectID {
			continue
		}
		pt.Status = project.ParticipantPending
		pt.HoursReceived = null.Int{}
		pt.ApprovedAt = null.Time{}
		pt.RejectionReason = null.String{}
		pt.UpdatedAt = at
		pt.Version++
		repo.db.t.participants[k] = pt
	}
	return nil
}

func (repo *projectRepository) DeleteParticipant(ctx context.Context, projectID, userID int64) error {
	defer repo.db.lock(ctx)()

	k := memberKey{projectID, userID}
	if _, ok := repo.db.t.participants[k]; !ok {
		return project.ErrParticipantNotFound
	}
	delete(repo.db.t.participants, k)
	return nil
}

func (repo *projectRepository) AddProjectFiles(ctx context.Context, files []project.File) ([]project.File, error) {
	defer repo.db.lock(ctx)()

	out := make([]project.File, 0, len(files))
	for _, f := range files {
		f.ID = repo.db.nextID()
		repo.db.t.projectFiles = append(repo.db.t.projectFiles, f)
		out = append(out, f)
	}
	return out, nil
}

func (repo *projectRepository) QueryProjectFiles(ctx context.Context, projectID int64) ([]project.File, error) {
	defer repo.db.lock(ctx)()

	files := []project.File{}
	for _, f := range repo.db.t.projectFiles {
		if f.ProjectID == projectID {
			files = append(files, f)
		}
	}
	return files, nil
}
