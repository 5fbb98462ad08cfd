package inmemdb

import (
	"context"

	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) stats.Repository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) StudentHours(ctx context.Context, yearID int64) ([]stats.Row, error) {
	defer repo.db.lock(ctx)()

	inYear := func(id int64) bool { return yearID == 0 || id == yearID }
	rows := make(map[int64]*stats.Row)
	byCode := make(map[string]*stats.Row)
	for _, u := range repo.db.t.users {
		if u.Role != user.RoleStudent {
			continue
		}
		r := &stats.Row{UserID: u.ID, Name: u.Name, StudentCode: u.StudentCode, Faculty: u.Faculty, Major: u.Major}
		rows[u.ID] = r
		if u.StudentCode.Valid {
			byCode[u.StudentCode.String] = r
		}
	}

	for _, s := range repo.db.t.submissions {
		if r, ok := rows[s.UserID]; ok && s.Status == submission.StatusApproved && inYear(s.AcademicYearID) {
			r.SubmissionHours += s.Hours.Int
		}
	}
	for k, pt := range repo.db.t.participants {
		p, ok := repo.db.t.projects[k.projectID]
		if !ok || !inYear(p.AcademicYearID) || pt.Status != project.ParticipantApproved {
			continue
		}
		if r, ok := rows[k.userID]; ok {
			r.ProjectHours += pt.HoursReceived.Int
		}
	}
	for k, h := range repo.db.t.linkHours {
		if r, ok := byCode[k.studentCode]; ok && inYear(k.yearID) {
			r.LinkHours += h.Hours
		}
	}
	for k := range repo.db.t.applicants {
		if r, ok := byCode[k.studentCode]; ok && inYear(k.yearID) {
			r.IsApplicant = true
		}
	}

	out := make([]stats.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}
