package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
)

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) stats.Repository {
	return &statsRepository{db: db}
}

// A yearID of 0 sums every academic year.
const studentHoursQuery = `
SELECT u.id AS user_id, u.name, u.student_code, u.faculty, u.major,
	COALESCE((SELECT SUM(s.hours) FROM submissions s
		WHERE s.user_id = u.id AND s.status = 'approved' AND (?::bigint = 0 OR s.academic_year_id = ?)), 0) AS submission_hours,
	COALESCE((SELECT SUM(pp.hours_received) FROM project_participants pp JOIN projects p ON p.id = pp.project_id
		WHERE pp.user_id = u.id AND pp.status = 'approved' AND (?::bigint = 0 OR p.academic_year_id = ?)), 0) AS project_hours,
	COALESCE((SELECT SUM(lh.hours) FROM link_hours lh
		WHERE lh.student_code = u.student_code AND (?::bigint = 0 OR lh.academic_year_id = ?)), 0) AS link_hours,
	EXISTS (SELECT 1 FROM scholarship_applicants sa
		WHERE sa.student_code = u.student_code AND (?::bigint = 0 OR sa.academic_year_id = ?)) AS is_applicant
FROM users u
WHERE u.role = 'student'`

func (repo *statsRepository) StudentHours(ctx context.Context, yearID int64) ([]stats.Row, error) {
	rows := []stats.Row{}
	args := make([]interface{}, 0, 8)
	for i := 0; i < 8; i++ {
		args = append(args, yearID)
	}
	err := repo.db.selectAll(ctx, &rows, studentHoursQuery, args...)
	return rows, errors.Wrap(err, "aggregating student hours")
}
