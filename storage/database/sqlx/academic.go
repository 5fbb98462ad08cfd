package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
)

const yearColumns = `id, year, name, start_date, end_date, status, created_at, updated_at`

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateAcademicYear(ctx context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO academic_years (year, name, start_date, end_date, status, created_at, updated_at)
		VALUES (:year, :name, :start_date, :end_date, :status, :created_at, :updated_at)`, y)
	if err != nil {
		return academic.AcademicYear{}, errors.Wrap(err, "inserting academic year")
	}
	y.ID = id
	return y, nil
}

func (repo *academicRepository) GetAcademicYear(ctx context.Context, id int64) (academic.AcademicYear, error) {
	var y academic.AcademicYear
	if err := repo.db.get(ctx, &y, `SELECT `+yearColumns+` FROM academic_years WHERE id = ?`, id); err != nil {
		return academic.AcademicYear{}, trapNoRowsErr(err, academic.ErrNotFound, "finding academic year")
	}
	return y, nil
}

func (repo *academicRepository) GetAcademicYearByYear(ctx context.Context, year int) (academic.AcademicYear, error) {
	var y academic.AcademicYear
	if err := repo.db.get(ctx, &y, `SELECT `+yearColumns+` FROM academic_years WHERE year = ?`, year); err != nil {
		return academic.AcademicYear{}, trapNoRowsErr(err, academic.ErrNotFound, "finding academic year")
	}
	return y, nil
}

func (repo *academicRepository) QueryAcademicYears(ctx context.Context, filter academic.QueryFilter, ordering []core.DBOrdering) ([]academic.AcademicYear, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}
	if filter.Year != 0 {
		w.add("year = ?", filter.Year)
	}
	var years []academic.AcademicYear
	q := `SELECT ` + yearColumns + ` FROM academic_years` + w.String() + ` ORDER BY ` + core.OrderClause(ordering, "year DESC")
	if err := repo.db.selectAll(ctx, &years, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying academic years")
	}
	return years, nil
}

func (repo *academicRepository) UpdateAcademicYear(ctx context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	n, err := repo.db.execute(ctx, `UPDATE academic_years SET name = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
		WHERE id = ?`, y.Name, y.StartDate, y.EndDate, y.Status, y.UpdatedAt, y.ID)
	if err != nil {
		return academic.AcademicYear{}, errors.Wrap(err, "updating academic year")
	}
	if n == 0 {
		return academic.AcademicYear{}, academic.ErrNotFound
	}
	return y, nil
}

func (repo *academicRepository) DeleteAcademicYear(ctx context.Context, id int64) error {
	n, err := repo.db.execute(ctx, `DELETE FROM academic_years WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return academic.ErrInUse
	}
	if err != nil {
		return errors.Wrap(err, "deleting academic year")
	}
	if n == 0 {
		return academic.ErrNotFound
	}
	return nil
}
