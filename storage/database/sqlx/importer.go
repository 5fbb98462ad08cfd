package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
)

type importRepository struct {
	db *DB
}

var _ importer.Repository = (*importRepository)(nil) // interface compliance check

func NewImportRepository(db *DB) importer.Repository {
	return &importRepository{db: db}
}

// upsert runs a named INSERT ... ON CONFLICT DO UPDATE and reports whether the row is new.
func (repo *importRepository) upsert(ctx context.Context, query string, arg interface{}) (bool, error) {
	rows, err := repo.db.namedQuery(ctx, query+" RETURNING (xmax = 0)", arg)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	var inserted bool
	if rows.Next() {
		if err = rows.Scan(&inserted); err != nil {
			return false, err
		}
	}
	return inserted, rows.Err()
}

func (repo *importRepository) UpsertLinkHour(ctx context.Context, h importer.LinkHour) (bool, error) {
	inserted, err := repo.upsert(ctx, `INSERT INTO link_hours
		(academic_year_id, student_code, name, hours, uploaded_by, created_at, updated_at)
		VALUES (:academic_year_id, :student_code, :name, :hours, :uploaded_by, :created_at, :updated_at)
		ON CONFLICT (academic_year_id, student_code) DO UPDATE SET name = EXCLUDED.name, hours = EXCLUDED.hours,
		uploaded_by = EXCLUDED.uploaded_by, updated_at = EXCLUDED.updated_at`, h)
	return inserted, errors.Wrap(err, "upserting link hours")
}

func (repo *importRepository) UpsertApplicant(ctx context.Context, a importer.Applicant) (bool, error) {
	inserted, err := repo.upsert(ctx, `INSERT INTO scholarship_applicants
		(academic_year_id, student_code, name, scholarship_name, uploaded_by, created_at, updated_at)
		VALUES (:academic_year_id, :student_code, :name, :scholarship_name, :uploaded_by, :created_at, :updated_at)
		ON CONFLICT (academic_year_id, student_code) DO UPDATE SET name = EXCLUDED.name,
		scholarship_name = EXCLUDED.scholarship_name, uploaded_by = EXCLUDED.uploaded_by, updated_at = EXCLUDED.updated_at`, a)
	return inserted, errors.Wrap(err, "upserting scholarship applicant")
}

func importWhere(filter importer.QueryFilter) *where {
	w := &where{}
	if filter.AcademicYearID != 0 {
		w.add("academic_year_id = ?", filter.AcademicYearID)
	}
	w.search(filter.Search, "student_code", "name")
	return w
}

func (repo *importRepository) QueryLinkHours(ctx context.Context, filter importer.QueryFilter, page core.Page) ([]importer.LinkHour, int, error) {
	var hours []importer.LinkHour
	total, err := repo.db.queryPage(ctx, &hours,
		"id, academic_year_id, student_code, name, hours, uploaded_by, created_at, updated_at",
		"FROM link_hours", importWhere(filter), "student_code, academic_year_id", page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying link hours")
	}
	return hours, total, nil
}

func (repo *importRepository) QueryApplicants(ctx context.Context, filter importer.QueryFilter, page core.Page) ([]importer.Applicant, int, error) {
	var apps []importer.Applicant
	total, err := repo.db.queryPage(ctx, &apps,
		"id, academic_year_id, student_code, name, scholarship_name, uploaded_by, created_at, updated_at",
		"FROM scholarship_applicants", importWhere(filter), "student_code, academic_year_id", page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying scholarship applicants")
	}
	return apps, total, nil
}
