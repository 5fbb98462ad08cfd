package inmemdb

import (
	"context"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateAcademicYear(ctx context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	defer repo.db.lock(ctx)()

	y.ID = repo.db.nextID()
	repo.db.t.years[y.ID] = y
	return y, nil
}

func (repo *academicRepository) GetAcademicYear(ctx context.Context, id int64) (academic.AcademicYear, error) {
	defer repo.db.lock(ctx)()

	if y, ok := repo.db.t.years[id]; ok {
		return y, nil
	}
	return academic.AcademicYear{}, academic.ErrNotFound
}

func (repo *academicRepository) GetAcademicYearByYear(ctx context.Context, year int) (academic.AcademicYear, error) {
	defer repo.db.lock(ctx)()

	for _, y := range repo.db.t.years {
		if y.Year == year {
			return y, nil
		}
	}
	return academic.AcademicYear{}, academic.ErrNotFound
}

func yearField(y academic.AcademicYear, field string) interface{} {
	switch field {
	case "year":
		return y.Year
	case "start_date":
		return y.StartDate
	case "end_date":
		return y.EndDate
	case "created_at":
		return y.CreatedAt
	}
	return nil
}

func (repo *academicRepository) QueryAcademicYears(ctx context.Context, filter academic.QueryFilter, ordering []core.DBOrdering) ([]academic.AcademicYear, error) {
	defer repo.db.lock(ctx)()

	years := make([]academic.AcademicYear, 0, len(repo.db.t.years))
	for _, y := range repo.db.t.years {
		if filter.Status != "" && y.Status != filter.Status {
			continue
		}
		if filter.Year != 0 && y.Year != filter.Year {
			continue
		}
		years = append(years, y)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "year"}}
	}
	order(years, ordering, yearField, func(y academic.AcademicYear) int64 { return y.ID })
	return years, nil
}

func (repo *academicRepository) UpdateAcademicYear(ctx context.Context, y academic.AcademicYear) (academic.AcademicYear, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.years[y.ID]; !ok {
		return academic.AcademicYear{}, academic.ErrNotFound
	}
	repo.db.t.years[y.ID] = y
	return y, nil
}

func (repo *academicRepository) DeleteAcademicYear(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.years[id]; !ok {
		return academic.ErrNotFound
	}
	for _, s := range repo.db.t.submissions {
		if s.AcademicYearID == id {
			return academic.ErrInUse
		}
	}
	for _, p := range repo.db.t.projects {
		if p.AcademicYearID == id {
			return academic.ErrInUse
		}
	}
	delete(repo.db.t.years, id)
	for k := range repo.db.t.linkHours {
		if k.yearID == id {
			delete(repo.db.t.linkHours, k)
		}
	}
	for k := range repo.db.t.applicants {
		if k.yearID == id {
			delete(repo.db.t.applicants, k)
		}
	}
	return nil
}
