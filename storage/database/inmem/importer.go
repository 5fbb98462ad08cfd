package inmemdb

import (
	"context"
	"sort"

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

func (repo *importRepository) UpsertLinkHour(ctx context.Context, h importer.LinkHour) (bool, error) {
	defer repo.db.lock(ctx)()

	k := yearKey{h.AcademicYearID, h.StudentCode}
	if orig, ok := repo.db.t.linkHours[k]; ok {
		h.ID, h.CreatedAt = orig.ID, orig.CreatedAt
		repo.db.t.linkHours[k] = h
		return false, nil
	}
	h.ID = repo.db.nextID()
	repo.db.t.linkHours[k] = h
	return true, nil
}

func (repo *importRepository) UpsertApplicant(ctx context.Context, a importer.Applicant) (bool, error) {
	defer repo.db.lock(ctx)()

	k := yearKey{a.AcademicYearID, a.StudentCode}
	if orig, ok := repo.db.t.applicants[k]; ok {
		a.ID, a.CreatedAt = orig.ID, orig.CreatedAt
		repo.db.t.applicants[k] = a
		return false, nil
	}
	a.ID = repo.db.nextID()
	repo.db.t.applicants[k] = a
	return true, nil
}

func (repo *importRepository) QueryLinkHours(ctx context.Context, filter importer.QueryFilter, page core.Page) ([]importer.LinkHour, int, error) {
	defer repo.db.lock(ctx)()

	hours := make([]importer.LinkHour, 0, len(repo.db.t.linkHours))
	for _, h := range repo.db.t.linkHours {
		if filter.AcademicYearID != 0 && h.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.Search != "" && !contains(h.StudentCode, filter.Search) && !contains(h.Name, filter.Search) {
			continue
		}
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].StudentCode != hours[j].StudentCode {
			return hours[i].StudentCode < hours[j].StudentCode
		}
		return hours[i].AcademicYearID < hours[j].AcademicYearID
	})
	return paginate(hours, page), len(hours), nil
}

func (repo *importRepository) QueryApplicants(ctx context.Context, filter importer.QueryFilter, page core.Page) ([]importer.Applicant, int, error) {
	defer repo.db.lock(ctx)()

	apps := make([]importer.Applicant, 0, len(repo.db.t.applicants))
	for _, a := range repo.db.t.applicants {
		if filter.AcademicYearID != 0 && a.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.Search != "" && !contains(a.StudentCode, filter.Search) && !contains(a.Name, filter.Search) {
			continue
		}
		apps = append(apps, a)
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].StudentCode != apps[j].StudentCode {
			return apps[i].StudentCode < apps[j].StudentCode
		}
		return apps[i].AcademicYearID < apps[j].AcademicYearID
	})
	return paginate(apps, page), len(apps), nil
}
