package inmemdb

import (
	"context"
	"sort"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
)

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) certificate.Repository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) CreateCertificateType(ctx context.Context, t certificate.Type) (certificate.Type, error) {
	defer repo.db.lock(ctx)()

	t.ID = repo.db.nextID()
	repo.db.t.certTypes[t.ID] = t
	return t, nil
}

func (repo *certificateRepository) GetCertificateType(ctx context.Context, id int64) (certificate.Type, error) {
	defer repo.db.lock(ctx)()

	if t, ok := repo.db.t.certTypes[id]; ok {
		return t, nil
	}
	return certificate.Type{}, certificate.ErrNotFound
}

func (repo *certificateRepository) GetCertificateTypeByCode(ctx context.Context, code string) (certificate.Type, error) {
	defer repo.db.lock(ctx)()

	for _, t := range repo.db.t.certTypes {
		if t.Code == code {
			return t, nil
		}
	}
	return certificate.Type{}, certificate.ErrNotFound
}

func certTypeField(t certificate.Type, field string) interface{} {
	switch field {
	case "code":
		return t.Code
	case "name":
		return t.Name
	case "hours":
		return t.Hours
	case "category":
		return t.Category
	case "created_at":
		return t.CreatedAt
	}
	return nil
}

func (repo *certificateRepository) QueryCertificateTypes(ctx context.Context, filter certificate.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]certificate.Type, int, error) {
	defer repo.db.lock(ctx)()

	types := make([]certificate.Type, 0, len(repo.db.t.certTypes))
	for _, t := range repo.db.t.certTypes {
		if filter.Search != "" && !contains(t.Name, filter.Search) && !contains(t.Code, filter.Search) {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.IsActive != nil && t.IsActive != *filter.IsActive {
			continue
		}
		types = append(types, t)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	order(types, ordering, certTypeField, func(t certificate.Type) int64 { return t.ID })
	return paginate(types, page), len(types), nil
}

func (repo *certificateRepository) QueryCertificateCategories(ctx context.Context) ([]string, error) {
	defer repo.db.lock(ctx)()

	seen := make(map[string]bool)
	cats := []string{}
	for _, t := range repo.db.t.certTypes {
		if !seen[t.Category] {
			seen[t.Category] = true
			cats = append(cats, t.Category)
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func (repo *certificateRepository) UpdateCertificateType(ctx context.Context, t certificate.Type) (certificate.Type, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.certTypes[t.ID]; !ok {
		return certificate.Type{}, certificate.ErrNotFound
	}
	repo.db.t.certTypes[t.ID] = t
	return t, nil
}

func (repo *certificateRepository) DeleteCertificateType(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.certTypes[id]; !ok {
		return certificate.ErrNotFound
	}
	for _, s := range repo.db.t.submissions {
		if s.CertificateTypeID.Valid && s.CertificateTypeID.Int64 == id {
			return certificate.ErrInUse
		}
	}
	delete(repo.db.t.certTypes, id)
	return nil
}
