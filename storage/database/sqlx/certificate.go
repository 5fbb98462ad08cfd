package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
)

const certTypeColumns = `id, code, name, hours, category, is_active, created_at, updated_at`

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) certificate.Repository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) CreateCertificateType(ctx context.Context, t certificate.Type) (certificate.Type, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO certificate_types (code, name, hours, category, is_active, created_at, updated_at)
		VALUES (:code, :name, :hours, :category, :is_active, :created_at, :updated_at)`, t)
	if err != nil {
		return certificate.Type{}, errors.Wrap(err, "inserting certificate type")
	}
	t.ID = id
	return t, nil
}

func (repo *certificateRepository) GetCertificateType(ctx context.Context, id int64) (certificate.Type, error) {
	var t certificate.Type
	if err := repo.db.get(ctx, &t, `SELECT `+certTypeColumns+` FROM certificate_types WHERE id = ?`, id); err != nil {
		return certificate.Type{}, trapNoRowsErr(err, certificate.ErrNotFound, "finding certificate type")
	}
	return t, nil
}

func (repo *certificateRepository) GetCertificateTypeByCode(ctx context.Context, code string) (certificate.Type, error) {
	var t certificate.Type
	if err := repo.db.get(ctx, &t, `SELECT `+certTypeColumns+` FROM certificate_types WHERE code = ?`, code); err != nil {
		return certificate.Type{}, trapNoRowsErr(err, certificate.ErrNotFound, "finding certificate type")
	}
	return t, nil
}

func (repo *certificateRepository) QueryCertificateTypes(ctx context.Context, filter certificate.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]certificate.Type, int, error) {
	w := &where{}
	w.search(filter.Search, "name", "code")
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	var types []certificate.Type
	total, err := repo.db.queryPage(ctx, &types, certTypeColumns, "FROM certificate_types", w, core.OrderClause(ordering, "name ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying certificate types")
	}
	return types, total, nil
}

func (repo *certificateRepository) QueryCertificateCategories(ctx context.Context) ([]string, error) {
	cats := []string{}
	err := repo.db.selectAll(ctx, &cats, `SELECT DISTINCT category FROM certificate_types ORDER BY category`)
	return cats, errors.Wrap(err, "querying certificate categories")
}

func (repo *certificateRepository) UpdateCertificateType(ctx context.Context, t certificate.Type) (certificate.Type, error) {
	n, err := repo.db.execute(ctx, `UPDATE certificate_types SET code = ?, name = ?, hours = ?, category = ?, is_active = ?,
		updated_at = ? WHERE id = ?`, t.Code, t.Name, t.Hours, t.Category, t.IsActive, t.UpdatedAt, t.ID)
	if err != nil {
		return certificate.Type{}, errors.Wrap(err, "updating certificate type")
	}
	if n == 0 {
		return certificate.Type{}, certificate.ErrNotFound
	}
	return t, nil
}

func (repo *certificateRepository) DeleteCertificateType(ctx context.Context, id int64) error {
	n, err := repo.db.execute(ctx, `DELETE FROM certificate_types WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return certificate.ErrInUse
	}
	if err != nil {
		return errors.Wrap(err, "deleting certificate type")
	}
	if n == 0 {
		return certificate.ErrNotFound
	}
	return nil
}
