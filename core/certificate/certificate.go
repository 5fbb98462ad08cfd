// Package certificate manages the catalog of e-Learning certificate types a student may file.
package certificate

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("certificate type")
	ErrCodeExists = errors.New("a certificate type with this code already exists")
	ErrInUse      = core.NewConflictError(errors.New("certificate type is referenced by submissions"))
)

type Type struct {
	ID        int64     `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Hours     int       `json:"hours" db:"hours"`
	Category  string    `json:"category" db:"category"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NewType struct {
	Code     string `json:"code" validate:"required,max=50"`
	Name     string `json:"name" validate:"required,max=255"`
	Hours    int    `json:"hours" validate:"required,gt=0,lte=100"`
	Category string `json:"category" validate:"required,max=100"`
	IsActive *bool  `json:"is_active"`
}

func (nt *NewType) Clean() {
	nt.Code = core.CleanString(nt.Code)
	nt.Name = core.CleanString(nt.Name)
	nt.Category = core.CleanString(nt.Category)
}

type UpdateType struct {
	Code     string `json:"code" validate:"omitempty,max=50"`
	Name     string `json:"name" validate:"omitempty,max=255"`
	Hours    int    `json:"hours" validate:"omitempty,gt=0,lte=100"`
	Category string `json:"category" validate:"omitempty,max=100"`
	IsActive *bool  `json:"is_active"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	IsActive *bool  `query:"-"` // bound from the is_active query param by the handler
}

var OrderingFields = map[string]string{
	"code":       "code",
	"name":       "name",
	"hours":      "hours",
	"category":   "category",
	"created_at": "created_at",
}

type (
	Repository interface {
		CreateCertificateType(ctx context.Context, t Type) (Type, error)
		GetCertificateType(ctx context.Context, id int64) (Type, error)
		GetCertificateTypeByCode(ctx context.Context, code string) (Type, error)
		QueryCertificateTypes(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Type, int, error)
		QueryCertificateCategories(ctx context.Context) ([]string, error)
		UpdateCertificateType(ctx context.Context, t Type) (Type, error)
		DeleteCertificateType(ctx context.Context, id int64) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkCode(ctx context.Context, code string, excludeID int64) error {
	t, err := svc.repo.GetCertificateTypeByCode(ctx, code)
	if err == nil && t.ID != excludeID {
		return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
	} else if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "checking code uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nt NewType) (Type, error) {
	nt.Clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Type{}, err
	}
	if err := svc.checkCode(ctx, nt.Code, 0); err != nil {
		return Type{}, err
	}
	now := core.NowFunc()
	t := Type{
		Code:      nt.Code,
		Name:      nt.Name,
		Hours:     nt.Hours,
		Category:  nt.Category,
		IsActive:  nt.IsActive == nil || *nt.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCertificateType(ctx, t)
}

func (svc *Service) Get(ctx context.Context, id int64) (Type, error) {
	return svc.repo.GetCertificateType(ctx, id)
}

// GetActive returns the type if it can still be filed.
func (svc *Service) GetActive(ctx context.Context, id int64) (Type, error) {
	t, err := svc.repo.GetCertificateType(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Type{}, core.NewFieldError("certificate_type_id", "unknown certificate type")
		}
		return Type{}, err
	}
	if !t.IsActive {
		return Type{}, core.NewFieldError("certificate_type_id", "certificate type is no longer accepted")
	}
	return t, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]Type, core.PageInfo, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Category = core.CleanString(filter.Category)
	types, total, err := svc.repo.QueryCertificateTypes(ctx, filter, page.Clean(), core.SafeOrderings(ordering, OrderingFields))
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying certificate types")
	}
	return types, core.NewPageInfo(page, total), nil
}

func (svc *Service) Categories(ctx context.Context) ([]string, error) {
	return svc.repo.QueryCertificateCategories(ctx)
}

func (svc *Service) Update(ctx context.Context, id int64, ut UpdateType) (Type, error) {
	if err := svc.validate.Struct(ut); err != nil {
		return Type{}, err
	}
	t, err := svc.repo.GetCertificateType(ctx, id)
	if err != nil {
		return Type{}, err
	}
	if code := core.CleanString(ut.Code); code != "" && code != t.Code {
		if err := svc.checkCode(ctx, code, t.ID); err != nil {
			return Type{}, err
		}
		t.Code = code
	}
	if name := core.CleanString(ut.Name); name != "" {
		t.Name = name
	}
	if ut.Hours > 0 {
		t.Hours = ut.Hours
	}
	if cat := core.CleanString(ut.Category); cat != "" {
		t.Category = cat
	}
	if ut.IsActive != nil {
		t.IsActive = *ut.IsActive
	}
	t.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCertificateType(ctx, t)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteCertificateType(ctx, id)
}
