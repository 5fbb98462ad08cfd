package academic

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("academic year")
	ErrYearExists = errors.New("this academic year already exists")
	// ErrInUse is returned by Repository.DeleteAcademicYear when rows still reference the year.
	ErrInUse = core.NewConflictError(errors.New("academic year is referenced by submissions or projects"))
)

type (
	Repository interface {
		CreateAcademicYear(ctx context.Context, y AcademicYear) (AcademicYear, error)
		GetAcademicYear(ctx context.Context, id int64) (AcademicYear, error)
		GetAcademicYearByYear(ctx context.Context, year int) (AcademicYear, error)
		QueryAcademicYears(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]AcademicYear, error)
		UpdateAcademicYear(ctx context.Context, y AcademicYear) (AcademicYear, error)
		DeleteAcademicYear(ctx context.Context, id int64) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, ny NewAcademicYear) (AcademicYear, error) {
	if err := svc.validate.Struct(ny); err != nil {
		return AcademicYear{}, err
	}
	start, err := parseDate("start_date", ny.StartDate)
	if err != nil {
		return AcademicYear{}, err
	}
	end, err := parseDate("end_date", ny.EndDate)
	if err != nil {
		return AcademicYear{}, err
	}
	if end.Before(start) {
		return AcademicYear{}, core.NewFieldError("end_date", "end date must not be before start date")
	}
	if _, err := svc.repo.GetAcademicYearByYear(ctx, ny.Year); err == nil {
		return AcademicYear{}, core.NewValidationError(ErrYearExists, core.FieldError{Field: "year", Error: ErrYearExists.Error()})
	} else if !core.IsNotFound(err) {
		return AcademicYear{}, errors.Wrap(err, "checking year uniqueness")
	}

	status := ny.Status
	if status == "" {
		status = StatusAuto
	}
	name := core.CleanString(ny.Name)
	if name == "" {
		name = fmt.Sprintf("Academic year %d", ny.Year)
	}
	now := core.NowFunc()
	y, err := svc.repo.CreateAcademicYear(ctx, AcademicYear{
		Year:      ny.Year,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return AcademicYear{}, errors.Wrap(err, "creating academic year")
	}
	return y.withState(now), nil
}

func (svc *Service) Get(ctx context.Context, id int64) (AcademicYear, error) {
	y, err := svc.repo.GetAcademicYear(ctx, id)
	if err != nil {
		return AcademicYear{}, err
	}
	return y.withState(core.NowFunc()), nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]AcademicYear, error) {
	ords := core.SafeOrderings(ordering, OrderingFields)
	years, err := svc.repo.QueryAcademicYears(ctx, filter, ords)
	if err != nil {
		return nil, errors.Wrap(err, "querying academic years")
	}
	now := core.NowFunc()
	for i := range years {
		years[i] = years[i].withState(now)
	}
	return years, nil
}

// Current returns the open academic year with the latest start date.
func (svc *Service) Current(ctx context.Context) (AcademicYear, error) {
	years, err := svc.Query(ctx, QueryFilter{}, []core.DBOrdering{{Field: "start_date", Ascending: false}})
	if err != nil {
		return AcademicYear{}, err
	}
	for _, y := range years {
		if y.IsOpen {
			return y, nil
		}
	}
	return AcademicYear{}, ErrNotFound
}

func (svc *Service) Update(ctx context.Context, id int64, uy UpdateAcademicYear) (AcademicYear, error) {
	if err := svc.validate.Struct(uy); err != nil {
		return AcademicYear{}, err
	}
	y, err := svc.repo.GetAcademicYear(ctx, id)
	if err != nil {
		return AcademicYear{}, err
	}
	if name := core.CleanString(uy.Name); name != "" {
		y.Name = name
	}
	if uy.StartDate != "" {
		if y.StartDate, err = parseDate("start_date", uy.StartDate); err != nil {
			return AcademicYear{}, err
		}
	}
	if uy.EndDate != "" {
		if y.EndDate, err = parseDate("end_date", uy.EndDate); err != nil {
			return AcademicYear{}, err
		}
	}
	if y.EndDate.Before(y.StartDate) {
		return AcademicYear{}, core.NewFieldError("end_date", "end date must not be before start date")
	}
	if uy.Status != "" {
		y.Status = uy.Status
	}
	y.UpdatedAt = core.NowFunc()
	if y, err = svc.repo.UpdateAcademicYear(ctx, y); err != nil {
		return AcademicYear{}, errors.Wrap(err, "updating academic year")
	}
	return y.withState(y.UpdatedAt), nil
}

func (svc *Service) SetStatus(ctx context.Context, id int64, data SetStatus) (AcademicYear, error) {
	if err := svc.validate.Struct(data); err != nil {
		return AcademicYear{}, err
	}
	return svc.Update(ctx, id, UpdateAcademicYear{Status: data.Status})
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteAcademicYear(ctx, id)
}

// EnsureOpen fails with a validation error when the year does not accept filings right now.
func (svc *Service) EnsureOpen(ctx context.Context, id int64) (AcademicYear, error) {
	y, err := svc.repo.GetAcademicYear(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return AcademicYear{}, core.NewFieldError("academic_year_id", "unknown academic year")
		}
		return AcademicYear{}, err
	}
	y = y.withState(core.NowFunc())
	if !y.IsOpen {
		return AcademicYear{}, core.NewFieldError("academic_year_id", fmt.Sprintf("academic year %d is closed", y.Year))
	}
	return y, nil
}

// EnsureExists fails with a validation error when the year is unknown.
func (svc *Service) EnsureExists(ctx context.Context, id int64) (AcademicYear, error) {
	y, err := svc.repo.GetAcademicYear(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return AcademicYear{}, core.NewFieldError("academic_year_id", "unknown academic year")
		}
		return AcademicYear{}, err
	}
	return y.withState(core.NowFunc()), nil
}
