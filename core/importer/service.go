// Package importer loads MOD-LINK hours and scholarship applicant lists from spreadsheets.
package importer

import (
	"context"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

const maxHours = 1000

type (
	Repository interface {
		// UpsertLinkHour inserts or updates the row keyed by (academic year, student code).
		// Reports whether a new row was inserted.
		UpsertLinkHour(ctx context.Context, h LinkHour) (bool, error)
		UpsertApplicant(ctx context.Context, a Applicant) (bool, error)
		QueryLinkHours(ctx context.Context, filter QueryFilter, page core.Page) ([]LinkHour, int, error)
		QueryApplicants(ctx context.Context, filter QueryFilter, page core.Page) ([]Applicant, int, error)
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		years    *academic.Service
		users    *user.Service
		validate *validator.Validate
	}
)

func NewService(tx core.Transactor, repo Repository, years *academic.Service, users *user.Service, validate *validator.Validate) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(years, "years"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{tx: tx, repo: repo, years: years, users: users, validate: validate}
}

func rowNumber(line, i int) int {
	if line > 0 {
		return line
	}
	return i + 1
}

// tracker skips invalid and repeated rows while an import runs.
type tracker struct {
	res   Result
	seen  map[string]int
	codes []string
}

func newTracker(total int) *tracker {
	return &tracker{res: Result{Total: total, Errors: []RowError{}, UnknownStudents: []string{}}, seen: make(map[string]int)}
}

func (t *tracker) skip(row int, msg string) {
	t.res.Skipped++
	t.res.Errors = append(t.res.Errors, RowError{Row: row, Error: msg})
}

// accept reports whether a row with this student code may be imported.
func (t *tracker) accept(row int, code string, validate *validator.Validate) bool {
	if code == "" {
		t.skip(row, "student code is required")
		return false
	}
	if err := validate.Var(code, "studentcode"); err != nil {
		t.skip(row, "invalid student code "+code)
		return false
	}
	if first, ok := t.seen[code]; ok {
		t.skip(row, "duplicate of row "+strconv.Itoa(first))
		return false
	}
	t.seen[code] = row
	t.codes = append(t.codes, code)
	return true
}

func (t *tracker) count(inserted bool) {
	if inserted {
		t.res.Inserted++
	} else {
		t.res.Updated++
	}
}

// unknown lists the imported codes that no account carries.
func (svc *Service) unknown(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return []string{}, nil
	}
	users, err := svc.users.GetByStudentCodes(ctx, codes)
	if err != nil {
		return nil, errors.Wrap(err, "matching students")
	}
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.StudentCode.String] = true
	}
	out := []string{}
	for _, c := range codes {
		if !known[c] {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ImportLinkHours upserts MOD-LINK hours for one academic year in a single transaction.
func (svc *Service) ImportLinkHours(ctx context.Context, usr user.User, up LinkHoursUpload) (Result, error) {
	if err := svc.validate.Struct(up); err != nil {
		return Result{}, err
	}
	if _, err := svc.years.EnsureExists(ctx, up.AcademicYearID); err != nil {
		return Result{}, err
	}

	t := newTracker(len(up.Rows))
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		now := core.NowFunc()
		for i, r := range up.Rows {
			row := rowNumber(r.Line, i)
			code := core.CleanString(r.StudentCode)
			if r.Hours < 0 || r.Hours > maxHours {
				t.skip(row, "hours must be a whole number between 0 and "+strconv.Itoa(maxHours))
				continue
			}
			if !t.accept(row, code, svc.validate) {
				continue
			}
			inserted, err := svc.repo.UpsertLinkHour(ctx, LinkHour{
				AcademicYearID: up.AcademicYearID,
				StudentCode:    code,
				Name:           core.CleanString(r.Name),
				Hours:          r.Hours,
				UploadedBy:     usr.ID,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			if err != nil {
				return errors.Wrapf(err, "importing row %d", row)
			}
			t.count(inserted)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if t.res.UnknownStudents, err = svc.unknown(ctx, t.codes); err != nil {
		return Result{}, err
	}
	return t.res, nil
}

// ImportLinkHoursFile parses a CSV or XLSX sheet then imports it like ImportLinkHours.
func (svc *Service) ImportLinkHoursFile(ctx context.Context, usr user.User, yearID int64, filename string, content []byte) (Result, error) {
	sheet, err := ReadSheet(filename, content)
	if err != nil {
		return Result{}, err
	}
	rows, err := LinkHourRows(sheet)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, core.NewFieldError("file", "the file has no data rows")
	}
	return svc.ImportLinkHours(ctx, usr, LinkHoursUpload{AcademicYearID: yearID, Rows: rows})
}

// ImportApplicants upserts scholarship applicants for one academic year in a single transaction.
func (svc *Service) ImportApplicants(ctx context.Context, usr user.User, up ApplicantsUpload) (Result, error) {
	if err := svc.validate.Struct(up); err != nil {
		return Result{}, err
	}
	if _, err := svc.years.EnsureExists(ctx, up.AcademicYearID); err != nil {
		return Result{}, err
	}

	t := newTracker(len(up.Rows))
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		now := core.NowFunc()
		for i, r := range up.Rows {
			row := rowNumber(r.Line, i)
			code := core.CleanString(r.StudentCode)
			if !t.accept(row, code, svc.validate) {
				continue
			}
			inserted, err := svc.repo.UpsertApplicant(ctx, Applicant{
				AcademicYearID:  up.AcademicYearID,
				StudentCode:     code,
				Name:            core.CleanString(r.Name),
				ScholarshipName: core.CleanString(r.ScholarshipName),
				UploadedBy:      usr.ID,
				CreatedAt:       now,
				UpdatedAt:       now,
			})
			if err != nil {
				return errors.Wrapf(err, "importing row %d", row)
			}
			t.count(inserted)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if t.res.UnknownStudents, err = svc.unknown(ctx, t.codes); err != nil {
		return Result{}, err
	}
	return t.res, nil
}

func (svc *Service) ImportApplicantsFile(ctx context.Context, usr user.User, yearID int64, filename string, content []byte) (Result, error) {
	sheet, err := ReadSheet(filename, content)
	if err != nil {
		return Result{}, err
	}
	rows, err := ApplicantRows(sheet)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{}, core.NewFieldError("file", "the file has no data rows")
	}
	return svc.ImportApplicants(ctx, usr, ApplicantsUpload{AcademicYearID: yearID, Rows: rows})
}

func (svc *Service) QueryLinkHours(ctx context.Context, filter QueryFilter, page core.Page) ([]LinkHour, core.PageInfo, error) {
	filter.Search = core.CleanString(filter.Search)
	hours, total, err := svc.repo.QueryLinkHours(ctx, filter, page.Clean())
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying link hours")
	}
	return hours, core.NewPageInfo(page, total), nil
}

func (svc *Service) QueryApplicants(ctx context.Context, filter QueryFilter, page core.Page) ([]Applicant, core.PageInfo, error) {
	filter.Search = core.CleanString(filter.Search)
	apps, total, err := svc.repo.QueryApplicants(ctx, filter, page.Clean())
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying applicants")
	}
	return apps, core.NewPageInfo(page, total), nil
}
