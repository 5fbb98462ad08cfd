// Package stats aggregates the volunteer hours earned by each student.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

// Row is the hour tally of one student.
type Row struct {
	UserID          int64       `json:"user_id" db:"user_id"`
	Name            string      `json:"name" db:"name"`
	StudentCode     null.String `json:"student_code" db:"student_code"`
	Faculty         string      `json:"faculty" db:"faculty"`
	Major           string      `json:"major" db:"major"`
	SubmissionHours int         `json:"submission_hours" db:"submission_hours"`
	ProjectHours    int         `json:"project_hours" db:"project_hours"`
	LinkHours       int         `json:"link_hours" db:"link_hours"`
	TotalHours      int         `json:"total_hours" db:"-"`
	IsApplicant     bool        `json:"is_applicant" db:"is_applicant"`
}

type Summary struct {
	Students        int `json:"students"`
	Applicants      int `json:"applicants"`
	SubmissionHours int `json:"submission_hours"`
	ProjectHours    int `json:"project_hours"`
	LinkHours       int `json:"link_hours"`
	TotalHours      int `json:"total_hours"`
}

type Filter struct {
	AcademicYearID int64  `query:"academic_year_id"`
	Search         string `query:"search"`
	Faculty        string `query:"faculty"`
	MinHours       int    `query:"min_hours"`
	MaxHours       int    `query:"max_hours"` // 0 means no upper bound
	ApplicantsOnly bool   `query:"applicants_only"`
}

var OrderingFields = map[string]string{
	"name":             "name",
	"student_code":     "student_code",
	"faculty":          "faculty",
	"submission_hours": "submission_hours",
	"project_hours":    "project_hours",
	"link_hours":       "link_hours",
	"total_hours":      "total_hours",
}

type (
	Repository interface {
		// StudentHours tallies approved hours of every student, for one academic year or all when yearID is 0.
		StudentHours(ctx context.Context, yearID int64) ([]Row, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (f Filter) match(r Row) bool {
	if f.ApplicantsOnly && !r.IsApplicant {
		return false
	}
	if f.Faculty != "" && !strings.EqualFold(r.Faculty, f.Faculty) {
		return false
	}
	if r.TotalHours < f.MinHours {
		return false
	}
	if f.MaxHours > 0 && r.TotalHours > f.MaxHours {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Name), q) && !strings.Contains(strings.ToLower(r.StudentCode.String), q) {
			return false
		}
	}
	return true
}

func less(a, b Row, field string) (bool, bool) {
	switch field {
	case "name":
		return a.Name < b.Name, a.Name == b.Name
	case "student_code":
		return a.StudentCode.String < b.StudentCode.String, a.StudentCode.String == b.StudentCode.String
	case "faculty":
		return a.Faculty < b.Faculty, a.Faculty == b.Faculty
	case "submission_hours":
		return a.SubmissionHours < b.SubmissionHours, a.SubmissionHours == b.SubmissionHours
	case "project_hours":
		return a.ProjectHours < b.ProjectHours, a.ProjectHours == b.ProjectHours
	case "link_hours":
		return a.LinkHours < b.LinkHours, a.LinkHours == b.LinkHours
	case "total_hours":
		return a.TotalHours < b.TotalHours, a.TotalHours == b.TotalHours
	}
	return false, true
}

func sortRows(rows []Row, ords []core.DBOrdering) {
	if len(ords) == 0 {
		ords = []core.DBOrdering{{Field: "total_hours"}, {Field: "name", Ascending: true}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ords {
			lt, eq := less(rows[i], rows[j], ord.Field)
			if eq {
				continue
			}
			if ord.Ascending {
				return lt
			}
			return !lt
		}
		return rows[i].UserID < rows[j].UserID
	})
}

// rows returns the filtered and ordered tally with its summary.
func (svc *Service) rows(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]Row, Summary, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Faculty = core.CleanString(filter.Faculty)
	all, err := svc.repo.StudentHours(ctx, filter.AcademicYearID)
	if err != nil {
		return nil, Summary{}, errors.Wrap(err, "tallying hours")
	}

	var sum Summary
	rows := make([]Row, 0, len(all))
	for _, r := range all {
		r.TotalHours = r.SubmissionHours + r.ProjectHours + r.LinkHours
		if !filter.match(r) {
			continue
		}
		rows = append(rows, r)
		sum.Students++
		if r.IsApplicant {
			sum.Applicants++
		}
		sum.SubmissionHours += r.SubmissionHours
		sum.ProjectHours += r.ProjectHours
		sum.LinkHours += r.LinkHours
		sum.TotalHours += r.TotalHours
	}
	sortRows(rows, core.SafeOrderings(ordering, OrderingFields))
	return rows, sum, nil
}

func (svc *Service) Query(ctx context.Context, filter Filter, page core.Page, ordering []core.DBOrdering) ([]Row, core.PageInfo, Summary, error) {
	rows, sum, err := svc.rows(ctx, filter, ordering)
	if err != nil {
		return nil, core.PageInfo{}, Summary{}, err
	}
	start, end := page.Bounds(len(rows))
	return rows[start:end], core.NewPageInfo(page, len(rows)), sum, nil
}

var exportHeader = []interface{}{
	"Student code", "Name", "Faculty", "Major",
	"Submission hours", "Project hours", "MOD-LINK hours", "Total hours", "Scholarship applicant",
}

// Export renders the whole filtered tally as an XLSX workbook.
func (svc *Service) Export(ctx context.Context, filter Filter, ordering []core.DBOrdering) ([]byte, error) {
	rows, sum, err := svc.rows(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Statistics"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, bold)
	}

	for i, r := range rows {
		applicant := "no"
		if r.IsApplicant {
			applicant = "yes"
		}
		line := []interface{}{
			r.StudentCode.String, r.Name, r.Faculty, r.Major,
			r.SubmissionHours, r.ProjectHours, r.LinkHours, r.TotalHours, applicant,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &line); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
	}
	total := []interface{}{
		"", fmt.Sprintf("%d students", sum.Students), "", "",
		sum.SubmissionHours, sum.ProjectHours, sum.LinkHours, sum.TotalHours, sum.Applicants,
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", len(rows)+2), &total); err != nil {
		return nil, errors.Wrap(err, "writing totals")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

// ExportFilename names the export of a filtered tally.
func ExportFilename(filter Filter) string {
	if filter.AcademicYearID > 0 {
		return fmt.Sprintf("user-statistics-%d-%s.xlsx", filter.AcademicYearID, core.NowFunc().Format("20060102"))
	}
	return fmt.Sprintf("user-statistics-%s.xlsx", core.NowFunc().Format("20060102"))
}
