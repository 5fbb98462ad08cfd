package tests

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
)

type statsBody struct {
	Data       []stats.Row   `json:"data"`
	Pagination struct {
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
	Summary stats.Summary `json:"summary"`
}

func Test_statsApi(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	awe := env.createStudent(t, "awe", "65010001")
	hero := env.createStudent(t, "hero", "65010002")
	zed := env.createStudent(t, "zed", "65010003")
	adminToken := env.getToken(t, admin)
	aweToken := env.getToken(t, awe)
	year := env.createYear(t, 2568, academic.StatusAuto)
	yearQuery := "academic_year_id=" + itoa(year.ID)

	s := env.createSubmission(t, aweToken, submission.NewSubmission{Type: submission.TypeOther, AcademicYearID: year.ID, HoursRequested: 5})
	rec := env.do(t, http.MethodPost, "/api/submission/"+itoa(s.ID)+"/review", adminToken, submission.Review{Action: submission.ActionApprove})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// pending submissions do not count
	env.createSubmission(t, aweToken, submission.NewSubmission{Type: submission.TypeOther, AcademicYearID: year.ID, HoursRequested: 50})

	rec = env.do(t, http.MethodPost, "/api/link/upload", adminToken, importer.LinkHoursUpload{
		AcademicYearID: year.ID,
		Rows: []importer.LinkHourRow{
			{StudentCode: "65010001", Hours: 4},
			{StudentCode: "65010002", Hours: 10},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, "/api/link/upload-applied", adminToken, importer.ApplicantsUpload{
		AcademicYearID: year.ID,
		Rows:           []importer.ApplicantRow{{StudentCode: "65010002", ScholarshipName: "Merit"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("admins only", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/user-statistics", aweToken, nil)
		checkCode(t, rec, http.StatusForbidden)
		rec = env.do(t, http.MethodGet, "/api/admin/user-statistics/export", aweToken, nil)
		checkCode(t, rec, http.StatusForbidden)
	})

	t.Run("tally", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/user-statistics?"+yearQuery, adminToken, nil)
		checkCode(t, rec, http.StatusOK)
		var body statsBody
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 3)
		assert.Equal(t, hero.ID, body.Data[0].UserID)
		assert.Equal(t, 10, body.Data[0].TotalHours)
		assert.True(t, body.Data[0].IsApplicant)
		assert.Equal(t, awe.ID, body.Data[1].UserID)
		assert.Equal(t, 5, body.Data[1].SubmissionHours)
		assert.Equal(t, 4, body.Data[1].LinkHours)
		assert.Equal(t, 9, body.Data[1].TotalHours)
		assert.Equal(t, zed.ID, body.Data[2].UserID)
		assert.Equal(t, 0, body.Data[2].TotalHours)
		assert.Equal(t, stats.Summary{Students: 3, Applicants: 1, SubmissionHours: 5, LinkHours: 14, TotalHours: 19}, body.Summary)
	})

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{name: "applicants only", query: "&applicants_only=true", wantIDs: []int64{hero.ID}},
		{name: "min hours by name", query: "&min_hours=1&ordering=name", wantIDs: []int64{awe.ID, hero.ID}},
		{name: "max hours", query: "&max_hours=9", wantIDs: []int64{awe.ID, zed.ID}},
		{name: "search", query: "&search=HERO", wantIDs: []int64{hero.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/admin/user-statistics?"+yearQuery+tt.query, adminToken, nil)
			checkCode(t, rec, http.StatusOK)
			var body statsBody
			unmarshal(t, rec, &body)
			require.Len(t, body.Data, len(tt.wantIDs))
			for i, id := range tt.wantIDs {
				assert.Equal(t, id, body.Data[i].UserID)
			}
		})
	}

	t.Run("paginated with full summary", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/user-statistics?per_page=1&page=2&"+yearQuery, adminToken, nil)
		checkCode(t, rec, http.StatusOK)
		var body statsBody
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, awe.ID, body.Data[0].UserID)
		assert.Equal(t, 3, body.Pagination.Total)
		assert.Equal(t, 3, body.Pagination.TotalPages)
		assert.Equal(t, 19, body.Summary.TotalHours)
	})

	t.Run("other years are empty", func(t *testing.T) {
		other := env.createYear(t, 2567, academic.StatusAuto)
		rec := env.do(t, http.MethodGet, "/api/admin/user-statistics?min_hours=1&academic_year_id="+itoa(other.ID), adminToken, nil)
		var body statsBody
		unmarshal(t, rec, &body)
		assert.Empty(t, body.Data)
		assert.Equal(t, 0, body.Summary.TotalHours)
	})

	t.Run("export", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/admin/user-statistics/export?"+yearQuery, adminToken, nil)
		checkCode(t, rec, http.StatusOK)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "user-statistics-"+itoa(year.ID)+"-")
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "spreadsheetml")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Statistics")
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, "Student code", rows[0][0])
		assert.Equal(t, "65010002", rows[1][0])
		assert.Equal(t, "yes", rows[1][8])
		assert.Equal(t, "3 students", rows[4][1])
		assert.Equal(t, "19", rows[4][7])
	})
}
