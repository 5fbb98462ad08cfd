package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
)

// workbook builds an XLSX file whose first sheet holds rows.
func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func Test_linkApi(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	student := env.createStudent(t, "awe", "65010001")
	env.createStudent(t, "hero", "65010002")
	adminToken := env.getToken(t, admin)
	studentToken := env.getToken(t, student)
	year := env.createYear(t, 2568, academic.StatusAuto)
	yearID := itoa(year.ID)

	t.Run("admins only", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/link/upload", studentToken, importer.LinkHoursUpload{
			AcademicYearID: year.ID,
			Rows:           []importer.LinkHourRow{{StudentCode: "65010001", Hours: 3}},
		})
		checkCode(t, rec, http.StatusForbidden)
		rec = env.do(t, http.MethodGet, "/api/link/hours", studentToken, nil)
		checkCode(t, rec, http.StatusForbidden)
		rec = env.do(t, http.MethodGet, "/api/link/hours", "", nil)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("invalid json uploads", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/link/upload", adminToken, importer.LinkHoursUpload{AcademicYearID: year.ID})
		checkCode(t, rec, http.StatusBadRequest)

		rec = env.do(t, http.MethodPost, "/api/link/upload", adminToken, importer.LinkHoursUpload{
			AcademicYearID: 999,
			Rows:           []importer.LinkHourRow{{StudentCode: "65010001", Hours: 3}},
		})
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"academic_year_id": "unknown academic year"})}, rec)
	})

	t.Run("json hours", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/link/upload", adminToken, importer.LinkHoursUpload{
			AcademicYearID: year.ID,
			Rows: []importer.LinkHourRow{
				{StudentCode: " 65010001 ", Name: "Student awe", Hours: 4},
				{StudentCode: "65019999", Name: "Nobody", Hours: 2},
				{StudentCode: "65010001", Hours: 9},
				{StudentCode: "", Hours: 1},
				{StudentCode: "65010002", Hours: -1},
			},
		})
		checkCode(t, rec, http.StatusOK)
		var res importer.Result
		unmarshal(t, rec, &res)
		assert.Equal(t, 5, res.Total)
		assert.Equal(t, 2, res.Inserted)
		assert.Equal(t, 0, res.Updated)
		assert.Equal(t, 3, res.Skipped)
		assert.Equal(t, []string{"65019999"}, res.UnknownStudents)
		require.Len(t, res.Errors, 3)
		assert.Equal(t, importer.RowError{Row: 3, Error: "duplicate of row 1"}, res.Errors[0])
		assert.Equal(t, 4, res.Errors[1].Row)
		assert.Equal(t, 5, res.Errors[2].Row)
	})

	t.Run("xlsx hours update existing rows", func(t *testing.T) {
		content := workbook(t, [][]interface{}{
			{"Student Code", "Full Name", "Hours"},
			{"65010001", "Student awe", 6},
			{"65010002", "Student hero", "2.0"},
			{"65010003", "Someone", "1.5"},
		})
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/link/upload", adminToken,
			map[string]string{"academic_year_id": yearID}, formFile{"file", "link.xlsx", content})
		env.app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)
		var res importer.Result
		unmarshal(t, rec, &res)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 1, res.Updated)
		assert.Equal(t, 1, res.Skipped)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, 4, res.Errors[0].Row)
		assert.Empty(t, res.UnknownStudents)
	})

	t.Run("bad sheets", func(t *testing.T) {
		tests := []struct {
			name    string
			fields  map[string]string
			file    formFile
			wantErr map[string]string
		}{
			{
				name:    "no year",
				fields:  map[string]string{},
				file:    formFile{"file", "link.csv", []byte("student_code,hours\n65010001,1\n")},
				wantErr: map[string]string{"academic_year_id": "a valid academic year is required"},
			},
			{
				name:    "unsupported extension",
				fields:  map[string]string{"academic_year_id": yearID},
				file:    formFile{"file", "link.txt", []byte("student_code,hours\n")},
				wantErr: map[string]string{"file": "only .csv and .xlsx files are supported"},
			},
			{
				name:    "missing column",
				fields:  map[string]string{"academic_year_id": yearID},
				file:    formFile{"file", "link.csv", []byte("student_code,name\n65010001,Awe\n")},
				wantErr: map[string]string{"file": "missing columns: hours"},
			},
			{
				name:    "header only",
				fields:  map[string]string{"academic_year_id": yearID},
				file:    formFile{"file", "link.csv", []byte("student_code,hours\n")},
				wantErr: map[string]string{"file": "the file has no data rows"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newMultipartRequest(t, http.MethodPost, "/api/link/upload", adminToken, tt.fields, tt.file)
				env.app.ServeHTTP(rec, req)
				checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, tt.wantErr)}, rec)
			})
		}
	})

	t.Run("query hours", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/link/hours?academic_year_id="+yearID, adminToken, nil)
		checkCode(t, rec, http.StatusOK)
		var body listBody[importer.LinkHour]
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 3)
		assert.Equal(t, "65010001", body.Data[0].StudentCode)
		assert.Equal(t, 6, body.Data[0].Hours)
		assert.Equal(t, admin.ID, body.Data[0].UploadedBy)
		assert.Equal(t, 2, body.Data[1].Hours)

		rec = env.do(t, http.MethodGet, "/api/link/hours?search=nobody", adminToken, nil)
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "65019999", body.Data[0].StudentCode)
	})

	t.Run("csv applicants", func(t *testing.T) {
		content := []byte("\xef\xbb\xbfรหัสนักศึกษา,ชื่อ,ชื่อทุน\n65010001,Student awe,Merit\n65010001,Student awe,Merit\nbad!,x,y\n")
		req, rec := newMultipartRequest(t, http.MethodPost, "/api/link/upload-applied", adminToken,
			map[string]string{"academic_year_id": yearID}, formFile{"file", "applied.csv", content})
		env.app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)
		var res importer.Result
		unmarshal(t, rec, &res)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 1, res.Inserted)
		assert.Equal(t, 2, res.Skipped)
		assert.Equal(t, []importer.RowError{
			{Row: 3, Error: "duplicate of row 2"},
			{Row: 4, Error: "invalid student code bad!"},
		}, res.Errors)

		rec = env.do(t, http.MethodPost, "/api/link/upload-applied", adminToken, importer.ApplicantsUpload{
			AcademicYearID: year.ID,
			Rows:           []importer.ApplicantRow{{StudentCode: "65010001", ScholarshipName: "Need based"}},
		})
		checkCode(t, rec, http.StatusOK)
		unmarshal(t, rec, &res)
		assert.Equal(t, 1, res.Updated)

		rec = env.do(t, http.MethodGet, "/api/link/applied", adminToken, nil)
		checkCode(t, rec, http.StatusOK)
		var body listBody[importer.Applicant]
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "Need based", body.Data[0].ScholarshipName)
		assert.Equal(t, 1, body.Pagination.Total)
	})
}
