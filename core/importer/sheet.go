package importer

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

type column string

const (
	colStudentCode column = "student_code"
	colName        column = "name"
	colHours       column = "hours"
	colScholarship column = "scholarship_name"
)

// headerAliases maps normalized header titles, English and Thai, to columns.
var headerAliases = map[string]column{
	"student_code":     colStudentCode,
	"student code":     colStudentCode,
	"student id":       colStudentCode,
	"student_id":       colStudentCode,
	"code":             colStudentCode,
	"รหัสนักศึกษา":     colStudentCode,
	"รหัส":             colStudentCode,
	"name":             colName,
	"full name":        colName,
	"full_name":        colName,
	"ชื่อ":             colName,
	"ชื่อ-นามสกุล":     colName,
	"ชื่อ - นามสกุล":   colName,
	"ชื่อนามสกุล":      colName,
	"hours":            colHours,
	"hour":             colHours,
	"total hours":      colHours,
	"ชั่วโมง":          colHours,
	"จำนวนชั่วโมง":     colHours,
	"scholarship":      colScholarship,
	"scholarship_name": colScholarship,
	"scholarship name": colScholarship,
	"ทุน":              colScholarship,
	"ชื่อทุน":          colScholarship,
	"ประเภททุน":        colScholarship,
}

// ReadSheet returns the rows of an uploaded CSV or XLSX file; XLSX files are read from their first sheet.
func ReadSheet(filename string, content []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(content)
	case ".xlsx", ".xlsm":
		return readXLSX(content)
	}
	return nil, core.NewFieldError("file", "only .csv and .xlsx files are supported")
}

func readCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, core.NewFieldError("file", "invalid CSV file: "+err.Error())
	}
	return rows, nil
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, core.NewFieldError("file", "invalid XLSX file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewFieldError("file", "the workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading sheet")
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// mapHeader locates the required columns in the header row.
func mapHeader(header []string, required ...column) (map[column]int, error) {
	idx := make(map[column]int, len(required))
	for i, h := range header {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := idx[col]; !seen {
				idx[col] = i
			}
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, string(col))
		}
	}
	if len(missing) > 0 {
		return nil, core.NewFieldError("file", "missing columns: "+strings.Join(missing, ", "))
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return core.CleanString(row[i])
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseHours accepts integers and spreadsheet floats with no fractional part.
func parseHours(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, errors.Errorf("invalid hours %q", s)
	}
	return int(f), nil
}

// LinkHourRows converts sheet rows (header first) to link hour rows.
// Unparsable hours come back as -1 and are rejected on import.
func LinkHourRows(rows [][]string) ([]LinkHourRow, error) {
	if len(rows) == 0 {
		return nil, core.NewFieldError("file", "the file is empty")
	}
	idx, err := mapHeader(rows[0], colStudentCode, colHours)
	if err != nil {
		return nil, err
	}
	out := make([]LinkHourRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		hours, err := parseHours(cell(row, idx[colHours]))
		if err != nil {
			hours = -1
		}
		r := LinkHourRow{Line: i + 2, StudentCode: cell(row, idx[colStudentCode]), Hours: hours}
		if n, ok := idx[colName]; ok {
			r.Name = cell(row, n)
		}
		out = append(out, r)
	}
	return out, nil
}

// ApplicantRows converts sheet rows (header first) to applicant rows.
func ApplicantRows(rows [][]string) ([]ApplicantRow, error) {
	if len(rows) == 0 {
		return nil, core.NewFieldError("file", "the file is empty")
	}
	idx, err := mapHeader(rows[0], colStudentCode)
	if err != nil {
		return nil, err
	}
	out := make([]ApplicantRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		r := ApplicantRow{Line: i + 2, StudentCode: cell(row, idx[colStudentCode])}
		if n, ok := idx[colName]; ok {
			r.Name = cell(row, n)
		}
		if n, ok := idx[colScholarship]; ok {
			r.ScholarshipName = cell(row, n)
		}
		out = append(out, r)
	}
	return out, nil
}
