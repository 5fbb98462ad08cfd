package importer

import (
	"time"
)

// LinkHour is the MOD-LINK volunteer hours of one student in one academic year.
type LinkHour struct {
	ID             int64     `json:"id" db:"id"`
	AcademicYearID int64     `json:"academic_year_id" db:"academic_year_id"`
	StudentCode    string    `json:"student_code" db:"student_code"`
	Name           string    `json:"name" db:"name"`
	Hours          int       `json:"hours" db:"hours"`
	UploadedBy     int64     `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Applicant is a student who applied for a scholarship in one academic year.
type Applicant struct {
	ID              int64     `json:"id" db:"id"`
	AcademicYearID  int64     `json:"academic_year_id" db:"academic_year_id"`
	StudentCode     string    `json:"student_code" db:"student_code"`
	Name            string    `json:"name" db:"name"`
	ScholarshipName string    `json:"scholarship_name" db:"scholarship_name"`
	UploadedBy      int64     `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// LinkHourRow is one imported line. Line is its row number in the source sheet, when known.
type LinkHourRow struct {
	Line        int    `json:"line,omitempty"`
	StudentCode string `json:"student_code"`
	Name        string `json:"name"`
	Hours       int    `json:"hours"`
}

type ApplicantRow struct {
	Line            int    `json:"line,omitempty"`
	StudentCode     string `json:"student_code"`
	Name            string `json:"name"`
	ScholarshipName string `json:"scholarship_name"`
}

// LinkHoursUpload is a client parsed sheet of MOD-LINK hours.
type LinkHoursUpload struct {
	AcademicYearID int64         `json:"academic_year_id" validate:"required,gt=0"`
	Rows           []LinkHourRow `json:"rows" validate:"required,min=1"`
}

type ApplicantsUpload struct {
	AcademicYearID int64          `json:"academic_year_id" validate:"required,gt=0"`
	Rows           []ApplicantRow `json:"rows" validate:"required,min=1"`
}

// RowError reports a skipped row by its sheet line, or its 1-based position for JSON rows.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type Result struct {
	Total    int        `json:"total"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
	// UnknownStudents lists imported student codes with no matching account.
	UnknownStudents []string `json:"unknown_students"`
}

type QueryFilter struct {
	AcademicYearID int64  `query:"academic_year_id"`
	Search         string `query:"search"`
}
