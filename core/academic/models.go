package academic

import (
	"time"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

// Status is the admin override of an AcademicYear's window.
type Status string

const (
	StatusAuto   Status = "auto"   // open between StartDate and EndDate
	StatusOpen   Status = "open"   // forced open
	StatusClosed Status = "closed" // forced closed
)

const dateLayout = "2006-01-02"

type AcademicYear struct {
	ID        int64     `json:"id" db:"id"`
	Year      int       `json:"year" db:"year"`
	Name      string    `json:"name" db:"name"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Status    Status    `json:"status" db:"status"`
	IsOpen    bool      `json:"is_open" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OpenAt tells whether students may file evidence against this year at t.
// EndDate is inclusive.
func (y AcademicYear) OpenAt(t time.Time) bool {
	switch y.Status {
	case StatusOpen:
		return true
	case StatusClosed:
		return false
	}
	t = t.UTC()
	return !t.Before(y.StartDate) && t.Before(y.EndDate.AddDate(0, 0, 1))
}

// withState fills the computed fields.
func (y AcademicYear) withState(now time.Time) AcademicYear {
	y.IsOpen = y.OpenAt(now)
	return y
}

// NewAcademicYear contains information needed to create an AcademicYear.
// Dates are formatted as YYYY-MM-DD.
type NewAcademicYear struct {
	Year      int    `json:"year" validate:"required,gte=2400,lte=2700"`
	Name      string `json:"name"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Status    Status `json:"status" validate:"omitempty,oneof=auto open closed"`
}

type UpdateAcademicYear struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Status    Status `json:"status" validate:"omitempty,oneof=auto open closed"`
}

type SetStatus struct {
	Status Status `json:"status" validate:"required,oneof=auto open closed"`
}

type QueryFilter struct {
	Status Status `query:"status"`
	Year   int    `query:"year"`
}

var OrderingFields = map[string]string{
	"year":       "year",
	"start_date": "start_date",
	"end_date":   "end_date",
	"created_at": "created_at",
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, core.CleanString(s), time.UTC)
	if err != nil {
		return time.Time{}, core.NewFieldError(field, "must be a date formatted as YYYY-MM-DD")
	}
	return d, nil
}
