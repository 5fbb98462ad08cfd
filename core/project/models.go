package project

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

type Type string

const (
	TypeReligious          Type = "religious"
	TypeSocialDevelopment  Type = "social_development"
	TypeUniversityActivity Type = "university_activity"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantApproved ParticipantStatus = "approved"
	ParticipantRejected ParticipantStatus = "rejected"
)

type FileKind string

const (
	FilePhoto       FileKind = "photo"
	FileCertificate FileKind = "certificate"
)

const dateLayout = "2006-01-02"

type Project struct {
	ID              int64       `json:"id" db:"id"`
	Name            string      `json:"name" db:"name"`
	Type            Type        `json:"type" db:"type"`
	Description     string      `json:"description" db:"description"`
	Location        string      `json:"location" db:"location"`
	Province        string      `json:"province" db:"province"`
	Campus          string      `json:"campus" db:"campus"`
	StartDate       time.Time   `json:"start_date" db:"start_date"`
	EndDate         time.Time   `json:"end_date" db:"end_date"`
	HoursPerPerson  int         `json:"hours_per_person" db:"hours_per_person"`
	AcademicYearID  int64       `json:"academic_year_id" db:"academic_year_id"`
	CreatedBy       int64       `json:"created_by" db:"created_by"`
	Status          Status      `json:"status" db:"status"`
	RejectionReason null.String `json:"rejection_reason" db:"rejection_reason"`
	Version         int         `json:"version" db:"version"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// Participant is a user's membership in a project with its own approval status.
// HoursReceived is set iff Status is approved.
type Participant struct {
	ProjectID       int64             `json:"project_id" db:"project_id"`
	UserID          int64             `json:"user_id" db:"user_id"`
	Name            string            `json:"name" db:"user_name"`
	StudentCode     null.String       `json:"student_code" db:"student_code"`
	Status          ParticipantStatus `json:"status" db:"status"`
	HoursReceived   null.Int          `json:"hours_received" db:"hours_received"`
	ApprovedAt      null.Time         `json:"approved_at" db:"approved_at"`
	RejectionReason null.String       `json:"rejection_reason" db:"rejection_reason"`
	Version         int               `json:"version" db:"version"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

type File struct {
	ID          int64     `json:"id" db:"id"`
	ProjectID   int64     `json:"project_id" db:"project_id"`
	Kind        FileKind  `json:"kind" db:"kind"`
	Filename    string    `json:"filename" db:"filename"`
	Path        string    `json:"-" db:"path"`
	URL         string    `json:"url" db:"url"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	UploadedBy  int64     `json:"uploaded_by" db:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StatusLog records every project level transition.
type StatusLog struct {
	ID         int64       `json:"id" db:"id"`
	ProjectID  int64       `json:"project_id" db:"project_id"`
	Action     Action      `json:"action" db:"action"`
	FromStatus Status      `json:"from_status" db:"from_status"`
	ToStatus   Status      `json:"to_status" db:"to_status"`
	Reason     null.String `json:"reason" db:"reason"`
	ChangedBy  int64       `json:"changed_by" db:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at" db:"changed_at"`
}

// Detail is a project as seen by one user.
type Detail struct {
	Project
	Participants   []Participant `json:"participants"`
	Files          []File        `json:"files"`
	AllowedActions []Capability  `json:"allowed_actions"`
}

type NewProject struct {
	Name           string  `json:"name" validate:"required,notblank_,max=255"`
	Type           Type    `json:"type" validate:"required,oneof=religious social_development university_activity"`
	Description    string  `json:"description" validate:"max=5000"`
	Location       string  `json:"location" validate:"max=255"`
	Province       string  `json:"province" validate:"max=100"`
	Campus         string  `json:"campus" validate:"max=100"`
	StartDate      string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	HoursPerPerson int     `json:"hours_per_person" validate:"required,gt=0,lte=200"`
	AcademicYearID int64   `json:"academic_year_id" validate:"required,gt=0"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"omitempty,dive,gt=0"`
}

func (np *NewProject) Clean() {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.Location = core.CleanString(np.Location)
	np.Province = core.CleanString(np.Province)
	np.Campus = core.CleanString(np.Campus)
}

// UpdateProject holds the editable fields. HoursPerPerson is fixed at creation.
type UpdateProject struct {
	Name           string  `json:"name" validate:"max=255"`
	Type           Type    `json:"type" validate:"omitempty,oneof=religious social_development university_activity"`
	Description    *string `json:"description" validate:"omitempty,max=5000"`
	Location       *string `json:"location" validate:"omitempty,max=255"`
	Province       *string `json:"province" validate:"omitempty,max=100"`
	Campus         *string `json:"campus" validate:"omitempty,max=100"`
	StartDate      string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	AcademicYearID int64   `json:"academic_year_id" validate:"omitempty,gt=0"`
	Version        int     `json:"version" validate:"omitempty,gt=0"`
}

// ActionInput is the body of project level actions.
type ActionInput struct {
	Reason  string `json:"reason"`
	Version int    `json:"version" validate:"omitempty,gt=0"`
}

// ParticipantsInput selects participants of one project.
type ParticipantsInput struct {
	UserIDs []int64 `json:"user_ids" validate:"omitempty,dive,gt=0"`
	Reason  string  `json:"reason"`
	Version int     `json:"version" validate:"omitempty,gt=0"`
}

type QueryFilter struct {
	Status         Status `query:"status"`
	Type           Type   `query:"type"`
	AcademicYearID int64  `query:"academic_year_id"`
	CreatedBy      int64  `query:"created_by"`
	Search         string `query:"search"`
	// VisibleTo limits results to projects created or joined by this user.
	VisibleTo int64 `query:"-"`
}

var OrderingFields = map[string]string{
	"id":         "id",
	"name":       "name",
	"status":     "status",
	"start_date": "start_date",
	"end_date":   "end_date",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// decisionMail is the template data of project_decision & participant_decision emails.
type decisionMail struct {
	ProjectID   int64
	ProjectName string
	Decision    string
	Hours       int
	Reason      string
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, core.CleanString(s), time.UTC)
	if err != nil {
		return time.Time{}, core.NewFieldError(field, "must be a date formatted as YYYY-MM-DD")
	}
	return d, nil
}

func cleanReason(reason string) null.String {
	reason = core.CleanString(reason)
	return null.NewString(reason, reason != "")
}
