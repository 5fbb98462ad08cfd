package submission

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

// Type is the volunteer-hour category of a Submission.
type Type string

const (
	TypeCertificate  Type = "certificate" // e-Learning certificate, hours fixed by the catalog
	TypeBloodDonate  Type = "blood_donate"
	TypeNSF          Type = "nsf" // national savings fund
	TypeAOMYoung     Type = "aom_young"
	TypeTreePlanting Type = "tree_planting"
	TypeOther        Type = "other"
)

var Types = []Type{TypeCertificate, TypeBloodDonate, TypeNSF, TypeAOMYoung, TypeTreePlanting, TypeOther}

func (t Type) Valid() bool {
	for _, tt := range Types {
		if t == tt {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// StatusLog is one entry of a Submission's status history. The latest entry is the current status.
type StatusLog struct {
	ID           int64       `json:"id" db:"id"`
	SubmissionID int64       `json:"submission_id" db:"submission_id"`
	Status       Status      `json:"status" db:"status"`
	Reason       null.String `json:"reason" db:"reason"`
	ChangedBy    int64       `json:"changed_by" db:"changed_by"`
	ChangedAt    time.Time   `json:"changed_at" db:"changed_at"`
}

type File struct {
	ID           int64     `json:"id" db:"id"`
	SubmissionID int64     `json:"submission_id" db:"submission_id"`
	Filename     string    `json:"filename" db:"filename"`
	Path         string    `json:"-" db:"path"`
	URL          string    `json:"url" db:"url"`
	ContentType  string    `json:"content_type" db:"content_type"`
	Size         int64     `json:"size" db:"size"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Submission struct {
	ID                int64       `json:"id" db:"id"`
	UserID            int64       `json:"user_id" db:"user_id"`
	Type              Type        `json:"type" db:"type"`
	AcademicYearID    int64       `json:"academic_year_id" db:"academic_year_id"`
	CertificateTypeID null.Int64  `json:"certificate_type_id" db:"certificate_type_id"`
	Description       string      `json:"description" db:"description"`
	HoursRequested    int         `json:"hours_requested" db:"hours_requested"`
	Hours             null.Int    `json:"hours" db:"hours"`
	Status            Status      `json:"status" db:"status"` // read-only, latest StatusLog
	StatusLogs        []StatusLog `json:"status_logs" db:"-"`
	Files             []File      `json:"files" db:"-"`
	Version           int         `json:"version" db:"version"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// CurrentStatus derives the status from the status history.
func (s Submission) CurrentStatus() Status {
	if n := len(s.StatusLogs); n > 0 {
		return s.StatusLogs[n-1].Status
	}
	if s.Status != "" {
		return s.Status
	}
	return StatusPending
}

type NewSubmission struct {
	Type              Type   `json:"type" validate:"required,submissiontype"`
	AcademicYearID    int64  `json:"academic_year_id" validate:"required,gt=0"`
	CertificateTypeID int64  `json:"certificate_type_id" validate:"omitempty,gt=0"`
	Description       string `json:"description" validate:"max=2000"`
	HoursRequested    int    `json:"hours_requested" validate:"omitempty,gt=0,lte=200"`
}

// Review is an admin decision on a single Submission.
type Review struct {
	Action  Action `json:"action" validate:"required,oneof=approve reject"`
	Hours   int    `json:"hours" validate:"omitempty,gt=0,lte=200"`
	Reason  string `json:"reason"`
	Version int    `json:"version" validate:"omitempty,gt=0"`
}

type BatchReview struct {
	IDs    []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Action Action  `json:"action" validate:"required,oneof=approve reject"`
	Reason string  `json:"reason"`
}

type QueryFilter struct {
	UserID         int64  `query:"user_id"`
	Type           Type   `query:"type"`
	Status         Status `query:"status"`
	AcademicYearID int64  `query:"academic_year_id"`
}

var OrderingFields = map[string]string{
	"id":              "id",
	"type":            "type",
	"hours_requested": "hours_requested",
	"created_at":      "created_at",
	"updated_at":      "updated_at",
}

// decisionMail is the template data of submission_decision emails.
type decisionMail struct {
	SubmissionID int64
	Type         Type
	Decision     Status
	Hours        int
	Reason       string
}

func cleanReason(reason string) null.String {
	reason = core.CleanString(reason)
	return null.NewString(reason, reason != "")
}
