package project

import (
	"fmt"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

const (
	MinPhotos       = 5
	MinCertificates = 1
	MaxFiles        = 30
)

// CheckDocuments enforces the upload rule: the first upload of a project needs at least
// MinPhotos photos and MinCertificates certificates, later top-ups may add any non empty set.
func CheckDocuments(existing []File, photos, certificates []core.Upload) error {
	added := len(photos) + len(certificates)
	if len(existing)+added > MaxFiles {
		return core.NewFieldError("files", fmt.Sprintf("a project holds at most %d files", MaxFiles))
	}
	if len(existing) > 0 {
		if added == 0 {
			return core.NewFieldError("files", "at least one file is required")
		}
		return nil
	}

	var flds []core.FieldError
	if len(photos) < MinPhotos {
		flds = append(flds, core.FieldError{
			Field: "photos",
			Error: fmt.Sprintf("at least %d photos are required, got %d", MinPhotos, len(photos)),
		})
	}
	if len(certificates) < MinCertificates {
		flds = append(flds, core.FieldError{
			Field: "certificates",
			Error: fmt.Sprintf("at least %d certificate is required", MinCertificates),
		})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
