package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Upload is a file received from a client, already read in memory.
type Upload struct {
	Filename    string
	Content     []byte
	ContentType string // sniffed from Content
}

func NewUpload(filename string, content []byte) Upload {
	return Upload{
		Filename:    filepath.Base(filename),
		Content:     content,
		ContentType: mimetype.Detect(content).String(),
	}
}

func (u Upload) Size() int64 { return int64(len(u.Content)) }

func (u Upload) IsImage() bool {
	return strings.HasPrefix(u.ContentType, "image/")
}

func (u Upload) IsPDF() bool {
	return strings.HasPrefix(u.ContentType, "application/pdf")
}

// CheckUploads validates every upload against the size limit and the accept predicate.
func CheckUploads(field string, uploads []Upload, maxSize int64, accept func(Upload) bool, acceptDesc string) error {
	for _, u := range uploads {
		if len(u.Content) == 0 {
			return NewFieldError(field, fmt.Sprintf("%s: file is empty", u.Filename))
		}
		if maxSize > 0 && u.Size() > maxSize {
			return NewFieldError(field, fmt.Sprintf("%s: file is larger than %d MB", u.Filename, maxSize>>20))
		}
		if !accept(u) {
			return NewFieldError(field, fmt.Sprintf("%s: only %s files are allowed", u.Filename, acceptDesc))
		}
	}
	return nil
}

// StoredFile describes a persisted upload.
type StoredFile struct {
	Path        string // relative to the storage root
	URL         string
	Filename    string // original name
	ContentType string
	Size        int64
}

// FileStorage persists uploads and serves them back under a public URL.
type FileStorage interface {
	Save(ctx context.Context, dir string, upload Upload) (StoredFile, error)
	Delete(ctx context.Context, path string) error
}
