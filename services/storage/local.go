package storagesvc

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

// LocalStorage keeps uploads under a root directory, served under baseURL.
type LocalStorage struct {
	root         string
	baseURL      string
	maxDimension int
	logger       core.Logger
}

var _ core.FileStorage = (*LocalStorage)(nil) // interface compliance check

func NewLocalStorage(logger core.Logger, conf *core.Config) *LocalStorage {
	return &LocalStorage{
		root:         conf.Media.Root,
		baseURL:      strings.TrimRight(conf.Media.BaseURL, "/"),
		maxDimension: conf.Media.MaxImageDimension,
		logger:       logger,
	}
}

func (s *LocalStorage) Root() string { return s.root }

// Save writes the upload under dir with a random name. The extension follows the sniffed content,
// never the client's file name.
// Large JPEG & PNG images are downscaled to fit the configured dimension.
func (s *LocalStorage) Save(ctx context.Context, dir string, upload core.Upload) (core.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return core.StoredFile{}, err
	}

	content := s.downscale(upload)
	name := uuid.New().String() + mimetype.Detect(upload.Content).Extension()
	rel := path.Join(filepath.ToSlash(dir), name)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating upload directory")
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "writing upload")
	}
	return core.StoredFile{
		Path:        rel,
		URL:         s.baseURL + "/" + rel,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Size:        int64(len(content)),
	}, nil
}

func (s *LocalStorage) downscale(upload core.Upload) []byte {
	if s.maxDimension <= 0 {
		return upload.Content
	}
	var format imaging.Format
	switch upload.ContentType {
	case "image/jpeg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return upload.Content
	}

	img, err := imaging.Decode(bytes.NewReader(upload.Content), imaging.AutoOrientation(true))
	if err != nil {
		s.logger.Warn("decoding image "+upload.Filename, err)
		return upload.Content
	}
	b := img.Bounds()
	if b.Dx() <= s.maxDimension && b.Dy() <= s.maxDimension {
		return upload.Content
	}

	var buf bytes.Buffer
	img = imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
	if err = imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		s.logger.Warn("encoding image "+upload.Filename, err)
		return upload.Content
	}
	return buf.Bytes()
}

func (s *LocalStorage) Delete(_ context.Context, p string) error {
	if p == "" || strings.Contains(p, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(p)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting upload")
	}
	return nil
}
