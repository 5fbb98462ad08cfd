package project_test

import (
	"bytes"
	"context"
	"image/color"
	"strconv"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
	inmemdb "github.com/mamamind47/sfa-efilling-sub001/storage/database/inmem"
)

type (
	// memFiles keeps saved uploads in a map. onSave runs before every save.
	memFiles struct {
		saved  map[string][]byte
		n      int
		onSave func()
	}

	// brokenFiles fails after the project files were written.
	brokenFiles struct {
		project.Repository
	}
)

func (m *memFiles) Save(_ context.Context, dir string, u core.Upload) (core.StoredFile, error) {
	if m.onSave != nil {
		m.onSave()
	}
	m.n++
	p := dir + "/" + strconv.Itoa(m.n)
	m.saved[p] = u.Content
	return core.StoredFile{Path: p, URL: "/media/" + p, Filename: u.Filename, ContentType: u.ContentType, Size: u.Size()}, nil
}

func (m *memFiles) Delete(_ context.Context, p string) error {
	delete(m.saved, p)
	return nil
}

func (r brokenFiles) AddProjectFiles(ctx context.Context, files []project.File) ([]project.File, error) {
	if _, err := r.Repository.AddProjectFiles(ctx, files); err != nil {
		return nil, err
	}
	return nil, errors.New("connection reset")
}

func documents(t *testing.T) ([]core.Upload, []core.Upload) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(4, 4, color.White), imaging.PNG))
	photos := make([]core.Upload, 5)
	for i := range photos {
		photos[i] = core.NewUpload("photo"+strconv.Itoa(i)+".png", buf.Bytes())
	}
	cert := core.NewUpload("certificate.pdf", []byte("%PDF-1.4\n%%EOF\n"))
	return photos, []core.Upload{cert}
}

func newUploadService(t *testing.T, wrap func(project.Repository) project.Repository) (*project.Service, project.Repository, *memFiles, user.User, project.Project) {
	t.Helper()
	db := inmemdb.Open()
	validate := validator.New()
	conf := &core.Config{SecretKey: "test-secret", Media: core.MediaConfig{MaxUploadSize: 1 << 20}}

	repo := inmemdb.NewProjectRepository(db)
	files := &memFiles{saved: map[string][]byte{}}
	users := user.NewService(inmemdb.NewUserRepository(db), nil, validate, conf)
	years := academic.NewService(inmemdb.NewAcademicRepository(db), validate)
	svcRepo := repo
	if wrap != nil {
		svcRepo = wrap(repo)
	}
	svc := project.NewService(db, svcRepo, years, users, files, nil, validate, conf)

	owner := user.User{ID: 100, Role: user.RoleStudent}
	p, err := repo.CreateProject(context.Background(), project.Project{Name: "Beach cleanup", CreatedBy: owner.ID, Status: project.StatusDraft, Version: 1})
	require.NoError(t, err)
	return svc, repo, files, owner, p
}

func TestService_UploadFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("first upload", func(t *testing.T) {
		svc, repo, files, owner, p := newUploadService(t, nil)
		photos, certs := documents(t)

		d, err := svc.UploadFiles(ctx, owner, p.ID, photos, certs)
		require.NoError(t, err)
		assert.Len(t, d.Files, 6)
		assert.Len(t, files.saved, 6)
		assert.Equal(t, p.Version+1, d.Version)

		got, err := repo.QueryProjectFiles(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got, 6)
	})

	t.Run("failed insert keeps nothing", func(t *testing.T) {
		svc, repo, files, owner, p := newUploadService(t, func(r project.Repository) project.Repository {
			return brokenFiles{r}
		})
		photos, certs := documents(t)

		_, err := svc.UploadFiles(ctx, owner, p.ID, photos, certs)
		assert.EqualError(t, errors.Cause(err), "connection reset")

		got, err := repo.QueryProjectFiles(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, files.saved)
		cur, err := repo.GetProject(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Version, cur.Version)
	})

	t.Run("approved while storing", func(t *testing.T) {
		svc, repo, files, owner, p := newUploadService(t, nil)
		files.onSave = func() {
			files.onSave = nil
			cur, err := repo.GetProject(ctx, p.ID)
			require.NoError(t, err)
			cur.Status = project.StatusApproved
			_, err = repo.UpdateProject(ctx, cur)
			require.NoError(t, err)
		}
		photos, certs := documents(t)

		_, err := svc.UploadFiles(ctx, owner, p.ID, photos, certs)
		assert.True(t, core.IsConflict(err), "UploadFiles() error = %v", err)

		got, err := repo.QueryProjectFiles(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, files.saved)
	})
}
