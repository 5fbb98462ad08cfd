// Package post manages the announcements shown on the portal home page.
package post

import (
	"bytes"
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/yuin/goldmark"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

const maxAttachments = 10

var (
	ErrNotFound           = core.NewNotFoundError("post")
	ErrAttachmentNotFound = core.NewNotFoundError("attachment")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post) (Post, error)
		// GetPost returns the post with its attachments.
		GetPost(ctx context.Context, id int64) (Post, error)
		// QueryPosts lists pinned posts first, then the newest.
		QueryPosts(ctx context.Context, filter QueryFilter, page core.Page) ([]Post, int, error)
		UpdatePost(ctx context.Context, p Post) (Post, error)
		DeletePost(ctx context.Context, id int64) error
		// IncrementPostViews bumps the view counter and returns the new value.
		IncrementPostViews(ctx context.Context, id int64) (int, error)
		AddPostAttachments(ctx context.Context, atts []Attachment) ([]Attachment, error)
		DeletePostAttachment(ctx context.Context, postID, attachmentID int64) (Attachment, error)
	}

	Service struct {
		repo          Repository
		files         core.FileStorage
		md            goldmark.Markdown
		validate      *validator.Validate
		maxUploadSize int64
	}
)

func NewService(repo Repository, files core.FileStorage, validate *validator.Validate, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(validate, "validate"),
	).CheckAndPanic()

	return &Service{
		repo:          repo,
		files:         files,
		md:            goldmark.New(),
		validate:      validate,
		maxUploadSize: conf.Media.MaxUploadSize,
	}
}

// Render converts markdown to HTML. Raw HTML in the source is omitted.
func (svc *Service) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := svc.md.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "rendering markdown")
	}
	return buf.String(), nil
}

func (svc *Service) Create(ctx context.Context, usr user.User, np NewPost) (Post, error) {
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Post{}, err
	}
	now := core.NowFunc()
	p := Post{
		Title:       np.Title,
		Content:     np.Content,
		Category:    np.Category,
		IsPinned:    np.IsPinned,
		IsPublished: np.IsPublished == nil || *np.IsPublished,
		AuthorID:    usr.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.IsPublished {
		p.PublishedAt = null.TimeFrom(now)
	}
	p, err := svc.repo.CreatePost(ctx, p)
	if err != nil {
		return Post{}, errors.Wrap(err, "creating post")
	}
	return svc.rendered(p)
}

func (svc *Service) rendered(p Post) (Post, error) {
	html, err := svc.Render(p.Content)
	if err != nil {
		return Post{}, err
	}
	p.ContentHTML = html
	return p, nil
}

// Get returns a post and counts the view. Drafts are only visible to admins.
func (svc *Service) Get(ctx context.Context, usr user.User, id int64) (Post, error) {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if !p.IsPublished && !usr.IsAdmin() {
		return Post{}, ErrNotFound
	}
	if p.ViewCount, err = svc.repo.IncrementPostViews(ctx, p.ID); err != nil {
		return Post{}, errors.Wrap(err, "counting view")
	}
	return svc.rendered(p)
}

func (svc *Service) Query(ctx context.Context, usr user.User, filter QueryFilter, page core.Page) ([]Post, core.PageInfo, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.PublishedOnly = !usr.IsAdmin()
	posts, total, err := svc.repo.QueryPosts(ctx, filter, page.Clean())
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying posts")
	}
	return posts, core.NewPageInfo(page, total), nil
}

func (svc *Service) Categories() []Category {
	return Categories
}

func (svc *Service) Update(ctx context.Context, id int64, up UpdatePost) (Post, error) {
	if err := svc.validate.Struct(up); err != nil {
		return Post{}, err
	}
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if title := core.CleanString(up.Title); title != "" {
		p.Title = title
	}
	if content := core.CleanString(up.Content); content != "" {
		p.Content = content
	}
	if up.Category != "" {
		p.Category = up.Category
	}
	now := core.NowFunc()
	if up.IsPublished != nil {
		if *up.IsPublished && !p.IsPublished {
			p.PublishedAt = null.TimeFrom(now)
		}
		p.IsPublished = *up.IsPublished
	}
	p.UpdatedAt = now
	if p, err = svc.repo.UpdatePost(ctx, p); err != nil {
		return Post{}, errors.Wrap(err, "updating post")
	}
	return svc.rendered(p)
}

func (svc *Service) SetPinned(ctx context.Context, id int64, pin Pin) (Post, error) {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	p.IsPinned = pin.IsPinned
	p.UpdatedAt = core.NowFunc()
	if p, err = svc.repo.UpdatePost(ctx, p); err != nil {
		return Post{}, errors.Wrap(err, "pinning post")
	}
	return svc.rendered(p)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeletePost(ctx, p.ID); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	for _, att := range p.Attachments {
		_ = svc.files.Delete(ctx, att.Path)
	}
	return nil
}

func (svc *Service) AddAttachments(ctx context.Context, id int64, uploads []core.Upload) (Post, error) {
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if len(uploads) == 0 {
		return Post{}, core.NewFieldError("files", "at least one file is required")
	}
	if len(p.Attachments)+len(uploads) > maxAttachments {
		return Post{}, core.NewFieldError("files", "a post holds at most "+strconv.Itoa(maxAttachments)+" attachments")
	}
	accept := func(core.Upload) bool { return true }
	if err := core.CheckUploads("files", uploads, svc.maxUploadSize, accept, "any"); err != nil {
		return Post{}, err
	}

	dir := "posts/" + strconv.FormatInt(p.ID, 10)
	atts := make([]Attachment, 0, len(uploads))
	for _, u := range uploads {
		stored, err := svc.files.Save(ctx, dir, u)
		if err != nil {
			svc.discard(ctx, atts)
			return Post{}, errors.Wrap(err, "storing attachment")
		}
		atts = append(atts, Attachment{
			PostID:      p.ID,
			Filename:    stored.Filename,
			Path:        stored.Path,
			URL:         stored.URL,
			ContentType: stored.ContentType,
			Size:        stored.Size,
			CreatedAt:   core.NowFunc(),
		})
	}
	if _, err := svc.repo.AddPostAttachments(ctx, atts); err != nil {
		svc.discard(ctx, atts)
		return Post{}, errors.Wrap(err, "saving attachments")
	}
	if p, err = svc.repo.GetPost(ctx, p.ID); err != nil {
		return Post{}, err
	}
	return svc.rendered(p)
}

func (svc *Service) DeleteAttachment(ctx context.Context, id, attachmentID int64) error {
	att, err := svc.repo.DeletePostAttachment(ctx, id, attachmentID)
	if err != nil {
		return err
	}
	_ = svc.files.Delete(ctx, att.Path)
	return nil
}

func (svc *Service) discard(ctx context.Context, atts []Attachment) {
	for _, att := range atts {
		_ = svc.files.Delete(ctx, att.Path)
	}
}
