package post

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

type Category string

const (
	CategoryAnnouncement Category = "announcement"
	CategoryNews         Category = "news"
	CategoryActivity     Category = "activity"
	CategoryGuide        Category = "guide"
)

var Categories = []Category{CategoryAnnouncement, CategoryNews, CategoryActivity, CategoryGuide}

type Attachment struct {
	ID          int64     `json:"id" db:"id"`
	PostID      int64     `json:"post_id" db:"post_id"`
	Filename    string    `json:"filename" db:"filename"`
	Path        string    `json:"-" db:"path"`
	URL         string    `json:"url" db:"url"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Post struct {
	ID          int64        `json:"id" db:"id"`
	Title       string       `json:"title" db:"title"`
	Content     string       `json:"content" db:"content"` // markdown
	ContentHTML string       `json:"content_html,omitempty" db:"-"`
	Category    Category     `json:"category" db:"category"`
	IsPinned    bool         `json:"is_pinned" db:"is_pinned"`
	IsPublished bool         `json:"is_published" db:"is_published"`
	PublishedAt null.Time    `json:"published_at" db:"published_at"`
	ViewCount   int          `json:"view_count" db:"view_count"`
	AuthorID    int64        `json:"author_id" db:"author_id"`
	Attachments []Attachment `json:"attachments" db:"-"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

type NewPost struct {
	Title       string   `json:"title" validate:"required,notblank_,max=255"`
	Content     string   `json:"content" validate:"required,notblank_"`
	Category    Category `json:"category" validate:"required,oneof=announcement news activity guide"`
	IsPinned    bool     `json:"is_pinned"`
	IsPublished *bool    `json:"is_published"`
}

func (np *NewPost) Clean() {
	np.Title = core.CleanString(np.Title)
	np.Content = core.CleanString(np.Content)
}

type UpdatePost struct {
	Title       string   `json:"title" validate:"omitempty,max=255"`
	Content     string   `json:"content"`
	Category    Category `json:"category" validate:"omitempty,oneof=announcement news activity guide"`
	IsPublished *bool    `json:"is_published"`
}

type Pin struct {
	IsPinned bool `json:"is_pinned"`
}

type QueryFilter struct {
	Category Category `query:"category"`
	Search   string   `query:"search"`
	// PublishedOnly hides drafts; forced for non admins.
	PublishedOnly bool `query:"-"`
}
