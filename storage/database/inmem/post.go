package inmemdb

import (
	"context"
	"sort"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
)

type postRepository struct {
	db *DB
}

var _ post.Repository = (*postRepository)(nil) // interface compliance check

func NewPostRepository(db *DB) post.Repository {
	return &postRepository{db: db}
}

func (repo *postRepository) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	defer repo.db.lock(ctx)()

	p.ID = repo.db.nextID()
	p.Attachments = nil
	repo.db.t.posts[p.ID] = p
	p.Attachments = []post.Attachment{}
	return p, nil
}

func (repo *postRepository) withAttachments(p post.Post) post.Post {
	p.Attachments = []post.Attachment{}
	for _, att := range repo.db.t.attachments {
		if att.PostID == p.ID {
			p.Attachments = append(p.Attachments, att)
		}
	}
	return p
}

func (repo *postRepository) GetPost(ctx context.Context, id int64) (post.Post, error) {
	defer repo.db.lock(ctx)()

	p, ok := repo.db.t.posts[id]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	return repo.withAttachments(p), nil
}

func (repo *postRepository) QueryPosts(ctx context.Context, filter post.QueryFilter, page core.Page) ([]post.Post, int, error) {
	defer repo.db.lock(ctx)()

	posts := make([]post.Post, 0, len(repo.db.t.posts))
	for _, p := range repo.db.t.posts {
		if filter.PublishedOnly && !p.IsPublished {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !contains(p.Title, filter.Search) && !contains(p.Content, filter.Search) {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	total := len(posts)
	posts = paginate(posts, page)
	for i := range posts {
		posts[i] = repo.withAttachments(posts[i])
	}
	return posts, total, nil
}

func (repo *postRepository) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	defer repo.db.lock(ctx)()

	orig, ok := repo.db.t.posts[p.ID]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	p.ViewCount, p.AuthorID, p.CreatedAt = orig.ViewCount, orig.AuthorID, orig.CreatedAt
	p.Attachments = nil
	repo.db.t.posts[p.ID] = p
	return repo.withAttachments(p), nil
}

func (repo *postRepository) DeletePost(ctx context.Context, id int64) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.posts[id]; !ok {
		return post.ErrNotFound
	}
	delete(repo.db.t.posts, id)
	atts := repo.db.t.attachments[:0]
	for _, att := range repo.db.t.attachments {
		if att.PostID != id {
			atts = append(atts, att)
		}
	}
	repo.db.t.attachments = atts
	return nil
}

func (repo *postRepository) IncrementPostViews(ctx context.Context, id int64) (int, error) {
	defer repo.db.lock(ctx)()

	p, ok := repo.db.t.posts[id]
	if !ok {
		return 0, post.ErrNotFound
	}
	p.ViewCount++
	repo.db.t.posts[id] = p
	return p.ViewCount, nil
}

func (repo *postRepository) AddPostAttachments(ctx context.Context, atts []post.Attachment) ([]post.Attachment, error) {
	defer repo.db.lock(ctx)()

	out := make([]post.Attachment, 0, len(atts))
	for _, att := range atts {
		att.ID = repo.db.nextID()
		repo.db.t.attachments = append(repo.db.t.attachments, att)
		out = append(out, att)
	}
	return out, nil
}

func (repo *postRepository) DeletePostAttachment(ctx context.Context, postID, attachmentID int64) (post.Attachment, error) {
	defer repo.db.lock(ctx)()

	for i, att := range repo.db.t.attachments {
		if att.ID == attachmentID && att.PostID == postID {
			repo.db.t.attachments = append(repo.db.t.attachments[:i], repo.db.t.attachments[i+1:]...)
			return att, nil
		}
	}
	return post.Attachment{}, post.ErrAttachmentNotFound
}
