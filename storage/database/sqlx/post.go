package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
)

const (
	postColumns = `id, title, content, category, is_pinned, is_published, published_at, view_count, author_id,
	created_at, updated_at`
	attachmentColumns = `id, post_id, filename, path, url, content_type, size, created_at`
)

type postRepository struct {
	db *DB
}

var _ post.Repository = (*postRepository)(nil) // interface compliance check

func NewPostRepository(db *DB) post.Repository {
	return &postRepository{db: db}
}

func (repo *postRepository) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO posts
		(title, content, category, is_pinned, is_published, published_at, view_count, author_id, created_at, updated_at)
		VALUES (:title, :content, :category, :is_pinned, :is_published, :published_at, :view_count, :author_id,
		:created_at, :updated_at)`, p)
	if err != nil {
		return post.Post{}, errors.Wrap(err, "inserting post")
	}
	p.ID = id
	p.Attachments = []post.Attachment{}
	return p, nil
}

func (repo *postRepository) withAttachments(ctx context.Context, posts []post.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]int64, len(posts))
	idx := make(map[int64]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		idx[posts[i].ID] = i
		posts[i].Attachments = []post.Attachment{}
	}
	var atts []post.Attachment
	err := repo.db.selectAll(ctx, &atts, `SELECT `+attachmentColumns+` FROM post_attachments
		WHERE post_id = ANY(?) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "selecting post attachments")
	}
	for _, att := range atts {
		i := idx[att.PostID]
		posts[i].Attachments = append(posts[i].Attachments, att)
	}
	return nil
}

func (repo *postRepository) GetPost(ctx context.Context, id int64) (post.Post, error) {
	var p post.Post
	if err := repo.db.get(ctx, &p, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id); err != nil {
		return post.Post{}, trapNoRowsErr(err, post.ErrNotFound, "finding post")
	}
	posts := []post.Post{p}
	if err := repo.withAttachments(ctx, posts); err != nil {
		return post.Post{}, err
	}
	return posts[0], nil
}

func (repo *postRepository) QueryPosts(ctx context.Context, filter post.QueryFilter, page core.Page) ([]post.Post, int, error) {
	w := &where{}
	if filter.PublishedOnly {
		w.add("is_published")
	}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	w.search(filter.Search, "title", "content")

	var posts []post.Post
	total, err := repo.db.queryPage(ctx, &posts, postColumns, "FROM posts", w, "is_pinned DESC, created_at DESC, id DESC", page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying posts")
	}
	if err = repo.withAttachments(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (repo *postRepository) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	n, err := repo.db.execute(ctx, `UPDATE posts SET title = ?, content = ?, category = ?, is_pinned = ?, is_published = ?,
		published_at = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Content, p.Category, p.IsPinned, p.IsPublished, p.PublishedAt, p.UpdatedAt, p.ID)
	if err != nil {
		return post.Post{}, errors.Wrap(err, "updating post")
	}
	if n == 0 {
		return post.Post{}, post.ErrNotFound
	}
	return repo.GetPost(ctx, p.ID)
}

func (repo *postRepository) DeletePost(ctx context.Context, id int64) error {
	n, err := repo.db.execute(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting post")
	}
	if n == 0 {
		return post.ErrNotFound
	}
	return nil
}

func (repo *postRepository) IncrementPostViews(ctx context.Context, id int64) (int, error) {
	var views int
	err := repo.db.get(ctx, &views, `UPDATE posts SET view_count = view_count + 1 WHERE id = ? RETURNING view_count`, id)
	if err != nil {
		return 0, trapNoRowsErr(err, post.ErrNotFound, "incrementing post views")
	}
	return views, nil
}

func (repo *postRepository) AddPostAttachments(ctx context.Context, atts []post.Attachment) ([]post.Attachment, error) {
	out := make([]post.Attachment, 0, len(atts))
	for _, att := range atts {
		id, err := repo.db.insert(ctx, `INSERT INTO post_attachments (post_id, filename, path, url, content_type, size, created_at)
			VALUES (:post_id, :filename, :path, :url, :content_type, :size, :created_at)`, att)
		if err != nil {
			return nil, errors.Wrap(err, "inserting post attachment")
		}
		att.ID = id
		out = append(out, att)
	}
	return out, nil
}

func (repo *postRepository) DeletePostAttachment(ctx context.Context, postID, attachmentID int64) (post.Attachment, error) {
	var att post.Attachment
	err := repo.db.get(ctx, &att, `DELETE FROM post_attachments WHERE id = ? AND post_id = ? RETURNING `+attachmentColumns,
		attachmentID, postID)
	if err != nil {
		return post.Attachment{}, trapNoRowsErr(err, post.ErrAttachmentNotFound, "deleting post attachment")
	}
	return att, nil
}
