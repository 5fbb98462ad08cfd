package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamind47/sfa-efilling-sub001/core/post"
)

func Test_postApi(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	student := env.createStudent(t, "awe", "65010001")
	adminToken := env.getToken(t, admin)
	studentToken := env.getToken(t, student)

	create := func(t *testing.T, np post.NewPost) post.Post {
		t.Helper()
		rec := env.do(t, http.MethodPost, "/api/posts", adminToken, np)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var p post.Post
		unmarshal(t, rec, &p)
		return p
	}
	draft := false

	t.Run("students cannot post", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/posts", studentToken, post.NewPost{Title: "Hi", Content: "hello", Category: post.CategoryNews})
		checkCode(t, rec, http.StatusForbidden)
	})

	t.Run("invalid", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/posts", adminToken, post.NewPost{Title: "  ", Content: "hello", Category: "gossip"})
		checkCode(t, rec, http.StatusBadRequest)
		var fields map[string]string
		unmarshal(t, rec, &fields)
		assert.Contains(t, fields, "title")
		assert.Contains(t, fields, "category")
	})

	news := create(t, post.NewPost{Title: "Hours deadline", Content: "Submit **before** May 31.", Category: post.CategoryAnnouncement})
	guide := create(t, post.NewPost{Title: "How to file", Content: "1. Log in\n2. Upload", Category: post.CategoryGuide, IsPinned: true})
	hidden := create(t, post.NewPost{Title: "Upcoming", Content: "Soon", Category: post.CategoryNews, IsPublished: &draft})

	assert.Contains(t, news.ContentHTML, "<strong>before</strong>")
	assert.True(t, news.PublishedAt.Valid)
	assert.False(t, hidden.PublishedAt.Valid)

	t.Run("students see published posts, pinned first", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/posts", studentToken, nil)
		checkCode(t, rec, http.StatusOK)
		var body listBody[post.Post]
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 2)
		assert.Equal(t, guide.ID, body.Data[0].ID)
		assert.Equal(t, news.ID, body.Data[1].ID)

		rec = env.do(t, http.MethodGet, "/api/posts/"+itoa(hidden.ID), studentToken, nil)
		checkCode(t, rec, http.StatusNotFound)
	})

	t.Run("admins see drafts", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/posts?category=news", adminToken, nil)
		var body listBody[post.Post]
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, hidden.ID, body.Data[0].ID)
	})

	t.Run("views are counted", func(t *testing.T) {
		var p post.Post
		for i := 0; i < 2; i++ {
			rec := env.do(t, http.MethodGet, "/api/posts/"+itoa(news.ID), studentToken, nil)
			checkCode(t, rec, http.StatusOK)
			unmarshal(t, rec, &p)
		}
		assert.Equal(t, 2, p.ViewCount)
	})

	t.Run("publish", func(t *testing.T) {
		published := true
		rec := env.do(t, http.MethodPut, "/api/posts/"+itoa(hidden.ID), adminToken, post.UpdatePost{IsPublished: &published})
		checkCode(t, rec, http.StatusOK)
		var p post.Post
		unmarshal(t, rec, &p)
		assert.True(t, p.IsPublished)
		assert.True(t, p.PublishedAt.Valid)
	})

	t.Run("pin", func(t *testing.T) {
		rec := env.do(t, http.MethodPatch, "/api/posts/"+itoa(guide.ID)+"/pin", adminToken, post.Pin{IsPinned: false})
		checkCode(t, rec, http.StatusOK)
		var p post.Post
		unmarshal(t, rec, &p)
		assert.False(t, p.IsPinned)
	})

	t.Run("attachments", func(t *testing.T) {
		path := "/api/posts/" + itoa(news.ID) + "/attachments"
		req, rec := newMultipartRequest(t, http.MethodPost, path, adminToken, nil, formFile{"files", "calendar.pdf", pdfContent})
		env.app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)
		var p post.Post
		unmarshal(t, rec, &p)
		require.Len(t, p.Attachments, 1)

		rec = env.do(t, http.MethodDelete, path+"/"+itoa(p.Attachments[0].ID), adminToken, nil)
		checkCode(t, rec, http.StatusNoContent)
		rec = env.do(t, http.MethodDelete, path+"/"+itoa(p.Attachments[0].ID), adminToken, nil)
		checkCode(t, rec, http.StatusNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/posts/"+itoa(news.ID), adminToken, nil)
		checkCode(t, rec, http.StatusNoContent)
		rec = env.do(t, http.MethodGet, "/api/posts/"+itoa(news.ID), adminToken, nil)
		checkCode(t, rec, http.StatusNotFound)
	})
}
