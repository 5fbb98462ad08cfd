// Package inmemdb keeps every table in memory. Used by tests and DATABASE_ENGINE=memory.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type (
	memberKey struct {
		projectID int64
		userID    int64
	}

	yearKey struct {
		yearID      int64
		studentCode string
	}

	tables struct {
		users          map[int64]user.User
		years          map[int64]academic.AcademicYear
		certTypes      map[int64]certificate.Type
		submissions    map[int64]submission.Submission
		submissionLogs []submission.StatusLog
		submissionFile []submission.File
		projects       map[int64]project.Project
		participants   map[memberKey]project.Participant
		projectFiles   []project.File
		projectLogs    []project.StatusLog
		posts          map[int64]post.Post
		attachments    []post.Attachment
		linkHours      map[yearKey]importer.LinkHour
		applicants     map[yearKey]importer.Applicant
	}

	// DB serializes every operation. InTx holds the lock for the whole transaction
	// and restores a snapshot of the tables when it fails.
	DB struct {
		mu  sync.Mutex
		seq int64
		t   tables
	}

	txKey struct{}
)

func Open() *DB {
	return &DB{t: tables{
		users:        make(map[int64]user.User),
		years:        make(map[int64]academic.AcademicYear),
		certTypes:    make(map[int64]certificate.Type),
		submissions:  make(map[int64]submission.Submission),
		projects:     make(map[int64]project.Project),
		participants: make(map[memberKey]project.Participant),
		posts:        make(map[int64]post.Post),
		linkHours:    make(map[yearKey]importer.LinkHour),
		applicants:   make(map[yearKey]importer.Applicant),
	}}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t tables) clone() tables {
	return tables{
		users:          copyMap(t.users),
		years:          copyMap(t.years),
		certTypes:      copyMap(t.certTypes),
		submissions:    copyMap(t.submissions),
		submissionLogs: append([]submission.StatusLog(nil), t.submissionLogs...),
		submissionFile: append([]submission.File(nil), t.submissionFile...),
		projects:       copyMap(t.projects),
		participants:   copyMap(t.participants),
		projectFiles:   append([]project.File(nil), t.projectFiles...),
		projectLogs:    append([]project.StatusLog(nil), t.projectLogs...),
		posts:          copyMap(t.posts),
		attachments:    append([]post.Attachment(nil), t.attachments...),
		linkHours:      copyMap(t.linkHours),
		applicants:     copyMap(t.applicants),
	}
}

// lock acquires the DB unless ctx already runs inside one of its transactions.
func (db *DB) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) == db {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}

func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == db {
		return fn(ctx)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.t = snapshot
		return err
	}
	return nil
}

// Reset empties every table. Used between tests.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = Open().t
}

func paginate[T any](items []T, page core.Page) []T {
	start, end := page.Bounds(len(items))
	return items[start:end]
}

func contains(s, q string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(q))
}

// compare orders the column values produced by the per table field accessors.
func compare(a, b interface{}) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case int:
		return cmpInt(int64(x), int64(b.(int)))
	case int64:
		return cmpInt(x, b.(int64))
	case bool:
		return cmpInt(boolInt(x), boolInt(b.(bool)))
	case time.Time:
		return cmpInt(x.UnixNano(), b.(time.Time).UnixNano())
	case null.Time:
		return cmpInt(x.Time.UnixNano(), b.(null.Time).Time.UnixNano())
	case null.String:
		return strings.Compare(x.String, b.(null.String).String)
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// order sorts items by ords (already whitelisted), falling back to ascending ids.
func order[T any](items []T, ords []core.DBOrdering, field func(T, string) interface{}, id func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ords {
			c := compare(field(items[i], ord.Field), field(items[j], ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return id(items[i]) < id(items[j])
	})
}
