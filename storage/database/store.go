package database

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/post"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
	inmemdb "github.com/mamamind47/sfa-efilling-sub001/storage/database/inmem"
	sqlxrepos "github.com/mamamind47/sfa-efilling-sub001/storage/database/sqlx"
)

const EngineMemory = "memory"

// Store gathers the repositories of one storage engine.
type Store struct {
	Tx           core.Transactor
	Users        user.Repository
	Years        academic.Repository
	Certificates certificate.Repository
	Submissions  submission.Repository
	Projects     project.Repository
	Posts        post.Repository
	Imports      importer.Repository
	Stats        stats.Repository

	db *sql.DB // nil for the memory engine
}

// NewStore opens the storage engine selected by conf.Database.Engine.
func NewStore(conf *core.Config) (*Store, error) {
	if conf.Database.Engine == EngineMemory {
		return NewMemoryStore(inmemdb.Open()), nil
	}
	db, err := Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	return NewSQLStore(db), nil
}

func NewMemoryStore(db *inmemdb.DB) *Store {
	return &Store{
		Tx:           db,
		Users:        inmemdb.NewUserRepository(db),
		Years:        inmemdb.NewAcademicRepository(db),
		Certificates: inmemdb.NewCertificateRepository(db),
		Submissions:  inmemdb.NewSubmissionRepository(db),
		Projects:     inmemdb.NewProjectRepository(db),
		Posts:        inmemdb.NewPostRepository(db),
		Imports:      inmemdb.NewImportRepository(db),
		Stats:        inmemdb.NewStatsRepository(db),
	}
}

func NewSQLStore(sqlDB *sql.DB) *Store {
	db := sqlxrepos.New(sqlDB)
	return &Store{
		Tx:           db,
		Users:        sqlxrepos.NewUserRepository(db),
		Years:        sqlxrepos.NewAcademicRepository(db),
		Certificates: sqlxrepos.NewCertificateRepository(db),
		Submissions:  sqlxrepos.NewSubmissionRepository(db),
		Projects:     sqlxrepos.NewProjectRepository(db),
		Posts:        sqlxrepos.NewPostRepository(db),
		Imports:      sqlxrepos.NewImportRepository(db),
		Stats:        sqlxrepos.NewStatsRepository(db),
		db:           sqlDB,
	}
}

// DB returns the SQL connection pool, nil for the memory engine.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
