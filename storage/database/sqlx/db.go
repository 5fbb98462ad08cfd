// Package sqlxrepos implements the repositories on PostgreSQL.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

type (
	// DB runs repositories on a connection pool, or on the transaction carried by the context.
	DB struct {
		*sqlx.DB
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func New(db *sql.DB) *DB {
	return &DB{DB: sqlx.NewDb(db, "postgres")}
}

func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// exec returns the transaction of ctx, or the pool.
func (db *DB) exec(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.DB
}

func (db *DB) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, db.exec(ctx), dest, sqlx.Rebind(sqlx.DOLLAR, query), args...)
}

func (db *DB) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, db.exec(ctx), dest, sqlx.Rebind(sqlx.DOLLAR, query), args...)
}

func (db *DB) execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := db.exec(ctx).ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *DB) namedQuery(ctx context.Context, query string, arg interface{}) (*sqlx.Rows, error) {
	return sqlx.NamedQueryContext(ctx, db.exec(ctx), query, arg)
}

// insert runs a named INSERT ... RETURNING id.
func (db *DB) insert(ctx context.Context, query string, arg interface{}) (int64, error) {
	rows, err := db.namedQuery(ctx, query+" RETURNING id", arg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var id int64
	if rows.Next() {
		if err = rows.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, rows.Err()
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func pqCode(err error) pq.ErrorCode {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code
	}
	return ""
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == "23503"
}

// staleOrMissing tells why an optimistic UPDATE touched no row.
func (db *DB) staleOrMissing(ctx context.Context, table string, notFound error, cond string, args ...interface{}) error {
	var exists bool
	if err := db.get(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE "+cond+")", args...); err != nil {
		return errors.Wrap(err, "checking row existence")
	}
	if !exists {
		return notFound
	}
	return core.ErrStaleVersion
}

// where accumulates AND-ed conditions written with ? placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) search(q string, cols ...string) {
	if q == "" {
		return
	}
	like := "%" + q + "%"
	ors := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, col+" ILIKE ?")
		args = append(args, like)
	}
	w.add("("+strings.Join(ors, " OR ")+")", args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// queryPage selects one page of rows from "FROM ..." plus the total number of rows.
func (db *DB) queryPage(ctx context.Context, dest interface{}, cols, from string, w *where, orderBy string, page core.Page) (int, error) {
	var total int
	if err := db.get(ctx, &total, "SELECT COUNT(*) "+from+w.String(), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting rows")
	}
	q := fmt.Sprintf("SELECT %s %s%s ORDER BY %s LIMIT %d OFFSET %d", cols, from, w.String(), orderBy, page.Limit(), page.Offset())
	if err := db.selectAll(ctx, dest, q, w.args...); err != nil {
		return 0, errors.Wrap(err, "selecting rows")
	}
	return total, nil
}
