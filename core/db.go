package core

import (
	"context"
	"strings"
)

// Transactor runs fn atomically: every repository call made with the ctx handed to fn
// is committed together, or rolled back when fn returns an error.
// Nested calls join the outer transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// SafeOrderings keeps the orderings whose field is whitelisted, mapping API field names to columns.
func SafeOrderings(ords []DBOrdering, allowed map[string]string) []DBOrdering {
	safe := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if col, ok := allowed[strings.ToLower(ord.Field)]; ok {
			safe = append(safe, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return safe
}

// OrderClause renders orderings as a SQL ORDER BY list, or fallback when empty.
// Fields must have gone through SafeOrderings.
func OrderClause(ords []DBOrdering, fallback string) string {
	if len(ords) == 0 {
		return fallback
	}
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}
