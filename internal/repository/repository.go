package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// mapError turns driver errors into the package sentinels, prefixed with
// the entity name ("movie not found").
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s %w", entity, ErrConflict)
	}
	return err
}

func requireAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return nil
}

// likePattern escapes LIKE wildcards in user input and wraps it for a
// substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func whereClause(wheres []string) string {
	if len(wheres) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(wheres, " AND ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) clause(paramStart int) (string, []interface{}) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", paramStart, paramStart+1), []interface{}{limit, offset}
}
