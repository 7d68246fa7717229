package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	erp "github.com/eugener/silverbook/internal"
)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// notFoundErr translates sql.ErrNoRows to erp.ErrNotFound.
func notFoundErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return erp.ErrNotFound
	}
	return err
}

// conflictErr translates uniqueness violations to erp.ErrConflict.
func conflictErr(err error, entity string) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", entity, erp.ErrConflict)
	}
	return err
}

func checkRowsAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, erp.ErrNotFound)
	}
	return nil
}

func timeToStr(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// periodWhere returns an AND-joined date filter on col for p.
func periodWhere(col string, p erp.Period) (string, []any) {
	var where string
	var args []any
	if p.Start != "" {
		where += " AND " + col + " >= ?"
		args = append(args, p.Start)
	}
	if p.End != "" {
		where += " AND " + col + " <= ?"
		args = append(args, p.End)
	}
	return where, args
}
