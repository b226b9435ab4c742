package sqlxrepos

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// uniqueViolation returns the constraint (postgres) or message (sqlite) of a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return sqliteErr.Error(), true
	}
	return "", false
}

// mapUnique returns the sentinel of the first column found in the violation detail,
// or err wrapped with msg.
func mapUnique(err error, msg string, sentinels map[string]error) error {
	if detail, ok := uniqueViolation(err); ok {
		for col, sentinel := range sentinels {
			if strings.Contains(detail, col) {
				return sentinel
			}
		}
	}
	return errors.Wrap(err, msg)
}

// likePattern escapes s for a `LIKE ? ESCAPE '\'` substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
