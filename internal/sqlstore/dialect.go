package sqlstore

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// DatabaseFile is the SQLite file name inside DataDir.
const DatabaseFile = "gridbook.db"

// dialect captures what differs between the SQL engines.
type dialect struct {
	driver      string
	schema      string
	maxConns    int
	rebind      func(query string) string
	isDuplicate func(err error) bool
}

func dialectFor(config types.Config) (*dialect, string, error) {
	switch config.Backend {
	case types.BackendSQLite:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		dsn := "file:" + filepath.Join(dataDir, DatabaseFile) +
			"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		return &dialect{
			driver:      "sqlite",
			schema:      sqliteSchema,
			maxConns:    1,
			rebind:      func(q string) string { return q },
			isDuplicate: sqliteDuplicate,
		}, dsn, nil
	case types.BackendPostgres:
		return &dialect{
			driver:      "postgres",
			schema:      postgresSchema,
			rebind:      dollarPlaceholders,
			isDuplicate: postgresDuplicate,
		}, config.DSN, nil
	}
	return nil, "", fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
}

// dollarPlaceholders rewrites '?' placeholders as $1, $2, ...
// Queries in this package never contain a literal '?'.
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sqliteDuplicate(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func postgresDuplicate(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == "23505"
}
