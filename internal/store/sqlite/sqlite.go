// Package sqlite provides the embedded annotation store used for local
// runs and store-level tests, backed by modernc.org/sqlite through
// database/sql.
package sqlite

import (
	_ "embed"

	"database/sql"

	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/annotbase/annotload/internal/store/sqlstore"
	"github.com/annotbase/annotload/pkg/errors"
)

//go:embed schema.sql
var schema string

// Open opens (creating if necessary) the sqlite store at path and applies
// the embedded schema. An empty path opens an in-memory store.
func Open(path string) (*sqlstore.Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapStore("open", err)
	}
	// The pipeline is single-threaded; a second connection would only
	// trip sqlite's writer lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapStore("open", err)
	}
	return sqlstore.New(db, sqlstore.DialectSQLite), nil
}
