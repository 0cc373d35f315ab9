// Package postgres provides the production annotation store over a
// PostgreSQL database, using pgx through the database/sql stdlib adapter.
// The schema is managed outside the loader; a run only reads lookup data,
// applies the deletion cascade and advances sequences.
package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/annotbase/annotload/internal/store/sqlstore"
	"github.com/annotbase/annotload/pkg/errors"
)

// pingTimeout bounds the connectivity check at open.
const pingTimeout = 10 * time.Second

// Open connects to the annotation store at the given DSN.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.WrapStore("open", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.WrapStore("open", err)
	}
	return sqlstore.New(db, sqlstore.DialectPostgres), nil
}
