package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS vehicle_snapshots (
  id            BIGSERIAL PRIMARY KEY,
  route_id      TEXT NOT NULL,
  received_at   TIMESTAMPTZ NOT NULL,
  vehicle_count INTEGER NOT NULL,
  ghost_count   INTEGER NOT NULL,
  payload       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS vehicle_snapshots_route_received_idx
  ON vehicle_snapshots (route_id, received_at DESC);
`

// EnsureSchema creates the snapshot archive table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
