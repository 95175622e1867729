package localstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/logger"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx so collection
// operations can run standalone or inside a transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DB struct {
	sql *sql.DB
}

var tables = []string{"tournaments", "matches", "match_groups", "team_matches", "teams"}

func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// SQLite allows a single writer; funnel everything through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local schema: %w", err)
	}

	logger.Log.Info("Opened local mirror store", zap.String("path", path))

	return &DB{sql: db}, nil
}

func createSchema(db *sql.DB) error {
	for _, t := range tables {
		stmt := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id            TEXT PRIMARY KEY,
				org_id        TEXT NOT NULL,
				tournament_id TEXT NOT NULL,
				group_id      TEXT NOT NULL DEFAULT '',
				synced        INTEGER NOT NULL DEFAULT 0,
				deleted       INTEGER NOT NULL DEFAULT 0,
				doc           TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_tournament ON %[1]s (org_id, tournament_id);`, t)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("table %s: %w", t, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

// ExecTx executes a function within a transaction
func (d *DB) ExecTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
