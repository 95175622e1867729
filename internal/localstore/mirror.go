// Package localstore is the on-device mirror of the remote document store.
// Each collection keeps one row per document: the JSON document itself plus
// the sync bookkeeping columns (scope ids, synced flag, tombstone). Records
// written by local edit paths are always unsynced; inbound replication goes
// through ApplyRemote, the single gatekeeper that enforces the
// local-priority rule.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HayashidaReo/nikken-sync/internal/model"
)

var ErrNotFound = errors.New("local record not found")

// LiveMerge folds always-live fields (scores, penalties) from a remote
// document into a locally pending one. It returns the merged document and
// whether anything changed.
type LiveMerge[T model.Entity] func(local, remote T) (T, bool)

// GroupKey extracts the parent group id for nested collections.
type GroupKey[T model.Entity] func(T) string

type Collection[T model.Entity] struct {
	db        *DB
	table     string
	liveMerge LiveMerge[T]
	groupKey  GroupKey[T]
	normalize func(T) T
}

func NewCollection[T model.Entity](db *DB, table string) *Collection[T] {
	return &Collection[T]{db: db, table: table}
}

func (c *Collection[T]) Table() string { return c.table }

func (c *Collection[T]) groupID(data T) string {
	if c.groupKey == nil {
		return ""
	}
	return c.groupKey(data)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (c *Collection[T]) scanRecord(row rowScanner) (model.Synced[T], error) {
	var (
		rec             model.Synced[T]
		synced, deleted int
		doc             []byte
	)
	if err := row.Scan(&rec.OrganizationID, &rec.TournamentID, &synced, &deleted, &doc); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(doc, &rec.Data); err != nil {
		return rec, fmt.Errorf("failed to decode %s document: %w", c.table, err)
	}
	rec.IsSynced = synced == 1
	rec.Deleted = deleted == 1
	return rec, nil
}

func (c *Collection[T]) GetByID(ctx context.Context, id string) (model.Synced[T], error) {
	query := fmt.Sprintf(
		`SELECT org_id, tournament_id, synced, deleted, doc FROM %s WHERE id = ?`, c.table)

	rec, err := c.scanRecord(c.db.sql.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("failed to get %s record %s: %w", c.table, id, err)
	}
	return rec, nil
}

func (c *Collection[T]) queryRecords(ctx context.Context, query string, args ...interface{}) ([]model.Synced[T], error) {
	rows, err := c.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	recs := make([]model.Synced[T], 0)
	for rows.Next() {
		rec, err := c.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// List returns all live (non-tombstoned) records for a tournament.
func (c *Collection[T]) List(ctx context.Context, orgID, tournamentID string) ([]model.Synced[T], error) {
	query := fmt.Sprintf(`
		SELECT org_id, tournament_id, synced, deleted, doc FROM %s
		WHERE org_id = ? AND tournament_id = ? AND deleted = 0
		ORDER BY id`, c.table)
	return c.queryRecords(ctx, query, orgID, tournamentID)
}

// GetUnsynced returns every record with a pending local edit, tombstones
// included.
func (c *Collection[T]) GetUnsynced(ctx context.Context, orgID, tournamentID string) ([]model.Synced[T], error) {
	query := fmt.Sprintf(`
		SELECT org_id, tournament_id, synced, deleted, doc FROM %s
		WHERE org_id = ? AND tournament_id = ? AND synced = 0
		ORDER BY id`, c.table)
	return c.queryRecords(ctx, query, orgID, tournamentID)
}

func (c *Collection[T]) CountUnsynced(ctx context.Context, orgID, tournamentID string) (int, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE org_id = ? AND tournament_id = ? AND synced = 0`, c.table)

	var n int
	if err := c.db.sql.QueryRowContext(ctx, query, orgID, tournamentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unsynced %s: %w", c.table, err)
	}
	return n, nil
}

// Put upserts the full record, flags included.
func (c *Collection[T]) Put(ctx context.Context, rec model.Synced[T]) error {
	return c.putExec(ctx, c.db.sql, rec)
}

func (c *Collection[T]) putExec(ctx context.Context, exec SQLExecutor, rec model.Synced[T]) error {
	if c.normalize != nil {
		rec.Data = c.normalize(rec.Data)
	}
	doc, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", c.table, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, org_id, tournament_id, group_id, synced, deleted, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			org_id = excluded.org_id,
			tournament_id = excluded.tournament_id,
			group_id = excluded.group_id,
			synced = excluded.synced,
			deleted = excluded.deleted,
			doc = excluded.doc`, c.table)

	_, err = exec.ExecContext(ctx, query,
		rec.ID(),
		rec.OrganizationID,
		rec.TournamentID,
		c.groupID(rec.Data),
		boolInt(rec.IsSynced),
		boolInt(rec.Deleted),
		doc,
	)
	if err != nil {
		return fmt.Errorf("failed to put %s record %s: %w", c.table, rec.ID(), err)
	}
	return nil
}

// BulkPut inserts records inside the caller's transaction.
func (c *Collection[T]) BulkPut(ctx context.Context, exec SQLExecutor, recs []model.Synced[T]) error {
	for _, rec := range recs {
		if err := c.putExec(ctx, exec, rec); err != nil {
			return err
		}
	}
	return nil
}

// SaveLocal records a user edit: the document is stored unsynced so the
// next upload pass picks it up and inbound replication leaves it alone.
func (c *Collection[T]) SaveLocal(ctx context.Context, data T, orgID, tournamentID string) error {
	return c.Put(ctx, model.NewSynced(data, orgID, tournamentID))
}

// SoftDelete tombstones a record. It stays queryable for sync until the
// delete has been pushed, then HardDelete removes it.
func (c *Collection[T]) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted = 1, synced = 0 WHERE id = ?`, c.table)
	return c.execOne(ctx, query, id)
}

func (c *Collection[T]) MarkSynced(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET synced = 1 WHERE id = ?`, c.table)
	return c.execOne(ctx, query, id)
}

func (c *Collection[T]) execOne(ctx context.Context, query, id string) error {
	res, err := c.db.sql.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update %s record %s: %w", c.table, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Collection[T]) HardDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, c.table)
	if _, err := c.db.sql.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", c.table, id, err)
	}
	return nil
}

func (c *Collection[T]) DeleteByTournament(ctx context.Context, exec SQLExecutor, orgID, tournamentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE org_id = ? AND tournament_id = ?`, c.table)
	if _, err := exec.ExecContext(ctx, query, orgID, tournamentID); err != nil {
		return fmt.Errorf("failed to clear %s for tournament %s: %w", c.table, tournamentID, err)
	}
	return nil
}

// DeleteByGroup removes every record nested under one match group.
func (c *Collection[T]) DeleteByGroup(ctx context.Context, orgID, tournamentID, groupID string) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE org_id = ? AND tournament_id = ? AND group_id = ?`, c.table)
	if _, err := c.db.sql.ExecContext(ctx, query, orgID, tournamentID, groupID); err != nil {
		return fmt.Errorf("failed to clear %s for group %s: %w", c.table, groupID, err)
	}
	return nil
}

func (c *Collection[T]) DeleteAll(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s`, c.table)
	if _, err := c.db.sql.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.table, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
