package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/barakahspend/barakah/internal/record"
)

// RemoteCopy is an authoritative record as delivered by pull
// reconciliation, ready to be merged into the local store.
type RemoteCopy struct {
	RemoteID  string
	OwnerID   string
	StableKey string
	Date      string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Get retrieves a record by local id.
// Returns ErrNotFound if no such record exists.
func (db *DB) Get(ctx context.Context, kind record.Kind, localID int64) (*record.Record, error) {
	query := fmt.Sprintf(`
	SELECT id, remote_id, owner_id, stable_key, date, synced, payload, created_at, updated_at
	FROM %s WHERE id = ?`, kind.Table())

	return db.scanOne(ctx, kind, query, localID)
}

// GetByStableKey retrieves a record by its stable key.
// Returns ErrNotFound if no such record exists.
func (db *DB) GetByStableKey(ctx context.Context, kind record.Kind, stableKey string) (*record.Record, error) {
	query := fmt.Sprintf(`
	SELECT id, remote_id, owner_id, stable_key, date, synced, payload, created_at, updated_at
	FROM %s WHERE stable_key = ?`, kind.Table())

	return db.scanOne(ctx, kind, query, stableKey)
}

// ListOptions configures ListByOwner.
type ListOptions struct {
	// From and To bound the date range (inclusive from, exclusive to),
	// formatted YYYY-MM-DD. Empty means unbounded.
	From string
	To   string
	// UnsyncedOnly restricts results to records awaiting sync.
	UnsyncedOnly bool
	// Limit restricts the number of results (0 = no limit).
	Limit int
}

// ListByOwner returns the owner's records of one kind, newest date first.
func (db *DB) ListByOwner(ctx context.Context, kind record.Kind, ownerID string, opts ListOptions) ([]*record.Record, error) {
	query := fmt.Sprintf(`
	SELECT id, remote_id, owner_id, stable_key, date, synced, payload, created_at, updated_at
	FROM %s WHERE owner_id = ?`, kind.Table())
	args := []interface{}{ownerID}

	if opts.From != "" {
		query += ` AND date >= ?`
		args = append(args, opts.From)
	}
	if opts.To != "" {
		query += ` AND date < ?`
		args = append(args, opts.To)
	}
	if opts.UnsyncedOnly {
		query += ` AND synced = 0`
	}

	query += ` ORDER BY date DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	defer rows.Close()

	return scanRecords(kind, rows)
}

// MarkSynced writes the backend-confirmed remote identity onto the record
// matched by stable key and flags it synced.
func (db *DB) MarkSynced(ctx context.Context, kind record.Kind, stableKey, remoteID string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET remote_id = ?, synced = 1, updated_at = ? WHERE stable_key = ?`,
		kind.Table())

	res, err := db.conn.ExecContext(ctx, query,
		remoteID, time.Now().UTC().Format(time.RFC3339Nano), stableKey)
	if err != nil {
		return fmt.Errorf("failed to mark %s %s synced: %w", kind, stableKey, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Record was deleted locally while its create was in flight.
		// Nothing to flag; the delete entry will follow.
		return nil
	}
	return nil
}

// ApplyRemote merges one authoritative record into the local store.
//
// Remote wins: a record with a matching stable key has its payload, date,
// and remote identity overwritten wholesale; an unknown stable key inserts
// a new record already flagged synced.
func (db *DB) ApplyRemote(ctx context.Context, kind record.Kind, rc RemoteCopy) error {
	createdAt := rc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := rc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (remote_id, owner_id, stable_key, date, synced, payload, created_at, updated_at)
	VALUES (?, ?, ?, ?, 1, ?, ?, ?)
	ON CONFLICT(stable_key) DO UPDATE SET
		remote_id = excluded.remote_id,
		date = excluded.date,
		synced = 1,
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`, kind.Table())

	_, err := db.conn.ExecContext(ctx, query,
		rc.RemoteID,
		rc.OwnerID,
		rc.StableKey,
		rc.Date,
		string(rc.Payload),
		createdAt.UTC().Format(time.RFC3339Nano),
		updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to apply remote %s %s: %w", kind, rc.StableKey, err)
	}
	return nil
}

// CountUnsynced returns how many records of a kind are awaiting sync.
func (db *DB) CountUnsynced(ctx context.Context, kind record.Kind, ownerID string) (int, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE owner_id = ? AND synced = 0`, kind.Table())

	var count int
	if err := db.conn.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unsynced %s records: %w", kind, err)
	}
	return count, nil
}

// scanOne runs a single-row record query.
func (db *DB) scanOne(ctx context.Context, kind record.Kind, query string, args ...interface{}) (*record.Record, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s record: %w", kind, err)
	}
	defer rows.Close()

	records, err := scanRecords(kind, rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// scanRecords reads record rows and decodes their typed payloads.
func scanRecords(kind record.Kind, rows *sql.Rows) ([]*record.Record, error) {
	var records []*record.Record

	for rows.Next() {
		var (
			r         record.Record
			remoteID  sql.NullString
			synced    int
			payload   string
			createdAt string
			updatedAt string
		)
		err := rows.Scan(&r.LocalID, &remoteID, &r.OwnerID, &r.StableKey,
			&r.Date, &synced, &payload, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", kind, err)
		}

		r.RemoteID = remoteID.String
		r.Synced = synced != 0

		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			r.UpdatedAt = t
		}

		p, err := record.DecodePayload(kind, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.LocalID, err)
		}
		r.Payload = p

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s records: %w", kind, err)
	}
	return records, nil
}
