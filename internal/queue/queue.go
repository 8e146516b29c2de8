// Package queue implements the durable mutation queue: an ordered log of
// write operations that have not yet been confirmed by the remote backend.
//
// Entries are processed in creation order. Two queued updates to the same
// record stay two entries; the queue never coalesces. Retry scheduling is
// per entry: a failed entry carries a next-attempt timestamp and simply is
// not due until it passes, so one failing entry never stalls the rest of
// the queue.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/barakahspend/barakah/internal/record"
)

// Operation tags what a queue entry does to its record.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Status is the lifecycle state of a queue entry.
//
// Transitions are monotonic along pending -> inflight -> {synced, failed,
// rejected}. A failed entry becomes eligible again once its next-attempt
// time passes, until the retry ceiling; rejected is terminal and needs user
// attention.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInflight Status = "inflight"
	StatusSynced   Status = "synced"
	StatusFailed   Status = "failed"
	StatusRejected Status = "rejected"
)

// Entry is one queued mutation.
type Entry struct {
	ID         int64
	MutationID string // unique per enqueue, distinct from the record's stable key
	Kind       record.Kind
	Op         Operation
	StableKey  string
	Payload    []byte // serialized snapshot handed to the remote adapter
	Status     Status
	RetryCount int
	// NextAttemptAt is zero for entries that are due immediately.
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// store's write path can append entries inside its own transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queue provides access to the mutation queue table.
type Queue struct {
	db *sql.DB
}

// New creates a Queue over an opened database. The schema must already be
// initialized (see store.InitSchema).
func New(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Schema is the mutation queue DDL, created alongside the record tables.
const Schema = `
CREATE TABLE IF NOT EXISTS mutation_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	mutation_id TEXT NOT NULL UNIQUE,
	kind TEXT NOT NULL,
	op TEXT NOT NULL,
	stable_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	retry_count INTEGER NOT NULL DEFAULT 0,
	next_attempt_at TEXT,
	last_error TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_status_created
    ON mutation_queue(status, created_at);
CREATE INDEX IF NOT EXISTS idx_queue_stable_key
    ON mutation_queue(stable_key);
`

// Enqueue appends a pending entry and returns its mutation id.
func (q *Queue) Enqueue(ctx context.Context, kind record.Kind, op Operation, stableKey string, payload []byte) (string, error) {
	return InsertTx(ctx, q.db, kind, op, stableKey, payload)
}

// InsertTx appends a pending entry using the given transaction or
// connection. The write path calls this inside the same transaction as the
// record write so a crash cannot strand a record that will never sync.
func InsertTx(ctx context.Context, tx DBTX, kind record.Kind, op Operation, stableKey string, payload []byte) (string, error) {
	mutationID := "mut_" + uuid.NewString()

	query := `
	INSERT INTO mutation_queue (mutation_id, kind, op, stable_key, payload, status, retry_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		mutationID,
		kind.String(),
		string(op),
		stableKey,
		string(payload),
		string(StatusPending),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s %s: %w", kind, op, err)
	}
	return mutationID, nil
}

// ListPending returns entries with status pending or failed, ordered by
// creation time ascending. Retry-exhausted and not-yet-due filtering is the
// engine's concern; the queue reports everything still unsettled.
func (q *Queue) ListPending(ctx context.Context) ([]*Entry, error) {
	query := `
	SELECT id, mutation_id, kind, op, stable_key, payload, status,
	       retry_count, next_attempt_at, last_error, created_at
	FROM mutation_queue
	WHERE status IN (?, ?)
	ORDER BY created_at ASC, id ASC
	`
	rows, err := q.db.QueryContext(ctx, query, string(StatusPending), string(StatusFailed))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get returns a single entry by id.
func (q *Queue) Get(ctx context.Context, id int64) (*Entry, error) {
	query := `
	SELECT id, mutation_id, kind, op, stable_key, payload, status,
	       retry_count, next_attempt_at, last_error, created_at
	FROM mutation_queue
	WHERE id = ?
	`
	rows, err := q.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get mutation %d: %w", id, err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sql.ErrNoRows
	}
	return entries[0], nil
}

// MarkStatus transitions an entry. On transition to failed the retry count
// is incremented and nextAttempt records when the entry becomes due again;
// pass the zero time for every other status.
func (q *Queue) MarkStatus(ctx context.Context, id int64, status Status, nextAttempt time.Time, lastError string) error {
	var next sql.NullString
	if !nextAttempt.IsZero() {
		next = sql.NullString{String: nextAttempt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	var query string
	if status == StatusFailed {
		query = `
		UPDATE mutation_queue
		SET status = ?, retry_count = retry_count + 1, next_attempt_at = ?, last_error = ?
		WHERE id = ?
		`
	} else {
		query = `
		UPDATE mutation_queue
		SET status = ?, next_attempt_at = ?, last_error = ?
		WHERE id = ?
		`
	}

	res, err := q.db.ExecContext(ctx, query, string(status), next, lastError, id)
	if err != nil {
		return fmt.Errorf("failed to mark mutation %d %s: %w", id, status, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mutation %d not found", id)
	}
	return nil
}

// PurgeSynced deletes all entries whose status is synced and returns how
// many were removed.
func (q *Queue) PurgeSynced(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM mutation_queue WHERE status = ?`, string(StatusSynced))
	if err != nil {
		return 0, fmt.Errorf("failed to purge synced mutations: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of entries in any of the given statuses.
// With no statuses it counts the whole queue.
func (q *Queue) Count(ctx context.Context, statuses ...Status) (int, error) {
	query := `SELECT COUNT(*) FROM mutation_queue`
	var args []interface{}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}

	var count int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count mutations: %w", err)
	}
	return count, nil
}

// Exists reports whether a mutation id has already been enqueued.
func (q *Queue) Exists(ctx context.Context, mutationID string) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mutation_queue WHERE mutation_id = ?`, mutationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check mutation %s: %w", mutationID, err)
	}
	return count > 0, nil
}

// RefreshCreateTx replaces the snapshot on a not-yet-settled create entry
// for the given stable key. Used when a never-synced record is edited: the
// eventual upsert should carry the latest payload, not the one captured at
// creation time.
func RefreshCreateTx(ctx context.Context, tx DBTX, stableKey string, snapshot []byte) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE mutation_queue SET payload = ?
		WHERE stable_key = ? AND op = ? AND status IN (?, ?)`,
		string(snapshot), stableKey, string(OpCreate),
		string(StatusPending), string(StatusFailed))
	if err != nil {
		return fmt.Errorf("failed to refresh create snapshot for %s: %w", stableKey, err)
	}
	return nil
}

// DeleteUnsettledTx removes pending/failed entries for a stable key, using
// the caller's transaction. The write path uses this when a record is
// deleted before its create ever reached the backend: replaying the create
// would resurrect a record the user already removed.
func DeleteUnsettledTx(ctx context.Context, tx DBTX, stableKey string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM mutation_queue
		WHERE stable_key = ? AND status IN (?, ?)`,
		stableKey, string(StatusPending), string(StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to drop unsettled mutations for %s: %w", stableKey, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// HasUnsettled reports whether any pending, inflight, or failed entry
// references the given stable key. The engine consults this before
// flagging a record synced: the flag must not outrun the queue.
func (q *Queue) HasUnsettled(ctx context.Context, stableKey string) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mutation_queue
		WHERE stable_key = ? AND status IN (?, ?, ?)`,
		stableKey, string(StatusPending), string(StatusInflight), string(StatusFailed)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check unsettled mutations for %s: %w", stableKey, err)
	}
	return count > 0, nil
}

// ListRejected returns rejected entries, oldest first. These need user
// attention and are never retried automatically.
func (q *Queue) ListRejected(ctx context.Context) ([]*Entry, error) {
	query := `
	SELECT id, mutation_id, kind, op, stable_key, payload, status,
	       retry_count, next_attempt_at, last_error, created_at
	FROM mutation_queue
	WHERE status = ?
	ORDER BY created_at ASC, id ASC
	`
	rows, err := q.db.QueryContext(ctx, query, string(StatusRejected))
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected mutations: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// scanEntries reads queue rows.
func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry

	for rows.Next() {
		var (
			e         Entry
			kindStr   string
			opStr     string
			statusStr string
			payload   string
			next      sql.NullString
			lastErr   sql.NullString
			createdAt string
		)
		err := rows.Scan(&e.ID, &e.MutationID, &kindStr, &opStr, &e.StableKey,
			&payload, &statusStr, &e.RetryCount, &next, &lastErr, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		kind, err := record.ParseKind(kindStr)
		if err != nil {
			return nil, fmt.Errorf("queue entry %d: %w", e.ID, err)
		}
		e.Kind = kind
		e.Op = Operation(opStr)
		e.Status = Status(statusStr)
		e.Payload = []byte(payload)
		e.LastError = lastErr.String

		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		if next.Valid {
			if t, err := time.Parse(time.RFC3339Nano, next.String); err == nil {
				e.NextAttemptAt = t
			}
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entries: %w", err)
	}
	return entries, nil
}
