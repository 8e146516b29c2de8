package store

import (
	"context"
	"fmt"
	"time"

	"github.com/barakahspend/barakah/internal/queue"
	"github.com/barakahspend/barakah/internal/record"
)

// CreateWithMutation inserts a new record and its create queue entry in one
// transaction, so a crash between the two cannot strand a record that will
// never sync. Returns the assigned local id and the mutation id.
//
// The stable key's UNIQUE constraint rejects a double-submit of the same
// record; remote dedup rides on the same key via the backend's conflict
// constraint.
func (db *DB) CreateWithMutation(ctx context.Context, rec *record.Record) (int64, string, error) {
	if err := rec.Payload.Validate(); err != nil {
		return 0, "", err
	}
	payload, err := record.EncodePayload(rec.Payload)
	if err != nil {
		return 0, "", err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	kind := rec.Kind()
	insert := fmt.Sprintf(`
	INSERT INTO %s (remote_id, owner_id, stable_key, date, synced, payload, created_at, updated_at)
	VALUES (NULL, ?, ?, ?, 0, ?, ?, ?)`, kind.Table())

	res, err := tx.ExecContext(ctx, insert,
		rec.OwnerID,
		rec.StableKey,
		rec.Date,
		string(payload),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, "", fmt.Errorf("%w: failed to insert %s record: %v", ErrUnavailable, kind, err)
	}
	localID, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to read inserted %s id: %w", kind, err)
	}

	snapshot, err := queue.Snapshot{
		OwnerID:   rec.OwnerID,
		StableKey: rec.StableKey,
		Date:      rec.Date,
		Payload:   payload,
	}.Encode()
	if err != nil {
		return 0, "", err
	}

	mutationID, err := queue.InsertTx(ctx, tx, kind, queue.OpCreate, rec.StableKey, snapshot)
	if err != nil {
		return 0, "", err
	}

	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("%w: failed to commit create: %v", ErrUnavailable, err)
	}

	rec.LocalID = localID
	return localID, mutationID, nil
}

// UpdateWithMutation replaces a record's payload (and optionally its date),
// flags it unsynced, and enqueues an update mutation when the record is
// already known remotely. A record the backend has never seen gets no
// update entry; instead the snapshot on its still-pending create is
// refreshed so the eventual upsert carries the latest payload. That keeps
// one remote call per queued entry without coalescing distinct entries.
//
// Returns the mutation id, or "" when no entry was enqueued.
func (db *DB) UpdateWithMutation(ctx context.Context, kind record.Kind, localID int64, newPayload record.Payload, newDate string) (string, error) {
	if newPayload.Kind() != kind {
		return "", fmt.Errorf("payload kind %s does not match %s", newPayload.Kind(), kind)
	}
	if err := newPayload.Validate(); err != nil {
		return "", err
	}

	existing, err := db.Get(ctx, kind, localID)
	if err != nil {
		return "", err
	}

	date := existing.Date
	if newDate != "" {
		if _, err := time.Parse("2006-01-02", newDate); err != nil {
			return "", fmt.Errorf("invalid record date %q: %w", newDate, err)
		}
		date = newDate
	}

	payload, err := record.EncodePayload(newPayload)
	if err != nil {
		return "", err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	update := fmt.Sprintf(`
	UPDATE %s SET payload = ?, date = ?, synced = 0, updated_at = ? WHERE id = ?`, kind.Table())

	if _, err := tx.ExecContext(ctx, update,
		string(payload), date, time.Now().UTC().Format(time.RFC3339Nano), localID); err != nil {
		return "", fmt.Errorf("%w: failed to update %s record %d: %v", ErrUnavailable, kind, localID, err)
	}

	var mutationID string
	if existing.RemoteID != "" {
		snapshot, err := queue.Snapshot{
			RemoteID: existing.RemoteID,
			Date:     date,
			Payload:  payload,
		}.Encode()
		if err != nil {
			return "", err
		}
		mutationID, err = queue.InsertTx(ctx, tx, kind, queue.OpUpdate, existing.StableKey, snapshot)
		if err != nil {
			return "", err
		}
	} else {
		snapshot, err := queue.Snapshot{
			OwnerID:   existing.OwnerID,
			StableKey: existing.StableKey,
			Date:      date,
			Payload:   payload,
		}.Encode()
		if err != nil {
			return "", err
		}
		if err := queue.RefreshCreateTx(ctx, tx, existing.StableKey, snapshot); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: failed to commit update: %v", ErrUnavailable, err)
	}
	return mutationID, nil
}

// DeleteWithMutation removes a record locally and enqueues a delete
// mutation when the record exists remotely. A record the backend never
// accepted is simply dropped along with its unsettled queue entries.
//
// Returns the mutation id, or "" when no entry was enqueued.
func (db *DB) DeleteWithMutation(ctx context.Context, kind record.Kind, localID int64) (string, error) {
	existing, err := db.Get(ctx, kind, localID)
	if err != nil {
		return "", err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to begin transaction: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	del := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, kind.Table())
	if _, err := tx.ExecContext(ctx, del, localID); err != nil {
		return "", fmt.Errorf("%w: failed to delete %s record %d: %v", ErrUnavailable, kind, localID, err)
	}

	if _, err := queue.DeleteUnsettledTx(ctx, tx, existing.StableKey); err != nil {
		return "", err
	}

	var mutationID string
	if existing.RemoteID != "" {
		snapshot, err := queue.Snapshot{RemoteID: existing.RemoteID}.Encode()
		if err != nil {
			return "", err
		}
		mutationID, err = queue.InsertTx(ctx, tx, kind, queue.OpDelete, existing.StableKey, snapshot)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: failed to commit delete: %v", ErrUnavailable, err)
	}
	return mutationID, nil
}
