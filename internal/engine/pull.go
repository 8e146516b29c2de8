package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/barakahspend/barakah/internal/queue"
	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/store"
)

// Pull fetches the owner's authoritative records for every entity kind and
// merges them into the local store. Remote wins: a matching stable key has
// its local payload overwritten wholesale; an unknown stable key inserts a
// new record already flagged synced.
func (e *Engine) Pull(ctx context.Context) error {
	applied := 0

	for _, kind := range record.Kinds {
		rows, err := e.adapter.Pull(ctx, kind, e.config.OwnerID, time.Time{})
		if err != nil {
			return fmt.Errorf("pull %s: %w", kind, err)
		}

		for _, row := range rows {
			rc := store.RemoteCopy{
				RemoteID:  row.ID,
				OwnerID:   row.OwnerID,
				StableKey: row.StableKey,
				Date:      row.Date,
				Payload:   row.Payload,
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
			}
			if rc.StableKey == "" {
				// Records created outside this client have no stable key;
				// adopt the remote identity so re-pulls stay idempotent.
				rc.StableKey = row.ID
			}
			if err := e.db.ApplyRemote(ctx, kind, rc); err != nil {
				e.config.Logger.Printf("Failed to apply remote %s %s: %v", kind, rc.StableKey, err)
				continue
			}
			applied++
		}
	}

	e.config.Logger.Printf("Pull complete: applied=%d", applied)
	e.emit(Event{Type: EventPullComplete, Applied: applied})
	return nil
}

// patchBody strips identity fields from an update snapshot, leaving only
// the columns the backend should change.
func patchBody(snap queue.Snapshot) ([]byte, error) {
	body := struct {
		Date    string          `json:"date,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}{
		Date:    snap.Date,
		Payload: snap.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to build update patch: %w", err)
	}
	return data, nil
}
