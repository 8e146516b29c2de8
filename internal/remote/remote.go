// Package remote abstracts the authoritative backend behind an adapter
// exposing idempotent upsert, conditional update, delete, and pull.
//
// Failures surface through a three-way taxonomy the sync engine acts on:
// transient (retry with backoff), rejected (park for user attention), and
// not-found (the desired end state already holds).
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/barakahspend/barakah/internal/record"
)

// FailureKind classifies adapter errors.
type FailureKind int

const (
	// FailureTransient covers network errors, timeouts, and 5xx responses.
	// The mutation may succeed on retry.
	FailureTransient FailureKind = iota

	// FailureRejected covers validation and other 4xx responses. Retrying
	// the same payload will never succeed.
	FailureRejected

	// FailureNotFound means the target record is already absent remotely.
	FailureNotFound
)

// String returns the failure kind's name.
func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureRejected:
		return "rejected"
	case FailureNotFound:
		return "not-found"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Error is a classified adapter failure.
type Error struct {
	Kind       FailureKind
	StatusCode int // 0 when no HTTP response was received
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s remote failure (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s remote failure: %s", e.Kind, e.Message)
}

// IsTransient reports whether err is a retryable remote failure.
func IsTransient(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == FailureTransient
}

// IsRejected reports whether err is a non-retryable validation failure.
func IsRejected(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == FailureRejected
}

// IsNotFound reports whether err means the target is already gone remotely.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == FailureNotFound
}

// Record is an authoritative record as returned by Pull.
type Record struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	StableKey string          `json:"stable_key"`
	Date      string          `json:"date"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Adapter translates mutations and pulls into calls against the
// authoritative store. Implementations must make Upsert idempotent: the
// stable key is a uniqueness constraint remotely, so replaying the same
// payload never creates a duplicate.
type Adapter interface {
	// Upsert creates (or no-ops onto) the remote record identified by
	// stableKey and returns the backend-assigned remote identity.
	Upsert(ctx context.Context, kind record.Kind, payload []byte, stableKey string) (string, error)

	// Update patches the remote record. Returns a not-found failure if the
	// record was deleted out-of-band.
	Update(ctx context.Context, kind record.Kind, remoteID string, patch []byte) error

	// Delete removes the remote record. Returns a not-found failure if it
	// is already absent.
	Delete(ctx context.Context, kind record.Kind, remoteID string) error

	// Pull fetches the owner's authoritative records of one kind, oldest
	// first. A zero since fetches everything.
	Pull(ctx context.Context, kind record.Kind, ownerID string, since time.Time) ([]Record, error)
}
