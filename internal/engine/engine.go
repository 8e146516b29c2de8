// Package engine orchestrates synchronization between the local store and
// the remote backend.
//
// The engine drains the mutation queue in creation order whenever the
// backend is reachable (on the connectivity became-reachable transition, on
// a fixed-interval ticker, and once at startup), then pulls authoritative
// records back into the local store with remote-wins semantics.
//
// Retry scheduling is per entry: a transiently failing entry is stamped
// with a next-attempt time (base * 2^retryCount) and skipped until due, so
// it never stalls unrelated entries. Entries for the same record are still
// held back behind an earlier unsettled entry, preserving per-record
// ordering. Rejected (validation) failures are parked in a terminal status
// and never retried automatically.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/barakahspend/barakah/internal/connectivity"
	"github.com/barakahspend/barakah/internal/queue"
	"github.com/barakahspend/barakah/internal/remote"
	"github.com/barakahspend/barakah/internal/store"
)

// Config holds engine configuration.
type Config struct {
	// OwnerID is the principal whose records are pulled.
	OwnerID string

	// DrainInterval is the cadence of periodic drain passes while
	// reachable (default: 30s).
	DrainInterval time.Duration

	// PullInterval is the cadence of pull reconciliation while reachable
	// (default: 5m).
	PullInterval time.Duration

	// RetryCeiling is the maximum number of attempts per queue entry
	// (default: 5). Entries that exhaust it are retained but no longer
	// attempted automatically.
	RetryCeiling int

	// BackoffBase is the base of the exponential retry delay
	// (default: 1s).
	BackoffBase time.Duration

	// Logger for engine activity.
	Logger *log.Logger

	// OnEvent, when set, receives engine events (drain results, pull
	// results, connectivity transitions). Must not block.
	OnEvent func(Event)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(ownerID string) *Config {
	return &Config{
		OwnerID:       ownerID,
		DrainInterval: 30 * time.Second,
		PullInterval:  5 * time.Minute,
		RetryCeiling:  5,
		BackoffBase:   time.Second,
		Logger:        log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// EventType identifies an engine event.
type EventType string

const (
	// EventDrainComplete reports the outcome of one drain pass.
	EventDrainComplete EventType = "drain_complete"

	// EventPullComplete reports the outcome of one pull reconciliation.
	EventPullComplete EventType = "pull_complete"

	// EventConnectivity reports a reachability transition.
	EventConnectivity EventType = "connectivity"
)

// Event is a notification emitted by the engine.
type Event struct {
	Type      EventType `json:"type"`
	Reachable bool      `json:"reachable,omitempty"`
	Attempted int       `json:"attempted,omitempty"`
	Synced    int       `json:"synced,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Rejected  int       `json:"rejected,omitempty"`
	Pending   int       `json:"pending,omitempty"`
	Applied   int       `json:"applied,omitempty"`
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Attempted int
	Synced    int
	Failed    int
	Rejected  int
	Skipped   int
}

// Engine reconciles local state with the remote backend. Create with New,
// then either Start it for background operation or call SyncNow directly.
type Engine struct {
	db      *store.DB
	queue   *queue.Queue
	adapter remote.Adapter
	monitor connectivity.Monitor
	config  *Config

	// draining guards the single-flight drain pass. Compare-and-swap, not
	// check-then-set: drains are triggered from multiple goroutines.
	draining atomic.Bool

	// policyMu guards the retry fields of config, which the daemon may
	// adjust on a config reload while passes are running.
	policyMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// now is replaced in tests.
	now func() time.Time
}

// New creates an Engine. The database schema must already be initialized.
func New(db *store.DB, q *queue.Queue, adapter remote.Adapter, monitor connectivity.Monitor, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.DrainInterval == 0 {
		config.DrainInterval = 30 * time.Second
	}
	if config.PullInterval == 0 {
		config.PullInterval = 5 * time.Minute
	}
	if config.RetryCeiling == 0 {
		config.RetryCeiling = 5
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		db:      db,
		queue:   q,
		adapter: adapter,
		monitor: monitor,
		config:  config,
		now:     time.Now,
	}
}

// Start begins background synchronization. It returns immediately; call
// Stop to shut the engine down.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	transitions := e.monitor.Subscribe()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		drainTicker := time.NewTicker(e.config.DrainInterval)
		defer drainTicker.Stop()
		pullTicker := time.NewTicker(e.config.PullInterval)
		defer pullTicker.Stop()

		// Initial sync if reachable at start.
		if e.monitor.IsReachable() {
			e.SyncNow(ctx)
		}

		for {
			select {
			case <-ctx.Done():
				return

			case state := <-transitions:
				e.emit(Event{Type: EventConnectivity, Reachable: state == connectivity.Reachable})
				if state == connectivity.Reachable {
					e.config.Logger.Println("Backend reachable, starting sync")
					e.SyncNow(ctx)
				} else {
					e.config.Logger.Println("Backend unreachable, pausing sync")
				}

			case <-drainTicker.C:
				if e.monitor.IsReachable() {
					e.Drain(ctx)
				}

			case <-pullTicker.C:
				if e.monitor.IsReachable() {
					if err := e.Pull(ctx); err != nil {
						e.config.Logger.Printf("Pull reconciliation failed: %v", err)
					}
				}
			}
		}
	}()
}

// Stop shuts down background synchronization and waits for an in-progress
// pass to finish its current entry loop.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// SetRetryPolicy adjusts the retry ceiling and backoff base used by
// subsequent drain passes. Zero values leave the current setting in place.
func (e *Engine) SetRetryPolicy(ceiling int, base time.Duration) {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	if ceiling > 0 {
		e.config.RetryCeiling = ceiling
	}
	if base > 0 {
		e.config.BackoffBase = base
	}
}

// retryPolicy snapshots the retry settings for one drain pass.
func (e *Engine) retryPolicy() (int, time.Duration) {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	return e.config.RetryCeiling, e.config.BackoffBase
}

// SyncNow runs one drain pass followed by pull reconciliation.
func (e *Engine) SyncNow(ctx context.Context) {
	e.Drain(ctx)
	if err := e.Pull(ctx); err != nil {
		e.config.Logger.Printf("Pull reconciliation failed: %v", err)
	}
}

// Drain runs one drain pass over the mutation queue. At most one pass runs
// at a time; concurrent calls return immediately with an empty result.
//
// Sync failures never propagate to callers: they are recorded on the queue
// entries and observable through counts.
func (e *Engine) Drain(ctx context.Context) DrainResult {
	if !e.draining.CompareAndSwap(false, true) {
		return DrainResult{}
	}
	defer e.draining.Store(false)

	var result DrainResult

	entries, err := e.queue.ListPending(ctx)
	if err != nil {
		e.config.Logger.Printf("Failed to list pending mutations: %v", err)
		return result
	}
	if len(entries) == 0 {
		return result
	}

	e.config.Logger.Printf("Draining %d pending mutations", len(entries))
	now := e.now()
	ceiling, backoff := e.retryPolicy()

	// Stable keys whose earlier entry did not settle in this pass. Later
	// entries for the same record must wait so per-record order holds.
	held := make(map[string]bool)

	for _, entry := range entries {
		if held[entry.StableKey] {
			result.Skipped++
			continue
		}

		if entry.RetryCount >= ceiling {
			// Retry ceiling reached: retained, never auto-attempted.
			held[entry.StableKey] = true
			result.Skipped++
			continue
		}

		if !entry.NextAttemptAt.IsZero() && entry.NextAttemptAt.After(now) {
			// Not due yet; its backoff window is still open.
			held[entry.StableKey] = true
			result.Skipped++
			continue
		}

		result.Attempted++
		e.apply(ctx, entry, backoff, held, &result)
	}

	if purged, err := e.queue.PurgeSynced(ctx); err != nil {
		e.config.Logger.Printf("Failed to purge synced mutations: %v", err)
	} else if purged > 0 {
		e.config.Logger.Printf("Purged %d synced mutations", purged)
	}

	pending, err := e.queue.Count(ctx, queue.StatusPending, queue.StatusFailed)
	if err != nil {
		pending = -1
	}
	e.config.Logger.Printf("Drain complete: attempted=%d synced=%d failed=%d rejected=%d skipped=%d pending=%d",
		result.Attempted, result.Synced, result.Failed, result.Rejected, result.Skipped, pending)

	e.emit(Event{
		Type:      EventDrainComplete,
		Attempted: result.Attempted,
		Synced:    result.Synced,
		Failed:    result.Failed,
		Rejected:  result.Rejected,
		Pending:   pending,
	})
	return result
}

// apply dispatches one entry against the remote backend and settles its
// status.
func (e *Engine) apply(ctx context.Context, entry *queue.Entry, backoff time.Duration, held map[string]bool, result *DrainResult) {
	if err := e.queue.MarkStatus(ctx, entry.ID, queue.StatusInflight, time.Time{}, ""); err != nil {
		e.config.Logger.Printf("Failed to mark mutation %s in flight: %v", entry.MutationID, err)
		held[entry.StableKey] = true
		return
	}

	remoteID, err := e.dispatch(ctx, entry)

	switch {
	case err == nil:
		e.settleSynced(ctx, entry, remoteID)
		result.Synced++

	case remote.IsNotFound(err) && entry.Op != queue.OpCreate:
		// The target is already absent remotely; the desired end state
		// holds.
		e.config.Logger.Printf("Mutation %s target already gone remotely, treating as synced", entry.MutationID)
		e.settleSynced(ctx, entry, "")
		result.Synced++

	case remote.IsRejected(err):
		e.config.Logger.Printf("Mutation %s rejected by backend, needs attention: %v", entry.MutationID, err)
		if markErr := e.queue.MarkStatus(ctx, entry.ID, queue.StatusRejected, time.Time{}, err.Error()); markErr != nil {
			e.config.Logger.Printf("Failed to mark mutation %s rejected: %v", entry.MutationID, markErr)
		}
		held[entry.StableKey] = true
		result.Rejected++

	default:
		// Transient failure: schedule the next attempt instead of
		// sleeping; the delay doubles with each failed attempt.
		delay := backoff << uint(entry.RetryCount+1)
		next := e.now().Add(delay)
		e.config.Logger.Printf("Mutation %s failed (attempt %d), next attempt in %v: %v",
			entry.MutationID, entry.RetryCount+1, delay, err)
		if markErr := e.queue.MarkStatus(ctx, entry.ID, queue.StatusFailed, next, err.Error()); markErr != nil {
			e.config.Logger.Printf("Failed to mark mutation %s failed: %v", entry.MutationID, markErr)
		}
		held[entry.StableKey] = true
		result.Failed++
	}
}

// settleSynced marks an entry synced and, once no other unsettled entry
// references the record, writes the backend-confirmed identity back onto
// it. A record with a later edit still queued stays unsynced until that
// edit settles; its synced flag must not outrun the queue.
func (e *Engine) settleSynced(ctx context.Context, entry *queue.Entry, remoteID string) {
	if err := e.queue.MarkStatus(ctx, entry.ID, queue.StatusSynced, time.Time{}, ""); err != nil {
		e.config.Logger.Printf("Failed to mark mutation %s synced: %v", entry.MutationID, err)
	}
	if entry.Op == queue.OpDelete || remoteID == "" {
		return
	}

	unsettled, err := e.queue.HasUnsettled(ctx, entry.StableKey)
	if err != nil {
		e.config.Logger.Printf("Failed to check unsettled mutations for %s: %v", entry.StableKey, err)
		return
	}
	if unsettled {
		return
	}
	if err := e.db.MarkSynced(ctx, entry.Kind, entry.StableKey, remoteID); err != nil {
		e.config.Logger.Printf("Failed to flag %s %s synced locally: %v", entry.Kind, entry.StableKey, err)
	}
}

// dispatch translates a queue entry into the corresponding adapter call and
// returns the record's backend identity on success ("" for deletes).
func (e *Engine) dispatch(ctx context.Context, entry *queue.Entry) (string, error) {
	snap, err := queue.DecodeSnapshot(entry.Payload)
	if err != nil {
		// An undecodable snapshot will never transmit; park it.
		return "", &remote.Error{Kind: remote.FailureRejected, Message: err.Error()}
	}

	switch entry.Op {
	case queue.OpCreate:
		return e.adapter.Upsert(ctx, entry.Kind, entry.Payload, entry.StableKey)

	case queue.OpUpdate:
		patch, err := patchBody(snap)
		if err != nil {
			return "", &remote.Error{Kind: remote.FailureRejected, Message: err.Error()}
		}
		if err := e.adapter.Update(ctx, entry.Kind, snap.RemoteID, patch); err != nil {
			return "", err
		}
		return snap.RemoteID, nil

	case queue.OpDelete:
		return "", e.adapter.Delete(ctx, entry.Kind, snap.RemoteID)

	default:
		return "", &remote.Error{Kind: remote.FailureRejected,
			Message: fmt.Sprintf("unknown operation %q", entry.Op)}
	}
}

// emit delivers an event to the configured callback, if any.
func (e *Engine) emit(ev Event) {
	if e.config.OnEvent != nil {
		e.config.OnEvent(ev)
	}
}
