// Package connectivity observes whether the remote backend is reachable
// and publishes transitions between the two states.
//
// The sync engine depends only on the Monitor interface; the HTTP prober
// here is one pluggable implementation of the signal.
package connectivity

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// State is the current reachability of the backend.
type State int

const (
	// Unreachable means the last probe failed.
	Unreachable State = iota

	// Reachable means the last probe succeeded.
	Reachable
)

// String returns the state's name.
func (s State) String() string {
	if s == Reachable {
		return "reachable"
	}
	return "unreachable"
}

// Monitor exposes the connectivity signal consumed by the sync engine.
type Monitor interface {
	// IsReachable reports the current state.
	IsReachable() bool

	// Subscribe returns a channel receiving every state transition.
	// The channel is buffered; slow consumers miss intermediate flaps,
	// never the latest state.
	Subscribe() <-chan State
}

// ProberConfig configures the HTTP heartbeat prober.
type ProberConfig struct {
	// ProbeURL is the endpoint polled for liveness, typically the
	// backend's health route.
	ProbeURL string

	// Interval is the polling cadence (default: 10s).
	Interval time.Duration

	// Timeout bounds each probe request (default: 5s).
	Timeout time.Duration

	// Logger for transition activity.
	Logger *log.Logger
}

// DefaultProberConfig returns sensible defaults.
func DefaultProberConfig(probeURL string) *ProberConfig {
	return &ProberConfig{
		ProbeURL: probeURL,
		Interval: 10 * time.Second,
		Timeout:  5 * time.Second,
		Logger:   log.New(os.Stderr, "[connectivity] ", log.LstdFlags),
	}
}

// Prober is an HTTP heartbeat Monitor. It starts pessimistic (unreachable)
// and flips on the first successful probe.
type Prober struct {
	config *ProberConfig
	client *http.Client

	reachable atomic.Bool

	subsMu sync.Mutex
	subs   []chan State

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Monitor = (*Prober)(nil)

// NewProber creates a prober with the given configuration.
func NewProber(config *ProberConfig) *Prober {
	if config == nil {
		config = DefaultProberConfig("")
	}
	if config.Interval == 0 {
		config.Interval = 10 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[connectivity] ", log.LstdFlags)
	}
	return &Prober{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable implements Monitor.
func (p *Prober) IsReachable() bool {
	return p.reachable.Load()
}

// Subscribe implements Monitor.
func (p *Prober) Subscribe() <-chan State {
	ch := make(chan State, 8)
	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()
	return ch
}

// Start begins probing. An immediate probe runs before the first tick so
// startup does not wait a full interval for the initial state.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.probe(ctx)

		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.probe(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the probe goroutine to exit.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// probe runs one heartbeat and publishes the transition if the state
// changed.
func (p *Prober) probe(ctx context.Context) {
	up := p.check(ctx)
	if p.reachable.Swap(up) == up {
		return
	}

	state := Unreachable
	if up {
		state = Reachable
	}
	p.config.Logger.Printf("Backend became %s", state)
	p.notify(state)
}

// check performs the HTTP heartbeat.
func (p *Prober) check(ctx context.Context) bool {
	if p.config.ProbeURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ProbeURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// notify fans a transition out to subscribers without blocking on any of
// them.
func (p *Prober) notify(state State) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- state:
		default:
			// Drop the oldest buffered transition to make room for the
			// latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}
