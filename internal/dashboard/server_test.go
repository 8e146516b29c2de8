package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/barakahspend/barakah/internal/engine"
	"github.com/barakahspend/barakah/internal/queue"
	"github.com/barakahspend/barakah/internal/record"
)

// startTestServer runs a server on a random port.
func startTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Port = 0
	cfg.Logger = log.New(io.Discard, "", 0)

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	time.Sleep(50 * time.Millisecond)
	return server
}

func TestServerStartStop(t *testing.T) {
	server := startTestServer(t, nil)
	if server.GetAddr() == "" {
		t.Fatal("server address is empty")
	}
}

func TestEventBroadcast(t *testing.T) {
	server := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if count := server.ClientCount(); count != 1 {
		t.Errorf("client count = %d, want 1", count)
	}

	server.Broadcast(engine.Event{
		Type:      engine.EventDrainComplete,
		Attempted: 3,
		Synced:    2,
		Failed:    1,
	})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	var ev engine.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("failed to unmarshal event: %v", err)
	}
	if ev.Type != engine.EventDrainComplete {
		t.Errorf("event type = %s, want drain_complete", ev.Type)
	}
	if ev.Synced != 2 || ev.Failed != 1 {
		t.Errorf("event = %+v", ev)
	}
}

func TestMultipleClientsReceiveBroadcast(t *testing.T) {
	server := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
		if err != nil {
			t.Fatalf("failed to connect client %d: %v", i, err)
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		conns[i] = conn
	}

	if count := server.ClientCount(); count != 3 {
		t.Errorf("client count = %d, want 3", count)
	}

	server.Broadcast(engine.Event{Type: engine.EventConnectivity, Reachable: true})

	for i, conn := range conns {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("client %d failed to read: %v", i, err)
		}
		var ev engine.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("client %d: bad event: %v", i, err)
		}
		if ev.Type != engine.EventConnectivity || !ev.Reachable {
			t.Errorf("client %d event = %+v", i, ev)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := startTestServer(t, nil)

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health body = %v", body)
	}
}

func TestStatsEndpoint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	conn, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := conn.Exec(queue.Schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	q := queue.New(conn)
	if _, err := q.Enqueue(context.Background(), record.KindExpense, queue.OpCreate, "key-1", []byte(`{}`)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	server := startTestServer(t, &Config{
		Stats: QueueStats(q, func() bool { return true }),
	})

	resp, err := http.Get("http://" + server.GetAddr() + "/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Pending != 1 {
		t.Errorf("pending = %d, want 1", stats.Pending)
	}
	if !stats.Reachable {
		t.Error("reachable = false, want true")
	}
}

func TestStatsEndpointUnconfigured(t *testing.T) {
	server := startTestServer(t, nil)

	resp, err := http.Get("http://" + server.GetAddr() + "/stats")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
