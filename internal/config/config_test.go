package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if cfg.OwnerID != "local" {
		t.Errorf("owner id = %q, want local", cfg.OwnerID)
	}
	if cfg.DBPath != filepath.Join(dir, "barakah.db") {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Sync.RetryCeiling != 5 {
		t.Errorf("retry ceiling = %d, want 5", cfg.Sync.RetryCeiling)
	}
	if cfg.Sync.BackoffBase != time.Second {
		t.Errorf("backoff base = %v, want 1s", cfg.Sync.BackoffBase)
	}
	if cfg.Dashboard.Port != 8471 {
		t.Errorf("dashboard port = %d, want 8471", cfg.Dashboard.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
owner_id: user-42
backend:
  url: https://example.supabase.co/rest/v1
  api_key: anon
sync:
  retry_ceiling: 3
  drain_interval: 45s
dashboard:
  enabled: true
  port: 9000
`
	if err := os.WriteFile(filepath.Join(dir, "barakah.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if cfg.OwnerID != "user-42" {
		t.Errorf("owner id = %q, want user-42", cfg.OwnerID)
	}
	if cfg.Backend.URL != "https://example.supabase.co/rest/v1" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Sync.RetryCeiling != 3 {
		t.Errorf("retry ceiling = %d, want 3", cfg.Sync.RetryCeiling)
	}
	if cfg.Sync.DrainInterval != 45*time.Second {
		t.Errorf("drain interval = %v, want 45s", cfg.Sync.DrainInterval)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Port != 9000 {
		t.Errorf("dashboard = %+v", cfg.Dashboard)
	}
	// Untouched keys keep their defaults.
	if cfg.Sync.PullInterval != 5*time.Minute {
		t.Errorf("pull interval = %v, want default 5m", cfg.Sync.PullInterval)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BARAKAH_OWNER_ID", "env-user")
	t.Setenv("BARAKAH_BACKEND_URL", "https://env.example/rest/v1")

	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if cfg.OwnerID != "env-user" {
		t.Errorf("owner id = %q, want env-user", cfg.OwnerID)
	}
	if cfg.Backend.URL != "https://env.example/rest/v1" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "barakah.yaml")
	if err := os.WriteFile(path, []byte("sync:\n  retry_ceiling: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	changes := make(chan *Config, 4)
	cfg, err := Watch(dir, func(next *Config) { changes <- next })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if cfg.Sync.RetryCeiling != 3 {
		t.Fatalf("initial retry ceiling = %d, want 3", cfg.Sync.RetryCeiling)
	}

	// Let the watcher register before rewriting the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("sync:\n  retry_ceiling: 7\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-changes:
			if next.Sync.RetryCeiling == 7 {
				return
			}
		case <-deadline:
			t.Fatal("config change never observed")
		}
	}
}

func TestLogWriterDefaultsToStderr(t *testing.T) {
	if (Log{}).Writer() != os.Stderr {
		t.Error("empty log config should write to stderr")
	}
}
