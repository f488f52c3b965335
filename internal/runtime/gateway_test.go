package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/storage/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func startGateway(t *testing.T, opts ...Option) *Gateway {
	t.Helper()
	gw, err := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		gw.Shutdown(ctx)
	})
	return gw
}

func TestGateway_New_RequiredOptions(t *testing.T) {
	// Should fail without config provider
	_, err := New()
	if err == nil {
		t.Fatal("Expected error without config provider")
	}
	if err.Error() != "config provider required (use WithFileConfig or WithConfigProvider)" {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestGateway_New_EmptyConfigPath(t *testing.T) {
	if _, err := New(WithFileConfig("")); err == nil {
		t.Error("Expected error for empty config path")
	}
}

func TestGateway_Start_And_Shutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, fmt.Sprintf(`
server:
  port: 0
storage:
  type: sqlite
  sqlite:
    path: %s
pipeline:
  run_timeout: 30s
`, filepath.Join(tmpDir, "data", "pipelines.db")))

	gw := startGateway(t, WithFileConfig(configPath))

	if gw.Addr() == nil {
		t.Fatal("Expected listener address after Start")
	}
	if gw.storage == nil {
		t.Error("Expected storage opened from config")
	}
	if gw.expiry == nil {
		t.Error("Expected expiry scheduler (enabled by default)")
	}
	if gw.RunTimeout() != 30*time.Second {
		t.Errorf("RunTimeout() = %v, want 30s", gw.RunTimeout())
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "data", "pipelines.db")); err != nil {
		t.Errorf("sqlite database not created: %v", err)
	}

	resp, err := http.Get("http://" + gw.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID from server middleware")
	}

	// Second start is rejected
	if err := gw.Start(context.Background()); err == nil {
		t.Error("Expected error on second Start")
	}
}

func TestGateway_Start_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, t.TempDir(), "storage:\n  type: postgres\n")

	gw, err := New(WithLogger(quietLogger()), WithFileConfig(configPath))
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.Start(context.Background()); err == nil {
		t.Error("Expected Start to fail for unknown storage type")
	}
}

// closeCountingStore records Close calls on an in-memory store.
type closeCountingStore struct {
	*memory.Store
	closed int
}

func (s *closeCountingStore) Close() error {
	s.closed++
	return s.Store.Close()
}

// busyPort returns a port that stays bound for the duration of the test.
func busyPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

func TestGateway_Start_ListenFailureReleasesResources(t *testing.T) {
	tests := []struct {
		name        string
		storage     string
		callerStore bool
		wantStorage bool
	}{
		{name: "storage from config", storage: "sqlite", wantStorage: false},
		{name: "caller supplied storage", storage: "memory", callerStore: true, wantStorage: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			dbPath := filepath.Join(tmpDir, "pipelines.db")
			configPath := writeConfig(t, tmpDir, fmt.Sprintf(`
server:
  port: %d
storage:
  type: %s
  sqlite:
    path: %s
expiry:
  enabled: false
`, busyPort(t), tt.storage, dbPath))

			opts := []Option{WithLogger(quietLogger()), WithFileConfig(configPath)}
			var caller *closeCountingStore
			if tt.callerStore {
				caller = &closeCountingStore{Store: memory.New()}
				opts = append(opts, WithStorageProvider(caller))
			}
			gw, err := New(opts...)
			if err != nil {
				t.Fatal(err)
			}

			if err := gw.Start(context.Background()); err == nil {
				t.Fatal("Expected Start to fail on a bound port")
			}

			if (gw.storage != nil) != tt.wantStorage {
				t.Errorf("storage retained = %v, want %v", gw.storage != nil, tt.wantStorage)
			}
			if caller != nil && caller.closed != 0 {
				t.Errorf("caller storage closed %d times", caller.closed)
			}
			if gw.ctx.Err() == nil {
				t.Error("Expected gateway context cancelled after failed Start")
			}
			if gw.started {
				t.Error("gateway marked started after failed Start")
			}
		})
	}
}

func TestGateway_Start_RetryAfterListenFailure(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "pipelines.db")
	configBody := `
server:
  port: %d
storage:
  type: sqlite
  sqlite:
    path: %s
expiry:
  enabled: false
`
	configPath := writeConfig(t, tmpDir, fmt.Sprintf(configBody, busyPort(t), dbPath))

	gw, err := New(WithLogger(quietLogger()), WithFileConfig(configPath))
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail on a bound port")
	}

	writeConfig(t, tmpDir, fmt.Sprintf(configBody, 0, dbPath))
	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		gw.Shutdown(ctx)
	})
	if gw.storage == nil {
		t.Error("Expected storage reopened on second Start")
	}
}

func TestGateway_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, `
server:
  port: 0
pipeline:
  step_timeout: 10s
  run_timeout: 1m
expiry:
  enabled: false
`)

	gw := startGateway(t, WithFileConfig(configPath), WithMemoryStorage())
	before := gw.runner.Load()

	writeConfig(t, tmpDir, `
server:
  port: 0
pipeline:
  step_timeout: 3s
  run_timeout: 2m
converter:
  base_url: http://converter.local
expiry:
  enabled: false
`)

	// Manually trigger reload (simulates config file change)
	newCfg, err := gw.config.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := gw.reload(newCfg); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if gw.RunTimeout() != 2*time.Minute {
		t.Errorf("RunTimeout() = %v, want 2m", gw.RunTimeout())
	}
	if gw.runner.Load() == before {
		t.Error("Expected a new runner after reload")
	}
}

func TestGateway_ExecutesChain(t *testing.T) {
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", domain.MimeTurtle)
		fmt.Fprintf(w, "%s -> %s", body, r.URL.Path)
	}))
	defer svc.Close()

	configPath := writeConfig(t, t.TempDir(), "server:\n  port: 0\nexpiry:\n  enabled: false\n")
	gw := startGateway(t, WithFileConfig(configPath), WithMemoryStorage())
	base := "http://" + gw.Addr().String()

	// Store a template, then run it.
	tmpl := fmt.Sprintf(`{"label":"two hops","steps":[{"endpoint":"%s/a"},{"endpoint":"%s/b"}]}`, svc.URL, svc.URL)
	resp, err := http.Post(base+"/pipelining/templates", "application/json", strings.NewReader(tmpl))
	if err != nil {
		t.Fatal(err)
	}
	var def domain.PipelineDefinition
	json.NewDecoder(resp.Body).Decode(&def)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template status = %d", resp.StatusCode)
	}

	resp, err = http.Post(base+"/pipelining/chain/"+def.ID, "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d: %s", resp.StatusCode, body)
	}
	if string(body) != "x -> /a -> /b" {
		t.Errorf("body = %q", body)
	}
	if resp.Header.Get("X-Pipeline-Timing") == "" {
		t.Error("Expected timing header")
	}
}
