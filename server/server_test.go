package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/server/handler/handlertest"
	"github.com/hsarchitect/folio/storage/objects"
	objectsfactory "github.com/hsarchitect/folio/storage/objects/factory"
)

type failingStore struct {
	*objects.NoopStore
}

func (failingStore) Check(context.Context) error { return errors.New("bucket unreachable") }

func TestInitializeObjectStore_UsesRegisteredFactory(t *testing.T) {
	objectsfactory.Register("stub-objects", func(cfg *config.Media) (objects.Store, error) {
		return failingStore{&objects.NoopStore{}}, nil
	})

	store, err := initializeObjectStore(&config.Media{Strategy: "stub-objects"})
	if err != nil {
		t.Fatalf("expected store, got error %v", err)
	}
	if _, ok := store.(failingStore); !ok {
		t.Fatalf("unexpected store type: %T", store)
	}
}

func TestInitializeObjectStore_Error(t *testing.T) {
	objectsfactory.Register("error-objects", func(cfg *config.Media) (objects.Store, error) {
		return nil, errors.New("failed")
	})

	if _, err := initializeObjectStore(&config.Media{Strategy: "error-objects"}); err == nil {
		t.Fatalf("expected error for failing factory")
	}
	if _, err := initializeObjectStore(&config.Media{Strategy: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestInitializeCatalog(t *testing.T) {
	cat, err := initializeCatalog(&config.Database{Driver: "memory"}, zerolog.Nop())
	if err != nil || cat == nil {
		t.Fatalf("expected memory catalog, got %v", err)
	}
	if err := cat.Ping(context.Background()); err != nil {
		t.Fatalf("memory catalog should always be reachable: %v", err)
	}

	if _, err := initializeCatalog(&config.Database{Driver: "sqlite", DSN: "x"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestInitializeRebuild(t *testing.T) {
	sched, err := initializeRebuild(&config.Rebuild{Strategy: "noop"}, zerolog.Nop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = sched.Close(context.Background())

	if _, err := initializeRebuild(&config.Rebuild{Strategy: "carrier-pigeon"}, zerolog.Nop(), prometheus.NewRegistry()); err == nil {
		t.Fatalf("expected error for unknown rebuild strategy")
	}
}

func TestCleanupAllowsEmptyState(t *testing.T) {
	cleanup(nil, zerolog.Nop())
	cleanup(handlertest.New(t).State, zerolog.Nop())
}

func testConfig() *config.Config {
	cfg := handlertest.Config()
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Database.Driver = "memory"
	cfg.Media.Strategy = "noop"
	cfg.Rebuild.Strategy = "noop"
	cfg.KeepAlive.Schedule = "@every 1h"
	return cfg
}

func TestStartServer_FailsWhenInitializationFails(t *testing.T) {
	cfg := testConfig()
	cfg.Media.Strategy = "unknown"

	if err := StartServer(cfg); err == nil {
		t.Fatalf("expected StartServer to fail for unknown strategy")
	}

	cfg = testConfig()
	cfg.KeepAlive.Schedule = "every so often"
	if err := StartServer(cfg); err == nil {
		t.Fatalf("expected StartServer to fail for an invalid keep-alive schedule")
	}
}

func TestStartServer_ShutsDownOnSignal(t *testing.T) {
	cfg := testConfig()

	done := make(chan struct{})
	go func() {
		if err := StartServer(cfg); err != nil {
			t.Errorf("StartServer returned error: %v", err)
		}
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	proc, _ := os.FindProcess(os.Getpid())
	_ = proc.Signal(syscall.SIGINT)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not shut down after signal")
	}
}

func TestKeepAliveLogsFailures(t *testing.T) {
	env := handlertest.New(t)
	env.State.Objects = failingStore{&objects.NoopStore{}}

	var buf bytes.Buffer
	keepAlive(env.State, zerolog.New(&buf))

	if !strings.Contains(buf.String(), "object store check failed") {
		t.Fatalf("expected object store failure to be logged, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "catalog ping failed") {
		t.Fatalf("memory catalog ping should not fail")
	}
}

func newTestRouter(t *testing.T) (*handlertest.Env, http.Handler, *prometheus.Registry) {
	t.Helper()
	env := handlertest.New(t)
	env.State.Cfg.Server.CorsAllowOrigins = []string{"https://studio.example.org"}
	reg := prometheus.NewRegistry()
	return env, NewRouter(env.State, zerolog.Nop(), reg), reg
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterHealthAndNotFound(t *testing.T) {
	_, h, _ := newTestRouter(t)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"ok":true}` {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}

	rr = do(h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound || strings.TrimSpace(rr.Body.String()) != `{"error":"Not found"}` {
		t.Fatalf("unexpected 404 response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRouterProtectsAdminRoutes(t *testing.T) {
	_, h, _ := newTestRouter(t)

	for _, target := range []string{"/projects/admin", "/project-types", "/mail/unread-count"} {
		rr := do(h, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", target, rr.Code)
		}
	}

	rr := do(h, httptest.NewRequest(http.MethodPut, "/studio/admin/profile", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for studio admin, got %d", rr.Code)
	}
}

func TestRouterAdminFlowPurgesPublicCache(t *testing.T) {
	env, h, _ := newTestRouter(t)
	token := "Bearer " + env.AdminToken(t)

	rr := do(h, httptest.NewRequest(http.MethodGet, "/projects/public", nil))
	if rr.Header().Get("X-Cache") != "MISS" || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("unexpected first public read %q %q", rr.Header().Get("X-Cache"), rr.Body.String())
	}
	rr = do(h, httptest.NewRequest(http.MethodGet, "/projects/public", nil))
	if rr.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected cached public read")
	}

	req := handlertest.JSON(t, http.MethodPost, "/projects/admin", map[string]any{"title": "Pavilion", "status": "published"})
	req.Header.Set("Authorization", token)
	rr = do(h, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, httptest.NewRequest(http.MethodGet, "/projects/public", nil))
	if rr.Header().Get("X-Cache") != "MISS" || !strings.Contains(rr.Body.String(), "Pavilion") {
		t.Fatalf("expected cache purge after mutation, got %q %q", rr.Header().Get("X-Cache"), rr.Body.String())
	}

	if pending := env.Pending(); len(pending) != 1 {
		t.Fatalf("expected one pending rebuild, got %v", pending)
	}
}

func TestRouterCORSAndMetrics(t *testing.T) {
	_, h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/projects/public", nil)
	req.Header.Set("Origin", "https://studio.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := do(h, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "https://studio.example.org" {
		t.Fatalf("unexpected preflight response %d %v", rr.Code, rr.Header())
	}

	do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	rr = do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `folio_http_requests_total{method="GET",route="/health",status="200"}`) {
		t.Fatalf("expected http metrics, got %q", rr.Body.String())
	}
}

func TestRouterLoginRateLimit(t *testing.T) {
	_, h, _ := newTestRouter(t)

	var last int
	for i := 0; i <= loginLimit; i++ {
		req := handlertest.JSON(t, http.MethodPost, "/auth/login", map[string]any{"email": "x@example.org", "password": "y"})
		last = do(h, req).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected login to be rate limited, got %d", last)
	}
}
