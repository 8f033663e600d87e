package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arth-1/socialpost/internal/domain/eventbus"
	platformconfig "github.com/arth-1/socialpost/internal/platform/config"
	platformerrors "github.com/arth-1/socialpost/internal/platform/errors"
	"github.com/arth-1/socialpost/internal/utils"
)

func writeTestConfig(t *testing.T, server string) *platformconfig.Loader {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("IG_USERNAME", "")
	t.Setenv("IG_PASSWORD", "")

	dir := t.TempDir()
	if server == "" {
		server = `server:
  ip: 127.0.0.1
  port: 18080
`
	}
	yaml := fmt.Sprintf(`%slog:
  log_level: INFO
  log_dir: %s
  log_file: test.log
web:
  enabled: false
storage:
  enabled: true
  dsn: "file:bootstrap-%d?mode=memory&cache=shared"
history:
  driver: sqlite
  limit: 5
`, server, filepath.Join(dir, "logs"), time.Now().UnixNano())

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return platformconfig.NewLoader().WithDotEnv(false).WithPaths(path)
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	seen := map[string]bool{}
	for _, step := range steps {
		if seen[step.ID] {
			t.Fatalf("duplicate step %s", step.ID)
		}
		for _, dep := range step.DependsOn {
			if !seen[dep] {
				t.Fatalf("step %s depends on %s which runs later", step.ID, dep)
			}
		}
		seen[step.ID] = true
	}
	if steps[0].ID != "config:load" || steps[1].ID != "logging:init-provider" {
		t.Fatalf("config and logging must run first, got %s, %s", steps[0].ID, steps[1].ID)
	}
}

func TestExecuteInitGraph(t *testing.T) {
	state := &appState{loader: writeTestConfig(t, "")}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	defer state.close(context.Background())

	if state.config == nil || state.logger == nil {
		t.Fatal("config/logger not initialised")
	}
	if state.db == nil || state.audit == nil {
		t.Fatal("storage not initialised")
	}
	if !state.events.HasCallback(eventbus.EventInstagramPublished) {
		t.Fatal("audit handler not subscribed")
	}
	if state.history == nil || state.history.Limit() != 5 {
		t.Fatal("history not initialised")
	}
	if state.publisher == nil || state.compressor == nil {
		t.Fatal("publisher/compressor not initialised")
	}
	if state.improver != nil || state.generator != nil {
		t.Fatal("models should be unavailable without an API key")
	}
	if state.authToken != nil {
		t.Fatal("auth should be disabled by default")
	}
	if state.observabilityShutdown == nil {
		t.Fatal("observability shutdown hook not set")
	}

	router, err := buildRouter(state)
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	rec := httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/postToInstagram", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("postToInstagram GET: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generateImage", strings.NewReader(`{"prompt":"x"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("generateImage without model: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/publishes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("publishes: status %d", rec.Code)
	}
}

func TestExecuteInitGraph_AuthEnabled(t *testing.T) {
	state := &appState{loader: writeTestConfig(t, `server:
  ip: 127.0.0.1
  port: 18081
  token: test-secret
  auth:
    enabled: true
    expiry: 1h
    issuer: socialpost
`)}
	if err := executeInitSteps(context.Background(), InitGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	defer state.close(context.Background())

	router, err := buildRouter(state)
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}

	rec := httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/postToInstagram", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated publish: status %d", rec.Code)
	}

	token, _, err := state.authToken.GenerateToken("test")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/postToInstagram", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("authenticated publish without body: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health should stay public: status %d", rec.Code)
	}
}

func TestExecuteInitSteps_Errors(t *testing.T) {
	err := executeInitSteps(context.Background(), []initStep{
		{ID: "b", DependsOn: []string{"a"}, Execute: func(context.Context, *appState) error { return nil }},
	}, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}

	err = executeInitSteps(context.Background(), []initStep{
		{ID: "a", Kind: platformerrors.KindStorage, Execute: func(context.Context, *appState) error { return fmt.Errorf("disk full") }},
	}, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	if err := executeInitSteps(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil state")
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logCfg := &utils.LogCfg{
		LogLevel: "info",
		LogDir:   tmp,
		LogFile:  "graph.log",
		Console:  &strings.Builder{},
	}
	logger, err := utils.NewLogger(logCfg)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logBootstrapGraph(logger, InitGraph())
	logger.Close()

	data, err := os.ReadFile(filepath.Join(tmp, logCfg.LogFile))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "初始化依赖关系概览") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	for _, step := range InitGraph() {
		if !strings.Contains(content, step.ID) {
			t.Fatalf("expected graph output to contain %q, got: %s", step.ID, content)
		}
	}
}
