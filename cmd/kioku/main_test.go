package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/memsync"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/server"
	"go.uber.org/zap"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"react performance", "-mode", "keyword"},
			expected: []string{"-mode", "keyword", "react performance"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-mode", "keyword", "react performance"},
			expected: []string{"-mode", "keyword", "react performance"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"react performance"},
			expected: []string{"react performance"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-limit", "5"},
			expected: []string{"-limit", "5", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"react"}, "react"},
		{"multiple words", []string{"react", "performance"}, "react performance"},
		{"single quoted phrase", []string{"react performance"}, "react performance"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSearchConfigPathFromArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		defaultPath string
		want        string
	}{
		{"no config flag", []string{"-limit", "5", "query"}, "/default.yaml", "/default.yaml"},
		{"-config present", []string{"-config", "/custom.yaml", "query"}, "/default.yaml", "/custom.yaml"},
		{"--config present", []string{"--config", "/other.yaml"}, "/default.yaml", "/other.yaml"},
		{"config at end", []string{"query", "-config", "/end.yaml"}, "/default.yaml", "/end.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchConfigPathFromArgs(tt.args, tt.defaultPath)
			if got != tt.want {
				t.Errorf("searchConfigPathFromArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchModeDefaultFromConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("search:\n  default_mode: semantic\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := searchModeDefaultFromConfig(configPath); got != "semantic" {
		t.Errorf("searchModeDefaultFromConfig() = %q, want semantic", got)
	}
	if got := searchModeDefaultFromConfig(filepath.Join(dir, "nonexistent.yaml")); got != "hybrid" {
		t.Errorf("searchModeDefaultFromConfig(nonexistent) = %q, want hybrid", got)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestResolveUserID(t *testing.T) {
	derived := memsync.UserIDForDevice("laptop-01")
	tests := []struct {
		name   string
		user   string
		device string
		want   string
	}{
		{"explicit user wins", "u1", "laptop-01", "u1"},
		{"device derives user", "", "laptop-01", derived},
		{"device is trimmed", " ", " laptop-01 ", derived},
		{"nothing given", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveUserID(tt.user, tt.device); got != tt.want {
				t.Errorf("resolveUserID(%q, %q) = %q, want %q", tt.user, tt.device, got, tt.want)
			}
		})
	}
}

// testConfig returns a config rooted in a temp dir. remoteProvider "" keeps the
// default, which is local-only.
func testConfig(t *testing.T, remoteProvider string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath: filepath.Join(dir, "memory.db"),
			IndexDir:     filepath.Join(dir, "indices"),
		},
		Embedding: config.EmbeddingConfig{Provider: "mock", Dimensions: 8},
		Remote:    config.RemoteConfig{Provider: remoteProvider},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func testComponents(t *testing.T) *Components {
	t.Helper()
	c, err := initializeComponents(testConfig(t, "memory"), zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestInitializeComponents_directSearch(t *testing.T) {
	c := testComponents(t)
	ctx := context.Background()
	c.probeOnce(ctx)
	if !c.Monitor.IsOnline() {
		t.Fatal("memory remote should be reachable")
	}

	userID, err := c.Memory.Initialize(ctx, "laptop-01")
	if err != nil {
		t.Fatal(err)
	}
	session, _, err := c.Memory.StartSession(ctx, "perf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Memory.UpdateConsent(ctx, models.Consent{Prompts: true}); err != nil {
		t.Fatalf("UpdateConsent: %v", err)
	}
	msg := &models.Message{SessionID: session.ID, Role: models.RoleUser, Content: "How do I speed up React rendering?"}
	if _, err := c.Memory.AddMessage(ctx, msg); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	resp := c.Engine.Search(ctx, "react", models.SearchOptions{UserID: userID, Mode: models.ModeKeyword})
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}

	if err := c.Index.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	status := localStatus(c)
	if status.Index[models.CollectionMessages].Documents != 1 {
		t.Errorf("index stats = %+v", status.Index)
	}
	if status.DiskUsageBytes == nil || *status.DiskUsageBytes == 0 {
		t.Error("disk usage should be reported")
	}
}

func TestInitializeComponents_unknownRemote(t *testing.T) {
	cfg := testConfig(t, "cassandra")
	if _, err := initializeComponents(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown remote provider")
	}
}

func TestHTTPClients(t *testing.T) {
	c := testComponents(t)
	srv := server.NewServer(server.Deps{
		Engine:   c.Engine,
		Memory:   c.Memory,
		Index:    c.Index,
		Monitor:  c.Monitor,
		Embedder: c.Embedder,
	}, c.Config, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	if _, err := syncViaHTTP(ts.URL); err == nil || !strings.Contains(err.Error(), "409") {
		t.Errorf("sync before identity: err = %v, want 409", err)
	}
	if _, err := c.Memory.Initialize(context.Background(), "laptop-01"); err != nil {
		t.Fatal(err)
	}

	resp, err := searchViaHTTP(ts.URL, searchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("searchViaHTTP: %v", err)
	}
	if resp.Query != "anything" || resp.Mode != models.ModeHybrid {
		t.Errorf("response = %+v", resp)
	}

	st, err := syncViaHTTP(ts.URL)
	if err != nil {
		t.Fatalf("syncViaHTTP: %v", err)
	}
	if st.QueueLength != 0 || st.LastSyncAt == nil {
		t.Errorf("sync status = %+v", st)
	}

	status, err := statusViaHTTP(ts.URL)
	if err != nil {
		t.Fatalf("statusViaHTTP: %v", err)
	}
	if status.UserID != memsync.UserIDForDevice("laptop-01") {
		t.Errorf("user_id = %q", status.UserID)
	}
	if status.Config == nil || status.Config.RemoteProvider != "memory" {
		t.Errorf("config = %+v", status.Config)
	}
}

func TestDecodeResponse_errorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusBadGateway)
	_, _ = rec.WriteString(`{"error":"boom"}` + "\n")
	var v map[string]string
	err := decodeResponse(rec.Result(), http.StatusOK, &v)
	if err == nil || !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("decodeResponse error = %v", err)
	}
}

func TestWriteStatusText(t *testing.T) {
	var buf bytes.Buffer
	writeStatusText(&buf, statusResponse{
		UserID:      "u1",
		CorruptKeys: []string{"index/facts.bin"},
		Config:      &statusConfigResponse{EmbeddingProvider: "mock", RemoteProvider: "memory"},
	})
	out := buf.String()
	for _, sub := range []string{"user_id:            u1", "corrupt_index:      index/facts.bin", "# sync", "remote_provider:    memory"} {
		if !strings.Contains(out, sub) {
			t.Errorf("status text missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Search.DefaultMode != "hybrid" || cfg.Remote.ProbeInterval != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("expected error when config exists")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("force overwrite: %v", err)
	}
}

func TestInitializeComponents_defaultConfigSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, "")
	ctx := context.Background()

	first, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	if first.Remote != nil {
		t.Fatalf("default config should run without a remote store, got %T", first.Remote)
	}
	if _, err := first.Memory.Initialize(ctx, "laptop-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Memory.UpdateConsent(ctx, models.Consent{Prompts: true}); err != nil {
		t.Fatalf("UpdateConsent: %v", err)
	}
	outcome, err := first.Memory.SetFact(ctx, &models.Fact{Category: "pref", Key: "editor", Value: "vim"})
	if err != nil {
		t.Fatalf("SetFact: %v", err)
	}
	if outcome != memsync.OutcomeLocalApplied {
		t.Errorf("SetFact outcome = %s, want %s", outcome, memsync.OutcomeLocalApplied)
	}
	if err := first.Index.Save(ctx); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents after restart: %v", err)
	}
	defer second.Close()
	if _, err := second.Memory.Initialize(ctx, "laptop-01"); err != nil {
		t.Fatal(err)
	}
	facts, err := second.Memory.GetFacts(ctx)
	if err != nil {
		t.Fatalf("GetFacts: %v", err)
	}
	if len(facts) != 1 || facts[0].Value != "vim" {
		t.Errorf("facts after restart = %+v, want the vim fact", facts)
	}
	consent, err := second.Memory.GetConsent(ctx)
	if err != nil {
		t.Fatalf("GetConsent: %v", err)
	}
	if !consent.Prompts {
		t.Error("consent should survive a restart")
	}
	session, _, err := second.Memory.StartSession(ctx, "after restart")
	if err != nil {
		t.Fatal(err)
	}
	msg := &models.Message{SessionID: session.ID, Role: models.RoleUser, Content: "still here"}
	if _, err := second.Memory.AddMessage(ctx, msg); err != nil {
		t.Errorf("AddMessage after restart: %v", err)
	}
	if second.Monitor.IsOnline() {
		t.Error("monitor should report offline without a remote store")
	}
}
