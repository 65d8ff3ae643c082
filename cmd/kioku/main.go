// Package main is the kioku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/connectivity"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/memsync"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/remote"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/storage"
	"github.com/hyperjump/kioku/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kioku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory so that "kioku server" from a project dir
// picks up the local config. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "sync":
		runSync()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kioku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	deviceID := fs.String("device", "", "device identifier to bind at startup (otherwise POST /api/v1/identity)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if components.Remote != nil {
		go components.Monitor.Run(ctx, components.Remote.Ping, cfg.Remote.ProbeInterval)
	}
	go components.Memory.Start(ctx)
	go components.Index.RunAutoSave(ctx, cfg.Storage.SaveInterval)

	if *deviceID != "" {
		userID, err := components.Memory.Initialize(ctx, *deviceID)
		if err != nil {
			logger.Fatal("Failed to initialize identity", zap.Error(err))
		}
		logger.Info("identity bound", zap.String("user_id", userID))
	}

	srv := server.NewServer(server.Deps{
		Engine:   components.Engine,
		Memory:   components.Memory,
		Index:    components.Index,
		Monitor:  components.Monitor,
		Embedder: components.Embedder,
	}, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if err := components.Index.Save(shutdownCtx); err != nil {
		logger.Warn("index save failed", zap.String("dir", cfg.Storage.IndexDir), zap.Error(err))
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kioku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Hybrid mode merges local keyword, local semantic and (when online) remote results.
  • Use --mode keyword or --mode semantic to run a single local strategy.
  • Use --collection facts to search stored facts instead of messages.

Examples:
  kioku search react performance
  kioku search --mode semantic "make my app faster"
  kioku search --collection facts --limit 5 favourite editor
  kioku search --server "" --device laptop-01 react   # without a running server
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchModeDefaultFromConfig loads config at path and returns its default search mode.
// On load failure, returns hybrid.
func searchModeDefaultFromConfig(path string) string {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil || cfg.Search.DefaultMode == "" {
		return string(models.ModeHybrid)
	}
	return cfg.Search.DefaultMode
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. The flag package stops
// at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// searchRequest mirrors the body of POST /api/v1/search.
type searchRequest struct {
	Query string `json:"query"`
	models.SearchOptions
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultMode := searchModeDefaultFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search local storage directly)")
	limit := fs.Int("limit", 10, "number of results")
	mode := fs.String("mode", defaultMode, "search mode: keyword, semantic or hybrid")
	collection := fs.String("collection", string(models.CollectionMessages), "collection: messages or facts")
	userID := fs.String("user", "", "user id (defaults to the server identity)")
	deviceID := fs.String("device", "", "device identifier; derives the user id when --user is empty")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	searchMode, err := models.ParseSearchMode(*mode)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	coll := models.Collection(*collection)
	if !coll.Valid() {
		fmt.Printf("Unknown collection %q; use messages or facts\n", *collection)
		os.Exit(1)
	}

	req := searchRequest{
		Query: queryStr,
		SearchOptions: models.SearchOptions{
			UserID:     resolveUserID(*userID, *deviceID),
			Limit:      *limit,
			Mode:       searchMode,
			Collection: coll,
		},
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// The server owns the index files; go through its API while it runs.
		response, err = searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		if req.UserID == "" {
			fmt.Fprintln(os.Stderr, "Direct search needs --user or --device")
			os.Exit(1)
		}
		components, logger := directComponents(*configPathFlag)
		defer logger.Sync()
		defer components.Close()
		ctx := context.Background()
		components.probeOnce(ctx)
		response = components.Engine.Search(ctx, req.Query, req.SearchOptions)
	}

	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveUserID prefers an explicit user id and otherwise derives one from deviceID.
func resolveUserID(userID, deviceID string) string {
	if userID = strings.TrimSpace(userID); userID != "" {
		return userID
	}
	if deviceID = strings.TrimSpace(deviceID); deviceID != "" {
		return memsync.UserIDForDevice(deviceID)
	}
	return ""
}

func searchViaHTTP(serverURL string, req searchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	var response models.SearchResponse
	if err := decodeResponse(resp, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// decodeResponse checks the status code and decodes the JSON body into v.
func decodeResponse(resp *http.Response, want int, v interface{}) error {
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	EmbeddingProvider   string `json:"embedding_provider,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	RemoteProvider      string `json:"remote_provider,omitempty"`
	DatabasePath        string `json:"database_path,omitempty"`
	IndexDir            string `json:"index_dir,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	UserID         string                            `json:"user_id,omitempty"`
	Sync           models.SyncStatus                 `json:"sync"`
	Index          map[models.Collection]index.Stats `json:"index,omitempty"`
	CorruptKeys    []string                          `json:"corrupt_index_keys,omitempty"`
	EmbeddingCache *embedding.CacheStats             `json:"embedding_cache,omitempty"`
	DiskUsageBytes *int64                            `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse             `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read local storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components, logger := directComponents(*configPath)
		defer logger.Sync()
		defer components.Close()
		status = localStatus(components)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// localStatus builds the status report from components opened in this process.
func localStatus(c *Components) statusResponse {
	cfg := c.Config
	cacheStats := c.Embedder.Stats()
	status := statusResponse{
		Sync:           c.Memory.GetSyncStatus(),
		Index:          c.Index.Stats(),
		CorruptKeys:    c.Index.CorruptKeys(),
		EmbeddingCache: &cacheStats,
		Config: &statusConfigResponse{
			EmbeddingProvider:   cfg.Embedding.Provider,
			EmbeddingDimensions: cfg.Embedding.Dimensions,
			RemoteProvider:      cfg.Remote.Provider,
			DatabasePath:        cfg.Storage.DatabasePath,
			IndexDir:            cfg.Storage.IndexDir,
		},
	}
	if queued, err := c.Store.CountSyncItems(context.Background()); err == nil {
		status.Sync.QueueLength = int(queued)
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.IndexDir); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status
}

func writeStatusText(w io.Writer, status statusResponse) {
	if status.UserID != "" {
		fmt.Fprintf(w, "user_id:            %s\n", status.UserID)
	}
	for _, name := range models.Collections {
		st, ok := status.Index[name]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-19s %d   # %d with embeddings\n", string(name)+":", st.Documents, st.Embedded)
	}
	for _, key := range status.CorruptKeys {
		fmt.Fprintf(w, "corrupt_index:      %s\n", key)
	}
	if status.EmbeddingCache != nil {
		fmt.Fprintf(w, "embedding_cache:    %d/%d   # hits %d, misses %d\n",
			status.EmbeddingCache.Size, status.EmbeddingCache.Capacity, status.EmbeddingCache.Hits, status.EmbeddingCache.Misses)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + indices on disk\n", *status.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# sync")
	_ = cli.WriteSyncStatus(w, status.Sync, cli.OutputText)
	if status.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "embedding_provider: %s\n", status.Config.EmbeddingProvider)
		if status.Config.EmbeddingDimensions > 0 {
			fmt.Fprintf(w, "embedding_dims:     %d\n", status.Config.EmbeddingDimensions)
		}
		remoteProvider := status.Config.RemoteProvider
		if remoteProvider == "" {
			remoteProvider = "none (local only)"
		}
		fmt.Fprintf(w, "remote_provider:    %s\n", remoteProvider)
		if status.Config.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
		}
		if status.Config.IndexDir != "" {
			fmt.Fprintf(w, "index_dir:          %s\n", status.Config.IndexDir)
		}
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	var s statusResponse
	if err := decodeResponse(resp, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func runSync() {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	status, err := syncViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSyncStatus(os.Stdout, *status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func syncViaHTTP(serverURL string) (*models.SyncStatus, error) {
	resp, err := http.Post(serverURL+"/api/v1/sync", "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	var st models.SyncStatus
	if err := decodeResponse(resp, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path to write")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config written: %s\n", *configPath)
}

// writeDefaultConfig writes a config holding every default to path. It refuses to
// replace an existing file unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return config.Save(path, cfg)
}

// directComponents loads config and opens every component in-process, exiting on failure.
func directComponents(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

// Components holds initialized services.
type Components struct {
	Config   *config.Config
	Store    *storage.SQLiteStore
	Embedder *embedding.Provider
	Index    *index.Index
	Remote   remote.Store
	Monitor  *connectivity.Monitor
	Engine   *search.Engine
	Memory   *memsync.Service
}

// probeOnce sets the monitor from a single remote ping.
func (c *Components) probeOnce(ctx context.Context) {
	if c.Remote == nil {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.Config.Remote.Timeout)
	defer cancel()
	c.Monitor.SetOnline(c.Remote.Ping(pingCtx) == nil)
}

func (c *Components) Close() {
	if c.Memory != nil {
		_ = c.Memory.Close()
	}
	if c.Remote != nil {
		_ = c.Remote.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	model, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		logger.Warn("embedder unavailable, falling back to mock",
			zap.String("provider", cfg.Embedding.Provider),
			zap.Error(err))
		model = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	provider := embedding.NewProvider(model, embedding.ProviderConfig{
		CacheSize:     cfg.Embedding.CacheSize,
		Workers:       cfg.Embedding.Workers,
		MinTextLength: cfg.Embedding.MinTextLength,
		Logger:        logger,
	})

	blobs, err := storage.NewFileBlobStore(cfg.Storage.IndexDir)
	if err != nil {
		_ = provider.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize index dir: %w", err)
	}
	ix := index.New(provider, cfg.Embedding.Dimensions, blobs, logger)
	if loadErr := ix.Load(context.Background()); loadErr != nil {
		logger.Warn("index load incomplete", zap.String("dir", cfg.Storage.IndexDir), zap.Error(loadErr))
	}

	remoteStore, err := remote.New(cfg.Remote, logger)
	if err != nil {
		_ = provider.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize remote store: %w", err)
	}
	monitor := connectivity.NewMonitor(remoteStore != nil, logger)
	logger.Info("components initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("remote_provider", cfg.Remote.Provider),
		zap.Bool("remote_configured", remoteStore != nil))

	deps := memsync.Deps{
		Local:  store,
		Queue:  store,
		Index:  ix,
		Conn:   monitor,
		Logger: logger,
	}
	var searcher search.RemoteSearcher
	if remoteStore != nil {
		deps.Remote = remoteStore
		searcher = remoteStore
	}
	memory := memsync.New(deps, memsync.Config{
		MaxRetries: cfg.Sync.MaxRetries,
		AutoSync:   cfg.Sync.AutoSyncOrDefault(),
		Interval:   cfg.Sync.Interval,
	})
	engine := search.NewEngine(ix, searcher, monitor, &cfg.Search, logger)

	return &Components{
		Config:   cfg,
		Store:    store,
		Embedder: provider,
		Index:    ix,
		Remote:   remoteStore,
		Monitor:  monitor,
		Engine:   engine,
		Memory:   memory,
	}, nil
}

func printUsage() {
	fmt.Println(`kioku - Local-first hybrid search and synchronized memory

Usage:
  kioku server [flags]           Start the HTTP server
  kioku search [flags] <query>   Search messages or facts
  kioku status [flags]           Show index, embedding cache and sync status
  kioku sync [flags]             Replay queued writes against the remote store
  kioku init [flags]             Write a config file with default settings
  kioku version                  Show version
  kioku help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kioku/config.yaml)
  --debug            Enable debug logging
  --device string    Device identifier to bind at startup

Search Flags:
  --config string      Config file path (direct mode; also supplies the default mode)
  --server string      Server URL (default: http://localhost:8080). Use --server "" to search local storage directly.
  --limit int          Number of results (default: 10)
  --mode string        keyword, semantic or hybrid (default from config, or hybrid)
  --collection string  messages or facts (default: messages)
  --user string        User id (default: the server identity)
  --device string      Device identifier used to derive the user id
  --output string      text, compact or json (default: text)

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Sync Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Init Flags:
  --config string    Config file path to write (default: /usr/local/etc/kioku/config.yaml)
  --force            Overwrite an existing file

Examples:
  kioku init --config ./config.yaml
  kioku server --device laptop-01
  kioku search "react performance"
  kioku search --mode semantic --output json "make my app faster"
  kioku search --collection facts editor
  kioku status --output json
  kioku sync`)
}
