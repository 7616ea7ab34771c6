// Package main provides the unified radar service that runs all components
// together:
// - Webhook ingestion (continuous): enhanced-transaction batches from providers
// - Logs feed (optional, continuous): WebSocket subscription + RPC enrichment
// - Sweeper (scheduled): retention eviction of stale clusters
// - Telegram (continuous): whale-hit alerts and the command bot
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mint-radar/internal/cluster"
	"mint-radar/internal/domain"
	"mint-radar/internal/idhash"
	"mint-radar/internal/notify"
	"mint-radar/internal/observability"
	"mint-radar/internal/ranking"
	"mint-radar/internal/refdata"
	"mint-radar/internal/solana"
	"mint-radar/internal/storage"
	chstore "mint-radar/internal/storage/clickhouse"
	"mint-radar/internal/storage/memory"
	"mint-radar/internal/storage/migrations"
	pgstore "mint-radar/internal/storage/postgres"
	"mint-radar/internal/webhook"
)

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	addr          string
	webhookSecret string
	wsEndpoint    string
	rpcEndpoint   string
	sweepInterval time.Duration

	// Components
	stores   *allStores
	refs     *refdata.Registry
	registry *cluster.Registry
	params   *paramsHolder
	seen     *idhash.SeenCache
	tg       *notify.Telegram
	bot      *notify.Bot
	alerter  *notify.Alerter
	handler  *webhook.Handler
	logger   *log.Logger

	// State
	mu        sync.Mutex
	startedAt time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	clusterStore   storage.ClusterStore
	paramsStore    storage.ParamsStore
	watchlistStore storage.WatchlistStore
	touchLogStore  storage.TouchLogStore
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("RADAR_ADDR", ":8080"), "HTTP listen address")
	webhookSecret := flag.String("webhook-secret", os.Getenv("WEBHOOK_SECRET"), "Shared secret for the webhook endpoint (empty disables auth)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	whalesFile := flag.String("whales-file", os.Getenv("WHALES_FILE"), "Path to the whale watchlist JSON file")
	labelsFile := flag.String("labels-file", os.Getenv("LABELS_FILE"), "Path to the address labels JSON file")
	telegramToken := flag.String("telegram-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token (empty disables notifications)")
	telegramChatID := flag.Int64("telegram-chat-id", envInt64("TELEGRAM_CHAT_ID", 0), "Telegram chat ID for alerts")
	adminIDs := flag.String("admin-ids", os.Getenv("TELEGRAM_ADMIN_IDS"), "Comma-separated Telegram user IDs allowed to mutate the watchlist")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint (required with --ws-endpoint)")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (empty disables the logs feed)")
	sweepInterval := flag.Duration("sweep-interval", 10*time.Minute, "Retention sweep interval")
	newMintMinScore := flag.Int("new-mint-min-score", 30, "Minimum score for new-mint notifications")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[radar] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	if *wsEndpoint != "" && *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required when --ws-endpoint is set")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Reference data: files merged with the persisted watchlist
	snapshot, err := refdata.LoadSnapshot(ctx, *whalesFile, *labelsFile, stores.watchlistStore)
	if err != nil {
		logger.Fatalf("Failed to load reference data: %v", err)
	}
	refs := refdata.NewRegistry(snapshot, stores.watchlistStore)
	logger.Printf("Reference data loaded: %d whales, %d labels", len(snapshot.Whales()), snapshot.LabelCount())

	// Cluster registry, warmed from the durable store
	registry := cluster.NewRegistry(refs, stores.clusterStore)
	restored, err := registry.WarmUp(ctx)
	if err != nil {
		logger.Fatalf("Failed to warm up cluster registry: %v", err)
	}
	logger.Printf("Restored %d clusters from store", restored)
	observability.UpdateClustersLive(registry.Len())

	// Scoring tunables
	params := loadParams(ctx, stores.paramsStore, logger)

	// Dedup cache shared between the webhook and the logs feed
	seen := idhash.NewSeenCache(0)

	// Notifications
	tg := notify.NewTelegram(*telegramToken, *telegramChatID)
	alerter := notify.NewAlerter(tg, params.Get, *newMintMinScore, log.New(os.Stdout, "[alerter] ", log.LstdFlags))
	bot := notify.NewBot(tg, registry, refs, params.Get, parseAdminIDs(*adminIDs), log.New(os.Stdout, "[bot] ", log.LstdFlags)).
		WithTouchLog(stores.touchLogStore)
	if !tg.Enabled() {
		logger.Println("Telegram token not set, notifications disabled")
	}

	// Webhook ingestion
	handler := webhook.NewHandler(*webhookSecret, registry, refs, seen, webhook.Callbacks{
		OnWhaleHit: alerter.WhaleHit,
		OnNewMint:  alerter.NewMint,
	}, log.New(os.Stdout, "[webhook] ", log.LstdFlags)).WithTouchLog(stores.touchLogStore)

	server := &Server{
		addr:          *addr,
		webhookSecret: *webhookSecret,
		wsEndpoint:    *wsEndpoint,
		rpcEndpoint:   *rpcEndpoint,
		sweepInterval: *sweepInterval,
		stores:        stores,
		refs:          refs,
		registry:      registry,
		params:        params,
		seen:          seen,
		tg:            tg,
		bot:           bot,
		alerter:       alerter,
		handler:       handler,
		logger:        logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			clusterStore:   memory.NewClusterStore(),
			paramsStore:    memory.NewParamsStore(),
			watchlistStore: memory.NewWatchlistStore(),
			touchLogStore:  memory.NewTouchLogStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		clusterStore:   pgstore.NewClusterStore(pool),
		paramsStore:    pgstore.NewParamsStore(pool),
		watchlistStore: pgstore.NewWatchlistStore(pool),
		touchLogStore:  chstore.NewTouchLogStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	logger.Println("Stores ready (postgres + clickhouse)")
	return stores, cleanup, nil
}

// paramsHolder guards the live scoring tunables. Readers get a copy.
type paramsHolder struct {
	mu sync.RWMutex
	p  domain.ScoringParams
}

func (h *paramsHolder) Get() domain.ScoringParams {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p
}

func (h *paramsHolder) Set(p domain.ScoringParams) {
	h.mu.Lock()
	h.p = p
	h.mu.Unlock()
}

// loadParams restores persisted tunables, falling back to defaults on first
// run. A store error is not fatal: the service runs with defaults and the
// operator can re-save.
func loadParams(ctx context.Context, store storage.ParamsStore, logger *log.Logger) *paramsHolder {
	h := &paramsHolder{p: domain.DefaultScoringParams()}

	p, err := store.Load(ctx)
	switch {
	case err == nil:
		h.Set(p)
		logger.Println("Scoring params restored from store")
	case errors.Is(err, storage.ErrNotFound):
		logger.Println("No stored scoring params, using defaults")
	default:
		logger.Printf("Failed to load scoring params, using defaults: %v", err)
	}
	return h
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting radar...")

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, 3)

	// Retention sweeper
	sweeper := ranking.NewSweeper(s.registry, func() int {
		return s.params.Get().WindowMinutes
	}, s.sweepInterval, log.New(os.Stdout, "[sweeper] ", log.LstdFlags))
	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("sweeper: %w", err)
		}
	}()

	// Telegram bot long-poll
	if s.tg.Enabled() {
		go func() {
			if err := s.bot.Run(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("telegram bot: %w", err)
			}
		}()
	}

	// Optional logs feed
	if s.wsEndpoint != "" {
		go func() {
			if err := s.runFeed(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("logs feed: %w", err)
			}
		}()
	}

	// HTTP server
	go s.startHTTPServer(s.addr)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runFeed subscribes to logs mentioning watched whales and AMM programs and
// registers the resulting touches through the same path as the webhook.
func (s *Server) runFeed(ctx context.Context) error {
	mentions := solana.FeedMentions(s.refs.Snapshot())
	s.logger.Printf("Starting logs feed with %d mention filters", len(mentions))

	ws, err := solana.NewWSClient(ctx, s.wsEndpoint, mentions, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	rpc := solana.NewHTTPClient(s.rpcEndpoint)
	feed := solana.NewFeed(ws, rpc, s.registry, s.refs, s.seen, log.New(os.Stdout, "[feed] ", log.LstdFlags))
	return feed.Run(ctx)
}

// startHTTPServer starts the HTTP server for ingestion/health/metrics/status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.Handle("/webhook", s.handler)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status and read APIs
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/winners", s.handleWinners)
	mux.HandleFunc("/params", s.handleParams)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	ClustersLive int    `json:"clusters_live"`
	Whales       int    `json:"whales"`
	FeedEnabled  bool   `json:"feed_enabled"`
	BotEnabled   bool   `json:"bot_enabled"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()

	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(started).String(),
		ClustersLive: s.registry.Len(),
		Whales:       len(s.refs.Snapshot().Whales()),
		FeedEnabled:  s.wsEndpoint != "",
		BotEnabled:   s.tg.Enabled(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// winnerResponse is one ranked mint in the /winners response.
type winnerResponse struct {
	Mint       string             `json:"mint"`
	Score      int                `json:"score"`
	LastSeenAt int64              `json:"last_seen_at"`
	Touches    domain.TouchCounts `json:"touches"`
	SolInflow  float64            `json:"sol_inflow"`
}

// handleWinners returns the current ranking as JSON. An optional limit query
// parameter tightens the configured result cap for one request.
func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	p := s.params.Get()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if n < p.Limit {
			p.Limit = n
		}
	}

	winners := ranking.TopWinners(s.registry, s.refs.Snapshot(), time.Now().UnixMilli(), p)
	observability.RecordWinnersQuery()

	resp := make([]winnerResponse, 0, len(winners))
	for _, win := range winners {
		resp = append(resp, winnerResponse{
			Mint:       win.MintID,
			Score:      win.Score,
			LastSeenAt: win.Entry.LastSeenAt,
			Touches:    win.Entry.Counts,
			SolInflow:  win.Entry.SolInflow,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleParams exposes the scoring tunables: GET returns the live values,
// PUT validates, persists, and applies new ones. Mutation requires the
// webhook secret.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.params.Get())

	case http.MethodPut:
		if s.webhookSecret != "" && r.Header.Get(webhook.SecretHeader) != s.webhookSecret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var p domain.ScoringParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if err := s.stores.paramsStore.Save(r.Context(), p); err != nil {
			if errors.Is(err, domain.ErrInvalidTunable) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.logger.Printf("Failed to persist scoring params: %v", err)
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		s.params.Set(p)
		s.logger.Println("Scoring params updated")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// parseAdminIDs parses a comma-separated list of Telegram user IDs.
func parseAdminIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
