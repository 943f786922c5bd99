package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scentiq/scentiq-engine/pkg/config"
	"github.com/scentiq/scentiq-engine/pkg/handlers"
	"github.com/scentiq/scentiq-engine/pkg/llm"
	"github.com/scentiq/scentiq-engine/pkg/logging"
	"github.com/scentiq/scentiq-engine/pkg/models"
	"github.com/scentiq/scentiq-engine/pkg/repositories"
	"github.com/scentiq/scentiq-engine/pkg/services"
	"github.com/scentiq/scentiq-engine/pkg/store"
	"github.com/scentiq/scentiq-engine/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("provider_vendor", cfg.Provider.Vendor),
		zap.String("provider_model", cfg.Provider.Model),
		zap.String("store_backend", cfg.Store.Backend))

	ctx := context.Background()

	kv, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	catalog, err := models.LoadCatalog()
	if err != nil {
		logger.Fatal("Failed to load quiz catalog", zap.Error(err))
	}

	client, err := llm.NewFromConfig(&cfg.Provider, logger)
	if err != nil {
		logger.Fatal("Failed to create provider client", zap.Error(err))
	}

	sessions := repositories.NewSessionRepository(kv)
	results := repositories.NewResultsRepository(kv)
	vault := repositories.NewVaultRepository(kv)
	history := repositories.NewHistoryRepository(kv)

	tokenTTL := time.Duration(cfg.Session.TokenTTLHours) * time.Hour
	auth := services.NewAuthService(sessions, cfg.Session.Secret, tokenTTL, logger)
	recommender := services.NewRecommendationService(client, cfg.Provider.Temperature, logger)

	flow := services.NewFlowController(
		services.FlowConfig{
			AutoAdvance:  time.Duration(cfg.Quiz.AutoAdvanceMillis) * time.Millisecond,
			FreeCount:    cfg.Quiz.FreeCount,
			PremiumCount: cfg.Quiz.PremiumCount,
		},
		catalog, auth, recommender, sessions, results, vault, history, logger,
	)
	if err := flow.Hydrate(ctx); err != nil {
		logger.Fatal("Failed to hydrate application state", zap.Error(err))
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, kv, logger)
	healthHandler.RegisterRoutes(mux)

	browser := handlers.NewBrowserSessions(cfg.Session.Secret, cfg.Session.CookieName, logger)
	appHandler := handlers.NewAppHandler(flow, browser, logger)
	appHandler.RegisterRoutes(mux)

	dist, err := fs.Sub(ui.DistFS(), "dist")
	if err != nil {
		logger.Fatal("Failed to open embedded UI", zap.Error(err))
	}
	mux.Handle("/", http.FileServer(http.FS(dist)))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting scentiq-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// openStore creates the configured key-value backend and returns it with its
// cleanup function.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		s, err := store.NewRedisStore(&cfg.Store.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendPostgres:
		log.Printf("Connecting to postgres: %s", logging.SanitizeConnectionString(cfg.Store.Postgres.ConnectionString()))
		s, err := store.NewPostgresStore(ctx, &cfg.Store.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}
