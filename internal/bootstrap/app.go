package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"invoice-backend/internal/extract"
	"invoice-backend/internal/extraction"
	"invoice-backend/internal/invoices"
	"invoice-backend/internal/llm"
	"invoice-backend/internal/llm/gemini"
	"invoice-backend/internal/llm/groq"
	"invoice-backend/internal/services/health"
	"invoice-backend/internal/shared/config"
	"invoice-backend/internal/shared/server"
	"invoice-backend/internal/shared/storage/db"
	"invoice-backend/internal/shared/storage/mongodb"
	"invoice-backend/internal/shared/storage/object"
	gridfsstore "invoice-backend/internal/shared/storage/object/gridfs"
	localstore "invoice-backend/internal/shared/storage/object/local"
	s3store "invoice-backend/internal/shared/storage/object/s3"
	"invoice-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config            config.Config
	Router            *gin.Engine
	DB                *sql.DB
	Mongo             *mongo.Client
	Store             object.ObjectStore
	InvoicesRepo      invoices.Repo
	InvoicesService   *invoices.Service
	ExtractionService *extraction.Service
	Clients           map[llm.Provider]llm.Client
	Health            *health.Service

	closers []func() error
}

// Build prepares shared dependencies and registers routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{
		Config: cfg,
		Health: health.NewService(),
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB.Close)
		app.Health.Register("postgres", sqlDB.PingContext)
	}

	mongoClient, err := buildMongo(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Mongo = mongoClient
	if mongoClient != nil {
		app.closers = append(app.closers, func() error {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return mongoClient.Disconnect(dctx)
		})
		app.Health.Register("mongo", func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		})
	}

	store, err := buildStore(ctx, cfg, mongoClient)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	repo, err := buildRepo(ctx, cfg, sqlDB, mongoClient)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.InvoicesRepo = repo

	clients, err := buildClients(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Clients = clients
	for _, c := range clients {
		if closer, ok := c.(interface{ Close() error }); ok {
			app.closers = append(app.closers, closer.Close)
		}
	}

	app.InvoicesService = &invoices.Service{Store: store, Repo: repo}
	app.ExtractionService = &extraction.Service{
		Repo:      repo,
		Store:     store,
		Extractor: extract.New(),
		Clients:   clients,
	}

	defaultProvider, err := llm.ParseProvider(cfg.DefaultProvider)
	if err != nil {
		telemetry.Warn("bootstrap.default_provider_invalid", map[string]any{
			"provider": cfg.DefaultProvider,
			"fallback": llm.ProviderGroq.String(),
		})
		defaultProvider = llm.ProviderGroq
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		InvoiceHandler:    invoices.NewHandler(app.InvoicesService, cfg.MaxUploadBytes),
		ExtractionHandler: extraction.NewHandler(app.ExtractionService, defaultProvider),
		Health:            app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":        cfg.Env,
		"store":      cfg.ObjectStoreType,
		"repo":       repoKind(sqlDB, mongoClient),
		"providers":  providerNames(clients),
		"default":    defaultProvider.String(),
		"rate_limit": cfg.ExtractRatePerMinute,
	})

	return app, nil
}

// OnClose registers fn to run when the app is closed.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases database, mongo and provider connections in reverse order.

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_connect_failed", map[string]any{"error": err.Error(), "fallback": "memory"})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildMongo(ctx context.Context, cfg config.Config) (*mongo.Client, error) {
	if strings.TrimSpace(cfg.MongoURI) == "" {
		if cfg.ObjectStoreType == "gridfs" {
			return nil, fmt.Errorf("OBJECT_STORE=gridfs requires MONGO_URI")
		}
		return nil, nil
	}
	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		if isDevLike(cfg.Env) && cfg.ObjectStoreType != "gridfs" {
			telemetry.Warn("bootstrap.mongo_connect_failed", map[string]any{"error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.Config, mongoClient *mongo.Client) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "gridfs":
		if mongoClient == nil {
			return nil, fmt.Errorf("OBJECT_STORE=gridfs requires MONGO_URI")
		}
		return gridfsstore.New(mongoClient.Database(cfg.MongoDatabase), cfg.GridFSBucket), nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRepo(ctx context.Context, cfg config.Config, sqlDB *sql.DB, mongoClient *mongo.Client) (invoices.Repo, error) {
	switch {
	case sqlDB != nil:
		return &invoices.PGRepo{DB: sqlDB}, nil
	case mongoClient != nil:
		repo := invoices.NewMongoRepo(mongoClient.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure invoice indexes: %w", err)
		}
		return repo, nil
	case isDevLike(cfg.Env):
		telemetry.Warn("bootstrap.memory_repo", map[string]any{"hint": "records are lost on restart"})
		return invoices.NewMemoryRepo(), nil
	default:
		return nil, fmt.Errorf("DATABASE_URL or MONGO_URI is required in %s", cfg.Env)
	}
}

func buildClients(ctx context.Context, cfg config.Config) (map[llm.Provider]llm.Client, error) {
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	clients := make(map[llm.Provider]llm.Client, len(llm.Providers))

	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, timeout)
		if err != nil {
			return nil, err
		}
		clients[llm.ProviderGemini] = c
	}
	if strings.TrimSpace(cfg.GroqAPIKey) != "" {
		c, err := groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL, timeout)
		if err != nil {
			return nil, err
		}
		clients[llm.ProviderGroq] = c
	}
	if len(clients) == 0 {
		telemetry.Warn("bootstrap.no_providers", map[string]any{"hint": "set GEMINI_API_KEY or GROQ_API_KEY"})
	}
	return clients, nil
}

func repoKind(sqlDB *sql.DB, mongoClient *mongo.Client) string {
	switch {
	case sqlDB != nil:
		return "postgres"
	case mongoClient != nil:
		return "mongo"
	default:
		return "memory"
	}
}

func providerNames(clients map[llm.Provider]llm.Client) []string {
	out := make([]string, 0, len(clients))
	for _, p := range llm.Providers {
		if _, ok := clients[p]; ok {
			out = append(out, p.String())
		}
	}
	return out
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
