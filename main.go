package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge-engine/pkg/config"
	"github.com/draftforge/draftforge-engine/pkg/database"
	"github.com/draftforge/draftforge-engine/pkg/handlers"
	"github.com/draftforge/draftforge-engine/pkg/llm"
	"github.com/draftforge/draftforge-engine/pkg/middleware"
	"github.com/draftforge/draftforge-engine/pkg/outline"
	"github.com/draftforge/draftforge-engine/pkg/repositories"
	"github.com/draftforge/draftforge-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model))

	ctx := context.Background()

	// Migrations run over database/sql; the app itself uses the pgx pool.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	catalog, err := outline.Load()
	if err != nil {
		logger.Fatal("Failed to load outline catalog", zap.Error(err))
	}

	completionClient, err := llm.NewCompletionClient(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create completion client", zap.Error(err))
	}

	reportRepo := repositories.NewReportRepository(db)
	pointsRepo := repositories.NewPointsRepository(db)

	generator := services.NewSectionGenerator(completionClient, cfg.AI.Temperature, cfg.AI.MaxTokens, logger)
	sessions := services.NewSessionManager(generator, catalog, reportRepo, pointsRepo,
		cfg.Generation.SectionDelay(), cfg.Generation.PointsPerSection, logger)
	linkageService := services.NewLinkageService(reportRepo, sessions, logger)
	reportService := services.NewReportService(reportRepo, catalog, logger)
	chatService := services.NewChatService(reportRepo, catalog, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewReportHandler(reportService, linkageService, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chatService, logger).RegisterRoutes(mux)
	handlers.NewGenerationHandler(sessions, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting draftforge-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
