package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"birdreel-server/internal/config"
	promptdomain "birdreel-server/internal/domain/prompt"
	videodomain "birdreel-server/internal/domain/video"
	"birdreel-server/internal/infrastructure/auth"
	"birdreel-server/internal/infrastructure/crontab"
	"birdreel-server/internal/infrastructure/database"
	"birdreel-server/internal/infrastructure/genai"
	"birdreel-server/internal/infrastructure/logger"
	"birdreel-server/internal/infrastructure/observability"
	"birdreel-server/internal/infrastructure/queue"
	promptrepo "birdreel-server/internal/infrastructure/repository/prompt"
	videorepo "birdreel-server/internal/infrastructure/repository/video"
	"birdreel-server/internal/infrastructure/storage"
	"birdreel-server/internal/interfaces/httpserver"
)

// @title Video API
// @version 1.0
// @description Bird video generation and streaming service
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var storageClient videodomain.Storage
	if cfg.IsLocalStorage() {
		storageClient, err = storage.NewLocalStorage(cfg, log)
	} else {
		storageClient, err = storage.NewS3Storage(ctx, cfg, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	var opsClient videodomain.OperationClient
	var ideaClient promptdomain.IdeaClient
	if cfg.GenAIMock {
		mock := genai.NewMockClient(log)
		opsClient = mock
		ideaClient = mock
		log.Warn().Msg("running against the mock generation client")
	} else {
		opsClient = genai.NewVeoClient(cfg, log)
		ideaClient = genai.NewGeminiClient(cfg, log)
	}

	natsQueue, err := queue.NewNATSQueue(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect message queue")
	}
	defer natsQueue.Close()

	videoRepository := videorepo.NewRepository(db)
	promptRepository := promptrepo.NewRepository(db)
	videoService := videodomain.NewService(cfg, videoRepository, storageClient, opsClient, natsQueue, log)
	promptService := promptdomain.NewService(promptRepository, ideaClient, log)

	if err := natsQueue.Subscribe(ctx, videoService.HandleGenerationMessage); err != nil {
		log.Fatal().Err(err).Msg("start queue consumer")
	}

	scheduler := crontab.NewCrontab(videoService, promptService, log)
	go func() {
		if err := scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth")
	}

	httpServer := httpserver.New(cfg, log, videoService, promptService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
