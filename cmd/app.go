package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"hirelane/pipeline-service/internal/calendar"
	"hirelane/pipeline-service/internal/config"
	"hirelane/pipeline-service/internal/credentials"
	"hirelane/pipeline-service/internal/db"
	"hirelane/pipeline-service/internal/events"
	"hirelane/pipeline-service/internal/notify"
	"hirelane/pipeline-service/internal/pipeline"
	"hirelane/pipeline-service/internal/screening"
	"hirelane/pipeline-service/internal/storage"
	"hirelane/pipeline-service/internal/store/postgres"
)

// app holds the process-wide dependencies shared by the subcommands.
type app struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	rdb      *redis.Client
	failures *events.FailureLog
}

// connect loads the config, installs the logger and opens Postgres and Redis.
func connect(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	setupLogger(cfg)

	slog.Info("[pipeline-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("[pipeline-service] PostgreSQL connected ✓")

	slog.Info("[pipeline-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	slog.Info("[pipeline-service] Redis connected ✓")

	return &app{cfg: cfg, pool: pool, rdb: rdb, failures: events.NewFailureLog(rdb)}, nil
}

func (a *app) Close() {
	_ = a.rdb.Close()
	a.pool.Close()
}

// service builds the pipeline.Service and its collaborators. Optional
// collaborators left unconfigured are logged and left nil.
func (a *app) service(ctx context.Context) (*pipeline.Service, error) {
	cfg := a.cfg
	creds := credentials.NewResolver(a.settings(), credentials.Env{
		GeminiAPIKey:       cfg.GeminiAPIKey,
		OpenAIAPIKey:       cfg.OpenAIAPIKey,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
	})

	model := cfg.GeminiModel
	if cfg.ScorerProvider == screening.ProviderOpenAI {
		model = cfg.OpenAIModel
	}
	scorer, err := screening.New(cfg.ScorerProvider, creds, model, cfg.CollaboratorTimeout)
	if err != nil {
		return nil, err
	}

	var (
		files  pipeline.FileStore
		linker pipeline.FileLinker
	)
	if cfg.S3Bucket != "" {
		s3, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		files, linker = s3, s3
	} else {
		slog.Warn("S3_BUCKET is not set, file uploads will fail")
	}

	var notifier pipeline.Notifier
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResend(cfg.ResendAPIKey, cfg.EmailFrom)
	} else {
		slog.Warn("RESEND_API_KEY is not set, candidate emails are disabled")
	}

	dispatcher := pipeline.NewDispatcher(notifier, events.NewPublisher(a.rdb), a.failures)
	cal := calendar.NewGoogle(creds, a.tokens(), cfg.CollaboratorTimeout)

	return pipeline.NewService(pipeline.Deps{
		Store:      postgres.New(a.pool),
		Scorer:     scorer,
		Extractor:  screening.PDFExtractor{},
		Files:      files,
		Linker:     linker,
		Calendar:   cal,
		Dispatcher: dispatcher,
	}, pipeline.Options{
		AppURL:           cfg.AppURL,
		MaxDocumentBytes: cfg.MaxDocumentBytes,
	}), nil
}

func (a *app) settings() *credentials.PostgresSettings {
	return credentials.NewPostgresSettings(a.pool)
}

func (a *app) tokens() *calendar.RedisTokens {
	return calendar.NewRedisTokens(a.rdb)
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h).With("service", "pipeline-service"))
}
