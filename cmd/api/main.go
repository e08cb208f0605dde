package main

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sheetsense/adapters/excel"
	"sheetsense/adapters/ingest/cleaner"
	"sheetsense/adapters/ingest/coercer"
	"sheetsense/adapters/llm"
	"sheetsense/adapters/llm/heuristic"
	"sheetsense/adapters/postgres"
	"sheetsense/adapters/postgres/migrations"
	"sheetsense/api"
	"sheetsense/app"
	"sheetsense/domain/core"
	"sheetsense/domain/table"
	"sheetsense/internal"
	"sheetsense/internal/cache"
	"sheetsense/internal/config"
	"sheetsense/internal/profiling"
	"sheetsense/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migrations.Up(context.Background(), db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// Ingestion pipeline
	coerce := coercer.New(coercerConfig(appConfig))
	clean := cleaner.New(cleaner.DefaultConfig(), coerce)
	profiler := profiling.New(profiling.DefaultConfig(), coerce)

	readerConfig := excel.DefaultConfig()
	readerConfig.MaxFileSize = appConfig.Upload.MaxSizeMB << 20
	readerConfig.AllowedExtensions = appConfig.Upload.Extensions
	reader := excel.NewReader(readerConfig)

	// Persistence
	files := postgres.NewFileRepository(db)
	datasets := postgres.NewDatasetRepository(db)
	queries := postgres.NewQueryRepository(db)
	resultCache := cache.New()

	// Classification: language model when a key is configured, the
	// keyword fallback always.
	var classifier ports.IntentClassifier = heuristic.New()
	if appConfig.AI.OpenAIKey != "" {
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:      appConfig.AI.OpenAIKey,
			Model:       appConfig.AI.Model,
			Timeout:     appConfig.AI.Timeout,
			Temperature: appConfig.AI.Temperature,
			MaxTokens:   appConfig.AI.MaxTokens,
		})
		if err != nil {
			log.Fatalf("Failed to create language model client: %v", err)
		}
		classifier = llm.NewClassifier(client, heuristic.New())
		logger.Info("Language model classification enabled (model=%s)", appConfig.AI.Model)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using keyword classification only")
	}

	ingestion := app.NewIngestionService(
		app.IngestionConfig{
			UploadDir:   appConfig.Upload.Dir,
			Extensions:  appConfig.Upload.Extensions,
			MaxFileSize: appConfig.Upload.MaxSizeMB << 20,
		},
		files, datasets, reader, clean, profiler, resultCache, logger,
	)
	queryService := app.NewQueryService(files, datasets, queries, classifier, resultCache, logger)
	suggestions := app.NewSuggestionService(datasets)

	resumePending(ingestion, files, logger)

	server := api.NewServer(api.Config{Port: appConfig.Server.Port}, ingestion, queryService, suggestions, logger)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func coercerConfig(appConfig *config.Config) coercer.Config {
	c := coercer.DefaultConfig()
	c.DayFirst = appConfig.Locale.DayFirst
	return c
}

// resumePending picks up files whose ingestion was interrupted by a restart
func resumePending(ingestion *app.IngestionService, files ports.FileRepository, logger *internal.Logger) {
	pending, err := files.List(context.Background(), 200, 0)
	if err != nil {
		logger.Warn("Failed to scan for interrupted ingestions: %v", err)
		return
	}
	for _, f := range pending {
		if f.Status != table.FileStatusPending && f.Status != table.FileStatusProcessing {
			continue
		}
		id := f.ID
		go func(id core.FileID) {
			if err := ingestion.Process(context.Background(), id); err != nil {
				logger.Warn("Resumed ingestion of %s failed: %v", id, err)
			}
		}(id)
	}
}
