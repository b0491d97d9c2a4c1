// Package common provides shared dependency construction for commands.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"

	"github.com/sshaikhIntervision/Brinkmann/internal/auth"
	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/database"
	"github.com/sshaikhIntervision/Brinkmann/internal/drive"
	"github.com/sshaikhIntervision/Brinkmann/internal/exclusion"
	"github.com/sshaikhIntervision/Brinkmann/internal/graph"
	"github.com/sshaikhIntervision/Brinkmann/internal/ingest"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
	"github.com/sshaikhIntervision/Brinkmann/internal/pages"
	"github.com/sshaikhIntervision/Brinkmann/internal/storage"
)

// Required dependency errors.
var (
	ErrLoggerRequired = errors.New("logger is required")
	ErrConfigRequired = errors.New("config is required")
)

// Deps holds the wired collaborators every command builds from.
type Deps struct {
	Config       *config.Config
	Logger       logger.Interface
	DB           *sqlx.DB
	Store        *storage.MinIOStore
	Records      *database.SourceURLRepository
	Graph        *graph.Client
	Orchestrator *ingest.Orchestrator
}

// Validate ensures required dependencies are present.
func (d *Deps) Validate() error {
	if d.Logger == nil {
		return ErrLoggerRequired
	}
	if d.Config == nil {
		return ErrConfigRequired
	}
	return nil
}

// Close releases held connections.
func (d *Deps) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("closing database failed", "error", err)
		}
	}
}

// NewDeps loads configuration and wires the full ingestion pipeline.
func NewDeps(ctx context.Context, v *viper.Viper) (*Deps, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	records := database.NewSourceURLRepository(db)
	if err := records.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := storage.NewMinIOStore(ctx, cfg.MinIO, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create object store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Ingest.RequestTimeout}
	tokens := auth.NewCredentialCache(cfg.Graph, httpClient, log)
	graphClient := graph.NewClient(cfg.Graph, cfg.Ingest, tokens, httpClient, log)

	filter := exclusion.NewFilter(cfg.Ingest.ExcludedExtensions, cfg.Ingest.AvoidKeywords)
	crawler := drive.NewCrawler(graphClient, filter, store, records, cfg.Ingest.MaxConcurrency, log)
	scraper := pages.NewScraper(graphClient, store, records, cfg.Ingest, log)

	orchestrator := ingest.NewOrchestrator(tokens, graphClient, crawler, scraper, cfg.Ingest, log)

	return &Deps{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		Store:        store,
		Records:      records,
		Graph:        graphClient,
		Orchestrator: orchestrator,
	}, nil
}
