package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/specialty-map-server/internal/api"
	"github.com/specialty-map-server/internal/cache"
	"github.com/specialty-map-server/internal/config"
	"github.com/specialty-map-server/internal/database"
	"github.com/specialty-map-server/internal/domain"
	"github.com/specialty-map-server/internal/overrides"
	"github.com/specialty-map-server/internal/repository"
	"github.com/specialty-map-server/internal/service"
	"github.com/specialty-map-server/internal/taxonomy"
)

// engineHolder swaps the mapping engine atomically after override saves.
type engineHolder struct {
	mu     sync.RWMutex
	mapper *service.MapperService
}

func (h *engineHolder) get() *service.MapperService {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mapper
}

func (h *engineHolder) set(m *service.MapperService) {
	h.mu.Lock()
	h.mapper = m
	h.mu.Unlock()
}

func (h *engineHolder) MapSpecialty(ctx context.Context, input domain.RawInput) (*domain.Decision, error) {
	return h.get().MapSpecialty(ctx, input)
}

func (h *engineHolder) MapSpecialties(ctx context.Context, inputs []domain.RawInput) ([]*domain.Decision, error) {
	return h.get().MapSpecialties(ctx, inputs)
}

func (h *engineHolder) Suggestions(ctx context.Context, input domain.RawInput, limit int) (*domain.Decision, error) {
	return h.get().Suggestions(ctx, input, limit)
}

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	// A broken configuration document is fatal: the engine never serves
	// requests with inconsistent taxonomy or rules.
	tax, err := taxonomy.LoadTaxonomy(cfg.Data.TaxonomyPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load taxonomy")
	}
	syn, err := taxonomy.LoadSynonyms(cfg.Data.SynonymsPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load synonyms")
	}
	index, err := taxonomy.NewIndex(tax, syn)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build taxonomy index")
	}
	ruleDocs, err := taxonomy.LoadRuleDocuments(cfg.Data.RulesDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load rules")
	}
	ruleset, err := taxonomy.NewRuleset(ruleDocs, index)
	if err != nil {
		logger.WithError(err).Fatal("Failed to compile rules")
	}

	store, err := overrides.NewSQLiteStore(cfg.Data.OverridesDB)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open override store")
	}
	defer store.Close()

	holder := &engineHolder{}
	normalizer := service.NewNormalizer()

	rebuild := func(ctx context.Context) error {
		fileDoc, err := taxonomy.LoadOverrides(cfg.Data.OverridesPath)
		if err != nil {
			return err
		}
		records, err := store.ListAll(ctx)
		if err != nil {
			return err
		}
		resolved := overrides.Resolve(fileDoc.Overrides, records, normalizer.Normalize)
		holder.set(service.NewMapperService(logger, index, ruleset, resolved, cfg.Engine))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rebuild(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to build mapping engine")
	}

	decisionCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create decision cache")
	}
	defer decisionCache.Close()

	var engine api.Engine = holder

	if cfg.Database.Enabled {
		dbCfg := database.FromDomain(cfg.Database)

		runner, err := database.NewMigrationRunner(dbCfg.URL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		db, err := database.NewConnection(ctx, dbCfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		repo := repository.NewDecisionRepository(db.Pool, logger)
		engine = api.NewAuditedEngine(holder, repo, logger)
	}

	refresh := func(ctx context.Context) error {
		if err := rebuild(ctx); err != nil {
			return err
		}
		decisionCache.Purge(ctx)
		return nil
	}

	server := api.NewServer(cfg, logger, api.Deps{
		Engine:   engine,
		Index:    index,
		Store:    store,
		Cache:    decisionCache,
		Adapters: service.NewAdapterRegistry(),
		Refresh:  refresh,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}
	return logger
}
