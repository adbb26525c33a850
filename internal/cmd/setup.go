package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nadzzz/signalbox/internal/command"
	cmdsqlite "github.com/nadzzz/signalbox/internal/command/sqlite"
	"github.com/nadzzz/signalbox/internal/config"
	"github.com/nadzzz/signalbox/internal/dialect"
	"github.com/nadzzz/signalbox/internal/hospitality"
	"github.com/nadzzz/signalbox/internal/nlu"
	"github.com/nadzzz/signalbox/internal/nlu/openai"
	"github.com/nadzzz/signalbox/internal/pipeline"
)

// buildEngine assembles the interpretation engine from config: the built-in
// hospitality commands, the optional NLU delegate, dialect normalization and
// the custom command store. The returned cleanup releases the store handle.
func buildEngine(cfg *config.Config) (*pipeline.Engine, func(), error) {
	svc, err := hospitality.NewService()
	if err != nil {
		return nil, nil, fmt.Errorf("creating hospitality service: %w", err)
	}

	registry := command.NewRegistry()
	if err := svc.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("registering built-in commands: %w", err)
	}

	cleanup := func() {}
	var loader command.Loader
	if cfg.Store.Enabled {
		store, err := cmdsqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening command store: %w", err)
		}
		loader = store
		cleanup = func() { _ = store.Close() }
		slog.Info("custom command store enabled", "path", cfg.Store.Path)
	}

	var classifier nlu.Classifier
	var extractor nlu.Extractor
	if cfg.Delegate.Backend == "openai" {
		delegate := openai.New(openai.Config{
			BaseURL: cfg.Delegate.OpenAI.BaseURL,
			APIKey:  cfg.Delegate.OpenAI.APIKey,
			Model:   cfg.Delegate.OpenAI.Model,
			Timeout: cfg.Delegate.OpenAI.Timeout,
		})
		classifier = delegate
		extractor = delegate
		slog.Info("using openai delegate", "model", cfg.Delegate.OpenAI.Model)
	}

	var normalizer dialect.Normalizer
	if cfg.Dialect.Enabled {
		normalizer = dialect.SwissGerman()
	}

	engine := pipeline.New(pipeline.Options{
		Registry:            registry,
		Classifier:          classifier,
		Extractor:           extractor,
		Dialect:             normalizer,
		Loader:              loader,
		Lexicons:            svc.Lexicons(),
		MinConfidence:       cfg.Engine.MinConfidence,
		Deadline:            cfg.Engine.Deadline,
		HistoryCapacity:     cfg.Engine.HistoryCapacity,
		DisableCache:        !cfg.Engine.Cache.Enabled,
		CacheTTL:            cfg.Engine.Cache.TTL,
		CacheCapacity:       cfg.Engine.Cache.Capacity,
		DisableContextBoost: !cfg.Engine.ContextBoost.Enabled,
	})
	return engine, cleanup, nil
}
