package main

import (
	"os"

	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/corpus"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/storage"
)

// loadConfig loads the engine config and applies environment overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(os.Getenv("CITEGRAPH_CONFIG"))
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if v := os.Getenv("CITEGRAPH_CORPUS"); v != "" {
		cfg.CorpusPath = v
	}
	if v := os.Getenv("CITEGRAPH_EDGES"); v != "" {
		cfg.EdgesPath = v
	}
	return cfg
}

// mustOpenCorpus opens the corpus database or exits with a helpful message.
func mustOpenCorpus(cfg *config.Config) *corpus.SQLiteSource {
	if cfg.CorpusPath == "" {
		exitWithError(ExitConfigError,
			"no corpus configured; set corpus_path in %s or CITEGRAPH_CORPUS", config.DefaultPath())
	}
	if _, err := os.Stat(cfg.CorpusPath); err != nil {
		exitWithError(ExitConfigError, "corpus database not found: %s", cfg.CorpusPath)
	}

	src, err := corpus.OpenSQLite(cfg.CorpusPath)
	if err != nil {
		exitWithError(ExitError, "opening corpus: %v", err)
	}
	return src
}

// mustOpenStore opens the edge store for querying or exits.
func mustOpenStore(cfg *config.Config) *storage.Store {
	store, err := storage.Open(cfg.ResolveEdgesPath())
	if err != nil {
		exitWithError(ExitError, "opening edge store: %v", err)
	}
	return store
}

// newEngine builds a query engine with configured limits.
func newEngine(cfg *config.Config, store *storage.Store) *graph.Engine {
	engine := graph.NewEngine(store)
	if cfg.FanoutLimit > 0 {
		engine.FanoutLimit = cfg.FanoutLimit
	}
	if t := cfg.QueryTimeout(); t > 0 {
		engine.Timeout = t
	}
	return engine
}
