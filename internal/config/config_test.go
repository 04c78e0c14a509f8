package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("loading missing config: %v", err)
	}
	if cfg.CorpusPath != "" || cfg.BatchSize != 0 {
		t.Errorf("missing config not zero: %+v", cfg)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	saved := &Config{
		CorpusPath:       "/data/corpus.db",
		BatchSize:        1000,
		FanoutLimit:      250,
		QueryTimeoutSecs: 10,
	}
	if err := saved.Save(path); err != nil {
		t.Fatalf("saving: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if *cfg != *saved {
		t.Errorf("round trip mismatch: got %+v, want %+v", cfg, saved)
	}
	if cfg.QueryTimeout() != 10*time.Second {
		t.Errorf("query timeout = %v, want 10s", cfg.QueryTimeout())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("corpus_path: [unterminated"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid YAML accepted")
	}
}

func TestResolveEdgesPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit", Config{EdgesPath: "/tmp/edges.db"}, "/tmp/edges.db"},
		{"next to corpus", Config{CorpusPath: "/data/corpus.db"}, "/data/citations.db"},
		{"bare default", Config{}, "citations.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ResolveEdgesPath(); got != tt.want {
				t.Errorf("ResolveEdgesPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultPathRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	want := filepath.Join("/custom/config", ConfigDir, ConfigFile)
	if got := DefaultPath(); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
