package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"annotcore/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.RepositoryEnv, "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRepo := filepath.Join(tempHome, ".local", "share", "annotcore", "corpus")
	if cfg.Paths.RepositoryDir != wantRepo {
		t.Fatalf("unexpected repository dir: got %q want %q", cfg.Paths.RepositoryDir, wantRepo)
	}
	if cfg.Paths.MediaDir != filepath.Join(wantRepo, "media") {
		t.Fatalf("unexpected media dir: %q", cfg.Paths.MediaDir)
	}
	if cfg.DatastorePath() != filepath.Join(wantRepo, "corpus.db") {
		t.Fatalf("unexpected datastore path: %q", cfg.DatastorePath())
	}
	if cfg.Alignment.MinMatches != 4 || cfg.Alignment.MaxMismatches != 1 {
		t.Fatalf("unexpected alignment defaults: %+v", cfg.Alignment)
	}
	if cfg.Diff.Key != "text" {
		t.Fatalf("unexpected diff key: %q", cfg.Diff.Key)
	}
	if cfg.Batch.YieldEvery != config.Default().Batch.YieldEvery {
		t.Fatalf("unexpected yield_every: %d", cfg.Batch.YieldEvery)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(cfg.Paths.LogDir)
	if err != nil {
		t.Fatalf("expected directory %q to exist: %v", cfg.Paths.LogDir, err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %q to be directory", cfg.Paths.LogDir)
	}
	if _, err := os.Stat(cfg.Paths.RepositoryDir); !os.IsNotExist(err) {
		t.Fatalf("expected repository dir to be left alone, stat err = %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "annotcore.toml")
	t.Setenv(config.RepositoryEnv, "")

	type payload struct {
		Paths struct {
			RepositoryDir string `toml:"repository_dir"`
		} `toml:"paths"`
		Diff struct {
			Key          string   `toml:"key"`
			Attribute    string   `toml:"attribute"`
			ExtraColumns []string `toml:"extra_columns"`
		} `toml:"diff"`
		Alignment struct {
			MinMatches    int `toml:"min_matches"`
			MaxMismatches int `toml:"max_mismatches"`
		} `toml:"alignment"`
	}
	custom := payload{}
	custom.Paths.RepositoryDir = filepath.Join(tempDir, "corpus")
	custom.Diff.Key = " Attribute "
	custom.Diff.Attribute = "pos"
	custom.Diff.ExtraColumns = []string{"lemma", " ", "conf"}
	custom.Alignment.MinMatches = 6
	custom.Alignment.MaxMismatches = 2
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.RepositoryDir != custom.Paths.RepositoryDir {
		t.Fatalf("expected repository dir from file, got %q", cfg.Paths.RepositoryDir)
	}
	if cfg.Diff.Key != "attribute" || cfg.Diff.Attribute != "pos" {
		t.Fatalf("unexpected diff settings: %+v", cfg.Diff)
	}
	if strings.Join(cfg.Diff.ExtraColumns, ",") != "lemma,conf" {
		t.Fatalf("expected blank extra column dropped, got %v", cfg.Diff.ExtraColumns)
	}
	if cfg.Alignment.MinMatches != 6 || cfg.Alignment.MaxMismatches != 2 {
		t.Fatalf("unexpected alignment: %+v", cfg.Alignment)
	}
}

func TestRepositoryEnvOverridesConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "annotcore.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nrepository_dir = \"/from/file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envRepo := filepath.Join(tempDir, "env-corpus")
	t.Setenv(config.RepositoryEnv, envRepo)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.RepositoryDir != envRepo {
		t.Errorf("expected repository dir from env, got %q", cfg.Paths.RepositoryDir)
	}
	if cfg.Paths.MediaDir != filepath.Join(envRepo, "media") {
		t.Errorf("expected media dir under env repository, got %q", cfg.Paths.MediaDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "annotcore.toml")
	if err := os.WriteFile(configPath, []byte("[diff]\nkeyy = \"text\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "keyy") {
		t.Fatalf("expected error to name the unknown key, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), config.RepositoryEnv) {
		t.Fatalf("sample config does not mention %s: %s", config.RepositoryEnv, contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	def := config.Default()
	if cfg.Alignment != def.Alignment {
		t.Fatalf("sample alignment %+v differs from defaults %+v", cfg.Alignment, def.Alignment)
	}
	if cfg.Batch.YieldEvery != def.Batch.YieldEvery {
		t.Fatalf("sample yield_every %d differs from default %d", cfg.Batch.YieldEvery, def.Batch.YieldEvery)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty repository", func(c *config.Config) { c.Paths.RepositoryDir = "" }},
		{"datastore path", func(c *config.Config) { c.Datastore.Filename = "sub/corpus.db" }},
		{"unknown diff key", func(c *config.Config) { c.Diff.Key = "fuzzy" }},
		{"attribute key without attribute", func(c *config.Config) { c.Diff.Key = "attribute" }},
		{"bad extra column", func(c *config.Config) { c.Diff.ExtraColumns = []string{"1pos"} }},
		{"zero min matches", func(c *config.Config) { c.Alignment.MinMatches = 0 }},
		{"negative mismatches", func(c *config.Config) { c.Alignment.MaxMismatches = -1 }},
		{"mismatches not below matches", func(c *config.Config) { c.Alignment.MaxMismatches = c.Alignment.MinMatches }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.RepositoryDir = "/corpus"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Paths.RepositoryDir = "/corpus"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
