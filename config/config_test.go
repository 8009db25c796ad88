package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AIProvider != "mock" {
		t.Errorf("expected default ai_provider mock, got %s", cfg.AIProvider)
	}
	if cfg.Vocabulary.VocabMin != 30 || cfg.Vocabulary.VocabMax != 90 || cfg.Vocabulary.VocabEmergency != 200 {
		t.Errorf("unexpected default vocab bounds: %+v", cfg.Vocabulary)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if cfg.Jobs.CleanupInterval != 24*time.Hour {
		t.Errorf("expected default cleanup interval 24h, got %v", cfg.Jobs.CleanupInterval)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid default config", modify: func(c *Config) {}, wantErr: false},
		{name: "missing ai provider", modify: func(c *Config) { c.AIProvider = "" }, wantErr: true},
		{name: "vocab min above max", modify: func(c *Config) { c.Vocabulary.VocabMin = 100 }, wantErr: true},
		{name: "vocab max above emergency", modify: func(c *Config) { c.Vocabulary.VocabMax = 300 }, wantErr: true},
		{name: "invalid pruning mode", modify: func(c *Config) { c.Vocabulary.PruningMode = "bogus" }, wantErr: true},
		{name: "negative inline threshold", modify: func(c *Config) { c.Storage.InlineArtifactThresholdBytes = -1 }, wantErr: true},
		{name: "chunking bounds out of order", modify: func(c *Config) { c.Chunking.MinWords = 2000 }, wantErr: true},
		{name: "zero job concurrency", modify: func(c *Config) { c.Jobs.MaxConcurrentPerType = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
ai_provider: openai
extraction_model: gpt-4o
vocabulary:
  vocab_min: 20
  vocab_max: 80
  vocab_emergency: 150
storage:
  inline_artifact_threshold_bytes: 2048
  postgres_dsn: "postgres://test"
nats:
  url: "nats://test:4222"
chunking:
  target_words: 800
  min_words: 150
  max_words: 1200
jobs:
  max_concurrent_per_type: 2
  cleanup_interval: 1h
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.AIProvider != "openai" {
		t.Errorf("expected ai_provider openai, got %s", cfg.AIProvider)
	}
	if cfg.Storage.PostgresDSN != "postgres://test" {
		t.Errorf("expected postgres dsn postgres://test, got %s", cfg.Storage.PostgresDSN)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Jobs.CleanupInterval != time.Hour {
		t.Errorf("expected cleanup interval 1h, got %v", cfg.Jobs.CleanupInterval)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		AIProvider: "anthropic",
		Storage:    StorageConfig{PostgresDSN: "postgres://override"},
	}

	base.Merge(override)

	if base.AIProvider != "anthropic" {
		t.Errorf("expected ai_provider anthropic, got %s", base.AIProvider)
	}
	if base.Vocabulary.VocabMin != 30 {
		t.Errorf("expected vocab_min to remain default, got %d", base.Vocabulary.VocabMin)
	}
	if base.Storage.PostgresDSN != "postgres://override" {
		t.Errorf("expected postgres dsn override, got %s", base.Storage.PostgresDSN)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.AIProvider = "anthropic"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.AIProvider != "anthropic" {
		t.Errorf("expected ai_provider anthropic, got %s", loaded.AIProvider)
	}
}
