// Package config provides configuration loading and management for kgraph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete kgraph configuration.
type Config struct {
	AIProvider      string          `yaml:"ai_provider"`
	ExtractionModel string          `yaml:"extraction_model"`
	EmbeddingModel  string          `yaml:"embedding_model"`
	Vocabulary      VocabularyConfig `yaml:"vocabulary"`
	Storage         StorageConfig    `yaml:"storage"`
	NATS            NATSConfig       `yaml:"nats"`
	Chunking        ChunkingConfig   `yaml:"chunking"`
	Jobs            JobsConfig       `yaml:"jobs"`
}

// VocabularyConfig tunes vocabulary pruning and consolidation (spec.md §3.3/§8.2).
type VocabularyConfig struct {
	VocabMin                         int     `yaml:"vocab_min"`
	VocabMax                         int     `yaml:"vocab_max"`
	VocabEmergency                   int     `yaml:"vocab_emergency"`
	PruningMode                      string  `yaml:"pruning_mode"` // naive | hitl | aitl
	AggressivenessProfile            string  `yaml:"aggressiveness_profile"`
	SynonymThresholdStrong           float64 `yaml:"synonym_threshold_strong"`
	SynonymThresholdModerate         float64 `yaml:"synonym_threshold_moderate"`
	ConsolidationSimilarityThreshold float64 `yaml:"consolidation_similarity_threshold"`
}

// StorageConfig configures the content-addressed source store, the
// inline/blob artifact router, and the backing Postgres/S3 endpoints.
type StorageConfig struct {
	InlineArtifactThresholdBytes int    `yaml:"inline_artifact_threshold_bytes"`
	PostgresDSN                  string `yaml:"postgres_dsn"`
	S3Bucket                     string `yaml:"s3_bucket"`
	S3Endpoint                   string `yaml:"s3_endpoint"`
}

// NATSConfig configures the NATS connection used for job-queue KV storage.
type NATSConfig struct {
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
}

// ChunkingConfig tunes semantic chunking (spec.md §3.1).
type ChunkingConfig struct {
	TargetWords             int `yaml:"target_words"`
	MinWords                int `yaml:"min_words"`
	MaxWords                int `yaml:"max_words"`
	MaxParallelTranslations int `yaml:"max_parallel_translations"`
}

// JobsConfig tunes the worker pool and cleanup scheduler (spec.md §4.7).
type JobsConfig struct {
	MaxConcurrentPerType int           `yaml:"max_concurrent_per_type"`
	CleanupInterval      time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AIProvider:      "mock",
		ExtractionModel: "mock",
		EmbeddingModel:  "mock",
		Vocabulary: VocabularyConfig{
			VocabMin:                         30,
			VocabMax:                         90,
			VocabEmergency:                   200,
			PruningMode:                      "aitl",
			AggressivenessProfile:            "aggressive",
			SynonymThresholdStrong:           0.90,
			SynonymThresholdModerate:         0.70,
			ConsolidationSimilarityThreshold: 0.90,
		},
		Storage: StorageConfig{
			InlineArtifactThresholdBytes: 10240,
		},
		NATS: NATSConfig{
			Embedded: true,
		},
		Chunking: ChunkingConfig{
			TargetWords:             1000,
			MinWords:                200,
			MaxWords:                1500,
			MaxParallelTranslations: 3,
		},
		Jobs: JobsConfig{
			MaxConcurrentPerType: 4,
			CleanupInterval:      24 * time.Hour,
		},
	}
}

// Validate checks that the configuration is within the bounds spec.md §8
// requires (vocab_min < vocab_max < vocab_emergency, non-empty provider, …).
func (c *Config) Validate() error {
	if c.AIProvider == "" {
		return fmt.Errorf("ai_provider is required")
	}
	if c.Vocabulary.VocabMin <= 0 || c.Vocabulary.VocabMin >= c.Vocabulary.VocabMax {
		return fmt.Errorf("vocabulary.vocab_min must be positive and less than vocab_max")
	}
	if c.Vocabulary.VocabMax >= c.Vocabulary.VocabEmergency {
		return fmt.Errorf("vocabulary.vocab_max must be less than vocab_emergency")
	}
	switch c.Vocabulary.PruningMode {
	case "naive", "hitl", "aitl":
	default:
		return fmt.Errorf("vocabulary.pruning_mode must be naive, hitl, or aitl")
	}
	if c.Storage.InlineArtifactThresholdBytes < 0 {
		return fmt.Errorf("storage.inline_artifact_threshold_bytes must be non-negative")
	}
	if c.Chunking.MinWords <= 0 || c.Chunking.MinWords >= c.Chunking.TargetWords || c.Chunking.TargetWords >= c.Chunking.MaxWords {
		return fmt.Errorf("chunking word bounds must satisfy min < target < max")
	}
	if c.Jobs.MaxConcurrentPerType <= 0 {
		return fmt.Errorf("jobs.max_concurrent_per_type must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one; other takes precedence for
// every non-zero value, matching the teacher's layered-precedence loader.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.AIProvider != "" {
		c.AIProvider = other.AIProvider
	}
	if other.ExtractionModel != "" {
		c.ExtractionModel = other.ExtractionModel
	}
	if other.EmbeddingModel != "" {
		c.EmbeddingModel = other.EmbeddingModel
	}

	if other.Vocabulary.VocabMin != 0 {
		c.Vocabulary.VocabMin = other.Vocabulary.VocabMin
	}
	if other.Vocabulary.VocabMax != 0 {
		c.Vocabulary.VocabMax = other.Vocabulary.VocabMax
	}
	if other.Vocabulary.VocabEmergency != 0 {
		c.Vocabulary.VocabEmergency = other.Vocabulary.VocabEmergency
	}
	if other.Vocabulary.PruningMode != "" {
		c.Vocabulary.PruningMode = other.Vocabulary.PruningMode
	}
	if other.Vocabulary.AggressivenessProfile != "" {
		c.Vocabulary.AggressivenessProfile = other.Vocabulary.AggressivenessProfile
	}
	if other.Vocabulary.SynonymThresholdStrong != 0 {
		c.Vocabulary.SynonymThresholdStrong = other.Vocabulary.SynonymThresholdStrong
	}
	if other.Vocabulary.SynonymThresholdModerate != 0 {
		c.Vocabulary.SynonymThresholdModerate = other.Vocabulary.SynonymThresholdModerate
	}
	if other.Vocabulary.ConsolidationSimilarityThreshold != 0 {
		c.Vocabulary.ConsolidationSimilarityThreshold = other.Vocabulary.ConsolidationSimilarityThreshold
	}

	if other.Storage.InlineArtifactThresholdBytes != 0 {
		c.Storage.InlineArtifactThresholdBytes = other.Storage.InlineArtifactThresholdBytes
	}
	if other.Storage.PostgresDSN != "" {
		c.Storage.PostgresDSN = other.Storage.PostgresDSN
	}
	if other.Storage.S3Bucket != "" {
		c.Storage.S3Bucket = other.Storage.S3Bucket
	}
	if other.Storage.S3Endpoint != "" {
		c.Storage.S3Endpoint = other.Storage.S3Endpoint
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Chunking.TargetWords != 0 {
		c.Chunking.TargetWords = other.Chunking.TargetWords
	}
	if other.Chunking.MinWords != 0 {
		c.Chunking.MinWords = other.Chunking.MinWords
	}
	if other.Chunking.MaxWords != 0 {
		c.Chunking.MaxWords = other.Chunking.MaxWords
	}
	if other.Chunking.MaxParallelTranslations != 0 {
		c.Chunking.MaxParallelTranslations = other.Chunking.MaxParallelTranslations
	}

	if other.Jobs.MaxConcurrentPerType != 0 {
		c.Jobs.MaxConcurrentPerType = other.Jobs.MaxConcurrentPerType
	}
	if other.Jobs.CleanupInterval != 0 {
		c.Jobs.CleanupInterval = other.Jobs.CleanupInterval
	}
}
