// Package config loads pipeline configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all moderation pipeline configuration.
type Config struct {
	API        APIConfig
	Classifier ClassifierConfig
	Cache      CacheConfig
	Pipeline   PipelineConfig
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Addr     string
	LogLevel string
}

// ClassifierConfig holds settings for the external toxicity classifier.
type ClassifierConfig struct {
	// Endpoint is the inference URL; empty means the client default.
	Endpoint string
	APIKey   string

	// ModelVersion goes into every cache key. Bumping it invalidates all
	// previously cached results.
	ModelVersion string

	// FlagThreshold is the per-label probability at which text is flagged.
	FlagThreshold float64
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	DBPath string

	// MaxEntries bounds the cache table; batch runs prune down to it.
	MaxEntries int64
}

// PipelineConfig holds batch driver settings.
type PipelineConfig struct {
	IncomingDir      string
	ProcessedDir     string
	ScoredDir        string
	QuarantineDir    string
	LedgerPath       string
	LedgerMaxEntries int
	ScoreBatchSize   int
	Parallelism      int
}

// Load reads configuration from environment variables with sensible defaults.
// MODERATION_DATA_DIR roots the batch directories unless they are overridden
// individually.
func Load() Config {
	dataDir := getenv("MODERATION_DATA_DIR", "data")

	return Config{
		API: APIConfig{
			Addr:     getenv("MODERATION_ADDR", ":8080"),
			LogLevel: getenv("MODERATION_LOG_LEVEL", "info"),
		},
		Classifier: ClassifierConfig{
			Endpoint:      os.Getenv("MODERATION_MODEL_URL"),
			APIKey:        os.Getenv("MODERATION_HF_API_KEY"),
			ModelVersion:  getenv("MODERATION_MODEL_VERSION", "unitary/toxic-bert@v1"),
			FlagThreshold: getenvFloat("MODERATION_FLAG_THRESHOLD", 0.5),
		},
		Cache: CacheConfig{
			DBPath:     getenv("MODERATION_DB_PATH", filepath.Join(".data", "mod_cache.db")),
			MaxEntries: int64(getenvInt("MODERATION_CACHE_MAX_ENTRIES", 100000)),
		},
		Pipeline: PipelineConfig{
			IncomingDir:      getenv("MODERATION_INCOMING_DIR", filepath.Join(dataDir, "incoming")),
			ProcessedDir:     getenv("MODERATION_PROCESSED_DIR", filepath.Join(dataDir, "processed")),
			ScoredDir:        getenv("MODERATION_SCORED_DIR", filepath.Join(dataDir, "scored")),
			QuarantineDir:    getenv("MODERATION_QUARANTINE_DIR", filepath.Join(dataDir, "quarantine")),
			LedgerPath:       getenv("MODERATION_LEDGER_PATH", filepath.Join(dataDir, ".processed_index.json")),
			LedgerMaxEntries: getenvInt("MODERATION_LEDGER_MAX_ENTRIES", 5000),
			ScoreBatchSize:   getenvInt("MODERATION_SCORE_BATCH_SIZE", 32),
			Parallelism:      getenvInt("MODERATION_PARALLELISM", 4),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
