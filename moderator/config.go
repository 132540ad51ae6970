package moderator

import (
	"github.com/modfox/moderation-pipeline/labels"
)

const (
	// DefaultModelVersion identifies the classifier configuration in use. It
	// is part of every cache key, so bumping it invalidates all prior cached
	// results.
	DefaultModelVersion = "unitary/toxic-bert@v1"
)

// Config holds configuration for the Service.
type Config struct {
	// Classifier scores batches of text. Required.
	Classifier ScoreClient

	// Cache stores scoring results by fingerprint. Required.
	Cache ResultCache

	// Meter records request metrics. If nil, a fresh meter is created.
	Meter MetricsRecorder

	// ModelVersion is mixed into each cache key. If empty, uses
	// DefaultModelVersion.
	ModelVersion string

	// FlagThreshold is the per-label probability at which text is flagged.
	// If 0, uses labels.DefaultFlagThreshold.
	FlagThreshold float64
}

// applyDefaults fills in default values for unset config fields.
func (c *Config) applyDefaults() {
	if c.ModelVersion == "" {
		c.ModelVersion = DefaultModelVersion
	}
	if c.FlagThreshold == 0 {
		c.FlagThreshold = labels.DefaultFlagThreshold
	}
}
