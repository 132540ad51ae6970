// Package moderator orchestrates a single moderation request: validate,
// fingerprint, cache lookup, classify on miss, cache write, and metering.
package moderator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modfox/moderation-pipeline/cache"
	"github.com/modfox/moderation-pipeline/labels"
	"github.com/modfox/moderation-pipeline/meter"
)

// ErrEmptyText rejects requests whose text is empty after trimming. It is a
// client error and never reaches the classifier.
var ErrEmptyText = errors.New("moderator: text is required")

// Result is the outcome of one moderation request.
type Result struct {
	Score   float64
	Flagged bool
	Labels  labels.Scores
	Cached  bool
}

// Service ties the result cache, the classifier and the meter together. One
// Service is built at startup and shared by all concurrent requests.
type Service struct {
	classifier    ScoreClient
	cache         ResultCache
	meter         MetricsRecorder
	modelVersion  string
	flagThreshold float64
}

// New creates a Service from cfg. Classifier and Cache are required.
func New(cfg Config) (*Service, error) {
	cfg.applyDefaults()

	if cfg.Classifier == nil {
		return nil, errors.New("moderator: Config.Classifier is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("moderator: Config.Cache is required")
	}

	m := cfg.Meter
	if m == nil {
		m = meter.New()
	}

	return &Service{
		classifier:    cfg.Classifier,
		cache:         cfg.Cache,
		meter:         m,
		modelVersion:  cfg.ModelVersion,
		flagThreshold: cfg.FlagThreshold,
	}, nil
}

// Fingerprint derives the cache key for text under the given model version.
// Any model version bump changes every key.
func Fingerprint(text, modelVersion string) string {
	sum := sha256.Sum256([]byte(text + "|" + modelVersion))
	return hex.EncodeToString(sum[:])
}

// ModelVersion returns the classifier version mixed into cache keys.
func (s *Service) ModelVersion() string {
	return s.modelVersion
}

// Metrics returns a snapshot of the service's request metrics.
func (s *Service) Metrics() meter.Snapshot {
	return s.meter.Snapshot()
}

// Moderate scores text. Cached results are returned verbatim: cache presence
// never changes the observable result, only its latency and hit attribution.
// Classifier failures propagate; cache write failures do not fail the request.
func (s *Service) Moderate(ctx context.Context, text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, ErrEmptyText
	}

	start := time.Now()
	hash := Fingerprint(trimmed, s.modelVersion)

	entry, err := s.cache.Get(ctx, hash)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		// A broken cache degrades to a miss, it never fails the request.
		slog.Warn("cache lookup failed, treating as miss", "error", err)
		entry = nil
	}

	if entry != nil {
		s.meter.Record(true, entry.Flagged, float64(time.Since(start).Microseconds())/1000)
		return Result{
			Score:   entry.Score,
			Flagged: entry.Flagged,
			Labels:  entry.Labels,
			Cached:  true,
		}, nil
	}

	raw, err := s.classifier.ScoreBatch(ctx, []string{trimmed})
	if err != nil {
		return Result{}, fmt.Errorf("moderator: classify: %w", err)
	}
	if len(raw) != 1 {
		return Result{}, fmt.Errorf("moderator: classifier returned %d results for 1 input", len(raw))
	}

	scores := labels.FromRaw(raw[0])
	res := Result{
		Score:   scores.Primary(),
		Flagged: scores.Flagged(s.flagThreshold),
		Labels:  scores,
	}

	if err := s.cache.Put(ctx, hash, cache.Entry{
		Score:   res.Score,
		Flagged: res.Flagged,
		Labels:  res.Labels,
	}); err != nil {
		slog.Warn("cache write failed", "error", err)
	}

	s.meter.Record(false, res.Flagged, float64(time.Since(start).Microseconds())/1000)
	return res, nil
}
