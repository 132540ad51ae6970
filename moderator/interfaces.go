package moderator

import (
	"context"

	"github.com/modfox/moderation-pipeline/cache"
	"github.com/modfox/moderation-pipeline/meter"
)

// ScoreClient scores batches of text, returning one label->probability map
// per input in input order. Label names are arbitrary; the service projects
// them onto the tracked label set.
type ScoreClient interface {
	ScoreBatch(ctx context.Context, texts []string) ([]map[string]float64, error)
}

// ResultCache persists scoring results by fingerprint. Get returns
// cache.ErrNotFound on a miss; Put is an idempotent upsert.
type ResultCache interface {
	Get(ctx context.Context, hash string) (*cache.Entry, error)
	Put(ctx context.Context, hash string, e cache.Entry) error
}

// MetricsRecorder accumulates per-request metrics.
type MetricsRecorder interface {
	Record(cacheHit, flagged bool, latencyMS float64)
	Snapshot() meter.Snapshot
}
