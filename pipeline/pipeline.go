// Package pipeline is the batch driver: it discovers incoming comment files,
// runs ingest -> clean -> score -> store on each, archives successes,
// quarantines failures and keeps the processed-file ledger bounded.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/modfox/moderation-pipeline/cleaning"
	"github.com/modfox/moderation-pipeline/labels"
	"github.com/modfox/moderation-pipeline/moderator"
)

const (
	defaultScoreBatchSize = 32
	defaultParallelism    = 4
)

// Dirs are the watched locations of the batch driver.
type Dirs struct {
	Incoming   string
	Processed  string
	Scored     string
	Quarantine string
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	Dirs       Dirs
	Classifier moderator.ScoreClient
	Ledger     *Ledger

	// FlagThreshold defaults to labels.DefaultFlagThreshold.
	FlagThreshold float64

	// ScoreBatchSize is how many texts go to the classifier per call.
	ScoreBatchSize int

	// Parallelism bounds concurrent per-file processing.
	Parallelism int
}

func (c *DriverConfig) applyDefaults() {
	if c.FlagThreshold == 0 {
		c.FlagThreshold = labels.DefaultFlagThreshold
	}
	if c.ScoreBatchSize <= 0 {
		c.ScoreBatchSize = defaultScoreBatchSize
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaultParallelism
	}
}

// FileResult is the explicit per-file outcome of a run: either an output
// path or the error that sent the file to quarantine.
type FileResult struct {
	Path       string
	OutputPath string
	Err        error
}

// Summary aggregates one run. Per-file failures never abort a run, they are
// collected here.
type Summary struct {
	RunID          string
	RunDate        string
	ProcessedCount int
	FailedCount    int
	Results        []FileResult
}

// Driver executes batch runs.
type Driver struct {
	cfg DriverConfig
}

// NewDriver validates cfg and returns a Driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	cfg.applyDefaults()
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("pipeline: DriverConfig.Classifier is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("pipeline: DriverConfig.Ledger is required")
	}
	if cfg.Dirs.Incoming == "" || cfg.Dirs.Processed == "" || cfg.Dirs.Scored == "" || cfg.Dirs.Quarantine == "" {
		return nil, fmt.Errorf("pipeline: all four directories must be configured")
	}
	return &Driver{cfg: cfg}, nil
}

// Run executes one batch pass: list new files, process each in isolation,
// archive or quarantine, then compact the ledger. runDate keys the output
// partition, e.g. "2026-08-29".
func (d *Driver) Run(ctx context.Context, runDate string) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), RunDate: runDate}

	files, err := d.listNewFiles()
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		slog.Info("no new files to process", "run_id", summary.RunID)
		return summary, nil
	}

	outDir := filepath.Join(d.cfg.Dirs.Scored, "dt="+runDate)

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Parallelism)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			outPath, err := d.processFile(gctx, path, outDir)
			results[i] = FileResult{Path: path, OutputPath: outPath, Err: err}
			// Failures are isolated per file, never returned to the group.
			return nil
		})
	}
	g.Wait()

	d.archive(results)
	summary.Results = results
	for _, r := range results {
		if r.Err != nil {
			summary.FailedCount++
		} else {
			summary.ProcessedCount++
		}
	}

	// Housekeeping is best-effort and runs exactly once per run.
	if err := d.cfg.Ledger.Compact(); err != nil {
		slog.Error("ledger compaction failed", "run_id", summary.RunID, "error", err)
	}

	slog.Info("batch run finished",
		"run_id", summary.RunID,
		"run_date", runDate,
		"processed_count", summary.ProcessedCount,
		"failed_count", summary.FailedCount,
	)
	return summary, nil
}

// listNewFiles returns incoming CSVs whose fingerprints are not in the ledger.
func (d *Driver) listNewFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.cfg.Dirs.Incoming, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: list incoming: %w", err)
	}

	var files []string
	for _, path := range matches {
		fp, err := FileFingerprint(path)
		if err != nil {
			slog.Warn("cannot fingerprint file, skipping", "path", path, "error", err)
			continue
		}
		if !d.cfg.Ledger.Contains(fp) {
			files = append(files, path)
		}
	}
	return files, nil
}

// processFile runs ingest -> clean -> score -> store for one file and returns
// the output path.
func (d *Driver) processFile(ctx context.Context, path, outDir string) (string, error) {
	slog.Info("processing file", "file", filepath.Base(path))

	rows, err := ReadCommentsCSV(path)
	if err != nil {
		return "", err
	}

	scored := make([]ScoredRow, len(rows))
	texts := make([]string, len(rows))
	for i, row := range rows {
		clean := cleaning.BasicClean(row.Text)
		texts[i] = clean
		scored[i] = ScoredRow{ID: row.ID, Text: row.Text, CleanText: clean}
	}

	for start := 0; start < len(texts); start += d.cfg.ScoreBatchSize {
		end := start + d.cfg.ScoreBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := d.scoreBatch(ctx, texts[start:end])
		if err != nil {
			return "", err
		}
		for i, raw := range batch {
			s := labels.FromRaw(raw)
			row := &scored[start+i]
			row.Toxic = s.Toxic
			row.SevereToxic = s.SevereToxic
			row.Obscene = s.Obscene
			row.Threat = s.Threat
			row.Insult = s.Insult
			row.IdentityHate = s.IdentityHate
			row.Flagged = s.Flagged(d.cfg.FlagThreshold)
			row.ToxicityScore = s.Primary()
		}
	}

	stem := filepath.Base(path)
	stem = stem[:len(stem)-len(filepath.Ext(stem))]
	outPath := filepath.Join(outDir, "stream_"+stem+".parquet")
	if err := WriteScoredParquet(outPath, scored); err != nil {
		return "", err
	}
	slog.Info("wrote scored partition", "output", outPath, "rows", len(scored))
	return outPath, nil
}

// scoreBatch calls the classifier with retry; classifier hiccups fail only
// the file they belong to, after the retry budget is spent.
func (d *Driver) scoreBatch(ctx context.Context, texts []string) ([]map[string]float64, error) {
	var out []map[string]float64
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := d.cfg.Classifier.ScoreBatch(ctx, texts)
		if err != nil {
			return retry.RetryableError(err)
		}
		if len(res) != len(texts) {
			return fmt.Errorf("pipeline: classifier returned %d results for %d inputs", len(res), len(texts))
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: score batch: %w", err)
	}
	return out, nil
}

// archive moves successfully processed files into the processed directory and
// records them in the ledger; failed files go to quarantine unrecorded so a
// fixed copy can be resubmitted.
func (d *Driver) archive(results []FileResult) {
	for i := range results {
		r := &results[i]
		if r.Err != nil {
			if err := moveFile(r.Path, d.cfg.Dirs.Quarantine); err != nil {
				slog.Error("quarantine move failed", "file", r.Path, "error", err)
				continue
			}
			slog.Warn("quarantined file", "file", filepath.Base(r.Path), "error", r.Err)
			continue
		}

		dst := filepath.Join(d.cfg.Dirs.Processed, filepath.Base(r.Path))
		if err := moveFile(r.Path, d.cfg.Dirs.Processed); err != nil {
			slog.Error("archive move failed", "file", r.Path, "error", err)
			continue
		}
		fp, err := FileFingerprint(dst)
		if err != nil {
			slog.Error("cannot fingerprint archived file", "file", dst, "error", err)
			continue
		}
		if err := d.cfg.Ledger.Mark(fp); err != nil {
			slog.Error("ledger mark failed", "file", dst, "error", err)
			continue
		}
		slog.Info("archived file", "file", filepath.Base(dst))
	}
}

func moveFile(src, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	return os.Rename(src, filepath.Join(dstDir, filepath.Base(src)))
}
