// The moderation-pipeline binary runs batch passes over incoming comment
// files: one-shot by default, repeatedly with -watch. -seed writes a sample
// incoming file for local experimentation.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/modfox/moderation-pipeline/cache"
	"github.com/modfox/moderation-pipeline/clients/huggingface"
	"github.com/modfox/moderation-pipeline/config"
	"github.com/modfox/moderation-pipeline/logging"
	"github.com/modfox/moderation-pipeline/pipeline"
)

var sampleComments = []string{
	"I <b>love</b> this! https://example.com",
	"This is SO BAD!!! <script>alert('x')</script>",
	"Check www.test.com for more info \n\n New lines.",
	"Completely neutral statement about the weather.",
}

func main() {
	_ = godotenv.Load()

	var (
		runDate = flag.String("date", time.Now().Format("2006-01-02"), "run date keying the output partition")
		watch   = flag.Duration("watch", 0, "rerun at this interval until interrupted (0 = one-shot)")
		seed    = flag.Int("seed", 0, "write a sample incoming CSV with this many rows and exit")
	)
	flag.Parse()

	cfg := config.Load()
	logging.Init(logging.ParseLevel(cfg.API.LogLevel))

	if *seed > 0 {
		if err := writeSample(cfg.Pipeline.IncomingDir, *seed); err != nil {
			slog.Error("seeding sample data", "error", err)
			os.Exit(1)
		}
		return
	}

	classifier := huggingface.NewClient(cfg.Classifier.APIKey)
	if cfg.Classifier.Endpoint != "" {
		classifier.SetBaseURL(cfg.Classifier.Endpoint)
	}

	driver, err := pipeline.NewDriver(pipeline.DriverConfig{
		Dirs: pipeline.Dirs{
			Incoming:   cfg.Pipeline.IncomingDir,
			Processed:  cfg.Pipeline.ProcessedDir,
			Scored:     cfg.Pipeline.ScoredDir,
			Quarantine: cfg.Pipeline.QuarantineDir,
		},
		Classifier:     classifier,
		Ledger:         pipeline.NewLedger(cfg.Pipeline.LedgerPath, cfg.Pipeline.LedgerMaxEntries),
		FlagThreshold:  cfg.Classifier.FlagThreshold,
		ScoreBatchSize: cfg.Pipeline.ScoreBatchSize,
		Parallelism:    cfg.Pipeline.Parallelism,
	})
	if err != nil {
		slog.Error("building batch driver", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOnce := func(date string) {
		summary, err := driver.Run(ctx, date)
		if err != nil {
			slog.Error("batch run failed", "error", err)
			return
		}
		fmt.Printf("run %s (%s): processed=%d failed=%d\n",
			summary.RunID, summary.RunDate, summary.ProcessedCount, summary.FailedCount)
		pruneCache(ctx, cfg.Cache)
	}

	runOnce(*runDate)
	if *watch <= 0 {
		return
	}

	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(time.Now().Format("2006-01-02"))
		}
	}
}

// pruneCache keeps the result cache growth-bounded. Best-effort: a failure
// here never fails the run.
func pruneCache(ctx context.Context, cfg config.CacheConfig) {
	store, err := cache.Open(cfg.DBPath)
	if err != nil {
		slog.Warn("cache prune skipped", "error", err)
		return
	}
	defer store.Close()

	deleted, err := store.Prune(ctx, cfg.MaxEntries)
	if err != nil {
		slog.Warn("cache prune failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("pruned result cache", "deleted", deleted, "kept", cfg.MaxEntries)
	}
}

func writeSample(incomingDir string, rows int) error {
	if err := os.MkdirAll(incomingDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(incomingDir, fmt.Sprintf("sample_%d.csv", time.Now().Unix()))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "text"}); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		text := sampleComments[i%len(sampleComments)]
		if err := w.Write([]string{strconv.Itoa(i + 1), text}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Printf("wrote sample data -> %s\n", path)
	return nil
}
