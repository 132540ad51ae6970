package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxLedgerEntries caps the processed-file ledger before compaction
// truncates it.
const DefaultMaxLedgerEntries = 5000

// FileFingerprint derives the ledger key for a file from its name, size and
// modification time. Note this is a weak identity, not a content hash: two
// distinct files sharing name, size and mtime collide.
func FileFingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("pipeline: stat %s: %w", path, err)
	}
	key := fmt.Sprintf("%s|%d|%d", info.Name(), info.Size(), info.ModTime().UnixNano())
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]), nil
}

// Ledger is the durable set of fingerprints for files already fully
// processed. It is stored as a JSON array; an unreadable or corrupt file is
// treated as an empty ledger rather than a fatal error.
type Ledger struct {
	mu         sync.Mutex
	path       string
	maxEntries int
}

// NewLedger returns a Ledger persisted at path, compacting down to
// maxEntries. A maxEntries of 0 or less uses DefaultMaxLedgerEntries.
func NewLedger(path string, maxEntries int) *Ledger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxLedgerEntries
	}
	return &Ledger{path: path, maxEntries: maxEntries}
}

// load reads the ledger entries in insertion order. Fail-open on corruption.
func (l *Ledger) load() []string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ledger unreadable, treating as empty", "path", l.path, "error", err)
		}
		return nil
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("ledger corrupt, treating as empty", "path", l.path, "error", err)
		return nil
	}
	return entries
}

func (l *Ledger) write(entries []string) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pipeline: create ledger directory: %w", err)
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("pipeline: encode ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write ledger: %w", err)
	}
	return nil
}

// Contains reports whether fingerprint is recorded as processed.
func (l *Ledger) Contains(fingerprint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.load() {
		if e == fingerprint {
			return true
		}
	}
	return false
}

// Mark records fingerprint as processed. Marking the same fingerprint twice
// leaves the ledger unchanged (set semantics).
func (l *Ledger) Mark(fingerprint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load()
	for _, e := range entries {
		if e == fingerprint {
			return nil
		}
	}
	return l.write(append(entries, fingerprint))
}

// Len returns the current entry count.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.load())
}

// Compact truncates the ledger to its newest maxEntries entries. Old entries
// are dropped, trading reprocessing risk for bounded storage.
func (l *Ledger) Compact() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.load()
	if len(entries) <= l.maxEntries {
		return nil
	}
	trimmed := entries[len(entries)-l.maxEntries:]
	if err := l.write(trimmed); err != nil {
		return err
	}
	slog.Info("compacted ledger", "path", l.path, "from", len(entries), "to", len(trimmed))
	return nil
}
