package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLedger(t *testing.T, maxEntries int) *Ledger {
	t.Helper()
	return NewLedger(filepath.Join(t.TempDir(), ".processed_index.json"), maxEntries)
}

func TestLedgerMarkAndContains(t *testing.T) {
	l := newTestLedger(t, 10)

	if l.Contains("fp1") {
		t.Error("empty ledger contains fp1")
	}
	if err := l.Mark("fp1"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if !l.Contains("fp1") {
		t.Error("ledger missing fp1 after Mark")
	}
	if l.Contains("fp2") {
		t.Error("ledger contains unmarked fp2")
	}
}

func TestLedgerMarkIdempotent(t *testing.T) {
	l := newTestLedger(t, 10)

	for i := 0; i < 3; i++ {
		if err := l.Mark("same"); err != nil {
			t.Fatalf("Mark #%d: %v", i+1, err)
		}
	}
	if got := l.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
}

func TestLedgerCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".processed_index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	l := NewLedger(path, 10)
	if got := l.Len(); got != 0 {
		t.Errorf("Len = %d, want 0 for corrupt ledger", got)
	}
	if err := l.Mark("recovered"); err != nil {
		t.Fatalf("Mark on corrupt ledger: %v", err)
	}
	if !l.Contains("recovered") {
		t.Error("ledger missing entry written over corrupt file")
	}
}

func TestLedgerCompactKeepsNewestEntries(t *testing.T) {
	l := newTestLedger(t, 5)

	for i := 0; i < 12; i++ {
		if err := l.Mark(fmt.Sprintf("fp-%02d", i)); err != nil {
			t.Fatalf("Mark: %v", err)
		}
	}

	if err := l.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if got := l.Len(); got != 5 {
		t.Errorf("Len after compact = %d, want 5", got)
	}
	for i := 7; i < 12; i++ {
		fp := fmt.Sprintf("fp-%02d", i)
		if !l.Contains(fp) {
			t.Errorf("newest entry %s dropped by compaction", fp)
		}
	}
	if l.Contains("fp-00") {
		t.Error("oldest entry survived compaction")
	}
}

func TestLedgerCompactNoopUnderCap(t *testing.T) {
	l := newTestLedger(t, 5)
	l.Mark("a")
	l.Mark("b")

	if err := l.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if got := l.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestLedgerPersistsAsJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".processed_index.json")
	l := NewLedger(path, 10)
	l.Mark("x")
	l.Mark("y")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("ledger not a JSON array: %v", err)
	}
	if len(entries) != 2 || entries[0] != "x" || entries[1] != "y" {
		t.Errorf("entries = %v, want [x y]", entries)
	}
}

func TestFileFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "comments.csv")
	if err := os.WriteFile(path, []byte("id,text\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fp1, err := FileFingerprint(path)
	if err != nil {
		t.Fatalf("FileFingerprint: %v", err)
	}
	fp2, err := FileFingerprint(path)
	if err != nil {
		t.Fatalf("FileFingerprint: %v", err)
	}
	if fp1 != fp2 {
		t.Error("fingerprint not stable for unchanged file")
	}

	// Changing content size changes the fingerprint.
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(path, []byte("id,text\n1,hello\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	fp3, err := FileFingerprint(path)
	if err != nil {
		t.Fatalf("FileFingerprint: %v", err)
	}
	if fp3 == fp1 {
		t.Error("fingerprint unchanged after file modification")
	}
}
