package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// ScoredRow is the batch output schema: the ingested columns plus the cleaned
// text, the six label probabilities, the flagged verdict and a
// legacy-compatible toxicity_score mirroring the toxic label.
type ScoredRow struct {
	ID            string  `parquet:"id"`
	Text          string  `parquet:"text"`
	CleanText     string  `parquet:"clean_text"`
	Toxic         float64 `parquet:"toxic"`
	SevereToxic   float64 `parquet:"severe_toxic"`
	Obscene       float64 `parquet:"obscene"`
	Threat        float64 `parquet:"threat"`
	Insult        float64 `parquet:"insult"`
	IdentityHate  float64 `parquet:"identity_hate"`
	Flagged       bool    `parquet:"flagged"`
	ToxicityScore float64 `parquet:"toxicity_score"`
}

// WriteScoredParquet writes rows to a parquet file at path, creating parent
// directories as needed.
func WriteScoredParquet(path string, rows []ScoredRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pipeline: create output directory: %w", err)
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("pipeline: write parquet %s: %w", path, err)
	}
	return nil
}

// ReadScoredParquet reads back a scored partition, used by inspection tooling
// and tests.
func ReadScoredParquet(path string) ([]ScoredRow, error) {
	rows, err := parquet.ReadFile[ScoredRow](path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read parquet %s: %w", path, err)
	}
	return rows, nil
}
