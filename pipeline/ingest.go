package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingTextColumn fails ingestion of tabular input that has no
// recognizable text column.
var ErrMissingTextColumn = errors.New("pipeline: input must contain a 'text' or 'comment_text' column")

// Row is one ingested comment. ID is empty when the input has no id column.
type Row struct {
	ID   string
	Text string
}

// ReadCommentsCSV parses a comment CSV. The text column may be named "text"
// or, as a legacy synonym, "comment_text"; an "id" column is carried through
// when present.
func ReadCommentsCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("pipeline: read header of %s: %w", path, err)
	}

	textCol, idCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "text":
			textCol = i
		case "comment_text":
			if textCol < 0 {
				textCol = i
			}
		case "id":
			idCol = i
		}
	}
	if textCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingTextColumn, path)
	}

	var rows []Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline: read %s: %w", path, err)
		}
		if textCol >= len(record) {
			continue
		}
		row := Row{Text: record[textCol]}
		if idCol >= 0 && idCol < len(record) {
			row.ID = record[idCol]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
