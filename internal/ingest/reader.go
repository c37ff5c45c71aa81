// Package ingest imports tabular datasets into a storage backend through a
// YAML column mapping.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
)

// Row is one CSV record keyed by header. Line is 1-based and counts the header.
type Row struct {
	Line   int
	Record map[string]string
	Err    error
}

type CSVReader struct {
	reader io.Reader
}

func NewCSVReader(reader io.Reader) *CSVReader {
	return &CSVReader{
		reader: reader,
	}
}

// Stream emits rows in file order. The channel is closed at EOF or when ctx
// is cancelled.
func (cr *CSVReader) Stream(ctx context.Context) (<-chan Row, error) {
	csvReader := csv.NewReader(cr.reader)
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, err
	}

	out := make(chan Row, 64)
	go func() {
		defer close(out)
		line := 1
		for {
			row, err := csvReader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			line++
			res := Row{Line: line}
			switch {
			case err != nil:
				slog.Error("Error reading CSV row", "line", line, "error", err)
				res.Err = err
			case len(row) != len(headers):
				res.Err = &MappingError{Line: line, Message: "column count does not match header"}
			default:
				res.Record = make(map[string]string, len(headers))
				for i, h := range headers {
					res.Record[h] = row[i]
				}
			}
			select {
			case out <- res:
			case <-ctx.Done():
				slog.Info("Context cancelled, stopping CSV read...")
				return
			}
		}
	}()
	return out, nil
}
