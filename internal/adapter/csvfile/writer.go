package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

// outputRow is the CSV shape of an enriched record.
type outputRow struct {
	Country      string  `csv:"Country"`
	Capital      string  `csv:"Capital"`
	Median       float64 `csv:"Median growth"`
	Mean         float64 `csv:"Mean growth"`
	AverageTemp  float64 `csv:"Average Temp"`
	AverageHumid float64 `csv:"Average humidity"`
	TotalCases   int64   `csv:"Total cases"`
}

func toRow(r domain.EnrichedRecord) outputRow {
	return outputRow{
		Country:      r.EntityID,
		Capital:      r.Capital,
		Median:       r.Median,
		Mean:         r.Mean,
		AverageTemp:  r.AverageTemp,
		AverageHumid: r.AverageHumid,
		TotalCases:   int64(math.Round(r.TotalCases)),
	}
}

// Write encodes records with a header row. The header is written even when
// records is empty.
func Write(w io.Writer, records []domain.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false

	if err := enc.EncodeHeader(outputRow{}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, r := range records {
		if err := enc.Encode(toRow(r)); err != nil {
			return fmt.Errorf("encode %s: %w", r.EntityID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileSink writes the run's records to a CSV file. It implements pipeline.Loader.
type FileSink struct {
	path string
}

// NewFileSink creates a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Name identifies the sink in logs and metrics.
func (s *FileSink) Name() string { return "csv" }

// Load writes records to a temporary file next to the target and renames it
// into place, so a failed run leaves any previous output intact.
func (s *FileSink) Load(_ context.Context, records []domain.EnrichedRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".result-*.csv")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
