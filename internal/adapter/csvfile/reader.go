// Package csvfile reads the daily case-count series and writes enriched records
// as CSV.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
)

// Input column positions.
const (
	colDate       = 0
	colEntity     = 1
	colNewCases   = 2
	colCumulative = 4
	colCity       = 6

	minColumns = colCumulative + 1
)

// ReadFile opens path and reads it with Read.
func ReadFile(path string, floor float64, logger *slog.Logger) (domain.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return Read(f, floor, logger)
}

// Read parses the series. The header must start with a "date" column and have at
// least five columns. Rows that cannot be parsed are skipped with a warning; rows
// whose cumulative count is at or below floor are dropped.
func Read(r io.Reader, floor float64, logger *slog.Logger) (domain.TimeSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", domain.ErrMalformedHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var (
		series  domain.TimeSeries
		line    = 1
		skipped int
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		row, err := parseRow(record)
		if err != nil {
			skipped++
			logger.Debug("skipping input row", "line", line, "error", err)
			continue
		}
		series = append(series, row)
	}

	if skipped > 0 {
		logger.Warn("skipped unparseable input rows", "count", skipped)
	}
	return series.DropAtOrBelow(floor), nil
}

func validateHeader(header []string) error {
	if len(header) < minColumns {
		return fmt.Errorf("%w: want at least %d columns, got %d", domain.ErrMalformedHeader, minColumns, len(header))
	}
	first := strings.TrimPrefix(strings.TrimSpace(header[colDate]), "\ufeff")
	if !strings.EqualFold(first, "date") {
		return fmt.Errorf("%w: first column is %q, want \"date\"", domain.ErrMalformedHeader, header[colDate])
	}
	return nil
}

func parseRow(record []string) (domain.TimeSeriesRow, error) {
	if len(record) < minColumns {
		return domain.TimeSeriesRow{}, fmt.Errorf("want at least %d columns, got %d", minColumns, len(record))
	}

	date, err := time.Parse(domain.DateLayout, strings.TrimSpace(record[colDate]))
	if err != nil {
		return domain.TimeSeriesRow{}, fmt.Errorf("date: %w", err)
	}
	entity := strings.TrimSpace(record[colEntity])
	if entity == "" {
		return domain.TimeSeriesRow{}, errors.New("empty entity")
	}
	cumulative, err := strconv.ParseFloat(strings.TrimSpace(record[colCumulative]), 64)
	if err != nil {
		return domain.TimeSeriesRow{}, fmt.Errorf("cumulative cases: %w", err)
	}

	row := domain.TimeSeriesRow{
		Date:            date,
		EntityID:        entity,
		CumulativeCases: cumulative,
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(record[colNewCases]), 64); err == nil {
		row.NewCases = v
	}
	if len(record) > colCity {
		row.RegionCity = strings.TrimSpace(record[colCity])
	}
	return row, nil
}

// FileSource reads the series from a CSV file. It implements pipeline.Extractor.
type FileSource struct {
	path   string
	floor  float64
	logger *slog.Logger
}

// NewFileSource creates a source for path that drops rows whose cumulative
// count is at or below floor.
func NewFileSource(path string, floor float64, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, floor: floor, logger: logger}
}

// Extract reads the whole file.
func (s *FileSource) Extract(ctx context.Context) (domain.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(s.path, s.floor, s.logger)
}
