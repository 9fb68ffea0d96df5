package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/case-enrichment-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInput = `date,location,new_cases,new_deaths,total_cases,total_deaths,city
2020-03-01,Italy,10,0,3,0,Rome
2020-03-02,Italy,10,0,10,0,Rome
2020-03-03,Italy,10,0,20,0,
2020-03-01,Spain,1,0,5,0
2020-03-02,Spain,x,0,,0
not-a-date,Spain,1,0,9,0
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRead(t *testing.T) {
	series, err := Read(strings.NewReader(sampleInput), 4, discardLogger())
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, domain.TimeSeriesRow{
		Date:            time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC),
		EntityID:        "Italy",
		NewCases:        10,
		CumulativeCases: 10,
		RegionCity:      "Rome",
	}, series[0])
	assert.Equal(t, "Spain", series[2].EntityID)
	assert.Empty(t, series[1].RegionCity)
}

func TestRead_MalformedHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too few columns", "date,location,new_cases\n"},
		{"no date column", "2020-03-01,Italy,10,0,3,0\n2020-03-02,Italy,10,0,10,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input), 4, discardLogger())
			require.ErrorIs(t, err, domain.ErrMalformedHeader)
		})
	}
}

func TestRead_HeaderWithBOM(t *testing.T) {
	input := "\ufeffDate,location,new_cases,new_deaths,total_cases\n2020-03-01,Italy,1,0,7\n"
	series, err := Read(strings.NewReader(input), 4, discardLogger())
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), 4, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input")
}

func testRecords() []domain.EnrichedRecord {
	return []domain.EnrichedRecord{
		{EntityID: "Italy", Capital: "Rome", Median: 0.25, Mean: 0.3, AverageTemp: 9.5, AverageHumid: 0.71, TotalCases: 1234567},
		{EntityID: "Korea, South", Capital: "Seoul", Median: 1, Mean: 1, AverageTemp: -1.25, AverageHumid: 0.5, TotalCases: 80},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Country", "Capital", "Median growth", "Mean growth", "Average Temp", "Average humidity", "Total cases"}, rows[0])
	assert.Equal(t, "Italy", rows[1][0])
	assert.Equal(t, "Rome", rows[1][1])
	assert.Equal(t, "1234567", rows[1][6])
	assert.Equal(t, "Korea, South", rows[2][0])

	temp, err := strconv.ParseFloat(rows[2][4], 64)
	require.NoError(t, err)
	assert.InDelta(t, -1.25, temp, 1e-9)
}

func TestWrite_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "Country,Capital,Median growth,Mean growth,Average Temp,Average humidity,Total cases\n", buf.String())
}

func TestFileSink_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	sink := NewFileSink(path)
	require.NoError(t, sink.Load(context.Background(), testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Country,Capital"))
	assert.Equal(t, "csv", sink.Name())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}

func TestFileSink_LoadBadDirectory(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing", "result.csv"))
	err := sink.Load(context.Background(), testRecords())
	require.Error(t, err)
}

func TestFileSource_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "full_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleInput), 0o600))

	series, err := NewFileSource(path, 4, discardLogger()).Extract(context.Background())
	require.NoError(t, err)
	assert.Len(t, series, 3)
}
