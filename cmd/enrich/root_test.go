package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const input = `date,location,new_cases,new_deaths,total_cases,total_deaths,city
2020-03-01,Italy,10,0,50,0,
2020-03-02,Italy,10,0,100,0,
2020-03-01,Spain,1,0,30,0,Madrid
2020-03-01,Narnia,1,0,2,0,
`

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAPBOX_TOKEN", "test-token")
	t.Setenv("WEATHER_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "error")
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "full_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDryRun(t *testing.T) {
	setRequiredEnv(t)

	out, err := execute(t, "--input", writeInput(t), "--dry-run")
	require.NoError(t, err)

	var got []dryRunEntity
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []dryRunEntity{
		{ID: "Italy", TotalCases: 100},
		{ID: "Spain", CityHint: "Madrid", TotalCases: 30},
	}, got)
}

func TestDryRun_Limit(t *testing.T) {
	setRequiredEnv(t)

	out, err := execute(t, "--input", writeInput(t), "--dry-run", "--limit", "1")
	require.NoError(t, err)

	var got []dryRunEntity
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Italy", got[0].ID)
}

func TestDryRun_MissingInput(t *testing.T) {
	setRequiredEnv(t)

	_, err := execute(t, "--input", filepath.Join(t.TempDir(), "missing.csv"), "--dry-run")
	require.Error(t, err)
}

func TestInvalidFlags(t *testing.T) {
	setRequiredEnv(t)

	_, err := execute(t, "--concurrency", "0", "--dry-run")
	require.ErrorContains(t, err, "--concurrency")

	_, err = execute(t, "--limit=-1", "--dry-run")
	require.ErrorContains(t, err, "--limit")
}

func TestDryRun_WithoutCredentials(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", "")
	t.Setenv("WEATHER_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "--input", writeInput(t), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Italy")
}

func TestConfigErrorIsFatal(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("MAPBOX_TOKEN", "")

		_, err := execute(t, "--input", writeInput(t))
		require.ErrorContains(t, err, "load config")
	})

	t.Run("invalid setting on dry run", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CACHE_BACKEND", "memcached")

		_, err := execute(t, "--input", writeInput(t), "--dry-run")
		require.ErrorContains(t, err, "load config")
	})
}
