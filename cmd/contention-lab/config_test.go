package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/contention-lab/contention"
)

func Test_parseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags(nil, io.Discard)

	require.NoError(t, err)
	assert.Equal(t, contention.StrategyKinds(), cfg.Strategies)
	assert.Equal(t, int64(2), cfg.Capacity)
	assert.Equal(t, 5, cfg.Participants)
	assert.Equal(t, 3, cfg.RetryLimit)
	assert.Equal(t, 100*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 10*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, storeMemory, cfg.Store)
	assert.Equal(t, formatText, cfg.Format)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.False(t, cfg.ObservabilityEnabled)
}

func Test_parseFlags_AllFlags(t *testing.T) {
	cfg, err := parseFlags([]string{
		"-strategy", "unsynchronized,optimistic",
		"-capacity", "10",
		"-participants", "50",
		"-retries", "8",
		"-settle", "0s",
		"-timeout", "3s",
		"-store", "PGX",
		"-dsn", "postgres://u:p@db:5432/lab",
		"-pool-name", "flash-sale",
		"-plan", "plan.yaml",
		"-report", "report.json",
		"-serve", ":9090",
		"-format", "json",
		"-observability",
		"-log-level", "debug",
	}, io.Discard)

	require.NoError(t, err)
	assert.Equal(t, []contention.StrategyKind{contention.Race, contention.Optimistic}, cfg.Strategies)
	assert.Equal(t, int64(10), cfg.Capacity)
	assert.Equal(t, 50, cfg.Participants)
	assert.Equal(t, 8, cfg.RetryLimit)
	assert.Zero(t, cfg.SettleDelay)
	assert.Equal(t, 3*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, storePGX, cfg.Store)
	assert.Equal(t, "postgres://u:p@db:5432/lab", cfg.DSN)
	assert.Equal(t, "flash-sale", cfg.PoolName)
	assert.Equal(t, "plan.yaml", cfg.PlanURL)
	assert.Equal(t, "report.json", cfg.ReportURL)
	assert.Equal(t, ":9090", cfg.ServeAddr)
	assert.Equal(t, formatJSON, cfg.Format)
	assert.True(t, cfg.ObservabilityEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func Test_parseFlags_RejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "strategy", args: []string{"-strategy", "lottery"}, wantErr: contention.ErrUnknownStrategy},
		{name: "capacity", args: []string{"-capacity", "-1"}, wantErr: contention.ErrInvalidCapacity},
		{name: "participants", args: []string{"-participants", "0"}, wantErr: contention.ErrInvalidParticipantCount},
		{name: "retries", args: []string{"-retries", "0"}, wantErr: contention.ErrInvalidRetryLimit},
		{name: "format", args: []string{"-format", "xml"}, wantErr: ErrInvalidFormat},
		{name: "store", args: []string{"-store", "redis"}, wantErr: ErrInvalidStore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFlags(tc.args, io.Discard)

			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_parseFlags_RejectsUnknownLogLevel(t *testing.T) {
	_, err := parseFlags([]string{"-log-level", "loud"}, io.Discard)

	assert.ErrorContains(t, err, "invalid log level")
}
