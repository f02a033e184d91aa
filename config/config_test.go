package config_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/contention-lab/config"
)

func Test_PostgresDSN_ExplicitValueWins(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "postgres://env@localhost/env")

	assert.Equal(t, "postgres://flag@localhost/flag", config.PostgresDSN("postgres://flag@localhost/flag"))
}

func Test_PostgresDSN_FallsBackToEnvironment(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "postgres://env@localhost/env")

	assert.Equal(t, "postgres://env@localhost/env", config.PostgresDSN(""))
}

func Test_PostgresDSN_FallsBackToDefault(t *testing.T) {
	t.Setenv(config.EnvPostgresDSN, "")

	assert.Equal(t, config.DefaultPostgresDSN(), config.PostgresDSN(""))
}

func Test_PostgresPGXPoolConfig_AppliesPoolTuning(t *testing.T) {
	dbConfig, err := config.PostgresPGXPoolConfig(config.DefaultPostgresDSN())

	require.NoError(t, err)
	assert.Equal(t, int32(50), dbConfig.MaxConns)
	assert.Equal(t, int32(2), dbConfig.MinConns)
	assert.Equal(t, 5*time.Second, dbConfig.ConnConfig.ConnectTimeout)
	assert.Equal(t, "contention", dbConfig.ConnConfig.Database)
}

func Test_PostgresPGXPoolConfig_RejectsMalformedDSN(t *testing.T) {
	_, err := config.PostgresPGXPoolConfig("postgres://localhost:notaport/db")

	assert.Error(t, err)
}

func Test_NewObservabilityConfig_ExportsSpansToTheWriter(t *testing.T) {
	// setup
	var out bytes.Buffer
	providers, err := config.NewObservabilityConfig(t.Context(), &out, "contention-lab-test", "test")
	require.NoError(t, err)

	// act
	_, span := providers.TracerProvider.Tracer("test").Start(t.Context(), "contention.Run")
	span.End()

	counter, err := providers.MeterProvider.Meter("test").Int64Counter("contention_test_total")
	require.NoError(t, err)
	counter.Add(t.Context(), 1)

	metrics, collectErr := providers.CollectMetrics(t.Context())

	// assert
	require.NoError(t, collectErr)
	assert.Contains(t, out.String(), `"Name":"contention.Run"`)
	require.Len(t, metrics.ScopeMetrics, 1)
	assert.Equal(t, "contention_test_total", metrics.ScopeMetrics[0].Metrics[0].Name)
	assert.NoError(t, providers.Shutdown())
}
