package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/collections/backend/internal/infrastructure/config"
	"github.com/collections/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func disabledConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "collections-test",
		SamplingRatio:     1.0,
		ExportInterval:    time.Second,
	}
}

func TestFromConfig(t *testing.T) {
	cfg := telemetry.FromConfig(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		ServiceName:       "collections-worker",
		Insecure:          true,
		SamplingRatio:     0.25,
		ExportInterval:    15 * time.Second,
		LogsEnabled:       true,
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, "collections-worker", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 0.25, cfg.SamplingRatio)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
	assert.True(t, cfg.LogsEnabled)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, disabledConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	// Requires a local OTEL collector
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg := disabledConfig()
	cfg.Enabled = true
	cfg.Insecure = true

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(ctx, "test-span")
	span.End()

	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	mp, err := telemetry.NewMeterProvider(ctx, disabledConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewLoggerProvider_DisabledUnlessLogsEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := disabledConfig()
	cfg.Enabled = true
	cfg.LogsEnabled = false

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLoggerProvider_BridgeDisabledReturnsBase(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	lp, err := telemetry.NewLoggerProvider(context.Background(), disabledConfig(), zap.NewNop())
	require.NoError(t, err)

	bridged := lp.Bridge(base, zapcore.InfoLevel)
	assert.Same(t, base, bridged)

	bridged.Info("payment recorded")
	assert.Equal(t, 1, logs.Len())
}
