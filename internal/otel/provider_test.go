package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("combatbot"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutSinks(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "combatbot"})
	assert.Error(t, err)
}

func TestNew_LogWriter(t *testing.T) {
	var logs bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "combatbot", LogWriter: &logs})
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.Equal(t, noop.Meter{}, p.Meter("combatbot"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_MetricWriterExportsOnFlush(t *testing.T) {
	var metrics bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "combatbot", MetricWriter: &metrics})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.Nil(t, p.LoggerProvider())

	counter, err := p.Meter("combatbot/test").Int64Counter("bot.frames")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, metrics.String(), "bot.frames")
}
