package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(buf *bytes.Buffer) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// failingHandler accepts every record and fails to write it.
type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestFanout_LevelsPerSink(t *testing.T) {
	var all, warnings bytes.Buffer
	f := NewFanout(
		Sink{Handler: textHandler(&all)},
		Sink{Handler: textHandler(&warnings), Level: slog.LevelWarn},
	)
	logger := slog.New(f)

	logger.Debug("tracking missile", "id", 1024)
	logger.Warn("missile lost", "id", 1024)

	assert.Contains(t, all.String(), "tracking missile")
	assert.Contains(t, all.String(), "missile lost")
	assert.NotContains(t, warnings.String(), "tracking missile")
	assert.Contains(t, warnings.String(), "missile lost")
}

func TestFanout_Enabled(t *testing.T) {
	ctx := context.Background()
	info := Sink{Handler: textHandler(&bytes.Buffer{}), Level: slog.LevelInfo}
	debug := Sink{Handler: textHandler(&bytes.Buffer{})}

	assert.False(t, NewFanout(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewFanout(info).Enabled(ctx, slog.LevelInfo))
	assert.True(t, NewFanout(info, debug).Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewFanout().Enabled(ctx, slog.LevelError))
}

func TestFanout_SkipsSinksWithoutHandler(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(Sink{}, Sink{Handler: textHandler(&buf)}, Sink{Level: slog.LevelError})
	require.Len(t, f.sinks, 1)

	slog.New(f).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestFanout_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	f := NewFanout(Sink{Handler: failingHandler{}}, Sink{Handler: textHandler(&buf)})

	var r slog.Record
	r.Level = slog.LevelInfo
	r.Message = "reaches the healthy sink"
	err := f.Handle(context.Background(), r)

	assert.EqualError(t, err, "sink down")
	assert.Contains(t, buf.String(), "reaches the healthy sink")
}

func TestFanout_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	warn := Sink{Handler: textHandler(&buf), Level: slog.LevelWarn}
	f := NewFanout(warn)

	logger := slog.New(f.WithAttrs([]slog.Attr{slog.String("bot", "sarge")})).WithGroup("aim")
	logger.Info("dropped")
	logger.Warn("kept", "type", "enemy")

	assert.NotContains(t, buf.String(), "dropped", "derived handlers keep the sink level")
	assert.Contains(t, buf.String(), "bot=sarge")
	assert.Contains(t, buf.String(), "aim.type=enemy")
	assert.Same(t, f, f.WithGroup(""))
}
