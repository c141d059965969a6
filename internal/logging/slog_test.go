package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	restore := captureStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)
	m.Logger().Info("bot created", "name", "sarge")

	stdout := restore()
	assert.Contains(t, file.String(), "bot created")
	assert.Contains(t, file.String(), "Logging initialized")
	assert.Empty(t, stdout, "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	restore := captureStdout(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("hello console")

	assert.Contains(t, restore(), "hello console")
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			buf.Reset()

			m.Logger().Debug("phase done")
			m.Logger().Info("weapon switched")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("phase done")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("weapon switched")))
			assert.Equal(t, parseLevel(tt.level), m.Level())
		})
	}
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Logger().Info("round one")

	m.Setup(&second, "info", nil)
	m.Logger().Info("round two")

	assert.Contains(t, first.String(), "round one")
	assert.NotContains(t, first.String(), "round two", "old file should not receive new logs")
	assert.Contains(t, second.String(), "round two")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestFlush(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()), "no provider")

	var buf bytes.Buffer
	m.Setup(&buf, "info", sdklog.NewLoggerProvider())
	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSetup_WithGELF(t *testing.T) {
	var file, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, WithGELF(&graylog, ""))

	m.Logger().Info("shot fired", "weapon", "rocket")

	assert.Contains(t, file.String(), "shot fired")
	assert.Contains(t, graylog.String(), `"msg":"shot fired"`)
	assert.Contains(t, graylog.String(), `"weapon":"rocket"`)
}

func TestSetup_WithGELFOwnLevel(t *testing.T) {
	var file, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "debug", nil, WithGELF(&graylog, "warn"))
	graylog.Reset()

	m.Logger().Debug("aim chosen")
	m.Logger().Warn("telemetry unavailable")

	assert.Contains(t, file.String(), "aim chosen")
	assert.NotContains(t, graylog.String(), "aim chosen")
	assert.Contains(t, graylog.String(), "telemetry unavailable")
}

func TestSetup_WithFrame(t *testing.T) {
	var buf bytes.Buffer
	clock := &FrameContext{}

	m := NewSlogManager()
	m.Setup(&buf, "info", nil, WithFrame(clock))
	assert.NotContains(t, buf.String(), "frame=", "no frame before the first Set")

	clock.Set(42, 2.1)
	m.Logger().Info("aim chosen")
	assert.Contains(t, buf.String(), "frame=42")
	assert.Contains(t, buf.String(), "serverTime=2.1")

	buf.Reset()
	clock.Set(43, 2.15)
	m.Logger().With("bot", "sarge").Info("aim chosen")
	assert.Contains(t, buf.String(), "bot=sarge")
	assert.Contains(t, buf.String(), "frame=43")
}

// captureStdout redirects os.Stdout to a pipe and returns a function
// that restores stdout and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
