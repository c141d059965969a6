package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName names the otelslog handler.
const ServiceName = "combatbot"

var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	level  slog.Level

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// Option adds an extra sink or decoration to Setup.
type Option func(*setupOptions)

type setupOptions struct {
	gelf      io.Writer
	gelfLevel slog.Level
	clock     *FrameContext
}

// WithGELF mirrors records at or above level as JSON to a Graylog writer.
// An empty level follows the main level.
func WithGELF(w io.Writer, level string) Option {
	return func(o *setupOptions) {
		o.gelf = w
		if level != "" {
			o.gelfLevel = parseLevel(level)
		}
	}
}

// WithFrame stamps every record with the current frame and server time.
func WithFrame(c *FrameContext) Option {
	return func(o *setupOptions) {
		o.clock = c
	}
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file, or to stdout
// when file is nil. If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) {
	lvl := parseLevel(level)
	o := setupOptions{gelfLevel: lvl}
	for _, opt := range opts {
		opt(&o)
	}

	m.level = lvl
	m.logProvider = provider

	// Handlers accept everything; the sinks hold the thresholds.
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	if file == nil {
		file = osStdout
	}
	sinks := []Sink{{Handler: slog.NewTextHandler(file, handlerOpts), Level: lvl}}

	if o.gelf != nil {
		sinks = append(sinks, Sink{Handler: slog.NewJSONHandler(o.gelf, handlerOpts), Level: o.gelfLevel})
	}

	if provider != nil {
		sinks = append(sinks, Sink{
			Handler: otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)),
			Level:   lvl,
		})
	}

	var handler slog.Handler = NewFanout(sinks...)
	if o.clock != nil {
		handler = NewFrameHandler(handler, o.clock)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Level is the threshold of the main sink.
func (m *SlogManager) Level() slog.Level {
	return m.level
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
