package logging

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
)

// FrameContext holds the simulation clock of the frame being processed.
// It is written by the frame loop and read by every logging goroutine.
type FrameContext struct {
	started    atomic.Bool
	frame      atomic.Int64
	serverTime atomic.Uint64
}

// Set records the frame number and server time in seconds.
func (c *FrameContext) Set(frame int64, serverTime float64) {
	c.frame.Store(frame)
	c.serverTime.Store(math.Float64bits(serverTime))
	c.started.Store(true)
}

// Frame returns the last frame number passed to Set.
func (c *FrameContext) Frame() int64 {
	return c.frame.Load()
}

// ServerTime returns the last server time passed to Set.
func (c *FrameContext) ServerTime() float64 {
	return math.Float64frombits(c.serverTime.Load())
}

// Attrs returns the frame and server time as log attributes, or nothing
// before the first frame.
func (c *FrameContext) Attrs() []slog.Attr {
	if !c.started.Load() {
		return nil
	}
	return []slog.Attr{
		slog.Int64("frame", c.Frame()),
		slog.Float64("serverTime", c.ServerTime()),
	}
}

// FrameHandler stamps records with the clock of a FrameContext.
type FrameHandler struct {
	inner slog.Handler
	clock *FrameContext
}

// NewFrameHandler wraps inner. A nil clock stamps nothing.
func NewFrameHandler(inner slog.Handler, clock *FrameContext) *FrameHandler {
	return &FrameHandler{inner: inner, clock: clock}
}

func (h *FrameHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *FrameHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.clock != nil {
		r.AddAttrs(h.clock.Attrs()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *FrameHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FrameHandler{inner: h.inner.WithAttrs(attrs), clock: h.clock}
}

func (h *FrameHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &FrameHandler{inner: h.inner.WithGroup(name), clock: h.clock}
}
