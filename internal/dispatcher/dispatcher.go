// Package dispatcher routes bot frame events to named handlers and runs
// the frame phases of a bot in a fixed order.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownCommand is returned when no handler is registered for an event.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned when a buffered handler drops an event.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned for buffered events dispatched after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is one unit of work for a bot.
type Event struct {
	Command string
	// Bot is the entity number of the bot the event belongs to.
	Bot int
	// Frame counts AI frames and Time is the server time of the frame.
	Frame   int64
	Time    float64
	Payload any
}

// HandlerFunc handles one event. Buffered handlers report "queued" to the
// caller and their own result is discarded.
type HandlerFunc func(Event) (any, error)

// Logger is the subset of a structured logger the dispatcher writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option changes how a handler is wrapped at registration.
type Option func(*handlerOptions)

type handlerOptions struct {
	queue    int
	blocking bool
	logged   bool
}

// Buffered runs the handler on its own goroutine behind a queue of size
// events. Events that do not fit are dropped.
func Buffered(size int) Option {
	return func(o *handlerOptions) { o.queue = size }
}

// Blocking makes Dispatch wait for room in a Buffered queue.
func Blocking() Option {
	return func(o *handlerOptions) { o.blocking = true }
}

// Logged writes a debug line around every call and an error line on failure.
func Logged() Option {
	return func(o *handlerOptions) { o.logged = true }
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan Event
	workers sync.WaitGroup
	closed  bool
}

// New creates a Dispatcher. Metrics go to the global meter provider, which
// is a no-op until one is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	m := meter()

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&d.processed, "dispatcher.events.processed", "Buffered events handled"},
		{&d.dropped, "dispatcher.events.dropped", "Buffered events dropped on a full queue"},
		{&d.failed, "dispatcher.phases.failed", "Frame phases that returned an error"},
	}
	for _, c := range counters {
		counter, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in each buffered queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue gauge: %w", err)
	}
	if _, err = m.RegisterCallback(d.observeQueues, d.queueSize); err != nil {
		return nil, fmt.Errorf("failed to register queue gauge: %w", err)
	}
	return d, nil
}

func (d *Dispatcher) observeQueues(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, buf := range d.buffers {
		o.ObserveInt64(d.queueSize, int64(len(buf)), metric.WithAttributes(attribute.String("command", cmd)))
	}
	return nil
}

// Register installs h for command, replacing any earlier handler. Register
// every handler before the first Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.queue > 0 {
		h = d.withBuffer(command, o.queue, o.blocking, h)
	}
	if o.logged {
		h = d.withLogging(command, h)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[command] = h
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	return h(e)
}

// HasHandler reports whether command has a handler.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Close stops accepting buffered events and waits until every queued
// event has been handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.failed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			d.mu.RLock()
			defer d.mu.RUnlock()
			if d.closed {
				return nil, fmt.Errorf("%w: %s", ErrClosed, command)
			}
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("Phase started", "command", command, "bot", e.Bot, "frame", e.Frame)
		result, err := h(e)
		if err != nil {
			d.logger.Error("Phase failed", "command", command, "bot", e.Bot, "frame", e.Frame, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("Phase done", "command", command, "bot", e.Bot, "frame", e.Frame, "duration", time.Since(start))
		return result, nil
	}
}
