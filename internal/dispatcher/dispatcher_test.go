package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger keeps every message with its level prefix.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("DEBUG", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.add("INFO", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("ERROR", msg, kv) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, level+" ") {
			n++
		}
	}
	return n
}

func newDispatcher(t *testing.T) (*Dispatcher, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newDispatcher(t)

	var got Event
	d.Register("aim", func(e Event) (any, error) {
		got = e
		return "enemy", nil
	})

	result, err := d.Dispatch(Event{Command: "aim", Bot: 3, Frame: 12, Time: 0.6})
	require.NoError(t, err)
	assert.Equal(t, "enemy", result)
	assert.Equal(t, 3, got.Bot)
	assert.Equal(t, int64(12), got.Frame)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(Event{Command: "strafe"})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.False(t, d.HasHandler("strafe"))
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newDispatcher(t)

	var samples atomic.Int32
	d.Register("telemetry", func(e Event) (any, error) {
		samples.Add(1)
		return nil, nil
	}, Buffered(16))
	require.True(t, d.HasHandler("telemetry"))

	for frame := range int64(3) {
		result, err := d.Dispatch(Event{Command: "telemetry", Frame: frame})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}

	d.Close()
	assert.Equal(t, int32(3), samples.Load(), "close drains the queue")

	_, err := d.Dispatch(Event{Command: "telemetry"})
	assert.ErrorIs(t, err, ErrClosed)
	d.Close()
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newDispatcher(t)

	release := make(chan struct{})
	d.Register("telemetry", func(e Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(2))

	// One event in the handler and two queued at most.
	var dropped int
	for range 4 {
		if _, err := d.Dispatch(Event{Command: "telemetry"}); errors.Is(err, ErrQueueFull) {
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 1)

	close(release)
	d.Close()
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newDispatcher(t)

	release := make(chan struct{})
	d.Register("telemetry", func(e Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	_, _ = d.Dispatch(Event{Command: "telemetry"})
	_, _ = d.Dispatch(Event{Command: "telemetry"})

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(Event{Command: "telemetry"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch stayed blocked after the handler resumed")
	}
}

func TestDispatcher_Logged(t *testing.T) {
	d, logger := newDispatcher(t)

	d.Register("view", func(e Event) (any, error) { return nil, nil }, Logged())
	d.Register("command", func(e Event) (any, error) {
		return nil, errors.New("no ammo")
	}, Logged())

	_, err := d.Dispatch(Event{Command: "view", Bot: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, logger.count("DEBUG"), "start and completion")
	assert.Zero(t, logger.count("ERROR"))

	_, err = d.Dispatch(Event{Command: "command", Bot: 1})
	assert.EqualError(t, err, "no ammo")
	assert.Equal(t, 1, logger.count("ERROR"))
}

func TestDispatcher_BufferedAndLogged(t *testing.T) {
	d, logger := newDispatcher(t)

	var wg sync.WaitGroup
	wg.Add(1)
	d.Register("telemetry", func(e Event) (any, error) {
		wg.Done()
		return nil, nil
	}, Buffered(4), Logged())

	result, err := d.Dispatch(Event{Command: "telemetry"})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)

	wg.Wait()
	d.Close()
	assert.Equal(t, 2, logger.count("DEBUG"))
}

func TestPipeline_RunsInOrder(t *testing.T) {
	d, _ := newDispatcher(t)

	var order []string
	for _, phase := range []string{"self", "accuracy", "aim"} {
		d.Register(phase, func(e Event) (any, error) {
			order = append(order, e.Command)
			return e.Command + " done", nil
		}, Logged())
	}

	p, err := d.Pipeline("self", "accuracy", "aim")
	require.NoError(t, err)

	result, err := p.Run(Event{Bot: 2, Frame: 7})
	require.NoError(t, err)
	assert.Equal(t, "aim done", result, "result of the last phase")
	assert.Equal(t, []string{"self", "accuracy", "aim"}, order)

	got := p.Order()
	got[0] = "changed"
	assert.Equal(t, []string{"self", "accuracy", "aim"}, p.Order(), "Order returns a copy")
}

func TestPipeline_StopsAtFailure(t *testing.T) {
	d, _ := newDispatcher(t)

	dead := errors.New("bot is dead")
	ran := false
	d.Register("self", func(e Event) (any, error) { return nil, dead })
	d.Register("aim", func(e Event) (any, error) {
		ran = true
		return nil, nil
	})

	p, err := d.Pipeline("self", "aim")
	require.NoError(t, err)

	_, err = p.Run(Event{})
	assert.ErrorIs(t, err, dead)
	assert.ErrorContains(t, err, "phase self")
	assert.False(t, ran, "later phase ran after a failure")
}

func TestPipeline_UnknownPhase(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Pipeline("missing")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
