package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Pipeline runs a fixed sequence of commands for one event. Later phases
// may depend on state earlier ones changed, so the order never varies.
type Pipeline struct {
	d     *Dispatcher
	order []string
}

// Pipeline creates a pipeline over already registered commands.
func (d *Dispatcher) Pipeline(order ...string) (*Pipeline, error) {
	for _, cmd := range order {
		if !d.HasHandler(cmd) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
		}
	}
	return &Pipeline{d: d, order: order}, nil
}

// Order returns the commands in the order they run.
func (p *Pipeline) Order() []string {
	return append([]string(nil), p.order...)
}

// Run dispatches e once per phase and stops at the first failure. The
// result of the last phase is returned.
func (p *Pipeline) Run(e Event) (any, error) {
	var result any
	for _, cmd := range p.order {
		e.Command = cmd
		var err error
		result, err = p.d.Dispatch(e)
		if err != nil {
			p.d.failed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", cmd)))
			return nil, fmt.Errorf("phase %s: %w", cmd, err)
		}
	}
	return result, nil
}
