package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/84hero/burrow-client/pkg/events"
	"golang.org/x/sync/errgroup"
)

// Fanout sends every batch to all outputs concurrently.
type Fanout struct {
	outputs []Output
}

func NewFanout(outputs ...Output) *Fanout {
	return &Fanout{outputs: outputs}
}

func (f *Fanout) Name() string { return "fanout" }

// Outputs returns the wrapped outputs.
func (f *Fanout) Outputs() []Output { return f.outputs }

// Send returns the first output error. The remaining outputs still receive the batch.
func (f *Fanout) Send(ctx context.Context, evs []*events.Decoded) error {
	if len(evs) == 0 {
		return nil
	}
	var g errgroup.Group
	for _, out := range f.outputs {
		g.Go(func() error {
			if err := out.Send(ctx, evs); err != nil {
				return fmt.Errorf("%s: %w", out.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (f *Fanout) Close() error {
	var errs []error
	for _, out := range f.outputs {
		if err := out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", out.Name(), err))
		}
	}
	return errors.Join(errs...)
}
