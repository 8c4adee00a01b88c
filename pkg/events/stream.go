// Package events turns the node's block-batched execution event stream into an
// ordered, cancellable sequence of log events.
package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/rpc"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrEndOfStream is the terminal item of a bounded range. It is not a failure.
	ErrEndOfStream = errors.New("end of stream, no more data will be sent")

	// ErrCancelStream may be returned by callbacks and reducers to stop consuming.
	ErrCancelStream = errors.New("cancel stream")
)

var eventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "burrow_client",
	Subsystem: "events",
	Name:      "received_total",
	Help:      "Log events delivered to subscribers, by outcome.",
}, []string{"outcome"})

// Collectors returns the events metrics for registration by the host process.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{eventsReceived}
}

// Source opens event streams. rpc.Client implementations satisfy it.
type Source interface {
	Events(ctx context.Context, req *wire.BlocksRequest) (rpc.EventStream, error)
}

// Event is one log occurrence. Index is numbered within the transaction;
// Ordinal counts the stream's events within the block.
type Event struct {
	Height  uint64   `json:"height"`
	Index   uint64   `json:"index"`
	Ordinal uint64   `json:"ordinal"`
	TxHash  string   `json:"txHash"`
	EventID string   `json:"eventId"`
	Address string   `json:"address"`
	Data    []byte   `json:"data"`
	Topics  [][]byte `json:"topics"`
}

func fromWire(ev *wire.Event) *Event {
	out := &Event{}
	if h := ev.Header; h != nil {
		out.Height = h.Height
		out.Index = h.Index
		out.TxHash = convert.UnprefixedHexString(h.TxHash)
		out.EventID = h.EventID
	}
	if l := ev.Log; l != nil {
		out.Address = convert.UnprefixedHexString(l.Address)
		out.Data = l.Data
		out.Topics = l.Topics
	}
	return out
}

// Result is one item of a subscription: a value, or a terminal error.
// The terminal error of a bounded range is ErrEndOfStream.
type Result[T any] struct {
	Value T
	Err   error
}

// Subscription is a running stream. Results is closed after the terminal item,
// or without one when the stream was stopped by Cancel or by its parent
// context. Err tells the two apart.
type Subscription[T any] struct {
	results chan Result[T]
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	stopped atomic.Bool

	mu  sync.Mutex
	err error
}

func newSubscription[T any](ctx context.Context) (*Subscription[T], context.Context) {
	sctx, cancel := context.WithCancel(ctx)
	return &Subscription[T]{
		results: make(chan Result[T]),
		cancel:  cancel,
		done:    make(chan struct{}),
	}, sctx
}

// Results yields items in stream order.
func (s *Subscription[T]) Results() <-chan Result[T] {
	return s.results
}

// Done is closed once the stream has stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the stream and waits for it to wind down. Nothing is emitted
// after Cancel returns. It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.stopped.Store(true)
	s.once.Do(s.cancel)
	<-s.done
}

// Err returns the cause of the parent context when that context ended the
// stream. It is nil while the stream runs, after Cancel and after a terminal item.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// interrupted records the parent context's cause unless Cancel stopped s.
func (s *Subscription[T]) interrupted(parent context.Context) {
	if s.stopped.Load() || parent.Err() == nil {
		return
	}
	s.mu.Lock()
	s.err = context.Cause(parent)
	s.mu.Unlock()
}

// emit delivers an item unless the subscription was cancelled first.
func (s *Subscription[T]) emit(ctx context.Context, r Result[T]) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case s.results <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Subscription[T]) finish() {
	close(s.results)
	close(s.done)
}

// Stream opens one node stream for rng and query and flattens its batches into
// single events. Cancel stops it silently. When ctx ends first the results
// close without a terminal item and Err returns the context's cause.
func Stream(ctx context.Context, src Source, rng *wire.BlockRange, query string) *Subscription[*Event] {
	sub, sctx := newSubscription[*Event](ctx)
	go func() {
		defer sub.finish()
		defer sub.once.Do(sub.cancel)

		stream, err := src.Events(sctx, &wire.BlocksRequest{BlockRange: rng, Query: query})
		if err != nil {
			if !sub.stoppedBy(ctx, err) && !sub.emit(sctx, Result[*Event]{Err: err}) {
				sub.interrupted(ctx)
			}
			return
		}

		// A block may span several responses
		var height, ordinal uint64
		for {
			resp, err := stream.Recv()
			if err != nil {
				switch {
				case errors.Is(err, io.EOF):
					if !sub.emit(sctx, Result[*Event]{Err: ErrEndOfStream}) {
						sub.interrupted(ctx)
					}
				case sub.stoppedBy(ctx, err):
					log.Debug("Event stream stopped", "query", query, "err", sub.Err())
				default:
					eventsReceived.WithLabelValues("error").Inc()
					if !sub.emit(sctx, Result[*Event]{Err: err}) {
						sub.interrupted(ctx)
					}
				}
				return
			}
			for _, ev := range resp.Events {
				e := fromWire(ev)
				if e.Height != height {
					height, ordinal = e.Height, 0
				}
				e.Ordinal = ordinal
				ordinal++
				if !sub.emit(sctx, Result[*Event]{Value: e}) {
					sub.interrupted(ctx)
					return
				}
				eventsReceived.WithLabelValues("ok").Inc()
			}
		}
	}()
	return sub
}

// stoppedBy reports whether err is the transport's view of Cancel or of the
// parent context ending. The latter is recorded for Err.
func (s *Subscription[T]) stoppedBy(parent context.Context, err error) bool {
	if s.stopped.Load() {
		return true
	}
	if parent.Err() != nil {
		s.interrupted(parent)
		return true
	}
	return status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled)
}

// Map decodes every value of sub with f. A decode error is terminal and
// cancels sub.
func Map[T, U any](sub *Subscription[T], f func(T) (U, error)) *Subscription[U] {
	return mapWhere(sub, func(v T) (U, bool, error) {
		u, err := f(v)
		return u, true, err
	})
}

// mapWhere is Map with f able to drop a value by returning false.
// An interruption of sub carries over to the result's Err.
func mapWhere[T, U any](sub *Subscription[T], f func(T) (U, bool, error)) *Subscription[U] {
	out, octx := newSubscription[U](context.Background())
	go func() {
		defer out.finish()
		defer sub.Cancel()
		for {
			select {
			case <-octx.Done():
				return
			case r, ok := <-sub.Results():
				if !ok {
					if err := sub.Err(); err != nil && !out.stopped.Load() {
						out.mu.Lock()
						out.err = err
						out.mu.Unlock()
					}
					return
				}
				if r.Err != nil {
					out.emit(octx, Result[U]{Err: r.Err})
					return
				}
				v, keep, err := f(r.Value)
				if err != nil {
					out.emit(octx, Result[U]{Err: err})
					return
				}
				if !keep {
					continue
				}
				if !out.emit(octx, Result[U]{Value: v}) {
					return
				}
			}
		}
	}()
	return out
}

// Callback receives each event, or a terminal error with a nil event.
// Returning ErrCancelStream stops the stream.
type Callback[T any] func(v T, err error) error

// Listen pumps sub into cb on its own goroutine. ErrEndOfStream and the end
// of the parent context are passed to cb; Cancel is not.
func Listen[T any](sub *Subscription[T], cb Callback[T]) *Subscription[T] {
	go func() {
		var zero T
		for r := range sub.Results() {
			if r.Err != nil {
				_ = cb(zero, r.Err)
				return
			}
			if err := cb(r.Value, nil); err != nil {
				sub.Cancel()
				return
			}
		}
		if err := sub.Err(); err != nil {
			_ = cb(zero, err)
		}
	}()
	return sub
}
