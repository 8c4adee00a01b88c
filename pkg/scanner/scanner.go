// Package scanner runs durable contract event listeners: each resumes from a
// persisted cursor, replays the blocks it missed and then follows new blocks.
package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/storage"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/log"
)

// Source is the part of a node connection a listener needs.
type Source interface {
	events.Source
	Status(ctx context.Context) (*wire.ResultStatus, error)
}

type Config struct {
	// Name keys the persisted cursor.
	Name string

	// Startup strategy
	StartHeight  uint64
	ForceStart   bool
	Rewind       uint64 // If no saved cursor, start from Latest - Rewind
	CursorRewind uint64 // If set, resume from Cursor - CursorRewind and deliver those blocks again

	BatchSize     uint64        // Blocks per replay request
	RetryInterval time.Duration // Pause before resubscribing after a failure
}

// Handler receives decoded events in chain order. Returning an error stops
// delivery; the same events are offered again after RetryInterval.
type Handler func(ctx context.Context, evs []*events.Decoded) error

type Scanner struct {
	src      Source
	store    storage.Store
	config   Config
	registry *events.Registry
	handler  Handler
}

func New(src Source, store storage.Store, cfg Config, registry *events.Registry) *Scanner {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 3 * time.Second
	}
	return &Scanner{
		src:      src,
		store:    store,
		config:   cfg,
		registry: registry,
	}
}

// SetHandler sets the callback invoked with each batch of events.
func (s *Scanner) SetHandler(h Handler) {
	s.handler = h
}

// Start blocks until ctx is cancelled. Transport and handler failures are
// logged and retried from the last saved position.
func (s *Scanner) Start(ctx context.Context) error {
	cur, err := s.determineStart(ctx)
	if err != nil {
		return err
	}
	log.Info("Listener started", "name", s.config.Name, "from", cur)

	for {
		err := s.run(ctx, &cur)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("Listener interrupted", "name", s.config.Name, "at", cur, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.RetryInterval):
		}
	}
}

func (s *Scanner) determineStart(ctx context.Context) (storage.Cursor, error) {
	if s.config.ForceStart && s.config.StartHeight > 0 {
		log.Info("Start strategy: Force Start", "height", s.config.StartHeight)
		return storage.Cursor{Height: s.config.StartHeight}, nil
	}

	saved, ok, err := s.store.Load(ctx, s.config.Name)
	if err != nil {
		return storage.Cursor{}, err
	}
	if ok {
		if s.config.CursorRewind == 0 {
			log.Info("Start strategy: Resume from cursor", "cursor", saved)
			return saved, nil
		}
		start := uint64(0)
		if saved.Height > s.config.CursorRewind {
			start = saved.Height - s.config.CursorRewind
		}
		log.Info("Start strategy: Resume from cursor with safety rewind", "cursor", saved, "rewind", s.config.CursorRewind, "start", start)
		return storage.Cursor{Height: start}, nil
	}

	if s.config.StartHeight > 0 {
		log.Info("Start strategy: Config StartHeight", "height", s.config.StartHeight)
		return storage.Cursor{Height: s.config.StartHeight}, nil
	}

	latest, err := s.latest(ctx)
	if err != nil {
		return storage.Cursor{}, err
	}
	start := uint64(0)
	if latest > s.config.Rewind {
		start = latest - s.config.Rewind
	}
	log.Info("Start strategy: Rewind from latest", "latest", latest, "rewind", s.config.Rewind, "start", start)
	return storage.Cursor{Height: start}, nil
}

func (s *Scanner) latest(ctx context.Context) (uint64, error) {
	st, err := s.src.Status(ctx)
	if err != nil {
		return 0, err
	}
	if st.SyncInfo == nil {
		return 0, errors.New("node status has no sync info")
	}
	return st.SyncInfo.LatestBlockHeight, nil
}

// run replays up to the latest block in batches and then tails. cur advances
// only after the handler accepted the events before it.
func (s *Scanner) run(ctx context.Context, cur *storage.Cursor) error {
	latest, err := s.latest(ctx)
	if err != nil {
		return err
	}
	for cur.Height <= latest {
		to := cur.Height + s.config.BatchSize - 1
		if to > latest {
			to = latest
		}
		if err := s.replay(ctx, cur, to); err != nil {
			return err
		}
	}
	return s.tail(ctx, cur)
}

func (s *Scanner) replay(ctx context.Context, cur *storage.Cursor, to uint64) error {
	sub := s.registry.Subscribe(ctx, s.src, events.HistoryRange(cur.Height, to))
	evs, err := events.Read(sub, 0)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, s.unhandled(*cur, evs)); err != nil {
		return err
	}
	*cur = storage.Cursor{Height: to + 1}
	s.save(ctx, *cur)
	return nil
}

func (s *Scanner) tail(ctx context.Context, cur *storage.Cursor) error {
	sub := s.registry.Subscribe(ctx, s.src, events.Range(events.Absolute(cur.Height), events.Unbounded()))
	defer sub.Cancel()
	for r := range sub.Results() {
		if r.Err != nil {
			return r.Err
		}
		ev := r.Value
		if cur.Handled(ev.Event.Height, ev.Event.Ordinal) {
			continue
		}
		if err := s.deliver(ctx, []*events.Decoded{ev}); err != nil {
			return err
		}
		*cur = storage.Cursor{Height: ev.Event.Height, Ordinal: ev.Event.Ordinal + 1}
		s.save(ctx, *cur)
	}
	if err := sub.Err(); err != nil {
		return err
	}
	return events.ErrEndOfStream
}

func (s *Scanner) unhandled(cur storage.Cursor, evs []*events.Decoded) []*events.Decoded {
	out := evs[:0]
	for _, ev := range evs {
		if !cur.Handled(ev.Event.Height, ev.Event.Ordinal) {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Scanner) deliver(ctx context.Context, evs []*events.Decoded) error {
	if len(evs) == 0 || s.handler == nil {
		return nil
	}
	return s.handler(ctx, evs)
}

func (s *Scanner) save(ctx context.Context, cur storage.Cursor) {
	if err := s.store.Save(ctx, s.config.Name, cur); err != nil {
		log.Error("Failed to save cursor", "name", s.config.Name, "cursor", cur, "err", err)
	}
}
