package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/84hero/burrow-client/internal/webhook"
	"github.com/84hero/burrow-client/pkg/codec"
	"github.com/84hero/burrow-client/pkg/config"
	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/scanner"
	"github.com/84hero/burrow-client/pkg/sink"
	"github.com/84hero/burrow-client/pkg/storage"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// initOutputs opens every enabled output. Outputs that fail to open are
// logged and skipped.
func initOutputs(ctx context.Context, cfg config.OutputsConfig) []sink.Output {
	var outputs []sink.Output
	add := func(name string, o sink.Output, err error) {
		if err != nil {
			log.Warn("Skipping output", "output", name, "err", err)
			return
		}
		outputs = append(outputs, o)
	}

	if wh := cfg.Webhook; wh.Enabled {
		outputs = append(outputs, sink.NewWebhookOutput(sink.WebhookConfig{
			Config: webhook.Config{
				URL:            wh.URL,
				Secret:         wh.Secret,
				MaxAttempts:    wh.Retry.MaxAttempts,
				InitialBackoff: wh.Retry.InitialBackoff,
				MaxBackoff:     wh.Retry.MaxBackoff,
			},
			Async:      wh.Async,
			BufferSize: wh.BufferSize,
			Workers:    wh.Workers,
		}))
	}
	if cfg.File.Enabled {
		fo, err := sink.NewFileOutput(cfg.File.Path)
		add("file", fo, err)
	}
	if cfg.Console.Enabled {
		outputs = append(outputs, sink.NewConsoleOutput())
	}
	if pg := cfg.Postgres; pg.Enabled {
		po, err := sink.NewPostgresOutput(ctx, pg.URL, pg.Table)
		add("postgres", po, err)
	}
	if rd := cfg.Redis; rd.Enabled {
		ro, err := sink.NewRedisOutput(ctx, rd.Addr, rd.Password, rd.DB, rd.Key, rd.Mode)
		add("redis", ro, err)
	}
	if k := cfg.Kafka; k.Enabled {
		ko, err := sink.NewKafkaOutput(k.Brokers, k.Topic, k.User, k.Password)
		add("kafka", ko, err)
	}
	if mq := cfg.RabbitMQ; mq.Enabled {
		ro, err := sink.NewRabbitMQOutput(mq.URL, mq.Exchange, mq.RoutingKey, mq.QueueName, mq.Durable)
		add("rabbitmq", ro, err)
	}
	return outputs
}

// openOutputs falls back to the console when nothing is configured.
func openOutputs(ctx context.Context, cfg config.OutputsConfig) *sink.Fanout {
	outputs := initOutputs(ctx, cfg)
	if len(outputs) == 0 {
		outputs = append(outputs, sink.NewConsoleOutput())
	}
	return sink.NewFanout(outputs...)
}

// openStore picks the cursor store. PG_URL and REDIS_ADDR fill in a missing url.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "postgres":
		url := cfg.URL
		if url == "" {
			url = os.Getenv("PG_URL")
		}
		return storage.NewPostgresStore(ctx, url, cfg.Prefix)
	case "redis":
		addr := cfg.Addr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		return storage.NewRedisStore(ctx, addr, cfg.Password, cfg.DB, cfg.Prefix)
	case "memory", "":
		return storage.NewMemoryStore(cfg.Prefix), nil
	default:
		return nil, errors.Errorf("unknown storage type %q", cfg.Type)
	}
}

func listenerRegistry(cfg *config.Config) (*events.Registry, error) {
	if cfg.Listener.Address == "" {
		return nil, errors.New("listener.address is not set")
	}
	abiJSON, err := cfg.ListenerABI()
	if err != nil {
		return nil, errors.WithMessage(err, "listener abi")
	}
	c, err := codec.New(abiJSON)
	if err != nil {
		return nil, errors.WithMessage(err, "listener abi")
	}
	return events.NewRegistry(c, cfg.Listener.Address, cfg.Listener.Events...)
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

func listenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Run the configured listener, resuming from its saved cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			reg, err := listenerRegistry(a.cfg)
			if err != nil {
				return err
			}
			mc, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer mc.Close()

			store, err := openStore(ctx, a.cfg.Storage)
			if err != nil {
				return errors.WithMessage(err, "open storage")
			}
			defer store.Close()

			out := openOutputs(ctx, a.cfg.Outputs)
			defer out.Close()

			l := a.cfg.Listener
			s := scanner.New(mc, store, scanner.Config{
				Name:          l.Name,
				StartHeight:   l.StartHeight,
				ForceStart:    l.ForceStart,
				Rewind:        l.Rewind,
				CursorRewind:  l.CursorRewind,
				BatchSize:     l.BatchSize,
				RetryInterval: l.RetryInterval,
			}, reg)
			s.SetHandler(out.Send)

			err = s.Start(ctx)
			if ctx.Err() != nil {
				log.Info("Shutting down...")
				return nil
			}
			return err
		},
	}
}

func replayCmd(a *app) *cobra.Command {
	var from, to uint64
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Deliver the listener's events in a block range to the outputs once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			reg, err := listenerRegistry(a.cfg)
			if err != nil {
				return err
			}
			mc, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer mc.Close()

			if to == 0 {
				if to, err = mc.LatestHeight(ctx); err != nil {
					return errors.WithMessage(err, "latest height")
				}
			}
			if from > to {
				return errors.Errorf("empty range %d..%d", from, to)
			}

			out := openOutputs(ctx, a.cfg.Outputs)
			defer out.Close()

			n, err := replay(ctx, reg, mc, out, from, to)
			if err != nil {
				return err
			}
			log.Info("Replay complete", "from", from, "to", to, "events", n)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&from, "from", 1, "first block height")
	cmd.Flags().Uint64Var(&to, "to", 0, "last block height (default latest)")
	return cmd
}

// replay streams [from, to] and sends each block's events as one batch.
func replay(ctx context.Context, reg *events.Registry, src events.Source, out sink.Output, from, to uint64) (int, error) {
	bar := progressbar.NewOptions64(int64(to-from+1),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("Replaying blocks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	_ = bar.RenderBlank()

	var (
		batch []*events.Decoded
		total int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := out.Send(ctx, batch); err != nil {
			return errors.WithMessagef(err, "send block %d", batch[0].Event.Height)
		}
		total += len(batch)
		_ = bar.Set64(int64(batch[0].Event.Height - from + 1))
		batch = nil
		return nil
	}

	sub := reg.Subscribe(ctx, src, events.HistoryRange(from, to))
	err := events.Iterate(sub, func(ev *events.Decoded) error {
		if len(batch) > 0 && batch[0].Event.Height != ev.Event.Height {
			if err := flush(); err != nil {
				return err
			}
		}
		batch = append(batch, ev)
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return total, err
	}
	_ = bar.Finish()
	return total, nil
}
