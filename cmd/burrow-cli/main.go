package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/84hero/burrow-client/pkg/burrow"
	"github.com/84hero/burrow-client/pkg/config"
	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/rpc"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

type app struct {
	configPath  string
	account     string
	url         string
	metricsAddr string

	cfg     *config.Config
	metrics *http.Server
}

func main() {
	if err := newRootCmd().Execute(); err != nil && !errors.Is(err, context.Canceled) {
		log.Crit("Command failed", "err", err)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "burrow-cli",
		Short:         "Call contracts and follow their events on a Burrow chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", os.Getenv("CONFIG_FILE"), "config file (default config.yaml when present)")
	flags.StringVar(&a.account, "account", "", "caller account address, overrides config")
	flags.StringVar(&a.url, "url", "", "node address, replaces the configured nodes")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		statusCmd(a),
		metaCmd(a),
		callCmd(a, false),
		callCmd(a, true),
		nameCmd(a),
		listenCmd(a),
		replayCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.account != "" {
		cfg.Account = a.account
	}
	if a.url != "" {
		cfg.Nodes = []rpc.NodeConfig{{URL: a.url, Priority: 1}}
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	a.cfg = cfg

	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, parseLevel(cfg.Log.Level), true)))

	if cfg.Metrics.Addr != "" {
		a.metrics = serveMetrics(cfg.Metrics.Addr)
	}
	return nil
}

func (a *app) teardown() {
	if a.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.metrics.Shutdown(ctx)
}

// loadConfig reads path, or config.yaml when it exists, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "load config %s", path)
	}
	return cfg, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

func serveMetrics(addr string) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(rpc.Collectors()...)
	reg.MustRegister(events.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "err", err)
		}
	}()
	return srv
}

// dial connects to every configured node.
func (a *app) dial(ctx context.Context) (*rpc.MultiClient, error) {
	if len(a.cfg.Nodes) == 0 {
		return nil, errors.New("no node configured, set --url or nodes in the config file")
	}
	mc, err := rpc.NewClient(ctx, a.cfg.Nodes)
	if err != nil {
		return nil, errors.WithMessage(err, "connect")
	}
	return mc, nil
}

// client connects and binds the configured account.
func (a *app) client(ctx context.Context) (*burrow.Client, error) {
	mc, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	c, err := burrow.New(mc, a.cfg.Account)
	if err != nil {
		_ = mc.Close()
		return nil, errors.WithMessage(err, "set --account or account in the config file")
	}
	return c, nil
}
