// Package config loads the client, listener and output settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/84hero/burrow-client/pkg/chain"
	"github.com/84hero/burrow-client/pkg/rpc"
	"github.com/spf13/viper"
)

type Config struct {
	Project  string           `mapstructure:"project"`
	Log      LogConfig        `mapstructure:"log"`
	Account  string           `mapstructure:"account"`
	Chain    string           `mapstructure:"chain"`
	Nodes    []rpc.NodeConfig `mapstructure:"nodes"`
	Listener ListenerConfig   `mapstructure:"listener"`
	Storage  StorageConfig    `mapstructure:"storage"`
	Outputs  OutputsConfig    `mapstructure:"outputs"`
	Metrics  MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// ListenerConfig describes one durable contract event listener.
type ListenerConfig struct {
	Name    string   `mapstructure:"name"`
	Address string   `mapstructure:"address"`
	ABI     string   `mapstructure:"abi"`    // Inline JSON or a file path
	Events  []string `mapstructure:"events"` // Names or signatures; empty selects all

	// Startup strategy
	StartHeight  uint64 `mapstructure:"start_height"`  // Used when no cursor is saved, or always with ForceStart
	ForceStart   bool   `mapstructure:"force_start"`   // Ignore the saved cursor
	Rewind       uint64 `mapstructure:"rewind"`        // If no saved cursor, start from Latest - Rewind
	CursorRewind uint64 `mapstructure:"cursor_rewind"` // If saved cursor exists, start from Cursor - CursorRewind

	BatchSize     uint64        `mapstructure:"batch_size"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// StorageConfig selects the cursor store: memory, postgres or redis.
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix is the PG table prefix or Redis key prefix
	Prefix string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // Listen address for /metrics, empty disables
}

type OutputsConfig struct {
	Webhook  WebhookOutputConfig  `mapstructure:"webhook"`
	File     FileOutputConfig     `mapstructure:"file"`
	Console  ConsoleOutputConfig  `mapstructure:"console"`
	Postgres PostgresOutputConfig `mapstructure:"postgres"`
	Redis    RedisOutputConfig    `mapstructure:"redis"`
	Kafka    KafkaOutputConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQOutputConfig `mapstructure:"rabbitmq"`
}

type WebhookOutputConfig struct {
	Enabled    bool        `mapstructure:"enabled"`
	URL        string      `mapstructure:"url"`
	Secret     string      `mapstructure:"secret"`
	Retry      RetryConfig `mapstructure:"retry"`
	Async      bool        `mapstructure:"async"`
	BufferSize int         `mapstructure:"buffer_size"`
	Workers    int         `mapstructure:"workers"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type FileOutputConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type ConsoleOutputConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type PostgresOutputConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Table   string `mapstructure:"table"`
}

type RedisOutputConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
	Mode     string `mapstructure:"mode"` // list or pubsub
}

type KafkaOutputConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
}

type RabbitMQOutputConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
	QueueName  string `mapstructure:"queue_name"`
	Durable    bool   `mapstructure:"durable"`
}

// Load reads path, applies BURROW_* environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BURROW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	_ = cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() error {
	if c.Project == "" {
		c.Project = "burrow"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Chain != "" {
		preset, ok := chain.Get(c.Chain)
		if !ok {
			return fmt.Errorf("unknown chain preset %q", c.Chain)
		}
		if len(c.Nodes) == 0 && preset.Endpoint != "" {
			c.Nodes = []rpc.NodeConfig{{URL: preset.Endpoint, Priority: 1}}
		}
		if c.Listener.BatchSize == 0 {
			c.Listener.BatchSize = preset.BatchSize
		}
		if c.Listener.Rewind == 0 {
			c.Listener.Rewind = preset.Rewind
		}
	}
	if c.Listener.BatchSize == 0 {
		c.Listener.BatchSize = 100
	}
	if c.Listener.RetryInterval == 0 {
		c.Listener.RetryInterval = 3 * time.Second
	}
	if c.Listener.Name == "" {
		c.Listener.Name = c.Project
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.Prefix == "" {
		c.Storage.Prefix = c.Project + "_"
	}
	return nil
}

// ListenerABI returns the listener ABI, reading it from disk unless it is inline JSON.
func (c *Config) ListenerABI() ([]byte, error) {
	abi := strings.TrimSpace(c.Listener.ABI)
	if abi == "" {
		return nil, fmt.Errorf("listener.abi is not set")
	}
	if strings.HasPrefix(abi, "[") {
		return []byte(abi), nil
	}
	return os.ReadFile(abi)
}
