// Package chain holds named defaults for Burrow networks.
package chain

import (
	"sort"
	"sync"
	"time"
)

// Preset is the default endpoint and listener tuning for a network.
type Preset struct {
	ChainID   string
	Endpoint  string        // gRPC address of a node
	BlockTime time.Duration // Commit interval, used for status polling
	BatchSize uint64        // Blocks per replay request
	Rewind    uint64        // Blocks before latest a fresh listener starts at
}

var (
	registry = make(map[string]Preset)
	mu       sync.RWMutex
)

// Register adds or replaces a preset.
func Register(name string, p Preset) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = p
}

func Get(name string) (Preset, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// Names lists registered presets in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	// burrow start --config=burrow.toml on a workstation
	Register("burrow-local", Preset{
		Endpoint:  "127.0.0.1:10997",
		BlockTime: 1 * time.Second,
		BatchSize: 500,
	})

	// the hyperledger/burrow image in docker compose
	Register("burrow-docker", Preset{
		Endpoint:  "dns:///burrow:10997",
		BlockTime: 1 * time.Second,
		BatchSize: 500,
	})

	Register("burrow-testnet", Preset{
		BlockTime: 5 * time.Second,
		BatchSize: 200,
		Rewind:    100,
	})
}
