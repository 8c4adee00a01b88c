package rpc

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/84hero/burrow-client/pkg/wire"
	"golang.org/x/time/rate"
)

var (
	ErrNodeBusy          = errors.New("node is at max concurrency")
	ErrRateLimitExceeded = errors.New("node rate limit exceeded")
	ErrCircuitBroken     = errors.New("node circuit is open")
)

const (
	// circuitThreshold consecutive errors open the circuit
	circuitThreshold = 5
	// circuitCooldown after the last error lets a single probe through
	circuitCooldown = 30 * time.Second
)

// NodeConfig represents configuration for a single Burrow node
type NodeConfig struct {
	URL           string  `mapstructure:"url"`
	Priority      int     `mapstructure:"priority"`       // Initial weight (1-100), higher is more preferred
	RateLimit     float64 `mapstructure:"rate_limit"`     // Requests per second, 0 for unlimited
	MaxConcurrent int     `mapstructure:"max_concurrent"` // In-flight requests, 0 for unlimited
}

// Node wraps the underlying client and provides health monitoring
type Node struct {
	config NodeConfig
	client Client

	limiter   *rate.Limiter
	semaphore chan struct{}

	// Dynamic metrics (atomic operations)
	errorCount  uint64 // Consecutive error count
	totalErrors uint64 // Total error count
	latency     int64  // Average latency (ms)
	latestBlock uint64 // Latest block height observed by this node
	lastError   int64  // Unix nanos of the last failure
}

// NewNode dials a node over gRPC (Production)
func NewNode(cfg NodeConfig) (*Node, error) {
	client, err := Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	return NewNodeWithClient(cfg, client), nil
}

// NewNodeWithClient initializes Node with a pre-created client (Testing/DI)
func NewNodeWithClient(cfg NodeConfig, client Client) *Node {
	n := &Node{
		config: cfg,
		client: client,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.MaxConcurrent > 0 {
		n.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return n
}

// URL returns the node address
func (n *Node) URL() string {
	return n.config.URL
}

// Priority returns the configured weight
func (n *Node) Priority() int {
	return n.config.Priority
}

// Score calculates the real-time score of the node. Higher is better.
// Formula: (Priority * 100) - (Latency / 10) - (ConsecutiveErrors * 500)
// Points are also deducted if the node lags too far behind the global max height.
func (n *Node) Score(globalMaxHeight uint64) int64 {
	score := int64(n.config.Priority) * 100

	avgLatency := atomic.LoadInt64(&n.latency)
	score -= (avgLatency / 10)

	errs := atomic.LoadUint64(&n.errorCount)
	score -= int64(errs) * 500

	myHeight := atomic.LoadUint64(&n.latestBlock)
	if globalMaxHeight > 0 && myHeight < globalMaxHeight {
		lag := globalMaxHeight - myHeight
		if lag > 5 {
			score -= int64(lag) * 50
		}
	}

	return score
}

// RecordMetric records result of a call, updating latency and error count
func (n *Node) RecordMetric(start time.Time, err error) {
	duration := time.Since(start).Milliseconds()

	// Simple moving average for latency, new sample weighted 20%
	oldLatency := atomic.LoadInt64(&n.latency)
	if oldLatency == 0 {
		atomic.StoreInt64(&n.latency, duration)
	} else {
		atomic.StoreInt64(&n.latency, (oldLatency*8+duration*2)/10)
	}

	if err != nil {
		atomic.AddUint64(&n.errorCount, 1)
		atomic.AddUint64(&n.totalErrors, 1)
		atomic.StoreInt64(&n.lastError, time.Now().UnixNano())
	} else {
		// Decrease error count slowly on success to avoid "jitter"
		current := atomic.LoadUint64(&n.errorCount)
		if current > 0 {
			atomic.StoreUint64(&n.errorCount, current-1)
		}
	}
}

// IsCircuitBroken reports whether the node failed too often recently to take traffic.
func (n *Node) IsCircuitBroken() bool {
	if atomic.LoadUint64(&n.errorCount) < circuitThreshold {
		return false
	}
	last := time.Unix(0, atomic.LoadInt64(&n.lastError))
	return time.Since(last) < circuitCooldown
}

// TryAcquire reserves a request slot without blocking.
func (n *Node) TryAcquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.IsCircuitBroken() {
		return ErrCircuitBroken
	}
	if n.limiter != nil && !n.limiter.Allow() {
		return ErrRateLimitExceeded
	}
	if n.semaphore != nil {
		select {
		case n.semaphore <- struct{}{}:
		default:
			return ErrNodeBusy
		}
	}
	return nil
}

// Acquire blocks until the rate limiter and the concurrency limit admit a request.
func (n *Node) Acquire(ctx context.Context) error {
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if n.semaphore != nil {
		select {
		case n.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release frees a slot taken by TryAcquire or Acquire.
func (n *Node) Release() {
	if n.semaphore == nil {
		return
	}
	select {
	case <-n.semaphore:
	default:
	}
}

// MeetsHeightRequirement reports whether the node has seen block h.
func (n *Node) MeetsHeightRequirement(h uint64) bool {
	return atomic.LoadUint64(&n.latestBlock) >= h
}

// UpdateHeight updates the latest block height for the node
func (n *Node) UpdateHeight(h uint64) {
	for {
		current := atomic.LoadUint64(&n.latestBlock)
		if h <= current || atomic.CompareAndSwapUint64(&n.latestBlock, current, h) {
			break
		}
	}
	nodeHeight.WithLabelValues(n.config.URL).Set(float64(atomic.LoadUint64(&n.latestBlock)))
}

// GetErrorCount returns the current consecutive error count
func (n *Node) GetErrorCount() uint64 {
	return atomic.LoadUint64(&n.errorCount)
}

// GetTotalErrors returns the total error count
func (n *Node) GetTotalErrors() uint64 {
	return atomic.LoadUint64(&n.totalErrors)
}

// GetLatency returns the average latency in ms
func (n *Node) GetLatency() int64 {
	return atomic.LoadInt64(&n.latency)
}

// GetLatestBlock returns the latest block height observed by this node
func (n *Node) GetLatestBlock() uint64 {
	return atomic.LoadUint64(&n.latestBlock)
}

func (n *Node) record(method string, start time.Time, err error) {
	n.RecordMetric(start, err)
	observe(n.config.URL, method, start, err)
}

// Proxy Methods (implement Client interface)

func (n *Node) CallTxSync(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	start := time.Now()
	txe, err := n.client.CallTxSync(ctx, tx)
	n.record("CallTxSync", start, err)
	return txe, err
}

func (n *Node) CallTxSim(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	start := time.Now()
	txe, err := n.client.CallTxSim(ctx, tx)
	n.record("CallTxSim", start, err)
	return txe, err
}

func (n *Node) NameTxSync(ctx context.Context, tx *wire.NameTx) (*wire.TxExecution, error) {
	start := time.Now()
	txe, err := n.client.NameTxSync(ctx, tx)
	n.record("NameTxSync", start, err)
	return txe, err
}

func (n *Node) GetMetadata(ctx context.Context, address, metadataHash []byte) (string, error) {
	start := time.Now()
	meta, err := n.client.GetMetadata(ctx, address, metadataHash)
	n.record("GetMetadata", start, err)
	return meta, err
}

func (n *Node) GetName(ctx context.Context, name string) (*wire.NameEntry, error) {
	start := time.Now()
	entry, err := n.client.GetName(ctx, name)
	n.record("GetName", start, err)
	return entry, err
}

func (n *Node) Status(ctx context.Context) (*wire.ResultStatus, error) {
	start := time.Now()
	st, err := n.client.Status(ctx)
	n.record("Status", start, err)
	if err == nil && st.SyncInfo != nil {
		n.UpdateHeight(st.SyncInfo.LatestBlockHeight)
	}
	return st, err
}

// Events records only the stream setup; stream errors belong to the consumer.
func (n *Node) Events(ctx context.Context, req *wire.BlocksRequest) (EventStream, error) {
	start := time.Now()
	stream, err := n.client.Events(ctx, req)
	n.record("Events", start, err)
	return stream, err
}

func (n *Node) Close() error {
	return n.client.Close()
}
