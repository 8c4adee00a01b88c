package rpc

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

// Error definitions
var (
	ErrNoAvailableNodes  = errors.New("no available rpc nodes")
	ErrNoNodeMeetsHeight = errors.New("no node meets the required block height")
)

const syncInterval = 5 * time.Second

var _ Client = (*MultiClient)(nil)

// MultiClient manages multiple Burrow nodes, providing load balancing and failover.
// Read-only calls are retried on another node; transactions are sent exactly once.
type MultiClient struct {
	nodes        []*Node
	globalHeight uint64
	cancel       context.CancelFunc

	mu sync.RWMutex
}

// NewClient initializes a multi-node client
func NewClient(ctx context.Context, configs []NodeConfig) (*MultiClient, error) {
	if len(configs) == 0 {
		return nil, errors.New("no rpc configs provided")
	}

	nodes := make([]*Node, 0, len(configs))
	for _, cfg := range configs {
		n, err := NewNode(cfg)
		if err != nil {
			// Keep going as long as one node is usable.
			log.Warn("Skipping node", "url", cfg.URL, "err", err)
			continue
		}
		nodes = append(nodes, n)
	}

	return NewClientWithNodes(ctx, nodes)
}

// NewClientWithNodes initializes MultiClient with existing nodes (for testing or advanced usage)
func NewClientWithNodes(ctx context.Context, nodes []*Node) (*MultiClient, error) {
	if len(nodes) == 0 {
		return nil, errors.New("failed to connect to any rpc node")
	}

	syncCtx, cancel := context.WithCancel(ctx)
	mc := &MultiClient{
		nodes:  nodes,
		cancel: cancel,
	}

	go mc.startBackgroundSync(syncCtx)

	return mc, nil
}

// Nodes returns the managed nodes.
func (mc *MultiClient) Nodes() []*Node {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return append([]*Node(nil), mc.nodes...)
}

// startBackgroundSync periodically polls all nodes to update their heights and scores
func (mc *MultiClient) startBackgroundSync(ctx context.Context) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	mc.syncNodes(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.syncNodes(ctx)
		}
	}
}

func (mc *MultiClient) syncNodes(ctx context.Context) {
	var maxH uint64
	var g errgroup.Group

	for _, n := range mc.Nodes() {
		node := n
		g.Go(func() error {
			// Maintenance traffic bypasses the rate limiter
			st, err := node.Status(ctx)
			if err != nil || st.SyncInfo == nil {
				return nil
			}
			h := st.SyncInfo.LatestBlockHeight
			for {
				cur := atomic.LoadUint64(&maxH)
				if h <= cur || atomic.CompareAndSwapUint64(&maxH, cur, h) {
					break
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if maxH > 0 {
		atomic.StoreUint64(&mc.globalHeight, maxH)
	}
}

// LatestHeight returns the highest block height seen across nodes, querying
// if no sync has completed yet.
func (mc *MultiClient) LatestHeight(ctx context.Context) (uint64, error) {
	if h := atomic.LoadUint64(&mc.globalHeight); h > 0 {
		return h, nil
	}
	st, err := mc.Status(ctx)
	if err != nil {
		return 0, err
	}
	if st.SyncInfo == nil {
		return 0, nil
	}
	return st.SyncInfo.LatestBlockHeight, nil
}

// execute performs a read-only request with retry logic and auto node switching
func (mc *MultiClient) execute(ctx context.Context, op func(*Node) error) error {
	// Max attempts = number of nodes (capped at 3 to avoid long loops)
	attempts := len(mc.nodes)
	if attempts > 3 {
		attempts = 3
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		node, err := mc.pickAvailableNode(ctx)
		if err != nil {
			return err
		}

		err = op(node)
		node.Release()
		if err == nil {
			return nil
		}

		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		// The failed node's score drops via RecordMetric, so the next pick may differ
	}

	return lastErr
}

// executeOnce runs op on the best node without retrying.
func (mc *MultiClient) executeOnce(ctx context.Context, op func(*Node) error) error {
	node, err := mc.pickAvailableNode(ctx)
	if err != nil {
		return err
	}
	defer node.Release()
	return op(node)
}

// CallTxSync submits a transaction to the best available node
func (mc *MultiClient) CallTxSync(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	var res *wire.TxExecution
	err := mc.executeOnce(ctx, func(n *Node) error {
		var e error
		res, e = n.CallTxSync(ctx, tx)
		return e
	})
	return res, err
}

// CallTxSim simulates a call on the best available node
func (mc *MultiClient) CallTxSim(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	var res *wire.TxExecution
	err := mc.execute(ctx, func(n *Node) error {
		var e error
		res, e = n.CallTxSim(ctx, tx)
		return e
	})
	return res, err
}

// NameTxSync submits a name registry update to the best available node
func (mc *MultiClient) NameTxSync(ctx context.Context, tx *wire.NameTx) (*wire.TxExecution, error) {
	var res *wire.TxExecution
	err := mc.executeOnce(ctx, func(n *Node) error {
		var e error
		res, e = n.NameTxSync(ctx, tx)
		return e
	})
	return res, err
}

// GetMetadata fetches contract metadata from the best available node
func (mc *MultiClient) GetMetadata(ctx context.Context, address, metadataHash []byte) (string, error) {
	var res string
	err := mc.execute(ctx, func(n *Node) error {
		var e error
		res, e = n.GetMetadata(ctx, address, metadataHash)
		return e
	})
	return res, err
}

// GetName reads a name registry entry from the best available node
func (mc *MultiClient) GetName(ctx context.Context, name string) (*wire.NameEntry, error) {
	var res *wire.NameEntry
	err := mc.execute(ctx, func(n *Node) error {
		var e error
		res, e = n.GetName(ctx, name)
		return e
	})
	return res, err
}

// Status retrieves chain status from the best available node
func (mc *MultiClient) Status(ctx context.Context) (*wire.ResultStatus, error) {
	var res *wire.ResultStatus
	err := mc.execute(ctx, func(n *Node) error {
		var e error
		res, e = n.Status(ctx)
		return e
	})
	return res, err
}

// Events opens a stream on a node that has reached the start of the range when
// the start bound is absolute. The stream does not hold a concurrency slot.
func (mc *MultiClient) Events(ctx context.Context, req *wire.BlocksRequest) (EventStream, error) {
	var required uint64
	if br := req.BlockRange; br != nil && br.Start != nil && br.Start.Type == wire.BoundAbsolute {
		required = br.Start.Index
	}
	node, err := mc.pickAvailableNodeWithHeight(ctx, required)
	if errors.Is(err, ErrNoNodeMeetsHeight) {
		// Heights may be stale; let the node decide.
		node, err = mc.pickAvailableNode(ctx)
	}
	if err != nil {
		return nil, err
	}
	node.Release()
	return node.Events(ctx, req)
}

// Close stops background sync and closes all underlying connections
func (mc *MultiClient) Close() error {
	mc.cancel()
	var errs []error
	for _, n := range mc.Nodes() {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pickAvailableNode selects an available node with auto-switching
func (mc *MultiClient) pickAvailableNode(ctx context.Context) (*Node, error) {
	return mc.pickAvailableNodeWithHeight(ctx, 0)
}

// pickAvailableNodeWithHeight selects a node that meets the height requirement
func (mc *MultiClient) pickAvailableNodeWithHeight(ctx context.Context, requiredHeight uint64) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	globalH := atomic.LoadUint64(&mc.globalHeight)
	candidates := mc.Nodes()

	if len(candidates) == 0 {
		return nil, ErrNoAvailableNodes
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score(globalH) > candidates[j].Score(globalH)
	})

	for _, node := range candidates {
		if requiredHeight > 0 && !node.MeetsHeightRequirement(requiredHeight) {
			continue
		}
		if err := node.TryAcquire(ctx); err == nil {
			return node, nil
		}
		// Busy, rate-limited or circuit-broken: try the next node
	}

	// All nodes are unavailable, block and wait for the best node
	bestNode := candidates[0]

	if bestNode.IsCircuitBroken() {
		return nil, ErrNoAvailableNodes
	}

	if requiredHeight > 0 && !bestNode.MeetsHeightRequirement(requiredHeight) {
		return nil, ErrNoNodeMeetsHeight
	}

	if err := bestNode.Acquire(ctx); err != nil {
		return nil, err
	}
	return bestNode, nil
}
