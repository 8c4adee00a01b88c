package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	_, err := NewNode(NodeConfig{URL: "ftp://nowhere", Priority: 10})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = NewNode(NodeConfig{URL: "", Priority: 10})
	assert.ErrorIs(t, err, ErrInvalidURL)

	n, err := NewNode(NodeConfig{URL: "grpc://127.0.0.1:10997", Priority: 10})
	require.NoError(t, err)
	assert.NoError(t, n.Close())
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:10997", "localhost:10997"},
		{"grpc://localhost:10997", "localhost:10997"},
		{"tcp://10.0.0.1:10997", "10.0.0.1:10997"},
		{"dns:///node.example:10997", "dns:///node.example:10997"},
		{"unix:///tmp/burrow.sock", "unix:///tmp/burrow.sock"},
	}
	for _, tt := range tests {
		got, err := normalizeTarget(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	_, err := normalizeTarget("grpc://")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNode_ProxyMethods(t *testing.T) {
	ctx := context.Background()
	m := new(MockNodeClient)
	node := NewNodeWithClient(NodeConfig{URL: "test", Priority: 10}, m)

	tx := &wire.CallTx{Data: []byte{1}}
	txe := &wire.TxExecution{Header: &wire.TxHeader{Height: 3}}

	// 1. CallTxSync
	m.On("CallTxSync", ctx, tx).Return(txe, nil).Once()
	got, err := node.CallTxSync(ctx, tx)
	assert.NoError(t, err)
	assert.Same(t, txe, got)

	// 2. CallTxSim
	m.On("CallTxSim", ctx, tx).Return(txe, nil).Once()
	_, err = node.CallTxSim(ctx, tx)
	assert.NoError(t, err)

	// 3. NameTxSync
	ntx := &wire.NameTx{Name: "n"}
	m.On("NameTxSync", ctx, ntx).Return(txe, nil).Once()
	_, err = node.NameTxSync(ctx, ntx)
	assert.NoError(t, err)

	// 4. GetMetadata
	m.On("GetMetadata", ctx, []byte{0xaa}, []byte{0x01}).Return(`{"Abi":[]}`, nil).Once()
	meta, err := node.GetMetadata(ctx, []byte{0xaa}, []byte{0x01})
	assert.NoError(t, err)
	assert.Equal(t, `{"Abi":[]}`, meta)

	// 5. GetName
	m.On("GetName", ctx, "n").Return(&wire.NameEntry{Name: "n"}, nil).Once()
	entry, err := node.GetName(ctx, "n")
	assert.NoError(t, err)
	assert.Equal(t, "n", entry.Name)

	// 6. Status updates the observed height
	m.On("Status", ctx).Return(statusAt(42), nil).Once()
	_, err = node.Status(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), node.GetLatestBlock())
	assert.True(t, node.MeetsHeightRequirement(42))
	assert.False(t, node.MeetsHeightRequirement(43))

	// 7. Events
	req := &wire.BlocksRequest{Query: "EventType = 'LogEvent'"}
	m.On("Events", ctx, req).Return(&sliceStream{}, nil).Once()
	_, err = node.Events(ctx, req)
	assert.NoError(t, err)

	// 8. Close
	m.On("Close").Return(nil).Once()
	assert.NoError(t, node.Close())
	m.AssertExpectations(t)
}

func TestNodeScore(t *testing.T) {
	n := &Node{
		config: NodeConfig{Priority: 10},
	}

	// Initial score: 10 * 100 = 1000
	assert.Equal(t, int64(1000), n.Score(0))

	// Latency 100ms: 1000 - (100/10) = 990
	n.RecordMetric(time.Now().Add(-100*time.Millisecond), nil)
	assert.Equal(t, int64(990), n.Score(0))

	// One error: 1000 - 0 - 500 = 500
	n2 := &Node{config: NodeConfig{Priority: 10}}
	n2.RecordMetric(time.Now(), errors.New("fail"))
	assert.Equal(t, int64(500), n2.Score(0))
}

func TestNode_ScoreLag(t *testing.T) {
	n := &Node{
		config: NodeConfig{Priority: 10},
	}
	n.UpdateHeight(100)
	// Global height is 120, lag is 20.
	// Score = 1000 - 0 - (20 * 50) = 0
	assert.Equal(t, int64(0), n.Score(120))

	// Heights never go backwards
	n.UpdateHeight(90)
	assert.Equal(t, uint64(100), n.GetLatestBlock())
}

func TestNode_TryAcquire(t *testing.T) {
	ctx := context.Background()
	n := NewNodeWithClient(NodeConfig{URL: "n", Priority: 1, MaxConcurrent: 1}, new(MockNodeClient))

	require.NoError(t, n.TryAcquire(ctx))
	assert.ErrorIs(t, n.TryAcquire(ctx), ErrNodeBusy)
	n.Release()
	assert.NoError(t, n.TryAcquire(ctx))
	n.Release()
	// Releasing an empty slot is a no-op.
	n.Release()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, n.TryAcquire(cancelled), context.Canceled)
}

func TestNodeGetters(t *testing.T) {
	n := &Node{config: NodeConfig{URL: "grpc://test", Priority: 5}}
	assert.Equal(t, "grpc://test", n.URL())
	assert.Equal(t, 5, n.Priority())
	assert.Zero(t, n.GetLatency())
	assert.Zero(t, n.GetErrorCount())
}
