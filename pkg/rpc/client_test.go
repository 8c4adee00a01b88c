package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMultiClient_Failover(t *testing.T) {
	ctx := context.Background()

	// Node 1: always fails
	mock1 := new(MockNodeClient)
	mock1.On("Status", mock.Anything).Return(nil, errors.New("connection error"))

	// Node 2: succeeds
	mock2 := new(MockNodeClient)
	mock2.On("Status", mock.Anything).Return(statusAt(100), nil)

	node1 := NewNodeWithClient(NodeConfig{URL: "node1", Priority: 10}, mock1)
	node2 := NewNodeWithClient(NodeConfig{URL: "node2", Priority: 8}, mock2)

	mc, err := NewClientWithNodes(ctx, []*Node{node1, node2})
	require.NoError(t, err)
	defer mc.cancel()

	st, err := mc.Status(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), st.SyncInfo.LatestBlockHeight)

	assert.GreaterOrEqual(t, node1.GetTotalErrors(), uint64(1))

	h, err := mc.LatestHeight(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), h)
}

func TestMultiClient_TransactionsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	tx := &wire.CallTx{Data: []byte{0x01}}

	mock1 := new(MockNodeClient)
	mock1.On("Status", mock.Anything).Return(statusAt(10), nil).Maybe()
	mock1.On("CallTxSync", mock.Anything, tx).Return(nil, errors.New("broken pipe")).Once()

	mock2 := new(MockNodeClient)
	mock2.On("Status", mock.Anything).Return(statusAt(10), nil).Maybe()

	mc, err := NewClientWithNodes(ctx, []*Node{
		NewNodeWithClient(NodeConfig{URL: "node1", Priority: 10}, mock1),
		NewNodeWithClient(NodeConfig{URL: "node2", Priority: 8}, mock2),
	})
	require.NoError(t, err)
	defer mc.cancel()

	_, err = mc.CallTxSync(ctx, tx)
	assert.EqualError(t, err, "broken pipe")
	mock1.AssertExpectations(t)
	mock2.AssertNotCalled(t, "CallTxSync", mock.Anything, mock.Anything)
}

func TestMultiClient_SimulationRetries(t *testing.T) {
	ctx := context.Background()
	tx := &wire.CallTx{Data: []byte{0x02}}
	want := &wire.TxExecution{Result: &wire.Result{Return: []byte{0x2a}}}

	mock1 := new(MockNodeClient)
	mock1.On("Status", mock.Anything).Return(statusAt(10), nil).Maybe()
	mock1.On("CallTxSim", mock.Anything, tx).Return(nil, errors.New("unavailable")).Maybe()

	mock2 := new(MockNodeClient)
	mock2.On("Status", mock.Anything).Return(statusAt(10), nil).Maybe()
	mock2.On("CallTxSim", mock.Anything, tx).Return(want, nil).Maybe()

	mc, err := NewClientWithNodes(ctx, []*Node{
		NewNodeWithClient(NodeConfig{URL: "node1", Priority: 10}, mock1),
		NewNodeWithClient(NodeConfig{URL: "node2", Priority: 8}, mock2),
	})
	require.NoError(t, err)
	defer mc.cancel()

	got, err := mc.CallTxSim(ctx, tx)
	assert.NoError(t, err)
	assert.Same(t, want, got)
}

func TestExecute_RetryLimit(t *testing.T) {
	ctx := context.Background()
	m := new(MockNodeClient)
	m.On("Status", mock.Anything).Return(nil, errors.New("fail")).Maybe()
	m.On("GetName", mock.Anything, "x").Return(nil, errors.New("fail"))

	node := NewNodeWithClient(NodeConfig{URL: "node1", Priority: 10}, m)
	mc, _ := NewClientWithNodes(ctx, []*Node{node})
	defer mc.cancel()

	_, err := mc.GetName(ctx, "x")
	assert.Error(t, err)
	// A single node gets a single attempt
	m.AssertNumberOfCalls(t, "GetName", 1)
}

func TestExecute_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := new(MockNodeClient)
	m.On("Status", mock.Anything).Return(statusAt(100), nil).Maybe()

	node := NewNodeWithClient(NodeConfig{URL: "node1", Priority: 10}, m)
	mc, _ := NewClientWithNodes(ctx, []*Node{node})

	cancel()
	_, err := mc.GetMetadata(ctx, []byte{1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMultiClient_EventsPrefersNodeWithStartHeight(t *testing.T) {
	ctx := context.Background()
	req := &wire.BlocksRequest{BlockRange: &wire.BlockRange{
		Start: &wire.Bound{Type: wire.BoundAbsolute, Index: 50},
		End:   &wire.Bound{Type: wire.BoundAbsolute, Index: 60},
	}}

	behind := new(MockNodeClient)
	ahead := new(MockNodeClient)
	ahead.On("Events", mock.Anything, req).Return(&sliceStream{}, nil).Once()

	n1 := NewNodeWithClient(NodeConfig{URL: "behind", Priority: 10}, behind)
	n1.UpdateHeight(20)
	n2 := NewNodeWithClient(NodeConfig{URL: "ahead", Priority: 1}, ahead)
	n2.UpdateHeight(80)

	// Skip background sync so the heights above stay as set.
	mc := &MultiClient{nodes: []*Node{n1, n2}, cancel: func() {}}

	_, err := mc.Events(ctx, req)
	assert.NoError(t, err)
	ahead.AssertExpectations(t)
	behind.AssertNotCalled(t, "Events", mock.Anything, mock.Anything)
}

func TestMultiClient_Close(t *testing.T) {
	m1 := new(MockNodeClient)
	m1.On("Status", mock.Anything).Return(statusAt(1), nil).Maybe()
	m1.On("Close").Return(nil).Once()
	m2 := new(MockNodeClient)
	m2.On("Status", mock.Anything).Return(statusAt(1), nil).Maybe()
	m2.On("Close").Return(errors.New("already closed")).Once()

	mc, err := NewClientWithNodes(context.Background(), []*Node{
		NewNodeWithClient(NodeConfig{URL: "a"}, m1),
		NewNodeWithClient(NodeConfig{URL: "b"}, m2),
	})
	require.NoError(t, err)
	assert.ErrorContains(t, mc.Close(), "already closed")
	m1.AssertExpectations(t)
	m2.AssertExpectations(t)
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(context.Background(), []NodeConfig{})
	assert.Error(t, err)

	_, err = NewClientWithNodes(context.Background(), []*Node{})
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	configs := []NodeConfig{
		{URL: "invalid-scheme://", Priority: 1},
	}
	_, err := NewClient(context.Background(), configs)
	assert.Error(t, err)
}
