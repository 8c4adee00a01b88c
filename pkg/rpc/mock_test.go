package rpc

import (
	"context"
	"io"

	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/stretchr/testify/mock"
)

type MockNodeClient struct {
	mock.Mock
}

func (m *MockNodeClient) CallTxSync(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wire.TxExecution), args.Error(1)
}

func (m *MockNodeClient) CallTxSim(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wire.TxExecution), args.Error(1)
}

func (m *MockNodeClient) NameTxSync(ctx context.Context, tx *wire.NameTx) (*wire.TxExecution, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wire.TxExecution), args.Error(1)
}

func (m *MockNodeClient) GetMetadata(ctx context.Context, address, metadataHash []byte) (string, error) {
	args := m.Called(ctx, address, metadataHash)
	return args.String(0), args.Error(1)
}

func (m *MockNodeClient) GetName(ctx context.Context, name string) (*wire.NameEntry, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wire.NameEntry), args.Error(1)
}

func (m *MockNodeClient) Status(ctx context.Context) (*wire.ResultStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wire.ResultStatus), args.Error(1)
}

func (m *MockNodeClient) Events(ctx context.Context, req *wire.BlocksRequest) (EventStream, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(EventStream), args.Error(1)
}

func (m *MockNodeClient) Close() error {
	return m.Called().Error(0)
}

func statusAt(h uint64) *wire.ResultStatus {
	return &wire.ResultStatus{ChainID: "test", SyncInfo: &wire.SyncInfo{LatestBlockHeight: h}}
}

type sliceStream struct {
	batches []*wire.EventsResponse
}

func (s *sliceStream) Recv() (*wire.EventsResponse, error) {
	if len(s.batches) == 0 {
		return nil, io.EOF
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}
