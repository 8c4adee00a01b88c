package rpc

import (
	"context"

	"github.com/84hero/burrow-client/pkg/wire"
)

// Client defines the node RPC methods used by the contract client and the listener.
// This allows for mocking the client in tests or implementing multi-node load balancing.
type Client interface {
	// CallTxSync submits a call and waits for it to be committed
	CallTxSync(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error)

	// CallTxSim executes a call against current state without committing
	CallTxSim(ctx context.Context, tx *wire.CallTx) (*wire.TxExecution, error)

	// NameTxSync updates the name registry
	NameTxSync(ctx context.Context, tx *wire.NameTx) (*wire.TxExecution, error)

	// GetMetadata returns the metadata document stored when the contract at address was deployed.
	// A non-empty metadataHash selects the document by hash instead.
	GetMetadata(ctx context.Context, address, metadataHash []byte) (string, error)

	// GetName reads a name registry entry
	GetName(ctx context.Context, name string) (*wire.NameEntry, error)

	Status(ctx context.Context) (*wire.ResultStatus, error)

	// Events opens the execution event stream for a block range and query
	Events(ctx context.Context, req *wire.BlocksRequest) (EventStream, error)

	// Close closes the connection
	Close() error
}

// EventStream yields block batches until io.EOF or an error.
type EventStream interface {
	Recv() (*wire.EventsResponse, error)
}
