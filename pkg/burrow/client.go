// Package burrow is the client for a Burrow node: it submits calls, wraps
// deployed contracts and subscribes to their events.
package burrow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/rpc"
	"github.com/84hero/burrow-client/pkg/transact"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/crypto"
	"google.golang.org/grpc"
)

var ErrNoMetadata = errors.New("no contract metadata stored")

// Client binds a node connection to the account that signs its transactions.
type Client struct {
	rpc     rpc.Client
	builder *transact.Builder
}

// New wraps an existing connection. account is the caller address in hex.
func New(client rpc.Client, account string) (*Client, error) {
	builder, err := transact.NewBuilder(account)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: client, builder: builder}, nil
}

// Dial connects to a single node.
func Dial(url, account string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := rpc.Dial(url, opts...)
	if err != nil {
		return nil, err
	}
	c, err := New(conn, account)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// Account returns the caller address as uppercase hex.
func (c *Client) Account() string {
	return c.builder.Caller()
}

// RPC exposes the underlying connection.
func (c *Client) RPC() rpc.Client {
	return c.rpc
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

// CallTx assembles a call payload from the client's account. An empty address
// creates a contract and attaches meta.
func (c *Client) CallTx(data []byte, address string, meta []*wire.ContractMeta) (*wire.CallTx, error) {
	return c.builder.CallTx(data, address, meta)
}

// Call submits tx and waits for it to be committed. On-chain exceptions are
// returned as *transact.RevertError or *transact.ExecutionError.
func (c *Client) Call(ctx context.Context, tx *wire.CallTx) (*transact.Result, error) {
	txe, err := c.rpc.CallTxSync(ctx, tx)
	if err != nil {
		return nil, err
	}
	return transact.Interpret(txe)
}

// CallSim executes tx without committing it.
func (c *Client) CallSim(ctx context.Context, tx *wire.CallTx) (*transact.Result, error) {
	txe, err := c.rpc.CallTxSim(ctx, tx)
	if err != nil {
		return nil, err
	}
	return transact.Interpret(txe)
}

// Listen streams raw log events emitted at address whose topic 0 matches signature.
// signature is a canonical event signature or a topic hash in hex. A nil range tails
// from the latest block.
func (c *Client) Listen(ctx context.Context, signature, address string, rng *wire.BlockRange) *events.Subscription[*events.Event] {
	if rng == nil {
		rng = events.LiveRange()
	}
	return events.Stream(ctx, c.rpc, rng, events.QueryFor(address, topicFor(signature)))
}

func topicFor(signature string) string {
	if strings.Contains(signature, "(") {
		return convert.UnprefixedHexString(crypto.Keccak256([]byte(signature)))
	}
	return signature
}

func (c *Client) Status(ctx context.Context) (*wire.ResultStatus, error) {
	return c.rpc.Status(ctx)
}

// LatestHeight returns the latest committed block height.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	st, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, err
	}
	if st.SyncInfo == nil {
		return 0, nil
	}
	return st.SyncInfo.LatestBlockHeight, nil
}

// Metadata fetches a stored metadata document by contract address, or by
// metadataHash when it is not empty. Both are hex.
func (c *Client) Metadata(ctx context.Context, address, metadataHash string) (string, error) {
	var addr, hash []byte
	var err error
	if address != "" {
		if addr, err = convert.ToBytes(address); err != nil {
			return "", err
		}
	}
	if metadataHash != "" {
		if hash, err = convert.ToBytes(metadataHash); err != nil {
			return "", err
		}
	}
	return c.rpc.GetMetadata(ctx, addr, hash)
}

// ContractAt loads the ABI stored when the contract at address was deployed.
func (c *Client) ContractAt(ctx context.Context, address string, opts ...Option) (*Instance, error) {
	meta, err := c.Metadata(ctx, address, "")
	if err != nil {
		return nil, err
	}
	if meta == "" {
		return nil, fmt.Errorf("%w for account %s", ErrNoMetadata, convert.UnprefixedHexString(address))
	}
	abiJSON, err := transact.ParseMeta(meta)
	if err != nil {
		return nil, err
	}
	contract, err := NewContract(transact.Compiled{ABI: abiJSON})
	if err != nil {
		return nil, err
	}
	return contract.At(c, address, opts...), nil
}
