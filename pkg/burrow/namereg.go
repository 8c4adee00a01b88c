package burrow

import (
	"context"
	"fmt"

	"github.com/84hero/burrow-client/pkg/transact"
	"github.com/84hero/burrow-client/pkg/wire"
)

// GetName reads a name registry entry.
func (c *Client) GetName(ctx context.Context, name string) (*wire.NameEntry, error) {
	return c.rpc.GetName(ctx, name)
}

// SetName writes data under name. lease is paid from the client's account and
// determines how long the entry lives.
func (c *Client) SetName(ctx context.Context, name, data string, lease uint64) (*wire.NameEntry, error) {
	txe, err := c.rpc.NameTxSync(ctx, c.builder.NameTx(name, data, lease))
	if err != nil {
		return nil, err
	}
	res, err := transact.Interpret(txe)
	if err != nil {
		return nil, err
	}
	if res.NameEntry == nil {
		return nil, fmt.Errorf("name transaction for %q returned no entry", name)
	}
	return res.NameEntry, nil
}
