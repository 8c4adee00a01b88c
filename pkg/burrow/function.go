package burrow

import (
	"context"
	"fmt"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/transact"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// CallResult is a committed or simulated call with its decoded return values.
type CallResult struct {
	Tx     *transact.Result `json:"tx"`
	Values *convert.Result  `json:"values"`
}

// Function calls one ABI function of an Instance.
type Function struct {
	method *abi.Method
	inst   *Instance
}

func (f *Function) Signature() string {
	return f.method.Sig
}

// Encode returns the call data for args.
func (f *Function) Encode(args ...any) ([]byte, error) {
	return f.inst.contract.codec.EncodeFunctionData(f.method.Sig, args...)
}

// Decode decodes return data.
func (f *Function) Decode(ret []byte) (*convert.Result, error) {
	return f.inst.contract.codec.DecodeFunctionResult(f.method.Sig, ret)
}

// Call sends a committed transaction to the bound address.
func (f *Function) Call(ctx context.Context, args ...any) (*CallResult, error) {
	return f.send(ctx, f.inst.address, false, args)
}

// Sim simulates the call against the bound address.
func (f *Function) Sim(ctx context.Context, args ...any) (*CallResult, error) {
	return f.send(ctx, f.inst.address, true, args)
}

// CallAt sends a committed transaction to another address sharing this ABI.
func (f *Function) CallAt(ctx context.Context, address string, args ...any) (*CallResult, error) {
	return f.send(ctx, address, false, args)
}

// SimAt simulates the call against another address.
func (f *Function) SimAt(ctx context.Context, address string, args ...any) (*CallResult, error) {
	return f.send(ctx, address, true, args)
}

func (f *Function) send(ctx context.Context, address string, sim bool, args []any) (*CallResult, error) {
	if address == "" {
		return nil, fmt.Errorf("%s: no contract address", f.method.Sig)
	}
	data, err := f.Encode(args...)
	if err != nil {
		return nil, err
	}
	tx, err := f.inst.client.CallTx(data, address, nil)
	if err != nil {
		return nil, err
	}
	tx = f.inst.opts.middleware(tx)

	var res *transact.Result
	if sim {
		res, err = f.inst.client.CallSim(ctx, tx)
	} else {
		res, err = f.inst.client.Call(ctx, tx)
	}
	if err != nil {
		return nil, err
	}
	values, err := f.Decode(res.Return)
	if err != nil {
		return nil, err
	}
	return &CallResult{Tx: res, Values: values}, nil
}

// Event subscribes to one ABI event of an Instance.
type Event struct {
	event *abi.Event
	inst  *Instance
}

func (e *Event) Signature() string {
	return e.event.Sig
}

// Listen decodes occurrences at the bound address within rng.
func (e *Event) Listen(ctx context.Context, rng *wire.BlockRange) (*events.Subscription[*events.Decoded], error) {
	return e.ListenAt(ctx, e.inst.address, rng)
}

// ListenAt decodes occurrences emitted by another address sharing this ABI.
func (e *Event) ListenAt(ctx context.Context, address string, rng *wire.BlockRange) (*events.Subscription[*events.Decoded], error) {
	reg, err := events.NewRegistry(e.inst.contract.codec, address, e.event.Sig)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = events.LiveRange()
	}
	return reg.Subscribe(ctx, e.inst.client.rpc, rng), nil
}

// Once blocks until the next occurrence from the latest block onwards.
func (e *Event) Once(ctx context.Context) (*events.Decoded, error) {
	sub, err := e.Listen(ctx, events.LiveRange())
	if err != nil {
		return nil, err
	}
	got, err := events.Read(sub, 1)
	if err != nil {
		return nil, err
	}
	if len(got) == 0 {
		return nil, events.ErrEndOfStream
	}
	return got[0], nil
}
