package burrow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/84hero/burrow-client/pkg/codec"
	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/transact"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrNoBytecode      = errors.New("cannot deploy contract without compiled bytecode")
	ErrUnknownFunction = codec.ErrUnknownFunction
	ErrUnknownEvent    = codec.ErrUnknownEvent
)

// Middleware may rewrite a call payload before it is sent.
type Middleware func(*wire.CallTx) *wire.CallTx

type callOptions struct {
	middleware Middleware
}

// Option configures calls made through an Instance.
type Option func(*callOptions)

// WithMiddleware applies m to every payload an Instance sends.
func WithMiddleware(m Middleware) Option {
	return func(o *callOptions) { o.middleware = m }
}

// Contract is compiled code plus the contracts it creates.
type Contract struct {
	codec    *codec.Codec
	compiled transact.Compiled
}

// NewContract parses compiled.ABI.
func NewContract(compiled transact.Compiled) (*Contract, error) {
	c, err := codec.New(compiled.ABI)
	if err != nil {
		return nil, err
	}
	return &Contract{codec: c, compiled: compiled}, nil
}

func (ct *Contract) Codec() *codec.Codec {
	return ct.codec
}

// Meta returns the metadata attached when this contract is deployed.
func (ct *Contract) Meta() ([]*wire.ContractMeta, error) {
	return transact.ContractMeta(ct.compiled)
}

// Deploy creates the contract with constructor args and binds the new address.
func (ct *Contract) Deploy(ctx context.Context, c *Client, args []any, opts ...Option) (*Instance, error) {
	if ct.compiled.Bytecode == "" {
		return nil, ErrNoBytecode
	}
	code, err := convert.ToBytes(ct.compiled.Bytecode)
	if err != nil {
		return nil, err
	}
	ctorArgs, err := ct.codec.EncodeDeploy(args...)
	if err != nil {
		return nil, err
	}
	meta, err := ct.Meta()
	if err != nil {
		return nil, err
	}
	tx, err := c.CallTx(append(code, ctorArgs...), "", meta)
	if err != nil {
		return nil, err
	}
	o := newCallOptions(opts)
	res, err := c.Call(ctx, o.middleware(tx))
	if err != nil {
		return nil, err
	}
	log.Info("Contract deployed", "address", res.ContractAddress, "height", res.Height, "tx", res.Hash)
	return ct.At(c, res.ContractAddress, opts...), nil
}

// At binds the contract to a deployed address.
func (ct *Contract) At(c *Client, address string, opts ...Option) *Instance {
	inst := &Instance{
		contract:  ct,
		client:    c,
		address:   convert.UnprefixedHexString(address),
		opts:      newCallOptions(opts),
		functions: make(map[string]*Function),
		events:    make(map[string]*Event),
	}
	for _, m := range ct.codec.Functions() {
		inst.functions[m.Sig] = &Function{method: m, inst: inst}
	}
	for _, e := range ct.codec.Events() {
		inst.events[e.Sig] = &Event{event: e, inst: inst}
	}
	return inst
}

func newCallOptions(opts []Option) callOptions {
	o := callOptions{middleware: func(tx *wire.CallTx) *wire.CallTx { return tx }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Instance is a contract bound to an address, with one handler per ABI
// function and event.
type Instance struct {
	contract  *Contract
	client    *Client
	address   string
	opts      callOptions
	functions map[string]*Function
	events    map[string]*Event
}

// Address returns the contract address as uppercase hex.
func (i *Instance) Address() string {
	return i.address
}

func (i *Instance) Contract() *Contract {
	return i.contract
}

// Function resolves a bare name (first declaration wins) or a canonical signature.
func (i *Instance) Function(sig string) (*Function, bool) {
	m, ok := i.contract.codec.Function(sig)
	if !ok {
		return nil, false
	}
	f, ok := i.functions[m.Sig]
	return f, ok
}

// Event resolves a bare name or a canonical signature.
func (i *Instance) Event(sig string) (*Event, bool) {
	e, ok := i.contract.codec.Event(sig)
	if !ok {
		return nil, false
	}
	h, ok := i.events[e.Sig]
	return h, ok
}

// Functions lists the canonical signatures of all functions.
func (i *Instance) Functions() []string {
	return sortedKeys(i.functions)
}

// Events lists the canonical signatures of all events.
func (i *Instance) Events() []string {
	return sortedKeys(i.events)
}

// Invoke calls sig with args in a committed transaction.
func (i *Instance) Invoke(ctx context.Context, sig string, args ...any) (*CallResult, error) {
	f, err := i.lookup(sig)
	if err != nil {
		return nil, err
	}
	return f.Call(ctx, args...)
}

// Simulate calls sig with args without committing.
func (i *Instance) Simulate(ctx context.Context, sig string, args ...any) (*CallResult, error) {
	f, err := i.lookup(sig)
	if err != nil {
		return nil, err
	}
	return f.Sim(ctx, args...)
}

// Listen subscribes to the named event. A nil range tails from the latest block.
func (i *Instance) Listen(ctx context.Context, sig string, rng *wire.BlockRange) (*events.Subscription[*events.Decoded], error) {
	e, ok := i.Event(sig)
	if !ok {
		return nil, codecErr(ErrUnknownEvent, sig)
	}
	return e.Listen(ctx, rng)
}

// Once waits for the next occurrence of the named event.
func (i *Instance) Once(ctx context.Context, sig string) (*events.Decoded, error) {
	e, ok := i.Event(sig)
	if !ok {
		return nil, codecErr(ErrUnknownEvent, sig)
	}
	return e.Once(ctx)
}

func (i *Instance) lookup(sig string) (*Function, error) {
	f, ok := i.Function(sig)
	if !ok {
		return nil, codecErr(ErrUnknownFunction, sig)
	}
	return f, nil
}

func codecErr(err error, sig string) error {
	return fmt.Errorf("%w: %s", err, sig)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ABI returns the parsed ABI.
func (i *Instance) ABI() abi.ABI {
	return i.contract.codec.ABI()
}
