package events

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/84hero/burrow-client/pkg/codec"
	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Decoded is a log event matched to an ABI event and decoded.
type Decoded struct {
	Name      string          `json:"name"`
	Signature string          `json:"signature"`
	Args      *convert.Result `json:"args"`
	Event     *Event          `json:"event"`
}

// Registry decodes the events of one contract, selected by name or signature.
type Registry struct {
	codec   *codec.Codec
	address common.Address
	byTopic map[common.Hash]*abi.Event
}

// NewRegistry selects events of c emitted at address. No names selects every
// non-anonymous event in the ABI.
func NewRegistry(c *codec.Codec, address string, names ...string) (*Registry, error) {
	norm, err := convert.AddressToABI(address)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		codec:   c,
		address: common.HexToAddress(norm),
		byTopic: make(map[common.Hash]*abi.Event),
	}
	if len(names) == 0 {
		for _, e := range c.Events() {
			if !e.Anonymous {
				r.byTopic[e.ID] = e
			}
		}
		return r, nil
	}
	for _, name := range names {
		e, ok := c.Event(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", codec.ErrUnknownEvent, name)
		}
		if e.Anonymous {
			return nil, fmt.Errorf("anonymous event %s has no signature topic", e.Sig)
		}
		r.byTopic[e.ID] = e
	}
	return r, nil
}

// Filter matches the registry's address and signatures.
func (r *Registry) Filter() *Filter {
	ids := make([]common.Hash, 0, len(r.byTopic))
	for id := range r.byTopic {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return NewFilter().AddContract(r.address).SetTopic(0, ids...)
}

// Decode resolves ev by topic 0.
func (r *Registry) Decode(ev *Event) (*Decoded, error) {
	if len(ev.Topics) == 0 {
		return nil, fmt.Errorf("event has no Log0 at height %d index %d", ev.Height, ev.Index)
	}
	sig := common.BytesToHash(ev.Topics[0])
	e, ok := r.byTopic[sig]
	if !ok {
		return nil, fmt.Errorf("could not find event with signature %s in registry",
			convert.UnprefixedHexString(sig.Bytes()))
	}
	topics := make([]common.Hash, len(ev.Topics))
	for i, t := range ev.Topics {
		topics[i] = common.BytesToHash(t)
	}
	args, err := r.codec.DecodeEventLog(e.Sig, ev.Data, topics)
	if err != nil {
		return nil, err
	}
	return &Decoded{Name: e.RawName, Signature: e.Sig, Args: args, Event: ev}, nil
}

// Subscribe streams rng and decodes each event. Events the node sends outside
// the filter are dropped. A decode failure ends the subscription.
func (r *Registry) Subscribe(ctx context.Context, src Source, rng *wire.BlockRange) *Subscription[*Decoded] {
	f := r.Filter()
	return mapWhere(Stream(ctx, src, rng, f.Query()), func(ev *Event) (*Decoded, bool, error) {
		if !f.Matches(ev) {
			log.Debug("Dropping event outside filter", "height", ev.Height, "address", ev.Address)
			return nil, false, nil
		}
		d, err := r.Decode(ev)
		return d, err == nil, err
	})
}
