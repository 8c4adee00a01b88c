// Package codec translates between contract calls and the bytes a Burrow node executes:
// call data, return data and event logs.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const constructorName = "constructor"

// Codec wraps a parsed ABI. Functions and events are indexed by canonical signature
// and by bare name; for overloaded names the first declaration wins.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	parsed  abi.ABI
	raw     json.RawMessage
	methods map[string]*abi.Method
	events  map[string]*abi.Event
}

// New parses an ABI JSON array.
func New(abiJSON []byte) (*Codec, error) {
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	c := &Codec{
		parsed:  parsed,
		raw:     append(json.RawMessage(nil), abiJSON...),
		methods: make(map[string]*abi.Method),
		events:  make(map[string]*abi.Event),
	}
	for key, m := range parsed.Methods {
		c.methods[m.Sig] = &m
		c.methods[key] = &m
	}
	for key, e := range parsed.Events {
		c.events[e.Sig] = &e
		c.events[key] = &e
	}
	return c, nil
}

// NewFromJSON creates a codec from a JSON ABI string
func NewFromJSON(jsonStr string) (*Codec, error) {
	return New([]byte(jsonStr))
}

// ABI returns the parsed ABI.
func (c *Codec) ABI() abi.ABI {
	return c.parsed
}

// RawABI returns the ABI JSON the codec was built from.
func (c *Codec) RawABI() json.RawMessage {
	return c.raw
}

// Function resolves a bare name or canonical signature.
func (c *Codec) Function(sig string) (*abi.Method, bool) {
	m, ok := c.methods[normalize(sig)]
	return m, ok
}

// Event resolves a bare name or canonical signature.
func (c *Codec) Event(sig string) (*abi.Event, bool) {
	e, ok := c.events[normalize(sig)]
	return e, ok
}

// Functions lists every function ordered by signature.
func (c *Codec) Functions() []*abi.Method {
	out := make([]*abi.Method, 0, len(c.parsed.Methods))
	for key := range c.parsed.Methods {
		out = append(out, c.methods[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sig < out[j].Sig })
	return out
}

// Events lists every event ordered by signature.
func (c *Codec) Events() []*abi.Event {
	out := make([]*abi.Event, 0, len(c.parsed.Events))
	for key := range c.parsed.Events {
		out = append(out, c.events[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sig < out[j].Sig })
	return out
}

// EncodeDeploy packs constructor arguments. A contract without a declared
// constructor takes no arguments.
func (c *Codec) EncodeDeploy(args ...any) ([]byte, error) {
	ctor := c.parsed.Constructor
	vals, err := convert.ToABI(constructorName, ctor.Inputs, args)
	if err != nil {
		return nil, formatCodecError(ActionEncodeDeploy, constructorName, args, ctor.Inputs, err)
	}
	packed, err := ctor.Inputs.Pack(vals...)
	if err != nil {
		return nil, formatCodecError(ActionEncodeDeploy, constructorName, args, ctor.Inputs, err)
	}
	return packed, nil
}

// EncodeFunctionData returns the 4-byte selector followed by the packed arguments.
func (c *Codec) EncodeFunctionData(sig string, args ...any) ([]byte, error) {
	m, ok := c.Function(sig)
	if !ok {
		return nil, formatCodecError(ActionEncodeFunctionData, sig, args, nil, ErrUnknownFunction)
	}
	vals, err := convert.ToABI(m.Sig, m.Inputs, args)
	if err != nil {
		return nil, formatCodecError(ActionEncodeFunctionData, m.Sig, args, m.Inputs, err)
	}
	packed, err := m.Inputs.Pack(vals...)
	if err != nil {
		return nil, formatCodecError(ActionEncodeFunctionData, m.Sig, args, m.Inputs, err)
	}
	data := make([]byte, 0, len(m.ID)+len(packed))
	data = append(data, m.ID...)
	return append(data, packed...), nil
}

// DecodeFunctionData decodes call data produced by EncodeFunctionData back into arguments.
func (c *Codec) DecodeFunctionData(sig string, data []byte) (*convert.Result, error) {
	m, ok := c.Function(sig)
	if !ok {
		return nil, formatCodecError(ActionDecodeFunctionData, sig, []any{data}, nil, ErrUnknownFunction)
	}
	if len(data) < len(m.ID) || !bytes.Equal(data[:len(m.ID)], m.ID) {
		return nil, formatCodecError(ActionDecodeFunctionData, m.Sig, []any{data}, m.Inputs,
			fmt.Errorf("data does not start with selector %x", m.ID))
	}
	values, err := m.Inputs.Unpack(data[len(m.ID):])
	if err != nil {
		return nil, formatCodecError(ActionDecodeFunctionData, m.Sig, []any{data}, m.Inputs, err)
	}
	res, err := convert.ToClient(m.Sig, m.Inputs, values)
	if err != nil {
		return nil, formatCodecError(ActionDecodeFunctionData, m.Sig, []any{data}, m.Inputs, err)
	}
	return res, nil
}

// DecodeFunctionResult unpacks return data against the function's declared outputs.
// Empty data is valid only for functions without outputs.
func (c *Codec) DecodeFunctionResult(sig string, data []byte) (*convert.Result, error) {
	m, ok := c.Function(sig)
	if !ok {
		return nil, formatCodecError(ActionDecodeFunctionResult, sig, []any{data}, nil, ErrUnknownFunction)
	}
	values, err := m.Outputs.Unpack(data)
	if err != nil {
		return nil, formatCodecError(ActionDecodeFunctionResult, m.Sig, []any{data}, m.Outputs, err)
	}
	res, err := convert.ToClient(m.Sig, m.Outputs, values)
	if err != nil {
		return nil, formatCodecError(ActionDecodeFunctionResult, m.Sig, []any{data}, m.Outputs, err)
	}
	return res, nil
}

// DecodeEventLog decodes log data (non-indexed arguments) and topics (indexed arguments).
// topics includes the selector as its first entry unless the event is anonymous.
func (c *Codec) DecodeEventLog(sig string, data []byte, topics []common.Hash) (*convert.Result, error) {
	logArgs := []any{data, topics}
	e, ok := c.Event(sig)
	if !ok {
		return nil, formatCodecError(ActionDecodeEventLog, sig, logArgs, nil, ErrUnknownEvent)
	}
	res, err := decodeEvent(e, data, topics)
	if err != nil {
		return nil, formatCodecError(ActionDecodeEventLog, e.Sig, logArgs, e.Inputs, err)
	}
	return res, nil
}

func decodeEvent(e *abi.Event, data []byte, topics []common.Hash) (*convert.Result, error) {
	var indexed abi.Arguments
	for _, arg := range e.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if !e.Anonymous {
		if len(topics) == 0 {
			return nil, ErrNoTopics
		}
		if topics[0] != e.ID {
			return nil, fmt.Errorf("topic 0 %s does not match event id %s", topics[0].Hex(), e.ID.Hex())
		}
		topics = topics[1:]
	}
	if len(topics) != len(indexed) {
		return nil, fmt.Errorf("topic count mismatch: expected %d, got %d", len(indexed), len(topics))
	}

	nonIndexed := e.Inputs.NonIndexed()
	raw, err := nonIndexed.Unpack(data)
	if err != nil {
		return nil, err
	}
	plain, err := convert.ToClient(e.Sig, nonIndexed, raw)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(e.Inputs))
	names := make([]string, len(e.Inputs))
	pi, ti := 0, 0
	for i, arg := range e.Inputs {
		names[i] = arg.Name
		if !arg.Indexed {
			values[i] = plain.At(pi)
			pi++
			continue
		}
		v, err := decodeTopic(arg, topics[ti])
		if err != nil {
			return nil, err
		}
		values[i] = v
		ti++
	}
	return convert.NewResult(values, names), nil
}

// decodeTopic recovers one indexed argument. Dynamic types are stored as their
// keccak hash, which is returned as hex.
func decodeTopic(arg abi.Argument, topic common.Hash) (any, error) {
	switch arg.Type.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		return convert.UnprefixedHexString(topic.Bytes()), nil
	}
	out := make(map[string]any)
	if err := abi.ParseTopicsIntoMap(out, abi.Arguments{arg}, []common.Hash{topic}); err != nil {
		return nil, err
	}
	res, err := convert.ToClient(arg.Name, abi.Arguments{arg}, []any{out[arg.Name]})
	if err != nil {
		return nil, err
	}
	return res.At(0), nil
}

func normalize(sig string) string {
	return strings.ReplaceAll(strings.TrimSpace(sig), " ", "")
}
