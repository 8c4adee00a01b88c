// Package transact assembles call and name transactions and interprets their execution results.
package transact

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultGas is effectively unlimited for development chains.
const DefaultGas uint64 = 1111111111

var wasmMagic = []byte("\x00asm")

var ErrInvalidCaller = errors.New("invalid caller account")

// Builder assembles payloads signed by a single caller account.
type Builder struct {
	caller   []byte
	GasLimit uint64
	Fee      uint64
	Amount   uint64
}

// NewBuilder parses the caller account hex and applies the default policy:
// gas DefaultGas, fee 0, amount 0.
func NewBuilder(caller string) (*Builder, error) {
	addr, err := parseAddress(caller)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCaller, err)
	}
	return &Builder{caller: addr, GasLimit: DefaultGas}, nil
}

// Caller returns the caller address as uppercase hex.
func (b *Builder) Caller() string {
	return convert.UnprefixedHexString(b.caller)
}

// CallTx builds a call payload. An empty target means contract creation, in which
// case meta is attached and WASM code is detected by its magic prefix.
// meta is ignored for calls to an existing contract.
func (b *Builder) CallTx(data []byte, target string, meta []*wire.ContractMeta) (*wire.CallTx, error) {
	tx := &wire.CallTx{
		Input:    &wire.TxInput{Address: b.caller, Amount: b.Amount},
		GasLimit: b.GasLimit,
		Fee:      b.Fee,
	}
	if target == "" {
		if bytes.HasPrefix(data, wasmMagic) {
			tx.WASM = data
		} else {
			tx.Data = data
		}
		tx.ContractMeta = meta
		return tx, nil
	}
	addr, err := parseAddress(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target address: %w", err)
	}
	tx.Address = addr
	tx.Data = data
	return tx, nil
}

// NameTx builds a name registry update. amount pays for the lease.
func (b *Builder) NameTx(name, data string, amount uint64) *wire.NameTx {
	return &wire.NameTx{
		Input: &wire.TxInput{Address: b.caller, Amount: amount},
		Name:  name,
		Data:  data,
		Fee:   b.Fee,
	}
}

func parseAddress(s string) ([]byte, error) {
	norm, err := convert.AddressToABI(s)
	if err != nil {
		return nil, err
	}
	return common.HexToAddress(norm).Bytes(), nil
}
