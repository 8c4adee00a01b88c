package transact

import (
	"errors"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/log"
)

var ErrEmptyExecution = errors.New("empty transaction execution")

// Result is the caller-facing view of a successful execution.
type Result struct {
	ContractAddress string          `json:"contractAddress,omitempty"`
	Height          uint64          `json:"height"`
	Index           uint64          `json:"index"`
	Hash            string          `json:"hash"`
	Type            uint32          `json:"type"`
	GasUsed         uint64          `json:"gasUsed"`
	Return          []byte          `json:"-"`
	Caller          []string        `json:"caller"`
	CreatesContract bool            `json:"createsContract"`
	NameEntry       *wire.NameEntry `json:"-"`
	Events          []*wire.Event   `json:"-"`
	Envelope        *wire.Envelope  `json:"-"`
}

var revertReason = abi.Arguments{{Type: mustType("string")}}

// Interpret classifies txe. The exception is checked before the return bytes
// are looked at.
func Interpret(txe *wire.TxExecution) (*Result, error) {
	if txe == nil {
		return nil, ErrEmptyExecution
	}
	if ex := txe.Exception; ex != nil && ex.Code != wire.CodeNone {
		return nil, exceptionError(txe)
	}

	res := &Result{Envelope: txe.Envelope, Events: txe.Events}
	if h := txe.Header; h != nil {
		res.Height = h.Height
		res.Index = h.Index
		res.Hash = convert.UnprefixedHexString(h.TxHash)
		res.Type = h.TxType
	}
	if r := txe.Result; r != nil {
		res.Return = r.Return
		res.GasUsed = r.GasUsed
		res.NameEntry = r.NameEntry
	}
	if rc := txe.Receipt; rc != nil {
		res.CreatesContract = rc.CreatesContract
		if len(rc.ContractAddress) > 0 {
			res.ContractAddress = convert.UnprefixedHexString(rc.ContractAddress)
		}
	}
	if env := txe.Envelope; env != nil {
		for _, sig := range env.Signatories {
			res.Caller = append(res.Caller, convert.UnprefixedHexString(sig.Address))
		}
	}
	return res, nil
}

func exceptionError(txe *wire.TxExecution) error {
	ex := txe.Exception
	if ex.Code != wire.CodeExecutionReverted {
		log.Debug("Transaction raised exception", "code", uint32(ex.Code), "msg", ex.Exception)
		return &ExecutionError{Code: ex.Code, Message: ex.Exception}
	}
	var ret []byte
	if txe.Result != nil {
		ret = txe.Result.Return
	}
	return &RevertError{Message: RevertReason(ret), Return: ret}
}

// RevertReason decodes the string that follows the 4-byte selector of revert data.
// Empty or undecodable data yields RevertMessage.
func RevertReason(ret []byte) string {
	if len(ret) < 4 {
		return RevertMessage
	}
	values, err := revertReason.Unpack(ret[4:])
	if err != nil {
		log.Warn("Undecodable revert reason", "data", convert.PrefixedHexString(ret), "err", err)
		return RevertMessage
	}
	return values[0].(string)
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
