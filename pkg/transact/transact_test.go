package transact

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	callerHex = "0x1111111111111111111111111111111111111111"
	targetHex = "2222222222222222222222222222222222222222"
)

func revertData(t *testing.T, reason string) []byte {
	t.Helper()
	packed, err := revertReason.Pack(reason)
	require.NoError(t, err)
	return append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
}

func TestBuilder_CallTx(t *testing.T) {
	b, err := NewBuilder(callerHex)
	require.NoError(t, err)
	assert.Equal(t, "1111111111111111111111111111111111111111", b.Caller())

	meta := []*wire.ContractMeta{{CodeHash: []byte{1}, Meta: `{"Abi":[]}`}}

	t.Run("call existing contract drops meta", func(t *testing.T) {
		tx, err := b.CallTx([]byte{0xde, 0xad}, targetHex, meta)
		require.NoError(t, err)
		assert.Equal(t, DefaultGas, tx.GasLimit)
		assert.Equal(t, uint64(1111111111), tx.GasLimit)
		assert.Zero(t, tx.Fee)
		assert.Zero(t, tx.Input.Amount)
		assert.Len(t, tx.Input.Address, 20)
		assert.Len(t, tx.Address, 20)
		assert.Equal(t, []byte{0xde, 0xad}, tx.Data)
		assert.Nil(t, tx.ContractMeta)
	})

	t.Run("creation attaches meta", func(t *testing.T) {
		tx, err := b.CallTx([]byte{0x60, 0x80}, "", meta)
		require.NoError(t, err)
		assert.Nil(t, tx.Address)
		assert.Equal(t, meta, tx.ContractMeta)
		assert.Equal(t, []byte{0x60, 0x80}, tx.Data)
	})

	t.Run("wasm creation", func(t *testing.T) {
		code := []byte("\x00asm\x01\x00\x00\x00")
		tx, err := b.CallTx(code, "", nil)
		require.NoError(t, err)
		assert.Nil(t, tx.Data)
		assert.Equal(t, code, tx.WASM)
	})

	t.Run("bad target", func(t *testing.T) {
		_, err := b.CallTx(nil, "0xnothex", nil)
		assert.Error(t, err)
	})
}

func TestNewBuilder_InvalidCaller(t *testing.T) {
	_, err := NewBuilder("0x1234")
	assert.ErrorIs(t, err, ErrInvalidCaller)
}

func TestBuilder_NameTx(t *testing.T) {
	b, err := NewBuilder(callerHex)
	require.NoError(t, err)
	tx := b.NameTx("greeting", "hello", 500)
	assert.Equal(t, "greeting", tx.Name)
	assert.Equal(t, "hello", tx.Data)
	assert.Equal(t, uint64(500), tx.Input.Amount)
}

func TestContractMeta(t *testing.T) {
	abiJSON := json.RawMessage(`[{"type":"function","name":"ping","inputs":[],"outputs":[]}]`)

	metas, err := ContractMeta(Compiled{
		ABI:              abiJSON,
		Bytecode:         "6080",
		DeployedBytecode: "0x6001",
		Children: []Compiled{
			{ABI: abiJSON, DeployedBytecode: "6002"},
			{ABI: abiJSON},
		},
	})
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, crypto.Keccak256([]byte{0x60, 0x01}), metas[0].CodeHash)
	assert.Equal(t, crypto.Keccak256([]byte{0x60, 0x02}), metas[1].CodeHash)

	parsed, err := ParseMeta(metas[0].Meta)
	require.NoError(t, err)
	assert.JSONEq(t, string(abiJSON), string(parsed))

	// Wrapping an already deployed contract has no bytecode.
	metas, err = ContractMeta(Compiled{ABI: abiJSON})
	require.NoError(t, err)
	assert.Empty(t, metas)

	_, err = ContractMeta(Compiled{ABI: abiJSON, DeployedBytecode: "zz"})
	assert.Error(t, err)
}

func TestInterpret_Success(t *testing.T) {
	txe := &wire.TxExecution{
		Header:   &wire.TxHeader{TxType: 2, TxHash: []byte{0xab, 0xcd}, Height: 10, Index: 3},
		Result:   &wire.Result{Return: []byte{0x01}, GasUsed: 21000},
		Receipt:  &wire.Receipt{CreatesContract: true, ContractAddress: []byte{0xaa, 0xbb}},
		Envelope: &wire.Envelope{Signatories: []*wire.Signatory{{Address: []byte{0x0f}}}},
	}
	res, err := Interpret(txe)
	require.NoError(t, err)
	assert.Equal(t, "AABB", res.ContractAddress)
	assert.Equal(t, "ABCD", res.Hash)
	assert.Equal(t, uint64(10), res.Height)
	assert.Equal(t, uint64(3), res.Index)
	assert.Equal(t, uint32(2), res.Type)
	assert.Equal(t, uint64(21000), res.GasUsed)
	assert.Equal(t, []byte{0x01}, res.Return)
	assert.Equal(t, []string{"0F"}, res.Caller)
	assert.True(t, res.CreatesContract)

	_, err = Interpret(nil)
	assert.ErrorIs(t, err, ErrEmptyExecution)
}

func TestInterpret_ExceptionPrecedence(t *testing.T) {
	txe := &wire.TxExecution{
		Exception: &wire.Exception{Code: wire.CodeInsufficientGas, Exception: "out of gas"},
		Result:    &wire.Result{Return: []byte("not abi at all")},
	}
	res, err := Interpret(txe)
	assert.Nil(t, res)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, wire.CodeInsufficientGas, execErr.Code)
	assert.Equal(t, "out of gas", execErr.Message)
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestInterpret_Revert(t *testing.T) {
	tests := []struct {
		name string
		ret  []byte
		want string
	}{
		{"bare revert", nil, "Execution Reverted"},
		{"revert with reason", revertData(t, "Did not pass correct key"), "Did not pass correct key"},
		{"garbage reason", []byte{1, 2, 3, 4, 5}, "Execution Reverted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txe := &wire.TxExecution{
				Exception: &wire.Exception{Code: wire.CodeExecutionReverted, Exception: "reverted"},
				Result:    &wire.Result{Return: tt.ret},
			}
			_, err := Interpret(txe)
			var revert *RevertError
			require.True(t, errors.As(err, &revert))
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, codes.Aborted, status.Code(err))
			assert.Equal(t, tt.want, status.Convert(err).Message())
		})
	}
}
