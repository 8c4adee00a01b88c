package burrow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/84hero/burrow-client/internal/fakenode"
	"github.com/84hero/burrow-client/pkg/burrow"
	"github.com/84hero/burrow-client/pkg/codec"
	"github.com/84hero/burrow-client/pkg/events"
	"github.com/84hero/burrow-client/pkg/transact"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const storeABI = `[
	{"type":"constructor","inputs":[{"name":"initial","type":"uint256"}]},
	{"type":"function","name":"get","stateMutability":"view","inputs":[],"outputs":[{"name":"value","type":"uint256"}]},
	{"type":"function","name":"set","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"fail","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"Stored","anonymous":false,"inputs":[{"indexed":true,"name":"by","type":"address"},{"indexed":false,"name":"value","type":"uint256"}]}
]`

const account = "0x1111111111111111111111111111111111111111"

var storeAddr = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

func storeCompiled() transact.Compiled {
	return transact.Compiled{
		ABI:              json.RawMessage(storeABI),
		Bytecode:         "0x6080604052",
		DeployedBytecode: "0x60806040",
	}
}

// storeNode makes srv behave like a deployed Store contract.
func storeNode(t *testing.T, srv *fakenode.Server) {
	t.Helper()
	c, err := codec.NewFromJSON(storeABI)
	require.NoError(t, err)
	get, _ := c.Function("get")
	set, _ := c.Function("set")
	fail, _ := c.Function("fail")
	stored, _ := c.Event("Stored")

	value := big.NewInt(0)
	srv.HandleCallTx = func(tx *wire.CallTx, sim bool) (*wire.TxExecution, error) {
		txe := &wire.TxExecution{
			Header: &wire.TxHeader{TxType: 2, TxHash: []byte{0xAB, 0xCD}, Height: srv.Height()},
			Result: &wire.Result{GasUsed: 21},
		}
		switch {
		case len(tx.Address) == 0:
			ctor := c.ABI().Constructor
			vals, err := ctor.Inputs.Unpack(tx.Data[len(tx.Data)-32:])
			if err != nil {
				return nil, err
			}
			value = vals[0].(*big.Int)
			for _, m := range tx.ContractMeta {
				srv.SetMetadata(storeAddr.Bytes(), m.Meta)
			}
			txe.Receipt = &wire.Receipt{CreatesContract: true, ContractAddress: storeAddr.Bytes()}
		case bytes.HasPrefix(tx.Data, get.ID):
			ret, err := get.Outputs.Pack(value)
			if err != nil {
				return nil, err
			}
			txe.Result.Return = ret
		case bytes.HasPrefix(tx.Data, set.ID):
			vals, err := set.Inputs.Unpack(tx.Data[4:])
			if err != nil {
				return nil, err
			}
			if sim {
				break
			}
			value = vals[0].(*big.Int)
			data, _ := stored.Inputs.NonIndexed().Pack(value)
			txe.Header.Height = srv.Commit(&wire.LogEvent{
				Address: storeAddr.Bytes(),
				Data:    data,
				Topics:  [][]byte{stored.ID.Bytes(), common.BytesToHash(tx.Input.Address).Bytes()},
			})
		case bytes.HasPrefix(tx.Data, fail.ID):
			txe.Exception = &wire.Exception{Code: wire.CodeExecutionReverted}
		}
		return txe, nil
	}
}

func setup(t *testing.T) (*fakenode.Server, *burrow.Client) {
	t.Helper()
	srv := fakenode.Start(t)
	storeNode(t, srv)
	client, err := burrow.Dial(srv.Addr(), account)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func deploy(t *testing.T, client *burrow.Client, opts ...burrow.Option) *burrow.Instance {
	t.Helper()
	contract, err := burrow.NewContract(storeCompiled())
	require.NoError(t, err)
	inst, err := contract.Deploy(context.Background(), client, []any{5}, opts...)
	require.NoError(t, err)
	return inst
}

func TestContract_Deploy(t *testing.T) {
	srv, client := setup(t)
	inst := deploy(t, client)

	assert.Equal(t, "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC", inst.Address())
	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Address)
	assert.Len(t, calls[0].Data, 5+32)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, calls[0].Data[:5])
	require.Len(t, calls[0].ContractMeta, 1)
	assert.JSONEq(t, `{"Abi":`+storeABI+`}`, calls[0].ContractMeta[0].Meta)

	assert.Equal(t, []string{"fail()", "get()", "set(uint256)"}, inst.Functions())
	assert.Equal(t, []string{"Stored(address,uint256)"}, inst.Events())
}

func TestContract_DeployWithoutBytecode(t *testing.T) {
	_, client := setup(t)
	contract, err := burrow.NewContract(transact.Compiled{ABI: json.RawMessage(storeABI)})
	require.NoError(t, err)

	_, err = contract.Deploy(context.Background(), client, []any{1})
	assert.ErrorIs(t, err, burrow.ErrNoBytecode)
}

func TestInstance_InvokeAndSimulate(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)
	inst := deploy(t, client)

	res, err := inst.Simulate(ctx, "get")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Values.At(0))

	res, err = inst.Invoke(ctx, "set", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Tx.Height)
	assert.Equal(t, "ABCD", res.Tx.Hash)
	assert.Equal(t, 0, res.Values.Len())

	// Simulated writes are discarded.
	_, err = inst.Simulate(ctx, "set(uint256)", 9)
	require.NoError(t, err)
	res, err = inst.Simulate(ctx, "get()")
	require.NoError(t, err)
	v, ok := res.Values.Get("value")
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestInstance_Revert(t *testing.T) {
	_, client := setup(t)
	inst := deploy(t, client)

	_, err := inst.Invoke(context.Background(), "fail")
	require.Error(t, err)

	var revert *transact.RevertError
	require.True(t, errors.As(err, &revert))
	assert.Equal(t, "Execution Reverted", revert.Message)
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestInstance_UnknownMembers(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)
	inst := deploy(t, client)

	_, err := inst.Invoke(ctx, "missing")
	assert.ErrorIs(t, err, burrow.ErrUnknownFunction)

	_, err = inst.Listen(ctx, "Missing", nil)
	assert.ErrorIs(t, err, burrow.ErrUnknownEvent)

	_, err = inst.Invoke(ctx, "set", "not a number")
	_, isCodec := codec.IsCodecError(err)
	assert.True(t, isCodec)
}

func TestInstance_Middleware(t *testing.T) {
	srv, client := setup(t)
	inst := deploy(t, client, burrow.WithMiddleware(func(tx *wire.CallTx) *wire.CallTx {
		tx.GasLimit = 42
		return tx
	}))

	_, err := inst.Invoke(context.Background(), "set", 1)
	require.NoError(t, err)

	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, uint64(42), calls[0].GasLimit)
	assert.Equal(t, uint64(42), calls[1].GasLimit)
}

func TestFunction_CallAt(t *testing.T) {
	srv, client := setup(t)
	inst := deploy(t, client)
	f, ok := inst.Function("set")
	require.True(t, ok)

	other := "0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"
	_, err := f.SimAt(context.Background(), other, 3)
	require.NoError(t, err)

	calls := srv.Calls()
	assert.Equal(t, common.HexToAddress(other).Bytes(), calls[len(calls)-1].Address)
}

func TestClient_ContractAt(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)
	deploy(t, client)

	inst, err := client.ContractAt(ctx, storeAddr.Hex())
	require.NoError(t, err)
	res, err := inst.Simulate(ctx, "get")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Values.At(0))

	_, err = client.ContractAt(ctx, "0x000000000000000000000000000000000000dead")
	assert.ErrorIs(t, err, burrow.ErrNoMetadata)
	assert.Contains(t, err.Error(), "000000000000000000000000000000000000DEAD")
}

func TestClient_MetadataByHash(t *testing.T) {
	ctx := context.Background()
	srv, client := setup(t)
	srv.SetMetadataByHash([]byte{0x12, 0x34}, `{"Abi":[]}`)

	meta, err := client.Metadata(ctx, "", "0x1234")
	require.NoError(t, err)
	assert.Equal(t, `{"Abi":[]}`, meta)

	meta, err = client.Metadata(ctx, storeAddr.Hex(), "5678")
	require.NoError(t, err)
	assert.Empty(t, meta)

	_, err = client.Metadata(ctx, "", "zz")
	assert.Error(t, err)
}

func TestInstance_Once(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, client := setup(t)
	inst := deploy(t, client)

	got := make(chan *events.Decoded, 1)
	errc := make(chan error, 1)
	go func() {
		ev, err := inst.Once(ctx, "Stored")
		if err != nil {
			errc <- err
			return
		}
		got <- ev
	}()
	require.Eventually(t, func() bool { return srv.Streams() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := inst.Invoke(ctx, "set", 11)
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, "Stored", ev.Name)
		v, _ := ev.Args.Get("value")
		assert.Equal(t, int64(11), v)
		assert.Equal(t, uint64(1), ev.Event.Height)
	case err := <-errc:
		t.Fatalf("once: %v", err)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestInstance_OnceDeadline(t *testing.T) {
	_, client := setup(t)
	inst := deploy(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	ev, err := inst.Once(ctx, "Stored")
	assert.Nil(t, ev)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInstance_ListenReplay(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)
	inst := deploy(t, client)
	for _, v := range []int{1, 2, 3} {
		_, err := inst.Invoke(ctx, "set", v)
		require.NoError(t, err)
	}

	sub, err := inst.Listen(ctx, "Stored(address,uint256)", events.HistoryRange(2, 3))
	require.NoError(t, err)
	decoded, err := events.Read(sub, 0)
	require.NoError(t, err)

	var values []any
	for _, d := range decoded {
		v, _ := d.Args.Get("value")
		values = append(values, v)
	}
	assert.Equal(t, []any{int64(2), int64(3)}, values)
}

func TestClient_ListenRaw(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)
	inst := deploy(t, client)
	_, err := inst.Invoke(ctx, "set", 4)
	require.NoError(t, err)

	sub := client.Listen(ctx, "Stored(address,uint256)", inst.Address(), events.ReplayRange())
	got, err := events.Read(sub, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inst.Address(), got[0].Address)

	h, err := client.LatestHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h)
}

func TestClient_Names(t *testing.T) {
	ctx := context.Background()
	_, client := setup(t)

	entry, err := client.SetName(ctx, "alias", "some data", 100)
	require.NoError(t, err)
	assert.Equal(t, "alias", entry.Name)
	assert.Equal(t, common.HexToAddress(account).Bytes(), entry.Owner)

	got, err := client.GetName(ctx, "alias")
	require.NoError(t, err)
	assert.Equal(t, "some data", got.Data)

	_, err = client.GetName(ctx, "nobody")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDial_InvalidAccount(t *testing.T) {
	srv := fakenode.Start(t)
	_, err := burrow.Dial(srv.Addr(), "not-an-address")
	assert.ErrorIs(t, err, transact.ErrInvalidCaller)
}
