package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var zeroAddress = "0x" + strings.Repeat("0", 2*common.AddressLength)

// ToABI converts caller-supplied arguments into the exact Go types the ABI
// packer expects for params. name identifies the function or event in errors.
func ToABI(name string, params abi.Arguments, args []any) ([]any, error) {
	if err := checkCount(name, params, args); err != nil {
		return nil, err
	}
	out := make([]any, len(args))
	for i, p := range params {
		v, err := toABI(p.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s %s): %w", i, p.Type.String(), p.Name, err)
		}
		out[i] = v.Interface()
	}
	return out, nil
}

// ToClient converts values returned by the ABI unpacker into caller form.
func ToClient(name string, params abi.Arguments, values []any) (*Result, error) {
	if err := checkCount(name, params, values); err != nil {
		return nil, err
	}
	out := make([]any, len(values))
	names := make([]string, len(values))
	for i, p := range params {
		v, err := toClient(p.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("value %d (%s %s): %w", i, p.Type.String(), p.Name, err)
		}
		out[i] = v
		names[i] = p.Name
	}
	return NewResult(out, names), nil
}

// AddressToABI returns the 0x-prefixed lowercase form of an address given as
// hex string, 20-byte slice or common.Address. Empty and "0x0" mean the zero address.
func AddressToABI(v any) (string, error) {
	switch a := v.(type) {
	case nil:
		return zeroAddress, nil
	case common.Address:
		return PrefixedHexString(a.Bytes()), nil
	case []byte:
		if len(a) != common.AddressLength {
			return "", fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(a))
		}
		return PrefixedHexString(a), nil
	case string:
		if a == "" || a == "0x0" {
			return zeroAddress, nil
		}
		if !common.IsHexAddress(a) {
			return "", fmt.Errorf("invalid address %q", a)
		}
		return PrefixedHexString(a), nil
	}
	return "", fmt.Errorf("cannot convert %T to address", v)
}

// AddressToClient returns the 40 character uppercase hex form of an address.
func AddressToClient(a common.Address) string {
	return UnprefixedHexString(a.Bytes())
}

func checkCount(name string, params abi.Arguments, args []any) error {
	if len(params) == len(args) {
		return nil
	}
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type.String()
	}
	return &ArgumentCountError{Name: name, Types: types, Args: args}
}

// --- client -> ABI ---

func toABI(t abi.Type, v any) (reflect.Value, error) {
	target := t.GetType()
	if rv := reflect.ValueOf(v); rv.IsValid() && rv.Type() == target {
		return rv, nil
	}

	switch t.T {
	case abi.SliceTy, abi.ArrayTy:
		return sequenceToABI(t, target, v)
	case abi.TupleTy:
		return tupleToABI(t, target, v)
	}

	out := reflect.New(target).Elem()
	switch Classify(t.String()) {
	case KindAddress:
		s, err := AddressToABI(v)
		if err != nil {
			return out, err
		}
		out.Set(reflect.ValueOf(common.HexToAddress(s)))
	case KindFixedBytes:
		b, err := ToBytes(v)
		if err != nil {
			return out, err
		}
		if b, err = PadBytes(b, t.Size); err != nil {
			return out, err
		}
		reflect.Copy(out, reflect.ValueOf(b))
	case KindBytes:
		b, err := ToBytes(v)
		if err != nil {
			return out, err
		}
		out.SetBytes(b)
	case KindInteger:
		n, err := toBigInt(v)
		if err != nil {
			return out, err
		}
		if err := checkRange(t, n); err != nil {
			return out, err
		}
		switch target.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out.SetInt(n.Int64())
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out.SetUint(n.Uint64())
		default:
			out.Set(reflect.ValueOf(n))
		}
	default:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || !rv.Type().ConvertibleTo(target) || rv.Kind() != target.Kind() {
			return out, fmt.Errorf("cannot use %T as %s", v, t.String())
		}
		out.Set(rv.Convert(target))
	}
	return out, nil
}

func sequenceToABI(t abi.Type, target reflect.Type, v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, t.String())
	}

	var out reflect.Value
	if t.T == abi.ArrayTy {
		if rv.Len() != t.Size {
			return reflect.Value{}, fmt.Errorf("%s needs %d elements, got %d", t.String(), t.Size, rv.Len())
		}
		out = reflect.New(target).Elem()
	} else {
		out = reflect.MakeSlice(target, rv.Len(), rv.Len())
	}

	for i := 0; i < rv.Len(); i++ {
		e, err := toABI(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		out.Index(i).Set(e)
	}
	return out, nil
}

func tupleToABI(t abi.Type, target reflect.Type, v any) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	field := func(i int) (any, error) {
		name := t.TupleRawNames[i]
		switch tv := v.(type) {
		case *Result:
			if val, ok := tv.Get(name); ok {
				return val, nil
			}
			return tv.At(i), nil
		case map[string]any:
			val, ok := tv[name]
			if !ok {
				return nil, fmt.Errorf("missing tuple field %q", name)
			}
			return val, nil
		}
		return nil, fmt.Errorf("cannot use %T as %s", v, t.String())
	}

	if tv, ok := v.(*Result); ok && tv.Len() != len(t.TupleElems) {
		return out, tupleCountError(t, tv.Values())
	}
	if seq := reflect.ValueOf(v); seq.IsValid() && (seq.Kind() == reflect.Slice || seq.Kind() == reflect.Array) {
		if seq.Len() != len(t.TupleElems) {
			return out, tupleCountError(t, sliceOf(seq))
		}
		field = func(i int) (any, error) { return seq.Index(i).Interface(), nil }
	}

	for i, elem := range t.TupleElems {
		raw, err := field(i)
		if err != nil {
			return out, err
		}
		fv, err := toABI(*elem, raw)
		if err != nil {
			return out, fmt.Errorf("%s: %w", t.TupleRawNames[i], err)
		}
		out.Field(i).Set(fv)
	}
	return out, nil
}

func tupleCountError(t abi.Type, values []any) error {
	types := make([]string, len(t.TupleElems))
	for i, e := range t.TupleElems {
		types[i] = e.String()
	}
	return &ArgumentCountError{Name: t.String(), Types: types, Args: values}
}

func sliceOf(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(n), nil
	case big.Int:
		return new(big.Int).Set(&n), nil
	case string:
		s := strings.TrimSpace(n)
		base := 10
		if t := trimHexPrefix(s); t != s {
			s, base = t, 16
		}
		out, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return out, nil
	case json.Number:
		return toBigInt(n.String())
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("integer expected, got %v", n)
		}
		out, _ := big.NewFloat(n).Int(nil)
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func checkRange(t abi.Type, n *big.Int) error {
	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return fmt.Errorf("value %s out of range for %s", n, t.String())
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	minimum := new(big.Int).Neg(limit)
	if n.Cmp(minimum) < 0 || n.Cmp(limit) >= 0 {
		return fmt.Errorf("value %s out of range for %s", n, t.String())
	}
	return nil
}

// --- ABI -> client ---

func toClient(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.TupleTy:
		return tupleToClient(t, v)
	case abi.SliceTy, abi.ArrayTy:
		depth, leaf := 0, t
		for leaf.T == abi.SliceTy || leaf.T == abi.ArrayTy {
			leaf = *leaf.Elem
			depth++
		}
		if leaf.T != abi.TupleTy {
			return mapNested(v, depth, leafToClient(leaf))
		}
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("expected %s, got %T", t.String(), v)
		}
		out := make([]any, rv.Len())
		for i := range out {
			e, err := toClient(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	}
	return leafToClient(t)(v)
}

func tupleToClient(t abi.Type, v any) (*Result, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Struct || rv.NumField() != len(t.TupleElems) {
		return nil, fmt.Errorf("expected %s, got %T", t.String(), v)
	}
	values := make([]any, len(t.TupleElems))
	for i, elem := range t.TupleElems {
		e, err := toClient(*elem, rv.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		values[i] = e
	}
	return NewResult(values, t.TupleRawNames), nil
}

func leafToClient(t abi.Type) Transform {
	switch Classify(t.String()) {
	case KindAddress, KindFixedBytes:
		return func(v any) (any, error) {
			if a, ok := v.(common.Address); ok {
				return AddressToClient(a), nil
			}
			b, err := ToBytes(v)
			if err != nil {
				return nil, err
			}
			return UnprefixedHexString(b), nil
		}
	case KindBytes:
		return func(v any) (any, error) { return ToBytes(v) }
	case KindInteger:
		return func(v any) (any, error) { return narrowInteger(v), nil }
	}
	return func(v any) (any, error) { return v, nil }
}

// narrowInteger returns an int64 when the value fits and the big integer unchanged otherwise.
func narrowInteger(v any) any {
	switch n := v.(type) {
	case *big.Int:
		if n != nil && n.IsInt64() {
			return n.Int64()
		}
		return n
	case uint64:
		if n > math.MaxInt64 {
			return new(big.Int).SetUint64(n)
		}
		return int64(n)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint())
	}
	return v
}
