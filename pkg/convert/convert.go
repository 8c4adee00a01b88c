// Package convert translates values between the forms the ABI encoder works with
// and the forms handed to callers: unprefixed uppercase hex for addresses and
// fixed-size byte strings, raw buffers for dynamic bytes and int64 for integers
// that fit.
package convert

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Kind is the conversion class of an ABI type string.
type Kind int

const (
	KindOther Kind = iota
	KindAddress
	KindFixedBytes
	KindBytes
	KindInteger
)

var (
	addressType    = regexp.MustCompile(`address`)
	fixedBytesType = regexp.MustCompile(`bytes([0-9]+)`)
	bytesType      = regexp.MustCompile(`bytes`)
	integerType    = regexp.MustCompile(`int`)
)

// Classify matches typ against the conversion table. The first match wins, so
// "bytes32" is fixed-size and "uint256[]" is an integer.
func Classify(typ string) Kind {
	switch {
	case addressType.MatchString(typ):
		return KindAddress
	case fixedBytesType.MatchString(typ):
		return KindFixedBytes
	case bytesType.MatchString(typ):
		return KindBytes
	case integerType.MatchString(typ):
		return KindInteger
	}
	return KindOther
}

// Transform converts a single leaf value.
type Transform func(v any) (any, error)

// MapNested applies f to every leaf of an arbitrarily nested slice or array and
// returns the same shape as []any. A non-slice value is a leaf. Byte slices and
// byte arrays are leaves too, since they stand for bytes and bytesN values.
func MapNested(value any, f Transform) (any, error) {
	return mapNested(value, -1, f)
}

// mapNested descends exactly depth levels when depth >= 0, which lets typed
// callers walk uint8[] arrays that would otherwise look like byte buffers.
func mapNested(value any, depth int, f Transform) (any, error) {
	if depth == 0 || !isNested(value, depth < 0) {
		return f(value)
	}
	rv := reflect.ValueOf(value)
	out := make([]any, rv.Len())
	for i := range out {
		v, err := mapNested(rv.Index(i).Interface(), depth-1, f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func isNested(value any, bytesAreLeaves bool) bool {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return false
	}
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return false
	}
	if bytesAreLeaves && rv.Type().Elem().Kind() == reflect.Uint8 {
		return false
	}
	return true
}

// UnprefixedHexString renders bytes, or normalises a hex string, as uppercase hex with no 0x.
func UnprefixedHexString(v any) string {
	switch b := v.(type) {
	case []byte:
		return strings.ToUpper(hex.EncodeToString(b))
	case string:
		return strings.ToUpper(trimHexPrefix(b))
	}
	if rv := reflect.ValueOf(v); rv.IsValid() && rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		return strings.ToUpper(hex.EncodeToString(arrayBytes(rv)))
	}
	return strings.ToUpper(fmt.Sprint(v))
}

// PrefixedHexString renders bytes, or normalises a hex string, as lowercase hex with a 0x prefix.
// The empty string stays empty.
func PrefixedHexString(v any) string {
	switch b := v.(type) {
	case []byte:
		return "0x" + hex.EncodeToString(b)
	case string:
		if b == "" {
			return ""
		}
		return "0x" + strings.ToLower(trimHexPrefix(b))
	}
	return "0x" + strings.ToLower(UnprefixedHexString(v))
}

// ToBytes parses a hex string (with or without 0x) or copies a byte slice.
func ToBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		return append([]byte{}, b...), nil
	case string:
		s := trimHexPrefix(b)
		if len(s)%2 == 1 {
			s = "0" + s
		}
		out, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex string %q: %w", b, err)
		}
		return out, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		return arrayBytes(rv), nil
	}
	return nil, fmt.Errorf("cannot convert %T to bytes", v)
}

// PadBytes right-pads b with zeros to n bytes. It fails when b is longer than n.
func PadBytes(b []byte, n int) ([]byte, error) {
	if len(b) > n {
		return nil, fmt.Errorf("cannot pad buffer of length %d to %d because it is longer than %d", len(b), n, n)
	}
	padded := make([]byte, n)
	copy(padded, b)
	return padded, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func arrayBytes(rv reflect.Value) []byte {
	out := make([]byte, rv.Len())
	for i := range out {
		out[i] = byte(rv.Index(i).Uint())
	}
	return out
}
