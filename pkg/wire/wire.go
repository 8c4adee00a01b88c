// Package wire holds the Burrow protobuf messages the client exchanges with a node.
// Messages are encoded by hand with protowire so no generated stubs are needed.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every type that can travel over the node's gRPC services.
type Message interface {
	MarshalWire() []byte
	UnmarshalWire(b []byte) error
}

type encoder struct {
	b []byte
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) uint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) bool(num protowire.Number, v bool) {
	if !v {
		return
	}
	e.uint64(num, 1)
}

// message writes m even when it encodes to zero bytes; presence is meaningful for sub-messages.
func (e *encoder) message(num protowire.Number, m Message) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, m.MarshalWire())
}

// field is one decoded tag plus the bytes that follow it.
type field struct {
	num protowire.Number
	typ protowire.Type
	b   []byte
	n   int
	err error
}

func (f *field) consumed(n int) {
	if n < 0 {
		f.err = protowire.ParseError(n)
		return
	}
	f.n = n
}

func (f *field) expect(typ protowire.Type) bool {
	if f.typ != typ {
		f.err = fmt.Errorf("wire: field %d has wire type %d, want %d", f.num, f.typ, typ)
		return false
	}
	return true
}

func (f *field) bytes() []byte {
	if !f.expect(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(f.b)
	f.consumed(n)
	if len(v) == 0 {
		return nil
	}
	return append([]byte(nil), v...)
}

func (f *field) string() string {
	return string(f.bytes())
}

func (f *field) uint64() uint64 {
	if !f.expect(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(f.b)
	f.consumed(n)
	return v
}

func (f *field) uint32() uint32 {
	return uint32(f.uint64())
}

func (f *field) bool() bool {
	return protowire.DecodeBool(f.uint64())
}

func (f *field) message(m Message) {
	if !f.expect(protowire.BytesType) {
		return
	}
	v, n := protowire.ConsumeBytes(f.b)
	f.consumed(n)
	if f.err == nil {
		f.err = m.UnmarshalWire(v)
	}
}

func (f *field) skip() {
	f.consumed(protowire.ConsumeFieldValue(f.num, f.typ, f.b))
}

// walk calls fn for every field in b. fn must consume the field through one of the field readers.
func walk(b []byte, fn func(f *field)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := &field{num: num, typ: typ, b: b}
		fn(f)
		if f.err != nil {
			return f.err
		}
		if f.n <= 0 {
			return fmt.Errorf("wire: field %d was not consumed", num)
		}
		b = b[f.n:]
	}
	return nil
}
