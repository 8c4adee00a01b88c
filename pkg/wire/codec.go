package wire

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName matches the content subtype a Burrow node expects.
const codecName = "proto"

var _ encoding.Codec = Codec{}

// Codec implements grpc/encoding.Codec for wire Messages. It is forced per
// connection (grpc.ForceCodec) rather than registered, so it never replaces
// the process-wide protobuf codec.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("wire: cannot marshal %T", v)
	}
	return m.MarshalWire(), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("wire: cannot unmarshal into %T", v)
	}
	if err := m.UnmarshalWire(data); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return codecName }
