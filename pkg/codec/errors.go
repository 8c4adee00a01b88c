package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	ActionEncodeDeploy         = "encode deploy"
	ActionEncodeFunctionData   = "encode function data"
	ActionDecodeFunctionData   = "decode function data"
	ActionDecodeFunctionResult = "decode function result"
	ActionDecodeEventLog       = "decode event log"
)

var (
	ErrUnknownFunction = errors.New("function not found in ABI")
	ErrUnknownEvent    = errors.New("event not found in ABI")
	ErrNoTopics        = errors.New("log has no topics")
)

// CodecError is returned by every encode and decode operation of a Codec.
type CodecError struct {
	Action   string
	Fragment string
	Args     []any
	Inputs   []string
	Err      error
}

func (e *CodecError) Error() string {
	args, err := convert.NewResult(e.Args, nil).MarshalJSON()
	if err != nil {
		args = []byte(fmt.Sprintf("%v", e.Args))
	}
	inputs, _ := json.Marshal(e.Inputs)
	return fmt.Sprintf("%s could not be performed for %s with args %s (inputs: %s): %v",
		e.Action, e.Fragment, args, inputs, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// IsCodecError reports whether err carries a *CodecError and returns it.
func IsCodecError(err error) (*CodecError, bool) {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func formatCodecError(action, fragment string, args []any, inputs abi.Arguments, err error) *CodecError {
	types := make([]string, len(inputs))
	for i, in := range inputs {
		types[i] = in.Type.String()
	}
	if args == nil {
		args = []any{}
	}
	return &CodecError{Action: action, Fragment: fragment, Args: args, Inputs: types, Err: err}
}
