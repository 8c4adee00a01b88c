package transact

import (
	"fmt"

	"github.com/84hero/burrow-client/pkg/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RevertMessage is reported for a revert without a reason.
const RevertMessage = "Execution Reverted"

// RevertError is an explicit revert. Message is the decoded reason, or RevertMessage.
type RevertError struct {
	Message string
	Return  []byte
}

func (e *RevertError) Error() string { return e.Message }

// GRPCStatus reports reverts as Aborted so status.Code distinguishes them from transport errors.
func (e *RevertError) GRPCStatus() *status.Status {
	return status.New(codes.Aborted, e.Message)
}

// ExecutionError is any other exception raised by the node while executing a transaction.
type ExecutionError struct {
	Code    wire.Code
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExecutionError) GRPCStatus() *status.Status {
	return status.New(codes.Aborted, e.Error())
}
