package wire

import "fmt"

// Code is the numeric class of an execution exception reported by the node.
type Code uint32

const (
	CodeNone Code = iota
	CodeGeneric
	CodeUnknownAddress
	CodeInsufficientBalance
	CodeInvalidJumpDest
	CodeInsufficientGas
	CodeMemoryOutOfBounds
	CodeCodeOutOfBounds
	CodeInputOutOfBounds
	CodeReturnDataOutOfBounds
	CodeCallStackOverflow
	CodeCallStackUnderflow
	CodeDataStackOverflow
	CodeDataStackUnderflow
	CodeInvalidContract
	CodeNativeContractCodeCopy
	CodeExecutionAborted
	CodeExecutionReverted
	CodePermissionDenied
	CodeNativeFunction
	CodeEventPublish
	CodeInvalidString
	CodeEventMapping
	CodeInvalidAddress
	CodeDuplicateAddress
	CodeInsufficientFunds
	CodeOverpayment
	CodeZeroPayment
	CodeInvalidSequence
	CodeReservedAddress
	CodeIllegalWrite
	CodeIntegerOverflow
	CodeInvalidProposal
	CodeExpiredProposal
	CodeProposalExecuted
	CodeNoInputPermission
	CodeInvalidBlockNumber
	CodeBlockNumberOutOfRange
	CodeAlreadyVoted
	CodeUnresolvedSymbols
	CodeInvalidContractCode
	CodeNonExistentAccount
)

var codeMessages = [...]string{
	CodeNone:                   "no error",
	CodeGeneric:                "generic error",
	CodeUnknownAddress:         "unknown address",
	CodeInsufficientBalance:    "insufficient balance",
	CodeInvalidJumpDest:        "invalid jump dest",
	CodeInsufficientGas:        "insufficient gas",
	CodeMemoryOutOfBounds:      "memory out of bounds",
	CodeCodeOutOfBounds:        "code out of bounds",
	CodeInputOutOfBounds:       "input out of bounds",
	CodeReturnDataOutOfBounds:  "return data out of bounds",
	CodeCallStackOverflow:      "call stack overflow",
	CodeCallStackUnderflow:     "call stack underflow",
	CodeDataStackOverflow:      "data stack overflow",
	CodeDataStackUnderflow:     "data stack underflow",
	CodeInvalidContract:        "invalid contract",
	CodeNativeContractCodeCopy: "tried to copy native contract code",
	CodeExecutionAborted:       "execution aborted",
	CodeExecutionReverted:      "execution reverted",
	CodePermissionDenied:       "permission denied",
	CodeNativeFunction:         "native function error",
	CodeEventPublish:           "event publish error",
	CodeInvalidString:          "invalid string",
	CodeEventMapping:           "event mapping error",
	CodeInvalidAddress:         "invalid address",
	CodeDuplicateAddress:       "duplicate address",
	CodeInsufficientFunds:      "insufficient funds",
	CodeOverpayment:            "overpayment",
	CodeZeroPayment:            "zero payment error",
	CodeInvalidSequence:        "invalid sequence number",
	CodeReservedAddress:        "address is reserved for SNative or internal use",
	CodeIllegalWrite:           "callee attempted to illegally modify state",
	CodeIntegerOverflow:        "integer overflow",
	CodeInvalidProposal:        "proposal is invalid",
	CodeExpiredProposal:        "proposal is expired since sequence number does not match",
	CodeProposalExecuted:       "proposal has already been executed",
	CodeNoInputPermission:      "account has no input permission",
	CodeInvalidBlockNumber:     "invalid block number",
	CodeBlockNumberOutOfRange:  "block number out of range",
	CodeAlreadyVoted:           "vote already registered for this address",
	CodeUnresolvedSymbols:      "code has unresolved symbols",
	CodeInvalidContractCode:    "contract being created with unexpected code",
	CodeNonExistentAccount:     "account does not exist",
}

// Message returns the node's description of the code.
func (c Code) Message() string {
	if int(c) < len(codeMessages) {
		return codeMessages[c]
	}
	return "unknown error"
}

func (c Code) String() string {
	return fmt.Sprintf("error %d: %s", uint32(c), c.Message())
}
