package codec

import (
	"fmt"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/ethereum/go-ethereum/common"
)

// DecodedLog contains parsed human-readable data from a log.
type DecodedLog struct {
	Name      string          `json:"name"`      // Event name (e.g., Transfer)
	Signature string          `json:"signature"` // Canonical signature
	Args      *convert.Result `json:"args"`
}

// DecodeLog finds the event by topic 0 and decodes it.
func (c *Codec) DecodeLog(data []byte, topics []common.Hash) (*DecodedLog, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	event, err := c.parsed.EventByID(topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: signature %s", ErrUnknownEvent, topics[0].Hex())
	}

	args, err := c.DecodeEventLog(event.Sig, data, topics)
	if err != nil {
		return nil, err
	}
	return &DecodedLog{Name: event.RawName, Signature: event.Sig, Args: args}, nil
}
