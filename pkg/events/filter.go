package events

import (
	"strings"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/ethereum/go-ethereum/common"
)

// maxTopics is the number of Log<N> tags a node indexes.
const maxTopics = 5

// Filter builds the node-side query for log events.
// It is also evaluated locally against received events.
type Filter struct {
	// Contracts is the list of emitting addresses (Address tag).
	// If empty, events from all contracts match.
	Contracts []common.Address

	// Topics[i] lists accepted values for topic i (Log<i> tag).
	// Logical relation: (Log0 in [A, B]) AND (Log1 in [C])
	Topics [][]common.Hash
}

// NewFilter creates a new filter
func NewFilter() *Filter {
	return &Filter{
		Contracts: make([]common.Address, 0),
		Topics:    make([][]common.Hash, 0),
	}
}

// AddContract adds contract addresses to listen to
func (f *Filter) AddContract(addrs ...common.Address) *Filter {
	f.Contracts = append(f.Contracts, addrs...)
	return f
}

// SetTopic adds accepted hashes at position pos (0 is the event signature hash).
func (f *Filter) SetTopic(pos int, hashes ...common.Hash) *Filter {
	if pos < 0 || pos >= maxTopics {
		return f
	}
	if len(f.Topics) <= pos {
		newTopics := make([][]common.Hash, pos+1)
		copy(newTopics, f.Topics)
		f.Topics = newTopics
	}
	f.Topics[pos] = append(f.Topics[pos], hashes...)
	return f
}

// Query renders the filter in the node's query language, for example
// EventType = 'LogEvent' AND Address = 'AB..' AND (Log0 = 'DD..' OR Log0 = 'EE..')
func (f *Filter) Query() string {
	preds := []string{equals("EventType", "LogEvent")}

	addrs := make([]string, len(f.Contracts))
	for i, a := range f.Contracts {
		addrs[i] = equals("Address", convert.AddressToClient(a))
	}
	if len(addrs) == 1 {
		preds = append(preds, addrs[0])
	} else if p := or(addrs...); p != "" {
		preds = append(preds, p)
	}

	for pos, hashes := range f.Topics {
		opts := make([]string, len(hashes))
		for i, h := range hashes {
			opts[i] = equals(logTag(pos), convert.UnprefixedHexString(h.Bytes()))
		}
		if p := or(opts...); p != "" {
			preds = append(preds, p)
		}
	}
	return strings.Join(preds, " AND ")
}

// Matches evaluates the filter against a received event.
func (f *Filter) Matches(ev *Event) bool {
	if len(f.Contracts) > 0 {
		found := false
		for _, addr := range f.Contracts {
			if strings.EqualFold(ev.Address, convert.AddressToClient(addr)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for pos, subTopics := range f.Topics {
		if len(subTopics) == 0 {
			continue
		}
		if pos >= len(ev.Topics) {
			return false
		}
		found := false
		for _, hash := range subTopics {
			if common.BytesToHash(ev.Topics[pos]) == hash {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// QueryFor selects log events emitted by address whose topic 0 is one of the signatures.
// address and signatures are hex, with or without 0x; empty values are left out.
func QueryFor(address string, signatures ...string) string {
	preds := []string{equals("EventType", "LogEvent")}
	if address != "" {
		preds = append(preds, equals("Address", convert.UnprefixedHexString(address)))
	}
	opts := make([]string, 0, len(signatures))
	for _, s := range signatures {
		if s != "" {
			opts = append(opts, equals("Log0", convert.UnprefixedHexString(s)))
		}
	}
	if p := or(opts...); p != "" {
		preds = append(preds, p)
	}
	return strings.Join(preds, " AND ")
}

func logTag(pos int) string {
	return "Log" + string(rune('0'+pos))
}

func equals(key, value string) string {
	return key + " = '" + value + "'"
}

func or(preds ...string) string {
	if len(preds) == 0 {
		return ""
	}
	return "(" + strings.Join(preds, " OR ") + ")"
}
