package wire

// TxHeader locates an executed transaction in the chain.
type TxHeader struct {
	TxType uint32
	TxHash []byte
	Height uint64
	Index  uint64
}

func (m *TxHeader) MarshalWire() []byte {
	var e encoder
	e.uint64(1, uint64(m.TxType))
	e.bytes(2, m.TxHash)
	e.uint64(3, m.Height)
	e.uint64(4, m.Index)
	return e.b
}

func (m *TxHeader) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.TxType = f.uint32()
		case 2:
			m.TxHash = f.bytes()
		case 3:
			m.Height = f.uint64()
		case 4:
			m.Index = f.uint64()
		default:
			f.skip()
		}
	})
}

// Exception is the structured failure a node attaches to a transaction or event.
type Exception struct {
	Code      Code
	Exception string
}

func (m *Exception) MarshalWire() []byte {
	var e encoder
	e.uint64(1, uint64(m.Code))
	e.string(2, m.Exception)
	return e.b
}

func (m *Exception) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Code = Code(f.uint32())
		case 2:
			m.Exception = f.string()
		default:
			f.skip()
		}
	})
}

// Error renders the exception the way the node does.
func (m *Exception) Error() string {
	if m.Exception == "" {
		return m.Code.String()
	}
	return m.Code.String() + ": " + m.Exception
}

// Result carries the return bytes of a call.
type Result struct {
	Return    []byte
	GasUsed   uint64
	NameEntry *NameEntry
}

func (m *Result) MarshalWire() []byte {
	var e encoder
	e.bytes(1, m.Return)
	e.uint64(2, m.GasUsed)
	if m.NameEntry != nil {
		e.message(3, m.NameEntry)
	}
	return e.b
}

func (m *Result) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Return = f.bytes()
		case 2:
			m.GasUsed = f.uint64()
		case 3:
			m.NameEntry = new(NameEntry)
			f.message(m.NameEntry)
		default:
			f.skip()
		}
	})
}

// Receipt records what a transaction created.
type Receipt struct {
	TxType          uint32
	TxHash          []byte
	CreatesContract bool
	ContractAddress []byte
}

func (m *Receipt) MarshalWire() []byte {
	var e encoder
	e.uint64(1, uint64(m.TxType))
	e.bytes(2, m.TxHash)
	e.bool(3, m.CreatesContract)
	e.bytes(4, m.ContractAddress)
	return e.b
}

func (m *Receipt) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.TxType = f.uint32()
		case 2:
			m.TxHash = f.bytes()
		case 3:
			m.CreatesContract = f.bool()
		case 4:
			m.ContractAddress = f.bytes()
		default:
			f.skip()
		}
	})
}

type PublicKey struct {
	CurveType uint32
	PublicKey []byte
}

func (m *PublicKey) MarshalWire() []byte {
	var e encoder
	e.uint64(1, uint64(m.CurveType))
	e.bytes(2, m.PublicKey)
	return e.b
}

func (m *PublicKey) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.CurveType = f.uint32()
		case 2:
			m.PublicKey = f.bytes()
		default:
			f.skip()
		}
	})
}

// Signatory is one signer of an envelope. Signature bytes are kept opaque.
type Signatory struct {
	Address   []byte
	PublicKey *PublicKey
	Signature []byte
}

func (m *Signatory) MarshalWire() []byte {
	var e encoder
	e.bytes(1, m.Address)
	if m.PublicKey != nil {
		e.message(2, m.PublicKey)
	}
	e.bytes(3, m.Signature)
	return e.b
}

func (m *Signatory) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Address = f.bytes()
		case 2:
			m.PublicKey = new(PublicKey)
			f.message(m.PublicKey)
		case 3:
			m.Signature = f.bytes()
		default:
			f.skip()
		}
	})
}

// Envelope wraps the signed transaction.
type Envelope struct {
	Signatories []*Signatory
	Tx          []byte
	Encoding    uint32
}

func (m *Envelope) MarshalWire() []byte {
	var e encoder
	for _, s := range m.Signatories {
		e.message(1, s)
	}
	e.bytes(2, m.Tx)
	e.uint64(3, uint64(m.Encoding))
	return e.b
}

func (m *Envelope) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			s := new(Signatory)
			f.message(s)
			m.Signatories = append(m.Signatories, s)
		case 2:
			m.Tx = f.bytes()
		case 3:
			m.Encoding = f.uint32()
		default:
			f.skip()
		}
	})
}

// TxExecution is the node's record of an executed (or simulated) transaction.
type TxExecution struct {
	Header       *TxHeader
	Envelope     *Envelope
	Events       []*Event
	Result       *Result
	Receipt      *Receipt
	Exception    *Exception
	TxExecutions []*TxExecution
}

func (m *TxExecution) MarshalWire() []byte {
	var e encoder
	if m.Header != nil {
		e.message(1, m.Header)
	}
	if m.Envelope != nil {
		e.message(6, m.Envelope)
	}
	for _, ev := range m.Events {
		e.message(7, ev)
	}
	if m.Result != nil {
		e.message(8, m.Result)
	}
	if m.Receipt != nil {
		e.message(9, m.Receipt)
	}
	if m.Exception != nil {
		e.message(10, m.Exception)
	}
	for _, txe := range m.TxExecutions {
		e.message(11, txe)
	}
	return e.b
}

func (m *TxExecution) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Header = new(TxHeader)
			f.message(m.Header)
		case 6:
			m.Envelope = new(Envelope)
			f.message(m.Envelope)
		case 7:
			ev := new(Event)
			f.message(ev)
			m.Events = append(m.Events, ev)
		case 8:
			m.Result = new(Result)
			f.message(m.Result)
		case 9:
			m.Receipt = new(Receipt)
			f.message(m.Receipt)
		case 10:
			m.Exception = new(Exception)
			f.message(m.Exception)
		case 11:
			txe := new(TxExecution)
			f.message(txe)
			m.TxExecutions = append(m.TxExecutions, txe)
		default:
			f.skip()
		}
	})
}

// EventHeader places an event within its transaction and block.
type EventHeader struct {
	TxType    uint32
	TxHash    []byte
	EventType uint32
	EventID   string
	Height    uint64
	Index     uint64
	Exception *Exception
}

func (m *EventHeader) MarshalWire() []byte {
	var e encoder
	e.uint64(1, uint64(m.TxType))
	e.bytes(2, m.TxHash)
	e.uint64(3, uint64(m.EventType))
	e.string(4, m.EventID)
	e.uint64(5, m.Height)
	e.uint64(6, m.Index)
	if m.Exception != nil {
		e.message(7, m.Exception)
	}
	return e.b
}

func (m *EventHeader) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.TxType = f.uint32()
		case 2:
			m.TxHash = f.bytes()
		case 3:
			m.EventType = f.uint32()
		case 4:
			m.EventID = f.string()
		case 5:
			m.Height = f.uint64()
		case 6:
			m.Index = f.uint64()
		case 7:
			m.Exception = new(Exception)
			f.message(m.Exception)
		default:
			f.skip()
		}
	})
}

// LogEvent is an EVM log: emitting address, data and topics.
type LogEvent struct {
	Address []byte
	Data    []byte
	Topics  [][]byte
}

func (m *LogEvent) MarshalWire() []byte {
	var e encoder
	e.bytes(1, m.Address)
	e.bytes(2, m.Data)
	for _, t := range m.Topics {
		e.message(3, rawBytes(t))
	}
	return e.b
}

func (m *LogEvent) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Address = f.bytes()
		case 2:
			m.Data = f.bytes()
		case 3:
			t := f.bytes()
			if t == nil {
				t = []byte{}
			}
			m.Topics = append(m.Topics, t)
		default:
			f.skip()
		}
	})
}

// Event is one execution event. Only log events are decoded; other kinds are skipped.
type Event struct {
	Header *EventHeader
	Log    *LogEvent
}

func (m *Event) MarshalWire() []byte {
	var e encoder
	if m.Header != nil {
		e.message(1, m.Header)
	}
	if m.Log != nil {
		e.message(5, m.Log)
	}
	return e.b
}

func (m *Event) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Header = new(EventHeader)
			f.message(m.Header)
		case 5:
			m.Log = new(LogEvent)
			f.message(m.Log)
		default:
			f.skip()
		}
	})
}

// rawBytes lets repeated bytes fields (which keep empty entries) reuse the message writer.
type rawBytes []byte

func (r rawBytes) MarshalWire() []byte { return r }

func (r rawBytes) UnmarshalWire([]byte) error { return nil }
