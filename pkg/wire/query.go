package wire

// BoundType selects how a Bound's Index is interpreted.
type BoundType uint32

const (
	BoundAbsolute BoundType = iota
	BoundRelative
	BoundFirst
	BoundLatest
	BoundStream
)

var boundNames = map[BoundType]string{
	BoundAbsolute: "absolute",
	BoundRelative: "relative",
	BoundFirst:    "first",
	BoundLatest:   "latest",
	BoundStream:   "stream",
}

func (t BoundType) String() string {
	if s, ok := boundNames[t]; ok {
		return s
	}
	return "unknown"
}

type Bound struct {
	Type  BoundType
	Index uint64
}

func (m *Bound) MarshalWire() []byte {
	var e encoder
	e.uint64(1, uint64(m.Type))
	e.uint64(2, m.Index)
	return e.b
}

func (m *Bound) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Type = BoundType(f.uint32())
		case 2:
			m.Index = f.uint64()
		default:
			f.skip()
		}
	})
}

type BlockRange struct {
	Start *Bound
	End   *Bound
}

func (m *BlockRange) MarshalWire() []byte {
	var e encoder
	if m.Start != nil {
		e.message(1, m.Start)
	}
	if m.End != nil {
		e.message(2, m.End)
	}
	return e.b
}

func (m *BlockRange) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Start = new(Bound)
			f.message(m.Start)
		case 2:
			m.End = new(Bound)
			f.message(m.End)
		default:
			f.skip()
		}
	})
}

// BlocksRequest opens an event stream over a block range filtered by a query.
type BlocksRequest struct {
	BlockRange *BlockRange
	Query      string
}

func (m *BlocksRequest) MarshalWire() []byte {
	var e encoder
	if m.BlockRange != nil {
		e.message(1, m.BlockRange)
	}
	e.string(2, m.Query)
	return e.b
}

func (m *BlocksRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.BlockRange = new(BlockRange)
			f.message(m.BlockRange)
		case 2:
			m.Query = f.string()
		default:
			f.skip()
		}
	})
}

// EventsResponse is one block's batch of events on the stream.
type EventsResponse struct {
	Height uint64
	Events []*Event
}

func (m *EventsResponse) MarshalWire() []byte {
	var e encoder
	e.uint64(1, m.Height)
	for _, ev := range m.Events {
		e.message(2, ev)
	}
	return e.b
}

func (m *EventsResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Height = f.uint64()
		case 2:
			ev := new(Event)
			f.message(ev)
			m.Events = append(m.Events, ev)
		default:
			f.skip()
		}
	})
}

type GetMetadataParam struct {
	Address      []byte
	MetadataHash []byte
}

func (m *GetMetadataParam) MarshalWire() []byte {
	var e encoder
	e.bytes(1, m.Address)
	e.bytes(2, m.MetadataHash)
	return e.b
}

func (m *GetMetadataParam) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Address = f.bytes()
		case 2:
			m.MetadataHash = f.bytes()
		default:
			f.skip()
		}
	})
}

type MetadataResult struct {
	Metadata string
}

func (m *MetadataResult) MarshalWire() []byte {
	var e encoder
	e.string(1, m.Metadata)
	return e.b
}

func (m *MetadataResult) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		if f.num == 1 {
			m.Metadata = f.string()
			return
		}
		f.skip()
	})
}

type GetNameParam struct {
	Name string
}

func (m *GetNameParam) MarshalWire() []byte {
	var e encoder
	e.string(1, m.Name)
	return e.b
}

func (m *GetNameParam) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		if f.num == 1 {
			m.Name = f.string()
			return
		}
		f.skip()
	})
}

// StatusParam carries optional duration strings; the node fails the call when it is staler than them.
type StatusParam struct {
	BlockTimeWithin     string
	BlockSeenTimeWithin string
}

func (m *StatusParam) MarshalWire() []byte {
	var e encoder
	e.string(1, m.BlockTimeWithin)
	e.string(2, m.BlockSeenTimeWithin)
	return e.b
}

func (m *StatusParam) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.BlockTimeWithin = f.string()
		case 2:
			m.BlockSeenTimeWithin = f.string()
		default:
			f.skip()
		}
	})
}

type SyncInfo struct {
	LatestBlockHeight uint64
	LatestBlockHash   []byte
	LatestAppHash     []byte
}

func (m *SyncInfo) MarshalWire() []byte {
	var e encoder
	e.uint64(1, m.LatestBlockHeight)
	e.bytes(2, m.LatestBlockHash)
	e.bytes(3, m.LatestAppHash)
	return e.b
}

func (m *SyncInfo) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.LatestBlockHeight = f.uint64()
		case 2:
			m.LatestBlockHash = f.bytes()
		case 3:
			m.LatestAppHash = f.bytes()
		default:
			f.skip()
		}
	})
}

// ResultStatus is the node's status report. Node and validator info are not decoded.
type ResultStatus struct {
	ChainID       string
	RunID         string
	BurrowVersion string
	GenesisHash   []byte
	SyncInfo      *SyncInfo
	CatchingUp    bool
}

func (m *ResultStatus) MarshalWire() []byte {
	var e encoder
	e.string(1, m.ChainID)
	e.string(2, m.RunID)
	e.string(3, m.BurrowVersion)
	e.bytes(4, m.GenesisHash)
	if m.SyncInfo != nil {
		e.message(6, m.SyncInfo)
	}
	e.bool(8, m.CatchingUp)
	return e.b
}

func (m *ResultStatus) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.ChainID = f.string()
		case 2:
			m.RunID = f.string()
		case 3:
			m.BurrowVersion = f.string()
		case 4:
			m.GenesisHash = f.bytes()
		case 6:
			m.SyncInfo = new(SyncInfo)
			f.message(m.SyncInfo)
		case 8:
			m.CatchingUp = f.bool()
		default:
			f.skip()
		}
	})
}
