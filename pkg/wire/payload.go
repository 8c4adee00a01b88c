package wire

// TxInput identifies the account paying for a transaction.
type TxInput struct {
	Address  []byte
	Amount   uint64
	Sequence uint64
}

func (m *TxInput) MarshalWire() []byte {
	var e encoder
	e.bytes(1, m.Address)
	e.uint64(2, m.Amount)
	e.uint64(3, m.Sequence)
	return e.b
}

func (m *TxInput) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Address = f.bytes()
		case 2:
			m.Amount = f.uint64()
		case 3:
			m.Sequence = f.uint64()
		default:
			f.skip()
		}
	})
}

// ContractMeta pairs a code hash with the metadata JSON the node stores for it.
type ContractMeta struct {
	CodeHash []byte
	Meta     string
}

func (m *ContractMeta) MarshalWire() []byte {
	var e encoder
	e.bytes(1, m.CodeHash)
	e.string(2, m.Meta)
	return e.b
}

func (m *ContractMeta) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.CodeHash = f.bytes()
		case 2:
			m.Meta = f.string()
		default:
			f.skip()
		}
	})
}

// CallTx calls a contract, or creates one when Address is empty.
type CallTx struct {
	Input        *TxInput
	Address      []byte
	GasLimit     uint64
	Fee          uint64
	Data         []byte
	WASM         []byte
	ContractMeta []*ContractMeta
	GasPrice     uint64
}

func (m *CallTx) MarshalWire() []byte {
	var e encoder
	if m.Input != nil {
		e.message(1, m.Input)
	}
	e.bytes(2, m.Address)
	e.uint64(3, m.GasLimit)
	e.uint64(4, m.Fee)
	e.bytes(5, m.Data)
	e.bytes(6, m.WASM)
	for _, cm := range m.ContractMeta {
		e.message(7, cm)
	}
	e.uint64(8, m.GasPrice)
	return e.b
}

func (m *CallTx) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Input = new(TxInput)
			f.message(m.Input)
		case 2:
			m.Address = f.bytes()
		case 3:
			m.GasLimit = f.uint64()
		case 4:
			m.Fee = f.uint64()
		case 5:
			m.Data = f.bytes()
		case 6:
			m.WASM = f.bytes()
		case 7:
			cm := new(ContractMeta)
			f.message(cm)
			m.ContractMeta = append(m.ContractMeta, cm)
		case 8:
			m.GasPrice = f.uint64()
		default:
			f.skip()
		}
	})
}

// NameTx registers or updates an entry in the name registry.
type NameTx struct {
	Input *TxInput
	Name  string
	Data  string
	Fee   uint64
}

func (m *NameTx) MarshalWire() []byte {
	var e encoder
	if m.Input != nil {
		e.message(1, m.Input)
	}
	e.string(2, m.Name)
	e.string(3, m.Data)
	e.uint64(4, m.Fee)
	return e.b
}

func (m *NameTx) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Input = new(TxInput)
			f.message(m.Input)
		case 2:
			m.Name = f.string()
		case 3:
			m.Data = f.string()
		case 4:
			m.Fee = f.uint64()
		default:
			f.skip()
		}
	})
}

// NameEntry is a name registry record.
type NameEntry struct {
	Name    string
	Owner   []byte
	Data    string
	Expires uint64
}

func (m *NameEntry) MarshalWire() []byte {
	var e encoder
	e.string(1, m.Name)
	e.bytes(2, m.Owner)
	e.string(3, m.Data)
	e.uint64(4, m.Expires)
	return e.b
}

func (m *NameEntry) UnmarshalWire(b []byte) error {
	return walk(b, func(f *field) {
		switch f.num {
		case 1:
			m.Name = f.string()
		case 2:
			m.Owner = f.bytes()
		case 3:
			m.Data = f.string()
		case 4:
			m.Expires = f.uint64()
		default:
			f.skip()
		}
	})
}
