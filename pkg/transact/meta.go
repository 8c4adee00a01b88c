package transact

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/ethereum/go-ethereum/crypto"
)

// Compiled is the compiler output needed to deploy a contract and register its metadata.
type Compiled struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	// Children are contracts created by this one.
	Children []Compiled `json:"children,omitempty"`
}

type metaBlob struct {
	Abi json.RawMessage
}

// ContractMeta hashes each deployed bytecode with keccak-256 and pairs it with {"Abi": ...}.
// Contracts without an ABI or deployed bytecode contribute nothing.
func ContractMeta(c Compiled) ([]*wire.ContractMeta, error) {
	var out []*wire.ContractMeta
	if err := collectMeta(c, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectMeta(c Compiled, out *[]*wire.ContractMeta) error {
	if entry, err := metaEntry(c); err != nil {
		return err
	} else if entry != nil {
		*out = append(*out, entry)
	}
	for _, child := range c.Children {
		if err := collectMeta(child, out); err != nil {
			return err
		}
	}
	return nil
}

func metaEntry(c Compiled) (*wire.ContractMeta, error) {
	trimmed := bytes.TrimSpace(c.ABI)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || c.DeployedBytecode == "" {
		return nil, nil
	}
	code, err := convert.ToBytes(c.DeployedBytecode)
	if err != nil {
		return nil, fmt.Errorf("deployed bytecode: %w", err)
	}
	if len(code) == 0 {
		return nil, nil
	}
	blob, err := json.Marshal(metaBlob{Abi: trimmed})
	if err != nil {
		return nil, err
	}
	return &wire.ContractMeta{CodeHash: crypto.Keccak256(code), Meta: string(blob)}, nil
}

// ParseMeta extracts the ABI from a metadata document stored by the node.
func ParseMeta(meta string) (json.RawMessage, error) {
	var blob metaBlob
	if err := json.Unmarshal([]byte(meta), &blob); err != nil {
		return nil, fmt.Errorf("parse contract metadata: %w", err)
	}
	if len(blob.Abi) == 0 {
		return nil, fmt.Errorf("contract metadata has no Abi")
	}
	return blob.Abi, nil
}
