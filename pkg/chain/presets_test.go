package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	p, ok := Get("burrow-local")
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:10997", p.Endpoint)
	assert.Equal(t, uint64(500), p.BatchSize)

	Register("my-test-chain", Preset{
		ChainID:   "test-chain-1",
		BlockTime: 5 * time.Second,
	})

	p2, ok := Get("my-test-chain")
	assert.True(t, ok)
	assert.Equal(t, "test-chain-1", p2.ChainID)
	assert.Equal(t, 5*time.Second, p2.BlockTime)
	assert.Contains(t, Names(), "my-test-chain")

	_, ok = Get("unknown-chain")
	assert.False(t, ok)
}
