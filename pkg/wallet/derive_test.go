package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestAccountDeriver_Deterministic(t *testing.T) {
	deriver := NewAccountDeriver()
	owner := common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	a := deriver.AccountAddress(owner, 2)
	b := deriver.AccountAddress(owner, 2)
	assert.Equal(t, a, b)
}

func TestAccountDeriver_DistinctPerIndex(t *testing.T) {
	deriver := NewAccountDeriver()
	owner := common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	seen := make(map[common.Address]bool)
	for index := uint8(0); index < PoolSize; index++ {
		addr := deriver.AccountAddress(owner, index)
		assert.False(t, seen[addr], "address collision at index %d", index)
		seen[addr] = true
	}
	assert.Len(t, seen, PoolSize)
}

func TestAccountDeriver_AccountDiffersFromOwner(t *testing.T) {
	deriver := NewAccountDeriver()
	owner := common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	assert.NotEqual(t, owner, deriver.AccountAddress(owner, 0))
}
