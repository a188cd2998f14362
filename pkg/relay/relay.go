// Package relay submits sponsored call batches through the transaction relay
// and waits for their on-chain receipts.
package relay

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted is returned by WaitForReceipt when the relayed transaction
// landed on-chain but reverted.
var ErrReverted = errors.New("transaction reverted")

// Call is a single on-chain call in a batch.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// OpHandle identifies a submitted operation for receipt polling.
type OpHandle struct {
	ID string
}

// Receipt is the terminal result of a relayed operation.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
}
