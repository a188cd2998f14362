// Package botlog is the append-only audit trail of swap attempts. Rows are
// written once; the single permitted follow-up is finalizing a pending row
// with its terminal status and transaction hash.
package botlog

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status represents the lifecycle state of an audit entry
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusInfo    Status = "info"
)

// Entry is one audit record of a swap attempt.
type Entry struct {
	ID            int64
	User          common.Address
	WalletAddress common.Address
	TokenAddress  common.Address
	AmountWei     *big.Int
	Status        Status
	TxHash        string
	Message       string
	ErrorDetails  string
	CreatedAt     time.Time
}
