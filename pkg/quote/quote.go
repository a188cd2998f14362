// Package quote talks to the external quote service that prices a swap and
// returns the call data to execute it.
package quote

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// IssueSeverity classifies an advisory attached to a quote.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is an advisory reported alongside a quote. Error-severity issues
// block execution; warnings do not.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Reason   string        `json:"reason"`
}

// CallData is the transaction payload to execute a quoted swap.
type CallData struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Quote is a priced swap proposal with its execution call data.
type Quote struct {
	Tx     CallData
	Issues []Issue
}

// Fatal reports whether the quote carries any error-severity issue.
func (q *Quote) Fatal() (bool, string) {
	for _, issue := range q.Issues {
		if issue.Severity == SeverityError {
			return true, issue.Reason
		}
	}
	return false, ""
}

// Request describes the swap to price.
type Request struct {
	SellToken   common.Address
	BuyToken    common.Address
	SellAmount  *big.Int
	Taker       common.Address
	SlippageBps int
}
