// Package ledger tracks the prepaid credit backing future bumps: one main
// balance per user plus one balance per rotation wallet. Balances are stored
// as wei-valued NUMERIC(78,0) and never go negative.
package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientCredit is returned when an operation requires more credit
// than the user holds.
var ErrInsufficientCredit = errors.New("insufficient credit")

// Scope routes a ledger mutation to either the user's main balance or the
// balance of one specific bot wallet.
type Scope struct {
	wallet common.Address
	main   bool
}

// MainScope addresses the user's main credit balance.
func MainScope() Scope {
	return Scope{main: true}
}

// WalletScope addresses the credit balance of a specific bot wallet.
func WalletScope(wallet common.Address) Scope {
	return Scope{wallet: wallet}
}

// IsMain reports whether the scope targets the main balance.
func (s Scope) IsMain() bool {
	return s.main
}

// Wallet returns the bot wallet address for a wallet scope.
func (s Scope) Wallet() common.Address {
	return s.wallet
}

func (s Scope) String() string {
	if s.main {
		return "main"
	}
	return s.wallet.Hex()
}

// WalletCredit is the spendable balance pre-distributed to one bot wallet.
type WalletCredit struct {
	User          common.Address
	WalletAddress common.Address
	Balance       *big.Int
}

// SplitAmount splits total evenly across n wallets, adding any remainder to
// the first share. SplitAmount(103, 5) = {23, 20, 20, 20, 20}.
func SplitAmount(total *big.Int, n int) []*big.Int {
	if n <= 0 {
		return nil
	}
	share := new(big.Int)
	remainder := new(big.Int)
	share.DivMod(total, big.NewInt(int64(n)), remainder)

	amounts := make([]*big.Int, n)
	for i := range amounts {
		amounts[i] = new(big.Int).Set(share)
	}
	amounts[0].Add(amounts[0], remainder)
	return amounts
}

func parseNumeric(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric balance %q", s)
	}
	return v, nil
}
