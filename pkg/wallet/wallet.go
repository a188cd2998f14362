// Package wallet manages the fixed pool of deterministic bot wallets that
// fund bumps. Each user owns exactly PoolSize wallets, derived once and
// immutable thereafter; rotation among them is driven by the session's
// rotation index.
package wallet

import (
	"github.com/ethereum/go-ethereum/common"
)

// PoolSize is the number of rotation wallets per user.
const PoolSize = 5

// BotWallet is one deterministic sub-account in a user's rotation pool.
// The owner key signs on behalf of the smart account; the account address
// is what holds funds and appears as the taker on quotes.
type BotWallet struct {
	User              common.Address
	Index             uint8
	OwnerAddress      common.Address
	AccountAddress    common.Address
	EncryptedOwnerKey string
}
