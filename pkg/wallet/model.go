package wallet

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// BotWalletDao maps to the 'bot_wallets' table. Rows are written once at
// pool creation and never updated.
type BotWalletDao struct {
	bun.BaseModel     `bun:"table:bot_wallets,alias:bw"`
	ID                int64     `bun:"id,pk,autoincrement"`
	UserAddress       string    `bun:"user_address,notnull,type:varchar(42)"`
	WalletIndex       int16     `bun:"wallet_index,notnull,type:smallint"`
	OwnerAddress      string    `bun:"owner_address,notnull,type:varchar(42)"`
	AccountAddress    string    `bun:"account_address,unique,notnull,type:varchar(42)"`
	EncryptedOwnerKey string    `bun:"encrypted_owner_key,notnull,type:text"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toBotWallet(dao *BotWalletDao) BotWallet {
	return BotWallet{
		User:              common.HexToAddress(dao.UserAddress),
		Index:             uint8(dao.WalletIndex),
		OwnerAddress:      common.HexToAddress(dao.OwnerAddress),
		AccountAddress:    common.HexToAddress(dao.AccountAddress),
		EncryptedOwnerKey: dao.EncryptedOwnerKey,
	}
}
