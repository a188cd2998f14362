package botlog

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// LogDao maps to the 'bot_logs' table.
type LogDao struct {
	bun.BaseModel `bun:"table:bot_logs,alias:bl"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserAddress   string    `bun:"user_address,notnull,type:varchar(42)"`
	WalletAddress string    `bun:"wallet_address,notnull,type:varchar(42)"`
	TokenAddress  string    `bun:"token_address,notnull,type:varchar(42)"`
	AmountWei     string    `bun:"amount_wei,notnull,type:numeric(78,0),default:'0'"`
	Status        string    `bun:"status,notnull,type:varchar(16)"`
	TxHash        *string   `bun:"tx_hash,type:varchar(66)"`
	Message       *string   `bun:"message,type:text"`
	ErrorDetails  *string   `bun:"error_details,type:text"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toEntry(dao *LogDao) *Entry {
	amount, ok := new(big.Int).SetString(dao.AmountWei, 10)
	if !ok {
		amount = big.NewInt(0)
	}
	entry := &Entry{
		ID:            dao.ID,
		User:          common.HexToAddress(dao.UserAddress),
		WalletAddress: common.HexToAddress(dao.WalletAddress),
		TokenAddress:  common.HexToAddress(dao.TokenAddress),
		AmountWei:     amount,
		Status:        Status(dao.Status),
		CreatedAt:     dao.CreatedAt,
	}
	if dao.TxHash != nil {
		entry.TxHash = *dao.TxHash
	}
	if dao.Message != nil {
		entry.Message = *dao.Message
	}
	if dao.ErrorDetails != nil {
		entry.ErrorDetails = *dao.ErrorDetails
	}
	return entry
}

func toLogDao(entry *Entry) *LogDao {
	amount := "0"
	if entry.AmountWei != nil {
		amount = entry.AmountWei.String()
	}
	dao := &LogDao{
		ID:            entry.ID,
		UserAddress:   strings.ToLower(entry.User.Hex()),
		WalletAddress: strings.ToLower(entry.WalletAddress.Hex()),
		TokenAddress:  strings.ToLower(entry.TokenAddress.Hex()),
		AmountWei:     amount,
		Status:        string(entry.Status),
	}
	if entry.TxHash != "" {
		dao.TxHash = &entry.TxHash
	}
	if entry.Message != "" {
		dao.Message = &entry.Message
	}
	if entry.ErrorDetails != "" {
		dao.ErrorDetails = &entry.ErrorDetails
	}
	return dao
}
