package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/bumpworks/bump-engine/pkg/keys"
)

// Pool derives, persists and serves the rotation wallets for each user.
type Pool struct {
	db        *bun.DB
	deriver   AccountDeriver
	seed      []byte
	masterKey []byte
	logger    *zap.Logger
}

// NewPool creates a wallet pool. seed is the bip39 master seed for owner-key
// derivation; masterKey is the AES-256 key protecting stored owner keys.
func NewPool(db *bun.DB, deriver AccountDeriver, seed, masterKey []byte, logger *zap.Logger) *Pool {
	return &Pool{
		db:        db,
		deriver:   deriver,
		seed:      seed,
		masterKey: masterKey,
		logger:    logger,
	}
}

// GetOrCreateWallets returns the user's PoolSize wallets, deriving and
// persisting them on first use. Idempotent: existing wallets are returned
// unchanged. The batch is inserted in one transaction so a failure at any
// index leaves no partial wallet set behind.
func (p *Pool) GetOrCreateWallets(ctx context.Context, user common.Address) ([]BotWallet, error) {
	existing, err := p.listWallets(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(existing) == PoolSize {
		return existing, nil
	}
	if len(existing) > 0 {
		// Should be impossible given the transactional insert below.
		return nil, fmt.Errorf("user %s has a partial wallet set (%d of %d)", user.Hex(), len(existing), PoolSize)
	}

	daos := make([]BotWalletDao, 0, PoolSize)
	for index := uint8(0); index < PoolSize; index++ {
		ownerKey, err := keys.DeriveOwnerKey(p.seed, user, index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive owner key %d: %w", index, err)
		}
		encrypted, err := keys.EncryptPrivateKey(crypto.FromECDSA(ownerKey), p.masterKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt owner key %d: %w", index, err)
		}

		ownerAddress := crypto.PubkeyToAddress(ownerKey.PublicKey)
		daos = append(daos, BotWalletDao{
			UserAddress:       strings.ToLower(user.Hex()),
			WalletIndex:       int16(index),
			OwnerAddress:      strings.ToLower(ownerAddress.Hex()),
			AccountAddress:    strings.ToLower(p.deriver.AccountAddress(ownerAddress, index).Hex()),
			EncryptedOwnerKey: encrypted,
		})
	}

	err = p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&daos).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist wallet pool: %w", err)
	}

	p.logger.Info("Created bot wallet pool",
		zap.String("user", user.Hex()),
		zap.Int("wallets", PoolSize))

	wallets := make([]BotWallet, len(daos))
	for i := range daos {
		wallets[i] = toBotWallet(&daos[i])
	}
	return wallets, nil
}

// WalletAt returns the wallet selected by a session's rotation index.
func (p *Pool) WalletAt(ctx context.Context, user common.Address, rotationIndex int) (BotWallet, error) {
	wallets, err := p.GetOrCreateWallets(ctx, user)
	if err != nil {
		return BotWallet{}, err
	}
	return wallets[rotationIndex%PoolSize], nil
}

// SignerKey decrypts and returns the owner key for one of the user's
// wallets. The clear key never touches the database.
func (p *Pool) SignerKey(ctx context.Context, user common.Address, index uint8) (*ecdsa.PrivateKey, error) {
	wallets, err := p.GetOrCreateWallets(ctx, user)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(wallets) {
		return nil, fmt.Errorf("wallet index %d out of range", index)
	}
	return keys.SignerFromEncrypted(wallets[index].EncryptedOwnerKey, p.masterKey)
}

func (p *Pool) listWallets(ctx context.Context, user common.Address) ([]BotWallet, error) {
	var daos []BotWalletDao
	err := p.db.NewSelect().
		Model(&daos).
		Where("user_address = ?", strings.ToLower(user.Hex())).
		Order("wallet_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := make([]BotWallet, len(daos))
	for i := range daos {
		wallets[i] = toBotWallet(&daos[i])
	}
	return wallets, nil
}
