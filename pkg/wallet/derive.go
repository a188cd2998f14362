package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultFactory is the account factory the smart-account addresses are
// counterfactually derived against.
var DefaultFactory = common.HexToAddress("0x9406Cc6185a346906296840746125a0E44976454")

// defaultProxyCodeHash is the keccak hash of the account proxy creation code
// deployed by DefaultFactory.
var defaultProxyCodeHash = common.HexToHash("0x21c35dbe1b344a2488cf3321d6ce542f8e9f305544ff09e4993a62319a497c1f")

// AccountDeriver computes counterfactual smart-account addresses. Addresses
// are a pure function of (owner, index), so re-deriving after a restart can
// never produce a different address; wallet-credit rows keyed by address
// stay stable.
type AccountDeriver struct {
	Factory       common.Address
	ProxyCodeHash common.Hash
}

// NewAccountDeriver returns a deriver for the default factory deployment.
func NewAccountDeriver() AccountDeriver {
	return AccountDeriver{
		Factory:       DefaultFactory,
		ProxyCodeHash: defaultProxyCodeHash,
	}
}

// AccountAddress returns the CREATE2 address of the smart account the
// factory deploys for (owner, index).
func (d AccountDeriver) AccountAddress(owner common.Address, index uint8) common.Address {
	salt := crypto.Keccak256Hash(owner.Bytes(), []byte{index})
	return crypto.CreateAddress2(d.Factory, salt, d.ProxyCodeHash.Bytes())
}
