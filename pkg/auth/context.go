package auth

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Context keys for authentication data
type contextKey string

// ContextKeyUserAddress is the context key for the authenticated EVM address
const ContextKeyUserAddress contextKey = "user_address"

// WithUserAddress adds the authenticated user address to the context
func WithUserAddress(ctx context.Context, address common.Address) context.Context {
	return context.WithValue(ctx, ContextKeyUserAddress, address)
}

// UserAddressFromContext retrieves the authenticated user address from the context
func UserAddressFromContext(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(ContextKeyUserAddress).(common.Address)
	return addr, ok
}
