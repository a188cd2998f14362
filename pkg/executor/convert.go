package executor

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// weiPerNative is 10^18, the smallest-unit scale of the native asset.
var weiPerNative = decimal.New(1, 18)

// FiatToWei converts a fiat amount to native-asset wei at the given price,
// truncating toward zero so the spend never exceeds the fiat budget.
func FiatToWei(amountFiat, price decimal.Decimal) (*big.Int, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("price must be positive, got %s", price)
	}
	if !amountFiat.IsPositive() {
		return nil, fmt.Errorf("fiat amount must be positive, got %s", amountFiat)
	}

	// QuoRem with precision 0 truncates rather than rounding, which Div
	// would do at its division precision.
	wei, _ := amountFiat.Mul(weiPerNative).QuoRem(price, 0)
	if !wei.IsPositive() {
		return nil, fmt.Errorf("fiat amount %s too small at price %s", amountFiat, price)
	}
	return wei.BigInt(), nil
}
