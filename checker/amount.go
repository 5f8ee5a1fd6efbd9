package checker

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// DisplayExponent is the number of decimal places between the micro-denomination and the display unit
const DisplayExponent = 6

// ToDisplay converts a raw micro-denomination amount to display units (raw / 10^6).
// The conversion is exact; a nil amount converts to zero.
func ToDisplay(raw math.Int) decimal.Decimal {
	if raw.IsNil() {
		return decimal.Zero
	}
	return toDisplay(raw.BigInt())
}

func toDisplay(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -DisplayExponent)
}

// fromDisplay recovers the raw micro-denomination amount behind a display value
func fromDisplay(d decimal.Decimal) *big.Int {
	return d.Shift(DisplayExponent).BigInt()
}
