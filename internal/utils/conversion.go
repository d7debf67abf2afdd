/*
This file contains common utility functions for fixed-point integer arithmetic,
particularly basis-point rates and SDK math conversions for display.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// BasisPointDenom mirrors the protocol constant: 10000 bp = 100%.
const BasisPointDenom = 10_000

var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrNotFinite        = errors.New("value is not finite")
)

// BasisPointsOf returns floor(amount * bp / 10000). Amount is expected to be
// non-negative; a nil amount yields zero.
func BasisPointsOf(amount sdkmath.Int, bp uint64) sdkmath.Int {
	if amount.IsNil() || bp == 0 {
		return sdkmath.ZeroInt()
	}
	return amount.MulRaw(int64(bp)).QuoRaw(BasisPointDenom)
}

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision
// handling. Display use only: never feed the result back into the ledger.
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	resultFloat, err := decAmount.Quo(factor).Float64()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}
	return resultFloat, nil
}
