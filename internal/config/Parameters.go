/*

This file contains the fixed protocol parameters for the farm engine.

These values are protocol constants, not tunables: positions are priced against
them from the first deposit onwards, so changing any of them mid-flight would
retroactively reprice already-accrued entitlements.

*/

package config

import (
	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/farmd/internal/types"
)

const (
	// BasisPointDenom is the denominator for all basis-point rates.
	BasisPointDenom = 10_000

	// MaxDepositFeeBP caps a pool's deposit fee at 4%.
	MaxDepositFeeBP = 400
	// MaxCommissionBP caps the referral commission rate at 5%.
	MaxCommissionBP = 500
	// StakeTaxBP is the transfer tax applied to the gross pulled amount when a
	// pool stakes the reward asset itself. Consumed at the asset layer, never
	// credited inside the engine.
	StakeTaxBP = 500

	// DevRewardDivisor routes reward/10 of every accrual mint to the dev sink.
	DevRewardDivisor = 10

	// BonusMultiplier scales elapsed steps in the accrual multiplier. Fixed at
	// 1; named extension point for time-weighted bonus periods.
	BonusMultiplier = 1
)

// AccScale is the fixed-point scale of the reward-per-share accumulator (1e12).
var AccScale = sdkmath.NewInt(1_000_000_000_000)

// DefaultEmissionParams provides the emission schedule used when no override is
// wired in at construction: 1000 reward units per step, decaying 1% every
// 28800 steps, floored at 10 units per step.
var DefaultEmissionParams = types.EmissionParams{
	InitialRatePerStep: sdkmath.NewInt(1_000),
	MinRatePerStep:     sdkmath.NewInt(10),
	DecayPeriodSteps:   28_800,
	DecayBP:            100,
}
