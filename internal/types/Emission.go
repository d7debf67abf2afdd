/*

This file contains the types for the emission schedule: the stepwise compounding
decay of the reward issuance rate.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// EmissionParams are fixed at construction and never change afterwards.
type EmissionParams struct {
	InitialRatePerStep sdkmath.Int `json:"initial_rate_per_step"` // reward units minted per step before pool-weight allocation
	MinRatePerStep     sdkmath.Int `json:"min_rate_per_step"`     // floor the rate never falls below
	DecayPeriodSteps   uint64      `json:"decay_period_steps"`    // steps per decay period
	DecayBP            uint64      `json:"decay_bp"`              // per-period decay in basis points
}

// EmissionState is the mutable part of the schedule. RatePerStep is
// non-increasing over time and never falls below the configured floor.
type EmissionState struct {
	RatePerStep    sdkmath.Int `json:"rate_per_step"`
	LastDecayIndex uint64      `json:"last_decay_index"` // last decay-period index already applied
}
