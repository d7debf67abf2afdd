/*

This file contains the emission scheduler: a stepwise, compounding decay of the
reward issuance rate, floored at a minimum. UpdateEmissionRate is callable by
anyone at any cadence; correctness never depends on call frequency.

*/

package farm

import (
	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/farmd/internal/config"
)

// UpdateEmissionRate applies any decay periods elapsed since the last applied
// one. A multi-period jump is applied in one pass. Reapplying an unchanged or
// already-applied period index is a strict no-op, so arbitrary callers and
// internal call sites can never double-apply a decay step.
func (f *Farm) UpdateEmissionRate() error {
	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()
	return f.updateEmissionRateLocked()
}

func (f *Farm) updateEmissionRateLocked() error {
	now := f.clock.Now()
	if now < f.startStep {
		return nil
	}

	period := (now - f.startStep) / f.params.DecayPeriodSteps
	if period <= f.emission.LastDecayIndex {
		return nil
	}

	next := f.decayedRate(period)
	if !next.LT(f.emission.RatePerStep) {
		// The floor has been reached; the rate can only ever decrease.
		return nil
	}

	// Every pool checkpoints at the old rate before the new one commits, so no
	// reward window is ever computed at the wrong rate.
	if err := f.massUpdatePoolsLocked(); err != nil {
		return err
	}

	old := f.emission.RatePerStep
	f.emission.RatePerStep = next
	f.emission.LastDecayIndex = period

	f.logger.Info().
		Uint64("period", period).
		Str("old_rate", old.String()).
		Str("new_rate", next.String()).
		Msg("Emission rate decayed")
	f.publishRateChange(old, next, now)

	return nil
}

// decayedRate recomputes the rate from the initial rate and the total number
// of elapsed periods:
//
//	max(floor, trunc(initial * ((10000-DecayBP)/10000)^periods))
//
// Deriving from the initial rate rather than compounding the current one makes
// one multi-period jump and N single-period applications land on the same
// value exactly.
func (f *Farm) decayedRate(periods uint64) sdkmath.Int {
	keep := sdkmath.LegacyNewDecWithPrec(int64(config.BasisPointDenom-f.params.DecayBP), 4)
	rate := sdkmath.LegacyNewDecFromInt(f.params.InitialRatePerStep).Mul(keep.Power(periods)).TruncateInt()
	if rate.LT(f.params.MinRatePerStep) {
		return f.params.MinRatePerStep
	}
	return rate
}
