/*

This file contains the reward accrual engine: advancing a pool's
reward-per-share accumulator to the current step and minting the newly earned
rewards. "Accrue, then mutate" is the hard ordering invariant of the whole
ledger. Every stake, weight or rate mutation runs these checkpoints first.

*/

package farm

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/types"
)

// getMultiplier returns the reward multiplier over (from, to]:
// (to - from) * BonusMultiplier. BonusMultiplier is fixed at 1 today.
func (f *Farm) getMultiplier(from, to uint64) sdkmath.Int {
	if to <= from {
		return sdkmath.ZeroInt()
	}
	return sdkmath.NewIntFromUint64(to - from).MulRaw(config.BonusMultiplier)
}

// updatePoolLocked brings pool's accumulator current. When the pool holds no
// stake or carries no weight, the window's reward is permanently forfeited:
// only the checkpoint advances. Assumes the lock is held.
func (f *Farm) updatePoolLocked(pool *types.Pool) error {
	now := f.clock.Now()
	if now <= pool.LastRewardStep {
		return nil
	}

	staked := f.bank.BalanceOf(f.account, pool.StakeDenom)
	if staked.IsZero() || !pool.AllocWeight.IsPositive() || !f.totalAllocWeight.IsPositive() {
		pool.LastRewardStep = now
		return nil
	}

	// Multiply fully before dividing; sdkmath.Int is arbitrary precision, so
	// elapsed * rate * weight cannot overflow before the division.
	elapsed := f.getMultiplier(pool.LastRewardStep, now)
	reward := elapsed.Mul(f.emission.RatePerStep).Mul(pool.AllocWeight).Quo(f.totalAllocWeight)

	devCut := reward.QuoRaw(config.DevRewardDivisor)
	if devCut.IsPositive() {
		if err := f.bank.Mint(f.gate.Dev(), f.rewardDenom, devCut); err != nil {
			return fmt.Errorf("%w: dev mint: %w", ErrTransferFailed, err)
		}
	}
	if reward.IsPositive() {
		if err := f.bank.Mint(f.account, f.rewardDenom, reward); err != nil {
			return fmt.Errorf("%w: engine mint: %w", ErrTransferFailed, err)
		}
	}

	pool.AccRewardPerShare = pool.AccRewardPerShare.Add(reward.Mul(config.AccScale).Quo(staked))
	pool.LastRewardStep = now
	return nil
}

// massUpdatePoolsLocked checkpoints every pool in index order. Pools are
// independent, so the order is irrelevant to correctness. Assumes the lock is
// held.
func (f *Farm) massUpdatePoolsLocked() error {
	for _, pool := range f.pools {
		if err := f.updatePoolLocked(pool); err != nil {
			return fmt.Errorf("checkpoint of pool %d failed: %w", pool.ID, err)
		}
	}
	return nil
}

// UpdatePool checkpoints a single pool. Callable by anyone.
func (f *Farm) UpdatePool(id types.PoolID) error {
	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	pool, err := f.poolLocked(id)
	if err != nil {
		return err
	}
	return f.updatePoolLocked(pool)
}

// MassUpdatePools checkpoints every pool. Callable by anyone.
func (f *Farm) MassUpdatePools() error {
	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()
	return f.massUpdatePoolsLocked()
}
