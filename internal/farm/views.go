/*

This file contains the read-only projections of the ledger. None of them
mutate state, and each matches what an immediately following
accrual-then-mutation would produce.

*/

package farm

import (
	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/types"
)

// PendingReward projects the accumulator forward to the current step without
// mutating it and returns the participant's unclaimed entitlement.
func (f *Farm) PendingReward(id types.PoolID, account types.Account) (sdkmath.Int, error) {
	if err := f.acquireRead(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer f.releaseRead()

	pool, err := f.poolLocked(id)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	pos, ok := f.positions[positionKey{pool: id, account: account}]
	if !ok || !pos.Amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	acc := f.projectedAccLocked(pool)
	return pos.Amount.Mul(acc).Quo(config.AccScale).Sub(pos.RewardDebt), nil
}

// projectedAccLocked returns the accumulator value updatePoolLocked would
// commit right now, without committing it. Assumes at least read access.
func (f *Farm) projectedAccLocked(pool *types.Pool) sdkmath.Int {
	acc := pool.AccRewardPerShare
	now := f.clock.Now()
	if now <= pool.LastRewardStep {
		return acc
	}
	staked := f.bank.BalanceOf(f.account, pool.StakeDenom)
	if staked.IsZero() || !pool.AllocWeight.IsPositive() || !f.totalAllocWeight.IsPositive() {
		return acc
	}
	elapsed := f.getMultiplier(pool.LastRewardStep, now)
	reward := elapsed.Mul(f.emission.RatePerStep).Mul(pool.AllocWeight).Quo(f.totalAllocWeight)
	return acc.Add(reward.Mul(config.AccScale).Quo(staked))
}

// PoolInfo returns a copy of the pool's current state.
func (f *Farm) PoolInfo(id types.PoolID) (types.Pool, error) {
	if err := f.acquireRead(); err != nil {
		return types.Pool{}, err
	}
	defer f.releaseRead()

	pool, err := f.poolLocked(id)
	if err != nil {
		return types.Pool{}, err
	}
	return *pool, nil
}

// Pools returns copies of every pool in index order.
func (f *Farm) Pools() ([]types.Pool, error) {
	if err := f.acquireRead(); err != nil {
		return nil, err
	}
	defer f.releaseRead()

	pools := make([]types.Pool, 0, len(f.pools))
	for _, pool := range f.pools {
		pools = append(pools, *pool)
	}
	return pools, nil
}

// PositionOf returns a copy of the participant's position in the pool. A
// participant who never deposited reads as an empty position.
func (f *Farm) PositionOf(id types.PoolID, account types.Account) (types.Position, error) {
	if err := f.acquireRead(); err != nil {
		return types.Position{}, err
	}
	defer f.releaseRead()

	if _, err := f.poolLocked(id); err != nil {
		return types.Position{}, err
	}
	if pos, ok := f.positions[positionKey{pool: id, account: account}]; ok {
		return *pos, nil
	}
	return types.Position{
		PoolID:     id,
		Account:    account,
		Amount:     sdkmath.ZeroInt(),
		RewardDebt: sdkmath.ZeroInt(),
	}, nil
}

// PositionsOf returns copies of every position the account holds.
func (f *Farm) PositionsOf(account types.Account) ([]types.Position, error) {
	if err := f.acquireRead(); err != nil {
		return nil, err
	}
	defer f.releaseRead()

	positions := make([]types.Position, 0)
	for _, pool := range f.pools {
		if pos, ok := f.positions[positionKey{pool: pool.ID, account: account}]; ok {
			positions = append(positions, *pos)
		}
	}
	return positions, nil
}

// EmissionState returns the current rate and last applied decay index.
func (f *Farm) EmissionState() (types.EmissionState, error) {
	if err := f.acquireRead(); err != nil {
		return types.EmissionState{}, err
	}
	defer f.releaseRead()
	return f.emission, nil
}

// EmissionParams returns the fixed schedule parameters. Immutable after
// construction, so no lock is needed.
func (f *Farm) EmissionParams() types.EmissionParams {
	return f.params
}

// TotalAllocWeight returns the registry's total allocation weight.
func (f *Farm) TotalAllocWeight() (sdkmath.Int, error) {
	if err := f.acquireRead(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer f.releaseRead()
	return f.totalAllocWeight, nil
}

// CommissionRate returns the current referral commission rate in basis points.
func (f *Farm) CommissionRate() (uint64, error) {
	if err := f.acquireRead(); err != nil {
		return 0, err
	}
	defer f.releaseRead()
	return f.commissionBP, nil
}

// StakedBalance returns the engine-held balance of the pool's stake asset.
func (f *Farm) StakedBalance(id types.PoolID) (sdkmath.Int, error) {
	if err := f.acquireRead(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer f.releaseRead()

	pool, err := f.poolLocked(id)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return f.bank.BalanceOf(f.account, pool.StakeDenom), nil
}

// RewardDenom returns the reward asset denomination. Fixed at construction.
func (f *Farm) RewardDenom() string {
	return f.rewardDenom
}

// EngineAccount returns the engine's own bank account. Fixed at construction.
func (f *Farm) EngineAccount() types.Account {
	return f.account
}

// PoolSnapshots materializes the persisted projection of every pool.
func (f *Farm) PoolSnapshots() ([]types.PoolSnapshot, error) {
	if err := f.acquireRead(); err != nil {
		return nil, err
	}
	defer f.releaseRead()

	now := f.clock.Now()
	snapshots := make([]types.PoolSnapshot, 0, len(f.pools))
	for _, pool := range f.pools {
		snapshots = append(snapshots, types.PoolSnapshot{
			PoolID:            pool.ID,
			StakeDenom:        pool.StakeDenom,
			AllocWeight:       pool.AllocWeight,
			LastRewardStep:    pool.LastRewardStep,
			AccRewardPerShare: pool.AccRewardPerShare,
			DepositFeeBP:      pool.DepositFeeBP,
			StakedBalance:     f.bank.BalanceOf(f.account, pool.StakeDenom),
			Step:              now,
		})
	}
	return snapshots, nil
}

// PositionSnapshots materializes the persisted projection of every position,
// pending entitlement included.
func (f *Farm) PositionSnapshots() ([]types.PositionSnapshot, error) {
	if err := f.acquireRead(); err != nil {
		return nil, err
	}
	defer f.releaseRead()

	now := f.clock.Now()
	snapshots := make([]types.PositionSnapshot, 0, len(f.positions))
	for _, pos := range f.positions {
		pool := f.pools[pos.PoolID]
		acc := f.projectedAccLocked(pool)
		pending := pos.Amount.Mul(acc).Quo(config.AccScale).Sub(pos.RewardDebt)
		snapshots = append(snapshots, types.PositionSnapshot{
			PoolID:     pos.PoolID,
			Account:    pos.Account,
			Amount:     pos.Amount,
			RewardDebt: pos.RewardDebt,
			Pending:    pending,
			Step:       now,
		})
	}
	return snapshots, nil
}
