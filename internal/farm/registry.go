/*

This file contains the pool registry: the append-only pool set, its weights and
fee configuration. All operations here are privileged and atomic: fully
applied or fully rejected.

*/

package farm

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/referral"
	"github.com/stakeworks/farmd/internal/types"
)

// AddPool appends a new pool. With withUpdate set, every existing pool
// checkpoints first so the weight change cannot be attributed retroactively.
// The new pool's checkpoint starts at max(current step, start step).
func (f *Farm) AddPool(caller types.Account, weight sdkmath.Int, stakeDenom string, depositFeeBP uint64, withUpdate bool) (types.PoolID, error) {
	if err := f.gate.RequireOwner(caller); err != nil {
		return 0, err
	}
	if err := validatePoolParams(weight, depositFeeBP); err != nil {
		return 0, err
	}
	if stakeDenom == "" {
		return 0, fmt.Errorf("%w: stake denom cannot be empty", ErrInvalidConfiguration)
	}

	if err := f.acquire(); err != nil {
		return 0, err
	}
	defer f.release()

	if withUpdate {
		if err := f.massUpdatePoolsLocked(); err != nil {
			return 0, err
		}
	}

	lastRewardStep := f.clock.Now()
	if lastRewardStep < f.startStep {
		lastRewardStep = f.startStep
	}

	pool := &types.Pool{
		ID:                types.PoolID(len(f.pools)),
		StakeDenom:        stakeDenom,
		AllocWeight:       weight,
		LastRewardStep:    lastRewardStep,
		AccRewardPerShare: sdkmath.ZeroInt(),
		DepositFeeBP:      depositFeeBP,
	}
	f.totalAllocWeight = f.totalAllocWeight.Add(weight)
	f.pools = append(f.pools, pool)

	f.logger.Info().
		Uint64("pool_id", uint64(pool.ID)).
		Str("stake_denom", stakeDenom).
		Str("weight", weight.String()).
		Uint64("deposit_fee_bp", depositFeeBP).
		Msg("Pool added")

	return pool.ID, nil
}

// SetPool updates a pool's weight and deposit fee. The registry's total weight
// moves by the signed delta between the old and the new weight.
func (f *Farm) SetPool(caller types.Account, id types.PoolID, weight sdkmath.Int, depositFeeBP uint64, withUpdate bool) error {
	if err := f.gate.RequireOwner(caller); err != nil {
		return err
	}
	if err := validatePoolParams(weight, depositFeeBP); err != nil {
		return err
	}

	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	pool, err := f.poolLocked(id)
	if err != nil {
		return err
	}

	if withUpdate {
		if err := f.massUpdatePoolsLocked(); err != nil {
			return err
		}
	}

	f.totalAllocWeight = f.totalAllocWeight.Sub(pool.AllocWeight).Add(weight)
	pool.AllocWeight = weight
	pool.DepositFeeBP = depositFeeBP

	f.logger.Info().
		Uint64("pool_id", uint64(id)).
		Str("weight", weight.String()).
		Uint64("deposit_fee_bp", depositFeeBP).
		Msg("Pool updated")

	return nil
}

// SetCommissionRate updates the referral commission rate, capped at
// MaxCommissionBP.
func (f *Farm) SetCommissionRate(caller types.Account, commissionBP uint64) error {
	if err := f.gate.RequireOwner(caller); err != nil {
		return err
	}
	if commissionBP > config.MaxCommissionBP {
		return fmt.Errorf("%w: commission %d bp exceeds cap of %d bp", ErrInvalidConfiguration, commissionBP, config.MaxCommissionBP)
	}

	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	f.commissionBP = commissionBP
	f.logger.Info().Uint64("commission_bp", commissionBP).Msg("Referral commission rate updated")
	return nil
}

// SetReferralRegistry swaps the referral registry collaborator.
func (f *Farm) SetReferralRegistry(caller types.Account, registry referral.Registry) error {
	if err := f.gate.RequireOwner(caller); err != nil {
		return err
	}
	if registry == nil {
		return fmt.Errorf("%w: referral registry cannot be nil", ErrInvalidConfiguration)
	}

	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	f.referrals = registry
	f.logger.Info().Msg("Referral registry updated")
	return nil
}

func validatePoolParams(weight sdkmath.Int, depositFeeBP uint64) error {
	if weight.IsNil() || weight.IsNegative() {
		return fmt.Errorf("%w: allocation weight must be non-negative", ErrInvalidConfiguration)
	}
	if depositFeeBP > config.MaxDepositFeeBP {
		return fmt.Errorf("%w: deposit fee %d bp exceeds cap of %d bp", ErrInvalidConfiguration, depositFeeBP, config.MaxDepositFeeBP)
	}
	return nil
}
