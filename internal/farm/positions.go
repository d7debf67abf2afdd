/*

This file contains the position ledger state machine: deposit, withdraw and
emergency-withdraw, plus the safe-transfer guard and referral commission path
that realize pending entitlements.

Sequencing inside each operation follows "credit ledger, then attempt payout":
the accrual checkpoint commits first as a consistent unit, entitlements are
settled and the reward debt re-anchored before any stake mutation, and asset
transfers whose failure cannot be rolled back happen only once the internal
state they depend on is already consistent.

*/

package farm

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/types"
	"github.com/stakeworks/farmd/internal/utils"
)

// Deposit stakes amount of the pool's stake asset for caller. A zero amount is
// a pure harvest. A referrer supplied on the first qualifying deposit is
// recorded first-write-wins; self-referral is ignored.
func (f *Farm) Deposit(caller types.Account, id types.PoolID, amount sdkmath.Int, referrer types.Account) error {
	if caller.IsEmpty() {
		return fmt.Errorf("%w: caller cannot be empty", ErrInvalidConfiguration)
	}
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: deposit amount must be non-negative", ErrInvalidConfiguration)
	}

	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	pool, err := f.poolLocked(id)
	if err != nil {
		return err
	}
	if err := f.updatePoolLocked(pool); err != nil {
		return err
	}
	now := f.clock.Now()

	if amount.IsPositive() && !referrer.IsEmpty() {
		// The registry enforces first-write-wins and rejects self-referral.
		f.referrals.Record(caller, referrer)
	}

	pos := f.positionLocked(id, caller)
	if err := f.settlePendingLocked(pos, pool, now); err != nil {
		return err
	}

	net := sdkmath.ZeroInt()
	if amount.IsPositive() {
		if err := f.bank.TransferFrom(caller, f.account, pool.StakeDenom, amount); err != nil {
			return fmt.Errorf("%w: stake pull: %w", ErrTransferFailed, err)
		}
		net = amount

		if pool.StakeDenom == f.rewardDenom {
			// Self-stake transfer tax on the gross pulled amount, consumed at
			// the asset layer and never credited inside the engine.
			tax := utils.BasisPointsOf(amount, config.StakeTaxBP)
			if tax.IsPositive() {
				if err := f.bank.Burn(f.account, f.rewardDenom, tax); err != nil {
					f.refundPullLocked(caller, pool.StakeDenom, net)
					return fmt.Errorf("%w: stake tax: %w", ErrTransferFailed, err)
				}
			}
			net = net.Sub(tax)
		}

		if pool.DepositFeeBP > 0 {
			fee := utils.BasisPointsOf(net, pool.DepositFeeBP)
			if fee.IsPositive() {
				if err := f.bank.Transfer(f.account, f.gate.FeeCollector(), pool.StakeDenom, fee); err != nil {
					f.refundPullLocked(caller, pool.StakeDenom, net)
					return fmt.Errorf("%w: deposit fee skim: %w", ErrTransferFailed, err)
				}
			}
			net = net.Sub(fee)
		}

		pos.Amount = pos.Amount.Add(net)
	}

	pos.RewardDebt = accShare(pos.Amount, pool)
	f.publishDeposit(caller, id, net, now)
	return nil
}

// Withdraw unstakes amount and pays any pending entitlement. Rejects before
// any state change when amount exceeds the current stake. A zero amount is a
// pure harvest.
func (f *Farm) Withdraw(caller types.Account, id types.PoolID, amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return fmt.Errorf("%w: withdraw amount must be non-negative", ErrInvalidConfiguration)
	}

	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	pool, err := f.poolLocked(id)
	if err != nil {
		return err
	}

	pos := f.positionLocked(id, caller)
	if pos.Amount.LT(amount) {
		return fmt.Errorf("%w: staked %s, requested %s", ErrInsufficientStake, pos.Amount, amount)
	}

	if err := f.updatePoolLocked(pool); err != nil {
		return err
	}
	now := f.clock.Now()

	if err := f.settlePendingLocked(pos, pool, now); err != nil {
		return err
	}

	if amount.IsPositive() {
		pos.Amount = pos.Amount.Sub(amount)
		if err := f.bank.Transfer(f.account, caller, pool.StakeDenom, amount); err != nil {
			// Memory rollback is guaranteed, so restore the stake and abort.
			pos.Amount = pos.Amount.Add(amount)
			pos.RewardDebt = accShare(pos.Amount, pool)
			return fmt.Errorf("%w: stake return: %w", ErrTransferFailed, err)
		}
	}

	pos.RewardDebt = accShare(pos.Amount, pool)
	f.publishWithdraw(caller, id, amount, now)
	return nil
}

// EmergencyWithdraw returns the entire stake immediately and forfeits any
// pending entitlement. No accrual, no mint, no referral payment; this path
// must keep working even when the reward payout path is broken.
func (f *Farm) EmergencyWithdraw(caller types.Account, id types.PoolID) error {
	if err := f.acquire(); err != nil {
		return err
	}
	defer f.release()

	pool, err := f.poolLocked(id)
	if err != nil {
		return err
	}

	pos := f.positionLocked(id, caller)
	amount := pos.Amount
	previousDebt := pos.RewardDebt
	pos.Amount = sdkmath.ZeroInt()
	pos.RewardDebt = sdkmath.ZeroInt()

	if amount.IsPositive() {
		if err := f.bank.Transfer(f.account, caller, pool.StakeDenom, amount); err != nil {
			pos.Amount = amount
			pos.RewardDebt = previousDebt
			return fmt.Errorf("%w: emergency stake return: %w", ErrTransferFailed, err)
		}
	}

	f.publishEmergencyWithdraw(caller, id, amount, f.clock.Now())
	return nil
}

// refundPullLocked returns an already-pulled stake amount to the caller after
// a later step of the deposit failed, so the aborted operation leaves no stake
// stranded in the engine account. A refund failure can only be logged; the
// deposit's own error is the one surfaced. Assumes the lock is held.
func (f *Farm) refundPullLocked(caller types.Account, denom string, amount sdkmath.Int) {
	if !amount.IsPositive() {
		return
	}
	if err := f.bank.Transfer(f.account, caller, denom, amount); err != nil {
		f.logger.Error().Err(err).
			Str("caller", string(caller)).
			Str("denom", denom).
			Str("amount", amount.String()).
			Msg("Failed to refund pulled stake after aborted deposit")
	}
}

// settlePendingLocked realizes the position's pending entitlement: the payout
// is clamped to the engine's spendable reward balance (the safe transfer
// guard), and a recorded referrer earns an additive commission minted on top
// of the unclamped pending amount. The reward debt re-anchors as soon as the
// payout transfer succeeds, before the commission mint, so a failure in any
// later external call can never double-count the entitlement on resubmit.
// Assumes the lock is held.
func (f *Farm) settlePendingLocked(pos *types.Position, pool *types.Pool, step uint64) error {
	pending := accShare(pos.Amount, pool).Sub(pos.RewardDebt)
	if !pending.IsPositive() {
		return nil
	}

	payout := pending
	spendable := f.bank.BalanceOf(f.account, f.rewardDenom)
	if payout.GT(spendable) {
		// Cumulative rounding shortfall from repeated fixed-point division.
		payout = spendable
	}
	if payout.IsPositive() {
		if err := f.bank.Transfer(f.account, pos.Account, f.rewardDenom, payout); err != nil {
			return fmt.Errorf("%w: reward payout: %w", ErrTransferFailed, err)
		}
	}
	pos.RewardDebt = accShare(pos.Amount, pool)

	if f.commissionBP == 0 {
		return nil
	}
	referrer := f.referrals.ReferrerOf(pos.Account)
	if referrer.IsEmpty() || referrer == pos.Account {
		return nil
	}
	commission := utils.BasisPointsOf(pending, f.commissionBP)
	if !commission.IsPositive() {
		return nil
	}
	if err := f.bank.Mint(referrer, f.rewardDenom, commission); err != nil {
		return fmt.Errorf("%w: referral commission mint: %w", ErrTransferFailed, err)
	}
	f.publishCommission(pos.Account, referrer, pos.PoolID, commission, step)
	return nil
}
