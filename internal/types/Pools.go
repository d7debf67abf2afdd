/*

This is a custom type for staking pools which contains all the state needed for
reward accrual and fee handling.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// Account identifies a participant, sink, or the engine itself. The ledger does
// not authenticate accounts; callers arrive pre-authenticated.
type Account string

// NoAccount is the absent account (no referrer recorded, unset sink, etc.).
const NoAccount Account = ""

func (a Account) IsEmpty() bool {
	return a == NoAccount
}

type Pool struct {
	ID                PoolID      `json:"id"`
	StakeDenom        string      `json:"stake_denom"`         // asset staked into this pool, possibly the reward denom itself
	AllocWeight       sdkmath.Int `json:"alloc_weight"`        // share of emission relative to the registry's total weight
	LastRewardStep    uint64      `json:"last_reward_step"`    // accrual checkpoint, never exceeds the current step
	AccRewardPerShare sdkmath.Int `json:"acc_reward_per_share"` // fixed-point, scaled by AccScale, monotonically non-decreasing
	DepositFeeBP      uint64      `json:"deposit_fee_bp"`      // basis points, capped at MaxDepositFeeBP
}

// PoolSnapshot is the persisted projection of a pool at a given step, written
// by the service loop for off-line inspection.
type PoolSnapshot struct {
	SnapshotID        int64       `json:"snapshot_id,omitempty"`
	PoolID            PoolID      `json:"pool_id"`
	StakeDenom        string      `json:"stake_denom"`
	AllocWeight       sdkmath.Int `json:"alloc_weight"`
	LastRewardStep    uint64      `json:"last_reward_step"`
	AccRewardPerShare sdkmath.Int `json:"acc_reward_per_share"`
	DepositFeeBP      uint64      `json:"deposit_fee_bp"`
	StakedBalance     sdkmath.Int `json:"staked_balance"`
	Step              uint64      `json:"step"`
}
