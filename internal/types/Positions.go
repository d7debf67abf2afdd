/*

This file contains the types for staking positions: the per (pool, participant)
bookkeeping that converts accumulator growth into exact entitlements.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Position is the stake/debt record for one participant in one pool.
// Immediately after any mutation the invariant
//
//	RewardDebt == Amount * pool.AccRewardPerShare / AccScale
//
// holds exactly; between mutations the difference of those two terms is the
// participant's pending entitlement.
type Position struct {
	PoolID     PoolID      `json:"pool_id"`
	Account    Account     `json:"account"`
	Amount     sdkmath.Int `json:"amount"`      // staked amount net of tax and deposit fee
	RewardDebt sdkmath.Int `json:"reward_debt"` // accumulator-scaled amount already accounted for
}

// PositionSnapshot is the persisted projection of a position, written by the
// service loop alongside pool snapshots.
type PositionSnapshot struct {
	SnapshotID int64       `json:"snapshot_id,omitempty"`
	PoolID     PoolID      `json:"pool_id"`
	Account    Account     `json:"account"`
	Amount     sdkmath.Int `json:"amount"`
	RewardDebt sdkmath.Int `json:"reward_debt"`
	Pending    sdkmath.Int `json:"pending"`
	Step       uint64      `json:"step"`
}
