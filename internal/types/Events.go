/*

This file contains the structured event types emitted by the farm engine for
off-chain indexers. The engine never consumes its own events.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type FarmEventType string

const (
	EventDeposit            FarmEventType = "DEPOSIT"
	EventWithdraw           FarmEventType = "WITHDRAW"
	EventEmergencyWithdraw  FarmEventType = "EMERGENCY_WITHDRAW"
	EventEmissionRateChange FarmEventType = "EMISSION_RATE_CHANGE"
	EventReferralCommission FarmEventType = "REFERRAL_COMMISSION"
)

// FarmEvent carries actor identity, pool index (where applicable) and amounts.
// Amount holds the net deposited / withdrawn / commission amount; rate changes
// carry the old and the new emission rate instead.
type FarmEvent struct {
	EventID   string        `json:"event_id"`
	Type      FarmEventType `json:"type"`
	Actor     Account       `json:"actor,omitempty"`
	PoolID    PoolID        `json:"pool_id"`
	Amount    sdkmath.Int   `json:"amount"`
	Referrer  Account       `json:"referrer,omitempty"`
	OldRate   *sdkmath.Int  `json:"old_rate,omitempty"`
	NewRate   *sdkmath.Int  `json:"new_rate,omitempty"`
	Step      uint64        `json:"step"`
	Timestamp time.Time     `json:"timestamp"`
}
