// ./internal/state/snapshot_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/farmd/internal/types"
)

// SavePoolSnapshots persists one row per pool inside a single transaction.
func SavePoolSnapshots(snapshots []types.PoolSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO pool_snapshots (
			pool_id, stake_denom, alloc_weight, last_reward_step,
			acc_reward_per_share, deposit_fee_bp, staked_balance, step
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, s := range snapshots {
		if _, err := tx.Exec(
			query,
			uint64(s.PoolID), s.StakeDenom, s.AllocWeight.String(), s.LastRewardStep,
			s.AccRewardPerShare.String(), s.DepositFeeBP, s.StakedBalance.String(), s.Step,
		); err != nil {
			return fmt.Errorf("failed to insert pool snapshot for pool %d: %w", s.PoolID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pool snapshots: %w", err)
	}

	log.Debug().Int("pools", len(snapshots)).Msg("Pool snapshots saved to database")
	return nil
}

// SavePositionSnapshots persists one row per position inside a single transaction.
func SavePositionSnapshots(snapshots []types.PositionSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO position_snapshots (
			pool_id, account, amount, reward_debt, pending, step
		) VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, s := range snapshots {
		if _, err := tx.Exec(
			query,
			uint64(s.PoolID), string(s.Account), s.Amount.String(),
			s.RewardDebt.String(), s.Pending.String(), s.Step,
		); err != nil {
			return fmt.Errorf("failed to insert position snapshot for %s in pool %d: %w", s.Account, s.PoolID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit position snapshots: %w", err)
	}

	log.Debug().Int("positions", len(snapshots)).Msg("Position snapshots saved to database")
	return nil
}

// GetLatestPoolSnapshots retrieves the newest snapshot row for each pool.
func GetLatestPoolSnapshots() ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT DISTINCT ON (pool_id)
			snapshot_id, pool_id, stake_denom, alloc_weight, last_reward_step,
			acc_reward_per_share, deposit_fee_bp, staked_balance, step
		FROM pool_snapshots
		ORDER BY pool_id, snapshot_id DESC;
	`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.PoolSnapshot
	for rows.Next() {
		var s types.PoolSnapshot
		var poolID uint64
		var weightStr, accStr, stakedStr string
		if err := rows.Scan(
			&s.SnapshotID, &poolID, &s.StakeDenom, &weightStr, &s.LastRewardStep,
			&accStr, &s.DepositFeeBP, &stakedStr, &s.Step,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pool snapshot row: %w", err)
		}
		s.PoolID = types.PoolID(poolID)
		var ok bool
		if s.AllocWeight, ok = sdkmath.NewIntFromString(weightStr); !ok {
			return nil, fmt.Errorf("invalid persisted alloc weight: %q", weightStr)
		}
		if s.AccRewardPerShare, ok = sdkmath.NewIntFromString(accStr); !ok {
			return nil, fmt.Errorf("invalid persisted accumulator: %q", accStr)
		}
		if s.StakedBalance, ok = sdkmath.NewIntFromString(stakedStr); !ok {
			return nil, fmt.Errorf("invalid persisted staked balance: %q", stakedStr)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pool snapshot rows: %w", err)
	}

	return snapshots, nil
}
