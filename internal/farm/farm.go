/*

This file contains the farm engine: one explicit owned store for pools,
positions and the emission schedule, with every state-changing entry point
serialized behind a single mutual-exclusion boundary.

*/

package farm

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/stakeworks/farmd/internal/assets"
	"github.com/stakeworks/farmd/internal/auth"
	"github.com/stakeworks/farmd/internal/config"
	"github.com/stakeworks/farmd/internal/logger"
	"github.com/stakeworks/farmd/internal/referral"
	"github.com/stakeworks/farmd/internal/types"
)

type positionKey struct {
	pool    types.PoolID
	account types.Account
}

// Farm owns the entire mutable ledger state. Mutating entry points acquire the
// write slot without blocking: an operation arriving while another is in
// flight, including a reentrant call made from inside a collaborator callback,
// is rejected with ErrLedgerBusy before it can observe half-applied state.
type Farm struct {
	mu     sync.RWMutex
	logger zerolog.Logger

	bank      assets.Bank
	referrals referral.Registry
	gate      *auth.Gate
	clock     Clock
	events    EventSink

	rewardDenom string
	account     types.Account // the engine's own bank account
	startStep   uint64

	params   types.EmissionParams
	emission types.EmissionState

	pools            []*types.Pool
	totalAllocWeight sdkmath.Int
	positions        map[positionKey]*types.Position

	commissionBP uint64
}

// Config holds the construction parameters for a Farm.
type Config struct {
	Bank      assets.Bank
	Referrals referral.Registry
	Gate      *auth.Gate
	Clock     Clock
	Events    EventSink // optional; defaults to a log sink

	RewardDenom   string
	EngineAccount types.Account
	StartStep     uint64

	Emission     types.EmissionParams
	CommissionBP uint64

	// Resume restores a previously persisted emission state instead of
	// starting from the initial rate, e.g. after a restart.
	Resume *types.EmissionState
}

// NewFarm creates a farm engine with dependency injection. The reward denom
// and start step are fixed for the life of the engine.
func NewFarm(cfg Config) (*Farm, error) {
	if err := validateFarmConfig(cfg); err != nil {
		return nil, fmt.Errorf("farm configuration validation failed: %w", err)
	}

	componentLogger := logger.GetForComponent("farm_engine")
	events := cfg.Events
	if events == nil {
		events = LogSink{Logger: componentLogger}
	}

	f := &Farm{
		logger:      componentLogger,
		bank:        cfg.Bank,
		referrals:   cfg.Referrals,
		gate:        cfg.Gate,
		clock:       cfg.Clock,
		events:      events,
		rewardDenom: cfg.RewardDenom,
		account:     cfg.EngineAccount,
		startStep:   cfg.StartStep,
		params:      cfg.Emission,
		emission: types.EmissionState{
			RatePerStep:    cfg.Emission.InitialRatePerStep,
			LastDecayIndex: 0,
		},
		totalAllocWeight: sdkmath.ZeroInt(),
		positions:        make(map[positionKey]*types.Position),
		commissionBP:     cfg.CommissionBP,
	}

	if cfg.Resume != nil {
		if cfg.Resume.RatePerStep.IsNil() || cfg.Resume.RatePerStep.IsNegative() ||
			cfg.Resume.RatePerStep.GT(cfg.Emission.InitialRatePerStep) {
			return nil, fmt.Errorf("%w: resumed emission rate out of range", ErrInvalidConfiguration)
		}
		f.emission = *cfg.Resume
	}

	f.logger.Info().
		Str("reward_denom", f.rewardDenom).
		Uint64("start_step", f.startStep).
		Str("initial_rate", f.emission.RatePerStep.String()).
		Msg("Farm engine created")

	return f, nil
}

func validateFarmConfig(cfg Config) error {
	if cfg.Bank == nil {
		return fmt.Errorf("%w: bank cannot be nil", ErrInvalidConfiguration)
	}
	if cfg.Referrals == nil {
		return fmt.Errorf("%w: referral registry cannot be nil", ErrInvalidConfiguration)
	}
	if cfg.Gate == nil {
		return fmt.Errorf("%w: authorization gate cannot be nil", ErrInvalidConfiguration)
	}
	if cfg.Clock == nil {
		return fmt.Errorf("%w: clock cannot be nil", ErrInvalidConfiguration)
	}
	if cfg.RewardDenom == "" {
		return fmt.Errorf("%w: reward denom cannot be empty", ErrInvalidConfiguration)
	}
	if cfg.EngineAccount.IsEmpty() {
		return fmt.Errorf("%w: engine account cannot be empty", ErrInvalidConfiguration)
	}
	if cfg.Emission.InitialRatePerStep.IsNil() || cfg.Emission.InitialRatePerStep.IsNegative() {
		return fmt.Errorf("%w: initial emission rate must be non-negative", ErrInvalidConfiguration)
	}
	if cfg.Emission.MinRatePerStep.IsNil() || cfg.Emission.MinRatePerStep.IsNegative() {
		return fmt.Errorf("%w: minimum emission rate must be non-negative", ErrInvalidConfiguration)
	}
	if cfg.Emission.MinRatePerStep.GT(cfg.Emission.InitialRatePerStep) {
		return fmt.Errorf("%w: minimum emission rate exceeds the initial rate", ErrInvalidConfiguration)
	}
	if cfg.Emission.DecayPeriodSteps == 0 {
		return fmt.Errorf("%w: decay period must be at least one step", ErrInvalidConfiguration)
	}
	if cfg.Emission.DecayBP >= config.BasisPointDenom {
		return fmt.Errorf("%w: decay of %d bp would zero the rate in one period", ErrInvalidConfiguration, cfg.Emission.DecayBP)
	}
	if cfg.CommissionBP > config.MaxCommissionBP {
		return fmt.Errorf("%w: commission %d bp exceeds cap of %d bp", ErrInvalidConfiguration, cfg.CommissionBP, config.MaxCommissionBP)
	}
	return nil
}

// acquire claims the single writer slot without blocking.
func (f *Farm) acquire() error {
	if !f.mu.TryLock() {
		return ErrLedgerBusy
	}
	return nil
}

func (f *Farm) release() {
	f.mu.Unlock()
}

// acquireRead claims shared read access without blocking, so a read issued from
// inside an in-flight mutation is rejected instead of deadlocking.
func (f *Farm) acquireRead() error {
	if !f.mu.TryRLock() {
		return ErrLedgerBusy
	}
	return nil
}

func (f *Farm) releaseRead() {
	f.mu.RUnlock()
}

// poolLocked returns the pool for id. Assumes the lock is held.
func (f *Farm) poolLocked(id types.PoolID) (*types.Pool, error) {
	if uint64(id) >= uint64(len(f.pools)) {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownPool, id)
	}
	return f.pools[id], nil
}

// positionLocked returns the position for (id, account), creating it on first
// use. Positions persist at zero stake. Assumes the lock is held.
func (f *Farm) positionLocked(id types.PoolID, account types.Account) *types.Position {
	key := positionKey{pool: id, account: account}
	pos, ok := f.positions[key]
	if !ok {
		pos = &types.Position{
			PoolID:     id,
			Account:    account,
			Amount:     sdkmath.ZeroInt(),
			RewardDebt: sdkmath.ZeroInt(),
		}
		f.positions[key] = pos
	}
	return pos
}

// accShare is the accumulator-scaled value of amount: amount * acc / AccScale.
func accShare(amount sdkmath.Int, pool *types.Pool) sdkmath.Int {
	return amount.Mul(pool.AccRewardPerShare).Quo(config.AccScale)
}
