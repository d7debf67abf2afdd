/*

This file contains the maintenance service: a background loop that keeps the
emission schedule current and persists pool/position snapshots and emission
state for the dashboard and off-line inspection. The loop is purely
operational; ledger correctness never depends on it running, or on how often.

*/

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stakeworks/farmd/internal/farm"
	"github.com/stakeworks/farmd/internal/logger"
	"github.com/stakeworks/farmd/internal/state"
)

// Service drives periodic maintenance against one farm engine.
type Service struct {
	logger     zerolog.Logger
	farm       *farm.Farm
	persist    bool // snapshot persistence on/off (requires an initialized DB)
	cycleCount int
}

// Config holds the configuration for creating a new Service instance.
type Config struct {
	Farm    *farm.Farm
	Persist bool
}

// NewService creates a maintenance service with dependency injection.
func NewService(cfg Config) (*Service, error) {
	if cfg.Farm == nil {
		return nil, fmt.Errorf("farm engine cannot be nil")
	}
	return &Service{
		logger:  logger.GetForComponent("maintenance_service"),
		farm:    cfg.Farm,
		persist: cfg.Persist,
	}, nil
}

// RunLoop runs maintenance cycles on the given interval until ctx is
// cancelled. The first cycle runs immediately.
func (s *Service) RunLoop(ctx context.Context, interval time.Duration) {
	s.logger.Info().Dur("interval", interval).Msg("Starting maintenance loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCycle()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Maintenance loop stopped due to context cancellation")
			return
		case <-ticker.C:
			s.runCycle()
		}
	}
}

// runCycle executes one maintenance cycle: emission update, then snapshots.
func (s *Service) runCycle() {
	s.cycleCount++
	cycleID := uuid.New().String()
	cycleLogger := s.logger.With().Str("cycle_id", cycleID).Int("cycle", s.cycleCount).Logger()

	cycleStart := time.Now()
	cycleLogger.Debug().Msg("Starting maintenance cycle")

	if err := s.farm.UpdateEmissionRate(); err != nil {
		if errors.Is(err, farm.ErrLedgerBusy) {
			// A caller beat us to the writer slot; the next cycle retries.
			cycleLogger.Debug().Msg("Ledger busy, skipping emission update this cycle")
		} else {
			cycleLogger.Error().Err(err).Msg("Emission update failed")
		}
	}

	if s.persist {
		s.persistSnapshots(cycleLogger)
	}

	cycleLogger.Debug().
		Dur("elapsed", time.Since(cycleStart)).
		Msg("Maintenance cycle completed")
}

func (s *Service) persistSnapshots(cycleLogger zerolog.Logger) {
	poolSnaps, err := s.farm.PoolSnapshots()
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Skipping pool snapshots")
	} else if err := state.SavePoolSnapshots(poolSnaps); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to persist pool snapshots")
	}

	positionSnaps, err := s.farm.PositionSnapshots()
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Skipping position snapshots")
	} else if err := state.SavePositionSnapshots(positionSnaps); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to persist position snapshots")
	}

	emission, err := s.farm.EmissionState()
	if err != nil {
		cycleLogger.Warn().Err(err).Msg("Skipping emission state persistence")
	} else if err := state.SaveEmissionState(emission); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to persist emission state")
	}
}
