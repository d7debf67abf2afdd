// ./internal/state/event_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/stakeworks/farmd/internal/types"
)

// SaveFarmEvent journals a single farm event.
func SaveFarmEvent(event types.FarmEvent) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	payloadJSON, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	var oldRate, newRate sql.NullString
	if event.OldRate != nil {
		oldRate = sql.NullString{String: event.OldRate.String(), Valid: true}
	}
	if event.NewRate != nil {
		newRate = sql.NullString{String: event.NewRate.String(), Valid: true}
	}

	query := `
		INSERT INTO farm_events (
			event_id, event_type, actor, pool_id, amount, referrer,
			old_rate, new_rate, step, event_timestamp, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING journal_id;
	`

	var journalID int64
	err = DB.QueryRow(
		query,
		event.EventID, string(event.Type), string(event.Actor), uint64(event.PoolID),
		event.Amount.String(), string(event.Referrer),
		oldRate, newRate, event.Step, event.Timestamp, payloadJSON,
	).Scan(&journalID)

	if err != nil {
		return 0, fmt.Errorf("failed to save farm event: %w", err)
	}

	return journalID, nil
}

// GetRecentEvents retrieves the most recent journal entries, newest first.
func GetRecentEvents(limit int) ([]types.FarmEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 500 {
		limit = 50 // Default limit
	}

	query := `
		SELECT payload
		FROM farm_events
		ORDER BY journal_id DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	events := make([]types.FarmEvent, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		var event types.FarmEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}

	return events, nil
}

// SaveEmissionState upserts the single-row emission state.
func SaveEmissionState(emission types.EmissionState) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO emission_state (id, rate_per_step, last_decay_index, updated_at)
		VALUES (1, $1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET rate_per_step = EXCLUDED.rate_per_step,
			last_decay_index = EXCLUDED.last_decay_index,
			updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := DB.Exec(query, emission.RatePerStep.String(), emission.LastDecayIndex); err != nil {
		return fmt.Errorf("failed to save emission state: %w", err)
	}
	return nil
}

// LoadEmissionState reads the persisted emission state. Returns sql.ErrNoRows
// when no state has ever been saved.
func LoadEmissionState() (types.EmissionState, error) {
	if DB == nil {
		return types.EmissionState{}, fmt.Errorf("database not initialized")
	}

	query := `SELECT rate_per_step, last_decay_index FROM emission_state WHERE id = 1;`

	var rateStr string
	var lastIndex uint64
	if err := DB.QueryRow(query).Scan(&rateStr, &lastIndex); err != nil {
		return types.EmissionState{}, err
	}

	rate, ok := sdkmath.NewIntFromString(rateStr)
	if !ok {
		return types.EmissionState{}, fmt.Errorf("invalid persisted rate: %q", rateStr)
	}
	return types.EmissionState{RatePerStep: rate, LastDecayIndex: lastIndex}, nil
}

// EventJournal is a farm event sink backed by the farm_events table. Journal
// failures are observability failures: they are logged and never surfaced into
// the ledger operation that emitted the event.
type EventJournal struct{}

func (EventJournal) Publish(event types.FarmEvent) {
	if _, err := SaveFarmEvent(event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.EventID).
			Str("type", string(event.Type)).
			Msg("Failed to journal farm event")
	}
}
