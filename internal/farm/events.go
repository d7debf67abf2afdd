package farm

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stakeworks/farmd/internal/types"
)

// EventSink receives the structured events of the observability surface.
// Publish is called synchronously with the ledger lock held, so sinks must be
// fast and must never call back into the engine.
type EventSink interface {
	Publish(event types.FarmEvent)
}

// LogSink publishes events to the component logger. Used as the default sink
// when no journal is wired in.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Publish(event types.FarmEvent) {
	s.Logger.Info().
		Str("event_id", event.EventID).
		Str("type", string(event.Type)).
		Str("actor", string(event.Actor)).
		Uint64("pool_id", uint64(event.PoolID)).
		Str("amount", event.Amount.String()).
		Uint64("step", event.Step).
		Msg("farm event")
}

func newEvent(t types.FarmEventType, actor types.Account, pool types.PoolID, amount sdkmath.Int, step uint64) types.FarmEvent {
	return types.FarmEvent{
		EventID:   uuid.New().String(),
		Type:      t,
		Actor:     actor,
		PoolID:    pool,
		Amount:    amount,
		Step:      step,
		Timestamp: time.Now().UTC(),
	}
}

func (f *Farm) publishDeposit(actor types.Account, pool types.PoolID, net sdkmath.Int, step uint64) {
	f.events.Publish(newEvent(types.EventDeposit, actor, pool, net, step))
}

func (f *Farm) publishWithdraw(actor types.Account, pool types.PoolID, amount sdkmath.Int, step uint64) {
	f.events.Publish(newEvent(types.EventWithdraw, actor, pool, amount, step))
}

func (f *Farm) publishEmergencyWithdraw(actor types.Account, pool types.PoolID, amount sdkmath.Int, step uint64) {
	f.events.Publish(newEvent(types.EventEmergencyWithdraw, actor, pool, amount, step))
}

func (f *Farm) publishCommission(participant, referrer types.Account, pool types.PoolID, commission sdkmath.Int, step uint64) {
	event := newEvent(types.EventReferralCommission, participant, pool, commission, step)
	event.Referrer = referrer
	f.events.Publish(event)
}

func (f *Farm) publishRateChange(oldRate, newRate sdkmath.Int, step uint64) {
	event := newEvent(types.EventEmissionRateChange, types.NoAccount, 0, sdkmath.ZeroInt(), step)
	event.OldRate = &oldRate
	event.NewRate = &newRate
	f.events.Publish(event)
}
