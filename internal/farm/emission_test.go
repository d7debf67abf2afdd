package farm

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/stakeworks/farmd/internal/types"
)

func TestDecayAppliesPerPeriod(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)

	env.clock.step = 10
	require.NoError(t, env.farm.UpdateEmissionRate())

	state, err := env.farm.EmissionState()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(720), state.RatePerStep) // 800 * 0.9
	require.Equal(t, uint64(1), state.LastDecayIndex)
}

func TestDecayMultiPeriodJumpMatchesStepwise(t *testing.T) {
	stepped := newTestEnv(t, defaultEmission(), 0)
	for _, step := range []uint64{10, 20, 30} {
		stepped.clock.step = step
		require.NoError(t, stepped.farm.UpdateEmissionRate())
	}

	jumped := newTestEnv(t, defaultEmission(), 0)
	jumped.clock.step = 30
	require.NoError(t, jumped.farm.UpdateEmissionRate())

	a, err := stepped.farm.EmissionState()
	require.NoError(t, err)
	b, err := jumped.farm.EmissionState()
	require.NoError(t, err)

	require.Equal(t, a.RatePerStep, b.RatePerStep)
	require.Equal(t, a.LastDecayIndex, b.LastDecayIndex)
	require.Equal(t, sdkmath.NewInt(583), a.RatePerStep) // trunc(800 * 0.9^3)
}

func TestDecayClampsAtFloor(t *testing.T) {
	params := defaultEmission()
	params.MinRatePerStep = sdkmath.NewInt(650)
	env := newTestEnv(t, params, 0)

	// Period 2 decays to trunc(800*0.81)=648, clamped up to the floor.
	env.clock.step = 20
	require.NoError(t, env.farm.UpdateEmissionRate())

	state, err := env.farm.EmissionState()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(650), state.RatePerStep)
	require.Equal(t, uint64(2), state.LastDecayIndex)

	// Further periods cannot move the rate below the floor; nothing commits.
	env.clock.step = 70
	require.NoError(t, env.farm.UpdateEmissionRate())

	state, err = env.farm.EmissionState()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(650), state.RatePerStep)
	require.Equal(t, uint64(2), state.LastDecayIndex)
}

func TestDecayNoOpInsideCurrentPeriod(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)

	env.clock.step = 9
	require.NoError(t, env.farm.UpdateEmissionRate())

	state, err := env.farm.EmissionState()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(800), state.RatePerStep)
	require.Equal(t, uint64(0), state.LastDecayIndex)
}

func TestDecayIsIdempotentWithinPeriod(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)

	env.clock.step = 10
	require.NoError(t, env.farm.UpdateEmissionRate())
	before, err := env.farm.EmissionState()
	require.NoError(t, err)

	// Hammering the same period from arbitrary callers changes nothing.
	for i := 0; i < 5; i++ {
		require.NoError(t, env.farm.UpdateEmissionRate())
	}
	after, err := env.farm.EmissionState()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestDecayCheckpointsPoolsAtOldRate(t *testing.T) {
	env := newTestEnv(t, defaultEmission(), 0)
	id := env.addPool(100, testStakeDenom, 0)

	env.fund(alice, testStakeDenom, 1000)
	env.deposit(alice, id, 1000)

	// The rate change lands mid-window at step 15: the whole 0..15 window
	// accrues at the old 800, only steps after 15 run at 720.
	env.clock.step = 15
	require.NoError(t, env.farm.UpdateEmissionRate())

	pending, err := env.farm.PendingReward(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(15*800), pending)

	env.clock.step = 20
	pending, err = env.farm.PendingReward(id, alice)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(15*800+5*720), pending)
}

func TestDecayPublishesRateChangeEvent(t *testing.T) {
	sink := &captureSink{}
	env := newTestEnvWithSink(t, defaultEmission(), 0, sink)

	env.clock.step = 10
	require.NoError(t, env.farm.UpdateEmissionRate())

	events := sink.byType(types.EventEmissionRateChange)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].OldRate)
	require.NotNil(t, events[0].NewRate)
	require.Equal(t, sdkmath.NewInt(800), *events[0].OldRate)
	require.Equal(t, sdkmath.NewInt(720), *events[0].NewRate)
	require.Equal(t, uint64(10), events[0].Step)
}
