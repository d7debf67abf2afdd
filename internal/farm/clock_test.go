package farm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStepClockDerivesStepsFromWallTime(t *testing.T) {
	now := time.Now().Unix()

	c := StepClock{GenesisUnix: now - 7200, StepSeconds: 3600}
	require.Equal(t, uint64(2), c.Now())

	// Pre-genesis and misconfigured clocks collapse to step zero.
	require.Equal(t, uint64(0), StepClock{GenesisUnix: now + 3600, StepSeconds: 60}.Now())
	require.Equal(t, uint64(0), StepClock{GenesisUnix: now - 7200, StepSeconds: 0}.Now())
}
