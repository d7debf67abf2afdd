package farm

import "time"

// Clock supplies the current time step. Steps are the ledger's only notion of
// time: monotonically non-decreasing, block-number-like.
type Clock interface {
	Now() uint64
}

// StepClock derives steps from wall time: one step every StepSeconds since
// GenesisUnix. Steps before genesis collapse to zero.
type StepClock struct {
	GenesisUnix int64
	StepSeconds int64
}

var _ Clock = StepClock{}

func (c StepClock) Now() uint64 {
	now := time.Now().Unix()
	if now <= c.GenesisUnix || c.StepSeconds <= 0 {
		return 0
	}
	return uint64((now - c.GenesisUnix) / c.StepSeconds)
}
