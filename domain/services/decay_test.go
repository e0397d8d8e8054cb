package services

import (
	"math"
	"testing"

	"meritbot/domain/entities"

	"github.com/stretchr/testify/assert"
)

func TestDecayRate_FloorAndCeiling(t *testing.T) {
	t.Parallel()

	// Zero reputation decays at the minimum rate
	assert.InDelta(t, 0.05, DecayRate(0, 0.05, 0.2, 2, BurnCurveWidth), 1e-9)

	// At curveWidth standard deviations the curve saturates at the maximum
	assert.InDelta(t, 0.2, DecayRate(8, 0.05, 0.2, 2, BurnCurveWidth), 1e-9)

	// Beyond saturation the rate stays capped
	assert.InDelta(t, 0.2, DecayRate(100, 0.05, 0.2, 2, BurnCurveWidth), 1e-9)
}

func TestDecayRate_MonotonicallyNondecreasing(t *testing.T) {
	t.Parallel()

	prev := math.Inf(-1)
	for r := 0.0; r <= 30; r += 0.25 {
		rate := DecayRate(r, 0.05, 0.2, 2, DecayCurveWidth)
		assert.GreaterOrEqual(t, rate, prev, "rate must not decrease at reputation %v", r)
		assert.GreaterOrEqual(t, rate, 0.05)
		assert.LessOrEqual(t, rate, 0.2+1e-9)
		prev = rate
	}
}

func TestDecayRate_ZeroSpreadFallsBackToMinimum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.05, DecayRate(42, 0.05, 0.2, 0, BurnCurveWidth))
}

func TestReputationStdDev_SampleStdDevAboveFloor(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"a": testUser("discord-a", 3),
		"b": testUser("discord-b", 5),
		// Members parked at the floor are excluded from the spread
		"c": testUser("discord-c", 1),
		"d": testUser("discord-d", 1),
	}

	// Sample stddev of {3, 5} with mean 4
	assert.InDelta(t, math.Sqrt2, ReputationStdDev(users, 0, 1), 1e-9)
}

func TestReputationStdDev_TooFewSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		users map[string]*entities.User
	}{
		{name: "no users", users: map[string]*entities.User{}},
		{name: "single member above floor", users: map[string]*entities.User{
			"a": testUser("discord-a", 7),
		}},
		{name: "everyone at the floor", users: map[string]*entities.User{
			"a": testUser("discord-a", 1),
			"b": testUser("discord-b", 1),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 1.0, ReputationStdDev(tt.users, 0, 1))
		})
	}
}

func TestReputationStdDev_RespectsShift(t *testing.T) {
	t.Parallel()

	users := map[string]*entities.User{
		"a": testUser("discord-a", 3, 100),
		"b": testUser("discord-b", 5, 100),
	}

	// One round back the sample is {3, 5}, not {100, 100}
	assert.InDelta(t, math.Sqrt2, ReputationStdDev(users, 1, 1), 1e-9)
}
