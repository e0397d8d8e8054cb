package services

import (
	"math"

	"meritbot/domain/entities"
)

// Curve widths for the decay curve. The two call sites intentionally use
// different widths: the burn pool saturates at 4 standard deviations while an
// individual's own decay saturates at 10.
const (
	BurnCurveWidth  = 4
	DecayCurveWidth = 10
)

// DecayRate computes the per-round decay rate for a reputation value.
//
// The curve is minDecay + (maxDecay-minDecay) * tan(pct^5)/tan(1) with
// pct = min(1, reputation/(sd*curveWidth)): flat near the floor, steep as a
// member approaches curveWidth standard deviations of the population spread,
// capped at maxDecay from there on.
func DecayRate(reputation, minDecay, maxDecay, sd, curveWidth float64) float64 {
	if sd*curveWidth <= 0 {
		return minDecay
	}
	pct := math.Min(1, reputation/(sd*curveWidth))
	return minDecay + (maxDecay-minDecay)*math.Tan(math.Pow(pct, 5))/math.Tan(1)
}

// ReputationStdDev computes the sample standard deviation of the reputation
// snapshots shift rounds in the past, over members strictly above the
// default-reputation floor. AFK members parked at the floor would otherwise
// flatten the spread. With fewer than two qualifying members the spread is
// undefined and the default reputation is used instead.
func ReputationStdDev(users map[string]*entities.User, shift int, defaultReputation float64) float64 {
	var sample []float64
	for _, u := range users {
		if r, ok := u.ReputationAt(shift); ok && r > defaultReputation {
			sample = append(sample, r)
		}
	}
	if len(sample) < 2 {
		return defaultReputation
	}

	var mean float64
	for _, r := range sample {
		mean += r
	}
	mean /= float64(len(sample))

	var sumSq float64
	for _, r := range sample {
		d := r - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(sample)-1))
}
