package weighing

import "math"

// Granularity is the commercial rounding step for scale weights, in kg.
const Granularity = 5

// RoundToGranularity rounds a weight to the nearest multiple of
// Granularity. Weights of 20 kg or less are returned unchanged so that
// near-zero readings are not distorted; negative input collapses to 0.
func RoundToGranularity(weight int) int {
	return roundWeight(float64(weight))
}

// roundWeight is the float-input variant used by the discount splitter,
// where the product net*fraction can land exactly on a half step.
// Ties round half-to-even: 12.5/5 = 2.5 -> 2 -> 10, 17.5/5 = 3.5 -> 4 -> 20.
func roundWeight(weight float64) int {
	if weight <= 0 {
		return 0
	}
	if weight <= 20 {
		return int(weight)
	}
	return int(math.RoundToEven(weight/Granularity) * Granularity)
}
