package genotype

import "math/rand"

// CreateWeight draws a gaussian weight with the structure's spread, clamped to
// the weight cap when one is configured.
func CreateWeight(rng *rand.Rand, s Structure) float64 {
	rng = ensureRNG(rng)
	return CapWeight(rng.NormFloat64()*s.WeightStdDev, s.WeightCap)
}

// PerturbWeight adds gaussian noise to weight and re-applies the cap.
func PerturbWeight(rng *rand.Rand, s Structure, weight float64) float64 {
	rng = ensureRNG(rng)
	return CapWeight(weight+rng.NormFloat64()*s.WeightStdDev, s.WeightCap)
}

func CapWeight(weight, limit float64) float64 {
	if limit <= 0 {
		return weight
	}
	if weight > limit {
		return limit
	}
	if weight < -limit {
		return -limit
	}
	return weight
}
