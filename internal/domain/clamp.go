package domain

import "math"

// ClampStrength forces v into [0, 100]. NaN becomes 0.
func ClampStrength(v float64) float64 {
	return clamp(v, 0, 100)
}

// ClampUnit forces v into [0, 1]. NaN becomes 0.
func ClampUnit(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
