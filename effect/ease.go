package effect

import "math"

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// smootherstep for ease="cubic"
func smootherstep(x float64) float64 {
	// 6x^5 - 15x^4 + 10x^3
	return x * x * x * (x*(x*6-15) + 10)
}

func (e Ease) apply(x float64) float64 {
	x = clamp01(x)
	switch e {
	case Smooth:
		// classic smoothstep 3x^2 - 2x^3
		return x * x * (3 - 2*x)
	case Cubic:
		return smootherstep(x)
	default:
		return x
	}
}

func (e Ease) valid() bool {
	switch e {
	case "", Linear, Smooth, Cubic:
		return true
	}
	return false
}

// lerp moves from a to b by step k of n. Linear keeps integer arithmetic so
// every intermediate value is exact.
func (e Ease) lerp(a, b uint8, k, n int) uint8 {
	if e == "" || e == Linear {
		return uint8((int(a)*n + k*(int(b)-int(a))) / n)
	}
	u := e.apply(float64(k) / float64(n))
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*u))
}
