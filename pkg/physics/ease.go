package physics

// EaseQuadraticOut maps linear progress t in [0,1] onto a decelerating curve.
// Values outside [0,1] are clamped.
func EaseQuadraticOut(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * (2 - t)
}
