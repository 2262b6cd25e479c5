package schedule

import "math"

// Lerp interpolates linearly from a (t=0) to b (t=1).
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SquareLerp interpolates the squares of a and b and returns the root. The
// curve stays closer to a for longer than a plain Lerp when a > b.
func SquareLerp(a, b, t float64) float64 {
	return math.Sqrt(Lerp(a*a, b*b, t))
}

// LogLerp interpolates in log space. Non-positive endpoints have no
// logarithm, so those fall back to Lerp.
func LogLerp(a, b, t float64) float64 {
	if a <= 0 || b <= 0 {
		return Lerp(a, b, t)
	}
	return math.Exp(Lerp(math.Log(a), math.Log(b), t))
}
