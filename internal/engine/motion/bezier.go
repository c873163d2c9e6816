package motion

import "github.com/Faultbox/mmd-pose/pkg/math"

// DefaultEaseIterations bounds the curve inversion in Ease.
const DefaultEaseIterations = 12

// easeTolerance is the residual at which the inversion stops early.
const easeTolerance = 0.0005

// Ease maps a linear time fraction x in [0,1] through the unit cubic Bezier
// curve with inner control points p1 and p2. It finds the curve parameter
// whose x coordinate is x with a damped Newton step seeded at x, then returns
// the curve's y coordinate there. The result is approximate: the search stops
// once the residual is within 0.0005 or after maxIterations steps
// (DefaultEaseIterations if maxIterations <= 0).
func Ease(x float32, p1, p2 math.Vec2, maxIterations int) float32 {
	if p1.OnDiagonal() && p2.OnDiagonal() {
		return x
	}
	if maxIterations <= 0 {
		maxIterations = DefaultEaseIterations
	}

	k0 := 1 + 3*p1.X - 3*p2.X
	k1 := 3*p2.X - 6*p1.X
	k2 := 3 * p1.X

	t := x
	for i := 0; i < maxIterations; i++ {
		ft := k0*t*t*t + k1*t*t + k2*t - x
		if ft <= easeTolerance && ft >= -easeTolerance {
			break
		}
		t -= ft / 2
	}

	r := 1 - t
	return t*t*t + 3*t*t*r*p2.Y + 3*t*r*r*p1.Y
}
