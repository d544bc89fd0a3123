package orbit

import (
	"math"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

// DefaultSegments is the number of segments used for drawn orbit paths.
const DefaultSegments = 128

// SampleOrbitPath returns segments+1 points of the ellipse in its own plane
// (y = 0), using the polar form r(θ) = a(1-e²)/(1+e·cos θ) with θ uniformly
// spaced over [0, 2π]. The last point is the first point, closing the loop.
// With zero segments the path is the single point at θ = 0; it returns nil
// when segments is negative.
//
// The path is the orbit's shape only. Inclination is applied to the whole
// path afterwards with TiltPath, which rotates about a different axis than
// the per-point tilt of the solver.
func SampleOrbitPath(a, e float64, segments int) []physics.Vector3 {
	if segments < 0 {
		return nil
	}

	p := a * (1 - e*e)
	if segments == 0 {
		return []physics.Vector3{{X: p / (1 + e)}}
	}

	points := make([]physics.Vector3, segments+1)
	for i := 0; i < segments; i++ {
		theta := float64(i) / float64(segments) * 2 * math.Pi
		sin, cos := math.Sincos(theta)
		r := p / (1 + e*cos)
		points[i] = physics.Vector3{X: r * cos, Y: 0, Z: r * sin}
	}
	points[segments] = points[0]
	return points
}

// TiltPath returns a copy of points rotated as one object by the inclination
// about the z axis.
func TiltPath(points []physics.Vector3, inclinationDeg float64) []physics.Vector3 {
	angle := DegToRad(inclinationDeg)
	tilted := make([]physics.Vector3, len(points))
	for i, p := range points {
		tilted[i] = p.RotateZ(angle)
	}
	return tilted
}
