// Package orbit computes positions of bodies on fixed elliptical orbits.
//
// The solver is a pure function of the orbital elements and an elapsed time:
// it holds no state, never fails, and returns a best-effort estimate when the
// Newton-Raphson refinement hits its iteration cap. Validating elements is
// the job of whoever builds them (see package validation).
package orbit

import (
	"math"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

const (
	// Tolerance is the eccentric-anomaly step size at which refinement stops.
	Tolerance = 1e-6
	// MaxIterations bounds the Newton-Raphson refinement.
	MaxIterations = 10
)

// Solution holds the intermediate quantities of one solver evaluation.
type Solution struct {
	MeanAnomaly      float64 // radians, not reduced to [0, 2π)
	EccentricAnomaly float64 // radians
	TrueAnomaly      float64 // radians
	Radius           float64 // distance from the focus
	Planar           physics.Vector3
	Position         physics.Vector3
	Iterations       int
	Converged        bool
}

// SolvePosition returns the position at elapsed time t of a body with
// semi-major axis a, eccentricity e, period T and the given inclination.
//
// Preconditions are a > 0, 0 <= e < 1 and T > 0. t may be any real value;
// the orbit wraps through the trigonometric formulation.
func SolvePosition(a, e, t, T, inclinationDeg float64) physics.Vector3 {
	return Solve(a, e, t, T, inclinationDeg).Position
}

// Solve is SolvePosition with the intermediate values exposed.
func Solve(a, e, t, T, inclinationDeg float64) Solution {
	M := MeanAnomaly(t, T)
	E, iterations, converged := EccentricAnomaly(M, e)

	sinE, cosE := math.Sincos(E)
	r := a * (1 - e*cosE)
	theta := math.Atan2(math.Sqrt(1-e*e)*sinE, cosE-e)

	sinTheta, cosTheta := math.Sincos(theta)
	planar := physics.Vector3{X: r * cosTheta, Z: r * sinTheta}

	return Solution{
		MeanAnomaly:      M,
		EccentricAnomaly: E,
		TrueAnomaly:      theta,
		Radius:           r,
		Planar:           planar,
		Position:         Incline(planar, inclinationDeg),
		Iterations:       iterations,
		Converged:        converged,
	}
}

// MeanAnomaly returns 2πt/T. A zero period yields a non-finite result.
func MeanAnomaly(t, T float64) float64 {
	return 2 * math.Pi * t / T
}

// EccentricAnomaly solves Kepler's equation E - e·sin(E) = M starting from
// E₀ = M + e·sin(M). It reports how many refinement steps ran and whether the
// last step was within Tolerance. It always returns an estimate.
func EccentricAnomaly(M, e float64) (E float64, iterations int, converged bool) {
	E = M + e*math.Sin(M)
	for iterations < MaxIterations {
		delta := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= delta
		iterations++
		if math.Abs(delta) <= Tolerance {
			return E, iterations, true
		}
	}
	return E, iterations, false
}

// Incline tilts a point of the x-z orbital plane about the x axis. Only the
// z component feeds the rotation; x is left unchanged.
func Incline(planar physics.Vector3, inclinationDeg float64) physics.Vector3 {
	sinI, cosI := math.Sincos(DegToRad(inclinationDeg))
	return physics.Vector3{
		X: planar.X,
		Y: planar.Z * sinI,
		Z: planar.Z * cosI,
	}
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
