package orbit

import "github.com/opd-ai/go-orrery/pkg/physics"

// Elements are the fixed orbital elements of one body. They are copied by
// value into each body and never mutated after construction.
type Elements struct {
	SemiMajorAxis  float64 `json:"semiMajorAxis"`
	Eccentricity   float64 `json:"eccentricity"`
	Period         float64 `json:"period"`
	InclinationDeg float64 `json:"inclinationDegrees"`
}

// Position solves for the body's position at elapsed time t.
func (el Elements) Position(t float64) physics.Vector3 {
	return SolvePosition(el.SemiMajorAxis, el.Eccentricity, t, el.Period, el.InclinationDeg)
}

// Solve is Position with the intermediate values exposed.
func (el Elements) Solve(t float64) Solution {
	return Solve(el.SemiMajorAxis, el.Eccentricity, t, el.Period, el.InclinationDeg)
}

// Path samples the orbit shape and tilts it by the inclination.
func (el Elements) Path(segments int) []physics.Vector3 {
	return TiltPath(SampleOrbitPath(el.SemiMajorAxis, el.Eccentricity, segments), el.InclinationDeg)
}

// Perihelion is the closest distance to the focus, a(1-e).
func (el Elements) Perihelion() float64 {
	return el.SemiMajorAxis * (1 - el.Eccentricity)
}

// Aphelion is the farthest distance from the focus, a(1+e).
func (el Elements) Aphelion() float64 {
	return el.SemiMajorAxis * (1 + el.Eccentricity)
}
