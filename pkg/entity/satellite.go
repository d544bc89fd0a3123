package entity

import (
	"math"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Satellite places a body on a circular orbit around a parent body. Unlike
// planets it is driven by a per-frame angle step, not by elapsed time.
type Satellite struct {
	Body        ID
	Parent      ID
	OrbitRadius float64
	AngleStep   float64 // radians added per frame
	Inclination float64 // used directly as the argument of sin/cos
	Angle       float64
}

// Advance moves the satellite one frame along its orbit
func (s *Satellite) Advance() {
	s.Angle += s.AngleStep
}

// Offset returns the satellite's position relative to its parent
func (s *Satellite) Offset() physics.Vector3 {
	sinA, cosA := math.Sincos(s.Angle)
	sinK, cosK := math.Sincos(s.Inclination)
	return physics.Vector3{
		X: s.OrbitRadius * cosA,
		Y: s.OrbitRadius * sinA * sinK,
		Z: s.OrbitRadius * sinA * cosK,
	}
}

// PositionAround returns the satellite's position given its parent's current
// position. The parent must already be updated for the frame.
func (s *Satellite) PositionAround(parent physics.Vector3) physics.Vector3 {
	return parent.Add(s.Offset())
}
