// pkg/entity/entity.go
package entity

import (
	"fmt"
	"image/color"
	"math"

	"github.com/opd-ai/go-orrery/pkg/orbit"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// ID is the stable index of a body in its Registry
type ID int

// NoBody is the ID used when no body is referenced
const NoBody ID = -1

// Kind classifies a body
type Kind string

const (
	Star   Kind = "star"
	Planet Kind = "planet"
	Moon   Kind = "moon"
)

// RingStyle selects how a ring is drawn
type RingStyle string

const (
	TexturedRing RingStyle = "textured"
	CloudyRing   RingStyle = "cloudy"
)

// Ring is a flat ring attached to a body
type Ring struct {
	Inner   float64   `json:"inner"`
	Outer   float64   `json:"outer"`
	Style   RingStyle `json:"style"`
	TiltDeg float64   `json:"tiltDegrees,omitempty"`
}

// Body is one object of the scene. Elements are owned by value; Position is
// overwritten every frame and RotationY accumulates independently of it.
type Body struct {
	ID            ID
	Name          string
	Kind          Kind
	Elements      orbit.Elements
	Position      physics.Vector3
	RotationY     float64
	RotationSpeed float64
	Radius        float64
	Color         color.RGBA
	Info          string
	Link          string
	Rings         []Ring
}

// Orbits reports whether the body moves on its own heliocentric orbit.
func (b *Body) Orbits() bool {
	return b.Kind == Planet
}

// UpdatePosition places the body at elapsed time t on its orbit and returns
// the solver output for inspection.
func (b *Body) UpdatePosition(t float64) orbit.Solution {
	sol := b.Elements.Solve(t)
	b.Position = sol.Position
	return sol
}

// Spin advances the spin angle, keeping it within (-2π, 2π).
func (b *Body) Spin(step float64) {
	b.RotationY = math.Mod(b.RotationY+step, 2*math.Pi)
}

// Render draws the body with r
func (b *Body) Render(r Renderer) {
	r.RenderBody(b)
}

// String implements fmt.Stringer
func (b *Body) String() string {
	return fmt.Sprintf("%s#%d(%s)", b.Name, b.ID, b.Kind)
}

// HexColor formats c as #rrggbb
func HexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
