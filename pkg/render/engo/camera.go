package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/orbit"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// DefaultFOV is the vertical field of view, in degrees, that turns camera
// distance into the visible extent of the scene.
const DefaultFOV = 75.0

const minViewDistance = 1.0

// Projector maps scene points to window pixels, looking straight down the y
// axis at Center. Scene z grows toward the bottom of the window.
type Projector struct {
	Center physics.Vector2D
	Scale  float64
	Width  float32
	Height float32
}

// NewProjector builds the projection for a camera at position looking at
// target in a width×height window.
func NewProjector(position, target physics.Vector3, width, height float32) Projector {
	dist := math.Max(position.Distance(target), minViewDistance)
	half := dist * math.Tan(orbit.DegToRad(DefaultFOV)/2)
	return Projector{
		Center: target.TopDown(),
		Scale:  float64(height) / 2 / half,
		Width:  width,
		Height: height,
	}
}

// ToScreen returns the pixel position of a scene point
func (p Projector) ToScreen(v physics.Vector3) engo.Point {
	td := v.TopDown()
	return engo.Point{
		X: float32((td.X-p.Center.X)*p.Scale) + p.Width/2,
		Y: float32((td.Y-p.Center.Y)*p.Scale) + p.Height/2,
	}
}

// ToWorld returns the top-down scene point under a pixel
func (p Projector) ToWorld(pt engo.Point) physics.Vector2D {
	return physics.Vector2D{
		X: float64(pt.X-p.Width/2)/p.Scale + p.Center.X,
		Y: float64(pt.Y-p.Height/2)/p.Scale + p.Center.Y,
	}
}

// Pixels converts a scene length to pixels
func (p Projector) Pixels(units float64) float32 {
	return float32(units * p.Scale)
}

// Visible reports whether pt lies within the window grown by margin pixels
func (p Projector) Visible(pt engo.Point, margin float32) bool {
	return pt.X >= -margin && pt.X <= p.Width+margin &&
		pt.Y >= -margin && pt.Y <= p.Height+margin
}

// CameraSystem turns the view's camera into a Projector once per frame.
// Tweening and zoom limits live in engine.View; this system only projects.
type CameraSystem struct {
	view *engine.View
	proj Projector
}

// NewCameraSystem creates a camera system for view
func NewCameraSystem(view *engine.View) *CameraSystem {
	return &CameraSystem{view: view}
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(ecs.BasicEntity) {}

// Update recomputes the projection for the current window size
func (cs *CameraSystem) Update(dt float32) {
	cs.update(engo.GameWidth(), engo.GameHeight())
}

func (cs *CameraSystem) update(width, height float32) {
	pos, target := cs.view.Camera()
	cs.proj = NewProjector(pos, target, width, height)
}

// Projector returns the projection computed by the last Update
func (cs *CameraSystem) Projector() Projector {
	return cs.proj
}
