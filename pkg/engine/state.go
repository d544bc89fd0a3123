package engine

import (
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/orbit"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// FrameState is a snapshot of the scene after one step
type FrameState struct {
	Frame          uint64      `json:"frame"`
	Elapsed        float64     `json:"elapsed"`
	SceneTime      float64     `json:"sceneTime"`
	LightIntensity float64     `json:"lightIntensity"`
	CoronaAngle    float64     `json:"coronaAngle"`
	Bodies         []BodyState `json:"bodies"`
}

// BodyState is the per-frame state of one body
type BodyState struct {
	ID           entity.ID       `json:"id"`
	Name         string          `json:"name"`
	Position     physics.Vector3 `json:"position"`
	RotationY    float64         `json:"rotationY"`
	Illumination float64         `json:"illumination"`
}

// Body returns the state of id, if present
func (f FrameState) Body(id entity.ID) (BodyState, bool) {
	if id >= 0 && int(id) < len(f.Bodies) && f.Bodies[id].ID == id {
		return f.Bodies[id], true
	}
	for _, b := range f.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodyState{}, false
}

// SceneLayout is the static part of a scene: everything a renderer needs
// that does not change from frame to frame.
type SceneLayout struct {
	Bodies []BodyLayout `json:"bodies"`
	Corona CoronaLayout `json:"corona"`
	Camera CameraLayout `json:"camera"`
}

// BodyLayout describes how one body is drawn
type BodyLayout struct {
	ID       entity.ID         `json:"id"`
	Name     string            `json:"name"`
	Kind     entity.Kind       `json:"kind"`
	Radius   float64           `json:"radius"`
	Color    string            `json:"color"`
	Info     string            `json:"info,omitempty"`
	Link     string            `json:"link,omitempty"`
	Elements orbit.Elements    `json:"elements"`
	Rings    []entity.Ring     `json:"rings,omitempty"`
	Path     []physics.Vector3 `json:"path,omitempty"`
}

// CoronaLayout holds the initial particle shell around the star
type CoronaLayout struct {
	Particles []physics.Vector3 `json:"particles"`
	Colors    []string          `json:"colors"`
}

// CameraLayout carries the camera limits a viewer should use
type CameraLayout struct {
	Distance     float64 `json:"distance"`
	MinDistance  float64 `json:"minDistance"`
	MaxDistance  float64 `json:"maxDistance"`
	TweenMillis  int     `json:"tweenMillis"`
	FollowFactor float64 `json:"followFactor"`
}

// Body returns the layout of id, if present
func (l SceneLayout) Body(id entity.ID) (BodyLayout, bool) {
	for _, b := range l.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodyLayout{}, false
}

// FrameSource produces frames for a viewer, either from a local simulation
// or from a telemetry stream.
type FrameSource interface {
	Layout() SceneLayout
	// Frame returns the latest frame. ok is false when no frame is
	// available yet or the source has closed.
	Frame() (frame FrameState, ok bool)
}
