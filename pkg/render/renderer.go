// Package render draws orrery frames. DrawScene walks a layout and a frame
// through any entity.Renderer; NullRenderer and TerminalRenderer are the
// headless implementations, the engo subpackage is the windowed one.
package render

import (
	"context"
	"image/color"

	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

// DrawScene renders one frame: orbit paths first, then every body in frame
// order. Bodies without a layout entry are skipped.
func DrawScene(r entity.Renderer, layout engine.SceneLayout, frame engine.FrameState) {
	r.Clear()
	for _, bl := range layout.Bodies {
		if len(bl.Path) > 0 {
			r.RenderOrbit(bl.ID, bl.Path, layoutColor(bl))
		}
	}
	for _, bs := range frame.Bodies {
		bl, ok := layout.Body(bs.ID)
		if !ok {
			continue
		}
		r.RenderBody(BodyFromState(bl, bs))
	}
	r.Present()
}

// BodyFromState rebuilds a drawable body from its layout and frame state
func BodyFromState(bl engine.BodyLayout, bs engine.BodyState) *entity.Body {
	return &entity.Body{
		ID:        bl.ID,
		Name:      bl.Name,
		Kind:      bl.Kind,
		Elements:  bl.Elements,
		Position:  bs.Position,
		RotationY: bs.RotationY,
		Radius:    bl.Radius,
		Color:     layoutColor(bl),
		Info:      bl.Info,
		Link:      bl.Link,
		Rings:     bl.Rings,
	}
}

// layoutColor falls back to white for a malformed color string
func layoutColor(bl engine.BodyLayout) color.RGBA {
	c, err := validation.ParseColor(bl.Color)
	if err != nil {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return c
}

// NullRenderer is an entity.Renderer that only logs at debug level.
type NullRenderer struct {
	logger *logging.Logger
	bodies int
	orbits int
}

// NewNullRenderer creates a new NullRenderer writing to logger. A nil
// logger discards.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullRenderer{logger: logger.WithComponent("null_renderer")}
}

// Clear implements entity.Renderer.
func (d *NullRenderer) Clear() {
	d.bodies, d.orbits = 0, 0
}

// Present implements entity.Renderer.
func (d *NullRenderer) Present() {
	d.logger.Debug(context.Background(), "frame presented", "bodies", d.bodies, "orbits", d.orbits)
}

// RenderBody implements entity.Renderer.
func (d *NullRenderer) RenderBody(body *entity.Body) {
	ctx := context.Background()
	if body == nil {
		d.logger.Debug(ctx, "RenderBody called with nil body")
		return
	}
	d.bodies++
	d.logger.Debug(ctx, "RenderBody called",
		"body_id", body.ID,
		"body_name", body.Name,
		"x", body.Position.X,
		"z", body.Position.Z,
	)
}

// RenderOrbit implements entity.Renderer.
func (d *NullRenderer) RenderOrbit(id entity.ID, path []physics.Vector3, c color.RGBA) {
	d.orbits++
	d.logger.Debug(context.Background(), "RenderOrbit called", "body_id", id, "points", len(path))
}

// Counts returns the bodies and orbits drawn since the last Clear
func (d *NullRenderer) Counts() (bodies, orbits int) {
	return d.bodies, d.orbits
}
