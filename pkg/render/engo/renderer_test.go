package engo

import (
	"image/color"
	"testing"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

var _ entity.Renderer = (*EngoRenderer)(nil)

func unitProjector() Projector {
	return Projector{Scale: 1, Width: 200, Height: 200}
}

func ringedBody() *entity.Body {
	return &entity.Body{
		ID:       6,
		Name:     "Saturn",
		Kind:     entity.Planet,
		Position: physics.Vector3{X: 20},
		Radius:   10,
		Color:    color.RGBA{R: 200, G: 180, B: 100, A: 255},
		Rings: []entity.Ring{
			{Inner: 12, Outer: 20, Style: entity.TexturedRing},
		},
	}
}

func TestEngoRenderer_RenderBody(t *testing.T) {
	sink := newFakeSink()
	r := NewEngoRenderer(sink)
	r.SetProjector(unitProjector())

	r.Clear()
	r.RenderBody(ringedBody())
	if len(sink.sprites) != 2 {
		t.Fatalf("sprites = %d, want disc and ring", len(sink.sprites))
	}

	b := r.bodies[6]
	if b.disc.Width != 20 || b.disc.Position.X != 110 || b.disc.Position.Y != 90 {
		t.Errorf("disc = %v %vx%v, want centered at (120, 100) with size 20", b.disc.Position, b.disc.Width, b.disc.Height)
	}
	ring := b.rings[0]
	if ring.Width != 40 {
		t.Errorf("ring size = %v, want 40", ring.Width)
	}
	c, ok := ring.Drawable.(common.Circle)
	if !ok || c.BorderWidth != 8 {
		t.Errorf("ring drawable = %#v, want border width 8", ring.Drawable)
	}

	// a second frame reuses the pool
	r.Clear()
	if sink.visible() != 0 {
		t.Errorf("visible after Clear = %d, want 0", sink.visible())
	}
	r.RenderBody(ringedBody())
	if len(sink.sprites) != 2 || sink.visible() != 2 {
		t.Errorf("sprites = %d visible = %d, want 2 and 2", len(sink.sprites), sink.visible())
	}
}

func TestEngoRenderer_MinimumSize(t *testing.T) {
	sink := newFakeSink()
	r := NewEngoRenderer(sink)
	r.SetProjector(Projector{Scale: 0.01, Width: 100, Height: 100})

	r.RenderBody(&entity.Body{ID: 1, Radius: 2, Color: color.RGBA{A: 255}})
	if got := r.bodies[1].disc.Width; got != MinBodyPixels {
		t.Errorf("disc size = %v, want %v", got, MinBodyPixels)
	}
}

func TestEngoRenderer_Highlight(t *testing.T) {
	sink := newFakeSink()
	r := NewEngoRenderer(sink)
	r.SetProjector(unitProjector())

	r.RenderBody(ringedBody())
	if r.highlight != nil {
		t.Fatal("highlight created without a selection")
	}

	r.SetSelected(6)
	r.Clear()
	r.RenderBody(ringedBody())
	if r.highlight == nil || r.highlight.Hidden {
		t.Fatal("selected body has no visible highlight")
	}
	if want := 20 + 2*HighlightInset; r.highlight.Width != want {
		t.Errorf("highlight size = %v, want %v", r.highlight.Width, want)
	}

	r.SetSelected(entity.NoBody)
	r.Clear()
	r.RenderBody(ringedBody())
	if !r.highlight.Hidden {
		t.Error("highlight still shown after deselect")
	}
}

func TestEngoRenderer_RenderOrbit(t *testing.T) {
	sink := newFakeSink()
	r := NewEngoRenderer(sink)
	r.SetProjector(unitProjector())

	closed := []physics.Vector3{{X: 10}, {Z: 10}, {X: -10}, {Z: -10}, {X: 10}}
	r.RenderOrbit(3, closed, color.RGBA{G: 255, A: 255})
	if got := len(r.orbits[3]); got != 4 {
		t.Errorf("orbit dots = %d, want 4", got)
	}

	open := []physics.Vector3{{X: 10}, {Z: 10}}
	r.Clear()
	r.RenderOrbit(3, open, color.RGBA{G: 255, A: 255})
	if got := sink.visible(); got != 2 {
		t.Errorf("visible dots = %d, want 2", got)
	}
}

func TestEngoRenderer_RenderCorona(t *testing.T) {
	sink := newFakeSink()
	r := NewEngoRenderer(sink)
	r.SetProjector(unitProjector())

	red := color.RGBA{R: 255, A: 255}
	r.RenderCorona([]physics.Vector3{{X: 1}, {X: 2}, {X: 3}}, []color.RGBA{red})
	if len(r.corona) != 3 {
		t.Fatalf("corona sprites = %d, want 3", len(r.corona))
	}
	if r.corona[0].Color != red {
		t.Errorf("corona[0] color = %v, want %v", r.corona[0].Color, red)
	}
	if r.corona[2].Color != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("corona[2] color = %v, want white", r.corona[2].Color)
	}
}

func TestEngoRenderer_Remove(t *testing.T) {
	sink := newFakeSink()
	r := NewEngoRenderer(sink)
	r.SetProjector(unitProjector())

	r.RenderBody(ringedBody())
	r.RenderOrbit(6, []physics.Vector3{{X: 1}, {X: 2}}, color.RGBA{A: 255})
	r.Remove(6)

	if len(sink.sprites) != 0 || sink.removed != 4 {
		t.Errorf("sprites = %d removed = %d, want 0 and 4", len(sink.sprites), sink.removed)
	}
	if _, ok := r.bodies[6]; ok {
		t.Error("body still tracked after Remove")
	}
}

func TestRingColor(t *testing.T) {
	base := color.RGBA{R: 100, G: 0, B: 255, A: 255}
	tests := []struct {
		style entity.RingStyle
		want  color.RGBA
	}{
		{entity.TexturedRing, color.RGBA{R: 177, G: 127, B: 255, A: 255}},
		{entity.CloudyRing, color.RGBA{R: 100, G: 0, B: 255, A: 96}},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			if got := RingColor(tt.style, base); got != tt.want {
				t.Errorf("RingColor(%s) = %v, want %v", tt.style, got, tt.want)
			}
		})
	}
}
