package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Draw order, back to front
const (
	zBackground float32 = iota
	zOrbit
	zCorona
	zRing
	zBody
	zHighlight
	zHUD
)

// Pixel sizes that stay fixed regardless of zoom
const (
	MinBodyPixels  float32 = 4
	DotPixels      float32 = 2
	HighlightInset float32 = 4
)

// SpriteSink receives the sprites the renderer creates. common.RenderSystem
// satisfies it.
type SpriteSink interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// sprite bundles the components engo's render system draws
type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

func newSprite(sink SpriteSink, d common.Drawable, c color.Color, z float32) *sprite {
	s := &sprite{BasicEntity: ecs.NewBasic()}
	s.Drawable = d
	s.Color = c
	s.SetZIndex(z)
	sink.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	return s
}

// place centers the sprite on pt with the given diameter
func (s *sprite) place(pt engo.Point, size float32) {
	s.Position = engo.Point{X: pt.X - size/2, Y: pt.Y - size/2}
	s.Width = size
	s.Height = size
	s.Hidden = false
}

type bodySprite struct {
	disc  *sprite
	rings []*sprite
}

// EngoRenderer implements entity.Renderer on top of engo sprites. Sprites
// are pooled per body, orbit and corona particle; Clear hides them all and
// each Render call shows the ones it positions.
type EngoRenderer struct {
	sink      SpriteSink
	proj      Projector
	bodies    map[entity.ID]*bodySprite
	orbits    map[entity.ID][]*sprite
	corona    []*sprite
	highlight *sprite
	selected  entity.ID
}

// NewEngoRenderer creates a renderer adding its sprites to sink
func NewEngoRenderer(sink SpriteSink) *EngoRenderer {
	return &EngoRenderer{
		sink:     sink,
		bodies:   make(map[entity.ID]*bodySprite),
		orbits:   make(map[entity.ID][]*sprite),
		selected: entity.NoBody,
	}
}

// SetProjector sets the projection used by subsequent Render calls
func (r *EngoRenderer) SetProjector(p Projector) {
	r.proj = p
}

// SetSelected marks id with a highlight ring; entity.NoBody clears it
func (r *EngoRenderer) SetSelected(id entity.ID) {
	r.selected = id
}

// Clear implements entity.Renderer
func (r *EngoRenderer) Clear() {
	for _, b := range r.bodies {
		b.disc.Hidden = true
		for _, ring := range b.rings {
			ring.Hidden = true
		}
	}
	for _, dots := range r.orbits {
		hideAll(dots)
	}
	hideAll(r.corona)
	if r.highlight != nil {
		r.highlight.Hidden = true
	}
}

func hideAll(sprites []*sprite) {
	for _, s := range sprites {
		s.Hidden = true
	}
}

// Present implements entity.Renderer. The render system draws visible
// sprites on its own.
func (r *EngoRenderer) Present() {}

// RenderBody implements entity.Renderer
func (r *EngoRenderer) RenderBody(body *entity.Body) {
	b := r.bodies[body.ID]
	if b == nil {
		b = &bodySprite{disc: newSprite(r.sink, common.Circle{}, body.Color, zBody)}
		r.bodies[body.ID] = b
	}

	center := r.proj.ToScreen(body.Position)
	size := r.proj.Pixels(2 * body.Radius)
	if size < MinBodyPixels {
		size = MinBodyPixels
	}
	b.disc.Color = body.Color
	b.disc.place(center, size)

	for i, ring := range body.Rings {
		if i >= len(b.rings) {
			b.rings = append(b.rings, newSprite(r.sink, common.Circle{}, color.Transparent, zRing))
		}
		rs := b.rings[i]
		rs.Drawable = common.Circle{
			BorderWidth: r.proj.Pixels(ring.Outer - ring.Inner),
			BorderColor: RingColor(ring.Style, body.Color),
		}
		rs.place(center, r.proj.Pixels(2*ring.Outer))
	}

	if body.ID == r.selected {
		if r.highlight == nil {
			r.highlight = newSprite(r.sink, common.Circle{}, color.Transparent, zHighlight)
		}
		r.highlight.Drawable = common.Circle{BorderWidth: 1, BorderColor: color.White}
		r.highlight.place(center, size+2*HighlightInset)
	}
}

// RenderOrbit implements entity.Renderer. The closing point of a path
// repeats the first and is not drawn twice.
func (r *EngoRenderer) RenderOrbit(id entity.ID, path []physics.Vector3, c color.RGBA) {
	n := len(path)
	if n > 1 && path[0] == path[n-1] {
		n--
	}
	dots := r.growPool(r.orbits[id], n, c, zOrbit)
	r.orbits[id] = dots

	for i := 0; i < n; i++ {
		dots[i].Color = c
		dots[i].place(r.proj.ToScreen(path[i]), DotPixels)
	}
}

// RenderCorona draws the sun's particle shell. colors is indexed like
// points; missing entries are drawn white.
func (r *EngoRenderer) RenderCorona(points []physics.Vector3, colors []color.RGBA) {
	r.corona = r.growPool(r.corona, len(points), color.White, zCorona)
	for i, p := range points {
		c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
		if i < len(colors) {
			c = colors[i]
		}
		r.corona[i].Color = c
		r.corona[i].place(r.proj.ToScreen(p), DotPixels)
	}
}

func (r *EngoRenderer) growPool(pool []*sprite, n int, c color.Color, z float32) []*sprite {
	for len(pool) < n {
		pool = append(pool, newSprite(r.sink, common.Circle{}, c, z))
	}
	return pool
}

// RingColor returns the ring border color for a style, derived from the
// body's own color. Textured rings are opaque and lighter; cloudy rings are
// translucent.
func RingColor(style entity.RingStyle, base color.RGBA) color.RGBA {
	lighten := func(v uint8) uint8 { return v + (255-v)/2 }
	switch style {
	case entity.TexturedRing:
		return color.RGBA{R: lighten(base.R), G: lighten(base.G), B: lighten(base.B), A: 255}
	default:
		return color.RGBA{R: base.R, G: base.G, B: base.B, A: 96}
	}
}

// Remove deletes every sprite drawn for id
func (r *EngoRenderer) Remove(id entity.ID) {
	if b, ok := r.bodies[id]; ok {
		r.sink.Remove(b.disc.BasicEntity)
		for _, ring := range b.rings {
			r.sink.Remove(ring.BasicEntity)
		}
		delete(r.bodies, id)
	}
	for _, dot := range r.orbits[id] {
		r.sink.Remove(dot.BasicEntity)
	}
	delete(r.orbits, id)
}
