package render

import (
	"image/color"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Terminal cell glyphs
const (
	OrbitGlyph = '.'
	StarGlyph  = '@'
)

const clearScreen = "\033[H\033[2J"

// TerminalRenderer draws a top-down ASCII view of the x-z plane. A cell is
// scale scene units wide and twice that tall, which roughly squares up a
// terminal font.
type TerminalRenderer struct {
	out       io.Writer
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	centerPos physics.Vector2D
	status    string
	ansi      bool
	err       error
}

// NewTerminalRenderer creates a renderer of width×height cells writing to out
func NewTerminalRenderer(out io.Writer, width, height int, scale float64) *TerminalRenderer {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}
	r := &TerminalRenderer{
		out:    out,
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
	}
	r.Clear()
	return r
}

// SetANSI toggles clearing the screen before each frame
func (r *TerminalRenderer) SetANSI(on bool) {
	r.ansi = on
}

// SetCenter sets the top-down point drawn at the middle of the view
func (r *TerminalRenderer) SetCenter(pos physics.Vector2D) {
	r.centerPos = pos
}

// SetScale sets the scene units per cell column
func (r *TerminalRenderer) SetScale(scale float64) {
	if scale > 0 {
		r.scale = scale
	}
}

// SetStatus sets the line printed under the frame
func (r *TerminalRenderer) SetStatus(s string) {
	r.status = s
}

// Err returns the last write error from Present
func (r *TerminalRenderer) Err() error {
	return r.err
}

// worldToScreen converts a top-down point to a cell
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (int, int) {
	col := (pos.X-r.centerPos.X)/r.scale + float64(r.width)/2
	row := (pos.Y-r.centerPos.Y)/(2*r.scale) + float64(r.height)/2
	return int(math.Floor(col)), int(math.Floor(row))
}

// ScreenToWorld converts a cell back to the top-down point at its center
func (r *TerminalRenderer) ScreenToWorld(col, row int) physics.Vector2D {
	return physics.Vector2D{
		X: (float64(col)+0.5-float64(r.width)/2)*r.scale + r.centerPos.X,
		Y: (float64(row)+0.5-float64(r.height)/2)*2*r.scale + r.centerPos.Y,
	}
}

func (r *TerminalRenderer) plot(pos physics.Vector2D, glyph rune) {
	x, y := r.worldToScreen(pos)
	if x >= 0 && x < r.width && y >= 0 && y < r.height {
		r.buffer[y][x] = glyph
	}
}

// Cell returns the glyph at col, row
func (r *TerminalRenderer) Cell(col, row int) rune {
	if col < 0 || col >= r.width || row < 0 || row >= r.height {
		return 0
	}
	return r.buffer[row][col]
}

// Clear implements entity.Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
}

// Present implements entity.Renderer
func (r *TerminalRenderer) Present() {
	var sb strings.Builder
	if r.ansi {
		sb.WriteString(clearScreen)
	}

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	sb.WriteString(border)
	for y := range r.buffer {
		sb.WriteByte('|')
		sb.WriteString(string(r.buffer[y]))
		sb.WriteString("|\n")
	}
	sb.WriteString(border)
	if r.status != "" {
		sb.WriteString(r.status)
		sb.WriteByte('\n')
	}

	_, r.err = io.WriteString(r.out, sb.String())
}

// RenderBody implements entity.Renderer
func (r *TerminalRenderer) RenderBody(body *entity.Body) {
	r.plot(body.Position.TopDown(), Glyph(body))
}

// RenderOrbit implements entity.Renderer
func (r *TerminalRenderer) RenderOrbit(id entity.ID, path []physics.Vector3, c color.RGBA) {
	for _, p := range path {
		r.plot(p.TopDown(), OrbitGlyph)
	}
}

// Glyph returns the cell glyph for a body: '@' for a star, the upper-case
// initial for a planet and the lower-case initial for a moon.
func Glyph(body *entity.Body) rune {
	if body.Kind == entity.Star {
		return StarGlyph
	}
	initial := '?'
	for _, c := range body.Name {
		initial = c
		break
	}
	if body.Kind == entity.Moon {
		return unicode.ToLower(initial)
	}
	return unicode.ToUpper(initial)
}
