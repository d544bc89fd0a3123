package render

import (
	"bytes"
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

func TestNewTerminalRenderer(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		scale  float64
	}{
		{"small renderer", 10, 5, 1.0},
		{"medium renderer", 80, 24, 10.0},
		{"large renderer", 120, 40, 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTerminalRenderer(&bytes.Buffer{}, tt.width, tt.height, tt.scale)

			if len(r.buffer) != tt.height {
				t.Errorf("buffer height = %d, want %d", len(r.buffer), tt.height)
			}
			for i, row := range r.buffer {
				if len(row) != tt.width {
					t.Errorf("row %d width = %d, want %d", i, len(row), tt.width)
				}
			}
			if got := r.Cell(0, 0); got != ' ' {
				t.Errorf("new buffer cell = %q, want blank", got)
			}
		})
	}
}

func TestTerminalRenderer_WorldToScreen(t *testing.T) {
	r := NewTerminalRenderer(&bytes.Buffer{}, 21, 11, 10)

	tests := []struct {
		name     string
		center   physics.Vector2D
		pos      physics.Vector2D
		col, row int
	}{
		{"origin", physics.Vector2D{}, physics.Vector2D{}, 10, 5},
		{"east", physics.Vector2D{}, physics.Vector2D{X: 50}, 15, 5},
		{"south rows are twice as tall", physics.Vector2D{}, physics.Vector2D{Y: 40}, 10, 7},
		{"west floors", physics.Vector2D{}, physics.Vector2D{X: -6}, 9, 5},
		{"recentred", physics.Vector2D{X: 100, Y: 100}, physics.Vector2D{X: 100, Y: 100}, 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.SetCenter(tt.center)
			col, row := r.worldToScreen(tt.pos)
			if col != tt.col || row != tt.row {
				t.Errorf("worldToScreen(%v) = (%d, %d), want (%d, %d)", tt.pos, col, row, tt.col, tt.row)
			}
			back := r.ScreenToWorld(col, row)
			if c2, r2 := r.worldToScreen(back); c2 != col || r2 != row {
				t.Errorf("ScreenToWorld(%d, %d) = %v maps to (%d, %d)", col, row, back, c2, r2)
			}
		})
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		name string
		body entity.Body
		want rune
	}{
		{"star", entity.Body{Name: "Sun", Kind: entity.Star}, StarGlyph},
		{"planet", entity.Body{Name: "earth", Kind: entity.Planet}, 'E'},
		{"moon", entity.Body{Name: "Moon", Kind: entity.Moon}, 'm'},
		{"unnamed", entity.Body{Kind: entity.Planet}, '?'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Glyph(&tt.body); got != tt.want {
				t.Errorf("Glyph() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTerminalRenderer_Render(t *testing.T) {
	var out bytes.Buffer
	r := NewTerminalRenderer(&out, 21, 11, 10)

	r.Clear()
	r.RenderOrbit(1, []physics.Vector3{{X: 50}, {Z: 40}, {X: 5000}}, color.RGBA{})
	r.RenderBody(&entity.Body{Name: "Sun", Kind: entity.Star})
	r.RenderBody(&entity.Body{Name: "Mars", Kind: entity.Planet, Position: physics.Vector3{X: 50, Y: 99}})
	r.SetStatus("frame 1")
	r.Present()

	if got := r.Cell(10, 5); got != StarGlyph {
		t.Errorf("center = %q, want star", got)
	}
	if got := r.Cell(15, 5); got != 'M' {
		t.Errorf("body over orbit = %q, want M", got)
	}
	if got := r.Cell(10, 7); got != OrbitGlyph {
		t.Errorf("orbit cell = %q, want %q", got, OrbitGlyph)
	}
	if got := r.Cell(99, 99); got != 0 {
		t.Errorf("out of range cell = %q, want 0", got)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 11+3 {
		t.Fatalf("output has %d lines, want 14", len(lines))
	}
	if lines[0] != "+"+strings.Repeat("-", 21)+"+" {
		t.Errorf("top border = %q", lines[0])
	}
	if lines[6] != "|          @    M     |" {
		t.Errorf("center row = %q", lines[6])
	}
	if lines[13] != "frame 1" {
		t.Errorf("status = %q", lines[13])
	}
	if strings.Contains(out.String(), clearScreen) {
		t.Error("clear sequence written with ANSI off")
	}

	out.Reset()
	r.SetANSI(true)
	r.Clear()
	r.Present()
	if !strings.HasPrefix(out.String(), clearScreen) {
		t.Error("clear sequence missing with ANSI on")
	}
	if r.Cell(10, 5) != ' ' {
		t.Error("Clear left glyphs behind")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTerminalRenderer_WriteError(t *testing.T) {
	r := NewTerminalRenderer(failingWriter{}, 4, 2, 1)
	r.Present()
	if r.Err() == nil {
		t.Error("Err() = nil after failed write")
	}
}

func TestTerminalRenderer_SetScale(t *testing.T) {
	r := NewTerminalRenderer(&bytes.Buffer{}, 4, 2, 1)
	r.SetScale(0)
	if r.scale != 1 {
		t.Errorf("scale = %v after SetScale(0), want unchanged", r.scale)
	}
	r.SetScale(8)
	if r.scale != 8 {
		t.Errorf("scale = %v, want 8", r.scale)
	}
}
