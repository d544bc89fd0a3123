package engine

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Corona is the particle shell drawn around the star. Particles keep their
// initial positions; the shell turns about the y axis by Step each frame.
type Corona struct {
	Base   []physics.Vector3
	Colors []color.RGBA
	Step   float64
	Angle  float64
}

// NewCorona scatters n particles uniformly over a spherical shell with radii
// in [inner, outer).
func NewCorona(n int, inner, outer, step float64, rng *rand.Rand) *Corona {
	c := &Corona{
		Base:   make([]physics.Vector3, n),
		Colors: make([]color.RGBA, n),
		Step:   step,
	}
	for i := 0; i < n; i++ {
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(rng.Float64()*2 - 1)
		r := inner + rng.Float64()*(outer-inner)

		sinPhi, cosPhi := math.Sincos(phi)
		sinTheta, cosTheta := math.Sincos(theta)
		c.Base[i] = physics.Vector3{
			X: r * sinPhi * cosTheta,
			Y: r * sinPhi * sinTheta,
			Z: r * cosPhi,
		}
		c.Colors[i] = hslToRGB(0.1, 0.9, 0.5+rng.Float64()*0.5)
	}
	return c
}

// Rotate advances the shell by one frame
func (c *Corona) Rotate() {
	c.Angle = math.Mod(c.Angle+c.Step, 2*math.Pi)
}

// Positions returns the particles at the current angle
func (c *Corona) Positions() []physics.Vector3 {
	return CoronaPositions(c.Base, c.Angle)
}

// CoronaPositions turns base about the y axis by angle, in the direction
// x toward z.
func CoronaPositions(base []physics.Vector3, angle float64) []physics.Vector3 {
	out := make([]physics.Vector3, len(base))
	for i, p := range base {
		out[i] = p.RotateY(-angle)
	}
	return out
}

// Layout returns the wire form of the initial shell
func (c *Corona) Layout() CoronaLayout {
	colors := make([]string, len(c.Colors))
	for i, col := range c.Colors {
		colors[i] = entity.HexColor(col)
	}
	base := make([]physics.Vector3, len(c.Base))
	copy(base, c.Base)
	return CoronaLayout{Particles: base, Colors: colors}
}

func hslToRGB(h, s, l float64) color.RGBA {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return color.RGBA{v, v, v, 0xff}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	channel := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return color.RGBA{channel(h + 1.0/3), channel(h), channel(h - 1.0/3), 0xff}
}
