package entity

import (
	"image/color"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Renderer draws a scene frame
type Renderer interface {
	RenderBody(body *Body)
	RenderOrbit(id ID, path []physics.Vector3, c color.RGBA)
	Clear()
	Present()
}
