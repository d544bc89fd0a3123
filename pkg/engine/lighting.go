package engine

import "github.com/opd-ai/go-orrery/pkg/physics"

// MinLightIntensity is the floor applied to the inverse-square falloff
const MinLightIntensity = 0.1

// LightIntensity returns the star's light intensity at p: 1/|p|² with a
// floor of MinLightIntensity. Unlike a plain max(1/d², 0.1), points within
// unit distance are clamped to full intensity rather than exceeding 1.
func LightIntensity(p physics.Vector3) float64 {
	d2 := p.LengthSquared()
	if d2 <= 1 {
		return 1
	}
	return max(1/d2, MinLightIntensity)
}
