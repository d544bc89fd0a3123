// pkg/physics/collision.go
package physics

// Circle is a screen-space hit area around a rendered body
type Circle struct {
	Center Vector2D
	Radius float64
}

// Contains reports whether point lies inside or on the circle.
func (c Circle) Contains(point Vector2D) bool {
	return c.Center.Distance(point) <= c.Radius
}

// Pick returns the index of the circle containing point whose center is
// closest to it, or -1 when no circle contains the point.
func Pick(point Vector2D, targets []Circle) int {
	best := -1
	bestDist := 0.0
	for i, c := range targets {
		if !c.Contains(point) {
			continue
		}
		d := c.Center.Distance(point)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
