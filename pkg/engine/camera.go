package engine

import (
	"math"

	"github.com/opd-ai/go-orrery/pkg/physics"
)

// CameraRig tracks the viewer's camera position and look target and tweens
// both when a body is selected.
type CameraRig struct {
	Position physics.Vector3
	Target   physics.Vector3

	home         physics.Vector3
	duration     float64 // seconds
	followFactor float64
	minDistance  float64
	maxDistance  float64
	tween        *cameraTween
}

type cameraTween struct {
	fromPos, toPos       physics.Vector3
	fromTarget, toTarget physics.Vector3
	elapsed              float64
}

// NewCameraRig places the camera on the +z axis looking at the origin
func NewCameraRig(l CameraLayout) *CameraRig {
	follow := l.FollowFactor
	if follow <= 0 {
		follow = 5
	}
	home := physics.Vector3{Z: l.Distance}
	return &CameraRig{
		Position:     home,
		home:         home,
		duration:     float64(l.TweenMillis) / 1000,
		followFactor: follow,
		minDistance:  l.MinDistance,
		maxDistance:  l.MaxDistance,
	}
}

// Focus starts a tween that frames a body of the given radius at pos. The
// camera ends followFactor radii in front of the body on the z axis.
func (c *CameraRig) Focus(pos physics.Vector3, radius float64) {
	c.tweenTo(pos.Add(physics.Vector3{Z: radius * c.followFactor}), pos)
}

// Reset tweens back to the home position looking at the origin
func (c *CameraRig) Reset() {
	c.tweenTo(c.home, physics.Vector3{})
}

func (c *CameraRig) tweenTo(pos, target physics.Vector3) {
	if c.duration <= 0 {
		c.Position, c.Target = pos, target
		c.tween = nil
		return
	}
	c.tween = &cameraTween{
		fromPos:    c.Position,
		toPos:      pos,
		fromTarget: c.Target,
		toTarget:   target,
	}
}

// Update advances an active tween by dt seconds
func (c *CameraRig) Update(dt float64) {
	if c.tween == nil {
		return
	}
	tw := c.tween
	tw.elapsed += dt
	progress := math.Min(tw.elapsed/c.duration, 1)
	k := physics.EaseQuadraticOut(progress)

	c.Position = tw.fromPos.Lerp(tw.toPos, k)
	c.Target = tw.fromTarget.Lerp(tw.toTarget, k)
	if progress >= 1 {
		c.tween = nil
	}
}

// Tweening reports whether a tween is in progress
func (c *CameraRig) Tweening() bool {
	return c.tween != nil
}

// Distance is the distance between camera and target
func (c *CameraRig) Distance() float64 {
	return c.Position.Distance(c.Target)
}

// Zoom scales the camera's distance to its target, clamped to the configured
// limits. An active tween is cancelled.
func (c *CameraRig) Zoom(factor float64) {
	if factor <= 0 {
		return
	}
	c.tween = nil
	offset := c.Position.Sub(c.Target)
	d := offset.Length()
	if d == 0 {
		offset, d = physics.Vector3{Z: 1}, 1
	}
	want := d * factor
	if c.minDistance > 0 {
		want = math.Max(want, c.minDistance)
	}
	if c.maxDistance > 0 {
		want = math.Min(want, c.maxDistance)
	}
	c.Position = c.Target.Add(offset.Scale(want / d))
}

// Pan moves camera and target together
func (c *CameraRig) Pan(delta physics.Vector3) {
	c.tween = nil
	c.Position = c.Position.Add(delta)
	c.Target = c.Target.Add(delta)
}
