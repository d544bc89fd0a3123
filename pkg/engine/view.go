package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// MinPickRadius keeps small bodies clickable in top-down scene units
const MinPickRadius = 10.0

// View is the viewer side of a scene: it holds the latest frame, the camera
// and the current selection. It works the same for local and remote sources.
type View struct {
	mu       sync.RWMutex
	camera   *CameraRig
	layout   SceneLayout
	frame    FrameState
	selected entity.ID
	bus      *event.Bus
}

// NewView creates a view over layout. Selection events are published on bus.
func NewView(layout SceneLayout, bus *event.Bus) *View {
	if bus == nil {
		bus = event.NewEventBus()
	}
	return &View{
		camera:   NewCameraRig(layout.Camera),
		layout:   layout,
		selected: entity.NoBody,
		bus:      bus,
	}
}

// EventBus returns the bus selection events go to
func (v *View) EventBus() *event.Bus {
	return v.bus
}

// Layout returns the scene layout
func (v *View) Layout() SceneLayout {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.layout
}

// Update stores the newest frame and advances the camera by dt seconds
func (v *View) Update(frame FrameState, dt float64) {
	v.mu.Lock()
	v.frame = frame
	v.camera.Update(dt)
	v.mu.Unlock()
}

// Camera returns the camera position and look target
func (v *View) Camera() (position, target physics.Vector3) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.camera.Position, v.camera.Target
}

// Zoom scales the camera distance by factor
func (v *View) Zoom(factor float64) {
	v.mu.Lock()
	v.camera.Zoom(factor)
	v.mu.Unlock()
}

// Pan moves the camera and its target by delta
func (v *View) Pan(delta physics.Vector3) {
	v.mu.Lock()
	v.camera.Pan(delta)
	v.mu.Unlock()
}

// Tweening reports whether the camera is moving toward a selection
func (v *View) Tweening() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.camera.Tweening()
}

// Frame returns the latest frame
func (v *View) Frame() FrameState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frame
}

// Selected returns the selected body, or entity.NoBody
func (v *View) Selected() entity.ID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selected
}

// SelectedLayout returns the layout of the selected body
func (v *View) SelectedLayout() (BodyLayout, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.selected == entity.NoBody {
		return BodyLayout{}, false
	}
	return v.layout.Body(v.selected)
}

// Select focuses the camera on id at its position in the latest frame
func (v *View) Select(id entity.ID) error {
	v.mu.Lock()
	bl, ok := v.layout.Body(id)
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("select %d: %w", id, entity.ErrUnknownBody)
	}
	pos := physics.Vector3{}
	if bs, ok := v.frame.Body(id); ok {
		pos = bs.Position
	}
	v.selected = id
	v.camera.Focus(pos, bl.Radius)
	v.mu.Unlock()

	v.bus.Publish(event.NewBodyEvent(event.BodySelected, v, int(id), bl.Name))
	return nil
}

// SelectByName selects a body by case-insensitive name
func (v *View) SelectByName(name string) error {
	v.mu.RLock()
	id := entity.NoBody
	for _, b := range v.layout.Bodies {
		if strings.EqualFold(b.Name, name) {
			id = b.ID
			break
		}
	}
	v.mu.RUnlock()

	if id == entity.NoBody {
		return fmt.Errorf("select %q: %w", name, entity.ErrUnknownBody)
	}
	return v.Select(id)
}

// Deselect returns the camera home. It is a no-op when nothing is selected.
func (v *View) Deselect() {
	v.mu.Lock()
	prev := v.selected
	if prev == entity.NoBody {
		v.mu.Unlock()
		return
	}
	v.selected = entity.NoBody
	v.camera.Reset()
	name := ""
	if bl, ok := v.layout.Body(prev); ok {
		name = bl.Name
	}
	v.mu.Unlock()

	v.bus.Publish(event.NewBodyEvent(event.BodyDeselected, v, int(prev), name))
}

// Pick returns the body under a top-down point (x, z) in scene units, or
// entity.NoBody.
func (v *View) Pick(point physics.Vector2D) entity.ID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]entity.ID, 0, len(v.frame.Bodies))
	circles := make([]physics.Circle, 0, len(v.frame.Bodies))
	for _, bs := range v.frame.Bodies {
		bl, ok := v.layout.Body(bs.ID)
		if !ok {
			continue
		}
		ids = append(ids, bs.ID)
		circles = append(circles, physics.Circle{
			Center: bs.Position.TopDown(),
			Radius: math.Max(bl.Radius, MinPickRadius),
		})
	}
	if i := physics.Pick(point, circles); i >= 0 {
		return ids[i]
	}
	return entity.NoBody
}

// Click selects the body under point, or deselects when there is none.
// It returns the resulting selection.
func (v *View) Click(point physics.Vector2D) entity.ID {
	id := v.Pick(point)
	if id == entity.NoBody {
		v.Deselect()
		return entity.NoBody
	}
	if err := v.Select(id); err != nil {
		return entity.NoBody
	}
	return id
}
