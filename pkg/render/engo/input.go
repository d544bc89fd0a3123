package engo

import (
	"context"
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Button names registered by SetupInputBindings
const (
	ButtonDeselect = "deselect"
	ButtonPanLeft  = "panLeft"
	ButtonPanRight = "panRight"
	ButtonPanUp    = "panUp"
	ButtonPanDown  = "panDown"
	ButtonZoomIn   = "zoomIn"
	ButtonZoomOut  = "zoomOut"
)

// scrollZoomStep is the distance change per unit of wheel scroll
const scrollZoomStep = 0.1

var bodyKeys = []engo.Key{
	engo.KeyZero, engo.KeyOne, engo.KeyTwo, engo.KeyThree, engo.KeyFour,
	engo.KeyFive, engo.KeySix, engo.KeySeven, engo.KeyEight, engo.KeyNine,
}

func bodyButton(i int) string {
	return fmt.Sprintf("body%d", i)
}

// SetupInputBindings registers the orrery's key bindings with engo
func SetupInputBindings() {
	engo.Input.RegisterButton(ButtonDeselect, engo.KeyEscape)
	engo.Input.RegisterButton(ButtonPanLeft, engo.KeyA, engo.KeyArrowLeft)
	engo.Input.RegisterButton(ButtonPanRight, engo.KeyD, engo.KeyArrowRight)
	engo.Input.RegisterButton(ButtonPanUp, engo.KeyW, engo.KeyArrowUp)
	engo.Input.RegisterButton(ButtonPanDown, engo.KeyS, engo.KeyArrowDown)
	engo.Input.RegisterButton(ButtonZoomIn, engo.KeyE)
	engo.Input.RegisterButton(ButtonZoomOut, engo.KeyQ)
	for i, k := range bodyKeys {
		engo.Input.RegisterButton(bodyButton(i), k)
	}
}

// InputSystem turns mouse and keyboard input into view operations: click
// to select, Escape to deselect, number keys to jump to a body, wheel or
// E/Q to zoom and WASD or arrows to pan.
type InputSystem struct {
	view   *engine.View
	camera *CameraSystem
	logger *logging.Logger
}

// NewInputSystem creates an input system acting on view through camera's
// projection.
func NewInputSystem(view *engine.View, camera *CameraSystem, logger *logging.Logger) *InputSystem {
	if logger == nil {
		logger = logging.Discard()
	}
	return &InputSystem{view: view, camera: camera, logger: logger.WithComponent("input")}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(ecs.BasicEntity) {}

// Update polls engo's input state
func (is *InputSystem) Update(dt float32) {
	mouse := engo.Input.Mouse
	if mouse.Action == engo.Press && mouse.Button == engo.MouseButtonLeft {
		is.Click(engo.Point{X: mouse.X, Y: mouse.Y})
	}
	if mouse.ScrollY != 0 {
		is.Scroll(mouse.ScrollY)
	}

	if engo.Input.Button(ButtonDeselect).JustPressed() {
		is.view.Deselect()
	}
	for i := range bodyKeys {
		if engo.Input.Button(bodyButton(i)).JustPressed() {
			is.SelectIndex(i)
		}
	}

	switch {
	case engo.Input.Button(ButtonZoomIn).Down():
		is.view.Zoom(1 - float64(dt))
	case engo.Input.Button(ButtonZoomOut).Down():
		is.view.Zoom(1 + float64(dt))
	}

	var dx, dz float64
	if engo.Input.Button(ButtonPanLeft).Down() {
		dx--
	}
	if engo.Input.Button(ButtonPanRight).Down() {
		dx++
	}
	if engo.Input.Button(ButtonPanUp).Down() {
		dz--
	}
	if engo.Input.Button(ButtonPanDown).Down() {
		dz++
	}
	if dx != 0 || dz != 0 {
		is.Pan(dx, dz, dt)
	}
}

// Click selects the body under a window pixel, or deselects
func (is *InputSystem) Click(pt engo.Point) entity.ID {
	world := is.camera.Projector().ToWorld(pt)
	id := is.view.Click(world)
	is.logger.Debug(context.Background(), "click", "x", world.X, "z", world.Y, "body", id)
	return id
}

// Scroll zooms by wheel movement; scrolling up moves closer
func (is *InputSystem) Scroll(amount float32) {
	is.view.Zoom(1 - scrollZoomStep*float64(amount))
}

// Pan moves the camera along the top-down axes. Speed is one camera
// distance per second so panning feels the same at every zoom level.
func (is *InputSystem) Pan(dx, dz float64, dt float32) {
	pos, target := is.view.Camera()
	step := pos.Distance(target) * float64(dt)
	is.view.Pan(physics.Vector3{X: dx * step, Z: dz * step})
}

// SelectIndex selects the body with registry ID i
func (is *InputSystem) SelectIndex(i int) error {
	if err := is.view.Select(entity.ID(i)); err != nil {
		is.logger.Debug(context.Background(), "no body for key", "index", i)
		return err
	}
	return nil
}
