// Package engo is the windowed orrery viewer. It draws a top-down view of a
// scene with engo's 2D render system and routes mouse and keyboard input to
// an engine.View.
package engo

import (
	"context"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
	"github.com/opd-ai/go-orrery/pkg/render"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

// SceneType is the engo scene name
const SceneType = "OrreryScene"

const defaultFontSize = 14

// SceneOption configures an OrreryScene
type SceneOption func(*OrreryScene)

// WithSceneLogger sets the scene's logger
func WithSceneLogger(l *logging.Logger) SceneOption {
	return func(s *OrreryScene) { s.logger = l }
}

// WithStarfieldSeed fixes the background starfield
func WithStarfieldSeed(seed uint64) SceneOption {
	return func(s *OrreryScene) { s.assets = NewAssetManager(seed) }
}

// WithStatus sets the source description shown on the HUD status line
func WithStatus(status func() string) SceneOption {
	return func(s *OrreryScene) { s.status = status }
}

// OrreryScene is the engo scene that shows a FrameSource
type OrreryScene struct {
	source engine.FrameSource
	view   *engine.View
	logger *logging.Logger
	assets *AssetManager
	status func() string

	renderer     *EngoRenderer
	camera       *CameraSystem
	input        *InputSystem
	hud          *HUDSystem
	background   *sprite
	coronaColors []color.RGBA
	frames       uint64
}

// NewOrreryScene creates a scene over source. Selection events go to bus;
// a nil bus gets a private one.
func NewOrreryScene(source engine.FrameSource, bus *event.Bus, opts ...SceneOption) *OrreryScene {
	layout := source.Layout()
	s := &OrreryScene{
		source: source,
		view:   engine.NewView(layout, bus),
		logger: logging.Discard(),
		assets: NewAssetManager(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("orrery_scene")

	s.coronaColors = make([]color.RGBA, len(layout.Corona.Colors))
	for i, hex := range layout.Corona.Colors {
		c, err := validation.ParseColor(hex)
		if err != nil {
			c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
		}
		s.coronaColors[i] = c
	}
	return s
}

// Type implements engo.Scene
func (s *OrreryScene) Type() string { return SceneType }

// Preload implements engo.Scene
func (s *OrreryScene) Preload() {
	if err := s.assets.Preload(); err != nil {
		s.logger.Error(context.Background(), "preload failed", err)
	}
}

// Setup implements engo.Scene
func (s *OrreryScene) Setup(u engo.Updater) {
	w := u.(*ecs.World)
	common.SetBackground(color.Black)

	rs := &common.RenderSystem{}
	w.AddSystem(rs)

	if err := s.assets.Load(defaultFontSize); err != nil {
		s.logger.Error(context.Background(), "asset load failed", err)
	}
	if tex := s.assets.Starfield(); tex != nil {
		s.background = newSprite(rs, tex, color.White, zBackground)
		s.background.Scale = engo.Point{
			X: engo.GameWidth() / StarfieldSize,
			Y: engo.GameHeight() / StarfieldSize,
		}
	}

	SetupInputBindings()
	s.init(rs, engo.GameWidth(), engo.GameHeight())
	s.hud.Attach(rs, s.assets.Font())

	w.AddSystem(s.camera)
	w.AddSystem(s.input)
	w.AddSystem(&frameSystem{scene: s})
	w.AddSystem(s.hud)

	s.logger.Info(context.Background(), "scene ready",
		"bodies", len(s.view.Layout().Bodies),
		"width", engo.GameWidth(),
		"height", engo.GameHeight(),
	)
}

// init builds the systems that do not need a GL context
func (s *OrreryScene) init(sink SpriteSink, width, height float32) {
	s.renderer = NewEngoRenderer(sink)
	s.camera = NewCameraSystem(s.view)
	s.camera.update(width, height)
	s.input = NewInputSystem(s.view, s.camera, s.logger)
	s.hud = NewHUDSystem(s.view, s.status)
}

// step pulls a frame from the source and draws it. When the source has
// nothing new the previous frame stays on screen and only the camera moves.
func (s *OrreryScene) step(dt float32, width, height float32) {
	frame, ok := s.source.Frame()
	if !ok {
		frame = s.view.Frame()
	} else {
		s.frames++
	}
	s.view.Update(frame, float64(dt))
	s.camera.update(width, height)

	s.renderer.SetProjector(s.camera.Projector())
	s.renderer.SetSelected(s.view.Selected())
	layout := s.view.Layout()
	render.DrawScene(s.renderer, layout, frame)

	sun := physics.Vector3{}
	for _, bl := range layout.Bodies {
		if bl.Kind != entity.Star {
			continue
		}
		if bs, ok := frame.Body(bl.ID); ok {
			sun = bs.Position
		}
		break
	}
	points := engine.CoronaPositions(layout.Corona.Particles, frame.CoronaAngle)
	for i := range points {
		points[i] = points[i].Add(sun)
	}
	s.renderer.RenderCorona(points, s.coronaColors)
}

// View returns the scene's view
func (s *OrreryScene) View() *engine.View {
	return s.view
}

// Exit implements engo.Exiter
func (s *OrreryScene) Exit() {
	if s.hud != nil {
		s.hud.Close()
	}
	s.logger.Info(context.Background(), "scene closed", "frames", s.frames)
}

// frameSystem drives OrreryScene.step once per engo update
type frameSystem struct {
	scene *OrreryScene
}

func (fs *frameSystem) Remove(ecs.BasicEntity) {}

func (fs *frameSystem) Update(dt float32) {
	fs.scene.step(dt, engo.GameWidth(), engo.GameHeight())
}

// RunOptions are the window settings for Run
type RunOptions struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
}

// Run opens a window and shows scene until it is closed
func Run(scene *OrreryScene, opts RunOptions) {
	engo.Run(engo.RunOptions{
		Title:          opts.Title,
		Width:          opts.Width,
		Height:         opts.Height,
		Fullscreen:     opts.Fullscreen,
		VSync:          true,
		StandardInputs: false,
	}, scene)
}
