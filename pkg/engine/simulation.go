// Package engine runs the orrery: it advances every body once per frame from
// an injected clock and publishes immutable frame snapshots.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

// Recorder receives per-frame measurements. pkg/metrics provides the
// Prometheus implementation.
type Recorder interface {
	RecordFrame(d time.Duration)
	RecordSolve(body string, iterations int, converged bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordFrame(time.Duration)     {}
func (noopRecorder) RecordSolve(string, int, bool) {}

// Option configures a Simulation
type Option func(*Simulation)

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Simulation) { s.recorder = r }
}

// WithEventBus shares an existing event bus
func WithEventBus(b *event.Bus) Option {
	return func(s *Simulation) { s.EventBus = b }
}

// WithSeed fixes the corona's random layout
func WithSeed(seed uint64) Option {
	return func(s *Simulation) { s.seed = seed }
}

// Simulation owns the bodies of one scene and advances them frame by frame.
// Positions are a pure function of the clock; spin, the moon's angle and the
// corona are the only accumulated state.
type Simulation struct {
	Config   *config.SceneConfig
	Bodies   *entity.Registry
	EventBus *event.Bus

	mu       sync.RWMutex
	clock    Clock
	logger   *logging.Logger
	recorder Recorder
	seed     uint64

	sun     entity.ID
	planets []entity.ID
	moon    *entity.Satellite
	corona  *Corona
	paths   map[entity.ID][]physics.Vector3

	running     bool
	frame       uint64
	lastElapsed float64
	sceneTime   float64
	light       float64
	lastStep    time.Time
	warned      map[entity.ID]bool
}

// NewSimulation validates cfg and builds the scene. The clock supplies
// elapsed seconds for every Step.
func NewSimulation(cfg *config.SceneConfig, clock Clock, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid scene configuration")
	}
	if clock == nil {
		return nil, fmt.Errorf("simulation requires a clock")
	}

	s := &Simulation{
		Config:   cfg,
		Bodies:   entity.NewRegistry(),
		EventBus: event.NewEventBus(),
		clock:    clock,
		logger:   logging.Discard(),
		recorder: noopRecorder{},
		seed:     uint64(time.Now().UnixNano()),
		paths:    make(map[entity.ID][]physics.Vector3),
		warned:   make(map[entity.ID]bool),
		sun:      entity.NoBody,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initBodies(); err != nil {
		return nil, err
	}
	s.initCorona()

	if cfg.Simulation.SpinMode == config.SpinLegacy {
		s.logger.Warn(context.Background(), "legacy spin mode applies both the per-frame and per-second spin increments",
			"spin_mode", cfg.Simulation.SpinMode)
	}
	return s, nil
}

// initBodies registers the star, the planets and the moon in that order.
func (s *Simulation) initBodies() error {
	sun, err := s.Config.Sun.ToBody()
	if err != nil {
		return err
	}
	if s.sun, err = s.Bodies.Add(sun); err != nil {
		return err
	}

	segments := s.Config.Simulation.OrbitSegments
	for _, bc := range s.Config.Bodies {
		b, err := bc.ToBody()
		if err != nil {
			return err
		}
		id, err := s.Bodies.Add(b)
		if err != nil {
			return err
		}
		s.planets = append(s.planets, id)
		s.paths[id] = b.Elements.Path(segments)
	}

	if !s.Config.Moon.Enabled {
		return nil
	}
	mc := s.Config.Moon
	parent, ok := s.Bodies.Lookup(mc.Parent)
	if !ok {
		return fmt.Errorf("moon parent %q: %w", mc.Parent, entity.ErrUnknownBody)
	}
	mb, err := mc.ToBody()
	if err != nil {
		return err
	}
	id, err := s.Bodies.Add(mb)
	if err != nil {
		return err
	}
	s.moon = &entity.Satellite{
		Body:        id,
		Parent:      parent,
		OrbitRadius: mc.OrbitRadius,
		AngleStep:   mc.AngleStep,
		Inclination: mc.Inclination,
	}
	return nil
}

func (s *Simulation) initCorona() {
	sc := s.Config.Sun
	rng := rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	s.corona = NewCorona(sc.CoronaParticles, sc.CoronaInner, sc.CoronaOuter, sc.CoronaStep, rng)
}

// Start marks the simulation running and publishes SimulationStarted
func (s *Simulation) Start() {
	s.mu.Lock()
	s.running = true
	s.lastStep = time.Now()
	s.mu.Unlock()

	s.logger.Info(context.Background(), "simulation started", "bodies", s.Bodies.Len())
	s.EventBus.Publish(&event.BaseEvent{EventType: event.SimulationStarted, Source: s})
}

// Stop marks the simulation stopped and publishes SimulationStopped
func (s *Simulation) Stop() {
	s.mu.Lock()
	s.running = false
	frames := s.frame
	s.mu.Unlock()

	s.logger.Info(context.Background(), "simulation stopped", "frames", frames)
	s.EventBus.Publish(&event.BaseEvent{EventType: event.SimulationStopped, Source: s})
}

// Running reports whether Start has been called without a matching Stop
func (s *Simulation) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Step advances one frame at the clock's current time
func (s *Simulation) Step() FrameState {
	return s.StepAt(s.clock.Elapsed())
}

// StepAt advances one frame at the given elapsed time. Planets are placed
// first, then the moon relative to its updated parent, then spin, lighting
// and the corona.
func (s *Simulation) StepAt(elapsed float64) FrameState {
	started := time.Now()
	var stalled []*event.SolverEvent

	s.mu.Lock()
	delta := elapsed - s.lastElapsed
	if delta < 0 {
		delta = 0
	}
	if delta > s.Config.Simulation.MaxDelta {
		delta = s.Config.Simulation.MaxDelta
	}
	if elapsed > s.lastElapsed {
		s.lastElapsed = elapsed
	}
	s.sceneTime = elapsed * s.Config.Simulation.TimeScale

	for _, id := range s.planets {
		b := s.Bodies.MustGet(id)
		sol := b.UpdatePosition(s.sceneTime)
		s.recorder.RecordSolve(b.Name, sol.Iterations, sol.Converged)
		if !sol.Converged && !s.warned[id] {
			s.warned[id] = true
			stalled = append(stalled, event.NewSolverEvent(s, int(id), b.Name, s.sceneTime, sol.Iterations))
		}
		b.Spin(s.spinStep(b.RotationSpeed, delta, false))
	}

	if s.moon != nil {
		parent := s.Bodies.MustGet(s.moon.Parent)
		mb := s.Bodies.MustGet(s.moon.Body)
		s.moon.Advance()
		mb.Position = s.moon.PositionAround(parent.Position)
		mb.Spin(s.spinStep(mb.RotationSpeed, delta, true))
	}

	for _, id := range s.planets {
		s.light = LightIntensity(s.Bodies.MustGet(id).Position)
	}
	s.corona.Rotate()
	s.frame++
	s.lastStep = time.Now()

	state := s.snapshotLocked()
	s.mu.Unlock()

	for _, ev := range stalled {
		s.logger.Warn(context.Background(), "kepler solver hit the iteration cap",
			"body", ev.BodyName, "scene_time", ev.SceneTime, "iterations", ev.Iterations)
		s.EventBus.Publish(ev)
	}
	s.recorder.RecordFrame(time.Since(started))
	s.EventBus.Publish(event.NewFrameEvent(s, state.Frame, state.Elapsed, state.SceneTime))
	return state
}

// spinStep returns the spin increment for one frame. The moon keeps a
// per-frame increment in legacy mode.
func (s *Simulation) spinStep(speed, delta float64, moon bool) float64 {
	switch s.Config.Simulation.SpinMode {
	case config.SpinPerSecond:
		return speed * delta
	case config.SpinLegacy:
		if moon {
			return speed
		}
		return speed + speed*delta
	default:
		return speed
	}
}

// Snapshot returns the state of the last step without advancing
func (s *Simulation) Snapshot() FrameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Simulation) snapshotLocked() FrameState {
	state := FrameState{
		Frame:          s.frame,
		Elapsed:        s.lastElapsed,
		SceneTime:      s.sceneTime,
		LightIntensity: s.light,
		CoronaAngle:    s.corona.Angle,
		Bodies:         make([]BodyState, 0, s.Bodies.Len()),
	}
	s.Bodies.Each(func(b *entity.Body) {
		illum := 1.0
		if b.Kind != entity.Star {
			illum = LightIntensity(b.Position)
		}
		state.Bodies = append(state.Bodies, BodyState{
			ID:           b.ID,
			Name:         b.Name,
			Position:     b.Position,
			RotationY:    b.RotationY,
			Illumination: illum,
		})
	})
	return state
}

// Layout describes the static scene for renderers and telemetry clients
func (s *Simulation) Layout() SceneLayout {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cam := s.Config.Camera
	layout := SceneLayout{
		Corona: s.corona.Layout(),
		Camera: CameraLayout{
			Distance:     cam.Distance,
			MinDistance:  cam.MinDistance,
			MaxDistance:  cam.MaxDistance,
			TweenMillis:  cam.TweenMillis,
			FollowFactor: cam.FollowFactor,
		},
	}
	s.Bodies.Each(func(b *entity.Body) {
		layout.Bodies = append(layout.Bodies, BodyLayout{
			ID:       b.ID,
			Name:     b.Name,
			Kind:     b.Kind,
			Radius:   b.Radius,
			Color:    entity.HexColor(b.Color),
			Info:     b.Info,
			Link:     b.Link,
			Elements: b.Elements,
			Rings:    b.Rings,
			Path:     s.paths[b.ID],
		})
	})
	return layout
}

// OrbitPath returns the tilted orbit polyline of a planet
func (s *Simulation) OrbitPath(id entity.ID) ([]physics.Vector3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[id]
	return p, ok
}

// Frames returns the number of completed steps
func (s *Simulation) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// LastStep returns the wall time of the most recent step
func (s *Simulation) LastStep() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStep
}

// CoronaPositions returns the corona particles at the current angle
func (s *Simulation) CoronaPositions() []physics.Vector3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corona.Positions()
}

// Run steps the simulation at fps frames per second until ctx is done.
func (s *Simulation) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = s.Config.Simulation.FrameRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	s.Start()
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step()
		}
	}
}

// Sun returns the ID of the scene's star
func (s *Simulation) Sun() entity.ID {
	return s.sun
}
