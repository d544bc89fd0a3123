// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/orbit"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

// Spin modes select how a body's spin angle advances each frame
const (
	SpinPerFrame  = "frame"  // rotationSpeed radians per frame
	SpinPerSecond = "delta"  // rotationSpeed radians per second of frame delta
	SpinLegacy    = "legacy" // both increments, kept for reproducing old recordings
)

// SceneConfig contains the static description of an orrery scene
type SceneConfig struct {
	Sun        SunConfig        `json:"sun"`
	Bodies     []BodyConfig     `json:"bodies"`
	Moon       MoonConfig       `json:"moon"`
	Simulation SimulationConfig `json:"simulation"`
	Camera     CameraConfig     `json:"camera"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
}

// SunConfig describes the central star and its corona
type SunConfig struct {
	Name            string  `json:"name"`
	Radius          float64 `json:"radius"`
	Color           string  `json:"color"`
	CoronaParticles int     `json:"coronaParticles"`
	CoronaInner     float64 `json:"coronaInner"`
	CoronaOuter     float64 `json:"coronaOuter"`
	CoronaStep      float64 `json:"coronaStep"` // radians about y per frame
}

// BodyConfig contains configuration for a planet
type BodyConfig struct {
	Name          string         `json:"name"`
	Elements      orbit.Elements `json:"elements"`
	Size          float64        `json:"size"`
	Color         string         `json:"color"`
	RotationSpeed float64        `json:"rotationSpeed"`
	Info          string         `json:"info"`
	Link          string         `json:"link"`
	Rings         []RingConfig   `json:"rings,omitempty"`
}

// RingConfig describes a ring around a planet
type RingConfig struct {
	Inner   float64 `json:"inner"`
	Outer   float64 `json:"outer"`
	Style   string  `json:"style"`
	TiltDeg float64 `json:"tiltDegrees"`
}

// MoonConfig describes the satellite that follows its parent planet
type MoonConfig struct {
	Enabled       bool    `json:"enabled"`
	Name          string  `json:"name"`
	Parent        string  `json:"parent"`
	Radius        float64 `json:"radius"`
	OrbitRadius   float64 `json:"orbitRadius"`
	AngleStep     float64 `json:"angleStep"`
	Inclination   float64 `json:"inclination"`
	RotationSpeed float64 `json:"rotationSpeed"`
	Color         string  `json:"color"`
}

// SimulationConfig contains frame loop settings
type SimulationConfig struct {
	TimeScale     float64 `json:"timeScale"` // scene seconds per wall-clock second
	SpinMode      string  `json:"spinMode"`
	OrbitSegments int     `json:"orbitSegments"`
	MaxDelta      float64 `json:"maxDelta"` // seconds; longer frame gaps are clamped
	FrameRate     int     `json:"frameRate"`
}

// CameraConfig contains camera placement and selection tween settings
type CameraConfig struct {
	Distance     float64 `json:"distance"`
	MinDistance  float64 `json:"minDistance"`
	MaxDistance  float64 `json:"maxDistance"`
	TweenMillis  int     `json:"tweenMillis"`
	FollowFactor float64 `json:"followFactor"` // camera offset in body radii
}

// TelemetryConfig contains network-related configuration
type TelemetryConfig struct {
	Address     string  `json:"address"`
	ServerURL   string  `json:"serverURL"`
	UpdateRate  int     `json:"updateRate"`
	MaxClients  int     `json:"maxClients"`
	MessageRate float64 `json:"messageRate"`
	ClientBurst int     `json:"clientBurst"`
}

// Radius is the rendered radius of the body
func (b BodyConfig) Radius() float64 {
	return b.Size * 5
}

// ToBody converts the configuration into a planet ready for registration
func (b BodyConfig) ToBody() (entity.Body, error) {
	name, err := validation.ValidateBodyName(b.Name)
	if err != nil {
		return entity.Body{}, err
	}
	if err := validation.ValidateElements(b.Elements); err != nil {
		return entity.Body{}, fmt.Errorf("body %s: %w", name, err)
	}
	if err := validation.ValidateInfo(b.Info); err != nil {
		return entity.Body{}, fmt.Errorf("body %s: %w", name, err)
	}
	if b.Size <= 0 || math.IsInf(b.Size, 0) || math.IsNaN(b.Size) {
		return entity.Body{}, fmt.Errorf("body %s: size must be positive, got %v", name, b.Size)
	}
	c, err := validation.ParseColor(b.Color)
	if err != nil {
		return entity.Body{}, fmt.Errorf("body %s: %w", name, err)
	}

	rings := make([]entity.Ring, 0, len(b.Rings))
	for _, rc := range b.Rings {
		r, err := rc.toRing()
		if err != nil {
			return entity.Body{}, fmt.Errorf("body %s: %w", name, err)
		}
		rings = append(rings, r)
	}

	return entity.Body{
		Name:          name,
		Kind:          entity.Planet,
		Elements:      b.Elements,
		RotationSpeed: b.RotationSpeed,
		Radius:        b.Radius(),
		Color:         c,
		Info:          b.Info,
		Link:          b.Link,
		Rings:         rings,
	}, nil
}

func (r RingConfig) toRing() (entity.Ring, error) {
	inner, outer := r.Inner, r.Outer
	if inner > outer {
		inner, outer = outer, inner
	}
	if inner < 0 {
		return entity.Ring{}, fmt.Errorf("ring radius must not be negative: %v", inner)
	}
	style := entity.RingStyle(strings.ToLower(r.Style))
	switch style {
	case entity.TexturedRing, entity.CloudyRing:
	case "":
		style = entity.CloudyRing
	default:
		return entity.Ring{}, fmt.Errorf("unknown ring style %q", r.Style)
	}
	return entity.Ring{Inner: inner, Outer: outer, Style: style, TiltDeg: r.TiltDeg}, nil
}

// ToBody converts the sun configuration into the scene's star
func (s SunConfig) ToBody() (entity.Body, error) {
	name, err := validation.ValidateBodyName(s.Name)
	if err != nil {
		return entity.Body{}, err
	}
	c, err := validation.ParseColor(s.Color)
	if err != nil {
		return entity.Body{}, fmt.Errorf("sun: %w", err)
	}
	return entity.Body{
		Name:   name,
		Kind:   entity.Star,
		Radius: s.Radius,
		Color:  c,
		Info:   "The star at the centre of the system",
	}, nil
}

// ToBody converts the moon configuration into a body. Its orbit is set up
// separately as an entity.Satellite.
func (m MoonConfig) ToBody() (entity.Body, error) {
	name, err := validation.ValidateBodyName(m.Name)
	if err != nil {
		return entity.Body{}, err
	}
	c, err := validation.ParseColor(m.Color)
	if err != nil {
		return entity.Body{}, fmt.Errorf("moon: %w", err)
	}
	return entity.Body{
		Name:          name,
		Kind:          entity.Moon,
		RotationSpeed: m.RotationSpeed,
		Radius:        m.Radius,
		Color:         c,
		Info:          fmt.Sprintf("Natural satellite of %s", m.Parent),
	}, nil
}

// Validate checks the whole scene for configuration errors
func (c *SceneConfig) Validate() error {
	if _, err := c.Sun.ToBody(); err != nil {
		return err
	}
	if c.Sun.CoronaParticles < 0 {
		return &ValidationError{Field: "Sun.CoronaParticles", Value: c.Sun.CoronaParticles, Message: "must not be negative"}
	}
	if c.Sun.CoronaInner > c.Sun.CoronaOuter {
		return &ValidationError{Field: "Sun.CoronaInner", Value: c.Sun.CoronaInner, Message: "must not exceed CoronaOuter"}
	}
	if len(c.Bodies) == 0 {
		return &ValidationError{Field: "Bodies", Value: 0, Message: "at least one body is required"}
	}

	seen := map[string]bool{strings.ToLower(c.Sun.Name): true}
	for i := range c.Bodies {
		b, err := c.Bodies[i].ToBody()
		if err != nil {
			return err
		}
		key := strings.ToLower(b.Name)
		if seen[key] {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateBody, b.Name)
		}
		seen[key] = true
	}

	if c.Moon.Enabled {
		if _, err := c.Moon.ToBody(); err != nil {
			return err
		}
		if seen[strings.ToLower(c.Moon.Name)] {
			return fmt.Errorf("%w: %s", entity.ErrDuplicateBody, c.Moon.Name)
		}
		if !c.hasBody(c.Moon.Parent) {
			return fmt.Errorf("moon parent %q: %w", c.Moon.Parent, entity.ErrUnknownBody)
		}
		if c.Moon.OrbitRadius <= 0 {
			return &ValidationError{Field: "Moon.OrbitRadius", Value: c.Moon.OrbitRadius, Message: "must be positive"}
		}
	}

	return c.validateSimulation()
}

func (c *SceneConfig) hasBody(name string) bool {
	for _, b := range c.Bodies {
		if strings.EqualFold(b.Name, name) {
			return true
		}
	}
	return false
}

func (c *SceneConfig) validateSimulation() error {
	sim := c.Simulation
	if sim.TimeScale < 0 || math.IsNaN(sim.TimeScale) || math.IsInf(sim.TimeScale, 0) {
		return &ValidationError{Field: "Simulation.TimeScale", Value: sim.TimeScale, Message: "must be a finite non-negative number"}
	}
	switch sim.SpinMode {
	case SpinPerFrame, SpinPerSecond, SpinLegacy:
	default:
		return &ValidationError{Field: "Simulation.SpinMode", Value: sim.SpinMode, Message: "must be frame, delta or legacy"}
	}
	if err := validation.ValidateSegments(sim.OrbitSegments); err != nil {
		return &ValidationError{Field: "Simulation.OrbitSegments", Value: sim.OrbitSegments, Message: err.Error()}
	}
	if sim.MaxDelta <= 0 {
		return &ValidationError{Field: "Simulation.MaxDelta", Value: sim.MaxDelta, Message: "must be positive"}
	}
	if sim.FrameRate < 1 || sim.FrameRate > 240 {
		return &ValidationError{Field: "Simulation.FrameRate", Value: sim.FrameRate, Message: "must be between 1 and 240"}
	}

	cam := c.Camera
	if cam.MinDistance <= 0 || cam.MinDistance > cam.MaxDistance {
		return &ValidationError{Field: "Camera.MinDistance", Value: cam.MinDistance, Message: "must be positive and not exceed MaxDistance"}
	}
	if cam.Distance < cam.MinDistance || cam.Distance > cam.MaxDistance {
		return &ValidationError{Field: "Camera.Distance", Value: cam.Distance, Message: "must be within [MinDistance, MaxDistance]"}
	}
	if cam.TweenMillis < 0 {
		return &ValidationError{Field: "Camera.TweenMillis", Value: cam.TweenMillis, Message: "must not be negative"}
	}

	tel := c.Telemetry
	if tel.UpdateRate < 1 || tel.UpdateRate > 100 {
		return &ValidationError{Field: "Telemetry.UpdateRate", Value: tel.UpdateRate, Message: "must be between 1 and 100"}
	}
	if tel.MaxClients < 1 {
		return &ValidationError{Field: "Telemetry.MaxClients", Value: tel.MaxClients, Message: "must be positive"}
	}
	return nil
}

// LoadConfig loads a configuration from a file. Missing sections keep their
// default values.
func LoadConfig(path string) (*SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config := DefaultConfig()
	config.Bodies = nil
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(config.Bodies) == 0 {
		config.Bodies = DefaultBodies()
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SceneConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the eight-planet solar system scene
func DefaultConfig() *SceneConfig {
	return &SceneConfig{
		Sun: SunConfig{
			Name:            "Sun",
			Radius:          50,
			Color:           "#ffff00",
			CoronaParticles: 1000,
			CoronaInner:     55,
			CoronaOuter:     65,
			CoronaStep:      0.01,
		},
		Bodies: DefaultBodies(),
		Moon: MoonConfig{
			Enabled:       true,
			Name:          "Moon",
			Parent:        "Earth",
			Radius:        2,
			OrbitRadius:   30,
			AngleStep:     0.02,
			Inclination:   5.14,
			RotationSpeed: 0.01,
			Color:         "#c0c0c0",
		},
		Simulation: SimulationConfig{
			TimeScale:     1e6,
			SpinMode:      SpinPerFrame,
			OrbitSegments: orbit.DefaultSegments,
			MaxDelta:      0.25,
			FrameRate:     60,
		},
		Camera: CameraConfig{
			Distance:     1000,
			MinDistance:  50,
			MaxDistance:  3000,
			TweenMillis:  1000,
			FollowFactor: 5,
		},
		Telemetry: TelemetryConfig{
			Address:     "localhost:4577",
			ServerURL:   "ws://localhost:4577/ws",
			UpdateRate:  20,
			MaxClients:  32,
			MessageRate: validation.DefaultMessageRate,
			ClientBurst: validation.DefaultBurst,
		},
	}
}

// DefaultBodies returns the eight planets in order from the Sun
func DefaultBodies() []BodyConfig {
	return []BodyConfig{
		{
			Name:          "Mercury",
			Elements:      orbit.Elements{SemiMajorAxis: 150, Eccentricity: 0.2056, Period: 7600544, InclinationDeg: 7.0},
			Size:          1,
			Color:         "#ffa500",
			RotationSpeed: 0.00001,
			Info:          "Smallest planet, closest to the Sun",
			Link:          "https://science.nasa.gov/mercury/facts/",
		},
		{
			Name:          "Venus",
			Elements:      orbit.Elements{SemiMajorAxis: 250, Eccentricity: 0.0067, Period: 19414149, InclinationDeg: 3.4},
			Size:          1.5,
			Color:         "#ffd700",
			RotationSpeed: -0.00000005,
			Info:          "Hottest planet, rotates backwards",
			Link:          "https://science.nasa.gov/venus/venus-facts/",
		},
		{
			Name:          "Earth",
			Elements:      orbit.Elements{SemiMajorAxis: 350, Eccentricity: 0.0167, Period: 31557600, InclinationDeg: 0},
			Size:          1.6,
			Color:         "#00ff00",
			RotationSpeed: 0.01,
			Info:          "Our home, the blue planet",
			Link:          "https://science.nasa.gov/earth/facts/",
		},
		{
			Name:          "Mars",
			Elements:      orbit.Elements{SemiMajorAxis: 450, Eccentricity: 0.0934, Period: 59355072, InclinationDeg: 1.85},
			Size:          1.2,
			Color:         "#ff4500",
			RotationSpeed: 0.01,
			Info:          "The Red Planet, home to Olympus Mons",
			Link:          "https://science.nasa.gov/mars/facts/",
		},
		{
			Name:          "Jupiter",
			Elements:      orbit.Elements{SemiMajorAxis: 650, Eccentricity: 0.0489, Period: 374335776, InclinationDeg: 1.31},
			Size:          4,
			Color:         "#ffff00",
			RotationSpeed: 0.02,
			Info:          "Largest planet, Great Red Spot",
			Link:          "https://science.nasa.gov/jupiter/facts/",
			Rings:         []RingConfig{{Inner: 45, Outer: 50, Style: string(entity.CloudyRing)}},
		},
		{
			Name:          "Saturn",
			Elements:      orbit.Elements{SemiMajorAxis: 850, Eccentricity: 0.0565, Period: 929596608, InclinationDeg: 2.49},
			Size:          3,
			Color:         "#87ceeb",
			RotationSpeed: 0.015,
			Info:          "Known for its beautiful rings",
			Link:          "https://science.nasa.gov/saturn/facts/",
			Rings:         []RingConfig{{Inner: 40, Outer: 85, Style: string(entity.TexturedRing)}},
		},
		{
			Name:          "Uranus",
			Elements:      orbit.Elements{SemiMajorAxis: 1050, Eccentricity: 0.0457, Period: 2651370019, InclinationDeg: 0.77},
			Size:          2.5,
			Color:         "#4682b4",
			RotationSpeed: -0.01,
			Info:          "Ice giant, tilted on its side",
			Link:          "https://science.nasa.gov/uranus/facts/",
			Rings:         []RingConfig{{Inner: 35, Outer: 40, Style: string(entity.CloudyRing), TiltDeg: 90}},
		},
		{
			Name:          "Neptune",
			Elements:      orbit.Elements{SemiMajorAxis: 1250, Eccentricity: 0.0086, Period: 5200418560, InclinationDeg: 1.77},
			Size:          2.5,
			Color:         "#0000ff",
			RotationSpeed: 0.015,
			Info:          "Windiest planet, dark spot",
			Link:          "https://science.nasa.gov/neptune/facts/",
			Rings:         []RingConfig{{Inner: 25, Outer: 30, Style: string(entity.CloudyRing)}},
		},
	}
}
