package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	if len(config.Bodies) != 8 {
		t.Errorf("Expected 8 bodies, got %d", len(config.Bodies))
	}
	if config.Sun.Radius != 50 {
		t.Errorf("Expected sun radius 50, got %f", config.Sun.Radius)
	}
	if config.Sun.CoronaParticles != 1000 {
		t.Errorf("Expected 1000 corona particles, got %d", config.Sun.CoronaParticles)
	}
	if config.Simulation.SpinMode != SpinPerFrame {
		t.Errorf("Expected default spin mode %q, got %q", SpinPerFrame, config.Simulation.SpinMode)
	}
	if config.Simulation.OrbitSegments != 128 {
		t.Errorf("Expected 128 orbit segments, got %d", config.Simulation.OrbitSegments)
	}
	if config.Camera.Distance != 1000 || config.Camera.TweenMillis != 1000 {
		t.Errorf("Unexpected camera defaults: %+v", config.Camera)
	}

	moon := config.Moon
	if !moon.Enabled || moon.Parent != "Earth" || moon.OrbitRadius != 30 || moon.AngleStep != 0.02 || moon.Inclination != 5.14 {
		t.Errorf("Unexpected moon defaults: %+v", moon)
	}
}

func TestDefaultConfig_BodyConfigurations(t *testing.T) {
	tests := []struct {
		name   string
		a      float64
		e      float64
		period float64
		incl   float64
		radius float64
		rings  int
	}{
		{"Mercury", 150, 0.2056, 7600544, 7.0, 5, 0},
		{"Venus", 250, 0.0067, 19414149, 3.4, 7.5, 0},
		{"Earth", 350, 0.0167, 31557600, 0, 8, 0},
		{"Mars", 450, 0.0934, 59355072, 1.85, 6, 0},
		{"Jupiter", 650, 0.0489, 374335776, 1.31, 20, 1},
		{"Saturn", 850, 0.0565, 929596608, 2.49, 15, 1},
		{"Uranus", 1050, 0.0457, 2651370019, 0.77, 12.5, 1},
		{"Neptune", 1250, 0.0086, 5200418560, 1.77, 12.5, 1},
	}

	bodies := DefaultBodies()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bodies[i]
			if b.Name != tt.name {
				t.Fatalf("body %d is %s, want %s", i, b.Name, tt.name)
			}
			el := b.Elements
			if el.SemiMajorAxis != tt.a || el.Eccentricity != tt.e || el.Period != tt.period || el.InclinationDeg != tt.incl {
				t.Errorf("elements = %+v", el)
			}
			if math.Abs(b.Radius()-tt.radius) > 1e-9 {
				t.Errorf("Radius() = %v, want %v", b.Radius(), tt.radius)
			}
			if len(b.Rings) != tt.rings {
				t.Errorf("rings = %d, want %d", len(b.Rings), tt.rings)
			}
			if b.Info == "" || !strings.HasPrefix(b.Link, "https://") {
				t.Errorf("missing info or link: %q %q", b.Info, b.Link)
			}
		})
	}
}

func TestBodyConfig_ToBody(t *testing.T) {
	saturn := DefaultBodies()[5]
	b, err := saturn.ToBody()
	if err != nil {
		t.Fatalf("ToBody() error = %v", err)
	}
	if b.Kind != entity.Planet {
		t.Errorf("Kind = %s, want planet", b.Kind)
	}
	if b.Radius != 15 {
		t.Errorf("Radius = %v, want 15", b.Radius)
	}
	if entity.HexColor(b.Color) != "#87ceeb" {
		t.Errorf("Color = %s, want #87ceeb", entity.HexColor(b.Color))
	}
	if len(b.Rings) != 1 || b.Rings[0].Style != entity.TexturedRing || b.Rings[0].Inner != 40 || b.Rings[0].Outer != 85 {
		t.Errorf("Rings = %+v", b.Rings)
	}
}

func TestBodyConfig_ToBodyErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BodyConfig)
		wantErr error
	}{
		{"bad eccentricity", func(b *BodyConfig) { b.Elements.Eccentricity = 1.2 }, validation.ErrEccentricity},
		{"zero period", func(b *BodyConfig) { b.Elements.Period = 0 }, validation.ErrPeriod},
		{"bad color", func(b *BodyConfig) { b.Color = "green" }, nil},
		{"empty name", func(b *BodyConfig) { b.Name = "" }, nil},
		{"zero size", func(b *BodyConfig) { b.Size = 0 }, nil},
		{"bad ring style", func(b *BodyConfig) { b.Rings = []RingConfig{{Inner: 1, Outer: 2, Style: "sparkly"}} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBodies()[2]
			tt.mutate(&b)
			_, err := b.ToBody()
			if err == nil {
				t.Fatal("ToBody() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ToBody() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSceneConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*SceneConfig)
		wantErr    error
		wantField  string
		wantNoErrs bool
	}{
		{name: "default", mutate: func(*SceneConfig) {}, wantNoErrs: true},
		{name: "moon disabled without parent", mutate: func(c *SceneConfig) {
			c.Moon.Enabled = false
			c.Moon.Parent = "Nowhere"
		}, wantNoErrs: true},
		{name: "duplicate body", mutate: func(c *SceneConfig) {
			c.Bodies = append(c.Bodies, c.Bodies[0])
		}, wantErr: entity.ErrDuplicateBody},
		{name: "body named like the sun", mutate: func(c *SceneConfig) {
			c.Bodies[0].Name = "sun"
		}, wantErr: entity.ErrDuplicateBody},
		{name: "unknown moon parent", mutate: func(c *SceneConfig) {
			c.Moon.Parent = "Pluto"
		}, wantErr: entity.ErrUnknownBody},
		{name: "no bodies", mutate: func(c *SceneConfig) {
			c.Bodies = nil
		}, wantField: "Bodies"},
		{name: "bad spin mode", mutate: func(c *SceneConfig) {
			c.Simulation.SpinMode = "wobble"
		}, wantField: "Simulation.SpinMode"},
		{name: "zero segments", mutate: func(c *SceneConfig) {
			c.Simulation.OrbitSegments = 0
		}, wantField: "Simulation.OrbitSegments"},
		{name: "negative time scale", mutate: func(c *SceneConfig) {
			c.Simulation.TimeScale = -1
		}, wantField: "Simulation.TimeScale"},
		{name: "camera outside limits", mutate: func(c *SceneConfig) {
			c.Camera.Distance = 5000
		}, wantField: "Camera.Distance"},
		{name: "zero update rate", mutate: func(c *SceneConfig) {
			c.Telemetry.UpdateRate = 0
		}, wantField: "Telemetry.UpdateRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantNoErrs {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantField != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Validate() error = %T %v, want *ValidationError", err, err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("ValidationError.Field = %s, want %s", ve.Field, tt.wantField)
				}
			}
		})
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")

	original := DefaultConfig()
	original.Simulation.TimeScale = 42
	original.Bodies = original.Bodies[:3]
	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Simulation.TimeScale != 42 {
		t.Errorf("TimeScale = %v, want 42", loaded.Simulation.TimeScale)
	}
	if len(loaded.Bodies) != 3 {
		t.Errorf("len(Bodies) = %d, want 3", len(loaded.Bodies))
	}
	if loaded.Bodies[2].Elements != original.Bodies[2].Elements {
		t.Errorf("Earth elements = %+v, want %+v", loaded.Bodies[2].Elements, original.Bodies[2].Elements)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"simulation": {"timeScale": 5, "spinMode": "delta"}}`), 0o644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Simulation.TimeScale != 5 || loaded.Simulation.SpinMode != SpinPerSecond {
		t.Errorf("simulation = %+v", loaded.Simulation)
	}
	if len(loaded.Bodies) != 8 {
		t.Errorf("len(Bodies) = %d, want the 8 defaults", len(loaded.Bodies))
	}
	if loaded.Camera.Distance != 1000 {
		t.Errorf("Camera.Distance = %v, want default 1000", loaded.Camera.Distance)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.json")
	if err == nil {
		t.Fatal("Expected error when loading non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected nil config when file not found, got non-nil")
	}
	if !strings.Contains(err.Error(), "failed to open config file") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(path, []byte(`{"bodies": [ invalid json}`), 0o644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("LoadConfig() error = %v, want parse error", err)
	}
}

func TestSaveConfig_InvalidPath(t *testing.T) {
	err := SaveConfig(DefaultConfig(), "/path/that/does/not/exist/config.json")
	if err == nil || !strings.Contains(err.Error(), "failed to write config file") {
		t.Errorf("SaveConfig() error = %v, want write error", err)
	}
}
