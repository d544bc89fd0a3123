package config

import (
	"fmt"
	"sort"
	"strings"
)

// SceneTemplate is a named preset body selection
type SceneTemplate struct {
	Name        string
	Description string
	Bodies      []BodyConfig
	Moon        bool
	Distance    float64 // initial camera distance
}

var sceneTemplates = map[string]func() *SceneTemplate{
	"solar_system": func() *SceneTemplate {
		return &SceneTemplate{
			Name:        "Solar System",
			Description: "All eight planets and the Moon",
			Bodies:      DefaultBodies(),
			Moon:        true,
			Distance:    1000,
		}
	},
	"inner_planets": func() *SceneTemplate {
		return &SceneTemplate{
			Name:        "Inner Planets",
			Description: "Mercury, Venus, Earth and Mars with the Moon",
			Bodies:      pickBodies("Mercury", "Venus", "Earth", "Mars"),
			Moon:        true,
			Distance:    600,
		}
	},
	"outer_planets": func() *SceneTemplate {
		return &SceneTemplate{
			Name:        "Outer Planets",
			Description: "The four gas and ice giants",
			Bodies:      pickBodies("Jupiter", "Saturn", "Uranus", "Neptune"),
			Moon:        false,
			Distance:    2000,
		}
	},
}

func pickBodies(names ...string) []BodyConfig {
	var out []BodyConfig
	for _, b := range DefaultBodies() {
		for _, n := range names {
			if strings.EqualFold(b.Name, n) {
				out = append(out, b)
			}
		}
	}
	return out
}

// GetSceneTemplate returns a fresh copy of the named template, or nil
func GetSceneTemplate(name string) *SceneTemplate {
	build, ok := sceneTemplates[name]
	if !ok {
		return nil
	}
	return build()
}

// ListSceneTemplates maps template keys to their descriptions
func ListSceneTemplates() map[string]string {
	out := make(map[string]string, len(sceneTemplates))
	for key, build := range sceneTemplates {
		out[key] = build().Description
	}
	return out
}

// TemplateNames returns the template keys in sorted order
func TemplateNames() []string {
	names := make([]string, 0, len(sceneTemplates))
	for key := range sceneTemplates {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// ApplyTemplate replaces the scene's bodies with the named template
func ApplyTemplate(scene *SceneConfig, name string) error {
	tmpl := GetSceneTemplate(name)
	if tmpl == nil {
		return fmt.Errorf("unknown scene template %q (available: %s)", name, strings.Join(TemplateNames(), ", "))
	}
	scene.Bodies = tmpl.Bodies
	scene.Moon.Enabled = tmpl.Moon && scene.hasBody(scene.Moon.Parent)
	scene.Camera.Distance = tmpl.Distance
	return nil
}
