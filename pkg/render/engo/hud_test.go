package engo

import (
	"strings"
	"testing"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/orbit"
)

func TestInfoLines(t *testing.T) {
	tests := []struct {
		name string
		bl   engine.BodyLayout
		want []string
	}{
		{
			name: "planet",
			bl: engine.BodyLayout{
				Name: "Earth",
				Kind: entity.Planet,
				Info: "Our home, the blue planet",
				Link: "https://science.nasa.gov/earth/facts/",
				Elements: orbit.Elements{
					SemiMajorAxis: 350,
					Eccentricity:  0.0167,
					Period:        864000,
				},
			},
			want: []string{
				"Earth",
				"Our home, the blue planet",
				"a 350  e 0.0167  i 0.00°",
				"period 10.0 days",
				"https://science.nasa.gov/earth/facts/",
			},
		},
		{
			name: "star without info",
			bl:   engine.BodyLayout{Name: "Sun", Kind: entity.Star},
			want: []string{"Sun"},
		},
		{
			name: "moon",
			bl:   engine.BodyLayout{Name: "Moon", Kind: entity.Moon, Link: "https://example.org/moon"},
			want: []string{"Moon", "https://example.org/moon"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InfoLines(tt.bl)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("InfoLines() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	frame := engine.FrameState{Frame: 42, SceneTime: 2 * secondsPerDay, LightIntensity: 0.5}
	tests := []struct {
		source string
		want   string
	}{
		{"", "frame 42  day 2.0  light 0.50"},
		{"local", "frame 42  day 2.0  light 0.50  local"},
	}
	for _, tt := range tests {
		if got := StatusLine(frame, tt.source); got != tt.want {
			t.Errorf("StatusLine(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestHUDSystem_FollowsSelection(t *testing.T) {
	v := newTestView(t)
	hud := NewHUDSystem(v, func() string { return "local" })
	defer hud.Close()

	if len(hud.Info()) != 0 {
		t.Fatalf("Info() = %q before selection", hud.Info())
	}

	if err := v.SelectByName("Earth"); err != nil {
		t.Fatalf("SelectByName() error = %v", err)
	}
	info := hud.Info()
	if len(info) < 4 || info[0] != "Earth" || !strings.HasPrefix(info[3], "period 365") {
		t.Errorf("Info() = %q", info)
	}

	v.Deselect()
	if len(hud.Info()) != 0 {
		t.Errorf("Info() = %q after deselect", hud.Info())
	}
}

func TestHUDSystem_UpdateWithoutSink(t *testing.T) {
	v := newTestView(t)
	hud := NewHUDSystem(v, func() string { return "remote ws://host/ws" })
	defer hud.Close()

	hud.Update(0.016)
	if !strings.HasSuffix(hud.shownState, "remote ws://host/ws") {
		t.Errorf("status = %q", hud.shownState)
	}
	if hud.statusText != nil || hud.panel != nil {
		t.Error("sprites created without a sink")
	}
}

func TestHUDSystem_UpdateSprites(t *testing.T) {
	v := newTestView(t)
	hud := NewHUDSystem(v, nil)
	defer hud.Close()

	sink := newFakeSink()
	hud.Attach(sink, &common.Font{URL: FontURL})

	hud.Update(0.016)
	if len(sink.sprites) != 3 {
		t.Fatalf("sprites = %d, want status, panel and info text", len(sink.sprites))
	}
	if !hud.panel.Hidden || !hud.infoText.Hidden {
		t.Error("info panel shown with nothing selected")
	}

	if err := v.Select(entity.ID(3)); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	hud.Update(0.016)
	if hud.panel.Hidden {
		t.Error("info panel hidden with a selection")
	}
	text, ok := hud.infoText.Drawable.(common.Text)
	if !ok || !strings.HasPrefix(text.Text, "Earth\n") {
		t.Errorf("info text = %#v", hud.infoText.Drawable)
	}
	if len(sink.sprites) != 3 {
		t.Errorf("sprites = %d after second update, want 3", len(sink.sprites))
	}
}

func TestHUDSystem_Close(t *testing.T) {
	v := newTestView(t)
	hud := NewHUDSystem(v, nil)
	hud.Close()

	if err := v.SelectByName("Mars"); err != nil {
		t.Fatalf("SelectByName() error = %v", err)
	}
	if len(hud.Info()) != 0 {
		t.Errorf("Info() = %q after Close", hud.Info())
	}
}
