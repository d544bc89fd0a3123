package engo

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/event"
)

const secondsPerDay = 86400.0

// HUD layout in pixels
const (
	hudMargin      float32 = 10
	hudLineHeight  float32 = 18
	hudPanelWidth  float32 = 320
	hudStatusWidth float32 = 480
)

// HUDSystem shows a status line and, while a body is selected, an info
// panel with its name, description, link and orbit.
type HUDSystem struct {
	view   *engine.View
	status func() string
	font   *common.Font
	sink   SpriteSink

	mu   sync.Mutex
	info []string
	subs []*event.Subscription

	panel      *sprite
	infoText   *sprite
	statusText *sprite
	shownInfo  string
	shownState string
}

// NewHUDSystem creates a HUD for view. status, when not nil, supplies the
// source description shown on the status line. The HUD follows selection
// events on the view's bus until Close.
func NewHUDSystem(view *engine.View, status func() string) *HUDSystem {
	hud := &HUDSystem{view: view, status: status}
	bus := view.EventBus()
	hud.subs = append(hud.subs,
		bus.Subscribe(event.BodySelected, hud.onSelection),
		bus.Subscribe(event.BodyDeselected, hud.onSelection),
	)
	return hud
}

// Attach gives the HUD a font and a sprite sink to draw with. Without them
// the HUD tracks state but draws nothing.
func (hud *HUDSystem) Attach(sink SpriteSink, font *common.Font) {
	hud.sink = sink
	hud.font = font
}

func (hud *HUDSystem) onSelection(e event.Event) {
	be, ok := e.(*event.BodyEvent)
	if !ok {
		return
	}

	var info []string
	if e.GetType() == event.BodySelected {
		layout := hud.view.Layout()
		if bl, ok := layout.Body(entity.ID(be.BodyID)); ok {
			info = InfoLines(bl)
		}
	}

	hud.mu.Lock()
	hud.info = info
	hud.mu.Unlock()
}

// Info returns the lines of the info panel; empty when nothing is selected
func (hud *HUDSystem) Info() []string {
	hud.mu.Lock()
	defer hud.mu.Unlock()
	return append([]string(nil), hud.info...)
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(ecs.BasicEntity) {}

// Update redraws the HUD text when it changed
func (hud *HUDSystem) Update(dt float32) {
	source := ""
	if hud.status != nil {
		source = hud.status()
	}
	state := StatusLine(hud.view.Frame(), source)
	info := strings.Join(hud.Info(), "\n")

	if hud.sink == nil || hud.font == nil {
		hud.shownState, hud.shownInfo = state, info
		return
	}

	if hud.statusText == nil {
		hud.statusText = newSprite(hud.sink, common.Text{Font: hud.font}, color.White, zHUD)
		hud.statusText.Position = engo.Point{X: hudMargin, Y: hudMargin}
		hud.statusText.Width, hud.statusText.Height = hudStatusWidth, hudLineHeight
	}
	if state != hud.shownState {
		hud.statusText.Drawable = common.Text{Font: hud.font, Text: state}
		hud.shownState = state
	}

	if hud.panel == nil {
		hud.panel = newSprite(hud.sink, common.Rectangle{}, color.RGBA{A: 160}, zHUD)
		hud.infoText = newSprite(hud.sink, common.Text{Font: hud.font}, color.White, zHUD+1)
	}
	if info != hud.shownInfo {
		lines := float32(strings.Count(info, "\n") + 1)
		top := hudMargin*2 + hudLineHeight
		hud.panel.Position = engo.Point{X: hudMargin, Y: top}
		hud.panel.Width, hud.panel.Height = hudPanelWidth, lines*hudLineHeight+hudMargin
		hud.infoText.Drawable = common.Text{Font: hud.font, Text: info, LineSpacing: 0.2}
		hud.infoText.Position = engo.Point{X: hudMargin * 1.5, Y: top + hudMargin/2}
		hud.infoText.Width, hud.infoText.Height = hudPanelWidth, lines*hudLineHeight
		hud.shownInfo = info
	}
	hud.panel.Hidden = info == ""
	hud.infoText.Hidden = info == ""
}

// Close stops following selection events
func (hud *HUDSystem) Close() {
	for _, s := range hud.subs {
		s.Cancel()
	}
	hud.subs = nil
}

// InfoLines formats the info panel for a body
func InfoLines(bl engine.BodyLayout) []string {
	lines := []string{bl.Name}
	if bl.Info != "" {
		lines = append(lines, bl.Info)
	}
	if bl.Kind == entity.Planet {
		el := bl.Elements
		lines = append(lines, fmt.Sprintf("a %.0f  e %.4f  i %.2f°", el.SemiMajorAxis, el.Eccentricity, el.InclinationDeg))
		lines = append(lines, fmt.Sprintf("period %.1f days", el.Period/secondsPerDay))
	}
	if bl.Link != "" {
		lines = append(lines, bl.Link)
	}
	return lines
}

// StatusLine formats the frame counter, scene day and light level, followed
// by source when it is not empty.
func StatusLine(frame engine.FrameState, source string) string {
	s := fmt.Sprintf("frame %d  day %.1f  light %.2f", frame.Frame, frame.SceneTime/secondsPerDay, frame.LightIntensity)
	if source != "" {
		s += "  " + source
	}
	return s
}
