package engine

import (
	"errors"
	"testing"

	"github.com/opd-ai/go-orrery/pkg/entity"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/physics"
)

func newTestView(t *testing.T) (*View, *Simulation) {
	t.Helper()
	sim, _ := newTestSimulation(t, nil)
	v := NewView(sim.Layout(), nil)
	v.Update(sim.StepAt(0), 0)
	return v, sim
}

func recordSelection(bus *event.Bus) *[]*event.BodyEvent {
	var got []*event.BodyEvent
	h := func(e event.Event) { got = append(got, e.(*event.BodyEvent)) }
	bus.Subscribe(event.BodySelected, h)
	bus.Subscribe(event.BodyDeselected, h)
	return &got
}

func TestView_SelectFocusesCamera(t *testing.T) {
	v, sim := newTestView(t)
	events := recordSelection(v.EventBus())

	earthID := mustLookup(t, sim, "Earth")
	if err := v.Select(earthID); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if v.Selected() != earthID || !v.Tweening() {
		t.Fatalf("Selected() = %d, Tweening() = %v", v.Selected(), v.Tweening())
	}

	v.Update(v.Frame(), 1.5)
	earth, _ := v.Frame().Body(earthID)
	pos, target := v.Camera()
	want := earth.Position.Add(physics.Vector3{Z: 5 * 8})
	if !pos.ApproxEqual(want, 1e-9) || !target.ApproxEqual(earth.Position, 1e-9) {
		t.Errorf("camera = %v -> %v, want %v -> %v", pos, target, want, earth.Position)
	}

	bl, ok := v.SelectedLayout()
	if !ok || bl.Name != "Earth" {
		t.Errorf("SelectedLayout() = %+v, %v", bl, ok)
	}
	if len(*events) != 1 || (*events)[0].GetType() != event.BodySelected || (*events)[0].BodyName != "Earth" {
		t.Errorf("events = %+v", *events)
	}
}

func TestView_SelectUnknown(t *testing.T) {
	v, _ := newTestView(t)
	if err := v.Select(entity.ID(99)); !errors.Is(err, entity.ErrUnknownBody) {
		t.Errorf("Select(99) error = %v, want ErrUnknownBody", err)
	}
	if err := v.SelectByName("Pluto"); !errors.Is(err, entity.ErrUnknownBody) {
		t.Errorf("SelectByName(Pluto) error = %v, want ErrUnknownBody", err)
	}
	if v.Selected() != entity.NoBody {
		t.Errorf("Selected() = %d after failed selects", v.Selected())
	}
}

func TestView_SelectByName(t *testing.T) {
	v, sim := newTestView(t)
	if err := v.SelectByName("saturn"); err != nil {
		t.Fatalf("SelectByName() error = %v", err)
	}
	if v.Selected() != mustLookup(t, sim, "Saturn") {
		t.Errorf("Selected() = %d", v.Selected())
	}
}

func TestView_Deselect(t *testing.T) {
	v, sim := newTestView(t)
	events := recordSelection(v.EventBus())

	v.Deselect()
	if len(*events) != 0 {
		t.Fatalf("Deselect with no selection published %d events", len(*events))
	}

	marsID := mustLookup(t, sim, "Mars")
	if err := v.Select(marsID); err != nil {
		t.Fatal(err)
	}
	v.Update(v.Frame(), 2)
	v.Deselect()
	v.Update(v.Frame(), 2)

	pos, target := v.Camera()
	if !pos.ApproxEqual(physics.Vector3{Z: 1000}, 1e-9) || !target.ApproxEqual(physics.Vector3{}, 1e-9) {
		t.Errorf("camera after Deselect = %v -> %v, want home", pos, target)
	}
	if len(*events) != 2 || (*events)[1].GetType() != event.BodyDeselected || (*events)[1].BodyID != int(marsID) {
		t.Errorf("events = %+v", *events)
	}
}

func TestView_Pick(t *testing.T) {
	v, sim := newTestView(t)
	earthID := mustLookup(t, sim, "Earth")
	earth, _ := v.Frame().Body(earthID)

	tests := []struct {
		name  string
		point physics.Vector2D
		want  entity.ID
	}{
		{"sun", physics.Vector2D{X: 10, Y: 10}, sim.Sun()},
		// Earth's radius is 8; the pick radius is raised to MinPickRadius.
		{"near earth", earth.Position.TopDown().Add(physics.Vector2D{X: 9.5}), earthID},
		{"empty space", physics.Vector2D{X: 0, Y: -700}, entity.NoBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Pick(tt.point); got != tt.want {
				t.Errorf("Pick(%v) = %d, want %d", tt.point, got, tt.want)
			}
		})
	}
}

func TestView_Click(t *testing.T) {
	v, sim := newTestView(t)
	events := recordSelection(v.EventBus())

	earthID := mustLookup(t, sim, "Earth")
	earth, _ := v.Frame().Body(earthID)
	if got := v.Click(earth.Position.TopDown()); got != earthID {
		t.Fatalf("Click on Earth = %d, want %d", got, earthID)
	}
	if got := v.Click(physics.Vector2D{X: 0, Y: -700}); got != entity.NoBody {
		t.Errorf("Click on empty space = %d", got)
	}
	if v.Selected() != entity.NoBody {
		t.Error("clicking empty space did not deselect")
	}

	want := []event.Type{event.BodySelected, event.BodyDeselected}
	if len(*events) != len(want) {
		t.Fatalf("events = %d, want %d", len(*events), len(want))
	}
	for i, e := range *events {
		if e.GetType() != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.GetType(), want[i])
		}
	}
}
