package engo

import (
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
)

// fakeSink records sprites without a GL context
type fakeSink struct {
	sprites map[uint64]*common.RenderComponent
	removed int
}

func newFakeSink() *fakeSink {
	return &fakeSink{sprites: make(map[uint64]*common.RenderComponent)}
}

func (f *fakeSink) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
	f.sprites[basic.ID()] = render
}

func (f *fakeSink) Remove(basic ecs.BasicEntity) {
	if _, ok := f.sprites[basic.ID()]; ok {
		delete(f.sprites, basic.ID())
		f.removed++
	}
}

func (f *fakeSink) visible() int {
	n := 0
	for _, r := range f.sprites {
		if !r.Hidden {
			n++
		}
	}
	return n
}

func newTestSimulation(t *testing.T) *engine.Simulation {
	t.Helper()
	sim, err := engine.NewSimulation(config.DefaultConfig(), engine.NewManualClock(0), engine.WithSeed(7))
	if err != nil {
		t.Fatalf("NewSimulation() error = %v", err)
	}
	return sim
}

func newTestView(t *testing.T) *engine.View {
	t.Helper()
	sim := newTestSimulation(t)
	v := engine.NewView(sim.Layout(), nil)
	v.Update(sim.StepAt(0), 0)
	return v
}
