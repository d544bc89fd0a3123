package engine

// LocalSource steps an in-process simulation each time a frame is requested
type LocalSource struct {
	sim    *Simulation
	layout SceneLayout
}

// NewLocalSource wraps sim. The layout is captured once.
func NewLocalSource(sim *Simulation) *LocalSource {
	return &LocalSource{sim: sim, layout: sim.Layout()}
}

// Layout implements FrameSource
func (l *LocalSource) Layout() SceneLayout {
	return l.layout
}

// Frame implements FrameSource by advancing the simulation one step
func (l *LocalSource) Frame() (FrameState, bool) {
	return l.sim.Step(), true
}

// Simulation returns the wrapped simulation
func (l *LocalSource) Simulation() *Simulation {
	return l.sim
}
