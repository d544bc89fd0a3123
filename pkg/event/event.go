// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Scene event types
const (
	SimulationStarted  Type = "simulation_started"
	SimulationStopped  Type = "simulation_stopped"
	FrameAdvanced      Type = "frame_advanced"
	BodySelected       Type = "body_selected"
	BodyDeselected     Type = "body_deselected"
	SolverNotConverged Type = "solver_not_converged"
	ClientConnected    Type = "client_connected"
	ClientDisconnected Type = "client_disconnected"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it from the
// bus and may be called more than once.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[eventType]) == 0 {
		delete(b.handlers, eventType)
	}
}

// Publish sends an event to all subscribed handlers. Handlers run
// synchronously on the caller's goroutine.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// BodyEvent is published when a body is selected or deselected
type BodyEvent struct {
	BaseEvent
	BodyID   int
	BodyName string
}

// NewBodyEvent creates a new body event
func NewBodyEvent(eventType Type, source interface{}, bodyID int, name string) *BodyEvent {
	return &BodyEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		BodyID:   bodyID,
		BodyName: name,
	}
}

// FrameEvent is published after every simulation step
type FrameEvent struct {
	BaseEvent
	Frame     uint64
	Elapsed   float64
	SceneTime float64
}

// NewFrameEvent creates a new frame event
func NewFrameEvent(source interface{}, frame uint64, elapsed, sceneTime float64) *FrameEvent {
	return &FrameEvent{
		BaseEvent: BaseEvent{
			EventType: FrameAdvanced,
			Source:    source,
		},
		Frame:     frame,
		Elapsed:   elapsed,
		SceneTime: sceneTime,
	}
}

// SolverEvent reports a Kepler solve that hit the iteration cap
type SolverEvent struct {
	BaseEvent
	BodyID     int
	BodyName   string
	SceneTime  float64
	Iterations int
}

// NewSolverEvent creates a new solver event
func NewSolverEvent(source interface{}, bodyID int, name string, sceneTime float64, iterations int) *SolverEvent {
	return &SolverEvent{
		BaseEvent: BaseEvent{
			EventType: SolverNotConverged,
			Source:    source,
		},
		BodyID:     bodyID,
		BodyName:   name,
		SceneTime:  sceneTime,
		Iterations: iterations,
	}
}

// ClientEvent reports telemetry client connections
type ClientEvent struct {
	BaseEvent
	ClientID   string
	RemoteAddr string
}

// NewClientEvent creates a new client event
func NewClientEvent(eventType Type, source interface{}, clientID, remoteAddr string) *ClientEvent {
	return &ClientEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		ClientID:   clientID,
		RemoteAddr: remoteAddr,
	}
}
