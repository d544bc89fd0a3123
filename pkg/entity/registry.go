package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateBody is returned when a body name is registered twice
	ErrDuplicateBody = errors.New("duplicate body name")
	// ErrUnknownBody is returned when a name or ID does not resolve
	ErrUnknownBody = errors.New("unknown body")
)

// Registry owns every body of a scene. Bodies live in one slice and are
// addressed by their index, so callers hold IDs rather than pointers into
// rendering objects.
type Registry struct {
	bodies []Body
	byName map[string]ID
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]ID),
	}
}

// Add stores b and assigns its ID. Names are matched case-insensitively.
func (r *Registry) Add(b Body) (ID, error) {
	key := strings.ToLower(b.Name)
	if _, exists := r.byName[key]; exists {
		return NoBody, fmt.Errorf("%w: %s", ErrDuplicateBody, b.Name)
	}
	b.ID = ID(len(r.bodies))
	r.bodies = append(r.bodies, b)
	r.byName[key] = b.ID
	return b.ID, nil
}

// Get returns the body with the given ID
func (r *Registry) Get(id ID) (*Body, bool) {
	if id < 0 || int(id) >= len(r.bodies) {
		return nil, false
	}
	return &r.bodies[id], true
}

// Lookup resolves a body name to its ID
func (r *Registry) Lookup(name string) (ID, bool) {
	id, ok := r.byName[strings.ToLower(name)]
	return id, ok
}

// MustGet is Get for IDs known to be valid; it panics otherwise.
func (r *Registry) MustGet(id ID) *Body {
	b, ok := r.Get(id)
	if !ok {
		panic(fmt.Sprintf("entity: %v: %d", ErrUnknownBody, id))
	}
	return b
}

// Len returns the number of registered bodies
func (r *Registry) Len() int {
	return len(r.bodies)
}

// Each calls fn for every body in ID order
func (r *Registry) Each(fn func(*Body)) {
	for i := range r.bodies {
		fn(&r.bodies[i])
	}
}

// OfKind returns the IDs of all bodies of kind k in ID order
func (r *Registry) OfKind(k Kind) []ID {
	var ids []ID
	for i := range r.bodies {
		if r.bodies[i].Kind == k {
			ids = append(ids, ID(i))
		}
	}
	return ids
}
