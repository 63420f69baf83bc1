// Package scene is the explicit solid registry the driver manages. It
// maps object IDs to named solids and groups objects into transient
// named collections while a decomposition runs.
package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/chopit/pkg/kernel"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown object IDs and collections.
	ErrNotFound = errors.New("scene: not found")
	// ErrExists is returned when creating a collection that already exists.
	ErrExists = errors.New("scene: already exists")
)

// ObjectID is the short unique identifier of a registered object.
type ObjectID string

// NewObjectID returns a fresh short ID.
func NewObjectID() ObjectID {
	return ObjectID(uuid.New().String()[:8])
}

// Object is a named solid in the scene.
type Object struct {
	ID    ObjectID     `json:"id"`
	Name  string       `json:"name"`
	Solid kernel.Solid `json:"-"`
	Color string       `json:"color,omitempty"` // hex color, set by the driver
}

// Scene is a registry of objects and collections. It is not safe for
// concurrent use.
type Scene struct {
	objects     map[ObjectID]*Object
	order       []ObjectID
	nameIndex   map[string]ObjectID
	collections map[string][]ObjectID
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		objects:     make(map[ObjectID]*Object),
		nameIndex:   make(map[string]ObjectID),
		collections: make(map[string][]ObjectID),
	}
}

// Add registers a solid under name. A later object with the same name
// shadows the earlier one for Lookup.
func (sc *Scene) Add(name string, s kernel.Solid) *Object {
	o := &Object{ID: NewObjectID(), Name: name, Solid: s}
	for sc.objects[o.ID] != nil {
		o.ID = NewObjectID()
	}
	sc.objects[o.ID] = o
	sc.order = append(sc.order, o.ID)
	if name != "" {
		sc.nameIndex[name] = o.ID
	}
	return o
}

// Get returns the object with the given ID, or nil.
func (sc *Scene) Get(id ObjectID) *Object {
	return sc.objects[id]
}

// Lookup returns the object most recently registered under name, or nil.
func (sc *Scene) Lookup(name string) *Object {
	id, ok := sc.nameIndex[name]
	if !ok {
		return nil
	}
	return sc.objects[id]
}

// Replace swaps the solid of an existing object.
func (sc *Scene) Replace(id ObjectID, s kernel.Solid) error {
	o := sc.objects[id]
	if o == nil {
		return fmt.Errorf("%w: object %s", ErrNotFound, id)
	}
	o.Solid = s
	return nil
}

// Remove deletes an object from the registry and from every collection.
func (sc *Scene) Remove(id ObjectID) error {
	o := sc.objects[id]
	if o == nil {
		return fmt.Errorf("%w: object %s", ErrNotFound, id)
	}
	delete(sc.objects, id)
	sc.order = slices.DeleteFunc(sc.order, func(x ObjectID) bool { return x == id })
	if sc.nameIndex[o.Name] == id {
		delete(sc.nameIndex, o.Name)
		// Fall back to the newest remaining object with the same name.
		for i := len(sc.order) - 1; i >= 0; i-- {
			if sc.objects[sc.order[i]].Name == o.Name {
				sc.nameIndex[o.Name] = sc.order[i]
				break
			}
		}
	}
	for name, ids := range sc.collections {
		sc.collections[name] = slices.DeleteFunc(ids, func(x ObjectID) bool { return x == id })
	}
	return nil
}

// Objects returns every object in registration order.
func (sc *Scene) Objects() []*Object {
	out := make([]*Object, 0, len(sc.order))
	for _, id := range sc.order {
		out = append(out, sc.objects[id])
	}
	return out
}

// Len returns the number of registered objects.
func (sc *Scene) Len() int {
	return len(sc.objects)
}

// CreateCollection creates an empty collection.
func (sc *Scene) CreateCollection(name string) error {
	if _, ok := sc.collections[name]; ok {
		return fmt.Errorf("%w: collection %q", ErrExists, name)
	}
	sc.collections[name] = []ObjectID{}
	return nil
}

// HasCollection reports whether a collection exists.
func (sc *Scene) HasCollection(name string) bool {
	_, ok := sc.collections[name]
	return ok
}

// Link adds an object to a collection.
func (sc *Scene) Link(collection string, id ObjectID) error {
	ids, ok := sc.collections[collection]
	if !ok {
		return fmt.Errorf("%w: collection %q", ErrNotFound, collection)
	}
	if sc.objects[id] == nil {
		return fmt.Errorf("%w: object %s", ErrNotFound, id)
	}
	if !slices.Contains(ids, id) {
		sc.collections[collection] = append(ids, id)
	}
	return nil
}

// Collection returns the objects of a collection in link order.
func (sc *Scene) Collection(name string) ([]*Object, error) {
	ids, ok := sc.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: collection %q", ErrNotFound, name)
	}
	out := make([]*Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, sc.objects[id])
	}
	return out, nil
}

// Consume returns the objects of a collection and unlinks them from it.
// The objects stay registered; the collection is left empty.
func (sc *Scene) Consume(name string) ([]*Object, error) {
	out, err := sc.Collection(name)
	if err != nil {
		return nil, err
	}
	sc.collections[name] = []ObjectID{}
	return out, nil
}

// DeleteCollection deletes a collection and removes the objects still
// linked to it from the registry.
func (sc *Scene) DeleteCollection(name string) error {
	ids, ok := sc.collections[name]
	if !ok {
		return fmt.Errorf("%w: collection %q", ErrNotFound, name)
	}
	delete(sc.collections, name)
	for _, id := range ids {
		if sc.objects[id] != nil {
			if err := sc.Remove(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Collections returns the names of the existing collections, sorted.
func (sc *Scene) Collections() []string {
	names := make([]string, 0, len(sc.collections))
	for name := range sc.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
