package ecs

// Removable is implemented by every per-entity store so the Registry can
// drop an entity's data everywhere at once when it is destroyed.
type Removable interface {
	Remove(id EntityID)
}

// RemoveFunc adapts a plain function to Removable.
type RemoveFunc func(id EntityID)

func (f RemoveFunc) Remove(id EntityID) { f(id) }

// Registry tracks all stores and supports bulk cleanup on entity destroy.
// Stores are visited in registration order.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 8),
	}
}

// Register adds a store to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}

func (r *Registry) Len() int { return len(r.stores) }
