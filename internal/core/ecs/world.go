package ecs

// World owns the entity pool and the set of registered component stores.
// Not goroutine-safe; each kingdom's world is touched only from the game
// loop goroutine.
type World struct {
	pool   *entityPool
	stores []Removable
}

func NewWorld() *World {
	return &World{
		pool:   newEntityPool(),
		stores: make([]Removable, 0, 8),
	}
}

// RegisterStore adds a component store so Destroy can clear it.
func (w *World) RegisterStore(store Removable) {
	w.stores = append(w.stores, store)
}

func (w *World) Create() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Destroy removes the entity's components from every registered store and
// releases the entity. Safe to call with a stale handle.
func (w *World) Destroy(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	for _, s := range w.stores {
		s.Remove(id)
	}
	w.pool.Destroy(id)
}
