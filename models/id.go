package models

import "sync"

// A sequential id generator. Zero is never returned.
type SequentialIDGenerator struct {
	mutex       sync.Mutex
	currentID   uint32
	reusableIDs map[uint32]struct{}
}

// New returns a sequential id, or a previously released one when available.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for id := range g.reusableIDs {
		delete(g.reusableIDs, id)
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse releases an id so New can return it again. Spaces ids are released
// when a space is removed; entity ids are never released since entities
// cannot be deleted.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	if id == 0 {
		return
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.reusableIDs == nil {
		g.reusableIDs = make(map[uint32]struct{})
	}
	g.reusableIDs[id] = struct{}{}
}

// Count returns the number of ids in use.
func (g *SequentialIDGenerator) Count() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return int(g.currentID) - len(g.reusableIDs)
}
