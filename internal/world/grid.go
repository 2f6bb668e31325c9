package world

import (
	"math"

	"github.com/kingdomsgo/server/internal/core/ecs"
)

// DefaultCellSize is the spatial grid cell edge in world units. A 3x3 cell
// neighbourhood fully covers the area-of-interest radius.
const DefaultCellSize = 100.0

// SpatialGrid is a uniform-cell 2D index of entities by float position.
// Accessed only from the game loop goroutine — no locks.
type SpatialGrid struct {
	cellSize    float32
	invCellSize float32
	cells       map[uint64]map[ecs.EntityID]struct{}
	entityCell  map[ecs.EntityID]uint64
}

func NewSpatialGrid(cellSize float32) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[uint64]map[ecs.EntityID]struct{}),
		entityCell:  make(map[ecs.EntityID]uint64),
	}
}

func (g *SpatialGrid) toCell(v float32) int32 {
	return int32(math.Floor(float64(v * g.invCellSize)))
}

// cellKey packs two signed 32-bit cell coordinates into one 64-bit key.
// The low half is reinterpreted as unsigned before the OR; without that,
// sign extension of a negative y would smear over the x half and collide.
func cellKey(cx, cy int32) uint64 {
	return uint64(uint32(cx))<<32 | uint64(uint32(cy))
}

// Insert places an entity at (x, y). An entity lives in exactly one cell.
func (g *SpatialGrid) Insert(entity ecs.EntityID, x, y float32) {
	key := cellKey(g.toCell(x), g.toCell(y))
	cell := g.cells[key]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[key] = cell
	}
	cell[entity] = struct{}{}
	g.entityCell[entity] = key
}

// Remove takes an entity out of the grid. Empty cells are erased to bound
// memory. No-op for unknown entities.
func (g *SpatialGrid) Remove(entity ecs.EntityID) {
	key, ok := g.entityCell[entity]
	if !ok {
		return
	}
	if cell, ok := g.cells[key]; ok {
		delete(cell, entity)
		if len(cell) == 0 {
			delete(g.cells, key)
		}
	}
	delete(g.entityCell, entity)
}

// Move re-hashes the entity only when its cell actually changes. Moving an
// unknown entity inserts it.
func (g *SpatialGrid) Move(entity ecs.EntityID, x, y float32) {
	newKey := cellKey(g.toCell(x), g.toCell(y))

	oldKey, ok := g.entityCell[entity]
	if !ok {
		g.Insert(entity, x, y)
		return
	}
	if oldKey == newKey {
		return
	}

	if cell, ok := g.cells[oldKey]; ok {
		delete(cell, entity)
		if len(cell) == 0 {
			delete(g.cells, oldKey)
		}
	}
	cell := g.cells[newKey]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[newKey] = cell
	}
	cell[entity] = struct{}{}
	g.entityCell[entity] = newKey
}

// QueryNeighbors returns the entities in the 3x3 block of cells centred on
// (x, y). No dedupe is needed: an entity resides in exactly one cell.
func (g *SpatialGrid) QueryNeighbors(x, y float32) []ecs.EntityID {
	cx := g.toCell(x)
	cy := g.toCell(y)
	var out []ecs.EntityID
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for e := range g.cells[cellKey(cx+dx, cy+dy)] {
				out = append(out, e)
			}
		}
	}
	return out
}

// Contains reports whether the entity is currently indexed.
func (g *SpatialGrid) Contains(entity ecs.EntityID) bool {
	_, ok := g.entityCell[entity]
	return ok
}

// Len returns the number of indexed entities.
func (g *SpatialGrid) Len() int {
	return len(g.entityCell)
}

// Clear drops every entity and cell.
func (g *SpatialGrid) Clear() {
	g.cells = make(map[uint64]map[ecs.EntityID]struct{})
	g.entityCell = make(map[ecs.EntityID]uint64)
}
