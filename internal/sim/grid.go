package sim

import "github.com/petfx/server/internal/core/ecs"

// cellSize is chosen so the largest ability radius in the shipped tables
// spans at most one neighbouring cell.
const cellSize = 8

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v int32) int32 {
	if v < 0 {
		return (v - cellSize + 1) / cellSize
	}
	return v / cellSize
}

// Grid is a cell-based spatial index over entity positions. Accessed only
// from the tick thread.
type Grid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewGrid() *Grid {
	return &Grid{
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *Grid) key(x, y int32) cellKey {
	return cellKey{cx: toCellCoord(x), cy: toCellCoord(y)}
}

func (g *Grid) Add(id ecs.EntityID, x, y int32) {
	k := g.key(x, y)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *Grid) Remove(id ecs.EntityID, x, y int32) {
	k := g.key(x, y)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *Grid) Move(id ecs.EntityID, oldX, oldY, newX, newY int32) {
	if g.key(oldX, oldY) == g.key(newX, newY) {
		return
	}
	g.Remove(id, oldX, oldY)
	g.Add(id, newX, newY)
}

// Nearby returns every id in the cells covering radius tiles around
// (x, y). Callers filter by exact distance.
func (g *Grid) Nearby(x, y int32, radius float64) []ecs.EntityID {
	span := int32(radius)/cellSize + 1
	cx, cy := toCellCoord(x), toCellCoord(y)
	var out []ecs.EntityID
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for id := range g.cells[cellKey{cx: cx + dx, cy: cy + dy}] {
				out = append(out, id)
			}
		}
	}
	return out
}

func (g *Grid) Cells() int { return len(g.cells) }
