package ecs

import "fmt"

// EntityID is the opaque identity of every owner (player) and subject
// (hostile or player) the engine tracks. It encodes a 32-bit index in the
// lower bits and a 32-bit generation in the upper bits; the generation
// increments on destroy so a recycled index never aliases a dead entity.
type EntityID uint64

// NoEntity is the zero id. Pool indices start at 1 so it is never issued.
const NoEntity EntityID = 0

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == NoEntity }

func (id EntityID) String() string {
	return fmt.Sprintf("%d/%d", id.Index(), id.Generation())
}

// EntityPool allocates ids with generational indices and a free list.
type EntityPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 1, 256), // slot 0 reserved for NoEntity
		freeList:    make([]uint32, 0, 64),
		nextIndex:   1,
	}
}

func (p *EntityPool) Create() EntityID {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 0)
	return NewEntityID(idx, 0)
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy invalidates id. Stale or unknown ids are ignored and false is returned.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	return true
}

// Live returns the number of currently allocated ids.
func (p *EntityPool) Live() int {
	return int(p.nextIndex) - 1 - len(p.freeList)
}
