package timed

import "fmt"

type mergeOp uint8

const (
	opReplace mergeOp = iota
	opMax
	opSumCapped
	opIncrementCapped
)

// Merge decides how a repeated Put combines with a live entry.
type Merge struct {
	op  mergeOp
	cap float64
}

// Replace overwrites the payload. Used for single-flag marks.
func Replace() Merge { return Merge{op: opReplace} }

// Max keeps the larger payload.
func Max() Merge { return Merge{op: opMax} }

// SumCapped adds the payload, never exceeding max. Used for elemental stacks.
func SumCapped(max float64) Merge { return Merge{op: opSumCapped, cap: max} }

// IncrementCapped counts applications: every Put adds exactly one step,
// whatever the payload, never exceeding max. Used for combo counters.
func IncrementCapped(max float64) Merge { return Merge{op: opIncrementCapped, cap: max} }

// Cap returns the policy's upper bound, or 0 for uncapped policies.
func (m Merge) Cap() float64 { return m.cap }

// apply merges payload into old. When the entry is absent or expired,
// fresh is true and old is ignored.
func (m Merge) apply(old float64, fresh bool, payload float64) float64 {
	switch m.op {
	case opMax:
		if fresh || payload > old {
			return payload
		}
		return old
	case opSumCapped:
		if fresh {
			return min(payload, m.cap)
		}
		return min(old+payload, m.cap)
	case opIncrementCapped:
		if fresh {
			return min(1, m.cap)
		}
		return min(old+1, m.cap)
	default:
		return payload
	}
}

func (m Merge) String() string {
	switch m.op {
	case opMax:
		return "max"
	case opSumCapped:
		return fmt.Sprintf("sum-capped(%g)", m.cap)
	case opIncrementCapped:
		return fmt.Sprintf("increment-capped(%g)", m.cap)
	default:
		return "replace"
	}
}
