package modifier

import "fmt"

// Kind is the composition category of a contribution.
type Kind uint8

const (
	FlatBonus Kind = iota + 1
	AdditivePercent
	MultiplicativeFactor
	ConditionalOverride
)

func (k Kind) String() string {
	switch k {
	case FlatBonus:
		return "flat"
	case AdditivePercent:
		return "percent"
	case MultiplicativeFactor:
		return "factor"
	case ConditionalOverride:
		return "override"
	}
	return "unknown"
}

// OverrideOp is the clamp applied by a ConditionalOverride.
type OverrideOp uint8

const (
	// Floor raises the result to at least Value (execute floors, guaranteed minimums).
	Floor OverrideOp = iota
	// Ceil lowers the result to at most Value.
	Ceil
	// Set replaces the result with Value.
	Set
)

// Contribution is one passive's say in a single hit. Contributions are built
// fresh for every hit and never stored.
type Contribution struct {
	Source string
	Kind   Kind
	Value  float64
	Op     OverrideOp // ConditionalOverride only
}

func Flat(source string, v float64) Contribution {
	return Contribution{Source: source, Kind: FlatBonus, Value: v}
}

// Percent contributes a fraction: 0.25 means +25%.
func Percent(source string, v float64) Contribution {
	return Contribution{Source: source, Kind: AdditivePercent, Value: v}
}

func Factor(source string, v float64) Contribution {
	return Contribution{Source: source, Kind: MultiplicativeFactor, Value: v}
}

func AtLeast(source string, v float64) Contribution {
	return Contribution{Source: source, Kind: ConditionalOverride, Op: Floor, Value: v}
}

func AtMost(source string, v float64) Contribution {
	return Contribution{Source: source, Kind: ConditionalOverride, Op: Ceil, Value: v}
}

func Exactly(source string, v float64) Contribution {
	return Contribution{Source: source, Kind: ConditionalOverride, Op: Set, Value: v}
}

func (c Contribution) String() string {
	if c.Kind == ConditionalOverride {
		op := [...]string{"floor", "ceil", "set"}[c.Op%3]
		return fmt.Sprintf("%s:%s(%g)", c.Source, op, c.Value)
	}
	return fmt.Sprintf("%s:%s(%g)", c.Source, c.Kind, c.Value)
}

// Breakdown records each stage of a composition.
type Breakdown struct {
	Raw         float64
	FlatSum     float64
	AfterFlat   float64
	PercentSum  float64
	AfterPct    float64
	AfterFactor float64
	Final       float64
	Overridden  bool
}

// Compute folds contributions into a final damage value in a fixed order:
//
//  1. raw + Σflat
//  2. × (1 + Σpercent), the multiplier floored at 0
//  3. × each factor, in the order supplied
//  4. each override, in the order supplied
//
// Reordering contributions inside the flat or percent groups never changes
// the result. With no contributions the raw value is returned unchanged.
func Compute(raw float64, cs []Contribution) float64 {
	return Explain(raw, cs).Final
}

// Explain is Compute with every intermediate value exposed.
func Explain(raw float64, cs []Contribution) Breakdown {
	b := Breakdown{Raw: raw}
	if len(cs) == 0 {
		b.AfterFlat, b.AfterPct, b.AfterFactor, b.Final = raw, raw, raw, raw
		return b
	}

	for _, c := range cs {
		switch c.Kind {
		case FlatBonus:
			b.FlatSum += c.Value
		case AdditivePercent:
			b.PercentSum += c.Value
		}
	}
	v := raw + b.FlatSum
	b.AfterFlat = v

	if b.PercentSum != 0 {
		v *= max(1+b.PercentSum, 0)
	}
	b.AfterPct = v

	for _, c := range cs {
		if c.Kind == MultiplicativeFactor {
			v *= c.Value
		}
	}
	b.AfterFactor = v

	for _, c := range cs {
		if c.Kind != ConditionalOverride {
			continue
		}
		prev := v
		switch c.Op {
		case Floor:
			v = max(v, c.Value)
		case Ceil:
			v = min(v, c.Value)
		case Set:
			v = c.Value
		}
		if v != prev {
			b.Overridden = true
		}
	}
	b.Final = v
	return b
}
