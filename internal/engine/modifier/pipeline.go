package modifier

import (
	"fmt"
	"sort"

	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"go.uber.org/zap"
)

// Hit describes the (attacker, target, raw damage) triple being resolved.
type Hit struct {
	Tick     clock.Tick
	Attacker ecs.EntityID
	Target   ecs.EntityID
	Raw      float64
	Kind     string // damage kind, e.g. "melee", "pet", "frost"
}

// Producer appends the contributions it has for a hit. Producers read timed
// state and static configuration; they must not mutate either.
type Producer interface {
	Contribute(h Hit, out []Contribution) []Contribution
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(h Hit, out []Contribution) []Contribution

func (f ProducerFunc) Contribute(h Hit, out []Contribution) []Contribution { return f(h, out) }

// Result is the outcome of resolving one hit.
type Result struct {
	Final         float64
	Contributions []Contribution
	Breakdown     Breakdown
}

type registered struct {
	name     string
	priority int
	p        Producer
}

// Pipeline collects contributions from every registered producer in a fixed
// (priority, name) order and folds them with Compute. It carries no per-hit
// state.
type Pipeline struct {
	producers []registered
	sorted    bool
	log       *zap.Logger
}

func NewPipeline(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log}
}

// Register adds a producer. Lower priority runs first; ties break on name.
// Registering a name twice replaces the earlier producer.
func (p *Pipeline) Register(name string, priority int, prod Producer) {
	for i := range p.producers {
		if p.producers[i].name == name {
			p.producers[i] = registered{name: name, priority: priority, p: prod}
			p.sorted = false
			return
		}
	}
	p.producers = append(p.producers, registered{name: name, priority: priority, p: prod})
	p.sorted = false
}

func (p *Pipeline) Unregister(name string) bool {
	for i := range p.producers {
		if p.producers[i].name == name {
			p.producers = append(p.producers[:i], p.producers[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Pipeline) Len() int { return len(p.producers) }

// Collect gathers the contributions of every producer for h. A producer
// that panics contributes nothing for this hit.
func (p *Pipeline) Collect(h Hit, extra ...Producer) []Contribution {
	p.ensureSorted()
	out := make([]Contribution, 0, 8)
	for _, r := range p.producers {
		out = p.safeContribute(r.name, r.p, h, out)
	}
	for i, e := range extra {
		out = p.safeContribute(fmt.Sprintf("extra#%d", i), e, h, out)
	}
	return out
}

// Resolve collects and folds in one call.
func (p *Pipeline) Resolve(h Hit, extra ...Producer) Result {
	cs := p.Collect(h, extra...)
	b := Explain(h.Raw, cs)
	return Result{Final: b.Final, Contributions: cs, Breakdown: b}
}

func (p *Pipeline) safeContribute(name string, prod Producer, h Hit, out []Contribution) (res []Contribution) {
	n := len(out)
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("modifier producer panic",
				zap.String("producer", name),
				zap.Any("panic", r),
			)
			res = out[:n]
		}
	}()
	return prod.Contribute(h, out)
}

func (p *Pipeline) ensureSorted() {
	if p.sorted {
		return
	}
	sort.SliceStable(p.producers, func(i, j int) bool {
		a, b := p.producers[i], p.producers[j]
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.name < b.name
	})
	p.sorted = true
}
