package pet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine/modifier"
	"go.uber.org/zap"
)

// producerName is the pipeline registration of the pet layer.
const producerName = "pets"

// Manager owns the equipped pets and routes host events to their
// abilities. All methods belong to the tick thread.
type Manager struct {
	d         *Deps
	pets      *data.PetTable
	factories *Factories
	equipped  *ecs.PtrComponentStore[Pet]
	log       *zap.Logger
}

// NewManager wires d into a manager and registers the pet layer as a
// modifier producer on the engine pipeline. Formulas and Log default when
// nil.
func NewManager(d *Deps, pets *data.PetTable, f *Factories) *Manager {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Formulas == nil {
		d.Formulas = DefaultFormulas{}
	}
	if f == nil {
		f = NewFactories()
	}
	m := &Manager{
		d:         d,
		pets:      pets,
		factories: f,
		equipped:  ecs.NewPtrComponentStore[Pet](),
		log:       d.Log,
	}
	d.combat = &Combat{d: d, m: m}
	d.Engine.Pipeline.Register(producerName, 0, m)
	return m
}

func (m *Manager) Combat() *Combat { return m.d.combat }

// Equipped returns owner's pet.
func (m *Manager) Equipped(owner ecs.EntityID) (*Pet, bool) {
	return m.equipped.Get(owner)
}

func (m *Manager) Count() int { return m.equipped.Len() }

// Equip builds the pet template petID for owner at level. A pet already
// equipped is unequipped first. Engine state left by the previous pet is
// released before the new abilities are built.
func (m *Manager) Equip(owner ecs.EntityID, petID int32, level int) (*Pet, error) {
	info := m.pets.Get(petID)
	if info == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPet, petID)
	}
	level = max(level, 1)

	if old, ok := m.equipped.Get(owner); ok {
		m.fireUnequip(old)
		m.equipped.Remove(owner)
	}
	m.d.Engine.Lifecycle.OnEquip(owner)

	p := &Pet{
		Owner:      owner,
		Info:       info,
		Level:      level,
		StarPower:  m.d.Stats.StarPowerTier(owner),
		Multiplier: m.d.Formulas.StatMultiplier(level),
	}
	var err error
	if p.Passive, err = m.factories.Build(m.d, info.Passive); err != nil {
		return nil, err
	}
	if info.Ultimate != nil {
		if p.Ultimate, err = m.factories.Build(m.d, info.Ultimate); err != nil {
			return nil, err
		}
	}
	m.equipped.Set(owner, p)

	for _, a := range p.abilities() {
		if l, ok := a.(EquipListener); ok {
			m.safely(p, a, "equip", func() { l.OnEquip(p) })
		}
	}
	m.d.feedback(event.FeedbackEquipped, owner, owner, "", float64(petID))
	m.log.Info("pet equipped",
		zap.Stringer("owner", owner),
		zap.String("pet", info.Name),
		zap.Int("level", level),
		zap.Int("star_power", p.StarPower),
	)
	return p, nil
}

// Unequip removes owner's pet and releases its engine state.
func (m *Manager) Unequip(owner ecs.EntityID) error {
	p, ok := m.equipped.Get(owner)
	if !ok {
		return ErrNotEquipped
	}
	m.fireUnequip(p)
	m.equipped.Remove(owner)
	m.d.Engine.Lifecycle.OnUnequip(owner)
	m.d.feedback(event.FeedbackUnequipped, owner, owner, "", float64(p.Info.ID))
	return nil
}

// Disconnect tears down everything the owner holds, slots and cooldowns
// included, and everything other owners hold about it.
func (m *Manager) Disconnect(owner ecs.EntityID) {
	if p, ok := m.equipped.Get(owner); ok {
		m.fireUnequip(p)
		m.equipped.Remove(owner)
	}
	m.d.Engine.Lifecycle.OnOwnerRemoved(owner)
}

// EntityRemoved is called when any entity leaves the world: a pet owner
// is disconnected, anything else is released as a subject.
func (m *Manager) EntityRemoved(id ecs.EntityID) {
	if m.equipped.Has(id) {
		m.Disconnect(id)
		return
	}
	m.d.Engine.Lifecycle.Remove(id)
}

// Remove implements ecs.Removable.
func (m *Manager) Remove(id ecs.EntityID) { m.EntityRemoved(id) }

// Activate triggers owner's ultimate.
func (m *Manager) Activate(owner ecs.EntityID) error {
	p, ok := m.equipped.Get(owner)
	if !ok {
		return ErrNotEquipped
	}
	act, ok := p.Ultimate.(Activator)
	if !ok {
		return ErrNoUltimate
	}
	var err error
	m.safely(p, p.Ultimate, "activate", func() { err = act.Activate(p) })
	return err
}

// TickPassives runs every passive hook once, owners in id order.
func (m *Manager) TickPassives() int {
	n := 0
	for _, p := range m.sorted() {
		for _, a := range p.abilities() {
			if t, ok := a.(PassiveTicker); ok {
				m.safely(p, a, "passive", func() { t.TickPassive(p) })
				n++
			}
		}
	}
	return n
}

// TickUltimates auto-activates every ultimate marked auto that is off
// cooldown and whose ability agrees. Returns the number activated.
func (m *Manager) TickUltimates() int {
	n := 0
	for _, p := range m.sorted() {
		u := p.Ultimate
		if u == nil || !u.Def().Auto {
			continue
		}
		act, ok := u.(Activator)
		if !ok || m.d.Slots().IsOnCooldown(p.Owner, slotOf(u)) {
			continue
		}
		if g, ok := u.(AutoActivator); ok && !g.CanAutoActivate(p) {
			continue
		}
		var err error
		m.safely(p, u, "auto_activate", func() { err = act.Activate(p) })
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrNoTarget), errors.Is(err, ErrNoStacks):
		default:
			m.log.Debug("auto activation refused",
				zap.Stringer("owner", p.Owner),
				zap.String("ability", u.Def().ID),
				zap.Error(err),
			)
		}
	}
	return n
}

// Contribute implements modifier.Producer: outgoing contributions from the
// attacker's pet, then incoming ones from the target's pet.
func (m *Manager) Contribute(h modifier.Hit, out []modifier.Contribution) []modifier.Contribution {
	if p, ok := m.equipped.Get(h.Attacker); ok {
		for _, a := range p.abilities() {
			if c, ok := a.(DamageContributor); ok {
				out = c.Outgoing(p, h, out)
			}
		}
	}
	if h.Target == h.Attacker {
		return out
	}
	if p, ok := m.equipped.Get(h.Target); ok {
		for _, a := range p.abilities() {
			if c, ok := a.(DefenseContributor); ok {
				out = c.Incoming(p, h, out)
			}
		}
	}
	return out
}

func (m *Manager) fireUnequip(p *Pet) {
	for _, a := range p.abilities() {
		if l, ok := a.(EquipListener); ok {
			m.safely(p, a, "unequip", func() { l.OnUnequip(p) })
		}
	}
}

func (m *Manager) sorted() []*Pet {
	out := make([]*Pet, 0, m.equipped.Len())
	m.equipped.Each(func(_ ecs.EntityID, p *Pet) {
		out = append(out, p)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// safely runs one ability hook. A panicking hook is logged and skipped so
// one broken ability cannot stall the others.
func (m *Manager) safely(p *Pet, a Ability, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("pet hook panic",
				zap.Stringer("owner", p.Owner),
				zap.String("ability", a.Def().ID),
				zap.String("hook", hook),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
