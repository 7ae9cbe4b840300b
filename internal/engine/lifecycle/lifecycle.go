package lifecycle

import (
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/slot"
	"github.com/petfx/server/internal/engine/timed"
	"go.uber.org/zap"
)

// Reason tells listeners which transition triggered a teardown.
type Reason uint8

const (
	Equip Reason = iota + 1
	Unequip
	OwnerRemoved
	SubjectRemoved
)

func (r Reason) String() string {
	switch r {
	case Equip:
		return "equip"
	case Unequip:
		return "unequip"
	case OwnerRemoved:
		return "owner_removed"
	case SubjectRemoved:
		return "subject_removed"
	}
	return "unknown"
}

// Report counts what a teardown released.
type Report struct {
	Tasks   int
	Entries int
	Slots   int
}

// Listener is notified after the engine state for id has been released.
type Listener func(id ecs.EntityID, reason Reason)

// Manager owns the teardown order for owners and subjects. Every call
// finishes its cleanup before returning: no scheduled callback referencing
// the id fires afterwards and no registry entry keyed by it survives.
type Manager struct {
	clk clock.Source
	s   *sched.Scheduler
	reg *timed.Registry
	rt  *slot.Runtime
	bus *event.Bus
	log *zap.Logger

	keepCooldowns bool
	listeners     []Listener
}

// Option configures a Manager.
type Option func(*Manager)

// KeepCooldowns controls whether unequip preserves ability cooldowns.
func KeepCooldowns(keep bool) Option {
	return func(m *Manager) { m.keepCooldowns = keep }
}

func WithBus(bus *event.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

func New(clk clock.Source, s *sched.Scheduler, reg *timed.Registry, rt *slot.Runtime, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{clk: clk, s: s, reg: reg, rt: rt, log: log, keepCooldowns: true}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Listen registers fn. Listeners run in registration order.
func (m *Manager) Listen(fn Listener) {
	m.listeners = append(m.listeners, fn)
}

// OnEquip starts owner from a clean slate: anything left from a previous
// pet is cancelled and evicted. Cooldowns follow the keep-cooldowns setting.
func (m *Manager) OnEquip(owner ecs.EntityID) Report {
	rep := m.releaseOwned(owner, m.keepCooldowns)
	m.notify(owner, Equip, rep)
	return rep
}

// OnUnequip releases everything owner's abilities hold.
func (m *Manager) OnUnequip(owner ecs.EntityID) Report {
	rep := m.releaseOwned(owner, m.keepCooldowns)
	m.notify(owner, Unequip, rep)
	return rep
}

// OnOwnerRemoved destroys all state owned by or about owner, slots included.
func (m *Manager) OnOwnerRemoved(owner ecs.EntityID) Report {
	rep := Report{Slots: m.rt.RemoveOwner(owner)}
	rep.Tasks = m.s.CancelAllFor(owner) + m.s.CancelAllAbout(owner)
	rep.Entries = m.reg.RemoveAllFor(owner) + m.reg.RemoveAllAbout(owner)
	event.Emit(m.bus, event.OwnerRemoved{Tick: m.clk.Now(), Owner: owner})
	m.notify(owner, OwnerRemoved, rep)
	return rep
}

// OnSubjectRemoved drops every task and entry targeting subject. Owners'
// slots and cooldowns are untouched.
func (m *Manager) OnSubjectRemoved(subject ecs.EntityID) Report {
	rep := Report{
		Tasks:   m.s.CancelAllAbout(subject),
		Entries: m.reg.RemoveAllAbout(subject),
	}
	event.Emit(m.bus, event.SubjectRemoved{Tick: m.clk.Now(), Subject: subject})
	m.notify(subject, SubjectRemoved, rep)
	return rep
}

// Remove implements ecs.Removable. A destroyed entity can be neither owner
// nor subject any more, so both sides are released.
func (m *Manager) Remove(id ecs.EntityID) {
	m.OnSubjectRemoved(id)
	if m.s.PendingFor(id) > 0 || m.rt.Slots(id) != nil {
		m.OnOwnerRemoved(id)
		return
	}
	m.reg.RemoveAllFor(id)
}

func (m *Manager) releaseOwned(owner ecs.EntityID, keepCooldowns bool) Report {
	rep := Report{}
	// slots first so channel hooks see their own cancellation
	rep.Slots = m.rt.ResetOwner(owner, keepCooldowns)
	rep.Tasks = m.s.CancelAllFor(owner)
	rep.Entries = m.reg.RemoveAllFor(owner)
	return rep
}

func (m *Manager) notify(id ecs.EntityID, reason Reason, rep Report) {
	m.log.Debug("lifecycle teardown",
		zap.Stringer("id", id),
		zap.Stringer("reason", reason),
		zap.Int("tasks", rep.Tasks),
		zap.Int("entries", rep.Entries),
		zap.Int("slots", rep.Slots),
	)
	for _, fn := range m.listeners {
		m.call(fn, id, reason)
	}
}

func (m *Manager) call(fn Listener, id ecs.EntityID, reason Reason) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("lifecycle listener panic",
				zap.Stringer("id", id),
				zap.Stringer("reason", reason),
				zap.Any("panic", r),
			)
		}
	}()
	fn(id, reason)
}
