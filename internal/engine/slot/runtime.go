package slot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/engine/sched"
	"go.uber.org/zap"
)

// AbilityID names an ability inside an owner's slot table.
type AbilityID string

// Policy decides what a re-trigger does while an instance is still running.
type Policy uint8

const (
	// Supersede cancels the running instance and starts fresh.
	Supersede Policy = iota
	// Deny refuses the activation until the running instance ends.
	Deny
)

func (p Policy) String() string {
	if p == Deny {
		return "deny"
	}
	return "supersede"
}

// DenyReason classifies a refused activation.
type DenyReason uint8

const (
	OnCooldown DenyReason = iota + 1
	AlreadyActive
)

func (r DenyReason) String() string {
	switch r {
	case OnCooldown:
		return "on_cooldown"
	case AlreadyActive:
		return "already_active"
	}
	return "unknown"
}

var (
	ErrOnCooldown    = errors.New("ability on cooldown")
	ErrAlreadyActive = errors.New("ability already active")
	ErrStaleToken    = errors.New("activation token superseded")
)

// Denied is returned by TryActivate when the slot refuses to start. It is an
// expected outcome for feedback, not a fault.
type Denied struct {
	Reason    DenyReason
	Remaining int64 // cooldown ticks left, for OnCooldown
}

func (d *Denied) Error() string {
	if d.Reason == OnCooldown {
		return fmt.Sprintf("%s (%d ticks remaining)", ErrOnCooldown, d.Remaining)
	}
	return ErrAlreadyActive.Error()
}

func (d *Denied) Is(target error) bool {
	switch d.Reason {
	case OnCooldown:
		return target == ErrOnCooldown
	case AlreadyActive:
		return target == ErrAlreadyActive
	}
	return false
}

// Token proves a successful activation and lets the ability bind its task.
type Token struct {
	Owner      ecs.EntityID
	Ability    AbilityID
	Superseded bool
	gen        uint64
}

// State is a read-only view of one slot.
type State struct {
	Ability       AbilityID
	CooldownUntil clock.Tick
	Channeling    bool
	Activations   int
}

type abilitySlot struct {
	cooldownUntil clock.Tick
	active        *sched.Task
	gen           uint64
	activations   int
}

type ownerSlots map[AbilityID]*abilitySlot

// Runtime keeps per (owner, ability) cooldowns and the single active task
// handle. Slots are created lazily on first activation attempt.
type Runtime struct {
	clk   clock.Source
	slots *ecs.PtrComponentStore[ownerSlots]
	log   *zap.Logger
}

func New(clk clock.Source, log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{
		clk:   clk,
		slots: ecs.NewPtrComponentStore[ownerSlots](),
		log:   log,
	}
}

func (r *Runtime) slot(owner ecs.EntityID, ability AbilityID) *abilitySlot {
	m := r.slots.GetOrCreate(owner, func() *ownerSlots {
		m := make(ownerSlots, 2)
		return &m
	})
	s, ok := (*m)[ability]
	if !ok {
		s = &abilitySlot{}
		(*m)[ability] = s
	}
	return s
}

func (r *Runtime) peek(owner ecs.EntityID, ability AbilityID) *abilitySlot {
	m, ok := r.slots.Get(owner)
	if !ok {
		return nil
	}
	return (*m)[ability]
}

// TryActivate claims the slot with the default Supersede policy.
func (r *Runtime) TryActivate(owner ecs.EntityID, ability AbilityID, cooldown int64) (Token, error) {
	return r.TryActivateWith(owner, ability, cooldown, Supersede)
}

// TryActivateWith checks the cooldown and the running instance, then starts
// the cooldown (now+cooldown) and returns a fresh token. Under Supersede any
// running instance is cancelled first.
func (r *Runtime) TryActivateWith(owner ecs.EntityID, ability AbilityID, cooldown int64, policy Policy) (Token, error) {
	now := r.clk.Now()
	s := r.slot(owner, ability)

	if now < s.cooldownUntil {
		return Token{}, &Denied{Reason: OnCooldown, Remaining: int64(s.cooldownUntil - now)}
	}
	superseded := false
	if s.active != nil && !s.active.Done() {
		if policy == Deny {
			return Token{}, &Denied{Reason: AlreadyActive}
		}
		superseded = true
		r.log.Debug("superseding active instance",
			zap.Stringer("owner", owner),
			zap.String("ability", string(ability)),
			zap.Uint64("task", s.active.ID()),
		)
	}
	s.gen++
	r.release(s)

	s.cooldownUntil = clock.Add(now, max(cooldown, 0))
	s.activations++
	return Token{Owner: owner, Ability: ability, Superseded: superseded, gen: s.gen}, nil
}

// release cancels and forgets the slot's active task.
func (r *Runtime) release(s *abilitySlot) {
	t := s.active
	s.active = nil
	if t != nil {
		t.Cancel()
	}
}

// Bind attaches the activation's task to the slot. If the token has been
// superseded or the slot reset in the meantime, the task is cancelled and
// ErrStaleToken returned.
func (r *Runtime) Bind(tok Token, t *sched.Task) error {
	s := r.peek(tok.Owner, tok.Ability)
	if s == nil || s.gen != tok.gen {
		t.Cancel()
		return ErrStaleToken
	}
	if s.active != nil && s.active != t {
		r.release(s)
	}
	if t.Done() {
		return nil
	}
	s.active = t
	gen := s.gen
	t.OnFinish(func(done *sched.Task) {
		if cur := r.peek(tok.Owner, tok.Ability); cur != nil && cur.gen == gen && cur.active == done {
			cur.active = nil
		}
	})
	return nil
}

// Live reports whether tok is still the slot's current activation.
func (r *Runtime) Live(tok Token) bool {
	s := r.peek(tok.Owner, tok.Ability)
	return s != nil && s.gen == tok.gen
}

func (r *Runtime) IsOnCooldown(owner ecs.EntityID, ability AbilityID) bool {
	return r.CooldownRemaining(owner, ability) > 0
}

// CooldownRemaining returns the ticks until the slot may activate again.
func (r *Runtime) CooldownRemaining(owner ecs.EntityID, ability AbilityID) int64 {
	s := r.peek(owner, ability)
	if s == nil {
		return 0
	}
	now := r.clk.Now()
	if now >= s.cooldownUntil {
		return 0
	}
	return int64(s.cooldownUntil - now)
}

// IsChanneling reports whether a bound task is still running.
func (r *Runtime) IsChanneling(owner ecs.EntityID, ability AbilityID) bool {
	s := r.peek(owner, ability)
	return s != nil && s.active != nil && !s.active.Done()
}

// ActiveTask returns the bound task, or nil.
func (r *Runtime) ActiveTask(owner ecs.EntityID, ability AbilityID) *sched.Task {
	s := r.peek(owner, ability)
	if s == nil || s.active == nil || s.active.Done() {
		return nil
	}
	return s.active
}

// Cancel stops the running instance without touching the cooldown.
func (r *Runtime) Cancel(owner ecs.EntityID, ability AbilityID) bool {
	s := r.peek(owner, ability)
	if s == nil || s.active == nil {
		return false
	}
	s.gen++
	r.release(s)
	return true
}

// SetCooldown forces the slot's cooldown to end ticks from now.
func (r *Runtime) SetCooldown(owner ecs.EntityID, ability AbilityID, ticks int64) {
	s := r.slot(owner, ability)
	s.cooldownUntil = clock.Add(r.clk.Now(), max(ticks, 0))
}

// ResetOwner cancels every running instance of owner. Cooldowns are kept
// when keepCooldowns is set, otherwise cleared. Returns the number of tasks
// cancelled.
func (r *Runtime) ResetOwner(owner ecs.EntityID, keepCooldowns bool) int {
	m, ok := r.slots.Get(owner)
	if !ok {
		return 0
	}
	n := 0
	for _, id := range sortedIDs(*m) {
		s := (*m)[id]
		s.gen++
		if s.active != nil && !s.active.Done() {
			n++
		}
		r.release(s)
		if !keepCooldowns {
			s.cooldownUntil = 0
		}
	}
	return n
}

// RemoveOwner cancels everything and destroys all of owner's slots.
func (r *Runtime) RemoveOwner(owner ecs.EntityID) int {
	n := r.ResetOwner(owner, false)
	r.slots.Remove(owner)
	return n
}

// Remove implements ecs.Removable.
func (r *Runtime) Remove(owner ecs.EntityID) { r.RemoveOwner(owner) }

// Slots returns a snapshot of owner's slots sorted by ability id.
func (r *Runtime) Slots(owner ecs.EntityID) []State {
	m, ok := r.slots.Get(owner)
	if !ok {
		return nil
	}
	out := make([]State, 0, len(*m))
	for _, id := range sortedIDs(*m) {
		s := (*m)[id]
		out = append(out, State{
			Ability:       id,
			CooldownUntil: s.cooldownUntil,
			Channeling:    s.active != nil && !s.active.Done(),
			Activations:   s.activations,
		})
	}
	return out
}

// Owners returns how many owners currently have slot state.
func (r *Runtime) Owners() int { return r.slots.Len() }

func sortedIDs(m ownerSlots) []AbilityID {
	ids := make([]AbilityID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
