package timed

import (
	"sort"

	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
)

// Kind is an ability-defined tag such as "frost-stack" or "combo".
type Kind string

// Key identifies one timed entry: who produced it, who it is about, and what.
type Key struct {
	Owner   ecs.EntityID
	Subject ecs.EntityID
	Kind    Kind
}

// Entry is a snapshot of a live entry.
type Entry struct {
	Key
	Value  float64
	Expiry clock.Tick
}

type entry struct {
	value  float64
	expiry clock.Tick
}

// Registry stores expiring, stacking state keyed by (owner, subject, kind).
//
// An entry whose expiry is at or before the current tick is absent for every
// reader, whether or not SweepExpired has run yet. Every entry has a TTL, so
// growth is bounded by the rate of Put calls. Registry is a plain data
// structure; tying entries to entity lifetimes is the lifecycle manager's job.
type Registry struct {
	clk       clock.Source
	entries   map[Key]*entry
	byOwner   map[ecs.EntityID]map[Key]struct{}
	bySubject map[ecs.EntityID]map[Key]struct{}
}

func New(clk clock.Source) *Registry {
	return &Registry{
		clk:       clk,
		entries:   make(map[Key]*entry, 256),
		byOwner:   make(map[ecs.EntityID]map[Key]struct{}),
		bySubject: make(map[ecs.EntityID]map[Key]struct{}),
	}
}

func (r *Registry) live(e *entry) bool {
	return e != nil && e.expiry > r.clk.Now()
}

// Put inserts or refreshes an entry and returns the merged value. A refresh
// extends the expiry to now+ttl if that is later; it never shortens it. TTLs
// below one tick are raised to one.
func (r *Registry) Put(owner, subject ecs.EntityID, kind Kind, payload float64, ttl int64, merge Merge) float64 {
	k := Key{Owner: owner, Subject: subject, Kind: kind}
	expiry := clock.Add(r.clk.Now(), max(ttl, 1))

	e, ok := r.entries[k]
	if !ok {
		e = &entry{}
		r.entries[k] = e
		r.link(k)
	}
	fresh := !ok || !r.live(e)
	e.value = merge.apply(e.value, fresh, payload)
	if fresh || expiry > e.expiry {
		e.expiry = expiry
	}
	return e.value
}

// Get returns the payload of a live entry. It never mutates the registry.
func (r *Registry) Get(owner, subject ecs.EntityID, kind Kind) (float64, bool) {
	e := r.entries[Key{Owner: owner, Subject: subject, Kind: kind}]
	if !r.live(e) {
		return 0, false
	}
	return e.value, true
}

// Value is Get with a zero default.
func (r *Registry) Value(owner, subject ecs.EntityID, kind Kind) float64 {
	v, _ := r.Get(owner, subject, kind)
	return v
}

func (r *Registry) Has(owner, subject ecs.EntityID, kind Kind) bool {
	_, ok := r.Get(owner, subject, kind)
	return ok
}

// Remaining returns the ticks left before a live entry expires, or 0.
func (r *Registry) Remaining(owner, subject ecs.EntityID, kind Kind) int64 {
	e := r.entries[Key{Owner: owner, Subject: subject, Kind: kind}]
	if !r.live(e) {
		return 0
	}
	return int64(e.expiry - r.clk.Now())
}

// Consume reads and removes an entry in one step. Returns false if it was
// absent or expired.
func (r *Registry) Consume(owner, subject ecs.EntityID, kind Kind) (float64, bool) {
	k := Key{Owner: owner, Subject: subject, Kind: kind}
	e, ok := r.entries[k]
	if !ok {
		return 0, false
	}
	r.drop(k)
	if !r.live(e) {
		return 0, false
	}
	return e.value, true
}

// Remove deletes an entry. Returns whether anything was stored under the key.
func (r *Registry) Remove(owner, subject ecs.EntityID, kind Kind) bool {
	k := Key{Owner: owner, Subject: subject, Kind: kind}
	if _, ok := r.entries[k]; !ok {
		return false
	}
	r.drop(k)
	return true
}

// CountActive returns how many distinct subjects carry a live entry of kind
// produced by owner.
func (r *Registry) CountActive(owner ecs.EntityID, kind Kind) int {
	n := 0
	for k := range r.byOwner[owner] {
		if k.Kind == kind && r.live(r.entries[k]) {
			n++
		}
	}
	return n
}

// Subjects lists, in ascending id order, the subjects carrying a live entry
// of kind produced by owner.
func (r *Registry) Subjects(owner ecs.EntityID, kind Kind) []ecs.EntityID {
	var out []ecs.EntityID
	for k := range r.byOwner[owner] {
		if k.Kind == kind && r.live(r.entries[k]) {
			out = append(out, k.Subject)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// About lists live entries whose subject is id, sorted by owner then kind.
func (r *Registry) About(subject ecs.EntityID) []Entry {
	var out []Entry
	for k := range r.bySubject[subject] {
		if e := r.entries[k]; r.live(e) {
			out = append(out, Entry{Key: k, Value: e.value, Expiry: e.expiry})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// SweepExpired physically removes expired entries and returns how many.
// Readers are correct without it; it only bounds memory.
func (r *Registry) SweepExpired() int {
	now := r.clk.Now()
	var dead []Key
	for k, e := range r.entries {
		if e.expiry <= now {
			dead = append(dead, k)
		}
	}
	for _, k := range dead {
		r.drop(k)
	}
	return len(dead)
}

// RemoveAllFor drops every entry produced by owner.
func (r *Registry) RemoveAllFor(owner ecs.EntityID) int {
	return r.dropSet(r.byOwner[owner])
}

// RemoveAllAbout drops every entry whose subject is subject.
func (r *Registry) RemoveAllAbout(subject ecs.EntityID) int {
	return r.dropSet(r.bySubject[subject])
}

// Len returns the number of physically stored entries, live or not.
func (r *Registry) Len() int { return len(r.entries) }

func (r *Registry) dropSet(set map[Key]struct{}) int {
	if len(set) == 0 {
		return 0
	}
	keys := make([]Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	for _, k := range keys {
		r.drop(k)
	}
	return len(keys)
}

func (r *Registry) link(k Key) {
	o := r.byOwner[k.Owner]
	if o == nil {
		o = make(map[Key]struct{}, 4)
		r.byOwner[k.Owner] = o
	}
	o[k] = struct{}{}
	s := r.bySubject[k.Subject]
	if s == nil {
		s = make(map[Key]struct{}, 4)
		r.bySubject[k.Subject] = s
	}
	s[k] = struct{}{}
}

func (r *Registry) drop(k Key) {
	delete(r.entries, k)
	if o := r.byOwner[k.Owner]; o != nil {
		delete(o, k)
		if len(o) == 0 {
			delete(r.byOwner, k.Owner)
		}
	}
	if s := r.bySubject[k.Subject]; s != nil {
		delete(s, k)
		if len(s) == 0 {
			delete(r.bySubject, k.Subject)
		}
	}
}
