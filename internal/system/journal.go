package system

import (
	"context"
	"fmt"
	"time"

	"github.com/petfx/server/internal/config"
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/event"
	coresys "github.com/petfx/server/internal/core/system"
	"github.com/petfx/server/internal/persist"
	"go.uber.org/zap"
)

// JournalWriter is the part of persist.JournalRepo the journal needs.
type JournalWriter interface {
	Write(ctx context.Context, entries []persist.JournalEntry) error
}

// JournalSystem buffers ability events off the bus and writes them in
// batches. Phase 5 (Persist). A failed write keeps the batch for the next
// flush; the buffer is bounded and drops its oldest entries past the bound.
type JournalSystem struct {
	repo      JournalWriter
	log       *zap.Logger
	interval  int64 // flush every N ticks
	batchSize int
	tickCount int64

	buf     []persist.JournalEntry
	written uint64
	dropped uint64
}

func NewJournalSystem(bus *event.Bus, repo JournalWriter, cfg config.JournalConfig, log *zap.Logger) *JournalSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &JournalSystem{
		repo:      repo,
		log:       log,
		interval:  max(cfg.FlushInterval, 1),
		batchSize: max(cfg.BatchSize, 1),
	}
	s.subscribe(bus)
	return s
}

func (s *JournalSystem) subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e event.AbilityActivated) {
		detail := ""
		if e.Superseded {
			detail = "superseded"
		}
		s.record(persist.JournalEntry{
			Tick: int64(e.Tick), Kind: "activated", Owner: int64(e.Owner),
			Ability: e.Ability, Value: float64(e.Cooldown), Detail: detail,
		})
	})
	event.Subscribe(bus, func(e event.ActivationDenied) {
		s.record(persist.JournalEntry{
			Tick: int64(e.Tick), Kind: "denied", Owner: int64(e.Owner),
			Ability: e.Ability, Value: float64(e.Remaining), Detail: e.Reason,
		})
	})
	event.Subscribe(bus, func(e event.DamageDealt) {
		kind := "damage"
		if e.Killed {
			kind = "kill"
		}
		s.record(persist.JournalEntry{
			Tick: int64(e.Tick), Kind: kind, Owner: int64(e.Attacker), Subject: int64(e.Target),
			Value: e.Final, Detail: fmt.Sprintf("%s raw=%.2f", e.Kind, e.Raw),
		})
	})
	event.Subscribe(bus, func(e event.Feedback) {
		var kind string
		switch e.Kind {
		case event.FeedbackEquipped:
			kind = "equip"
		case event.FeedbackUnequipped:
			kind = "unequip"
		default:
			return
		}
		s.record(persist.JournalEntry{
			Tick: int64(e.Tick), Kind: kind, Owner: int64(e.Owner),
			Ability: e.Ability, Value: e.Value,
		})
	})
}

func (s *JournalSystem) record(e persist.JournalEntry) {
	e.Recorded = time.Now()
	s.buf = append(s.buf, e)
	if limit := s.batchSize * 4; len(s.buf) > limit {
		over := len(s.buf) - limit
		s.dropped += uint64(over)
		s.buf = append(s.buf[:0], s.buf[over:]...)
	}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ clock.Tick) {
	s.tickCount++
	if s.tickCount < s.interval && len(s.buf) < s.batchSize {
		return
	}
	s.tickCount = 0
	s.flush()
}

// Flush writes everything buffered. Called on shutdown.
func (s *JournalSystem) Flush() {
	for len(s.buf) > 0 {
		before := len(s.buf)
		s.flush()
		if len(s.buf) >= before {
			return
		}
	}
}

func (s *JournalSystem) flush() {
	if len(s.buf) == 0 {
		return
	}
	n := min(len(s.buf), s.batchSize)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Write(ctx, s.buf[:n]); err != nil {
		s.log.Error("journal write failed", zap.Int("entries", n), zap.Error(err))
		return
	}
	s.written += uint64(n)
	s.buf = append(s.buf[:0], s.buf[n:]...)
}

// Buffered returns how many entries await a write.
func (s *JournalSystem) Buffered() int { return len(s.buf) }

func (s *JournalSystem) Written() uint64 { return s.written }

// Dropped counts entries discarded because writes kept failing.
func (s *JournalSystem) Dropped() uint64 { return s.dropped }
