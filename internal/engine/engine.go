package engine

import (
	"github.com/petfx/server/internal/config"
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/event"
	"github.com/petfx/server/internal/engine/lifecycle"
	"github.com/petfx/server/internal/engine/modifier"
	"github.com/petfx/server/internal/engine/sched"
	"github.com/petfx/server/internal/engine/slot"
	"github.com/petfx/server/internal/engine/timed"
	"go.uber.org/zap"
)

// Engine bundles the effect engine parts around one clock. All methods,
// and all methods of the parts, belong to the tick thread; other goroutines
// go through Commands.
type Engine struct {
	Clock     *clock.Clock
	Scheduler *sched.Scheduler
	Registry  *timed.Registry
	Runtime   *slot.Runtime
	Pipeline  *modifier.Pipeline
	Lifecycle *lifecycle.Manager
	Bus       *event.Bus
	Commands  *CommandQueue

	log *zap.Logger
}

func New(cfg config.EngineConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	clk := clock.New(cfg.TickRate)
	e := &Engine{
		Clock:     clk,
		Scheduler: sched.New(clk, log.Named("sched")),
		Registry:  timed.New(clk),
		Runtime:   slot.New(clk, log.Named("slot")),
		Pipeline:  modifier.NewPipeline(log.Named("modifier")),
		Bus:       event.NewBus(log.Named("event")),
		Commands:  NewCommandQueue(cfg.CommandQueueSize, log),
		log:       log,
	}
	e.Lifecycle = lifecycle.New(clk, e.Scheduler, e.Registry, e.Runtime, log.Named("lifecycle"),
		lifecycle.WithBus(e.Bus),
		lifecycle.KeepCooldowns(cfg.KeepCooldownsOnUnequip),
	)
	return e
}

func (e *Engine) Now() clock.Tick { return e.Clock.Now() }

// Step advances the clock one tick and fires every task due at the new
// tick. It returns the new tick. Hosts that drive the phases themselves
// (see internal/system) call Clock.Advance and Scheduler.Tick separately.
func (e *Engine) Step() clock.Tick {
	now := e.Clock.Advance()
	e.Scheduler.Tick(now)
	return now
}

// Stats is a point-in-time summary for logs.
type Stats struct {
	Tick      clock.Tick
	Tasks     int
	Entries   int
	Owners    int
	Failures  uint64
	Commands  int
	Producers int
}

func (e *Engine) Stats() Stats {
	return Stats{
		Tick:      e.Clock.Now(),
		Tasks:     e.Scheduler.Pending(),
		Entries:   e.Registry.Len(),
		Owners:    e.Runtime.Owners(),
		Failures:  e.Scheduler.Failures(),
		Commands:  e.Commands.Len(),
		Producers: e.Pipeline.Len(),
	}
}

func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("tick", uint64(s.Tick)),
		zap.Int("tasks", s.Tasks),
		zap.Int("entries", s.Entries),
		zap.Int("owners", s.Owners),
		zap.Uint64("task_failures", s.Failures),
		zap.Int("queued_commands", s.Commands),
	}
}
