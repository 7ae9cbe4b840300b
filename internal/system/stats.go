package system

import (
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/event"
	coresys "github.com/petfx/server/internal/core/system"
	"github.com/petfx/server/internal/engine"
	"go.uber.org/zap"
)

// StatsSystem counts presentation feedback and periodically logs an engine
// summary. Phase 4 (Output); wrap it in coresys.Every.
type StatsSystem struct {
	eng      *engine.Engine
	log      *zap.Logger
	feedback map[event.FeedbackKind]int
}

func NewStatsSystem(eng *engine.Engine, log *zap.Logger) *StatsSystem {
	if log == nil {
		log = zap.NewNop()
	}
	s := &StatsSystem{eng: eng, log: log, feedback: make(map[event.FeedbackKind]int)}
	event.Subscribe(eng.Bus, func(f event.Feedback) { s.feedback[f.Kind]++ })
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *StatsSystem) Update(_ clock.Tick) {
	fields := s.eng.Stats().Fields()
	fields = append(fields,
		zap.Int("detonations", s.feedback[event.FeedbackDetonation]),
		zap.Int("impacts", s.feedback[event.FeedbackImpact]),
		zap.Int("marks", s.feedback[event.FeedbackMarkApplied]),
	)
	s.log.Info("engine stats", fields...)
}

// Feedback returns how many cues of kind were delivered since start.
func (s *StatsSystem) Feedback(kind event.FeedbackKind) int { return s.feedback[kind] }
