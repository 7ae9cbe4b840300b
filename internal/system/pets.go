package system

import (
	"github.com/petfx/server/internal/core/clock"
	coresys "github.com/petfx/server/internal/core/system"
	"github.com/petfx/server/internal/pet"
	"github.com/petfx/server/internal/sim"
)

// PassiveSystem runs pet passive ticks. Phase 2 (Update); wrap it in
// coresys.Every with the configured passive interval.
type PassiveSystem struct {
	pets *pet.Manager
}

func NewPassiveSystem(pets *pet.Manager) *PassiveSystem { return &PassiveSystem{pets: pets} }

func (s *PassiveSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PassiveSystem) Update(_ clock.Tick) { s.pets.TickPassives() }

// UltimateSystem offers every equipped pet's ultimate a chance to fire on
// its own.
type UltimateSystem struct {
	pets *pet.Manager
}

func NewUltimateSystem(pets *pet.Manager) *UltimateSystem { return &UltimateSystem{pets: pets} }

func (s *UltimateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UltimateSystem) Update(_ clock.Tick) { s.pets.TickUltimates() }

// SimulationSystem drives the headless arena. Phase 2 (Update), after the
// pet systems.
type SimulationSystem struct {
	driver *sim.Driver
}

func NewSimulationSystem(d *sim.Driver) *SimulationSystem { return &SimulationSystem{driver: d} }

func (s *SimulationSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SimulationSystem) Update(now clock.Tick) { s.driver.Update(now) }
