package sim

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/petfx/server/internal/config"
	"github.com/petfx/server/internal/core/clock"
	"github.com/petfx/server/internal/core/ecs"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/pet"
	"go.uber.org/zap"
)

const (
	arenaSize     = 24 // hostiles spawn inside [-arenaSize/2, arenaSize/2)
	ownerHP       = 2000.0
	ownerDamage   = 25.0
	hostileDamage = 8.0
	hostileReach  = 2.0
)

// Driver keeps a population of owners and hostiles fighting: owners hit
// their nearest hostile, hostiles close in and hit back at owners in reach,
// and the dead are replaced. It is the host side of a headless run.
type Driver struct {
	cfg    config.SimulationConfig
	host   *Host
	pets   *pet.Manager
	table  *data.PetTable
	rng    *rand.Rand
	log    *zap.Logger
	owners []ecs.EntityID
	spawns int
}

func NewDriver(cfg config.SimulationConfig, host *Host, pets *pet.Manager, table *data.PetTable, seed int64, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg:   cfg,
		host:  host,
		pets:  pets,
		table: table,
		rng:   rand.New(rand.NewSource(seed)),
		log:   log,
	}
}

// petFor picks the template for the n-th owner: the configured pet, or a
// rotation through the table when none is configured.
func (d *Driver) petFor(n int) (int32, error) {
	if d.cfg.PetID > 0 {
		return int32(d.cfg.PetID), nil
	}
	all := d.table.All()
	if len(all) == 0 {
		return 0, errors.New("pet table is empty")
	}
	return all[n%len(all)].ID, nil
}

func (d *Driver) spawnOwner() error {
	n := d.spawns
	d.spawns++
	x := int32(n%4)*4 - 6
	id := d.host.SpawnOwner(x, 0, ownerHP, ownerDamage, n%4)
	petID, err := d.petFor(n)
	if err != nil {
		return err
	}
	if _, err := d.pets.Equip(id, petID, max(d.cfg.PetLevel, 1)); err != nil {
		return fmt.Errorf("equip owner %s: %w", id, err)
	}
	d.owners = append(d.owners, id)
	return nil
}

func (d *Driver) spawnHostile() ecs.EntityID {
	x := int32(d.rng.Intn(arenaSize)) - arenaSize/2
	y := int32(d.rng.Intn(arenaSize)) - arenaSize/2
	return d.host.SpawnHostile(x, y, d.cfg.HostileHP)
}

// Populate fills the arena up to the configured counts.
func (d *Driver) Populate() error {
	live := d.owners[:0]
	for _, id := range d.owners {
		if d.host.Alive(id) {
			live = append(live, id)
		}
	}
	d.owners = live
	for len(d.owners) < d.cfg.Owners {
		if err := d.spawnOwner(); err != nil {
			return err
		}
	}
	for n := len(d.host.Hostiles()); n < d.cfg.Hostiles; n++ {
		d.spawnHostile()
	}
	return nil
}

// Update runs one tick of host behavior.
func (d *Driver) Update(now clock.Tick) {
	if err := d.Populate(); err != nil {
		d.log.Error("populate failed", zap.Error(err))
		return
	}
	rate := uint64(max(d.cfg.AttackRate, 1))
	if uint64(now)%rate == 0 {
		d.ownersAttack()
	}
	if uint64(now)%(rate*2) == rate {
		d.hostilesAttack()
	}
}

func (d *Driver) ownersAttack() {
	combat := d.pets.Combat()
	for _, o := range d.owners {
		if !d.host.Alive(o) {
			continue
		}
		target, ok := d.host.NearestHostile(o)
		if !ok {
			continue
		}
		combat.Strike(o, target, d.host.BaseDamage(o), pet.KindMelee)
	}
}

func (d *Driver) hostilesAttack() {
	combat := d.pets.Combat()
	for _, h := range d.host.Hostiles() {
		if owners := d.host.OwnersNear(h, hostileReach); len(owners) > 0 {
			combat.Strike(h, owners[0], hostileDamage, pet.KindMelee)
			continue
		}
		if owners := d.host.OwnersNear(h, arenaSize); len(owners) > 0 {
			d.host.StepToward(h, owners[0])
		}
	}
}

// Owners returns the owners currently managed by the driver.
func (d *Driver) Owners() []ecs.EntityID { return d.owners }
