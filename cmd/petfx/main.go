package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/petfx/server/internal/config"
	"github.com/petfx/server/internal/core/ecs"
	coresys "github.com/petfx/server/internal/core/system"
	"github.com/petfx/server/internal/data"
	"github.com/petfx/server/internal/engine"
	"github.com/petfx/server/internal/persist"
	"github.com/petfx/server/internal/pet"
	"github.com/petfx/server/internal/scripting"
	"github.com/petfx/server/internal/sim"
	"github.com/petfx/server/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	journalRetention = 7 * 24 * time.Hour
	statsInterval    = 200 // ticks between engine summaries
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               petfx  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        pet ability effect engine          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

var numbers = message.NewPrinter(language.English)

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Load pet data and scripts
	printSection("data")

	var (
		table   *data.PetTable
		scripts *scripting.Engine
	)
	var g errgroup.Group
	g.Go(func() error {
		t, err := data.LoadPetTable(cfg.Data.PetsPath)
		if err != nil {
			return fmt.Errorf("load pet table: %w", err)
		}
		table = t
		return nil
	})
	g.Go(func() error {
		e, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		scripts = e
		return nil
	})
	if err := g.Wait(); err != nil {
		if scripts != nil {
			scripts.Close()
		}
		return err
	}
	defer scripts.Close()
	printStat("pet templates", table.Count())
	printStat("lua scripts", scripts.Loaded())

	factories := pet.NewFactories()
	if err := factories.Validate(table); err != nil {
		return fmt.Errorf("pet table: %w", err)
	}
	printOK("ability types resolved")
	fmt.Println()

	// 4. Optional ability journal
	var journalRepo *persist.JournalRepo
	if cfg.Journal.Enabled {
		printSection("journal")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Journal, log.Named("journal"))
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		applied, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("migrations applied", len(applied))

		journalRepo = persist.NewJournalRepo(db)
		pruned, err := journalRepo.Prune(ctx, time.Now().Add(-journalRetention))
		if err != nil {
			return fmt.Errorf("journal prune: %w", err)
		}
		printStat("pruned entries", int(pruned))
		fmt.Println()
	}

	// 5. Engine, world and pets
	eng := engine.New(cfg.Engine, log)
	ecsWorld := ecs.NewWorld()
	host := sim.NewHost(ecsWorld, log.Named("sim"))
	pets := pet.NewManager(&pet.Deps{
		Engine:   eng,
		World:    host,
		Damage:   host,
		Stats:    host,
		Formulas: scripts,
		Scripts:  scripts,
		Log:      log.Named("pet"),
	}, table, factories)

	// pets first: hooks still read host components during teardown
	ecsWorld.Registry().Register(pets)
	ecsWorld.Registry().Register(host)

	// 6. Systems
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(eng.Commands, cfg.Engine.MaxCommandsPerTick, log))
	runner.Register(system.NewEventDispatchSystem(eng.Bus))
	runner.Register(system.NewTaskSystem(eng.Scheduler))
	runner.Register(coresys.Every(cfg.Engine.PassiveInterval, system.NewPassiveSystem(pets)))
	runner.Register(coresys.Every(cfg.Engine.UltimateInterval, system.NewUltimateSystem(pets)))
	if cfg.Simulation.Enabled {
		driver := sim.NewDriver(cfg.Simulation, host, pets, table, time.Now().UnixNano(), log.Named("sim"))
		runner.Register(system.NewSimulationSystem(driver))
	}
	runner.Register(coresys.Every(cfg.Engine.SweepInterval, system.NewSweepSystem(eng.Registry)))
	runner.Register(coresys.Every(statsInterval, system.NewStatsSystem(eng, log)))
	var journal *system.JournalSystem
	if journalRepo != nil {
		journal = system.NewJournalSystem(eng.Bus, journalRepo, cfg.Journal, log.Named("journal"))
		runner.Register(journal)
	}
	runner.Register(system.NewCleanupSystem(ecsWorld))

	// 7. Start tick loop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Simulation.Enabled && cfg.Simulation.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Simulation.Duration)
		defer cancel()
	}

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop running (tick: %s)", cfg.Engine.TickRate))
	if cfg.Simulation.Enabled {
		printReady(fmt.Sprintf("simulating %d owners against %d hostiles", cfg.Simulation.Owners, cfg.Simulation.Hostiles))
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(eng.Clock.Advance())
		case <-ctx.Done():
			log.Info("shutting down", zap.NamedError("reason", context.Cause(ctx)))
			if journal != nil {
				journal.Flush()
				log.Info("journal flushed",
					zap.Uint64("written", journal.Written()),
					zap.Uint64("dropped", journal.Dropped()),
				)
			}
			log.Info("engine stopped",
				append(eng.Stats().Fields(), zap.Int("kills", host.Kills()), zap.Int("pets", pets.Count()))...)
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
