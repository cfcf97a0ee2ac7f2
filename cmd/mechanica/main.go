package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mechanica/engine/internal/behavior"
	"github.com/mechanica/engine/internal/catalog"
	"github.com/mechanica/engine/internal/compose"
	"github.com/mechanica/engine/internal/config"
	"github.com/mechanica/engine/internal/core/ecs"
	"github.com/mechanica/engine/internal/core/event"
	coresys "github.com/mechanica/engine/internal/core/system"
	"github.com/mechanica/engine/internal/diag"
	"github.com/mechanica/engine/internal/fit"
	"github.com/mechanica/engine/internal/persist"
	"github.com/mechanica/engine/internal/pool"
	"github.com/mechanica/engine/internal/scripting"
	"github.com/mechanica/engine/internal/settings"
	"github.com/mechanica/engine/internal/spawn"
	"github.com/mechanica/engine/internal/system"
	"github.com/mechanica/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

func run() error {
	var (
		cfgPath   = flag.String("config", "config/engine.toml", "engine config path")
		primary   = flag.String("primary", "", "primary behavior to generate at boot")
		secondary = flag.String("secondary", "", "comma-separated modifier names")
	)
	flag.Parse()
	if p := os.Getenv("MECHANICA_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// Catalog: YAML file or Postgres, per config.
	printSection("Catalog")

	cat, err := loadCatalog(cfg, log)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	printStat("Behavior descriptors", cat.Count())

	luaEngine, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua scripts loaded")

	// World, stores, and the behavior pipeline.
	printSection("Simulation")

	ecsWorld := ecs.NewWorld()
	scene := world.NewState(ecsWorld)
	bus := event.NewBus()

	reg := behavior.NewRegistry()
	behavior.RegisterBuiltins(reg)

	resolver := settings.NewResolver(cat, log)
	event.Subscribe(bus, func(event.CatalogReloaded) {
		resolver.InvalidateAll()
	})
	applier := behavior.NewApplier(ecsWorld, reg, log)
	applier.SetSettingsHook(luaEngine)
	sched := behavior.NewScheduler(ecsWorld, scene, applier, log)
	entityPool := pool.New(ecsWorld, scene, applier, log)
	evaluator := fit.NewEvaluator(cat, log)

	dump, err := diag.New(cfg.Diagnostics.DumpDir, cfg.Diagnostics.DeleteOnShutdown, entityPool, log)
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	defer dump.Close()

	builders := compose.NewBuilders()
	compose.RegisterDefaultBuilders(builders)
	orch := compose.NewOrchestrator(
		ecsWorld, scene, cat, resolver, applier, evaluator, sched, builders, dump, log,
	)

	runner := coresys.NewRunner()
	spawnSys := system.NewSpawnSystem()
	runner.Register(system.NewEventsSystem(bus))
	runner.Register(spawnSys)
	runner.Register(system.NewBehaviorSystem(sched))
	runner.Register(system.NewMotionSystem(ecsWorld, scene))
	runner.Register(system.NewCleanupSystem(ecsWorld, log))
	printOK("Systems registered")

	// Optional boot-time generation from flags.
	if *primary != "" {
		instr := compose.Instruction{Primary: *primary}
		for _, s := range strings.Split(*secondary, ",") {
			if s = strings.TrimSpace(s); s != "" {
				instr.AddSecondary(s)
			}
		}
		root := orch.Create(instr, &compose.Params{Count: cfg.Spawning.DefaultCount})

		// The generated root also hosts an interval spawner so the demo
		// keeps producing entities.
		deps := &spawn.Deps{
			World:     ecsWorld,
			Scene:     scene,
			Catalog:   cat,
			Settings:  resolver,
			Applier:   applier,
			Pool:      entityPool,
			Scheduler: sched,
			Bus:       bus,
			Log:       log,
			Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		}
		sp := spawn.New(root, spawn.Config{
			Key:               *primary,
			Attach:            []spawn.Attachment{{Name: *primary}},
			Interval:          cfg.Spawning.DefaultInterval,
			CountPerInterval:  cfg.Spawning.DefaultCount,
			MaxActiveChildren: cfg.Spawning.DefaultMaxActive,
			LimitPolicy:       limitPolicy(cfg.Spawning.RecycleOldestChild),
			Recycle:           cfg.Spawning.RecycleOldestChild,
			AvoidOverlap:      cfg.Spawning.OverlapRadius > 0,
			OverlapRadius:     cfg.Spawning.OverlapRadius,
			Resolver:          resolverFor(luaEngine, *primary),
			Shell: world.ShellParams{
				Visual:   &world.Visual{Shape: world.ShapeCircle, Size: 4},
				Collider: &world.Collider{Radius: 4, Mask: world.MaskProjectile},
				WithBody: true,
			},
			SuppressOwnerCollision: true,
		}, deps)
		sp.Enable()
		spawnSys.Add(sp)
		printOK(fmt.Sprintf("Generated %q with spawner", *primary))
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	printSection("Ready")
	printReady(fmt.Sprintf("Simulation loop started (tick: %s)", cfg.Engine.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Engine.TickRate)
		case sig := <-shutdownCh:
			if sig == syscall.SIGHUP {
				reloadCatalog(cfg, cat, bus, log)
				continue
			}
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			event.Emit(bus, event.StopAllSpawning{})
			// One final tick so spawners observe the broadcast.
			runner.Tick(cfg.Engine.TickRate)
			dump.WritePoolStats()
			log.Info("simulation stopped")
			return nil
		}
	}
}

// reloadCatalog re-reads the YAML catalog in place and announces the new
// generation. Postgres-backed catalogs reload on restart only.
func reloadCatalog(cfg *config.Config, cat *catalog.Catalog, bus *event.Bus, log *zap.Logger) {
	if cfg.Catalog.Source != "" && cfg.Catalog.Source != "yaml" {
		log.Warn("catalog reload is only supported for the yaml source",
			zap.String("source", cfg.Catalog.Source))
		return
	}
	descriptors, err := catalog.LoadDescriptors(cfg.Catalog.Path)
	if err != nil {
		log.Error("catalog reload failed, keeping current generation", zap.Error(err))
		return
	}
	cat.ReplaceAll(descriptors)
	event.Emit(bus, event.CatalogReloaded{Fingerprint: cat.Fingerprint()})
	log.Info("catalog reloaded", zap.Int("descriptors", cat.Count()))
}

// resolverFor returns the Lua position resolver for a behavior when one is
// loaded; nil lets the chaos fallback take over.
func resolverFor(eng *scripting.Engine, name string) spawn.PositionResolver {
	if !eng.HasResolver(name) {
		return nil
	}
	return &spawn.LuaResolver{Engine: eng, Name: name}
}

func limitPolicy(recycleOldest bool) spawn.LimitPolicy {
	if recycleOldest {
		return spawn.LimitRecycleOldest
	}
	return spawn.LimitReject
}

// loadCatalog builds the catalog from the configured source.
func loadCatalog(cfg *config.Config, log *zap.Logger) (*catalog.Catalog, error) {
	switch cfg.Catalog.Source {
	case "", "yaml":
		return catalog.LoadFile(cfg.Catalog.Path)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		printOK("Migrations applied")

		descriptors, err := persist.NewCatalogRepo(db).LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load descriptors: %w", err)
		}
		return catalog.New(descriptors), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
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
