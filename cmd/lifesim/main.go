// Command lifesim runs a life simulation game and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/umuterturk/investment-game/internal/api"
	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/config"
	"github.com/umuterturk/investment-game/internal/engine"
	"github.com/umuterturk/investment-game/internal/params"
	"github.com/umuterturk/investment-game/internal/persistence"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	fresh := flag.Bool("new", false, "start a new game even if the slot has a save")
	snapshotOut := flag.String("export", "", "write the loaded game to a snapshot file and exit")
	snapshotIn := flag.String("import", "", "start from a snapshot file instead of the save slot")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// ── Reference data ────────────────────────────────────────────────
	data, err := loadRefData(cfg.Game.RefData)
	if err != nil {
		slog.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}
	slog.Info("reference data loaded", "dataset", data.Name,
		"tickers", len(data.Tickers()), "regions", len(data.Regions()))

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.DBPath, "slot", cfg.Storage.Slot)

	// ── Load or start the game ────────────────────────────────────────
	sim, resumed, err := openGame(cfg, data, db, *fresh, *snapshotIn)
	if err != nil {
		slog.Error("failed to start game", "error", err)
		os.Exit(1)
	}

	if *snapshotOut != "" {
		if err := persistence.WriteSnapshot(*snapshotOut, sim.Export()); err != nil {
			slog.Error("snapshot export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", *snapshotOut)
		return
	}

	if !resumed {
		if err := save(db, cfg.Storage.Slot, sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sim)
	eng.Interval = cfg.Loop.TickInterval
	eng.FastFactor = cfg.Loop.FastFactor

	hub := api.NewHub()
	months := 0
	sim.SetObserver(func(r engine.TickReport) {
		hub.Broadcast(r)
		if r.Statement != nil {
			if err := db.SaveStatement(cfg.Storage.Slot, *r.Statement); err != nil {
				slog.Error("statement save failed", "error", err)
			}
			months++
			if cfg.Loop.SaveEveryMonths > 0 && months%cfg.Loop.SaveEveryMonths == 0 {
				if err := save(db, cfg.Storage.Slot, sim); err != nil {
					slog.Error("autosave failed", "error", err)
				}
			}
		}
	})

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("LIFESIM_ADMIN_KEY not set, control POST endpoints will be disabled")
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Hub:      hub,
		Slot:     cfg.Storage.Slot,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
		TickRate: cfg.API.TickRate,
	}
	apiServer.Start(ctx)

	if cfg.Loop.AutoStart && sim.RunState() == clock.Paused {
		sim.SetRunState(clock.Running)
	}

	view := sim.Snapshot()
	fmt.Printf("\n%s is %d on %s with £%s net worth.\n",
		view.Player.Name, view.Age, view.Date, humanize.Commaf(float64(int64(view.Worth.Total))))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if resumed {
		fmt.Printf("Resuming slot %q\n", cfg.Storage.Slot)
	}
	fmt.Printf("Game is %s. POST /api/v1/runstate to change. (Ctrl+C to stop)\n", sim.RunState())

	eng.Run(ctx)

	// Final save on shutdown or retirement.
	slog.Info("final save...")
	if err := save(db, cfg.Storage.Slot, sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if sim.RunState() == clock.Ended {
		view := sim.Snapshot()
		fmt.Printf("Retired at %d with £%s. Happiness %.0f/100.\n",
			view.Age, humanize.Commaf(float64(int64(view.Worth.Total))), view.Happiness.Total)
		// Keep serving the final state until interrupted.
		<-ctx.Done()
	}
	fmt.Println("Game stopped. State saved.")
}

func loadRefData(path string) (*refdata.Dataset, error) {
	if path == "" {
		return refdata.Default()
	}
	return refdata.Load(path)
}

// openGame restores the slot's save or a snapshot, or starts a new game
// from config. resumed reports whether an existing game was loaded.
func openGame(cfg config.Config, data *refdata.Dataset, db *persistence.DB, fresh bool, snapshot string) (*engine.Simulation, bool, error) {
	if snapshot != "" {
		hdr, st, err := persistence.ReadSnapshot(snapshot)
		if err != nil {
			return nil, false, fmt.Errorf("read snapshot: %w", err)
		}
		slog.Info("snapshot loaded", "path", snapshot, "date", hdr.Date, "age", hdr.Age)
		sim, err := engine.Restore(data, st, nil)
		return sim, false, err
	}

	if !fresh {
		st, err := db.LoadGame(cfg.Storage.Slot)
		switch {
		case err == nil:
			if st.Dataset != data.Name {
				slog.Warn("save was made with different reference data", "save", st.Dataset, "loaded", data.Name)
			}
			sim, err := engine.Restore(data, st, nil)
			if err != nil {
				return nil, false, err
			}
			slog.Info("game restored", "slot", cfg.Storage.Slot, "date", st.Clock.Date, "age", st.Clock.Age)
			return sim, true, nil
		case !errors.Is(err, persistence.ErrNoSave):
			return nil, false, err
		}
	}

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	pc := cfg.Player
	p := player.New(pc.Name, pc.Cash, pc.Salary, pc.Region, pc.LivingExpenses)
	if pc.WorkRegion != "" {
		p.Job.Region = pc.WorkRegion
	}
	p.Married = pc.Married
	p.Children = pc.Children
	p.ChildExpenses = float64(pc.Children) * params.ChildMonthlyCost

	sim, err := engine.New(engine.Options{
		Data:   data,
		Seed:   seed,
		Start:  cfg.StartDate(),
		Age:    cfg.Game.StartAge,
		EndAge: cfg.Game.EndAge,
		Player: p,
	})
	if err != nil {
		return nil, false, err
	}
	slog.Info("new game", "seed", seed, "date", sim.Date(), "player", pc.Name,
		"cash", humanize.Commaf(pc.Cash), "salary", humanize.Commaf(pc.Salary))
	return sim, false, nil
}

func save(db *persistence.DB, slot string, sim *engine.Simulation) error {
	if err := db.SaveGame(slot, sim.Export(), sim.Snapshot().Worth.Total); err != nil {
		return err
	}
	return db.SaveMeta("last_slot", slot)
}
