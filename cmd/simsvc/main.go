package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"battlematus/internal/agent"
	"battlematus/internal/combat"
	"battlematus/internal/config"
	"battlematus/internal/persistence/archive"
	"battlematus/internal/persistence/journal"
	"battlematus/internal/persistence/snapshot"
	"battlematus/internal/util"
)

type options struct {
	config  string
	battle  string
	out     string
	save    string
	journal string
	archive string
	seed    int64
	n       int
}

// runResult is the outcome of one run.
type runResult struct {
	Run    int     `json:"run"`
	Seed   int64   `json:"seed"`
	Status string  `json:"status"`
	Rounds int     `json:"rounds"`
	Eval   float64 `json:"eval"`
	Err    string  `json:"error,omitempty"`
}

type summary struct {
	Battle    string         `json:"battle"`
	BatchID   string         `json:"batch_id,omitempty"`
	Runs      int            `json:"runs"`
	WinRate   float64        `json:"win_rate"`
	AvgRounds float64        `json:"avg_rounds"`
	Statuses  map[string]int `json:"statuses"`
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "battlematus.yaml", "settings file")
	flag.StringVar(&opts.battle, "battle", "", "battle snapshot to load (.json or .json.zst)")
	flag.StringVar(&opts.out, "out", "out.json", "output file (single) or summary file (batch)")
	flag.StringVar(&opts.save, "save", "", "write the final battle snapshot here (single run)")
	flag.StringVar(&opts.journal, "journal", "", "journal file, overrides settings (.jsonl or .jsonl.zst)")
	flag.StringVar(&opts.archive, "archive", "", "sqlite archive, overrides settings")
	flag.Int64Var(&opts.seed, "seed", 0, "seed, overrides settings")
	flag.IntVar(&opts.n, "n", 1, "number of simulations")
	flag.Parse()

	settings, err := config.LoadSettings(opts.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: settings.Level()})))

	if opts.seed != 0 {
		settings.Seed = opts.seed
	}
	if opts.journal != "" {
		settings.JournalPath = opts.journal
	}
	if opts.archive != "" {
		settings.ArchivePath = opts.archive
	}

	if err := run(context.Background(), opts, settings); err != nil {
		slog.Error("simsvc failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, settings config.Settings) (err error) {
	if opts.battle == "" {
		return errors.New("-battle is required")
	}
	battle, err := snapshot.Read(opts.battle)
	if err != nil {
		return err
	}
	lib := config.NewLibrary(settings.DataDir)

	var jw *journal.Writer
	if settings.JournalPath != "" {
		jw, err = journal.Create(settings.JournalPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := jw.Close(); err == nil {
				err = cerr
			}
		}()
	}

	if opts.n <= 1 {
		return runSingle(opts, settings, lib, battle, jw)
	}
	return runBatch(ctx, opts, settings, lib, battle, jw)
}

// newSim restores the battle into a fresh simulation seeded for one run.
func newSim(settings config.Settings, lib *config.Library, battle snapshot.Battle, seed int64) (*combat.Simulation, error) {
	overflow, err := settings.OverflowPolicy()
	if err != nil {
		return nil, err
	}
	sim := combat.NewSimulation(lib, seed)
	sim.Overflow = overflow
	battle.Restore(sim, agent.New)
	return sim, nil
}

func play(sim *combat.Simulation, run int, seed int64, maxRounds int) runResult {
	status, err := sim.Run(maxRounds)
	res := runResult{
		Run:    run,
		Seed:   seed,
		Status: status.String(),
		Rounds: sim.State.Round,
	}
	if err != nil {
		res.Err = err.Error()
		slog.Warn("run stopped", "run", run, "seed", seed, "status", status, "err", err)
		return res
	}
	res.Eval = sim.EvalState()
	return res
}

func runSingle(opts options, settings config.Settings, lib *config.Library, battle snapshot.Battle, jw *journal.Writer) error {
	sim, err := newSim(settings, lib, battle, settings.Seed)
	if err != nil {
		return err
	}
	if jw != nil {
		sim.Emit = jw.Sink(0)
	}
	res := play(sim, 0, settings.Seed, settings.MaxRounds)

	for member, a := range sim.Agents {
		s, ok := a.(interface{ Save() error })
		if !ok {
			continue
		}
		if err := s.Save(); err != nil {
			slog.Warn("history not saved", "member", member, "err", err)
		}
	}
	if opts.save != "" {
		if err := snapshot.Write(opts.save, snapshot.Capture(sim)); err != nil {
			return err
		}
	}
	if err := os.WriteFile(opts.out, combat.MarshalPretty(res), 0o644); err != nil {
		return err
	}
	fmt.Printf("Single simsvc finished. Status=%s, Rounds=%d, Eval=%.2f -> %s\n", res.Status, res.Rounds, res.Eval, opts.out)
	return nil
}

func runBatch(ctx context.Context, opts options, settings config.Settings, lib *config.Library, battle snapshot.Battle, jw *journal.Writer) error {
	var arc *archive.Archive
	var batchID string
	if settings.ArchivePath != "" {
		var err error
		arc, err = archive.Open(settings.ArchivePath)
		if err != nil {
			return err
		}
		defer arc.Close()
		b, err := arc.NewBatch(ctx, opts.battle, settings.Seed, opts.n, settings.Dump())
		if err != nil {
			return err
		}
		batchID = b.ID
		slog.Info("batch started", "batch", batchID, "runs", opts.n)
	}

	results := make([]runResult, opts.n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(settings.Workers)
	for i := 0; i < opts.n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := util.RunSeed(settings.Seed, i)
			sim, err := newSim(settings, lib, battle, seed)
			if err != nil {
				return err
			}
			if jw != nil {
				sim.Emit = jw.Sink(i)
			}
			res := play(sim, i, seed, settings.MaxRounds)

			results[i] = res

			if arc == nil {
				return nil
			}
			return arc.RecordRun(ctx, batchID, archive.Run{
				Index:  res.Run,
				Seed:   res.Seed,
				Status: res.Status,
				Rounds: res.Rounds,
				Eval:   res.Eval,
				Err:    res.Err,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sum := summarize(results)
	sum.Battle = opts.battle
	sum.BatchID = batchID
	if err := os.WriteFile(opts.out, combat.MarshalPretty(sum), 0o644); err != nil {
		return err
	}
	fmt.Printf("Batch simsvc finished. Runs=%d, WinRate=%.3f, AvgRounds=%.1f -> %s\n", sum.Runs, sum.WinRate, sum.AvgRounds, opts.out)
	return nil
}

func summarize(results []runResult) summary {
	sum := summary{Runs: len(results), Statuses: map[string]int{}}
	if len(results) == 0 {
		return sum
	}
	rounds := 0
	for _, r := range results {
		sum.Statuses[r.Status]++
		rounds += r.Rounds
	}
	sum.WinRate = float64(sum.Statuses[combat.StatusFriendlyVictory.String()]) / float64(len(results))
	sum.AvgRounds = float64(rounds) / float64(len(results))
	return sum
}
