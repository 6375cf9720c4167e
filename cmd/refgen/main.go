// Command refgen writes a synthetic reference data file: fictional
// tickers and regions with noise-driven prices over the real tax tables.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/umuterturk/investment-game/internal/refdata"
)

func main() {
	out := flag.String("out", "synthetic.yaml", "output path")
	seed := flag.Int64("seed", 42, "noise seed; 0 picks one at random")
	tickers := flag.String("tickers", "", "comma-separated tickers (default: a fictional set)")
	regions := flag.String("regions", "", "comma-separated regions (default: a fictional set)")
	drift := flag.Float64("drift", 0, "mean annual log growth (default 0.03)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := refdata.DefaultSynthConfig()
	cfg.Seed = *seed
	if *tickers != "" {
		cfg.Tickers = splitList(*tickers)
	}
	if *regions != "" {
		cfg.Regions = splitList(*regions)
	}
	if *drift != 0 {
		cfg.Drift = *drift
	}

	template, err := refdata.Default()
	if err != nil {
		slog.Error("failed to load embedded tables", "error", err)
		os.Exit(1)
	}
	ds := refdata.Synthesize(cfg, template)

	raw, err := refdata.Marshal(ds)
	if err != nil {
		slog.Error("encode failed", "error", err)
		os.Exit(1)
	}
	// The written file must load back through the schema.
	if _, err := refdata.Parse(raw); err != nil {
		slog.Error("generated data failed validation", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		slog.Error("write failed", "path", *out, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s: %d tickers, %d regions, %d-%d\n",
		*out, len(cfg.Tickers), len(cfg.Regions), cfg.StartYear, cfg.EndYear)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
