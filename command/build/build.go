package build

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"logistix-stats/connectors/config"
	ccsv "logistix-stats/connectors/csv"
	"logistix-stats/domain/dataset"
)

// Run executes the build subcommand: load the raw tables, run the enrichment
// pipeline and write enriched_orders.csv next to the sources. Missing tables
// and missing columns are fatal; date-parse problems are logged as warnings
// and the build proceeds.
func Run(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	dataDir := fs.String("data", "", "directory containing the raw CSV files (default from config, ./data)")
	outFile := fs.String("out", "enriched_orders.csv", "output file name, written inside the data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.LoadOrDefault()
	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}

	raw, warns, err := ccsv.Load(*dataDir)
	if err != nil {
		slog.Error("build.load.error", "data", *dataDir, "error", err)
		return err
	}
	for _, w := range warns {
		slog.Warn("build.date.warning", "table", w.Table, "column", w.Column, "value", w.Value)
	}

	snap, err := dataset.Build(raw)
	if err != nil {
		slog.Error("build.error", "error", err)
		return err
	}

	path := filepath.Join(*dataDir, *outFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dataset.WriteCSV(f, snap.Orders); err != nil {
		return err
	}

	slog.Info("build.done", "orders", len(snap.Orders), "version", snap.Version, "out", path)
	fmt.Fprintf(os.Stderr, "build.done count=%d version=%s\n", len(snap.Orders), snap.Version)
	return nil
}
