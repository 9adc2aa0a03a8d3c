package cmdimport

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"logistix-stats/connectors/config"
	ccsv "logistix-stats/connectors/csv"
	"logistix-stats/connectors/lake"
)

// Run executes the import subcommand: it fetches the eight raw tables from
// the configured lake endpoint and materializes them as CSV files under the
// data directory. The first unreachable table aborts the import; a partial
// data directory is never left behind silently (the error names the table).
func Run(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	base := fs.String("base", "", "lake base URL (optional if config provides lake.base_url)")
	dataDir := fs.String("data", "", "directory to write CSV files into (default from config, ./data)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.LoadOrDefault()
	if *base == "" {
		*base = cfg.Lake.BaseURL
	}
	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}
	if *base == "" {
		fmt.Fprintln(os.Stderr, "-base is required when no config file with lake.base_url is provided (set CONFIG_PATH to a config file)")
		slog.Error("import.validation.error", "reason", "missing base URL")
		return fmt.Errorf("missing required -base or CONFIG_PATH with lake.base_url")
	}

	secret := cfg.Lake.ClientSecret
	if env := os.Getenv("LAKE_CLIENT_SECRET"); env != "" {
		secret = env
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		return err
	}

	slog.Info("import.start", "base", *base, "data", *dataDir)
	ctx := context.Background()
	client := lake.New(*base, cfg.Lake.TokenURL, cfg.Lake.ClientID, secret, cfg.Lake.Scopes)

	for _, name := range ccsv.SourceFiles {
		if err := fetchOne(ctx, client, *dataDir, name); err != nil {
			slog.Error("import.table.error", "table", name, "error", err)
			return err
		}
		slog.Info("import.table.done", "table", name)
	}

	slog.Info("import.done", "tables", len(ccsv.SourceFiles))
	return nil
}

func fetchOne(ctx context.Context, client *lake.Client, dir, name string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := client.FetchTable(ctx, name, f); err != nil {
		return err
	}
	return f.Close()
}
