package main

import (
	"fmt"
	"log/slog"
	"os"

	cmdbuild "logistix-stats/command/build"
	cmdimport "logistix-stats/command/import"
	cmdweb "logistix-stats/command/web"
)

// Logistics analytics dashboard backend.
// Usage:
//   logistix-stats import [-base https://lake.example.com/exports] [-data ./data]
//   logistix-stats build  [-data ./data] [-out enriched_orders.csv]
//   logistix-stats web    [-addr :8080] [-data ./data] [-ui ./ui/dist]
// Notes:
// - import pulls the eight raw tables (orders, products, states_risk,
//   transport_mode, claims, customers, order_product, order_route_leg) from an
//   OAuth2-protected endpoint and writes them as CSVs.
// - build joins and enriches them into the order-centric table and exports it.
// - web serves filtered slices, KPI families with previous-period deltas, and
//   breakdown series as JSON over the in-memory snapshot.

func main() {
	args := os.Args
	// Initialize slog logger (text to stderr, INFO level)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(h))

	if len(args) > 1 {
		sub := args[1]
		rest := append([]string{}, args[2:]...)
		switch sub {
		case "import":
			if err := cmdimport.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "build":
			if err := cmdbuild.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		case "web":
			if err := cmdweb.Run(rest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: logistix-stats import [-base <url>] [-data <dir>] | build [-data <dir>] | web [-addr :8080] [-data ./data]\nENV: set CONFIG_PATH to point to a YAML config file (default ./config.yml)")
	os.Exit(2)
}
