package web

import (
	"bytes"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	lo "github.com/samber/lo"

	"logistix-stats/connectors/config"
	ccsv "logistix-stats/connectors/csv"
	"logistix-stats/domain/dataset"
	"logistix-stats/domain/filter"
	"logistix-stats/domain/kpi"
	"logistix-stats/domain/logistics"
)

// Run starts the Echo web server exposing the enriched dataset, the KPI
// families and the breakdown series as JSON, plus an optional SPA dashboard.
//
// Usage:
//
//	logistix-stats web [-addr :8080] [-data ./data] [-ui ./ui/dist]
//
// Every endpoint recomputes its slice and KPIs from the in-memory snapshot
// per request; the snapshot itself is immutable and only replaced wholesale
// by POST /api/refresh when the raw files changed.
func Run(args []string) error {
	fs := flag.NewFlagSet("web", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "", "http listen address (host:port, default from config, :8080)")
	dataDir := fs.String("data", "", "directory containing the raw CSV files (default from config, ./data)")
	uiDir := fs.String("ui", "", "directory containing built UI (Vite dist, default from config, ./ui/dist)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.LoadOrDefault()
	if *addr == "" {
		*addr = cfg.Web.Addr
	}
	if *dataDir == "" {
		*dataDir = cfg.DataDir
	}
	if *uiDir == "" {
		*uiDir = cfg.Web.UIDir
	}

	srv, err := newServer(*dataDir)
	if err != nil {
		slog.Error("web.startup.error", "data", *dataDir, "error", err)
		return err
	}
	slog.Info("web.snapshot.ready", "orders", len(srv.snapshot().Orders), "version", srv.snapshot().Version)

	e := echo.New()
	srv.register(e)

	// Static UI (optional)
	indexPath := filepath.Join(*uiDir, "index.html")
	if fi, err := os.Stat(indexPath); err == nil && !fi.IsDir() {
		e.Static("/", *uiDir)
		e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

		// Fallback to index.html for non-API 404s (SPA routing)
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
				p := c.Request().URL.Path
				if !strings.HasPrefix(p, "/api") {
					_ = c.File(indexPath)
					return
				}
			}
			e.DefaultHTTPErrorHandler(err, c)
		}
	}

	return e.Start(*addr)
}

// server holds the current snapshot plus the raw tables the claims endpoints
// need. The mutex only guards the swap done by refresh; request handlers read
// an immutable snapshot value.
type server struct {
	dataDir string

	mu    sync.RWMutex
	snap  *dataset.Snapshot
	raw   *logistics.RawTables
	warns []logistics.DateParseWarning
}

func newServer(dataDir string) (*server, error) {
	s := &server{dataDir: dataDir}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *server) reload() error {
	raw, warns, err := ccsv.Load(s.dataDir)
	if err != nil {
		return err
	}
	for _, w := range warns {
		slog.Warn("web.date.warning", "table", w.Table, "column", w.Column, "value", w.Value)
	}
	snap, err := dataset.Build(raw)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw, s.warns, s.snap = raw, warns, snap
	s.mu.Unlock()
	return nil
}

func (s *server) snapshot() *dataset.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *server) rawTables() *logistics.RawTables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

func (s *server) register(e *echo.Echo) {
	e.GET("/api/enriched", s.handleEnriched)
	e.GET("/api/enriched/export", s.handleExport)
	e.GET("/api/kpis/overview", s.handleOverviewKPIs)
	e.GET("/api/kpis/transport", s.handleTransportKPIs)
	e.GET("/api/kpis/claims", s.handleClaimsKPIs)
	e.GET("/api/series/overview", s.handleOverviewSeries)
	e.GET("/api/transport/by_mode", s.handleByTransport)
	e.GET("/api/transport/by_state", s.handleByState)
	e.GET("/api/transport/monthly", s.handleMonthly)
	e.GET("/api/claims/by_type", s.handleClaimsByType)
	e.GET("/api/filters", s.handleFilterOptions)
	e.GET("/api/snapshot", s.handleSnapshotInfo)
	e.POST("/api/refresh", s.handleRefresh)
}

// parseFilters builds the per-request filter selection from query params.
// start/end default to the snapshot's order-date range; transport and state
// are comma-separated sets where empty means no restriction.
func (s *server) parseFilters(c echo.Context) (filter.Filters, error) {
	snap := s.snapshot()
	minDate, maxDate := orderDateRange(snap.Orders)
	f := filter.Filters{Start: minDate, End: maxDate}

	if v := c.QueryParam("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", v)
		}
		f.Start = t
	}
	if v := c.QueryParam("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, fmt.Errorf("invalid end date %q (want YYYY-MM-DD)", v)
		}
		f.End = t
	}
	if f.End.Before(f.Start) {
		return f, fmt.Errorf("end date before start date")
	}
	f.Transports = splitParam(c.QueryParam("transport"))
	f.States = splitParam(c.QueryParam("state"))
	return f, nil
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error":   err.Error(),
		"message": "invalid filter parameters",
	})
}

func (s *server) handleEnriched(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	rows := filter.Apply(s.snapshot().Orders, f)
	return c.JSON(http.StatusOK, map[string]any{
		"filters": f,
		"count":   len(rows),
		"orders":  rows,
	})
}

func (s *server) handleExport(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	rows := filter.Apply(s.snapshot().Orders, f)
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, rows); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"message": "failed to serialize export",
		})
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="enriched_orders.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// previousSlice filters the full snapshot over the preceding window with the
// same transport/state selection.
func (s *server) previousSlice(f filter.Filters) ([]logistics.EnrichedOrder, filter.Filters) {
	prevStart, prevEnd := filter.PreviousPeriod(f.Start, f.End)
	prev := filter.Filters{Start: prevStart, End: prevEnd, Transports: f.Transports, States: f.States}
	return filter.Apply(s.snapshot().Orders, prev), prev
}

func (s *server) handleOverviewKPIs(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	current := kpi.Overview(filter.Apply(s.snapshot().Orders, f))

	prevRows, _ := s.previousSlice(f)
	var previous *kpi.OverviewKPIs
	if len(prevRows) > 0 {
		p := kpi.Overview(prevRows)
		previous = &p
	}
	return c.JSON(http.StatusOK, map[string]any{
		"filters":  f,
		"current":  current,
		"previous": previous,
		"deltas":   kpi.CompareOverview(current, previous),
	})
}

func (s *server) handleTransportKPIs(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"filters": f,
		"kpis":    kpi.Transport(filter.Apply(s.snapshot().Orders, f)),
	})
}

func (s *server) handleClaimsKPIs(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	customers := s.rawTables().Customers
	current := kpi.Claims(filter.Apply(s.snapshot().Orders, f), customers, f.Start, f.End)

	prevRows, prevF := s.previousSlice(f)
	var previous *kpi.ClaimsKPIs
	if len(prevRows) > 0 {
		p := kpi.Claims(prevRows, customers, prevF.Start, prevF.End)
		previous = &p
	}
	return c.JSON(http.StatusOK, map[string]any{
		"filters":  f,
		"current":  current,
		"previous": previous,
		"deltas":   kpi.CompareClaims(current, previous),
	})
}

func (s *server) handleOverviewSeries(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	freq := kpi.ParseFrequency(c.QueryParam("freq"))
	daily := kpi.DailySeries(filter.Apply(s.snapshot().Orders, f))
	return c.JSON(http.StatusOK, map[string]any{
		"filters": f,
		"freq":    freq,
		"points":  kpi.RollupSeries(daily, freq),
	})
}

func (s *server) handleByTransport(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, kpi.ByTransport(filter.Apply(s.snapshot().Orders, f)))
}

func (s *server) handleByState(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, kpi.ByState(filter.Apply(s.snapshot().Orders, f)))
}

func (s *server) handleMonthly(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(http.StatusOK, kpi.MonthlyThefts(filter.Apply(s.snapshot().Orders, f)))
}

func (s *server) handleClaimsByType(c echo.Context) error {
	f, err := s.parseFilters(c)
	if err != nil {
		return badRequest(c, err)
	}
	rows := filter.Apply(s.snapshot().Orders, f)
	types, totals := kpi.ClaimsByType(s.rawTables().Claims, rows, f.Start, f.End)
	return c.JSON(http.StatusOK, map[string]any{
		"filters": f,
		"types":   types,
		"totals":  totals,
	})
}

func (s *server) handleFilterOptions(c echo.Context) error {
	snap := s.snapshot()
	minDate, maxDate := orderDateRange(snap.Orders)
	transports := lo.Uniq(lo.FilterMap(snap.Orders, func(o logistics.EnrichedOrder, _ int) (string, bool) {
		return o.TransportType, o.TransportType != ""
	}))
	sort.Strings(transports)
	states := lo.Uniq(lo.FlatMap(snap.Orders, func(o logistics.EnrichedOrder, _ int) []string { return o.StateCodes }))
	sort.Strings(states)
	return c.JSON(http.StatusOK, map[string]any{
		"min_date":        minDate.Format("2006-01-02"),
		"max_date":        maxDate.Format("2006-01-02"),
		"transport_types": transports,
		"state_codes":     states,
	})
}

func (s *server) handleSnapshotInfo(c echo.Context) error {
	s.mu.RLock()
	snap, warns := s.snap, s.warns
	s.mu.RUnlock()
	return c.JSON(http.StatusOK, map[string]any{
		"version":   snap.Version,
		"built_at":  snap.BuiltAt,
		"nb_orders": len(snap.Orders),
		"warnings":  lo.Map(warns, func(w logistics.DateParseWarning, _ int) string { return w.String() }),
	})
}

func (s *server) handleRefresh(c echo.Context) error {
	current := s.snapshot().Version
	version, err := ccsv.Hash(s.dataDir)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"message": "failed to hash raw tables",
		})
	}
	if version == current {
		return c.JSON(http.StatusOK, map[string]any{
			"version": current,
			"rebuilt": false,
		})
	}
	if err := s.reload(); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"message": "failed to rebuild snapshot",
		})
	}
	slog.Info("web.snapshot.refreshed", "previous", current, "version", s.snapshot().Version)
	return c.JSON(http.StatusOK, map[string]any{
		"previous_version": current,
		"version":          s.snapshot().Version,
		"rebuilt":          true,
	})
}

func orderDateRange(orders []logistics.EnrichedOrder) (time.Time, time.Time) {
	var minDate, maxDate time.Time
	for _, o := range orders {
		if o.OrderDate.IsZero() {
			continue
		}
		if minDate.IsZero() || o.OrderDate.Before(minDate) {
			minDate = o.OrderDate
		}
		if maxDate.IsZero() || o.OrderDate.After(maxDate) {
			maxDate = o.OrderDate
		}
	}
	return minDate, maxDate
}
