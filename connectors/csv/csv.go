package csv

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"logistix-stats/domain/logistics"
)

// Source file names, in the order used for the raw-data version hash.
const (
	OrdersFile        = "orders.csv"
	ProductsFile      = "products.csv"
	StatesRiskFile    = "states_risk.csv"
	TransportModeFile = "transport_mode.csv"
	ClaimsFile        = "claims.csv"
	CustomersFile     = "customers.csv"
	OrderProductFile  = "order_product.csv"
	OrderRouteLegFile = "order_route_leg.csv"
)

// SourceFiles lists every required table file.
var SourceFiles = []string{
	OrdersFile,
	ProductsFile,
	StatesRiskFile,
	TransportModeFile,
	ClaimsFile,
	CustomersFile,
	OrderProductFile,
	OrderRouteLegFile,
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Load reads the eight source tables from dir. A missing file aborts with
// *logistics.MissingSourceError, a missing required column with
// *logistics.SchemaError; unparseable date values are collected as warnings
// and leave the zero time in place. The returned RawTables carries a content
// hash over the source files as its version.
func Load(dir string) (*logistics.RawTables, []logistics.DateParseWarning, error) {
	for _, name := range SourceFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, nil, &logistics.MissingSourceError{File: name}
		}
	}

	version, err := hashFiles(dir)
	if err != nil {
		return nil, nil, err
	}

	var warns []logistics.DateParseWarning
	raw := &logistics.RawTables{Version: version}

	if raw.Orders, err = readOrders(filepath.Join(dir, OrdersFile), &warns); err != nil {
		return nil, nil, err
	}
	if raw.Products, err = readProducts(filepath.Join(dir, ProductsFile)); err != nil {
		return nil, nil, err
	}
	if raw.StatesRisk, err = readStatesRisk(filepath.Join(dir, StatesRiskFile)); err != nil {
		return nil, nil, err
	}
	if raw.TransportMode, err = readTransportModes(filepath.Join(dir, TransportModeFile)); err != nil {
		return nil, nil, err
	}
	if raw.Claims, err = readClaims(filepath.Join(dir, ClaimsFile), &warns); err != nil {
		return nil, nil, err
	}
	if raw.Customers, err = readCustomers(filepath.Join(dir, CustomersFile), &warns); err != nil {
		return nil, nil, err
	}
	if raw.OrderProducts, err = readOrderProducts(filepath.Join(dir, OrderProductFile)); err != nil {
		return nil, nil, err
	}
	if raw.RouteLegs, err = readRouteLegs(filepath.Join(dir, OrderRouteLegFile), &warns); err != nil {
		return nil, nil, err
	}
	return raw, warns, nil
}

// Hash returns the raw-data version for dir without loading the tables.
// Callers use it to decide whether a cached snapshot is still current.
func Hash(dir string) (string, error) {
	for _, name := range SourceFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return "", &logistics.MissingSourceError{File: name}
		}
	}
	return hashFiles(dir)
}

// hashFiles returns a short hex digest over the source files, read in the
// fixed SourceFiles order. Identical bytes yield an identical version.
func hashFiles(dir string) (string, error) {
	h := sha256.New()
	for _, name := range SourceFiles {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}

// table wraps one parsed CSV file: its rows and a header index map.
type table struct {
	name string
	idx  map[string]int
	rows [][]string
}

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	t := &table{name: filepath.Base(path)}
	if len(records) == 0 {
		return nil, &logistics.SchemaError{Table: t.name, Column: required[0]}
	}
	t.idx = indexMap(records[0])
	for _, col := range required {
		if _, ok := t.idx[col]; !ok {
			return nil, &logistics.SchemaError{Table: t.name, Column: col}
		}
	}
	t.rows = records[1:]
	return t, nil
}

func indexMap(headers []string) map[string]int {
	m := map[string]int{}
	for i, h := range headers {
		m[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return m
}

func (t *table) get(row []string, col string) string {
	i, ok := t.idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) getFloat(row []string, col string) float64 {
	v, err := strconv.ParseFloat(t.get(row, col), 64)
	if err != nil {
		return 0
	}
	return v
}

func (t *table) getInt(row []string, col string) int {
	s := t.get(row, col)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	// Counts exported by spreadsheet tools sometimes carry a decimal point.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func (t *table) getBool(row []string, col string) bool {
	s := strings.ToLower(t.get(row, col))
	return s == "true" || s == "1" || s == "yes"
}

// getDate parses col against the accepted layouts. On failure the zero time
// is returned and a warning recorded; empty values warn nothing.
func (t *table) getDate(row []string, col string, warns *[]logistics.DateParseWarning) time.Time {
	s := t.get(row, col)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v.UTC()
		}
	}
	*warns = append(*warns, logistics.DateParseWarning{Table: t.name, Column: col, Value: s})
	return time.Time{}
}

func (t *table) getDateOpt(row []string, col string, warns *[]logistics.DateParseWarning) *time.Time {
	if t.get(row, col) == "" {
		return nil
	}
	v := t.getDate(row, col, warns)
	if v.IsZero() {
		return nil
	}
	return &v
}

func readOrders(path string, warns *[]logistics.DateParseWarning) ([]logistics.Order, error) {
	t, err := readTable(path, []string{
		"order_id", "customer_id", "transport_id", "order_date",
		"estimated_delivery_date", "actual_delivery_date", "total_amount",
		"delivery_status", "payment_status", "seasonal_period", "claim_flag",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.Order, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.Order{
			OrderID:               t.get(row, "order_id"),
			CustomerID:            t.get(row, "customer_id"),
			TransportID:           t.get(row, "transport_id"),
			OrderDate:             t.getDate(row, "order_date", warns),
			EstimatedDeliveryDate: t.getDate(row, "estimated_delivery_date", warns),
			ActualDeliveryDate:    t.getDate(row, "actual_delivery_date", warns),
			TotalAmount:           t.getFloat(row, "total_amount"),
			DeliveryStatus:        t.get(row, "delivery_status"),
			PaymentStatus:         t.get(row, "payment_status"),
			SeasonalPeriod:        t.get(row, "seasonal_period"),
			ClaimFlag:             t.getBool(row, "claim_flag"),
		})
	}
	return res, nil
}

func readProducts(path string) ([]logistics.Product, error) {
	t, err := readTable(path, []string{
		"product_id", "fragility_class", "theft_attractiveness_score",
		"christmas_popularity_multiplier",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.Product, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.Product{
			ProductID:                     t.get(row, "product_id"),
			FragilityClass:                t.get(row, "fragility_class"),
			TheftAttractivenessScore:      t.getFloat(row, "theft_attractiveness_score"),
			ChristmasPopularityMultiplier: t.getFloat(row, "christmas_popularity_multiplier"),
		})
	}
	return res, nil
}

func readStatesRisk(path string) ([]logistics.StateRisk, error) {
	t, err := readTable(path, []string{"state_code"})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.StateRisk, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.StateRisk{
			StateCode: t.get(row, "state_code"),
			StateName: t.get(row, "state_name"),
			RiskScore: t.getFloat(row, "risk_score"),
			RiskLevel: t.get(row, "risk_level"),
		})
	}
	return res, nil
}

func readTransportModes(path string) ([]logistics.TransportMode, error) {
	t, err := readTable(path, []string{
		"transport_id", "transport_type", "cost_per_km", "co2_emission_per_km",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.TransportMode, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.TransportMode{
			TransportID:      t.get(row, "transport_id"),
			TransportType:    t.get(row, "transport_type"),
			CostPerKm:        t.getFloat(row, "cost_per_km"),
			CO2EmissionPerKm: t.getFloat(row, "co2_emission_per_km"),
		})
	}
	return res, nil
}

func readClaims(path string, warns *[]logistics.DateParseWarning) ([]logistics.Claim, error) {
	t, err := readTable(path, []string{
		"claim_id", "order_id", "claim_type", "claim_status", "claim_amount",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.Claim, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.Claim{
			ClaimID:            t.get(row, "claim_id"),
			OrderID:            t.get(row, "order_id"),
			ClaimType:          t.get(row, "claim_type"),
			ClaimStatus:        t.get(row, "claim_status"),
			ClaimDate:          t.getDate(row, "claim_date", warns),
			ResolutionDate:     t.getDate(row, "resolution_date", warns),
			ClaimAmount:        t.getFloat(row, "claim_amount"),
			RefundedAmount:     t.getFloat(row, "refunded_amount"),
			ResolutionTimeDays: t.getFloat(row, "resolution_time_days"),
		})
	}
	return res, nil
}

func readCustomers(path string, warns *[]logistics.DateParseWarning) ([]logistics.Customer, error) {
	t, err := readTable(path, []string{
		"customer_id", "registration_date", "churn_status", "subscription_type",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.Customer, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.Customer{
			CustomerID:       t.get(row, "customer_id"),
			RegistrationDate: t.getDate(row, "registration_date", warns),
			ChurnDate:        t.getDateOpt(row, "churn_date", warns),
			ChurnStatus:      t.get(row, "churn_status"),
			SubscriptionType: t.get(row, "subscription_type"),
		})
	}
	return res, nil
}

func readOrderProducts(path string) ([]logistics.OrderProduct, error) {
	t, err := readTable(path, []string{
		"order_id", "product_id", "quantity", "line_total",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.OrderProduct, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.OrderProduct{
			OrderID:      t.get(row, "order_id"),
			ProductID:    t.get(row, "product_id"),
			Quantity:     t.getFloat(row, "quantity"),
			LineTotal:    t.getFloat(row, "line_total"),
			ReturnFlag:   t.getBool(row, "return_flag"),
			RefundAmount: t.getFloat(row, "refund_amount"),
		})
	}
	return res, nil
}

func readRouteLegs(path string, warns *[]logistics.DateParseWarning) ([]logistics.RouteLeg, error) {
	t, err := readTable(path, []string{
		"order_id", "state_code", "distance_km", "leg_duration_hours",
	})
	if err != nil {
		return nil, err
	}
	res := make([]logistics.RouteLeg, 0, len(t.rows))
	for _, row := range t.rows {
		res = append(res, logistics.RouteLeg{
			OrderID:            t.get(row, "order_id"),
			StateCode:          t.get(row, "state_code"),
			EnteredAt:          t.getDate(row, "entered_at", warns),
			ExitedAt:           t.getDate(row, "exited_at", warns),
			DistanceKm:         t.getFloat(row, "distance_km"),
			LegDurationHours:   t.getFloat(row, "leg_duration_hours"),
			VandalismIncidents: t.getInt(row, "vandalism_incidents"),
			TheftIncidentFlag:  t.getBool(row, "theft_incident_flag"),
		})
	}
	return res, nil
}

// IsMissingSource reports whether err is a missing-table error.
func IsMissingSource(err error) bool {
	var m *logistics.MissingSourceError
	return errors.As(err, &m)
}
