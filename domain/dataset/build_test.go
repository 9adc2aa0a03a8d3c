package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistix-stats/domain/logistics"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixtureRaw covers the join cardinalities that matter: O1 has many children
// of every kind, O2 exactly one claim and nothing else, O3 no children at all.
func fixtureRaw() *logistics.RawTables {
	churn := day(2024, 2, 1)
	return &logistics.RawTables{
		Version: "abc123def456",
		Orders: []logistics.Order{
			{
				OrderID: "O1", CustomerID: "C1", TransportID: "T1",
				OrderDate:             day(2024, 1, 1),
				EstimatedDeliveryDate: day(2024, 1, 5),
				ActualDeliveryDate:    day(2024, 1, 7),
				TotalAmount:           120.50,
				DeliveryStatus:        "DELIVERED",
				PaymentStatus:         "Paid",
				SeasonalPeriod:        "Christmas",
				ClaimFlag:             true,
			},
			{
				OrderID: "O2", CustomerID: "C2", TransportID: "T2",
				OrderDate:             day(2024, 1, 2),
				EstimatedDeliveryDate: day(2024, 1, 6),
				ActualDeliveryDate:    day(2024, 1, 6),
				TotalAmount:           80,
				DeliveryStatus:        "In Transit",
				PaymentStatus:         "Pending",
				SeasonalPeriod:        "Standard",
				ClaimFlag:             false,
			},
			{
				OrderID: "O3", CustomerID: "C1", TransportID: "T9",
				OrderDate:      day(2024, 1, 3),
				TotalAmount:    600,
				DeliveryStatus: "delivered",
				PaymentStatus:  "Paid",
			},
		},
		TransportMode: []logistics.TransportMode{
			{TransportID: "T1", TransportType: "Truck", CostPerKm: 1.5, CO2EmissionPerKm: 0.3},
			{TransportID: "T2", TransportType: "Train", CostPerKm: 0.8, CO2EmissionPerKm: 0.1},
		},
		Customers: []logistics.Customer{
			{CustomerID: "C1", RegistrationDate: day(2023, 5, 1), ChurnStatus: "Active", SubscriptionType: "Premium"},
			{CustomerID: "C2", RegistrationDate: day(2023, 6, 10), ChurnDate: &churn, ChurnStatus: "Churned", SubscriptionType: "Standard"},
		},
		Claims: []logistics.Claim{
			{ClaimID: "CL2", OrderID: "O1", ClaimType: "Lost", ClaimStatus: "Open", ClaimDate: day(2024, 1, 9), ClaimAmount: 99},
			{ClaimID: "CL1", OrderID: "O1", ClaimType: "Damaged", ClaimStatus: "Resolved", ClaimDate: day(2024, 1, 8), ClaimAmount: 30, RefundedAmount: 25, ResolutionTimeDays: 2},
			{ClaimID: "CL3", OrderID: "O2", ClaimType: "Late", ClaimStatus: "Open", ClaimDate: day(2024, 1, 10), ClaimAmount: 10},
		},
		Products: []logistics.Product{
			{ProductID: "P1", FragilityClass: "High", TheftAttractivenessScore: 7.5, ChristmasPopularityMultiplier: 1.2},
			{ProductID: "P2", FragilityClass: "Low", TheftAttractivenessScore: 2.0, ChristmasPopularityMultiplier: 1.0},
		},
		OrderProducts: []logistics.OrderProduct{
			{OrderID: "O1", ProductID: "P1", Quantity: 2, LineTotal: 100, RefundAmount: 0},
			{OrderID: "O1", ProductID: "P2", Quantity: 1, LineTotal: 20.5, ReturnFlag: true, RefundAmount: 5},
		},
		RouteLegs: []logistics.RouteLeg{
			{OrderID: "O1", StateCode: "CA", DistanceKm: 300, LegDurationHours: 10, VandalismIncidents: 1, TheftIncidentFlag: true},
			{OrderID: "O1", StateCode: "NV", DistanceKm: 200, LegDurationHours: 5},
		},
	}
}

func buildFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Build(fixtureRaw())
	require.NoError(t, err)
	return snap
}

func rowByID(t *testing.T, snap *Snapshot, id string) logistics.EnrichedOrder {
	t.Helper()
	for _, o := range snap.Orders {
		if o.OrderID == id {
			return o
		}
	}
	t.Fatalf("order %s not found", id)
	return logistics.EnrichedOrder{}
}

func TestBuildCardinality(t *testing.T) {
	raw := fixtureRaw()
	snap, err := Build(raw)
	require.NoError(t, err)
	// One row per order regardless of 0, 1 or many children.
	assert.Len(t, snap.Orders, len(raw.Orders))
	assert.Equal(t, raw.Version, snap.Version)
}

func TestBuildDuplicateOrderID(t *testing.T) {
	raw := fixtureRaw()
	raw.Orders = append(raw.Orders, raw.Orders[0])
	_, err := Build(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate order_id O1")
}

func TestBuildJoins(t *testing.T) {
	snap := buildFixture(t)
	o1 := rowByID(t, snap, "O1")

	assert.Equal(t, "Truck", o1.TransportType)
	assert.Equal(t, "Premium", o1.SubscriptionType)

	// Earliest claim wins the one-to-one projection.
	assert.Equal(t, "Damaged", o1.ClaimType)
	assert.Equal(t, 30.0, o1.ClaimAmount)

	assert.Equal(t, 120.5, o1.ProductLineTotal)
	assert.Equal(t, 3.0, o1.TotalQuantity)
	assert.True(t, o1.HasReturn)
	assert.Equal(t, 5.0, o1.ProductRefundAmount)
	assert.InDelta(t, 4.75, o1.AvgTheftAttractiveness, 1e-9)
	assert.InDelta(t, 1.1, o1.AvgChristmasMultiplier, 1e-9)

	assert.Equal(t, 500.0, o1.TotalDistanceKm)
	assert.Equal(t, 15.0, o1.TotalDurationHours)
	assert.Equal(t, 1, o1.TotalVandalism)
	assert.True(t, o1.HasTheftIncident)
	assert.Equal(t, 2, o1.NbStatesCrossed)
	assert.Equal(t, []string{"CA", "NV"}, o1.StateCodes)
}

func TestBuildFillInvariant(t *testing.T) {
	snap := buildFixture(t)
	o3 := rowByID(t, snap, "O3")

	// No transport, no claim, no products, no legs: zero values and false
	// flags, never "unset".
	assert.Equal(t, "", o3.TransportType)
	assert.Equal(t, 0.0, o3.ClaimAmount)
	assert.Equal(t, 0.0, o3.TotalDistanceKm)
	assert.Equal(t, 0, o3.TotalVandalism)
	assert.False(t, o3.HasTheftIncident)
	assert.Equal(t, 0, o3.NbStatesCrossed)
	assert.Equal(t, "Unknown", o3.MainFragilityClass)
	assert.False(t, o3.HasAnyIncident)
}

func TestBuildDerivedColumns(t *testing.T) {
	snap := buildFixture(t)
	o1 := rowByID(t, snap, "O1")
	o2 := rowByID(t, snap, "O2")
	o3 := rowByID(t, snap, "O3")

	// Booleans; delivery status matches case-insensitively.
	assert.True(t, o1.IsDelivered)
	assert.True(t, o3.IsDelivered)
	assert.False(t, o2.IsDelivered)
	assert.True(t, o1.IsChristmas)
	assert.True(t, o1.HasClaim)
	assert.False(t, o2.HasClaim) // claim row exists but claim_flag is false
	assert.True(t, o1.IsPaid)

	// Date parts (2024-01-01 is a Monday).
	assert.Equal(t, 2024, o1.OrderYear)
	assert.Equal(t, 1, o1.OrderMonth)
	assert.Equal(t, 1, o1.OrderWeek)
	assert.Equal(t, 0, o1.OrderWeekday)
	assert.Equal(t, 1, o1.OrderQuarter)

	// Delay and lateness.
	assert.Equal(t, 2, o1.DeliveryDelayDays)
	assert.True(t, o1.IsLate)
	assert.Equal(t, 0, o2.DeliveryDelayDays)
	assert.False(t, o2.IsLate)

	// Ratios; O1 has a real duration, O3 exercises the zero-duration guard.
	assert.InDelta(t, 500.0/15.0, o1.AvgSpeedKmh, 1e-9)
	assert.Equal(t, 0.0, o3.AvgSpeedKmh)
	assert.InDelta(t, 750.0, o1.TransportCostEstimate, 1e-9)
	assert.InDelta(t, 150.0, o1.CO2EmissionEstimate, 1e-9)
	assert.Equal(t, 30.0, o1.TotalLoss)
	assert.True(t, o1.HasAnyIncident)
}

func TestOrderValueCategoryPartition(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "<50€"},
		{49.99, "<50€"},
		{50, "50-100€"},
		{99.99, "50-100€"},
		{100, "100-200€"},
		{200, "200-500€"},
		{499.99, "200-500€"},
		{500, ">500€"},
		{10000, ">500€"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, orderValueCategory(tc.amount), "amount %v", tc.amount)
	}
}

func TestTheftRiskCategoryPartition(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0, "Faible"},
		{3, "Faible"},
		{3.01, "Moyen"},
		{6, "Moyen"},
		{7, "Élevé"},
		{8, "Élevé"},
		{8.5, "Très Élevé"},
		{10, "Très Élevé"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, theftRiskCategory(tc.score), "score %v", tc.score)
	}
}

func TestModeOfTieBreak(t *testing.T) {
	assert.Equal(t, "High", modeOf(map[string]int{"High": 2, "Low": 1}))
	// Ties resolve lexicographically, not by iteration order.
	assert.Equal(t, "High", modeOf(map[string]int{"Low": 1, "High": 1}))
	assert.Equal(t, "Unknown", modeOf(nil))
}

func TestBuildIdempotent(t *testing.T) {
	snap1, err := Build(fixtureRaw())
	require.NoError(t, err)
	snap2, err := Build(fixtureRaw())
	require.NoError(t, err)
	assert.Equal(t, snap1.Orders, snap2.Orders)
	assert.Equal(t, snap1.Version, snap2.Version)
}

func TestWriteCSV(t *testing.T) {
	snap := buildFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap.Orders))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+len(snap.Orders))
	assert.True(t, strings.HasPrefix(lines[0], "order_id,customer_id,transport_id,order_date"))
	assert.True(t, strings.HasSuffix(lines[0], "total_loss,has_any_incident,theft_risk_category"))

	// Same snapshot, same bytes.
	var buf2 bytes.Buffer
	require.NoError(t, WriteCSV(&buf2, snap.Orders))
	assert.Equal(t, buf.String(), buf2.String())
}
