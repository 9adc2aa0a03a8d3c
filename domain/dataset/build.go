package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	lo "github.com/samber/lo"

	"logistix-stats/domain/logistics"
)

// Snapshot is one immutable build of the enriched table. Version is the
// raw-data content hash; callers decide whether to rebuild by comparing
// versions, never by mutating a snapshot.
type Snapshot struct {
	Orders  []logistics.EnrichedOrder
	Version string
	BuiltAt time.Time
}

// Build produces the order-centric enriched table: one row per order, left
// joins keyed on transport_id / customer_id / order_id, one-to-many children
// pre-aggregated per order. Pure and deterministic: the same raw tables yield
// the same rows in the same order.
func Build(raw *logistics.RawTables) (*Snapshot, error) {
	if dup := firstDuplicateOrderID(raw.Orders); dup != "" {
		return nil, fmt.Errorf("orders: duplicate order_id %s", dup)
	}

	transportByID := lo.KeyBy(raw.TransportMode, func(t logistics.TransportMode) string { return t.TransportID })
	customerByID := lo.KeyBy(raw.Customers, func(c logistics.Customer) string { return c.CustomerID })
	claimByOrder := selectClaims(raw.Claims)
	productAgg := aggregateProducts(raw.OrderProducts, raw.Products)
	routeAgg := aggregateRoutes(raw.RouteLegs)

	rows := make([]logistics.EnrichedOrder, 0, len(raw.Orders))
	for _, o := range raw.Orders {
		row := logistics.EnrichedOrder{
			OrderID:               o.OrderID,
			CustomerID:            o.CustomerID,
			TransportID:           o.TransportID,
			OrderDate:             o.OrderDate,
			EstimatedDeliveryDate: o.EstimatedDeliveryDate,
			ActualDeliveryDate:    o.ActualDeliveryDate,
			TotalAmount:           o.TotalAmount,
			DeliveryStatus:        o.DeliveryStatus,
			PaymentStatus:         o.PaymentStatus,
			SeasonalPeriod:        o.SeasonalPeriod,
			ClaimFlag:             o.ClaimFlag,
		}

		if t, ok := transportByID[o.TransportID]; ok {
			row.TransportType = t.TransportType
			row.CostPerKm = t.CostPerKm
			row.CO2EmissionPerKm = t.CO2EmissionPerKm
		}
		if c, ok := customerByID[o.CustomerID]; ok {
			row.RegistrationDate = c.RegistrationDate
			row.ChurnDate = c.ChurnDate
			row.ChurnStatus = c.ChurnStatus
			row.SubscriptionType = c.SubscriptionType
		}
		if cl, ok := claimByOrder[o.OrderID]; ok {
			row.ClaimType = cl.ClaimType
			row.ClaimStatus = cl.ClaimStatus
			row.ClaimAmount = cl.ClaimAmount
			row.RefundedAmount = cl.RefundedAmount
			row.ResolutionTimeDays = cl.ResolutionTimeDays
		}
		if pa, ok := productAgg[o.OrderID]; ok {
			row.ProductLineTotal = pa.lineTotal
			row.TotalQuantity = pa.quantity
			row.HasReturn = pa.hasReturn
			row.ProductRefundAmount = pa.refundAmount
			row.MainFragilityClass = pa.mainFragility
			row.AvgTheftAttractiveness = pa.avgTheft
			row.AvgChristmasMultiplier = pa.avgChristmas
		} else {
			row.MainFragilityClass = "Unknown"
		}
		if ra, ok := routeAgg[o.OrderID]; ok {
			row.TotalVandalism = ra.vandalism
			row.HasTheftIncident = ra.theft
			row.TotalDistanceKm = ra.distanceKm
			row.TotalDurationHours = ra.durationHours
			row.NbStatesCrossed = ra.nbStates
			row.StateCodes = ra.states
		}

		deriveColumns(&row)
		rows = append(rows, row)
	}

	return &Snapshot{Orders: rows, Version: raw.Version, BuiltAt: time.Now().UTC()}, nil
}

func firstDuplicateOrderID(orders []logistics.Order) string {
	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.OrderID]; ok {
			return o.OrderID
		}
		seen[o.OrderID] = struct{}{}
	}
	return ""
}

// selectClaims keeps one claim per order so the join stays one-to-one:
// earliest claim_date wins, ties broken by smallest claim_id.
func selectClaims(claims []logistics.Claim) map[string]logistics.Claim {
	res := make(map[string]logistics.Claim, len(claims))
	for _, c := range claims {
		cur, ok := res[c.OrderID]
		if !ok {
			res[c.OrderID] = c
			continue
		}
		if c.ClaimDate.Before(cur.ClaimDate) ||
			(c.ClaimDate.Equal(cur.ClaimDate) && c.ClaimID < cur.ClaimID) {
			res[c.OrderID] = c
		}
	}
	return res
}

type productAggregate struct {
	lineTotal     float64
	quantity      float64
	hasReturn     bool
	refundAmount  float64
	mainFragility string
	avgTheft      float64
	avgChristmas  float64
}

// aggregateProducts reduces order lines joined with product attributes to one
// aggregate per order: sums for amounts and quantities, logical-or for the
// return flag, means for the product scores and the mode of the fragility
// class (highest count, ties broken lexicographically).
func aggregateProducts(lines []logistics.OrderProduct, products []logistics.Product) map[string]productAggregate {
	productByID := lo.KeyBy(products, func(p logistics.Product) string { return p.ProductID })
	byOrder := lo.GroupBy(lines, func(l logistics.OrderProduct) string { return l.OrderID })

	res := make(map[string]productAggregate, len(byOrder))
	for orderID, ls := range byOrder {
		var agg productAggregate
		fragCounts := map[string]int{}
		var theftSum, christmasSum float64
		var scored int
		for _, l := range ls {
			agg.lineTotal += l.LineTotal
			agg.quantity += l.Quantity
			agg.refundAmount += l.RefundAmount
			agg.hasReturn = agg.hasReturn || l.ReturnFlag
			if p, ok := productByID[l.ProductID]; ok {
				fragCounts[p.FragilityClass]++
				theftSum += p.TheftAttractivenessScore
				christmasSum += p.ChristmasPopularityMultiplier
				scored++
			}
		}
		agg.mainFragility = modeOf(fragCounts)
		if scored > 0 {
			agg.avgTheft = theftSum / float64(scored)
			agg.avgChristmas = christmasSum / float64(scored)
		}
		res[orderID] = agg
	}
	return res
}

// modeOf returns the most frequent class; ties go to the lexicographically
// smallest so the result never depends on map iteration order.
func modeOf(counts map[string]int) string {
	if len(counts) == 0 {
		return "Unknown"
	}
	classes := lo.Keys(counts)
	sort.Strings(classes)
	best := classes[0]
	for _, c := range classes[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

type routeAggregate struct {
	vandalism     int
	theft         bool
	distanceKm    float64
	durationHours float64
	nbStates      int
	states        []string
}

// aggregateRoutes reduces route legs to one aggregate per order. nbStates
// counts legs (states crossed, repeats included, matching a per-leg count);
// states holds the distinct crossed codes, sorted.
func aggregateRoutes(legs []logistics.RouteLeg) map[string]routeAggregate {
	byOrder := lo.GroupBy(legs, func(l logistics.RouteLeg) string { return l.OrderID })
	res := make(map[string]routeAggregate, len(byOrder))
	for orderID, ls := range byOrder {
		var agg routeAggregate
		for _, l := range ls {
			agg.vandalism += l.VandalismIncidents
			agg.theft = agg.theft || l.TheftIncidentFlag
			agg.distanceKm += l.DistanceKm
			agg.durationHours += l.LegDurationHours
		}
		agg.nbStates = len(ls)
		agg.states = lo.Uniq(lo.Map(ls, func(l logistics.RouteLeg, _ int) string { return l.StateCode }))
		sort.Strings(agg.states)
		res[orderID] = agg
	}
	return res
}

func deriveColumns(row *logistics.EnrichedOrder) {
	row.IsChristmas = row.SeasonalPeriod == "Christmas"
	row.IsDelivered = strings.EqualFold(row.DeliveryStatus, "delivered")
	row.HasClaim = row.ClaimFlag
	row.IsPaid = row.PaymentStatus == "Paid"

	if !row.OrderDate.IsZero() {
		row.OrderYear = row.OrderDate.Year()
		row.OrderMonth = int(row.OrderDate.Month())
		_, row.OrderWeek = row.OrderDate.ISOWeek()
		row.OrderDay = row.OrderDate.Day()
		row.OrderWeekday = mondayWeekday(row.OrderDate)
		row.OrderQuarter = (int(row.OrderDate.Month())-1)/3 + 1
	}

	// Delay stays 0 when either delivery date failed to parse: the documented
	// soft-failure mode of unparseable date columns.
	if !row.ActualDeliveryDate.IsZero() && !row.EstimatedDeliveryDate.IsZero() {
		row.DeliveryDelayDays = daysBetween(row.EstimatedDeliveryDate, row.ActualDeliveryDate)
	}
	row.IsLate = row.DeliveryDelayDays > 0

	row.OrderValueCategory = orderValueCategory(row.TotalAmount)
	row.TheftRiskCategory = theftRiskCategory(row.AvgTheftAttractiveness)

	duration := row.TotalDurationHours
	if duration == 0 {
		duration = 1 // division-by-zero guard, an explicit approximation
	}
	row.AvgSpeedKmh = row.TotalDistanceKm / duration
	row.TransportCostEstimate = row.TotalDistanceKm * row.CostPerKm
	row.CO2EmissionEstimate = row.TotalDistanceKm * row.CO2EmissionPerKm
	row.TotalLoss = row.ClaimAmount
	row.HasAnyIncident = row.HasTheftIncident || row.TotalVandalism > 0
}

// mondayWeekday maps time.Weekday to Monday=0..Sunday=6.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(f).Hours() / 24)
}

// orderValueCategory partitions total_amount into five fixed buckets,
// lower-bound inclusive; every amount falls in exactly one.
func orderValueCategory(amount float64) string {
	switch {
	case amount < 50:
		return "<50€"
	case amount < 100:
		return "50-100€"
	case amount < 200:
		return "100-200€"
	case amount < 500:
		return "200-500€"
	default:
		return ">500€"
	}
}

// theftRiskCategory partitions the average theft-attractiveness score into
// four buckets; the first bucket includes its lower bound so a zero score
// (no products) is still categorized.
func theftRiskCategory(score float64) string {
	switch {
	case score <= 3:
		return "Faible"
	case score <= 6:
		return "Moyen"
	case score <= 8:
		return "Élevé"
	default:
		return "Très Élevé"
	}
}
