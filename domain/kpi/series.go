package kpi

import (
	"sort"
	"time"

	lo "github.com/samber/lo"

	"logistix-stats/domain/logistics"
)

// Frequency selects the time bucket of a rolled-up series.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// ParseFrequency maps a query value to a Frequency, defaulting to Daily.
func ParseFrequency(s string) Frequency {
	switch Frequency(s) {
	case Weekly, Monthly, Yearly:
		return Frequency(s)
	default:
		return Daily
	}
}

// SeriesPoint is one bucket of the overview time series. Rates are
// percentages; for rolled-up buckets they are means of the daily rates.
type SeriesPoint struct {
	Date         time.Time `json:"date"`
	CA           float64   `json:"ca"`
	NbOrders     int       `json:"nb_orders"`
	DeliveryRate float64   `json:"delivery_rate"`
	ClaimRate    float64   `json:"claim_rate"`
	ClaimAmount  float64   `json:"claim_amount"`
}

// DailySeries aggregates a filtered slice per order date, sorted
// chronologically.
func DailySeries(orders []logistics.EnrichedOrder) []SeriesPoint {
	byDay := lo.GroupBy(orders, func(o logistics.EnrichedOrder) time.Time { return dateOnly(o.OrderDate) })
	points := make([]SeriesPoint, 0, len(byDay))
	for day, os := range byDay {
		p := SeriesPoint{Date: day, NbOrders: len(os)}
		for _, o := range os {
			p.CA += o.TotalAmount
			p.ClaimAmount += o.ClaimAmount
		}
		n := float64(len(os))
		p.DeliveryRate = float64(lo.CountBy(os, func(o logistics.EnrichedOrder) bool { return o.IsDelivered })) / n * 100
		p.ClaimRate = float64(lo.CountBy(os, func(o logistics.EnrichedOrder) bool { return o.HasClaim })) / n * 100
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// RollupSeries re-buckets a daily series: CA, order counts and claim amounts
// are summed, the two rates are averaged over the bucket's days. Weekly
// buckets start Monday, monthly on the 1st, yearly on Jan 1.
func RollupSeries(points []SeriesPoint, freq Frequency) []SeriesPoint {
	if freq == Daily {
		return points
	}
	byBucket := lo.GroupBy(points, func(p SeriesPoint) time.Time { return bucketStart(p.Date, freq) })
	res := make([]SeriesPoint, 0, len(byBucket))
	for bucket, ps := range byBucket {
		agg := SeriesPoint{Date: bucket}
		for _, p := range ps {
			agg.CA += p.CA
			agg.NbOrders += p.NbOrders
			agg.ClaimAmount += p.ClaimAmount
			agg.DeliveryRate += p.DeliveryRate
			agg.ClaimRate += p.ClaimRate
		}
		n := float64(len(ps))
		agg.DeliveryRate /= n
		agg.ClaimRate /= n
		res = append(res, agg)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res
}

func bucketStart(day time.Time, freq Frequency) time.Time {
	switch freq {
	case Weekly:
		return day.AddDate(0, 0, -mondayOffset(day))
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// TransportBreakdown is the per-transport-mode theft/delivery aggregate
// feeding the transport page charts and table.
type TransportBreakdown struct {
	TransportType   string  `json:"transport_type"`
	Orders          int     `json:"orders"`
	Thefts          int     `json:"thefts"`
	TheftRate       float64 `json:"theft_rate"`
	DeliveryRate    float64 `json:"delivery_rate"`
	NonDeliveryRate float64 `json:"non_delivery_rate"`
}

// ByTransport aggregates the slice per transport type, sorted by theft rate
// descending (type name breaks ties so the order is stable).
func ByTransport(orders []logistics.EnrichedOrder) []TransportBreakdown {
	byType := lo.GroupBy(orders, func(o logistics.EnrichedOrder) string { return o.TransportType })
	res := make([]TransportBreakdown, 0, len(byType))
	for transportType, os := range byType {
		b := TransportBreakdown{TransportType: transportType, Orders: len(os)}
		b.Thefts = lo.CountBy(os, func(o logistics.EnrichedOrder) bool { return o.HasTheftIncident })
		delivered := lo.CountBy(os, func(o logistics.EnrichedOrder) bool { return o.IsDelivered })
		n := float64(len(os))
		b.TheftRate = round2(float64(b.Thefts) / n * 100)
		b.DeliveryRate = round2(float64(delivered) / n * 100)
		b.NonDeliveryRate = round2(float64(len(os)-delivered) / n * 100)
		res = append(res, b)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].TheftRate != res[j].TheftRate {
			return res[i].TheftRate > res[j].TheftRate
		}
		return res[i].TransportType < res[j].TransportType
	})
	return res
}

// StateBreakdown is the per-state theft aggregate. An order contributes to
// every state its route crossed.
type StateBreakdown struct {
	StateCode       string  `json:"state_code"`
	Orders          int     `json:"orders"`
	Thefts          int     `json:"thefts"`
	TheftRate       float64 `json:"theft_rate"`
	DeliveryRate    float64 `json:"delivery_rate"`
	NonDeliveryRate float64 `json:"non_delivery_rate"`
}

// ByState aggregates the slice per crossed state code, sorted by theft rate
// descending with the code breaking ties.
func ByState(orders []logistics.EnrichedOrder) []StateBreakdown {
	type stateAcc struct {
		orders    int
		thefts    int
		delivered int
	}
	acc := map[string]*stateAcc{}
	for _, o := range orders {
		for _, code := range o.StateCodes {
			a, ok := acc[code]
			if !ok {
				a = &stateAcc{}
				acc[code] = a
			}
			a.orders++
			if o.HasTheftIncident {
				a.thefts++
			}
			if o.IsDelivered {
				a.delivered++
			}
		}
	}
	res := make([]StateBreakdown, 0, len(acc))
	for code, a := range acc {
		n := float64(a.orders)
		res = append(res, StateBreakdown{
			StateCode:       code,
			Orders:          a.orders,
			Thefts:          a.thefts,
			TheftRate:       round2(float64(a.thefts) / n * 100),
			DeliveryRate:    round2(float64(a.delivered) / n * 100),
			NonDeliveryRate: round2(float64(a.orders-a.delivered) / n * 100),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].TheftRate != res[j].TheftRate {
			return res[i].TheftRate > res[j].TheftRate
		}
		return res[i].StateCode < res[j].StateCode
	})
	return res
}

// MonthlyTheft is the orders-vs-theft evolution per order month.
type MonthlyTheft struct {
	Month     time.Time `json:"month"`
	Orders    int       `json:"orders"`
	Thefts    int       `json:"thefts"`
	TheftRate float64   `json:"theft_rate"`
}

// MonthlyThefts aggregates the slice per order month, chronological.
func MonthlyThefts(orders []logistics.EnrichedOrder) []MonthlyTheft {
	byMonth := lo.GroupBy(orders, func(o logistics.EnrichedOrder) time.Time {
		return time.Date(o.OrderDate.Year(), o.OrderDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	})
	res := make([]MonthlyTheft, 0, len(byMonth))
	for month, os := range byMonth {
		m := MonthlyTheft{Month: month, Orders: len(os)}
		m.Thefts = lo.CountBy(os, func(o logistics.EnrichedOrder) bool { return o.HasTheftIncident })
		m.TheftRate = round2(float64(m.Thefts) / float64(len(os)) * 100)
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Month.Before(res[j].Month) })
	return res
}

// ClaimTypeCount is one slice of the claims-by-type breakdown.
type ClaimTypeCount struct {
	ClaimType string `json:"claim_type"`
	Count     int    `json:"count"`
}

// ClaimTotals are the complementary claim metrics of the claims page.
type ClaimTotals struct {
	TotalClaims       int     `json:"total_claims"`
	AvgResolutionTime float64 `json:"avg_resolution_time"`
	TotalClaimAmount  float64 `json:"total_claim_amount"`
	TotalRefunded     float64 `json:"total_refunded"`
}

// ClaimsByType restricts the claim table to the filtered orders and the
// period (claim_date within [start, end]) and groups by claim type, most
// frequent first; an empty type is reported as "Unknown".
func ClaimsByType(claims []logistics.Claim, orders []logistics.EnrichedOrder, start, end time.Time) ([]ClaimTypeCount, ClaimTotals) {
	orderIDs := lo.SliceToMap(orders, func(o logistics.EnrichedOrder) (string, struct{}) { return o.OrderID, struct{}{} })
	startDay := dateOnly(start)
	endDay := dateOnly(end)

	inScope := lo.Filter(claims, func(c logistics.Claim, _ int) bool {
		if _, ok := orderIDs[c.OrderID]; !ok {
			return false
		}
		if c.ClaimDate.IsZero() {
			return false
		}
		d := dateOnly(c.ClaimDate)
		return !d.Before(startDay) && !d.After(endDay)
	})

	var totals ClaimTotals
	totals.TotalClaims = len(inScope)
	counts := map[string]int{}
	for _, c := range inScope {
		claimType := c.ClaimType
		if claimType == "" {
			claimType = "Unknown"
		}
		counts[claimType]++
		totals.AvgResolutionTime += c.ResolutionTimeDays
		totals.TotalClaimAmount += c.ClaimAmount
		totals.TotalRefunded += c.RefundedAmount
	}
	if totals.TotalClaims > 0 {
		totals.AvgResolutionTime /= float64(totals.TotalClaims)
	}

	res := make([]ClaimTypeCount, 0, len(counts))
	for claimType, count := range counts {
		res = append(res, ClaimTypeCount{ClaimType: claimType, Count: count})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Count != res[j].Count {
			return res[i].Count > res[j].Count
		}
		return res[i].ClaimType < res[j].ClaimType
	})
	return res, totals
}
