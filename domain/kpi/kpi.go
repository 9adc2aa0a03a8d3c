package kpi

import (
	"math"
	"time"

	lo "github.com/samber/lo"

	"logistix-stats/domain/logistics"
)

// OverviewKPIs are the dashboard's headline metrics over one filtered slice.
// Rates are percentages; every field degrades to zero on an empty slice.
type OverviewKPIs struct {
	CATotal              float64 `json:"ca_total"`
	NbOrders             int     `json:"nb_orders"`
	NbDelivered          int     `json:"nb_delivered"`
	AOV                  float64 `json:"aov"`
	DeliveryRate         float64 `json:"delivery_rate"`
	ClaimRate            float64 `json:"claim_rate"`
	LateDeliveryRate     float64 `json:"late_delivery_rate"`
	NbClaims             int     `json:"nb_claims"`
	MontantClaims        float64 `json:"montant_claims"`
	TotalLosses          float64 `json:"total_losses"`
	NbTheftIncidents     int     `json:"nb_theft_incidents"`
	NbVandalismIncidents int     `json:"nb_vandalism_incidents"`
	AvgDistance          float64 `json:"avg_distance"`
	AvgDuration          float64 `json:"avg_duration"`
	TotalCO2             float64 `json:"total_co2"`
	AvgTransportCost     float64 `json:"avg_transport_cost"`
	NbCustomers          int     `json:"nb_customers"`
	NbPremium            int     `json:"nb_premium"`
}

// Overview reduces a slice of enriched orders to the overview KPI family.
func Overview(orders []logistics.EnrichedOrder) OverviewKPIs {
	k := OverviewKPIs{NbOrders: len(orders)}
	if len(orders) == 0 {
		return k
	}
	n := float64(len(orders))

	for _, o := range orders {
		k.CATotal += o.TotalAmount
		if o.IsDelivered {
			k.NbDelivered++
		}
		if o.HasClaim {
			k.NbClaims++
		}
		k.MontantClaims += o.ClaimAmount
		k.TotalLosses += o.TotalLoss
		if o.HasTheftIncident {
			k.NbTheftIncidents++
		}
		k.NbVandalismIncidents += o.TotalVandalism
		k.AvgDistance += o.TotalDistanceKm
		k.AvgDuration += o.TotalDurationHours
		k.TotalCO2 += o.CO2EmissionEstimate
		k.AvgTransportCost += o.TransportCostEstimate
	}
	k.AOV = k.CATotal / n
	k.AvgDistance /= n
	k.AvgDuration /= n
	k.AvgTransportCost /= n
	k.DeliveryRate = float64(k.NbDelivered) / n * 100
	k.ClaimRate = float64(k.NbClaims) / n * 100
	k.LateDeliveryRate = float64(lo.CountBy(orders, func(o logistics.EnrichedOrder) bool { return o.IsLate })) / n * 100

	k.NbCustomers = len(lo.UniqBy(orders, func(o logistics.EnrichedOrder) string { return o.CustomerID }))
	premium := lo.Filter(orders, func(o logistics.EnrichedOrder, _ int) bool { return o.SubscriptionType == "Premium" })
	k.NbPremium = len(lo.UniqBy(premium, func(o logistics.EnrichedOrder) string { return o.CustomerID }))
	return k
}

// TransportKPIs are the transport page metrics. Theft counts only the
// route-level incident flag, never the product theft-attractiveness score.
type TransportKPIs struct {
	NbCommandes          int     `json:"nb_commandes"`
	NbLivrees            int     `json:"nb_livrees"`
	NbVols               int     `json:"nb_vols"`
	TauxLivraisonReussie float64 `json:"taux_livraison_reussie"`
	TauxVol              float64 `json:"taux_vol"`
}

// Transport reduces a slice of enriched orders to the transport KPI family,
// rates rounded to 2 decimals.
func Transport(orders []logistics.EnrichedOrder) TransportKPIs {
	k := TransportKPIs{NbCommandes: len(orders)}
	if len(orders) == 0 {
		return k
	}
	for _, o := range orders {
		if o.IsDelivered {
			k.NbLivrees++
		}
		if o.HasTheftIncident {
			k.NbVols++
		}
	}
	n := float64(k.NbCommandes)
	k.TauxLivraisonReussie = round2(float64(k.NbLivrees) / n * 100)
	k.TauxVol = round2(float64(k.NbVols) / n * 100)
	return k
}

// ClaimsKPIs are the claims/churn page metrics. The customer scope is the set
// of distinct customers present in the filtered order slice, not the full
// customer table; churn and active counts are relative to that scope.
type ClaimsKPIs struct {
	ClaimRate             float64 `json:"claim_rate"`
	OrdersWithClaims      int     `json:"orders_with_claims"`
	UniqueCustomers       int     `json:"unique_customers"`
	ChurnRate             float64 `json:"churn_rate"`
	ChurnedCustomers      int     `json:"churned_customers"`
	ActiveCustomersPeriod int     `json:"active_customers_period"`
}

// Claims computes the claims KPI family for a filtered slice over the period
// [start, end]. Churned customers are scope customers whose churn_date falls
// inside the period; active customers are the rest of the scope.
func Claims(orders []logistics.EnrichedOrder, customers []logistics.Customer, start, end time.Time) ClaimsKPIs {
	var k ClaimsKPIs
	k.OrdersWithClaims = lo.CountBy(orders, func(o logistics.EnrichedOrder) bool { return o.HasClaim })
	if len(orders) > 0 {
		k.ClaimRate = round2(float64(k.OrdersWithClaims) / float64(len(orders)) * 100)
	}

	scope := map[string]struct{}{}
	for _, o := range orders {
		if o.CustomerID != "" {
			scope[o.CustomerID] = struct{}{}
		}
	}
	k.UniqueCustomers = len(scope)
	if k.UniqueCustomers == 0 {
		return k
	}

	startDay := dateOnly(start)
	endDay := dateOnly(end)
	for _, c := range customers {
		if _, ok := scope[c.CustomerID]; !ok || c.ChurnDate == nil {
			continue
		}
		d := dateOnly(*c.ChurnDate)
		if !d.Before(startDay) && !d.After(endDay) {
			k.ChurnedCustomers++
		}
	}
	k.ChurnRate = round2(float64(k.ChurnedCustomers) / float64(k.UniqueCustomers) * 100)
	k.ActiveCustomersPeriod = k.UniqueCustomers - k.ChurnedCustomers
	if k.ActiveCustomersPeriod < 0 {
		k.ActiveCustomersPeriod = 0
	}
	return k
}

// GrowthRate returns (current-previous)/previous × 100, and 0 when previous
// is 0: a missing baseline is reported as flat, never as infinity.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// Delta is one period-over-period comparison. Improvement encodes the sign
// convention: for "bad" rates a decrease is the improvement.
type Delta struct {
	Value       float64 `json:"value"`
	Improvement bool    `json:"improvement"`
}

// RelativeDelta compares volume-type KPIs via growth rate.
func RelativeDelta(current, previous float64, goodUp bool) Delta {
	return newDelta(GrowthRate(current, previous), goodUp)
}

// AbsoluteDelta compares rate-type KPIs via the arithmetic difference of the
// two percentages.
func AbsoluteDelta(current, previous float64, goodUp bool) Delta {
	return newDelta(current-previous, goodUp)
}

func newDelta(value float64, goodUp bool) Delta {
	improved := value >= 0
	if !goodUp {
		improved = value <= 0
	}
	return Delta{Value: value, Improvement: improved}
}

// OverviewDeltas are the overview page comparisons: growth rates for revenue
// and volume, percentage-point differences for the two rates.
type OverviewDeltas struct {
	CATotal      Delta `json:"ca_total"`
	NbOrders     Delta `json:"nb_orders"`
	ClaimRate    Delta `json:"claim_rate"`
	DeliveryRate Delta `json:"delivery_rate"`
}

// CompareOverview derives the overview deltas. A nil previous (empty previous
// window) yields zero deltas.
func CompareOverview(current OverviewKPIs, previous *OverviewKPIs) OverviewDeltas {
	if previous == nil {
		return OverviewDeltas{
			CATotal:      newDelta(0, true),
			NbOrders:     newDelta(0, true),
			ClaimRate:    newDelta(0, false),
			DeliveryRate: newDelta(0, true),
		}
	}
	return OverviewDeltas{
		CATotal:      RelativeDelta(current.CATotal, previous.CATotal, true),
		NbOrders:     RelativeDelta(float64(current.NbOrders), float64(previous.NbOrders), true),
		ClaimRate:    AbsoluteDelta(current.ClaimRate, previous.ClaimRate, false),
		DeliveryRate: AbsoluteDelta(current.DeliveryRate, previous.DeliveryRate, true),
	}
}

// ClaimsDeltas are the claims page comparisons: percentage-point differences
// for the two bad rates, growth for the active-customer count.
type ClaimsDeltas struct {
	ClaimRate       Delta `json:"claim_rate"`
	ChurnRate       Delta `json:"churn_rate"`
	ActiveCustomers Delta `json:"active_customers"`
}

// CompareClaims derives the claims deltas; nil previous yields zero deltas.
func CompareClaims(current ClaimsKPIs, previous *ClaimsKPIs) ClaimsDeltas {
	if previous == nil {
		return ClaimsDeltas{
			ClaimRate:       newDelta(0, false),
			ChurnRate:       newDelta(0, false),
			ActiveCustomers: newDelta(0, true),
		}
	}
	return ClaimsDeltas{
		ClaimRate:       AbsoluteDelta(current.ClaimRate, previous.ClaimRate, false),
		ChurnRate:       AbsoluteDelta(current.ChurnRate, previous.ChurnRate, false),
		ActiveCustomers: RelativeDelta(float64(current.ActiveCustomersPeriod), float64(previous.ActiveCustomersPeriod), true),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
