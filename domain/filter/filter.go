package filter

import (
	"time"

	lo "github.com/samber/lo"

	"logistix-stats/domain/logistics"
)

// Filters is the per-session selection, passed by value into every filtering
// and KPI call. An empty transport or state set means no restriction: an
// empty multi-select must never filter out all rows.
type Filters struct {
	Start      time.Time `json:"start_date"`
	End        time.Time `json:"end_date"`
	Transports []string  `json:"transport_filter"`
	States     []string  `json:"state_filter"`
}

// Apply returns the rows passing all filters conjunctively: order_date within
// [Start, End] inclusive at date precision, transport_type in the transport
// set, and at least one crossed state in the state set.
func Apply(orders []logistics.EnrichedOrder, f Filters) []logistics.EnrichedOrder {
	transports := toSet(f.Transports)
	states := toSet(f.States)
	start := dateOnly(f.Start)
	end := dateOnly(f.End)

	return lo.Filter(orders, func(o logistics.EnrichedOrder, _ int) bool {
		d := dateOnly(o.OrderDate)
		if d.Before(start) || d.After(end) {
			return false
		}
		if len(transports) > 0 {
			if _, ok := transports[o.TransportType]; !ok {
				return false
			}
		}
		if len(states) > 0 && !crossesAny(o.StateCodes, states) {
			return false
		}
		return true
	})
}

// PreviousPeriod returns the window of identical length immediately preceding
// [start, end]: prevEnd = start - 1 day, prevStart = prevEnd - (end - start).
// A single-day window yields a single-day previous period.
func PreviousPeriod(start, end time.Time) (time.Time, time.Time) {
	start = dateOnly(start)
	end = dateOnly(end)
	durationDays := daysBetween(start, end)
	prevEnd := end.AddDate(0, 0, -durationDays-1)
	prevStart := prevEnd.AddDate(0, 0, -durationDays)
	return prevStart, prevEnd
}

func toSet(values []string) map[string]struct{} {
	return lo.SliceToMap(values, func(v string) (string, struct{}) { return v, struct{}{} })
}

func crossesAny(states []string, set map[string]struct{}) bool {
	for _, s := range states {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
