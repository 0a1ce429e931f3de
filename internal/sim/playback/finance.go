package playback

import (
	"github.com/shopspring/decimal"

	"pigflow.ai/internal/protocol"
)

// Ledger keeps the running money totals in decimal so that summing many
// per-day figures does not drift.
type Ledger struct {
	revenue   decimal.Decimal
	cost      decimal.Decimal
	penalties decimal.Decimal
	pigs      int

	days []DaySummary
}

// Apply adds one entry's figures; day is the index the entry moved playback to.
func (l *Ledger) Apply(day int, entry protocol.DailyLog) DaySummary {
	var rev, cost, pen decimal.Decimal
	for _, op := range entry.TruckOps {
		rev = rev.Add(decimal.NewFromFloat(op.Revenue))
		cost = cost.Add(decimal.NewFromFloat(op.TripCost))
		pen = pen.Add(decimal.NewFromFloat(op.Penalty))
	}
	l.revenue = l.revenue.Add(rev)
	l.cost = l.cost.Add(cost)
	l.penalties = l.penalties.Add(pen)
	// total_processed is authoritative over the per-operation counts.
	l.pigs += entry.TotalProcessed

	sum := DaySummary{
		Day:            day,
		Trucks:         len(entry.TruckOps),
		Revenue:        rev.InexactFloat64(),
		Cost:           cost.InexactFloat64(),
		Penalty:        pen.InexactFloat64(),
		Net:            rev.Sub(cost).Sub(pen).InexactFloat64(),
		PigsProcessed:  entry.TotalProcessed,
		ReportedProfit: entry.DailyProfit,
	}
	l.days = append(l.days, sum)
	return sum
}

func (l *Ledger) Totals() Totals {
	return Totals{
		Revenue:       l.revenue.InexactFloat64(),
		Cost:          l.cost.InexactFloat64(),
		Penalties:     l.penalties.InexactFloat64(),
		PigsProcessed: l.pigs,
		NetProfit:     l.revenue.Sub(l.cost).Sub(l.penalties).InexactFloat64(),
	}
}

func (l *Ledger) History() []DaySummary {
	return append([]DaySummary(nil), l.days...)
}
