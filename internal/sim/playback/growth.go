package playback

import (
	"fmt"

	"pigflow.ai/internal/sim/tuning"
)

// WeeklyReset decides on which days every visited-this-week flag is cleared.
type WeeklyReset int

const (
	// ResetEverySeventhDay clears flags when day%7 == 0 (day 0 excluded).
	ResetEverySeventhDay WeeklyReset = iota
	// ResetOnDaySix clears flags once, when day == 6.
	ResetOnDaySix
)

// WeekLength is the number of days between ResetEverySeventhDay boundaries.
const WeekLength = 7

// DaySixBoundary is the only day on which ResetOnDaySix fires.
const DaySixBoundary = 6

func ParseWeeklyReset(s string) (WeeklyReset, error) {
	switch s {
	case "", tuning.WeeklyResetMod7:
		return ResetEverySeventhDay, nil
	case tuning.WeeklyResetDay6:
		return ResetOnDaySix, nil
	}
	return 0, fmt.Errorf("unknown weekly reset policy %q", s)
}

func (p WeeklyReset) String() string {
	if p == ResetOnDaySix {
		return tuning.WeeklyResetDay6
	}
	return tuning.WeeklyResetMod7
}

func (p WeeklyReset) IsBoundary(day int) bool {
	if p == ResetOnDaySix {
		return day == DaySixBoundary
	}
	return day > 0 && day%WeekLength == 0
}

// visit is one stop's pickup against a canonical farm id.
type visit struct {
	FarmID string
	Pigs   int
}

type dayMutation struct {
	WeeklyReset bool
	Visited     int
	Depleted    []string
}

// applyDay is the only place farm records change after load. Order matters:
// weekly reset, then growth for every farm, then today's visits.
func (r *FarmRepo) applyDay(day int, visits []visit, growthKg float64, policy WeeklyReset) dayMutation {
	var m dayMutation
	if r == nil {
		return m
	}
	if policy.IsBoundary(day) {
		for _, f := range r.byID {
			f.VisitedThisWeek = false
		}
		m.WeeklyReset = true
	}
	for _, f := range r.byID {
		f.AvgWeight += growthKg
	}

	seen := make(map[string]bool, len(visits))
	for _, v := range visits {
		f, ok := r.byID[v.FarmID]
		if !ok {
			continue
		}
		f.VisitedThisWeek = true
		f.Pigs -= v.Pigs
		if f.Pigs < 0 {
			f.Pigs = 0
		}
		if !seen[v.FarmID] {
			seen[v.FarmID] = true
			m.Visited++
		}
	}
	for _, id := range r.order {
		if seen[id] && r.byID[id].Pigs == 0 {
			m.Depleted = append(m.Depleted, id)
		}
	}
	return m
}
