package playback

import "fmt"

const (
	iconInfo    = "ℹ️"
	iconError   = "❌"
	iconDay     = "📅"
	iconTruck   = "🚚"
	iconWarn    = "⚠️"
	iconMoney   = "💰"
	iconReset   = "🔄"
	iconFinish  = "🏁"
	iconPending = "⏳"
)

// Narrator holds the human-readable log. Entries are stored oldest first and
// handed out newest first.
type Narrator struct {
	entries []LogEntry
	max     int
}

func newNarrator(max int) *Narrator { return &Narrator{max: max} }

func (n *Narrator) push(icon, text string, kind LogKind) {
	n.entries = append(n.entries, LogEntry{Icon: icon, Text: text, Type: kind})
	if n.max > 0 && len(n.entries) > n.max {
		drop := len(n.entries) - n.max
		n.entries = append(n.entries[:0], n.entries[drop:]...)
	}
}

func (n *Narrator) pushf(icon string, kind LogKind, format string, args ...any) {
	n.push(icon, fmt.Sprintf(format, args...), kind)
}

func (n *Narrator) Len() int { return len(n.entries) }

// Entries returns a copy, newest first.
func (n *Narrator) Entries() []LogEntry {
	out := make([]LogEntry, len(n.entries))
	for i, e := range n.entries {
		out[len(out)-1-i] = e
	}
	return out
}

func (n *Narrator) loaded(farms, days int) {
	n.pushf(iconInfo, LogInfo, "Data loaded: %d farms, %d days. System ready.", farms, days)
}

func (n *Narrator) loadFailed(err error) {
	n.pushf(iconError, LogWarning, "Failed to load initial data: %v", err)
}

func (n *Narrator) notStarted() {
	n.push(iconPending, "No data loaded yet; load the dataset before advancing.", LogInfo)
}

func (n *Narrator) alreadyFinished(day int) {
	n.pushf(iconFinish, LogInfo, "Simulation already finished at day %d.", day)
}

func (n *Narrator) finished(day int, t Totals) {
	n.pushf(iconFinish, LogSuccess, "Simulation finished at day %d. Net profit %.2f €, %d pigs processed.", day, t.NetProfit, t.PigsProcessed)
}

func (n *Narrator) day(sum DaySummary, routes []Route, mut dayMutation, rep routeReport) {
	n.pushf(iconDay, LogNormal, "Day %d: %d trucks dispatched.", sum.Day, sum.Trucks)
	if mut.WeeklyReset {
		n.push(iconReset, "New week: visited flags cleared.", LogInfo)
	}
	for _, rt := range routes {
		n.pushf(iconTruck, LogNormal, "Truck %s: %d stops, %d pigs, %.1f km.", rt.TruckID, len(rt.Stops), rt.Pigs, rt.Distance)
	}
	if sum.Penalty > 0 {
		n.pushf(iconWarn, LogWarning, "Penalties today: %.2f €.", sum.Penalty)
	}
	if len(rep.Unknown) > 0 {
		n.pushf(iconWarn, LogWarning, "Route stops with no farm record: %v.", rep.Unknown)
	}
	if len(rep.Malformed) > 0 {
		n.pushf(iconWarn, LogWarning, "Unparseable route stops: %v.", rep.Malformed)
	}
	if len(rep.Unmapped) > 0 {
		n.pushf(iconWarn, LogWarning, "No coordinates for %v; drawn at the slaughterhouse.", rep.Unmapped)
	}
	for _, id := range mut.Depleted {
		n.pushf(iconInfo, LogInfo, "Farm %s has no pigs left.", id)
	}
	kind := LogSuccess
	if sum.Net < 0 {
		kind = LogWarning
	}
	n.pushf(iconMoney, kind, "Day %d net %.2f € (revenue %.2f, cost %.2f, penalties %.2f), %d pigs processed.",
		sum.Day, sum.Net, sum.Revenue, sum.Cost, sum.Penalty, sum.PigsProcessed)
}
