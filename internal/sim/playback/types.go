package playback

import (
	"fmt"

	"pigflow.ai/internal/protocol"
)

type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return "not_started"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*p = PhaseRunning
	case "finished":
		*p = PhaseFinished
	case "not_started", "":
		*p = PhaseNotStarted
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

type LatLng = protocol.LatLng

type Slaughterhouse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Capacity int     `json:"capacity"`
}

func (s Slaughterhouse) Pos() LatLng { return LatLng{Lat: s.Lat, Lng: s.Lng} }

type Farm struct {
	ID              string  `json:"id"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Pigs            int     `json:"pigs"`
	AvgWeight       float64 `json:"avg_weight"`
	VisitedThisWeek bool    `json:"visited_this_week"`
}

// RouteStop is a farm as seen from one truck's route on one day.
type RouteStop struct {
	Farm
	RouteStopID string `json:"route_stop_id"`
	PigsLoaded  int    `json:"pigs_loaded"`
	Visited     bool   `json:"visited"`

	// Approximate is set when the stop had no metadata coordinates and was
	// placed at the slaughterhouse.
	Approximate bool `json:"approximate,omitempty"`
	// UnknownFarm is set when no farm record matched the canonical id.
	UnknownFarm bool `json:"unknown_farm,omitempty"`
	Malformed   bool `json:"malformed,omitempty"`
}

type Route struct {
	TruckID  string      `json:"truck_id"`
	Stops    []RouteStop `json:"farms"`
	Path     []LatLng    `json:"path"`
	Pigs     int         `json:"pigs"`
	TotalKgs float64     `json:"total_kgs"`
	Distance float64     `json:"distance"`
	Duration float64     `json:"duration"`
	LoadPct  float64     `json:"load_pct"`
}

type LogKind string

const (
	LogNormal  LogKind = "normal"
	LogWarning LogKind = "warning"
	LogSuccess LogKind = "success"
	LogInfo    LogKind = "info"
)

type LogEntry struct {
	Icon string  `json:"icon"`
	Text string  `json:"text"`
	Type LogKind `json:"type"`
}

type Totals struct {
	Revenue       float64 `json:"total_revenue"`
	Cost          float64 `json:"total_cost"`
	Penalties     float64 `json:"total_penalties"`
	PigsProcessed int     `json:"pigs_processed"`
	NetProfit     float64 `json:"net_profit"`
}

// DaySummary is the financial outcome of one applied log entry.
type DaySummary struct {
	Day            int     `json:"day"`
	Trucks         int     `json:"trucks"`
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
	Penalty        float64 `json:"penalty"`
	Net            float64 `json:"net"`
	PigsProcessed  int     `json:"pigs_processed"`
	ReportedProfit float64 `json:"reported_profit"`
}
