package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Dataset is the payload of the upstream init endpoint (GET /api/v1/init).
type Dataset struct {
	Slaughterhouse Slaughterhouse `json:"slaughterhouse"`
	Farms          []FarmRecord   `json:"farms"`
	Prices         Prices         `json:"prices"`
	Simulation     Simulation     `json:"simulation"`
}

type Slaughterhouse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Capacity int     `json:"capacity"`
}

type FarmRecord struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Pigs      int     `json:"pigs"`
	AvgWeight float64 `json:"avg_weight"`
}

// Prices is carried through as opaque configuration.
type Prices struct {
	Base          float64 `json:"base"`
	FuelSurcharge float64 `json:"diesel_s"`
}

type Simulation struct {
	DailyLogs []DailyLog `json:"daily_logs"`
	Metadata  Metadata   `json:"metadata"`
}

// Metadata.Farms is keyed by the raw route-stop string ("Farm_29_Gurb").
type Metadata struct {
	Farms map[string]LatLng `json:"farms"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type DailyLog struct {
	Day            int              `json:"day"`
	TruckOps       []TruckOperation `json:"trucks_ops"`
	TotalProcessed int              `json:"total_processed"`
	DailyProfit    float64          `json:"daily_profit"`
}

type TruckOperation struct {
	TruckID       TruckID  `json:"truck_id"`
	Route         []string `json:"route"`
	Duration      float64  `json:"duration"`
	Distance      float64  `json:"distance"`
	PigsDelivered int      `json:"pigs_delivered"`
	TripCost      float64  `json:"trip_cost"`
	Revenue       float64  `json:"revenue"`
	Penalty       float64  `json:"penalty"`
	Profit        float64  `json:"profit"`
	LoadPct       float64  `json:"load_pct"`

	// Optional true per-stop deliveries. Used instead of the equal share when
	// it has exactly one value per route stop.
	PigsPerStop []int `json:"pigs_per_stop,omitempty"`
}

// TruckID accepts both "T3" and 3 on the wire.
type TruckID string

func (t *TruckID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TruckID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("truck_id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("truck_id: not an integer: %s", n)
	}
	*t = TruckID(n.String())
	return nil
}
