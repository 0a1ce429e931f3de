package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"pigflow.ai/internal/persistence/indexdb"
	"pigflow.ai/internal/protocol"
	"pigflow.ai/internal/sim/playback"
)

func recorderDataset() *protocol.Dataset {
	return &protocol.Dataset{
		Slaughterhouse: protocol.Slaughterhouse{ID: "S1", Lat: 41.93, Lng: 2.254, Capacity: 2000},
		Farms: []protocol.FarmRecord{
			{ID: "F1", Lat: 41.9, Lng: 2.2, Pigs: 100, AvgWeight: 100},
			{ID: "F2", Lat: 41.95, Lng: 2.3, Pigs: 50, AvgWeight: 90},
		},
		Simulation: protocol.Simulation{
			DailyLogs: []protocol.DailyLog{
				{Day: 1, TruckOps: []protocol.TruckOperation{{TruckID: "7", Route: []string{"Farm_1_X"}, PigsDelivered: 40, Revenue: 800, TripCost: 500}}},
				{Day: 2},
			},
		},
	}
}

func TestSessionRecorder_RecordsStartupLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	eng := playback.New(playback.Config{GrowthRateKg: 0.5, MaxLogEntries: 50}, nil)
	eng.AddSink(idx)
	stop := startSessionRecorder(eng, idx)

	// Same order as main: load immediately after wiring.
	if err := eng.Load(context.Background(), playback.FetcherFunc(func(context.Context) (*protocol.Dataset, error) {
		return recorderDataset(), nil
	})); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := eng.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	sessionID := eng.State().SessionID

	stop()
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n, farms, days int
	var id string
	if err := db.QueryRow(`SELECT COUNT(*), MAX(session_id), MAX(farms), MAX(days) FROM sessions`).Scan(&n, &id, &farms, &days); err != nil {
		t.Fatalf("sessions Scan: %v", err)
	}
	if n != 1 || id != sessionID || farms != 2 || days != 2 {
		t.Fatalf("sessions: n=%d id=%q (want %q) farms=%d days=%d", n, id, sessionID, farms, days)
	}

	var orphans int
	if err := db.QueryRow(`SELECT COUNT(*) FROM days d LEFT JOIN sessions s ON s.session_id = d.session_id WHERE s.session_id IS NULL`).Scan(&orphans); err != nil {
		t.Fatalf("days Scan: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("days rows without a session: %d", orphans)
	}
}
