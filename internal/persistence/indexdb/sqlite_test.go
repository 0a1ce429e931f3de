package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"pigflow.ai/internal/sim/playback"
	"pigflow.ai/internal/sim/tuning"
)

func sampleDay() playback.DayRecord {
	return playback.DayRecord{
		SessionID: "s-1",
		Day:       2,
		Cursor:    1,
		Summary: playback.DaySummary{
			Day: 2, Trucks: 1, Revenue: 800, Cost: 500, Penalty: 10, Net: 290, PigsProcessed: 40, ReportedProfit: 290,
		},
		Routes: []playback.Route{{
			TruckID:  "7",
			Stops:    []playback.RouteStop{{Farm: playback.Farm{ID: "F1"}, RouteStopID: "Farm_1_X", PigsLoaded: 40, Visited: true}},
			Pigs:     40,
			TotalKgs: 4000,
			Distance: 88.2,
			Duration: 4.5,
			LoadPct:  0.8,
		}},
		Farms: []playback.Farm{
			{ID: "F1", Pigs: 60, AvgWeight: 101.8, VisitedThisWeek: true},
			{ID: "F2", Pigs: 50, AvgWeight: 90.9},
		},
		Digest: "abc",
	}
}

func TestSQLiteIndex_WriteDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordSession(SessionRow{SessionID: "s-1", LoadedAt: time.Unix(0, 0), Farms: 2, Days: 10})
	if err := idx.WriteDay(sampleDay()); err != nil {
		t.Fatalf("WriteDay: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var farms, days int
	if err := db.QueryRow(`SELECT farms,days FROM sessions WHERE session_id='s-1'`).Scan(&farms, &days); err != nil {
		t.Fatalf("session Scan: %v", err)
	}
	if farms != 2 || days != 10 {
		t.Fatalf("session row: farms=%d days=%d", farms, days)
	}

	var (
		cursor, pigs int
		net          float64
		digest       string
	)
	row := db.QueryRow(`SELECT cursor,pigs_processed,net,digest FROM days WHERE session_id='s-1' AND day=2`)
	if err := row.Scan(&cursor, &pigs, &net, &digest); err != nil {
		t.Fatalf("day Scan: %v", err)
	}
	if cursor != 1 || pigs != 40 || net != 290 || digest != "abc" {
		t.Fatalf("day row: cursor=%d pigs=%d net=%v digest=%q", cursor, pigs, net, digest)
	}

	var truck string
	var stops int
	if err := db.QueryRow(`SELECT truck_id,stops FROM routes WHERE session_id='s-1' AND day=2 AND seq=0`).Scan(&truck, &stops); err != nil {
		t.Fatalf("route Scan: %v", err)
	}
	if truck != "7" || stops != 1 {
		t.Fatalf("route row: truck=%q stops=%d", truck, stops)
	}

	var n, visited int
	if err := db.QueryRow(`SELECT COUNT(*), SUM(visited) FROM farm_days WHERE session_id='s-1' AND day=2`).Scan(&n, &visited); err != nil {
		t.Fatalf("farm_days Scan: %v", err)
	}
	if n != 2 || visited != 1 {
		t.Fatalf("farm_days: n=%d visited=%d", n, visited)
	}
}

func TestSQLiteIndex_UpsertTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	tune := tuning.Defaults()
	if err := idx.UpsertTuning(tune); err != nil {
		t.Fatalf("UpsertTuning: %v", err)
	}
	tune.MaxDays = 3
	if err := idx.UpsertTuning(tune); err != nil {
		t.Fatalf("UpsertTuning again: %v", err)
	}
	_ = idx.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM configs WHERE name='tuning'`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("configs rows=%d want 1", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqDay}

	_ = s.WriteDay(playback.DayRecord{Day: 2})
	s.RecordSession(SessionRow{SessionID: "x"})
	s.RecordSession(SessionRow{})

	st := s.Stats()
	if st.DropDayTotal != 1 {
		t.Fatalf("DropDayTotal=%d want=1", st.DropDayTotal)
	}
	if st.DropSessionTotal != 1 {
		t.Fatalf("DropSessionTotal=%d want=1", st.DropSessionTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_DayVisibleWhileOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()

	if err := idx.WriteDay(sampleDay()); err != nil {
		t.Fatalf("WriteDay: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	// Well under the 2s batch window: only an idle-queue commit gets here in time.
	deadline := time.Now().Add(time.Second)
	for {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM days WHERE session_id='s-1'`).Scan(&n); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if n == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("days rows=%d want 1 before Close", n)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
