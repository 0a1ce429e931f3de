package main

import (
	"bytes"
	"strings"
	"testing"

	"pigflow.ai/internal/persistence/indexdb"
	"pigflow.ai/internal/sim/playback"
	"pigflow.ai/internal/sim/tuning"
)

type fakeEngine struct {
	v      playback.View
	routes []playback.Route
}

func (f fakeEngine) State() playback.View     { return f.v }
func (f fakeEngine) Routes() []playback.Route { return f.routes }

type fakeIndex struct{ st indexdb.Stats }

func (fakeIndex) WriteDay(playback.DayRecord) error { return nil }
func (fakeIndex) Close() error                      { return nil }
func (fakeIndex) UpsertTuning(tuning.Tuning) error  { return nil }
func (fakeIndex) RecordSession(indexdb.SessionRow)  {}
func (f fakeIndex) Stats() indexdb.Stats            { return f.st }

func TestWriteMetrics(t *testing.T) {
	eng := fakeEngine{
		v: playback.View{
			Day:    3,
			Days:   10,
			Phase:  playback.PhaseRunning,
			Totals: playback.Totals{Revenue: 1000, NetProfit: 250.5, PigsProcessed: 42},
		},
		routes: []playback.Route{{TruckID: "T1"}, {TruckID: "T2"}},
	}
	var buf bytes.Buffer
	writeMetricsTo(&buf, eng, fakeIndex{st: indexdb.Stats{QueueDepth: 2, DropDayTotal: 1}})
	out := buf.String()

	for _, want := range []string{
		"pigflow_playback_day 3\n",
		"pigflow_playback_days 10\n",
		`pigflow_playback_phase{phase="running"} 1`,
		`pigflow_playback_phase{phase="finished"} 0`,
		"pigflow_routes_today 2\n",
		`pigflow_totals{metric="net_profit"} 250.50`,
		"pigflow_pigs_processed_total 42\n",
		"pigflow_index_queue_depth 2\n",
		`pigflow_index_dropped_total{kind="day"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMetrics_NoIndex(t *testing.T) {
	var buf bytes.Buffer
	writeMetricsTo(&buf, fakeEngine{}, nil)
	if strings.Contains(buf.String(), "pigflow_index_") {
		t.Fatalf("unexpected index metrics without an index")
	}
	if !strings.Contains(buf.String(), `pigflow_playback_phase{phase="not_started"} 1`) {
		t.Fatalf("expected not_started phase:\n%s", buf.String())
	}
}
