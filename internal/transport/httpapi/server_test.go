package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pigflow.ai/internal/protocol"
	"pigflow.ai/internal/sim/playback"
)

func sampleDataset() *protocol.Dataset {
	return &protocol.Dataset{
		Slaughterhouse: protocol.Slaughterhouse{ID: "S1", Lat: 41.93, Lng: 2.254, Capacity: 2000},
		Farms: []protocol.FarmRecord{
			{ID: "F1", Lat: 41.9, Lng: 2.2, Pigs: 100, AvgWeight: 100},
			{ID: "F12", Lat: 41.8, Lng: 2.1, Pigs: 50, AvgWeight: 90},
		},
		Simulation: protocol.Simulation{
			DailyLogs: []protocol.DailyLog{
				{Day: 1, TruckOps: []protocol.TruckOperation{{TruckID: "T1", Route: []string{"Farm_1_X"}, PigsDelivered: 40, TripCost: 500, Revenue: 800}}, TotalProcessed: 40},
				{Day: 2, TruckOps: []protocol.TruckOperation{{TruckID: "T2", Route: []string{"Farm_12_Y"}, PigsDelivered: 10, TripCost: 100, Revenue: 200}}, TotalProcessed: 10},
			},
			Metadata: protocol.Metadata{Farms: map[string]protocol.LatLng{
				"Farm_1_X":  {Lat: 41.9, Lng: 2.2},
				"Farm_12_Y": {Lat: 41.8, Lng: 2.1},
			}},
		},
	}
}

func newTestAPI(t *testing.T, src playback.Fetcher) (*playback.Engine, http.Handler) {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	eng := playback.New(playback.Config{GrowthRateKg: 0.9, WeeklyReset: playback.ResetEverySeventhDay, MaxLogEntries: 100}, quiet)
	return eng, New(eng, Options{Source: src}, quiet)
}

func okSource() playback.Fetcher {
	return playback.FetcherFunc(func(context.Context) (*protocol.Dataset, error) { return sampleDataset(), nil })
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestAPI_LoadAdvanceAndRead(t *testing.T) {
	_, h := newTestAPI(t, okSource())

	rr := do(t, h, http.MethodPost, "/v1/load")
	if rr.Code != http.StatusOK {
		t.Fatalf("load status=%d body=%s", rr.Code, rr.Body.String())
	}
	var v playback.View
	decodeInto(t, rr, &v)
	if v.Phase != playback.PhaseRunning || v.Days != 2 || v.SessionID == "" {
		t.Fatalf("state after load: %+v", v)
	}

	rr = do(t, h, http.MethodPost, "/v1/advance")
	if rr.Code != http.StatusOK {
		t.Fatalf("advance status=%d", rr.Code)
	}
	var adv advanceResponse
	decodeInto(t, rr, &adv)
	if adv.NoOp || adv.Day != 1 || adv.Routes != 1 || adv.Summary.Net != 300 {
		t.Fatalf("advance: %+v", adv)
	}

	rr = do(t, h, http.MethodGet, "/v1/farms/F1")
	var f playback.Farm
	decodeInto(t, rr, &f)
	if f.Pigs != 60 || !f.VisitedThisWeek {
		t.Fatalf("farm F1: %+v", f)
	}

	rr = do(t, h, http.MethodGet, "/v1/routes")
	var routes []playback.Route
	decodeInto(t, rr, &routes)
	if len(routes) != 1 || routes[0].TruckID != "T1" {
		t.Fatalf("routes: %+v", routes)
	}

	rr = do(t, h, http.MethodGet, "/v1/kpis")
	var k KPIs
	decodeInto(t, rr, &k)
	if k.Day != 1 || k.Farms != 2 || k.PigsOnFarms != 110 || k.VisitedFarms != 1 || len(k.History) != 1 {
		t.Fatalf("kpis: %+v", k)
	}

	rr = do(t, h, http.MethodGet, "/v1/logs?limit=1")
	var logs []playback.LogEntry
	decodeInto(t, rr, &logs)
	if len(logs) != 1 {
		t.Fatalf("logs len=%d want 1", len(logs))
	}
}

func TestAPI_AdvanceBeforeLoadIsNoOp(t *testing.T) {
	_, h := newTestAPI(t, okSource())

	rr := do(t, h, http.MethodPost, "/v1/advance")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var adv advanceResponse
	decodeInto(t, rr, &adv)
	if !adv.NoOp || adv.Phase != playback.PhaseNotStarted {
		t.Fatalf("advance: %+v", adv)
	}

	rr = do(t, h, http.MethodGet, "/v1/farms/F1")
	if rr.Code != http.StatusConflict {
		t.Fatalf("farm before load status=%d want 409", rr.Code)
	}
	var e protocol.ErrorMsg
	decodeInto(t, rr, &e)
	if e.Code != protocol.ErrNotLoaded {
		t.Fatalf("code=%q", e.Code)
	}
}

func TestAPI_UnknownFarmSuggests(t *testing.T) {
	_, h := newTestAPI(t, okSource())
	do(t, h, http.MethodPost, "/v1/load")

	rr := do(t, h, http.MethodGet, "/v1/farms/F13")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
	var e protocol.ErrorMsg
	decodeInto(t, rr, &e)
	if e.Code != protocol.ErrNotFound {
		t.Fatalf("code=%q", e.Code)
	}
	found := false
	for _, h := range e.Hints {
		if h == "F12" {
			found = true
		}
	}
	if !found {
		t.Fatalf("hints=%v want F12 among them", e.Hints)
	}
}

func TestAPI_LoadFailure(t *testing.T) {
	src := playback.FetcherFunc(func(context.Context) (*protocol.Dataset, error) {
		return nil, errors.New("upstream down")
	})
	_, h := newTestAPI(t, src)

	rr := do(t, h, http.MethodPost, "/v1/load")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d want 502", rr.Code)
	}
	var e protocol.ErrorMsg
	decodeInto(t, rr, &e)
	if e.Code != protocol.ErrLoadFailed || !strings.Contains(e.Message, "upstream down") {
		t.Fatalf("error: %+v", e)
	}

	rr = do(t, h, http.MethodGet, "/v1/logs")
	var logs []playback.LogEntry
	decodeInto(t, rr, &logs)
	if len(logs) == 0 || logs[0].Type != playback.LogWarning {
		t.Fatalf("expected failure narration, got %+v", logs)
	}
}

func TestAPI_Health(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	eng := playback.New(playback.Config{}, quiet)
	h := New(eng, Options{Extra: func() map[string]any { return map[string]any{"index_queue": 3} }}, quiet)

	rr := do(t, h, http.MethodGet, "/healthz")
	var out map[string]any
	decodeInto(t, rr, &out)
	if out["ok"] != true || out["phase"] != "not_started" || out["index_queue"] != float64(3) {
		t.Fatalf("healthz: %+v", out)
	}

	rr = do(t, h, http.MethodPost, "/v1/load")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("load without source status=%d want 404", rr.Code)
	}
}

func TestSuggestFarms(t *testing.T) {
	got := suggestFarms("f2", []string{"F1", "F2", "F20", "G9"}, 2)
	if len(got) != 2 || got[0] != "F2" {
		t.Fatalf("suggest=%v", got)
	}
}

func TestQueryInt(t *testing.T) {
	cases := []struct {
		query string
		want  int
		ok    bool
	}{
		{"", 0, false},
		{"limit=3", 3, true},
		{"limit=+5", 5, true},
		{"limit=-1", -1, true},
		{"limit=2.5", 0, false},
		{"limit=abc", 0, false},
		{"limit=%223%22", 0, false},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/v1/logs?"+c.query, nil)
		got, ok := queryInt(r, "limit")
		if got != c.want || ok != c.ok {
			t.Fatalf("%q: got (%d,%v) want (%d,%v)", c.query, got, ok, c.want, c.ok)
		}
	}
}
