package playback

import (
	"testing"

	"pigflow.ai/internal/protocol"
)

func TestAllocate_EqualShare(t *testing.T) {
	got := allocate(protocol.TruckOperation{Route: []string{"a", "b"}, PigsDelivered: 40})
	if len(got) != 2 || got[0] != 20 || got[1] != 20 {
		t.Fatalf("40/2: %v", got)
	}
	// Half rounds away from zero: both stops get 21.
	got = allocate(protocol.TruckOperation{Route: []string{"a", "b"}, PigsDelivered: 41})
	if got[0] != 21 || got[1] != 21 {
		t.Fatalf("41/2: %v", got)
	}
	got = allocate(protocol.TruckOperation{Route: []string{"a", "b", "c"}, PigsDelivered: 10})
	if got[0] != 3 || got[2] != 3 {
		t.Fatalf("10/3: %v", got)
	}
	if got := allocate(protocol.TruckOperation{PigsDelivered: 10}); got != nil {
		t.Fatalf("empty route: %v", got)
	}
}

func TestAllocate_PerStopOverride(t *testing.T) {
	op := protocol.TruckOperation{Route: []string{"a", "b"}, PigsDelivered: 41, PigsPerStop: []int{30, 11}}
	got := allocate(op)
	if got[0] != 30 || got[1] != 11 {
		t.Fatalf("override: %v", got)
	}
	// Length mismatch falls back to the equal share.
	op.PigsPerStop = []int{41}
	got = allocate(op)
	if got[0] != 21 || got[1] != 21 {
		t.Fatalf("mismatched override: %v", got)
	}
}

func TestReconstructRoutes_BuildsDisplayPath(t *testing.T) {
	farms := newFarmRepo([]protocol.FarmRecord{
		{ID: "F1", Pigs: 100, AvgWeight: 100},
		{ID: "F2", Pigs: 50, AvgWeight: 90},
	})
	meta := newMetadataIndex(protocol.Metadata{Farms: map[string]protocol.LatLng{
		"Farm_1_X": {Lat: 1, Lng: 1},
		"Farm_2_Y": {Lat: 2, Lng: 2},
	}})
	yard := LatLng{Lat: 9, Lng: 9}
	ops := []protocol.TruckOperation{
		{TruckID: "T1", Route: []string{"Farm_1_X", "Farm_2_Y"}, PigsDelivered: 40, Distance: 12.5},
		{TruckID: "T2", Route: []string{"Farm_7_Z", "bad"}, PigsDelivered: 10},
	}
	rep := reconstructRoutes(ops, NewResolver(meta, farms, yard), yard)

	if len(rep.Routes) != 2 {
		t.Fatalf("routes=%d want 2", len(rep.Routes))
	}
	r := rep.Routes[0]
	if r.TruckID != "T1" || r.Pigs != 40 || len(r.Stops) != 2 {
		t.Fatalf("route 0: %+v", r)
	}
	if len(r.Path) != 4 || r.Path[0] != yard || r.Path[3] != yard || r.Path[1].Lat != 1 {
		t.Fatalf("path: %+v", r.Path)
	}
	for _, st := range r.Stops {
		if !st.Visited || st.PigsLoaded != 20 {
			t.Fatalf("stop: %+v", st)
		}
	}
	if want := 20*100.0 + 20*90.0; r.TotalKgs != want {
		t.Fatalf("total kgs=%v want %v", r.TotalKgs, want)
	}

	if len(rep.Visits) != 2 || rep.Visits[0].FarmID != "F1" {
		t.Fatalf("visits: %+v", rep.Visits)
	}
	if len(rep.Unknown) != 1 || rep.Unknown[0] != "Farm_7_Z" {
		t.Fatalf("unknown: %v", rep.Unknown)
	}
	if len(rep.Malformed) != 1 || rep.Malformed[0] != "bad" {
		t.Fatalf("malformed: %v", rep.Malformed)
	}
	if len(rep.Unmapped) != 2 {
		t.Fatalf("unmapped: %v", rep.Unmapped)
	}
}
