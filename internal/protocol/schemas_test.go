package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pigflow.ai/internal/protocol"
)

const sampleDataset = `{
  "slaughterhouse":{"id":"S1","lat":41.93,"lng":2.254,"capacity":2000},
  "farms":[
    {"id":"F1","lat":41.9,"lng":2.2,"pigs":100,"avg_weight":100},
    {"id":"F29","lat":41.95,"lng":2.3,"pigs":50,"avg_weight":90}
  ],
  "prices":{"base":1.56,"diesel_s":0.2},
  "simulation":{
    "daily_logs":[
      {"day":1,"trucks_ops":[
        {"truck_id":7,"route":["Farm_1_X","Farm_29_Gurb"],"duration":4.5,"distance":88.2,
         "pigs_delivered":40,"trip_cost":500,"revenue":800,"penalty":0,"profit":300,"load_pct":0.8}
      ],"total_processed":40,"daily_profit":300}
    ],
    "metadata":{"farms":{"Farm_1_X":{"lat":41.9,"lng":2.2}}}
  }
}`

func TestSchemas_ValidateSamples(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "dataset.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var ok any
	if err := json.Unmarshal([]byte(sampleDataset), &ok); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(ok); err != nil {
		t.Fatalf("validate: %v", err)
	}

	var bad any
	_ = json.Unmarshal([]byte(`{
	  "slaughterhouse":{"lat":41.93,"lng":2.254},
	  "farms":[],
	  "simulation":{"daily_logs":[{"day":1,"trucks_ops":[{"route":[],"pigs_delivered":1,"trip_cost":-5}]}]}
	}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected negative trip_cost to be rejected")
	}
}

func TestDataset_DecodesSample(t *testing.T) {
	var ds protocol.Dataset
	if err := json.Unmarshal([]byte(sampleDataset), &ds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ds.Farms) != 2 || ds.Farms[1].AvgWeight != 90 {
		t.Fatalf("farms: %+v", ds.Farms)
	}
	if ds.Prices.FuelSurcharge != 0.2 {
		t.Fatalf("fuel surcharge=%v", ds.Prices.FuelSurcharge)
	}
	op := ds.Simulation.DailyLogs[0].TruckOps[0]
	if op.TruckID != "7" {
		t.Fatalf("truck id=%q want 7", op.TruckID)
	}
	if got := ds.Simulation.Metadata.Farms["Farm_1_X"]; got.Lat != 41.9 {
		t.Fatalf("metadata: %+v", got)
	}
}

func TestTruckID_RejectsFractional(t *testing.T) {
	var id protocol.TruckID
	if err := json.Unmarshal([]byte(`1.5`), &id); err == nil {
		t.Fatalf("expected fractional truck id rejected")
	}
	if err := json.Unmarshal([]byte(`"T-9"`), &id); err != nil || id != "T-9" {
		t.Fatalf("string id: %q %v", id, err)
	}
}
