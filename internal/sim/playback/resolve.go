package playback

import (
	"strings"

	"pigflow.ai/internal/protocol"
)

// MetadataIndex maps raw route-stop strings to coordinates. Read-only once built.
type MetadataIndex struct {
	byStop map[string]LatLng
}

func newMetadataIndex(md protocol.Metadata) MetadataIndex {
	m := make(map[string]LatLng, len(md.Farms))
	for k, v := range md.Farms {
		m[k] = v
	}
	return MetadataIndex{byStop: m}
}

func (m MetadataIndex) Lookup(routeStop string) (LatLng, bool) {
	p, ok := m.byStop[routeStop]
	return p, ok
}

func (m MetadataIndex) Len() int { return len(m.byStop) }

// CanonicalFarmID turns "Farm_29_Gurb" into "F29". The second "_"-separated
// token must be a non-empty run of ASCII digits.
func CanonicalFarmID(routeStop string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(routeStop), "_")
	if len(parts) < 2 {
		return "", false
	}
	num := parts[1]
	if num == "" {
		return "", false
	}
	for i := 0; i < len(num); i++ {
		if num[i] < '0' || num[i] > '9' {
			return "", false
		}
	}
	return "F" + num, true
}

type Resolved struct {
	RouteStopID string
	FarmID      string
	Pos         LatLng
	Farm        Farm

	Malformed   bool
	Approximate bool
	UnknownFarm bool
}

// Resolver reconnects route-stop strings to farm records. Coordinates come
// from the metadata index by raw string; inventory comes from the farm repo by
// canonical id. The two lookups fail independently.
type Resolver struct {
	meta     MetadataIndex
	farms    *FarmRepo
	fallback LatLng
}

func NewResolver(meta MetadataIndex, farms *FarmRepo, fallback LatLng) Resolver {
	return Resolver{meta: meta, farms: farms, fallback: fallback}
}

func (r Resolver) Resolve(routeStop string) Resolved {
	out := Resolved{RouteStopID: routeStop}

	id, ok := CanonicalFarmID(routeStop)
	if !ok {
		out.Malformed = true
	}
	out.FarmID = id

	if p, ok := r.meta.Lookup(routeStop); ok {
		out.Pos = p
	} else {
		// Known approximation: unmapped stops are drawn at the slaughterhouse.
		out.Pos = r.fallback
		out.Approximate = true
	}

	if id != "" {
		if f, ok := r.farms.Get(id); ok {
			out.Farm = f
		} else {
			out.UnknownFarm = true
		}
	} else {
		out.UnknownFarm = true
	}
	out.Farm.ID = id
	out.Farm.Lat = out.Pos.Lat
	out.Farm.Lng = out.Pos.Lng
	return out
}
