package playback

import (
	"math"

	"pigflow.ai/internal/protocol"
)

// allocate splits an operation's delivered pigs across its stops. A per-stop
// list from upstream wins when it matches the route length; otherwise every
// stop gets round(pigs/stops), half away from zero. The shares are not
// reconciled with the delivered total.
func allocate(op protocol.TruckOperation) []int {
	n := len(op.Route)
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	if len(op.PigsPerStop) == n {
		for i, v := range op.PigsPerStop {
			if v < 0 {
				v = 0
			}
			out[i] = v
		}
		return out
	}
	share := int(math.Round(float64(op.PigsDelivered) / float64(n)))
	if share < 0 {
		share = 0
	}
	for i := range out {
		out[i] = share
	}
	return out
}

type routeReport struct {
	Routes []Route
	Visits []visit

	Unmapped  []string
	Unknown   []string
	Malformed []string
}

func reconstructRoutes(ops []protocol.TruckOperation, res Resolver, yard LatLng) routeReport {
	rep := routeReport{Routes: make([]Route, 0, len(ops))}
	for _, op := range ops {
		shares := allocate(op)
		rt := Route{
			TruckID:  string(op.TruckID),
			Stops:    make([]RouteStop, 0, len(op.Route)),
			Path:     make([]LatLng, 0, len(op.Route)+2),
			Pigs:     op.PigsDelivered,
			Distance: op.Distance,
			Duration: op.Duration,
			LoadPct:  op.LoadPct,
		}
		rt.Path = append(rt.Path, yard)
		for i, stopID := range op.Route {
			r := res.Resolve(stopID)
			stop := RouteStop{
				Farm:        r.Farm,
				RouteStopID: stopID,
				PigsLoaded:  shares[i],
				Visited:     true,
				Approximate: r.Approximate,
				UnknownFarm: r.UnknownFarm,
				Malformed:   r.Malformed,
			}
			rt.Stops = append(rt.Stops, stop)
			rt.Path = append(rt.Path, r.Pos)
			rt.TotalKgs += float64(stop.PigsLoaded) * stop.AvgWeight

			switch {
			case r.Malformed:
				rep.Malformed = append(rep.Malformed, stopID)
			case r.UnknownFarm:
				rep.Unknown = append(rep.Unknown, stopID)
			default:
				rep.Visits = append(rep.Visits, visit{FarmID: r.FarmID, Pigs: stop.PigsLoaded})
			}
			if r.Approximate {
				rep.Unmapped = append(rep.Unmapped, stopID)
			}
		}
		rt.Path = append(rt.Path, yard)
		rep.Routes = append(rep.Routes, rt)
	}
	return rep
}
