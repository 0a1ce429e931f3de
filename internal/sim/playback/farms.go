package playback

import "pigflow.ai/internal/protocol"

// FarmRepo owns every mutable farm record for a session. Callers outside the
// package only ever receive copies.
type FarmRepo struct {
	byID  map[string]*Farm
	order []string
}

func newFarmRepo(recs []protocol.FarmRecord) *FarmRepo {
	r := &FarmRepo{
		byID:  make(map[string]*Farm, len(recs)),
		order: make([]string, 0, len(recs)),
	}
	for _, rec := range recs {
		f := &Farm{
			ID:        rec.ID,
			Lat:       rec.Lat,
			Lng:       rec.Lng,
			Pigs:      rec.Pigs,
			AvgWeight: rec.AvgWeight,
		}
		if f.Pigs < 0 {
			f.Pigs = 0
		}
		if _, dup := r.byID[rec.ID]; !dup {
			r.order = append(r.order, rec.ID)
		}
		// Duplicate ids: the later record wins, listing order stays first-seen.
		r.byID[rec.ID] = f
	}
	return r
}

func (r *FarmRepo) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

func (r *FarmRepo) Get(id string) (Farm, bool) {
	if r == nil {
		return Farm{}, false
	}
	f, ok := r.byID[id]
	if !ok {
		return Farm{}, false
	}
	return *f, true
}

// List returns the farms in dataset order.
func (r *FarmRepo) List() []Farm {
	if r == nil {
		return nil
	}
	out := make([]Farm, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

func (r *FarmRepo) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}
