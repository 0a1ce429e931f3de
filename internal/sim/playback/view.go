package playback

import (
	"time"

	"pigflow.ai/internal/protocol"
)

// View is a point-in-time copy of the playback state for presentation.
type View struct {
	SessionID string    `json:"session_id,omitempty"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`

	Day     int   `json:"day"`
	Days    int   `json:"days"`
	Phase   Phase `json:"phase"`
	Running bool  `json:"running"`
	Loading bool  `json:"loading"`

	Slaughterhouse Slaughterhouse  `json:"slaughterhouse"`
	Prices         protocol.Prices `json:"prices"`
	Totals         Totals          `json:"totals"`
	Digest         string          `json:"digest,omitempty"`
}

func (e *Engine) State() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	day, phase := e.dayPhaseLocked()
	v := View{
		Day:     day,
		Phase:   phase,
		Running: e.running,
		Loading: e.loading.Load(),
	}
	if s := e.sess; s != nil {
		v.SessionID = s.id
		v.LoadedAt = s.loadedAt
		v.Days = s.limit
		v.Slaughterhouse = s.yard
		v.Prices = s.prices
		v.Totals = s.ledger.Totals()
		v.Digest = s.digest
	}
	return v
}

// Snapshot is the state, today's routes, the farms and the narration of one
// and the same day.
type Snapshot struct {
	View   View
	Routes []Route
	Farms  []Farm
	Logs   []LogEntry
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := Snapshot{
		View: e.viewLocked(),
		Logs: e.narr.Entries(),
	}
	if s := e.sess; s != nil {
		snap.Routes = copyRoutes(s.routes)
		snap.Farms = s.farms.List()
	}
	return snap
}

func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, p := e.dayPhaseLocked()
	return p
}

func (e *Engine) Day() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, _ := e.dayPhaseLocked()
	return d
}

func (e *Engine) Loading() bool { return e.loading.Load() }

func (e *Engine) Farms() []Farm {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sess == nil {
		return nil
	}
	return e.sess.farms.List()
}

func (e *Engine) Farm(id string) (Farm, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sess == nil {
		return Farm{}, false
	}
	return e.sess.farms.Get(id)
}

func (e *Engine) FarmIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sess == nil {
		return nil
	}
	return e.sess.farms.IDs()
}

// Routes returns today's routes only.
func (e *Engine) Routes() []Route {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sess == nil {
		return nil
	}
	return copyRoutes(e.sess.routes)
}

// Logs returns the narration, newest first.
func (e *Engine) Logs() []LogEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.narr.Entries()
}

func (e *Engine) Totals() Totals {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sess == nil {
		return Totals{}
	}
	return e.sess.ledger.Totals()
}

func (e *Engine) History() []DaySummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sess == nil {
		return nil
	}
	return e.sess.ledger.History()
}
