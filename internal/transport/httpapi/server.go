package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/go-chi/chi/v5"

	"pigflow.ai/internal/protocol"
	"pigflow.ai/internal/sim/playback"
)

// Engine is the subset of *playback.Engine the API drives.
type Engine interface {
	State() playback.View
	Farms() []playback.Farm
	Farm(id string) (playback.Farm, bool)
	FarmIDs() []string
	Routes() []playback.Route
	Logs() []playback.LogEntry
	History() []playback.DaySummary
	Advance() (playback.AdvanceResult, error)
	Load(ctx context.Context, f playback.Fetcher) error
}

type Options struct {
	// Source is reloaded by POST /v1/load. Nil disables the endpoint.
	Source playback.Fetcher
	// LoadTimeout bounds a reload triggered over HTTP.
	LoadTimeout time.Duration

	// Observer handlers are mounted under /v1/observe when set.
	ObserverWS        http.HandlerFunc
	ObserverBootstrap http.HandlerFunc

	// Extra is merged into /healthz (index queue stats and the like).
	Extra func() map[string]any
}

type Server struct {
	eng  Engine
	opts Options
	log  *log.Logger
}

// New constructs the HTTP router wired to the playback engine.
func New(eng Engine, opts Options, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.New(log.Writer(), "[http] ", log.LstdFlags)
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	s := &Server{eng: eng, opts: opts, log: logger}

	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/farms", s.handleFarms)
		r.Get("/farms/{id}", s.handleFarm)
		r.Get("/routes", s.handleRoutes)
		r.Get("/logs", s.handleLogs)
		r.Get("/kpis", s.handleKPIs)
		r.Post("/load", s.handleLoad)
		r.Post("/advance", s.handleAdvance)
		if opts.ObserverWS != nil {
			r.Get("/observe", opts.ObserverWS)
		}
		if opts.ObserverBootstrap != nil {
			r.Get("/observe/bootstrap", opts.ObserverBootstrap)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	v := s.eng.State()
	out := map[string]any{
		"ok":    true,
		"phase": v.Phase,
		"day":   v.Day,
	}
	if s.opts.Extra != nil {
		for k, val := range s.opts.Extra() {
			out[k] = val
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.State())
}

func (s *Server) handleFarms(w http.ResponseWriter, r *http.Request) {
	farms := s.eng.Farms()
	if farms == nil {
		farms = []playback.Farm{}
	}
	if r.URL.Query().Get("visited") == "true" {
		kept := farms[:0]
		for _, f := range farms {
			if f.VisitedThisWeek {
				kept = append(kept, f)
			}
		}
		farms = kept
	}
	writeJSON(w, http.StatusOK, farms)
}

func (s *Server) handleFarm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.eng.State().SessionID == "" {
		writeError(w, http.StatusConflict, protocol.ErrNotLoaded, "no dataset loaded", nil)
		return
	}
	f, ok := s.eng.Farm(id)
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrNotFound, "unknown farm "+id, suggestFarms(id, s.eng.FarmIDs(), 3))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := s.eng.Routes()
	if routes == nil {
		routes = []playback.Route{}
	}
	if truck := r.URL.Query().Get("truck"); truck != "" {
		kept := routes[:0]
		for _, rt := range routes {
			if rt.TruckID == truck {
				kept = append(kept, rt)
			}
		}
		routes = kept
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs := s.eng.Logs()
	if n, ok := queryInt(r, "limit"); ok && n >= 0 && n < len(logs) {
		logs = logs[:n]
	}
	writeJSON(w, http.StatusOK, logs)
}

type KPIs struct {
	Day           int                   `json:"day"`
	Days          int                   `json:"days"`
	Phase         playback.Phase        `json:"phase"`
	Totals        playback.Totals       `json:"totals"`
	Farms         int                   `json:"farms"`
	VisitedFarms  int                   `json:"visited_farms"`
	PigsOnFarms   int                   `json:"pigs_on_farms"`
	AvgFarmWeight float64               `json:"avg_farm_weight"`
	Trucks        int                   `json:"trucks_today"`
	History       []playback.DaySummary `json:"history"`
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	v := s.eng.State()
	farms := s.eng.Farms()
	k := KPIs{
		Day:     v.Day,
		Days:    v.Days,
		Phase:   v.Phase,
		Totals:  v.Totals,
		Farms:   len(farms),
		Trucks:  len(s.eng.Routes()),
		History: s.eng.History(),
	}
	if k.History == nil {
		k.History = []playback.DaySummary{}
	}
	var weighted float64
	for _, f := range farms {
		k.PigsOnFarms += f.Pigs
		weighted += float64(f.Pigs) * f.AvgWeight
		if f.VisitedThisWeek {
			k.VisitedFarms++
		}
	}
	if k.PigsOnFarms > 0 {
		k.AvgFarmWeight = weighted / float64(k.PigsOnFarms)
	}
	writeJSON(w, http.StatusOK, k)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.opts.Source == nil {
		writeError(w, http.StatusNotFound, protocol.ErrNotFound, "no dataset source configured", nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.LoadTimeout)
	defer cancel()

	err := s.eng.Load(ctx, s.opts.Source)
	switch {
	case errors.Is(err, playback.ErrLoadInProgress):
		writeError(w, http.StatusConflict, protocol.ErrBusy, err.Error(), nil)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, protocol.ErrLoadFailed, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, s.eng.State())
}

type advanceResponse struct {
	NoOp     bool                `json:"noop"`
	Day      int                 `json:"day"`
	Phase    playback.Phase      `json:"phase"`
	Summary  playback.DaySummary `json:"summary"`
	Routes   int                 `json:"routes"`
	Finished bool                `json:"finished"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	res, err := s.eng.Advance()
	if errors.Is(err, playback.ErrAdvanceInProgress) {
		writeError(w, http.StatusConflict, protocol.ErrBusy, err.Error(), nil)
		return
	}
	if err != nil {
		s.log.Printf("advance: %v", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "advance failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{
		NoOp:     res.NoOp,
		Day:      res.Day,
		Phase:    res.Phase,
		Summary:  res.Summary,
		Routes:   res.Routes,
		Finished: res.Finished,
	})
}

// ===== helpers =====

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string, hints []string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
	}
	e := protocol.NewError(code, msg)
	e.Hints = hints
	writeJSON(w, status, e)
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// suggestFarms returns up to max known ids close to the requested one.
func suggestFarms(id string, known []string, max int) []string {
	type scored struct {
		id   string
		dist int
	}
	want := strings.ToUpper(strings.TrimSpace(id))
	var out []scored
	for _, k := range known {
		d := levenshtein.ComputeDistance(want, strings.ToUpper(k))
		if d > levenshteinLimit(len(k)) {
			continue
		}
		out = append(out, scored{id: k, dist: d})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].dist == out[j].dist {
			return out[i].id < out[j].id
		}
		return out[i].dist < out[j].dist
	})
	if len(out) > max {
		out = out[:max]
	}
	ids := make([]string, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.id)
	}
	return ids
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
