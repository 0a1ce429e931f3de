package playback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pigflow.ai/internal/protocol"
)

var (
	ErrAdvanceInProgress = errors.New("advance already in progress")
	ErrLoadInProgress    = errors.New("load already in progress")
	ErrNilDataset        = errors.New("nil dataset")
)

// Fetcher supplies the dataset for a load. Implementations live in
// internal/dataset.
type Fetcher interface {
	Fetch(ctx context.Context) (*protocol.Dataset, error)
}

type FetcherFunc func(ctx context.Context) (*protocol.Dataset, error)

func (f FetcherFunc) Fetch(ctx context.Context) (*protocol.Dataset, error) { return f(ctx) }

// DaySink receives one record per applied day, in order.
type DaySink interface {
	WriteDay(DayRecord) error
}

type DayRecord struct {
	SessionID string     `json:"session_id"`
	Day       int        `json:"day"`
	Cursor    int        `json:"cursor"`
	Summary   DaySummary `json:"summary"`
	Routes    []Route    `json:"routes"`
	Farms     []Farm     `json:"farms"`
	Totals    Totals     `json:"totals"`
	Digest    string     `json:"digest"`
	Finished  bool       `json:"finished"`
}

type AdvanceResult struct {
	// NoOp is set when the engine was not running; only a log entry was added.
	NoOp     bool
	Day      int
	Phase    Phase
	Summary  DaySummary
	Routes   int
	Finished bool
}

type Config struct {
	GrowthRateKg  float64
	WeeklyReset   WeeklyReset
	MaxDays       int
	MaxLogEntries int

	// Slaughterhouse fills fields the dataset leaves empty.
	Slaughterhouse Slaughterhouse
}

type session struct {
	id       string
	loadedAt time.Time

	yard   Slaughterhouse
	prices protocol.Prices
	meta   MetadataIndex
	logs   []protocol.DailyLog
	limit  int

	farms  *FarmRepo
	ledger Ledger
	routes []Route
	day    int
	digest string
}

func (s *session) finished() bool { return s.day >= s.limit }

// Engine replays a day-log sequence one entry per Advance. It has a single
// writer (Advance or Load, serialized by mu) and any number of readers.
type Engine struct {
	cfg Config
	log *log.Logger

	mu      sync.RWMutex
	sess    *session
	running bool
	narr    *Narrator

	advancing atomic.Bool
	loading   atomic.Bool

	sinks []DaySink

	subMu   sync.Mutex
	subs    map[uint64]chan Update
	nextSub uint64
}

func New(cfg Config, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[playback] ", log.LstdFlags)
	}
	return &Engine{
		cfg:  cfg,
		log:  logger,
		narr: newNarrator(cfg.MaxLogEntries),
		subs: map[uint64]chan Update{},
	}
}

// AddSink must be called before playback starts.
func (e *Engine) AddSink(s DaySink) {
	if s == nil {
		return
	}
	e.mu.Lock()
	e.sinks = append(e.sinks, s)
	e.mu.Unlock()
}

func (e *Engine) Config() Config { return e.cfg }

// Load fetches a dataset and replaces the whole session with it. On failure
// the previous world is left as it was, but playback stops until a later
// load succeeds.
func (e *Engine) Load(ctx context.Context, f Fetcher) error {
	if !e.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer e.loading.Store(false)

	ds, err := f.Fetch(ctx)
	if err == nil && ds == nil {
		err = ErrNilDataset
	}
	var sess *session
	if err == nil {
		sess, err = newSession(ds, e.cfg)
	}
	if err != nil {
		e.mu.Lock()
		e.running = false
		e.narr.loadFailed(err)
		day, phase := e.dayPhaseLocked()
		e.mu.Unlock()
		e.log.Printf("load failed: %v", err)
		e.notify(Update{Kind: UpdateLoadFailed, Day: day, Phase: phase})
		return fmt.Errorf("load: %w", err)
	}

	e.mu.Lock()
	e.sess = sess
	e.running = true
	e.narr = newNarrator(e.cfg.MaxLogEntries)
	e.narr.loaded(sess.farms.Len(), sess.limit)
	if sess.finished() {
		e.narr.finished(sess.day, sess.ledger.Totals())
	}
	day, phase := e.dayPhaseLocked()
	e.mu.Unlock()

	e.log.Printf("loaded session=%s farms=%d days=%d stops=%d", sess.id, sess.farms.Len(), sess.limit, sess.meta.Len())
	e.notify(Update{Kind: UpdateLoaded, Day: day, Phase: phase})
	return nil
}

func newSession(ds *protocol.Dataset, cfg Config) (*session, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	yard := Slaughterhouse{
		ID:       ds.Slaughterhouse.ID,
		Name:     ds.Slaughterhouse.Name,
		Lat:      ds.Slaughterhouse.Lat,
		Lng:      ds.Slaughterhouse.Lng,
		Capacity: ds.Slaughterhouse.Capacity,
	}
	if yard.Name == "" {
		yard.Name = cfg.Slaughterhouse.Name
	}
	if yard.Lat == 0 && yard.Lng == 0 {
		yard.Lat, yard.Lng = cfg.Slaughterhouse.Lat, cfg.Slaughterhouse.Lng
	}
	if yard.Capacity <= 0 {
		yard.Capacity = cfg.Slaughterhouse.Capacity
	}

	logs := append([]protocol.DailyLog(nil), ds.Simulation.DailyLogs...)
	limit := len(logs)
	if cfg.MaxDays > 0 && cfg.MaxDays < limit {
		limit = cfg.MaxDays
	}

	s := &session{
		id:       uuid.NewString(),
		loadedAt: time.Now().UTC(),
		yard:     yard,
		prices:   ds.Prices,
		meta:     newMetadataIndex(ds.Simulation.Metadata),
		logs:     logs,
		limit:    limit,
		farms:    newFarmRepo(ds.Farms),
	}
	s.digest = stateDigest(s)
	return s, nil
}

// Advance applies the next day-log entry. Outside the running phase it only
// records an informational log entry. Overlapping calls are rejected.
func (e *Engine) Advance() (AdvanceResult, error) {
	if !e.advancing.CompareAndSwap(false, true) {
		return AdvanceResult{}, ErrAdvanceInProgress
	}
	defer e.advancing.Store(false)

	e.mu.Lock()
	s := e.sess
	if s == nil || !e.running {
		e.narr.notStarted()
		day, phase := e.dayPhaseLocked()
		e.mu.Unlock()
		return AdvanceResult{NoOp: true, Day: day, Phase: phase}, nil
	}
	if s.finished() {
		e.narr.alreadyFinished(s.day)
		e.mu.Unlock()
		return AdvanceResult{NoOp: true, Day: s.day, Phase: PhaseFinished, Finished: true}, nil
	}

	cursor := s.day
	entry := s.logs[cursor]

	// The entry's own day is authoritative. It may skip ahead, but never
	// backwards or in place, and never past the end of the sequence.
	next := entry.Day
	if next <= s.day {
		next = s.day + 1
	}
	if next > s.limit {
		next = s.limit
	}

	res := NewResolver(s.meta, s.farms, s.yard.Pos())
	rep := reconstructRoutes(entry.TruckOps, res, s.yard.Pos())
	mut := s.farms.applyDay(next, rep.Visits, e.cfg.GrowthRateKg, e.cfg.WeeklyReset)
	sum := s.ledger.Apply(next, entry)

	s.routes = rep.Routes
	s.day = next
	s.digest = stateDigest(s)

	e.narr.day(sum, rep.Routes, mut, rep)
	done := s.finished()
	totals := s.ledger.Totals()
	if done {
		e.narr.finished(s.day, totals)
	}

	rec := DayRecord{
		SessionID: s.id,
		Day:       s.day,
		Cursor:    cursor,
		Summary:   sum,
		Routes:    copyRoutes(s.routes),
		Farms:     s.farms.List(),
		Totals:    totals,
		Digest:    s.digest,
		Finished:  done,
	}
	sinks := e.sinks
	phase := PhaseRunning
	if done {
		phase = PhaseFinished
	}
	e.mu.Unlock()

	// Sinks run under the advance guard, so records stay ordered.
	for _, sink := range sinks {
		if err := sink.WriteDay(rec); err != nil {
			e.log.Printf("day sink: day=%d: %v", rec.Day, err)
		}
	}

	kind := UpdateAdvanced
	if done {
		kind = UpdateFinished
	}
	e.notify(Update{Kind: kind, Day: rec.Day, Phase: phase})

	return AdvanceResult{
		Day:      rec.Day,
		Phase:    phase,
		Summary:  sum,
		Routes:   len(rec.Routes),
		Finished: done,
	}, nil
}

func (e *Engine) dayPhaseLocked() (int, Phase) {
	s := e.sess
	if s == nil {
		return 0, PhaseNotStarted
	}
	if s.finished() {
		return s.day, PhaseFinished
	}
	if !e.running {
		return s.day, PhaseNotStarted
	}
	return s.day, PhaseRunning
}

func copyRoutes(in []Route) []Route {
	if in == nil {
		return nil
	}
	out := make([]Route, len(in))
	for i, r := range in {
		r.Stops = append([]RouteStop(nil), r.Stops...)
		r.Path = append([]LatLng(nil), r.Path...)
		out[i] = r
	}
	return out
}
