package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"pigflow.ai/internal/sim/playback"
	"pigflow.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of played-back days. The JSONL day
// logs remain the source of truth; writes are queued and may be dropped.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDay     atomic.Uint64
	dropSession atomic.Uint64
}

type reqKind int

const (
	reqDay reqKind = iota + 1
	reqSession
)

type req struct {
	kind reqKind

	day     playback.DayRecord
	session SessionRow
}

type SessionRow struct {
	SessionID      string
	LoadedAt       time.Time
	Farms          int
	Days           int
	Slaughterhouse playback.Slaughterhouse
}

type Stats struct {
	QueueDepth       int    `json:"queue_depth"`
	QueueCapacity    int    `json:"queue_capacity"`
	DropDayTotal     uint64 `json:"drop_day_total"`
	DropSessionTotal uint64 `json:"drop_session_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			loaded_at TEXT NOT NULL,
			farms INTEGER NOT NULL,
			days INTEGER NOT NULL,
			slaughterhouse_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS days (
			session_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			cursor INTEGER NOT NULL,
			trucks INTEGER NOT NULL,
			revenue REAL NOT NULL,
			cost REAL NOT NULL,
			penalty REAL NOT NULL,
			net REAL NOT NULL,
			pigs_processed INTEGER NOT NULL,
			reported_profit REAL NOT NULL,
			digest TEXT NOT NULL,
			finished INTEGER NOT NULL,
			PRIMARY KEY (session_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS routes (
			session_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			truck_id TEXT NOT NULL,
			stops INTEGER NOT NULL,
			pigs INTEGER NOT NULL,
			total_kgs REAL NOT NULL,
			distance REAL NOT NULL,
			duration REAL NOT NULL,
			load_pct REAL NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (session_id, day, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_routes_truck ON routes(truck_id, session_id, day);`,
		`CREATE TABLE IF NOT EXISTS farm_days (
			session_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			farm_id TEXT NOT NULL,
			pigs INTEGER NOT NULL,
			avg_weight REAL NOT NULL,
			visited INTEGER NOT NULL,
			PRIMARY KEY (session_id, day, farm_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_farm_days_farm ON farm_days(farm_id, session_id, day);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropDayTotal:     s.dropDay.Load(),
		DropSessionTotal: s.dropSession.Load(),
	}
}

// WriteDay makes the index a playback.DaySink.
func (s *SQLiteIndex) WriteDay(rec playback.DayRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqDay, day: rec}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropDay.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSession(row SessionRow) {
	if s == nil || s.closed.Load() || row.SessionID == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqSession, session: row}:
	default:
		s.dropSession.Add(1)
	}
}

// UpsertTuning stores the tuning values actually applied (canonical JSON).
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`, "tuning", digest, string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,loaded_at,farms,days,slaughterhouse_json) VALUES(?,?,?,?,?)`)
	insertDay, _ := s.db.Prepare(`INSERT OR REPLACE INTO days(session_id,day,cursor,trucks,revenue,cost,penalty,net,pigs_processed,reported_profit,digest,finished) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertRoute, _ := s.db.Prepare(`INSERT OR REPLACE INTO routes(session_id,day,seq,truck_id,stops,pigs,total_kgs,distance,duration,load_pct,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertFarmDay, _ := s.db.Prepare(`INSERT OR REPLACE INTO farm_days(session_id,day,farm_id,pigs,avg_weight,visited) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertSession, insertDay, insertRoute, insertFarmDay} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSession:
			se := r.session
			if insertSession == nil {
				break
			}
			yard, _ := json.Marshal(se.Slaughterhouse)
			if _, err := tx.Stmt(insertSession).Exec(
				se.SessionID,
				se.LoadedAt.UTC().Format(time.RFC3339Nano),
				se.Farms,
				se.Days,
				string(yard),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqDay:
			if err := s.writeDay(tx, r.day, insertDay, insertRoute, insertFarmDay, &opCount); err != nil {
				rollback()
				continue
			}
		}
		flushIfNeeded()
		// Bursts share a transaction; an idle queue makes the rows visible.
		if len(s.ch) == 0 {
			commit()
		}
	}

	commit()
}

func (s *SQLiteIndex) writeDay(tx *sql.Tx, d playback.DayRecord, insertDay, insertRoute, insertFarmDay *sql.Stmt, opCount *int) error {
	if insertDay != nil {
		sum := d.Summary
		if _, err := tx.Stmt(insertDay).Exec(
			d.SessionID,
			d.Day,
			d.Cursor,
			sum.Trucks,
			sum.Revenue,
			sum.Cost,
			sum.Penalty,
			sum.Net,
			sum.PigsProcessed,
			sum.ReportedProfit,
			d.Digest,
			boolInt(d.Finished),
		); err != nil {
			return err
		}
		*opCount++
	}
	if insertRoute != nil {
		for i, rt := range d.Routes {
			raw, _ := json.Marshal(rt)
			if _, err := tx.Stmt(insertRoute).Exec(
				d.SessionID,
				d.Day,
				i,
				rt.TruckID,
				len(rt.Stops),
				rt.Pigs,
				rt.TotalKgs,
				rt.Distance,
				rt.Duration,
				rt.LoadPct,
				string(raw),
			); err != nil {
				return err
			}
			*opCount++
		}
	}
	if insertFarmDay != nil {
		for _, f := range d.Farms {
			if _, err := tx.Stmt(insertFarmDay).Exec(d.SessionID, d.Day, f.ID, f.Pigs, f.AvgWeight, boolInt(f.VisitedThisWeek)); err != nil {
				return err
			}
			*opCount++
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
