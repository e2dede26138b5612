package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"matchsim.ai/internal/decision"
)

// SQLiteIndex is a queryable read-model of planning cycles. Writes go through a
// buffered channel to a single writer goroutine; the trace files stay the
// source of truth, so a full queue drops rows instead of stalling the match.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan decision.CycleRecord
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
	written atomic.Uint64
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTotal     uint64 `json:"drop_total"`
	WrittenTotal  uint64 `json:"written_total"`
}

// CycleRow is one row of the cycles table.
type CycleRow struct {
	CycleID     string                `json:"cycle_id"`
	MatchID     string                `json:"match_id"`
	StartedAtMS uint64                `json:"started_at_ms"`
	Outcome     decision.CycleOutcome `json:"outcome"`
	ErrorKind   string                `json:"error_kind,omitempty"`
	LatencyMS   uint64                `json:"latency_ms"`
	Intents     int                   `json:"intents"`
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
		ch: make(chan decision.CycleRecord, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS cycles (
			cycle_id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error_kind TEXT,
			error TEXT,
			latency_ms INTEGER NOT NULL,
			intents INTEGER NOT NULL,
			plan_json TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_match_time ON cycles(match_id, started_at_ms);`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_outcome ON cycles(outcome);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue, commits, and closes the database.
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

// RecordCycle implements decision.CycleRecorder.
func (s *SQLiteIndex) RecordCycle(r decision.CycleRecord) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropped.Load(),
		WrittenTotal:  s.written.Load(),
	}
}

// Cycles returns rows for matchID ordered by start time. Rows still queued
// are not visible until the writer commits them.
func (s *SQLiteIndex) Cycles(ctx context.Context, matchID string) ([]CycleRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cycle_id, match_id, started_at_ms, outcome, COALESCE(error_kind,''), latency_ms, intents
		 FROM cycles WHERE match_id = ? ORDER BY started_at_ms, rowid`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var r CycleRow
		var started, latency int64
		var outcome string
		if err := rows.Scan(&r.CycleID, &r.MatchID, &started, &outcome, &r.ErrorKind, &latency, &r.Intents); err != nil {
			return nil, err
		}
		r.StartedAtMS = uint64(started)
		r.LatencyMS = uint64(latency)
		r.Outcome = decision.CycleOutcome(outcome)
		out = append(out, r)
	}
	return out, rows.Err()
}

// OutcomeCounts tallies rows per outcome for matchID.
func (s *SQLiteIndex) OutcomeCounts(ctx context.Context, matchID string) (map[decision.CycleOutcome]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM cycles WHERE match_id = ? GROUP BY outcome`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[decision.CycleOutcome]int{}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[decision.CycleOutcome(outcome)] = n
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCycle, _ := s.db.Prepare(`INSERT OR REPLACE INTO cycles(cycle_id,match_id,started_at_ms,outcome,error_kind,error,latency_ms,intents,plan_json,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertCycle != nil {
			_ = insertCycle.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		pending       uint64
		lastCommit    = time.Now()
		commitEvery   = 200
		commitMaxWait = time.Second
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
		if err := tx.Commit(); err == nil {
			s.written.Add(pending)
		}
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// Cycles arrive about once a second; commit promptly when the queue is idle.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil || insertCycle == nil {
			continue
		}
		var planJSON sql.NullString
		if r.Plan != nil {
			b, _ := json.Marshal(r.Plan)
			planJSON = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := tx.Stmt(insertCycle).Exec(
			r.CycleID,
			r.MatchID,
			int64(r.StartedAtMS),
			string(r.Outcome),
			nullString(r.ErrorKind),
			nullString(r.Error),
			int64(r.LatencyMS),
			r.Intents,
			planJSON,
			time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		pending++
		flushIfNeeded()
	}

	commit()
}
