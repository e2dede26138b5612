package indexdb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/sim/intent"
)

func TestSQLiteIndex_OneRowPerCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "cycles.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	plan := &intent.ActionPlan{Intents: []intent.Intent{intent.New(1, intent.StatusContinue, nil, 1000)}, GeneratedAtMS: 1000}
	recs := []decision.CycleRecord{
		{CycleID: "c1", MatchID: "m1", StartedAtMS: 1000, Outcome: decision.CycleMerged, LatencyMS: 12, Intents: 1, Plan: plan},
		{CycleID: "c2", MatchID: "m1", StartedAtMS: 2000, Outcome: decision.CycleFailed, ErrorKind: "timeout", Error: "deadline exceeded"},
		{CycleID: "c3", MatchID: "m1", StartedAtMS: 3000, Outcome: decision.CycleSkippedBusy},
		{CycleID: "c4", MatchID: "m2", StartedAtMS: 1000, Outcome: decision.CycleNotReady},
	}
	for _, r := range recs {
		idx.RecordCycle(r)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen to read what the writer committed.
	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = idx.Close() }()

	rows, err := idx.Cycles(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Cycles: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d want 3", len(rows))
	}
	want := []decision.CycleOutcome{decision.CycleMerged, decision.CycleFailed, decision.CycleSkippedBusy}
	for i, r := range rows {
		if r.Outcome != want[i] {
			t.Fatalf("row %d outcome=%s want %s", i, r.Outcome, want[i])
		}
	}
	if rows[0].Intents != 1 || rows[0].LatencyMS != 12 {
		t.Fatalf("merged row: %+v", rows[0])
	}
	if rows[1].ErrorKind != "timeout" {
		t.Fatalf("failed row error_kind=%q", rows[1].ErrorKind)
	}

	counts, err := idx.OutcomeCounts(context.Background(), "m2")
	if err != nil {
		t.Fatalf("OutcomeCounts: %v", err)
	}
	if counts[decision.CycleNotReady] != 1 || len(counts) != 1 {
		t.Fatalf("counts=%v", counts)
	}
}

func TestSQLiteIndex_RecordIsIdempotentPerCycleID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycles.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordCycle(decision.CycleRecord{CycleID: "dup", MatchID: "m", Outcome: decision.CycleFailed})
	idx.RecordCycle(decision.CycleRecord{CycleID: "dup", MatchID: "m", Outcome: decision.CycleMerged})
	_ = idx.Close()

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = idx.Close() }()
	rows, err := idx.Cycles(context.Background(), "m")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Outcome != decision.CycleMerged {
		t.Fatalf("rows=%+v", rows)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan decision.CycleRecord, 1)}
	s.ch <- decision.CycleRecord{CycleID: "queued"}

	for i := 0; i < 3; i++ {
		s.RecordCycle(decision.CycleRecord{CycleID: fmt.Sprintf("d%d", i)})
	}

	st := s.Stats()
	if st.DropTotal != 3 {
		t.Fatalf("DropTotal=%d want 3", st.DropTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_ClosedIgnoresWrites(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "c.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	_ = idx.Close()
	idx.RecordCycle(decision.CycleRecord{CycleID: "late"})
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
