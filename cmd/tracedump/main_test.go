package main

import (
	"bytes"
	"strings"
	"testing"

	"matchsim.ai/internal/decision"
	persistlog "matchsim.ai/internal/persistence/log"
)

func TestSummary_FromTraceDir(t *testing.T) {
	dir := t.TempDir()
	tr := persistlog.NewCycleTrace(dir, nil)
	recs := []decision.CycleRecord{
		{CycleID: "a", StartedAtMS: 1000, Outcome: decision.CycleMerged, Intents: 10, LatencyMS: 20},
		{CycleID: "b", StartedAtMS: 2000, Outcome: decision.CycleSkippedBusy},
		{CycleID: "c", StartedAtMS: 3000, Outcome: decision.CycleFailed, ErrorKind: "timeout", LatencyMS: 5000},
		{CycleID: "d", StartedAtMS: 4000, Outcome: decision.CycleMerged, Intents: 4, LatencyMS: 40},
		{CycleID: "e", StartedAtMS: 5000, Outcome: decision.CycleNotReady},
	}
	for _, r := range recs {
		tr.RecordCycle(r)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	var s summary
	if err := persistlog.ReadDir(dir, func(r decision.CycleRecord) error { s.add(r); return nil }); err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if s.Total != 5 || s.Intents != 14 || s.FirstMS != 1000 || s.LastMS != 5000 {
		t.Fatalf("summary=%+v", s)
	}
	if s.LatencyPercentile(0.5) != 40 || s.LatencyPercentile(1) != 5000 {
		t.Fatalf("p50=%d max=%d", s.LatencyPercentile(0.5), s.LatencyPercentile(1))
	}

	var buf bytes.Buffer
	s.print(&buf)
	out := buf.String()
	for _, want := range []string{"cycles=5", "merged=2", "failed=1", "skipped_busy=1", "not_ready=1", "errors kind=timeout count=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintCycle(t *testing.T) {
	var buf bytes.Buffer
	printCycle(&buf, decision.CycleRecord{CycleID: "x", StartedAtMS: 42, Outcome: decision.CycleFailed, ErrorKind: "malformed", Error: "bad json"})
	if !strings.Contains(buf.String(), `kind=malformed`) || !strings.Contains(buf.String(), `err="bad json"`) {
		t.Fatalf("line=%q", buf.String())
	}
}
