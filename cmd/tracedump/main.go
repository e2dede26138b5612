package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"matchsim.ai/internal/decision"
	persistlog "matchsim.ai/internal/persistence/log"
)

func main() {
	var (
		dir     = flag.String("dir", "", "cycles dir containing cycles-*.jsonl.zst")
		file    = flag.String("file", "", "single trace file (instead of -dir)")
		quiet   = flag.Bool("q", false, "print totals only")
		matchID = flag.String("match", "", "only cycles for this match id")
	)
	flag.Parse()

	if *dir == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "missing -dir or -file")
		os.Exit(2)
	}

	var s summary
	visit := func(r decision.CycleRecord) error {
		if *matchID != "" && r.MatchID != *matchID {
			return nil
		}
		s.add(r)
		if !*quiet {
			printCycle(os.Stdout, r)
		}
		return nil
	}

	var err error
	if *file != "" {
		err = persistlog.ReadCycles(*file, visit)
	} else {
		err = persistlog.ReadDir(*dir, visit)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read traces:", err)
		os.Exit(1)
	}
	if s.Total == 0 {
		fmt.Fprintln(os.Stderr, "no cycles found")
		os.Exit(1)
	}
	s.print(os.Stdout)
}

func printCycle(w io.Writer, r decision.CycleRecord) {
	line := fmt.Sprintf("t=%7dms %-12s %s", r.StartedAtMS, r.Outcome, r.CycleID)
	switch r.Outcome {
	case decision.CycleMerged:
		line += fmt.Sprintf(" intents=%d latency=%dms", r.Intents, r.LatencyMS)
	case decision.CycleFailed:
		line += fmt.Sprintf(" kind=%s latency=%dms err=%q", r.ErrorKind, r.LatencyMS, r.Error)
	}
	fmt.Fprintln(w, line)
}

type summary struct {
	Total     int
	ByOutcome map[decision.CycleOutcome]int
	ByError   map[string]int
	Intents   int
	latencies []uint64
	FirstMS   uint64
	LastMS    uint64
	seenFirst bool
}

func (s *summary) add(r decision.CycleRecord) {
	if s.ByOutcome == nil {
		s.ByOutcome = map[decision.CycleOutcome]int{}
		s.ByError = map[string]int{}
	}
	s.Total++
	s.ByOutcome[r.Outcome]++
	if r.ErrorKind != "" {
		s.ByError[r.ErrorKind]++
	}
	if r.Outcome == decision.CycleMerged {
		s.Intents += r.Intents
	}
	if r.Outcome == decision.CycleMerged || r.Outcome == decision.CycleFailed {
		s.latencies = append(s.latencies, r.LatencyMS)
	}
	if !s.seenFirst || r.StartedAtMS < s.FirstMS {
		s.FirstMS = r.StartedAtMS
		s.seenFirst = true
	}
	if r.StartedAtMS > s.LastMS {
		s.LastMS = r.StartedAtMS
	}
}

// LatencyPercentile uses nearest-rank over completed cycles.
func (s *summary) LatencyPercentile(p float64) uint64 {
	if len(s.latencies) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), s.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p*float64(len(sorted))+0.999999) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (s *summary) print(w io.Writer) {
	fmt.Fprintf(w, "cycles=%d span=%d..%dms merged=%d failed=%d skipped_busy=%d not_ready=%d intents=%d\n",
		s.Total, s.FirstMS, s.LastMS,
		s.ByOutcome[decision.CycleMerged], s.ByOutcome[decision.CycleFailed],
		s.ByOutcome[decision.CycleSkippedBusy], s.ByOutcome[decision.CycleNotReady], s.Intents)
	if len(s.latencies) > 0 {
		fmt.Fprintf(w, "latency p50=%dms p95=%dms max=%dms\n",
			s.LatencyPercentile(0.5), s.LatencyPercentile(0.95), s.LatencyPercentile(1))
	}
	if len(s.ByError) > 0 {
		kinds := make([]string, 0, len(s.ByError))
		for k := range s.ByError {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "errors kind=%s count=%d\n", k, s.ByError[k])
		}
	}
}
