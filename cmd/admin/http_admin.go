package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/persistence/indexdb"
	"matchsim.ai/internal/sim/match"
)

// adminState mirrors the server's /admin/v1/state body.
type adminState struct {
	MatchID   string                       `json:"match_id"`
	Tick      uint64                       `json:"tick"`
	Match     match.MatchMetrics           `json:"match"`
	Decision  decision.OrchestratorMetrics `json:"decision"`
	BotName   string                       `json:"bot_name"`
	Index     *indexdb.Stats               `json:"index"`
	PlannerOK bool                         `json:"planner_ready"`
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	cl := &http.Client{Timeout: 5 * time.Second}
	st, err := fetchState(cl, *baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	printState(os.Stdout, st)
}

func fetchState(cl *http.Client, baseURL string) (adminState, error) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/state"
	resp, err := cl.Get(u)
	if err != nil {
		return adminState{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return adminState{}, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var st adminState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return adminState{}, fmt.Errorf("decode: %w", err)
	}
	return st, nil
}

func printState(w io.Writer, st adminState) {
	m, d := st.Match, st.Decision
	fmt.Fprintf(w, "match=%s tick=%d period=%s time_ms=%d score=%d-%d finished=%v\n",
		st.MatchID, st.Tick, m.Period, m.TimeMS, m.HomeScore, m.AwayScore, m.Finished)
	fmt.Fprintf(w, "intents=%d events=%d observers=%d step_ms=%.3f\n", m.Intents, m.Events, m.Observers, m.StepMS)

	bot := st.BotName
	if bot == "" {
		bot = "-"
	}
	fmt.Fprintf(w, "planner ready=%v bot=%s in_flight=%v last_decision_ms=%d last_latency_ms=%d\n",
		st.PlannerOK, bot, d.InFlight, d.LastDecisionMS, d.LastLatencyMS)
	fmt.Fprintf(w, "cycles started=%d merged=%d failed=%d skipped_busy=%d skipped_not_ready=%d\n",
		d.CyclesStarted, d.CyclesMerged, d.CyclesFailed, d.SkippedBusy, d.SkippedNotReady)
	if d.LastErrorKind != "" {
		fmt.Fprintf(w, "last_error=%s\n", d.LastErrorKind)
	}
	if ix := st.Index; ix != nil {
		fmt.Fprintf(w, "index queue=%d/%d written=%d dropped=%d\n", ix.QueueDepth, ix.QueueCapacity, ix.WrittenTotal, ix.DropTotal)
	}
}
