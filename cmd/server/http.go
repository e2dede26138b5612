package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/persistence/indexdb"
	"matchsim.ai/internal/sim/match"
	"matchsim.ai/internal/transport/observer"
	"matchsim.ai/internal/transport/ws"
)

type runtime struct {
	match  *match.Match
	orch   *decision.Orchestrator
	remote *ws.Server
	index  *indexdb.SQLiteIndex

	enableAdmin bool
	logger      *log.Logger
}

func (rt *runtime) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", rt.handleMetrics)

	if rt.enableAdmin {
		// Local-only admin endpoints (read-only views of the match).
		mux.HandleFunc("/admin/v1/state", rt.handleState)
		obsSrv := observer.NewServer(rt.match, rt.logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	}
	if rt.remote != nil {
		mux.HandleFunc("/v1/planner", rt.remote.Handler())
	}
	return mux
}

// stateResponse is read from metrics snapshots only; the live match state
// belongs to the match loop goroutine.
type stateResponse struct {
	MatchID   string                       `json:"match_id"`
	Tick      uint64                       `json:"tick"`
	Match     match.MatchMetrics           `json:"match"`
	Decision  decision.OrchestratorMetrics `json:"decision"`
	BotName   string                       `json:"bot_name,omitempty"`
	Index     *indexdb.Stats               `json:"index,omitempty"`
	PlannerOK bool                         `json:"planner_ready"`
}

func (rt *runtime) handleState(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	resp := stateResponse{
		MatchID:  rt.match.ID(),
		Tick:     rt.match.CurrentTick(),
		Match:    rt.match.Metrics(),
		Decision: rt.orch.Metrics(),
	}
	if rt.remote != nil {
		resp.BotName = rt.remote.BotName()
		resp.PlannerOK = rt.remote.Ready()
	}
	if rt.index != nil {
		st := rt.index.Stats()
		resp.Index = &st
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}

func (rt *runtime) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	id := rt.match.ID()
	m := rt.match.Metrics()
	d := rt.orch.Metrics()

	// Minimal Prometheus exposition format.
	gauge(rw, "matchsim_match_tick", "Current match tick.", id, float64(m.Tick))
	gauge(rw, "matchsim_match_time_ms", "Simulated match clock in milliseconds.", id, float64(m.TimeMS))
	gauge(rw, "matchsim_match_intents", "Installed intents.", id, float64(m.Intents))
	gauge(rw, "matchsim_match_observers", "Connected observers.", id, float64(m.Observers))
	gauge(rw, "matchsim_match_finished", "1 once the match has reached full time.", id, boolGauge(m.Finished))

	fmt.Fprintf(rw, "# HELP matchsim_match_score Goals per team.\n")
	fmt.Fprintf(rw, "# TYPE matchsim_match_score gauge\n")
	fmt.Fprintf(rw, "matchsim_match_score{match=%q,team=%q} %d\n", id, "home", m.HomeScore)
	fmt.Fprintf(rw, "matchsim_match_score{match=%q,team=%q} %d\n", id, "away", m.AwayScore)

	fmt.Fprintf(rw, "# HELP matchsim_match_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE matchsim_match_step_ms gauge\n")
	fmt.Fprintf(rw, "matchsim_match_step_ms{match=%q} %.3f\n", id, m.StepMS)

	fmt.Fprintf(rw, "# HELP matchsim_planning_cycles_total Planning cycles by outcome.\n")
	fmt.Fprintf(rw, "# TYPE matchsim_planning_cycles_total counter\n")
	fmt.Fprintf(rw, "matchsim_planning_cycles_total{match=%q,outcome=%q} %d\n", id, decision.CycleMerged, d.CyclesMerged)
	fmt.Fprintf(rw, "matchsim_planning_cycles_total{match=%q,outcome=%q} %d\n", id, decision.CycleFailed, d.CyclesFailed)
	fmt.Fprintf(rw, "matchsim_planning_cycles_total{match=%q,outcome=%q} %d\n", id, decision.CycleSkippedBusy, d.SkippedBusy)
	fmt.Fprintf(rw, "matchsim_planning_cycles_total{match=%q,outcome=%q} %d\n", id, decision.CycleNotReady, d.SkippedNotReady)

	gauge(rw, "matchsim_planning_last_latency_ms", "Latency of the last completed planning cycle.", id, float64(d.LastLatencyMS))
	gauge(rw, "matchsim_planning_in_flight", "1 while a planning cycle is running.", id, boolGauge(d.InFlight))

	if rt.index != nil {
		st := rt.index.Stats()
		fmt.Fprintf(rw, "# HELP matchsim_index_queue_depth Cycle index queue depth.\n")
		fmt.Fprintf(rw, "# TYPE matchsim_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "matchsim_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP matchsim_index_dropped_total Cycle records dropped because the index queue was full.\n")
		fmt.Fprintf(rw, "# TYPE matchsim_index_dropped_total counter\n")
		fmt.Fprintf(rw, "matchsim_index_dropped_total %d\n", st.DropTotal)
	}
}

func gauge(rw http.ResponseWriter, name, help, matchID string, v float64) {
	fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
	fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
	fmt.Fprintf(rw, "%s{match=%q} %g\n", name, matchID, v)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
