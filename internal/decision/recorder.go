package decision

import "matchsim.ai/internal/sim/intent"

type CycleOutcome string

const (
	CycleMerged      CycleOutcome = "merged"
	CycleFailed      CycleOutcome = "failed"
	CycleSkippedBusy CycleOutcome = "skipped_busy"
	CycleNotReady    CycleOutcome = "not_ready"
)

// CycleRecord describes one due planning slot, whether or not the planner ran.
type CycleRecord struct {
	CycleID     string             `json:"cycle_id"`
	MatchID     string             `json:"match_id,omitempty"`
	StartedAtMS uint64             `json:"started_at_ms"`
	Outcome     CycleOutcome       `json:"outcome"`
	ErrorKind   string             `json:"error_kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	LatencyMS   uint64             `json:"latency_ms"`
	Intents     int                `json:"intents"`
	Plan        *intent.ActionPlan `json:"plan,omitempty"`
}

// CycleRecorder receives records on the match loop goroutine; implementations
// must not block for long.
type CycleRecorder interface {
	RecordCycle(r CycleRecord)
}

type CycleRecorderFunc func(CycleRecord)

func (f CycleRecorderFunc) RecordCycle(r CycleRecord) { f(r) }

// MultiRecorder fans a record out to every non-nil recorder.
type MultiRecorder []CycleRecorder

func (m MultiRecorder) RecordCycle(r CycleRecord) {
	for _, rec := range m {
		if rec != nil {
			rec.RecordCycle(r)
		}
	}
}
