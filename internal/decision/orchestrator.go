package decision

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"matchsim.ai/internal/sim/intent"
	"matchsim.ai/internal/sim/match"
)

type OrchestratorConfig struct {
	IntervalMS uint64
	Timeout    time.Duration
	Recorder   CycleRecorder
	Logger     *log.Logger
}

// OrchestratorMetrics is safe to read from any goroutine.
type OrchestratorMetrics struct {
	CyclesStarted   uint64 `json:"cycles_started"`
	CyclesMerged    uint64 `json:"cycles_merged"`
	CyclesFailed    uint64 `json:"cycles_failed"`
	SkippedBusy     uint64 `json:"skipped_busy"`
	SkippedNotReady uint64 `json:"skipped_not_ready"`
	LastDecisionMS  uint64 `json:"last_decision_ms"`
	LastLatencyMS   uint64 `json:"last_latency_ms"`
	LastErrorKind   string `json:"last_error_kind,omitempty"`
	InFlight        bool   `json:"in_flight"`
}

type outcome struct {
	cycleID string
	matchID string
	startMS uint64
	plan    intent.ActionPlan
	err     error
}

// Orchestrator runs planning cycles off the match loop and hands completed
// plans back through a channel drained by Collect. It implements match.Decider.
//
// Tick and Collect must be called from the match loop goroutine only.
type Orchestrator struct {
	planner  Planner
	interval uint64
	timeout  time.Duration
	recorder CycleRecorder
	logger   *log.Logger

	base   context.Context
	cancel context.CancelFunc

	results chan outcome

	lastDecisionMS uint64
	inFlight       bool
	// worker is closed when the planner call returns. It outlives inFlight
	// when a timed-out call ignores its context.
	worker chan struct{}
	counters       OrchestratorMetrics

	metrics atomic.Value
}

func NewOrchestrator(p Planner, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.IntervalMS == 0 {
		cfg.IntervalMS = 1000
	}
	base, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		planner:  p,
		interval: cfg.IntervalMS,
		timeout:  cfg.Timeout,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		base:     base,
		cancel:   cancel,
		// Capacity 1: at most one cycle is ever outstanding.
		results: make(chan outcome, 1),
	}
	o.publish()
	return o
}

var _ match.Decider = (*Orchestrator)(nil)

// Tick starts a planning cycle when one is due. The timer is stamped for
// every due slot, including ones skipped because the planner is busy or not
// ready, so a slow or failing planner never causes immediate re-triggering.
func (o *Orchestrator) Tick(nowMS uint64, m *match.Match) {
	if nowMS < o.lastDecisionMS+o.interval {
		return
	}
	o.lastDecisionMS = nowMS
	o.counters.LastDecisionMS = nowMS
	defer o.publish()

	if o.inFlight || o.workerBusy() {
		o.counters.SkippedBusy++
		o.record(CycleRecord{CycleID: uuid.NewString(), MatchID: m.ID(), StartedAtMS: nowMS, Outcome: CycleSkippedBusy})
		return
	}
	if !o.planner.Ready() {
		o.counters.SkippedNotReady++
		o.record(CycleRecord{CycleID: uuid.NewString(), MatchID: m.ID(), StartedAtMS: nowMS, Outcome: CycleNotReady})
		return
	}
	if o.base.Err() != nil {
		return
	}

	snap := BuildContext(m)
	o.inFlight = true
	o.worker = make(chan struct{})
	o.counters.CyclesStarted++
	go o.run(outcome{cycleID: uuid.NewString(), matchID: snap.MatchID, startMS: nowMS}, snap, o.worker)
}

// workerBusy reports whether the last planner call is still running.
func (o *Orchestrator) workerBusy() bool {
	if o.worker == nil {
		return false
	}
	select {
	case <-o.worker:
		o.worker = nil
		return false
	default:
		return true
	}
}

func (o *Orchestrator) run(out outcome, snap Context, worker chan struct{}) {
	ctx := o.base
	cancel := func() {}
	if o.timeout > 0 {
		ctx, cancel = context.WithTimeout(o.base, o.timeout)
	}
	defer cancel()

	type result struct {
		plan intent.ActionPlan
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		plan, err := o.planner.Generate(ctx, snap)
		close(worker)
		done <- result{plan: plan, err: err}
	}()

	select {
	case r := <-done:
		out.plan, out.err = r.plan, r.err
		if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.err = NewPlannerError(ErrTimeout, out.err)
		}
	case <-ctx.Done():
		out.err = NewPlannerError(ErrTimeout, ctx.Err())
	}
	if o.base.Err() != nil {
		// Shut down while in flight: abandon.
		return
	}
	if out.err != nil {
		out.err = asPlannerError(out.err)
	}
	out.plan.GeneratedAtMS = snap.TimeMS
	out.plan.LatencyMS = uint64(time.Since(start).Milliseconds())
	o.results <- out
}

// Collect returns the intents of a completed cycle, if any. Failed cycles are
// consumed and logged but yield nothing, so existing intents stay untouched.
func (o *Orchestrator) Collect() ([]intent.Intent, bool) {
	select {
	case out := <-o.results:
		return o.consume(out)
	default:
		return nil, false
	}
}

// Await blocks until the outstanding cycle completes. It is meant for tests
// and tools that drive the match loop by hand.
func (o *Orchestrator) Await(ctx context.Context) ([]intent.Intent, bool, error) {
	if !o.inFlight {
		return nil, false, nil
	}
	select {
	case out := <-o.results:
		batch, ok := o.consume(out)
		return batch, ok, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (o *Orchestrator) consume(out outcome) ([]intent.Intent, bool) {
	o.inFlight = false
	defer o.publish()

	rec := CycleRecord{
		CycleID:     out.cycleID,
		MatchID:     out.matchID,
		StartedAtMS: out.startMS,
		LatencyMS:   out.plan.LatencyMS,
	}
	o.counters.LastLatencyMS = out.plan.LatencyMS

	if out.err != nil {
		o.counters.CyclesFailed++
		o.counters.LastErrorKind = KindName(out.err)
		rec.Outcome = CycleFailed
		rec.ErrorKind = KindName(out.err)
		rec.Error = out.err.Error()
		o.record(rec)
		o.logger.Printf("planning cycle abandoned at t=%dms: %v", out.startMS, out.err)
		return nil, false
	}

	o.counters.CyclesMerged++
	o.counters.LastErrorKind = ""
	plan := out.plan
	rec.Outcome = CycleMerged
	rec.Intents = len(plan.Intents)
	rec.Plan = &plan
	o.record(rec)
	return plan.Intents, true
}

func (o *Orchestrator) record(r CycleRecord) {
	if o.recorder != nil {
		o.recorder.RecordCycle(r)
	}
}

func (o *Orchestrator) publish() {
	m := o.counters
	m.InFlight = o.inFlight || o.workerBusy()
	o.metrics.Store(m)
}

func (o *Orchestrator) Metrics() OrchestratorMetrics {
	v := o.metrics.Load()
	if v == nil {
		return OrchestratorMetrics{}
	}
	m, _ := v.(OrchestratorMetrics)
	return m
}

// InFlight reports whether a cycle or its planner call is outstanding.
// Loop goroutine only.
func (o *Orchestrator) InFlight() bool { return o.inFlight || o.workerBusy() }

// Close abandons any outstanding cycle without waiting for it.
func (o *Orchestrator) Close() { o.cancel() }
