// Package scripted replays canned planner responses. Responses are raw text
// and go through the same wire parser as a live model, so malformed output
// can be scripted as easily as good output.
package scripted

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/intent"
)

type Step struct {
	Response string        `json:"response"`
	Error    string        `json:"error,omitempty"`
	Delay    time.Duration `json:"-"`
	DelayMS  int           `json:"delay_ms,omitempty"`
}

type Planner struct {
	mu    sync.Mutex
	steps []Step
	next  int
	loop  bool
	calls int
}

// New replays steps in order. With loop set it starts over at the end,
// otherwise it reports not ready once the script is exhausted.
func New(steps []Step, loop bool) *Planner {
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.Delay == 0 && s.DelayMS > 0 {
			s.Delay = time.Duration(s.DelayMS) * time.Millisecond
		}
		out[i] = s
	}
	return &Planner{steps: out, loop: loop}
}

// Responses is New with one plain response per step.
func Responses(loop bool, raw ...string) *Planner {
	steps := make([]Step, 0, len(raw))
	for _, r := range raw {
		steps = append(steps, Step{Response: r})
	}
	return New(steps, loop)
}

// Load reads a JSONL script, one Step object per line. Blank lines and lines
// starting with # are skipped.
func Load(path string, loop bool) (*Planner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var steps []Step
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var s Step
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if s.Error != "" && errorKind(s.Error) == nil {
			return nil, fmt.Errorf("%s:%d: unknown error kind %q", path, line, s.Error)
		}
		steps = append(steps, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(steps, loop), nil
}

func (p *Planner) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps) > 0 && (p.loop || p.next < len(p.steps))
}

// Calls is the number of Generate invocations so far.
func (p *Planner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Planner) Generate(ctx context.Context, c decision.Context) (intent.ActionPlan, error) {
	p.mu.Lock()
	p.calls++
	if len(p.steps) == 0 || (!p.loop && p.next >= len(p.steps)) {
		p.mu.Unlock()
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrUnavailable, fmt.Errorf("script exhausted"))
	}
	s := p.steps[p.next%len(p.steps)]
	p.next++
	p.mu.Unlock()

	start := time.Now()
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrTimeout, ctx.Err())
		case <-timer.C:
		}
	}
	if s.Error != "" {
		kind := errorKind(s.Error)
		if kind == nil {
			kind = decision.ErrInference
		}
		return intent.ActionPlan{}, decision.NewPlannerError(kind, fmt.Errorf("scripted failure"))
	}
	plan, err := protocol.ParsePlan([]byte(s.Response), c.TimeMS, uint64(time.Since(start).Milliseconds()))
	if err != nil {
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrMalformed, err)
	}
	return plan, nil
}

func errorKind(name string) error {
	switch strings.ToLower(name) {
	case "unavailable":
		return decision.ErrUnavailable
	case "inference":
		return decision.ErrInference
	case "malformed":
		return decision.ErrMalformed
	case "timeout":
		return decision.ErrTimeout
	default:
		return nil
	}
}
