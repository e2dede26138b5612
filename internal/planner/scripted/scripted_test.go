package scripted

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/intent"
)

func TestResponses_InOrderThenExhausted(t *testing.T) {
	p := Responses(false,
		`{"intents":[{"player_id":1,"status":"New","action":{"type":"MoveToBall"}}]}`,
		`{"intents":[]}`,
	)
	c := decision.Context{TimeMS: 2000}

	plan, err := p.Generate(context.Background(), c)
	if err != nil || len(plan.Intents) != 1 || plan.Intents[0].Action.Type != intent.ActMoveToBall {
		t.Fatalf("first: %+v err=%v", plan, err)
	}
	if plan.Intents[0].CreatedAtMS != 2000 {
		t.Fatalf("expected created_at from context time, got %d", plan.Intents[0].CreatedAtMS)
	}
	plan, err = p.Generate(context.Background(), c)
	if err != nil || len(plan.Intents) != 0 {
		t.Fatalf("second: %+v err=%v", plan, err)
	}
	if p.Ready() {
		t.Fatalf("expected not ready once exhausted")
	}
	if _, err := p.Generate(context.Background(), c); !errors.Is(err, decision.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if p.Calls() != 3 {
		t.Fatalf("calls: %d", p.Calls())
	}
}

func TestGenerate_MalformedAndLoop(t *testing.T) {
	p := Responses(true, `not json at all`)
	for i := 0; i < 3; i++ {
		_, err := p.Generate(context.Background(), decision.Context{})
		if !errors.Is(err, decision.ErrMalformed) || !errors.Is(err, protocol.ErrMalformedPlan) {
			t.Fatalf("expected malformed, got %v", err)
		}
	}
	if !p.Ready() {
		t.Fatalf("looping script should stay ready")
	}
}

func TestGenerate_DelayHonoursContext(t *testing.T) {
	p := New([]Step{{Response: `{"intents":[]}`, Delay: time.Minute}}, false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Generate(ctx, decision.Context{}); !errors.Is(err, decision.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.jsonl")
	body := "# opening\n" +
		`{"response":"{\"intents\":[{\"player_id\":3,\"status\":\"new\",\"action\":{\"type\":\"Press\",\"target\":{\"x\":1,\"y\":2}}}]}"}` + "\n" +
		"\n" +
		`{"error":"timeout"}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	plan, err := p.Generate(context.Background(), decision.Context{})
	if err != nil || len(plan.Intents) != 1 || plan.Intents[0].Action.Type != intent.ActPress {
		t.Fatalf("first step: %+v err=%v", plan, err)
	}
	if _, err := p.Generate(context.Background(), decision.Context{}); !errors.Is(err, decision.ErrTimeout) {
		t.Fatalf("expected scripted timeout, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	_ = os.WriteFile(bad, []byte(`{"error":"gremlins"}`+"\n"), 0o644)
	if _, err := Load(bad, false); err == nil {
		t.Fatalf("expected unknown error kind rejected")
	}
}
