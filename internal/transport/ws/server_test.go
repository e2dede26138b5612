package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/planner/heuristic"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/match"
	"matchsim.ai/internal/sim/tuning"
)

func testContext(t *testing.T) decision.Context {
	t.Helper()
	m, err := match.NewFiveASide(match.Config{ID: "ws", Tuning: tuning.Defaults()}, nil)
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	for i := 0; i < 30; i++ {
		m.Step()
	}
	return decision.BuildContext(m)
}

func heuristicPlan(ctx context.Context, c decision.Context) ([]byte, error) {
	plan, err := heuristic.New(heuristic.Config{}).Plan(c)
	if err != nil {
		return nil, err
	}
	return protocol.EncodePlan(plan)
}

type harness struct {
	srv    *Server
	http   *httptest.Server
	cancel []context.CancelFunc
	done   []chan error
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{srv: NewServer(cfg, nil)}
	h.http = httptest.NewServer(h.srv.Handler())
	return h
}

func (h *harness) url() string { return "ws" + strings.TrimPrefix(h.http.URL, "http") }

func (h *harness) startBot(t *testing.T, b *Bot) chan error {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx, conn)
		conn.Close()
	}()
	h.cancel = append(h.cancel, cancel)
	h.done = append(h.done, done)
	return done
}

func (h *harness) close() {
	for _, c := range h.cancel {
		c()
	}
	for _, d := range h.done {
		select {
		case <-d:
		case <-time.After(2 * time.Second):
		}
	}
	h.http.Close()
}

func waitReady(t *testing.T, s *Server, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Ready() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ready never became %v", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGenerate_NoBotIsUnavailable(t *testing.T) {
	h := newHarness(t, Config{})
	defer h.close()
	if h.srv.Ready() {
		t.Fatalf("expected not ready without a bot")
	}
	if _, err := h.srv.Generate(context.Background(), decision.Context{}); !errors.Is(err, decision.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestGenerate_RoundTripThroughBot(t *testing.T) {
	h := newHarness(t, Config{MatchID: "ws", DecisionIntervalMs: 1000, TimeoutMs: 2000})
	defer h.close()
	h.startBot(t, &Bot{Name: "coach", Plan: heuristicPlan})
	waitReady(t, h.srv, true)
	if h.srv.BotName() != "coach" {
		t.Fatalf("bot name: %q", h.srv.BotName())
	}

	c := testContext(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := h.srv.Generate(ctx, c)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want, _ := heuristic.New(heuristic.Config{}).Plan(c)
	if len(got.Intents) != 10 {
		t.Fatalf("expected 10 intents, got %d", len(got.Intents))
	}
	for i := range want.Intents {
		if got.Intents[i].PlayerID != want.Intents[i].PlayerID || !reflect.DeepEqual(got.Intents[i].Action, want.Intents[i].Action) {
			t.Fatalf("intent %d: got %+v want %+v", i, got.Intents[i], want.Intents[i])
		}
	}
}

func TestGenerate_SilentBotTimesOut(t *testing.T) {
	h := newHarness(t, Config{})
	defer h.close()
	block := make(chan struct{})
	defer close(block)
	h.startBot(t, &Bot{Name: "slow", Plan: func(ctx context.Context, c decision.Context) ([]byte, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return []byte(`{"intents":[]}`), nil
	}})
	waitReady(t, h.srv, true)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := h.srv.Generate(ctx, testContext(t)); !errors.Is(err, decision.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestGenerate_BotErrorIsInference(t *testing.T) {
	h := newHarness(t, Config{})
	defer h.close()
	h.startBot(t, &Bot{Name: "broken", Plan: func(context.Context, decision.Context) ([]byte, error) {
		return nil, errors.New("model not loaded")
	}})
	waitReady(t, h.srv, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := h.srv.Generate(ctx, testContext(t))
	if !errors.Is(err, decision.ErrInference) || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected inference error, got %v", err)
	}
}

func TestGenerate_MalformedPlanFromBot(t *testing.T) {
	h := newHarness(t, Config{})
	defer h.close()
	h.startBot(t, &Bot{Name: "odd", Plan: func(context.Context, decision.Context) ([]byte, error) {
		return []byte(`{"moves":[]}`), nil
	}})
	waitReady(t, h.srv, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := h.srv.Generate(ctx, testContext(t)); !errors.Is(err, decision.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestHandshake_SecondBotRejectedAndDisconnectClearsReady(t *testing.T) {
	h := newHarness(t, Config{})
	defer h.close()
	h.startBot(t, &Bot{Name: "first", Plan: heuristicPlan})
	waitReady(t, h.srv, true)

	done := h.startBot(t, &Bot{Name: "second", Plan: heuristicPlan})
	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), protocol.ErrPlannerBusy) {
			t.Fatalf("expected busy error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("second bot was not rejected")
	}
	if h.srv.BotName() != "first" {
		t.Fatalf("first bot replaced: %q", h.srv.BotName())
	}

	h.cancel[0]()
	waitReady(t, h.srv, false)
}

func TestHandshake_Token(t *testing.T) {
	h := newHarness(t, Config{Token: "s3cret"})
	defer h.close()

	done := h.startBot(t, &Bot{Name: "anon", Plan: heuristicPlan})
	select {
	case err := <-done:
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Fatalf("expected policy close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("unauthenticated bot was not rejected")
	}

	h.startBot(t, &Bot{Name: "auth", Token: "s3cret", Plan: heuristicPlan})
	waitReady(t, h.srv, true)
}
