package heuristic

import (
	"context"
	"reflect"
	"testing"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/protocol"
	"matchsim.ai/internal/sim/geom"
	"matchsim.ai/internal/sim/intent"
	"matchsim.ai/internal/sim/match"
	"matchsim.ai/internal/sim/tuning"
)

func contextAt(t *testing.T, steps int) decision.Context {
	t.Helper()
	m, err := match.NewFiveASide(match.Config{ID: "h", Tuning: tuning.Defaults()}, nil)
	if err != nil {
		t.Fatalf("new match: %v", err)
	}
	for i := 0; i < steps; i++ {
		m.Step()
	}
	return decision.BuildContext(m)
}

func TestPlan_CoversEveryPlayerAndRoundTrips(t *testing.T) {
	p := New(Config{DurationMS: 3000})
	for _, steps := range []int{0, 40, 200} {
		c := contextAt(t, steps)
		plan, err := p.Generate(context.Background(), c)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(plan.Intents) != 10 {
			t.Fatalf("expected 10 intents, got %d", len(plan.Intents))
		}
		seen := map[uint32]bool{}
		for _, in := range plan.Intents {
			if in.Status != intent.StatusNew || in.Action == nil || !in.Action.Type.Valid() {
				t.Fatalf("bad intent: %+v", in)
			}
			if in.DurationMS == nil || *in.DurationMS != 3000 || in.CreatedAtMS != c.TimeMS {
				t.Fatalf("bad timing: %+v", in)
			}
			seen[in.PlayerID] = true
		}
		if len(seen) != 10 {
			t.Fatalf("duplicate players in plan")
		}

		raw, err := protocol.EncodePlan(plan)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		back, err := protocol.ParsePlan(raw, c.TimeMS, 0)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		for i, in := range back.Intents {
			want := plan.Intents[i]
			if in.PlayerID != want.PlayerID || in.Status != want.Status || !reflect.DeepEqual(in.Action, want.Action) {
				t.Fatalf("round trip %d: got %+v want %+v", i, in, want)
			}
		}
	}
}

func TestPlan_CarrierAndPresser(t *testing.T) {
	players := match.FiveASide()
	owner := players[0].ID
	players[0].HasBall = true
	// Put an away player right next to the carrier.
	players[9].Position = players[0].Position.Add(geom.V(2, 0))
	c := decision.Context{
		TimeMS:  1000,
		Players: players,
		Ball:    match.Ball{Position: players[0].Position, Owner: &owner},
		Tactics: match.TacticalSettings{AttackDefenseBalance: 0.5, PressingIntensity: 0.5},
	}
	plan, err := New(Config{}).Plan(c)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	carrier, _ := plan.Intent(0)
	if carrier.Action.Type != intent.ActFindPassOption {
		t.Fatalf("carrier: %v", carrier.Action)
	}
	presser, _ := plan.Intent(9)
	if presser.Action.Type != intent.ActPress || presser.Action.Target != players[0].Position {
		t.Fatalf("expected player 9 to press the carrier, got %v", presser.Action)
	}
	presses := 0
	for _, in := range plan.Intents {
		if in.Action.Type == intent.ActPress {
			presses++
		}
		if in.PlayerID >= 1 && in.PlayerID <= 4 && in.Action.Type != intent.ActAttackSpace {
			t.Fatalf("attacker %d: %v", in.PlayerID, in.Action)
		}
		if in.PlayerID >= 1 && in.PlayerID <= 4 && in.Action.Target.Y < c.Ball.Position.Y {
			t.Fatalf("attacker %d should stay level with or ahead of the ball: %v", in.PlayerID, in.Action)
		}
	}
	if presses != 1 {
		t.Fatalf("expected exactly one presser, got %d", presses)
	}
}

func TestPlan_FreeBallOneChaserPerTeam(t *testing.T) {
	players := match.FiveASide()
	c := decision.Context{
		Players: players,
		Ball:    match.Ball{Position: geom.V(34, 52)},
	}
	plan, _ := New(Config{}).Plan(c)
	chasers := map[uint8]int{}
	for _, in := range plan.Intents {
		if in.Action.Type == intent.ActMoveToBall {
			pl, _ := c.Player(in.PlayerID)
			chasers[pl.TeamID]++
		}
	}
	if chasers[match.TeamHome] != 1 || chasers[match.TeamAway] != 1 {
		t.Fatalf("expected one chaser per team, got %v", chasers)
	}
}

func TestPlan_SkipsPlayersOutsideBothTeams(t *testing.T) {
	players := match.FiveASide()
	players = append(players, match.Player{ID: 42, TeamID: 2, Position: geom.V(30, 50), Stamina: 1, Persona: match.DefaultPersona()})
	for _, ball := range []match.Ball{
		{Position: geom.V(30, 50)},
		{Position: players[0].Position, Owner: &players[0].ID},
	} {
		c := decision.Context{Players: players, Ball: ball}
		plan, err := New(Config{}).Plan(c)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if len(plan.Intents) != 10 {
			t.Fatalf("expected 10 intents, got %d", len(plan.Intents))
		}
		for _, in := range plan.Intents {
			if in.PlayerID == 42 {
				t.Fatalf("player with team_id 2 got an intent: %+v", in)
			}
		}
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{}).Generate(ctx, contextAt(t, 0)); decision.KindName(err) != "timeout" {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}
