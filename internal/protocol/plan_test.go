package protocol

import (
	"errors"
	"reflect"
	"testing"

	"matchsim.ai/internal/sim/geom"
	"matchsim.ai/internal/sim/intent"
)

func TestPlan_RoundTrip(t *testing.T) {
	actions := []intent.Action{
		intent.AttackSpace(geom.V(40, 70)),
		intent.MarkPlayer(7),
		intent.FindPassOption(),
		intent.HoldPosition(),
		intent.Press(geom.V(12.5, 33)),
		intent.MoveToBall(),
		intent.ReturnToPosition(geom.V(10, 20)),
		intent.BlockSpace(geom.V(30, 30)),
	}
	var plan intent.ActionPlan
	for i, a := range actions {
		plan.Intents = append(plan.Intents, intent.New(uint32(i), intent.StatusNew, intent.ActionPtr(a), 4000))
	}
	plan.Intents = append(plan.Intents, intent.New(8, intent.StatusContinue, nil, 4000))

	raw, err := EncodePlan(plan)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := ParsePlan(raw, 4000, 12)
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	if !reflect.DeepEqual(got.Intents, plan.Intents) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Intents, plan.Intents)
	}
	if got.GeneratedAtMS != 4000 || got.LatencyMS != 12 {
		t.Fatalf("metadata: %+v", got)
	}
}

func TestEncodePlan_RejectsIdle(t *testing.T) {
	plan := intent.ActionPlan{Intents: []intent.Intent{intent.New(1, intent.StatusIdle, nil, 0)}}
	if _, err := EncodePlan(plan); err == nil {
		t.Fatalf("expected idle to have no wire form")
	}
}

func TestParsePlan_DropsOnlyBadActions(t *testing.T) {
	raw := `{"intents":[
	  {"player_id":0,"status":"NEW","action":{"type":"Press"}},
	  {"player_id":1,"status":"new","action":{"type":"MarkPlayer","target_id":6}},
	  {"player_id":2,"status":"Continue","action":{"type":"MoveToBall"}},
	  {"player_id":3,"status":"New","action":{"type":"Dribble"}},
	  {"player_id":4,"status":"New"}
	]}`
	plan, err := ParsePlan([]byte(raw), 100, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(plan.Intents) != 5 {
		t.Fatalf("expected all five intents kept, got %d", len(plan.Intents))
	}
	for _, i := range []int{0, 2, 3, 4} {
		if plan.Intents[i].Action != nil {
			t.Fatalf("intent %d: expected no action, got %v", i, plan.Intents[i].Action)
		}
	}
	if a := plan.Intents[1].Action; a == nil || *a != intent.MarkPlayer(6) {
		t.Fatalf("intent 1: got %v", a)
	}
	if plan.Intents[2].Status != intent.StatusContinue || plan.Intents[0].Status != intent.StatusNew {
		t.Fatalf("statuses: %+v", plan.Intents)
	}
	for _, in := range plan.Intents {
		if in.CreatedAtMS != 100 {
			t.Fatalf("expected created_at stamped from the plan: %+v", in)
		}
	}
}

func TestParsePlan_WholeDocumentFailures(t *testing.T) {
	cases := map[string]string{
		"not json":        `I think player 3 should press`,
		"missing intents": `{"plan":[]}`,
		"null intents":    `{"intents":null}`,
		"intents object":  `{"intents":{}}`,
		"bad status":      `{"intents":[{"player_id":1,"status":"Idle"}]}`,
		"missing status":  `{"intents":[{"player_id":1}]}`,
		"missing id":      `{"intents":[{"status":"New"}]}`,
		"negative id":     `{"intents":[{"player_id":-1,"status":"New"}]}`,
		"fractional id":   `{"intents":[{"player_id":1.5,"status":"New"}]}`,
		"string id":       `{"intents":[{"player_id":"3","status":"New"}]}`,
		"null id":         `{"intents":[{"player_id":null,"status":"New"}]}`,
		"entry not obj":   `{"intents":[3]}`,
	}
	for name, raw := range cases {
		if _, err := ParsePlan([]byte(raw), 0, 0); !errors.Is(err, ErrMalformedPlan) {
			t.Fatalf("%s: expected ErrMalformedPlan, got %v", name, err)
		}
	}
}

func TestParsePlan_EmptyIntents(t *testing.T) {
	plan, err := ParsePlan([]byte(`{"intents":[]}`), 0, 0)
	if err != nil || len(plan.Intents) != 0 {
		t.Fatalf("expected empty plan, got %+v err=%v", plan, err)
	}
}

func TestExtractJSON(t *testing.T) {
	in := "Sure! Here is the plan:\n```json\n{\"intents\":[]}\n```\nGood luck."
	if got := ExtractJSON(in); got != `{"intents":[]}` {
		t.Fatalf("got %q", got)
	}
	if got := ExtractJSON("  no braces "); got != "no braces" {
		t.Fatalf("got %q", got)
	}
}
