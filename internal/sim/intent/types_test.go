package intent

import (
	"encoding/json"
	"testing"

	"matchsim.ai/internal/sim/geom"
)

func TestParseStatus_CaseInsensitive(t *testing.T) {
	for in, want := range map[string]Status{"NEW": StatusNew, "continue": StatusContinue, " Idle ": StatusIdle} {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v err=%v", in, got, err)
		}
	}
	if _, err := ParseStatus("later"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestAction_MarshalWireShape(t *testing.T) {
	b, err := json.Marshal(ReturnToPosition(geom.V(1, 2)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"position":{"x":1,"y":2},"type":"ReturnToPosition"}` {
		t.Fatalf("got %s", b)
	}
	b, _ = json.Marshal(MarkPlayer(7))
	if string(b) != `{"target_id":7,"type":"MarkPlayer"}` {
		t.Fatalf("got %s", b)
	}
	b, _ = json.Marshal(HoldPosition())
	if string(b) != `{"type":"HoldPosition"}` {
		t.Fatalf("got %s", b)
	}
}

func TestIntent_StatusJSON(t *testing.T) {
	b, _ := json.Marshal(New(3, StatusContinue, nil, 10))
	if string(b) != `{"player_id":3,"status":"Continue","created_at_ms":10}` {
		t.Fatalf("got %s", b)
	}
}

func TestParseAction_RequiresVariantFields(t *testing.T) {
	for _, a := range []Action{
		AttackSpace(geom.V(1, 2)), MarkPlayer(4), FindPassOption(), HoldPosition(),
		Press(geom.V(3, 4)), MoveToBall(), ReturnToPosition(geom.V(5, 6)), BlockSpace(geom.V(7, 8)),
	} {
		b, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal %v: %v", a, err)
		}
		got, err := ParseAction(b)
		if err != nil || got != a {
			t.Fatalf("round trip %s: got %+v err=%v", b, got, err)
		}
	}

	bad := []string{
		`{"type":"AttackSpace"}`,
		`{"type":"Press","target":{"x":1}}`,
		`{"type":"ReturnToPosition","target":{"x":1,"y":2}}`,
		`{"type":"MarkPlayer"}`,
		`{"type":"MarkPlayer","target_id":-1}`,
		`{"type":"Dribble"}`,
		`{}`,
	}
	for _, s := range bad {
		if _, err := ParseAction([]byte(s)); err == nil {
			t.Fatalf("expected error for %s", s)
		}
	}
}
