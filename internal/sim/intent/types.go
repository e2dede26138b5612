package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"matchsim.ai/internal/sim/geom"
)

// Status tells the merge step how an incoming intent relates to the installed one.
type Status uint8

const (
	StatusNew Status = iota + 1
	StatusContinue
	StatusIdle
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusContinue:
		return "Continue"
	case StatusIdle:
		return "Idle"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus is case-insensitive.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return StatusNew, nil
	case "continue":
		return StatusContinue, nil
	case "idle":
		return StatusIdle, nil
	default:
		return 0, fmt.Errorf("invalid status: %q", s)
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ActionType discriminates Action. The zero value is not a valid action.
type ActionType string

const (
	ActAttackSpace      ActionType = "AttackSpace"
	ActMarkPlayer       ActionType = "MarkPlayer"
	ActFindPassOption   ActionType = "FindPassOption"
	ActHoldPosition     ActionType = "HoldPosition"
	ActPress            ActionType = "Press"
	ActMoveToBall       ActionType = "MoveToBall"
	ActReturnToPosition ActionType = "ReturnToPosition"
	ActBlockSpace       ActionType = "BlockSpace"
)

// ActionTypes lists every variant in declaration order.
var ActionTypes = []ActionType{
	ActAttackSpace, ActMarkPlayer, ActFindPassOption, ActHoldPosition,
	ActPress, ActMoveToBall, ActReturnToPosition, ActBlockSpace,
}

func (t ActionType) Valid() bool {
	for _, v := range ActionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// HasTarget reports whether the variant carries a spatial payload in Target.
// ReturnToPosition stores its position in Target as well.
func (t ActionType) HasTarget() bool {
	switch t {
	case ActAttackSpace, ActPress, ActBlockSpace, ActReturnToPosition:
		return true
	}
	return false
}

// Action is a closed variant: Type selects which payload field is meaningful.
// Use the constructors below rather than building one by hand.
type Action struct {
	Type     ActionType
	Target   geom.Vec2
	TargetID uint32
}

func AttackSpace(target geom.Vec2) Action   { return Action{Type: ActAttackSpace, Target: target} }
func MarkPlayer(id uint32) Action           { return Action{Type: ActMarkPlayer, TargetID: id} }
func FindPassOption() Action                { return Action{Type: ActFindPassOption} }
func HoldPosition() Action                  { return Action{Type: ActHoldPosition} }
func Press(target geom.Vec2) Action         { return Action{Type: ActPress, Target: target} }
func MoveToBall() Action                    { return Action{Type: ActMoveToBall} }
func ReturnToPosition(pos geom.Vec2) Action { return Action{Type: ActReturnToPosition, Target: pos} }
func BlockSpace(target geom.Vec2) Action    { return Action{Type: ActBlockSpace, Target: target} }

func (a Action) String() string {
	switch a.Type {
	case ActMarkPlayer:
		return fmt.Sprintf("MarkPlayer { target_id: %d }", a.TargetID)
	case ActReturnToPosition:
		return fmt.Sprintf("ReturnToPosition { position: (%.1f, %.1f) }", a.Target.X, a.Target.Y)
	case ActAttackSpace, ActPress, ActBlockSpace:
		return fmt.Sprintf("%s { target: (%.1f, %.1f) }", a.Type, a.Target.X, a.Target.Y)
	default:
		return string(a.Type)
	}
}

// MarshalJSON emits the planner wire shape, e.g. {"type":"Press","target":{"x":1,"y":2}}.
func (a Action) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": a.Type}
	switch a.Type {
	case ActAttackSpace, ActPress, ActBlockSpace:
		m["target"] = a.Target
	case ActReturnToPosition:
		m["position"] = a.Target
	case ActMarkPlayer:
		m["target_id"] = a.TargetID
	}
	return json.Marshal(m)
}

type wirePoint struct {
	X *float32 `json:"x"`
	Y *float32 `json:"y"`
}

func (p *wirePoint) vec() (geom.Vec2, bool) {
	if p == nil || p.X == nil || p.Y == nil {
		return geom.Vec2{}, false
	}
	return geom.Vec2{X: *p.X, Y: *p.Y}, true
}

// ParseAction decodes the wire shape written by MarshalJSON. It fails when
// the type is unknown or a field the variant requires is missing.
func ParseAction(b []byte) (Action, error) {
	var w struct {
		Type     ActionType `json:"type"`
		Target   *wirePoint `json:"target"`
		Position *wirePoint `json:"position"`
		TargetID *uint32    `json:"target_id"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return Action{}, err
	}
	switch w.Type {
	case ActAttackSpace, ActPress, ActBlockSpace:
		v, ok := w.Target.vec()
		if !ok {
			return Action{}, fmt.Errorf("%s: missing target", w.Type)
		}
		return Action{Type: w.Type, Target: v}, nil
	case ActReturnToPosition:
		v, ok := w.Position.vec()
		if !ok {
			return Action{}, fmt.Errorf("%s: missing position", w.Type)
		}
		return ReturnToPosition(v), nil
	case ActMarkPlayer:
		if w.TargetID == nil {
			return Action{}, fmt.Errorf("%s: missing target_id", w.Type)
		}
		return MarkPlayer(*w.TargetID), nil
	case ActFindPassOption, ActHoldPosition, ActMoveToBall:
		return Action{Type: w.Type}, nil
	default:
		return Action{}, fmt.Errorf("unknown action type %q", w.Type)
	}
}

func (a *Action) UnmarshalJSON(b []byte) error {
	v, err := ParseAction(b)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Intent is one agent's directive plus its validity window.
type Intent struct {
	PlayerID    uint32  `json:"player_id"`
	Status      Status  `json:"status"`
	Action      *Action `json:"action,omitempty"`
	CreatedAtMS uint64  `json:"created_at_ms"`
	DurationMS  *uint64 `json:"duration_ms,omitempty"`
}

func New(playerID uint32, status Status, action *Action, createdAtMS uint64) Intent {
	return Intent{PlayerID: playerID, Status: status, Action: action, CreatedAtMS: createdAtMS}
}

// WithDuration returns a copy that expires d ms after creation.
func (i Intent) WithDuration(d uint64) Intent {
	i.DurationMS = &d
	return i
}

// Expired holds strictly after created_at+duration; intents without a duration never expire.
func (i Intent) Expired(nowMS uint64) bool {
	if i.DurationMS == nil {
		return false
	}
	return nowMS > i.CreatedAtMS+*i.DurationMS
}

// Clone deep-copies the optional fields so the copy shares no pointers.
func (i Intent) Clone() Intent {
	if i.Action != nil {
		a := *i.Action
		i.Action = &a
	}
	if i.DurationMS != nil {
		d := *i.DurationMS
		i.DurationMS = &d
	}
	return i
}

// ActionPlan is one planner response. It is consumed once by Manager.Merge.
type ActionPlan struct {
	Intents       []Intent `json:"intents"`
	GeneratedAtMS uint64   `json:"generated_at_ms"`
	LatencyMS     uint64   `json:"latency_ms"`
}

func (p ActionPlan) Intent(playerID uint32) (Intent, bool) {
	for _, in := range p.Intents {
		if in.PlayerID == playerID {
			return in, true
		}
	}
	return Intent{}, false
}

func ActionPtr(a Action) *Action { return &a }
