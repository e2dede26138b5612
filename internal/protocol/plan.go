package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"matchsim.ai/internal/sim/intent"
)

// ErrMalformedPlan is wrapped by every whole-document parse failure.
var ErrMalformedPlan = errors.New("malformed action plan")

type wireIntent struct {
	PlayerID uint32         `json:"player_id"`
	Status   string         `json:"status"`
	Action   *intent.Action `json:"action,omitempty"`
}

type wirePlan struct {
	Intents []wireIntent `json:"intents"`
}

// EncodePlan renders p in the planner wire format. Actions are only written
// for New intents, matching what ParsePlan reads back.
func EncodePlan(p intent.ActionPlan) ([]byte, error) {
	out := wirePlan{Intents: make([]wireIntent, 0, len(p.Intents))}
	for _, in := range p.Intents {
		w := wireIntent{PlayerID: in.PlayerID, Status: in.Status.String()}
		switch in.Status {
		case intent.StatusNew:
			w.Action = in.Action
		case intent.StatusContinue:
		default:
			return nil, fmt.Errorf("player %d: status %v has no wire form", in.PlayerID, in.Status)
		}
		out.Intents = append(out.Intents, w)
	}
	return json.Marshal(out)
}

// ParsePlan decodes a planner response. A broken document, a missing intents
// array, or an entry without player_id/status fails the whole plan; a bad
// action only drops that intent's action. Every intent is stamped with
// generatedAtMS.
func ParsePlan(raw []byte, generatedAtMS, latencyMS uint64) (intent.ActionPlan, error) {
	var doc struct {
		Intents *[]json.RawMessage `json:"intents"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return intent.ActionPlan{}, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
	}
	if doc.Intents == nil {
		return intent.ActionPlan{}, fmt.Errorf("%w: missing intents array", ErrMalformedPlan)
	}

	plan := intent.ActionPlan{
		Intents:       make([]intent.Intent, 0, len(*doc.Intents)),
		GeneratedAtMS: generatedAtMS,
		LatencyMS:     latencyMS,
	}
	for i, rawIntent := range *doc.Intents {
		in, err := parseIntent(rawIntent, generatedAtMS)
		if err != nil {
			return intent.ActionPlan{}, fmt.Errorf("%w: intents[%d]: %v", ErrMalformedPlan, i, err)
		}
		plan.Intents = append(plan.Intents, in)
	}
	return plan, nil
}

func parseIntent(raw json.RawMessage, createdAtMS uint64) (intent.Intent, error) {
	var e struct {
		PlayerID json.RawMessage `json:"player_id"`
		Status   *string         `json:"status"`
		Action   json.RawMessage `json:"action"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&e); err != nil {
		return intent.Intent{}, err
	}
	if len(e.PlayerID) == 0 || string(e.PlayerID) == "null" {
		return intent.Intent{}, errors.New("missing player_id")
	}
	id, err := parsePlayerID(e.PlayerID)
	if err != nil {
		return intent.Intent{}, err
	}
	if e.Status == nil {
		return intent.Intent{}, errors.New("missing status")
	}
	var status intent.Status
	switch strings.ToLower(*e.Status) {
	case "new":
		status = intent.StatusNew
	case "continue":
		status = intent.StatusContinue
	default:
		return intent.Intent{}, fmt.Errorf("invalid status: %q", *e.Status)
	}

	var action *intent.Action
	if status == intent.StatusNew && len(e.Action) > 0 {
		if a, err := intent.ParseAction(e.Action); err == nil {
			action = &a
		}
	}
	return intent.New(id, status, action, createdAtMS), nil
}

// parsePlayerID accepts a bare JSON integer only; "3" as a string is rejected.
func parsePlayerID(raw json.RawMessage) (uint32, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s[0] < '0' || s[0] > '9' || strings.ContainsAny(s, ".eE-") {
		return 0, fmt.Errorf("player_id must be a non-negative integer, got %s", s)
	}
	v, err := json.Number(s).Int64()
	if err != nil || v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("player_id out of range: %s", s)
	}
	return uint32(v), nil
}

// ExtractJSON trims a model reply down to its outermost JSON object, dropping
// markdown fences and surrounding prose. The result is not validated.
func ExtractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}
