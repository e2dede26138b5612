package match

import "matchsim.ai/internal/sim/geom"

type EventType string

const (
	EventPass     EventType = "Pass"
	EventShot     EventType = "Shot"
	EventTurnover EventType = "Turnover"
	EventGoal     EventType = "Goal"
)

type EventOutcome string

const (
	OutcomeNone       EventOutcome = ""
	OutcomeComplete   EventOutcome = "Complete"
	OutcomeIncomplete EventOutcome = "Incomplete"
	OutcomeSuccess    EventOutcome = "Success"
	OutcomeFailure    EventOutcome = "Failure"
)

// EventPayload carries the type-specific fields; unset fields are omitted on the wire.
type EventPayload struct {
	TargetPlayerID *uint32 `json:"target_player_id,omitempty"`
	Distance       float32 `json:"distance,omitempty"`
	Risk           float32 `json:"risk,omitempty"`
	OnTarget       *bool   `json:"on_target,omitempty"`
	OnPlayerID     *uint32 `json:"on_player_id,omitempty"`
	ScorerID       *uint32 `json:"scorer_id,omitempty"`
	AssistID       *uint32 `json:"assist_id,omitempty"`
}

type Event struct {
	ID       string       `json:"id"`
	TMS      uint64       `json:"t_ms"`
	Period   Period       `json:"period"`
	Type     EventType    `json:"event_type"`
	TeamID   uint8        `json:"team_id"`
	PlayerID uint32       `json:"player_id"`
	Location geom.Vec2    `json:"location"`
	Payload  EventPayload `json:"payload"`
	Outcome  EventOutcome `json:"outcome"`
}

type Tone string

const (
	ToneCalm       Tone = "Calm"
	ToneAggressive Tone = "Aggressive"
	ToneExcited    Tone = "Excited"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneCalm, ToneAggressive, ToneExcited:
		return true
	}
	return false
}

// Commentary is a line of text attached to an event by a commentator service.
type Commentary struct {
	EventID   string `json:"event_id"`
	Text      string `json:"text"`
	Tone      Tone   `json:"tone"`
	LatencyMS uint64 `json:"latency_ms"`
}

type HighlightStatus string

const (
	HighlightQueued    HighlightStatus = "Queued"
	HighlightRendering HighlightStatus = "Rendering"
	HighlightDone      HighlightStatus = "Done"
	HighlightError     HighlightStatus = "Error"
)

func (s HighlightStatus) Valid() bool {
	switch s {
	case HighlightQueued, HighlightRendering, HighlightDone, HighlightError:
		return true
	}
	return false
}

// Terminal reports whether a highlight in this status will not change again.
func (s HighlightStatus) Terminal() bool { return s == HighlightDone || s == HighlightError }

// Highlight tracks a rendered clip or image for an event. ImagePath is set once rendering is done.
type Highlight struct {
	EventID    string          `json:"event_id"`
	Status     HighlightStatus `json:"status"`
	Prompt     string          `json:"prompt"`
	ImagePath  *string         `json:"image_path"`
	DurationMS uint64          `json:"duration_ms"`
}

// eventLog is a bounded in-memory log, oldest first.
type eventLog struct {
	limit  int
	events []Event
}

func newEventLog(limit int) *eventLog {
	if limit <= 0 {
		limit = 50
	}
	return &eventLog{limit: limit}
}

func (l *eventLog) append(e Event) {
	l.events = append(l.events, e)
	if over := len(l.events) - l.limit; over > 0 {
		l.events = append(l.events[:0], l.events[over:]...)
	}
}

func (l *eventLog) byID(id string) *Event {
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].ID == id {
			return &l.events[i]
		}
	}
	return nil
}

// recent returns up to n copies, most recent first.
func (l *eventLog) recent(n int) []Event {
	if n > len(l.events) {
		n = len(l.events)
	}
	out := make([]Event, 0, n)
	for i := len(l.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.events[i].clone())
	}
	return out
}

func (e Event) clone() Event {
	e.Payload.TargetPlayerID = cloneU32(e.Payload.TargetPlayerID)
	e.Payload.OnPlayerID = cloneU32(e.Payload.OnPlayerID)
	e.Payload.ScorerID = cloneU32(e.Payload.ScorerID)
	e.Payload.AssistID = cloneU32(e.Payload.AssistID)
	if e.Payload.OnTarget != nil {
		v := *e.Payload.OnTarget
		e.Payload.OnTarget = &v
	}
	return e
}

func cloneU32(p *uint32) *uint32 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func u32(v uint32) *uint32 { return &v }
