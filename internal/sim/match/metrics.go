package match

import "encoding/json"

// MatchMetrics is a thread-safe read-only view of the match loop.
// It is updated from the match loop goroutine and read from HTTP handlers/tests.
type MatchMetrics struct {
	Tick      uint64 `json:"tick"`
	TimeMS    uint64 `json:"time_ms"`
	Period    Period `json:"period"`
	HomeScore uint32 `json:"home_score"`
	AwayScore uint32 `json:"away_score"`
	Intents   int    `json:"intents"`
	Events    int    `json:"events"`
	Observers int    `json:"observers"`
	Finished  bool   `json:"finished"`

	StepMS float64 `json:"step_ms"`
}

func (m *Match) Metrics() MatchMetrics {
	if m == nil {
		return MatchMetrics{}
	}
	v := m.metrics.Load()
	if v == nil {
		return MatchMetrics{}
	}
	mm, ok := v.(MatchMetrics)
	if !ok {
		return MatchMetrics{}
	}
	return mm
}

func (m *Match) publishMetrics(stepMS float64) {
	m.metrics.Store(MatchMetrics{
		Tick:      m.tick.Load(),
		TimeMS:    m.state.TimeMS,
		Period:    m.state.Period,
		HomeScore: m.state.HomeScore,
		AwayScore: m.state.AwayScore,
		Intents:   m.intents.Len(),
		Events:    len(m.events.events),
		Observers: len(m.observers),
		Finished:  m.finished,
		StepMS:    stepMS,
	})
}

// Frame is the per-tick observer payload.
type Frame struct {
	Type    string        `json:"type"`
	MatchID string        `json:"match_id,omitempty"`
	Tick    uint64        `json:"tick"`
	State   State         `json:"state"`
	Ball    Ball          `json:"ball"`
	Players []PlayerFrame `json:"players"`
	Intents []FrameIntent `json:"intents,omitempty"`
}

type PlayerFrame struct {
	ID      uint32  `json:"id"`
	TeamID  uint8   `json:"team_id"`
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	Stamina float32 `json:"stamina"`
	HasBall bool    `json:"has_ball"`
}

type FrameIntent struct {
	PlayerID uint32 `json:"player_id"`
	Action   string `json:"action"`
}

// BuildFrame renders the current state for observers.
func (m *Match) BuildFrame() Frame {
	f := Frame{
		Type:    "MATCH_FRAME",
		MatchID: m.cfg.ID,
		Tick:    m.tick.Load(),
		State:   m.state,
		Ball:    m.Ball(),
		Players: make([]PlayerFrame, 0, len(m.players)),
	}
	for _, p := range m.players {
		f.Players = append(f.Players, PlayerFrame{
			ID:      p.ID,
			TeamID:  p.TeamID,
			X:       p.Position.X,
			Y:       p.Position.Y,
			Stamina: p.Stamina,
			HasBall: p.HasBall,
		})
	}
	for _, it := range m.intents.Snapshot() {
		a := "None"
		if it.Action != nil {
			a = it.Action.String()
		}
		f.Intents = append(f.Intents, FrameIntent{PlayerID: it.PlayerID, Action: a})
	}
	return f
}

func (m *Match) broadcastFrame() {
	if len(m.observers) == 0 {
		return
	}
	b, err := json.Marshal(m.BuildFrame())
	if err != nil {
		return
	}
	for _, ch := range m.observers {
		sendLatest(ch, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
