package decision

import (
	"matchsim.ai/internal/sim/intent"
	"matchsim.ai/internal/sim/match"
)

// MaxRecentEvents bounds Context.RecentEvents.
const MaxRecentEvents = 5

// Context is the planner's view of a match at one instant. It is a deep copy
// built on the match loop and never mutated afterwards.
type Context struct {
	MatchID      string                 `json:"match_id,omitempty"`
	TimeMS       uint64                 `json:"time_ms"`
	State        match.State            `json:"match_state"`
	Players      []match.Player         `json:"players"`
	Ball         match.Ball             `json:"ball"`
	RecentEvents []match.Event          `json:"recent_events"`
	Intents      []intent.Intent        `json:"current_intents"`
	Tactics      match.TacticalSettings `json:"tactical_settings"`
}

// BuildContext snapshots m. It must be called on the match loop goroutine.
func BuildContext(m *match.Match) Context {
	n := m.Tuning().Events.ContextRecent
	if n > MaxRecentEvents {
		n = MaxRecentEvents
	}
	st := m.State()
	return Context{
		MatchID:      m.ID(),
		TimeMS:       st.TimeMS,
		State:        st,
		Players:      m.Players(),
		Ball:         m.Ball(),
		RecentEvents: m.RecentEvents(n),
		Intents:      m.CurrentIntents(),
		Tactics:      m.Tactics(),
	}
}

// Player returns the snapshot of player id.
func (c Context) Player(id uint32) (match.Player, bool) {
	for _, p := range c.Players {
		if p.ID == id {
			return p, true
		}
	}
	return match.Player{}, false
}
