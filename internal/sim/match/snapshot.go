package match

import "matchsim.ai/internal/sim/intent"

// The accessors below return copies; callers on other goroutines must only
// use values captured on the match loop.

func (m *Match) Players() []Player { return append([]Player(nil), m.players...) }

func (m *Match) Player(id uint32) (Player, bool) {
	if p := m.player(id); p != nil {
		return *p, true
	}
	return Player{}, false
}

func (m *Match) Ball() Ball {
	b := m.ball
	b.Owner = cloneU32(b.Owner)
	return b
}

func (m *Match) State() State { return m.state }

// RecentEvents returns up to n events, most recent first.
func (m *Match) RecentEvents(n int) []Event { return m.events.recent(n) }

func (m *Match) CurrentIntents() []intent.Intent { return m.intents.Snapshot() }

func (m *Match) Tactics() TacticalSettings {
	tc := m.t.Tactics
	out := TacticalSettings{
		AttackDefenseBalance: tc.AttackDefenseBalance,
		PressingIntensity:    tc.PressingIntensity,
	}
	for _, r := range tc.PlayerRoles {
		out.PlayerRoles = append(out.PlayerRoles, PlayerRole{PlayerID: r.PlayerID, RoleName: r.RoleName})
	}
	return out
}

type RosterEntry struct {
	ID     uint32
	TeamID uint8
	Role   string
}

// Roster is fixed at construction and safe to read from any goroutine.
func (m *Match) Roster() []RosterEntry { return append([]RosterEntry(nil), m.roster...) }
