package intent

import (
	"sort"

	"matchsim.ai/internal/sim/geom"
)

// PlayerView is the slice of player state target resolution needs.
type PlayerView struct {
	Position geom.Vec2
	TeamID   uint8
}

// Pitch is the live simulation state targets are resolved against.
type Pitch interface {
	BallPosition() geom.Vec2
	BallOwned() bool
	Player(id uint32) (PlayerView, bool)
}

// Manager owns the authoritative intent per player.
// It is not safe for concurrent use; the match loop is its only writer.
type Manager struct {
	byPlayer  map[uint32]Intent
	baselineX [2]float32
}

// NewManager builds an empty manager. baselineX is the x coordinate each team
// retreats to when it has nothing better to do (index = team id).
func NewManager(baselineX [2]float32) *Manager {
	return &Manager{byPlayer: map[uint32]Intent{}, baselineX: baselineX}
}

// Merge applies an incoming batch in order. New replaces, Continue only fills
// a gap, Idle clears. Entries are independent of each other.
func (m *Manager) Merge(batch []Intent) {
	for _, in := range batch {
		switch in.Status {
		case StatusNew:
			delete(m.byPlayer, in.PlayerID)
			m.byPlayer[in.PlayerID] = in.Clone()
		case StatusContinue:
			if _, ok := m.byPlayer[in.PlayerID]; !ok {
				m.byPlayer[in.PlayerID] = in.Clone()
			}
		case StatusIdle:
			delete(m.byPlayer, in.PlayerID)
		}
	}
}

// Expire drops every intent whose window has passed and returns how many went.
func (m *Manager) Expire(nowMS uint64) int {
	n := 0
	for id, in := range m.byPlayer {
		if in.Expired(nowMS) {
			delete(m.byPlayer, id)
			n++
		}
	}
	return n
}

func (m *Manager) Get(playerID uint32) (Intent, bool) {
	in, ok := m.byPlayer[playerID]
	if !ok {
		return Intent{}, false
	}
	return in.Clone(), true
}

func (m *Manager) Len() int { return len(m.byPlayer) }

// Snapshot returns deep copies ordered by player id.
func (m *Manager) Snapshot() []Intent {
	out := make([]Intent, 0, len(m.byPlayer))
	for _, in := range m.byPlayer {
		out = append(out, in.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// ResolveTarget maps the player's installed intent to a movement target.
// ok is false when the player does not exist on the pitch.
// fromIntent reports whether the target came from an intent rather than the default behaviour.
func (m *Manager) ResolveTarget(playerID uint32, p Pitch) (target geom.Vec2, fromIntent bool, ok bool) {
	self, ok := p.Player(playerID)
	if !ok {
		return geom.Vec2{}, false, false
	}
	if in, has := m.byPlayer[playerID]; has && in.Action != nil {
		if t, resolved := resolveAction(*in.Action, self, p); resolved {
			return t, true, true
		}
	}
	return m.fallback(self, p), false, true
}

func resolveAction(a Action, self PlayerView, p Pitch) (geom.Vec2, bool) {
	switch a.Type {
	case ActAttackSpace, ActPress, ActBlockSpace, ActReturnToPosition:
		return a.Target, true
	case ActMoveToBall:
		return p.BallPosition(), true
	case ActMarkPlayer:
		other, ok := p.Player(a.TargetID)
		if !ok {
			return geom.Vec2{}, false
		}
		return other.Position, true
	case ActFindPassOption, ActHoldPosition:
		return self.Position, true
	default:
		return geom.Vec2{}, false
	}
}

// fallback chases a loose ball, otherwise drops back to the team baseline keeping y.
func (m *Manager) fallback(self PlayerView, p Pitch) geom.Vec2 {
	if !p.BallOwned() {
		return p.BallPosition()
	}
	team := int(self.TeamID)
	if team < 0 || team > 1 {
		team = 0
	}
	return geom.Vec2{X: m.baselineX[team], Y: self.Position.Y}
}
