package match

import (
	"github.com/google/uuid"

	"matchsim.ai/internal/sim/geom"
	"matchsim.ai/internal/sim/utility"
)

// carrierAction lets the ball carrier release the ball once it has held it
// for MinHoldMs. Hold competes at the kick threshold, so a pass or shot only
// happens when it scores strictly better.
func (m *Match) carrierAction() {
	k := m.t.Kick
	if k.Disabled || m.ball.Owner == nil {
		return
	}
	if m.state.TimeMS-m.possessionSinceMS < uint64(k.MinHoldMs) {
		return
	}
	carrier := m.player(*m.ball.Owner)
	if carrier == nil {
		return
	}

	best, ok := utility.Select(m.carrierCandidates(carrier))
	if !ok || best.Kind == utility.KindHold || best.Utility <= k.Threshold {
		return
	}

	switch best.Kind {
	case utility.KindPassSafe, utility.KindPassRisk:
		to := m.player(best.TargetID)
		if to == nil {
			return
		}
		dist := carrier.Position.Distance(to.Position)
		m.kick(carrier, to.Position, k.PassSpeed, EventPass, EventPayload{
			TargetPlayerID: u32(to.ID),
			Distance:       dist,
			Risk:           1 - best.Utility,
		})
	case utility.KindShoot:
		goal := m.AttackingGoal(carrier.TeamID)
		dist := carrier.Position.Distance(goal)
		onTarget := dist <= utility.MaxShootDistance
		m.kick(carrier, goal, k.ShotSpeed, EventShot, EventPayload{
			Distance: dist,
			OnTarget: &onTarget,
		})
	}
}

func (m *Match) carrierCandidates(carrier *Player) []utility.Candidate {
	traits := carrier.Persona.Traits()
	goal := m.AttackingGoal(carrier.TeamID)

	var opponents []geom.Vec2
	for _, p := range m.players {
		if p.TeamID != carrier.TeamID {
			opponents = append(opponents, p.Position)
		}
	}

	cands := []utility.Candidate{{Kind: utility.KindHold, TargetID: carrier.ID, Utility: m.t.Kick.Threshold}}
	for _, p := range m.players {
		if p.TeamID != carrier.TeamID || p.ID == carrier.ID {
			continue
		}
		u := utility.Pass(carrier.Position, p.Position, goal, opponents, traits)
		kind := utility.KindPassSafe
		if carrier.Position.Distance(p.Position) > utility.LongPassFraction*traits.VisionRange {
			kind = utility.KindPassRisk
		}
		cands = append(cands, utility.Candidate{Kind: kind, TargetID: p.ID, Utility: u})
	}
	cands = append(cands, utility.Candidate{
		Kind:     utility.KindShoot,
		TargetID: carrier.ID,
		Utility:  utility.Shoot(carrier.Position, goal, opponents, traits),
	})
	return cands
}

// kick releases the ball toward target. The ball starts just outside the
// possession radius so the kicker does not immediately regain it. The release
// point is left unclamped: UpdateBall clamps it this tick, and a kick taken on
// the goal line must not land back at the kicker's feet.
func (m *Match) kick(carrier *Player, target geom.Vec2, speed float32, typ EventType, payload EventPayload) {
	dir := target.Sub(carrier.Position).Normalize()
	if dir == (geom.Vec2{}) {
		return
	}
	ev := m.newEvent(typ, carrier.TeamID, carrier.ID, carrier.Position, payload, OutcomeNone)
	m.events.append(ev)

	offset := m.t.Physics.PossessionRadius + 0.05
	m.ball.Position = carrier.Position.Add(dir.Scale(offset))
	m.ball.Velocity = dir.Scale(speed)
	m.ball.Owner = nil
	carrier.HasBall = false
	m.lastToucher = u32(carrier.ID)
	m.pendingKick = &kickInfo{EventID: ev.ID, KickerID: carrier.ID, TeamID: carrier.TeamID, Type: typ}
}

func (m *Match) newEvent(typ EventType, team uint8, playerID uint32, at geom.Vec2, payload EventPayload, outcome EventOutcome) Event {
	return Event{
		ID:       uuid.NewString(),
		TMS:      m.state.TimeMS,
		Period:   m.state.Period,
		Type:     typ,
		TeamID:   team,
		PlayerID: playerID,
		Location: at,
		Payload:  payload,
		Outcome:  outcome,
	}
}
