// Package heuristic is an in-process planner built on the utility scores.
// It is always ready and answers immediately, which makes it the default
// backend and the fallback brain for the websocket planner bot.
package heuristic

import (
	"context"

	"matchsim.ai/internal/decision"
	"matchsim.ai/internal/sim/geom"
	"matchsim.ai/internal/sim/intent"
	"matchsim.ai/internal/sim/match"
	"matchsim.ai/internal/sim/tuning"
	"matchsim.ai/internal/sim/utility"
)

type Config struct {
	Field tuning.Field
	// DurationMS bounds every emitted intent; 0 means intents never expire.
	DurationMS uint64
	// AdvanceStep is how far attackers push toward goal per plan, in meters.
	AdvanceStep float32
}

type Planner struct {
	cfg Config
}

func New(cfg Config) *Planner {
	if cfg.Field.Width <= 0 || cfg.Field.Height <= 0 {
		cfg.Field = tuning.Defaults().Field
	}
	if cfg.AdvanceStep <= 0 {
		cfg.AdvanceStep = 8
	}
	return &Planner{cfg: cfg}
}

func (p *Planner) Ready() bool { return true }

func (p *Planner) Generate(ctx context.Context, c decision.Context) (intent.ActionPlan, error) {
	if err := ctx.Err(); err != nil {
		return intent.ActionPlan{}, decision.NewPlannerError(decision.ErrTimeout, err)
	}
	return p.Plan(c)
}

// Plan assigns a New intent to every player in c. Players outside the two
// teams get no intent.
func (p *Planner) Plan(c decision.Context) (intent.ActionPlan, error) {
	s := p.newScene(c)
	plan := intent.ActionPlan{
		Intents:       make([]intent.Intent, 0, len(c.Players)),
		GeneratedAtMS: c.TimeMS,
	}
	for _, pl := range c.Players {
		if pl.TeamID > match.TeamAway {
			continue
		}
		a := s.choose(pl)
		in := intent.New(pl.ID, intent.StatusNew, &a, c.TimeMS)
		if p.cfg.DurationMS > 0 {
			in = in.WithDuration(p.cfg.DurationMS)
		}
		plan.Intents = append(plan.Intents, in)
	}
	return plan, nil
}

// scene holds the per-plan derived facts shared by every player's choice.
type scene struct {
	cfg     Config
	c       decision.Context
	ball    geom.Vec2
	owned   bool
	carrier match.Player

	chaser   [2]uint32
	presser  [2]uint32
	hasPress [2]bool
	marked   map[uint32]bool
}

func (p *Planner) newScene(c decision.Context) *scene {
	s := &scene{cfg: p.cfg, c: c, ball: c.Ball.Position, marked: map[uint32]bool{}}
	if id, ok := c.Ball.OwnerID(); ok {
		if pl, ok := c.Player(id); ok {
			s.owned = true
			s.carrier = pl
		}
	}

	var best [2]float32
	for i := range best {
		best[i] = -1
	}
	var bestPress [2]float32
	for _, pl := range c.Players {
		if pl.TeamID > match.TeamAway {
			continue
		}
		d := pl.Position.Distance(s.ball)
		if best[pl.TeamID] < 0 || d < best[pl.TeamID] {
			best[pl.TeamID] = d
			s.chaser[pl.TeamID] = pl.ID
		}
		if s.owned && pl.TeamID != s.carrier.TeamID {
			u := utility.Press(pl.Position, s.carrier.Position, pl.Persona.Traits(), pl.Stamina)
			if u > bestPress[pl.TeamID] {
				bestPress[pl.TeamID] = u
				s.presser[pl.TeamID] = pl.ID
				s.hasPress[pl.TeamID] = true
			}
		}
	}
	return s
}

func (s *scene) choose(pl match.Player) intent.Action {
	switch {
	case pl.HasBall:
		return intent.FindPassOption()
	case !s.owned:
		if s.chaser[pl.TeamID] == pl.ID {
			return intent.MoveToBall()
		}
		return intent.ReturnToPosition(s.shape(pl))
	case pl.TeamID == s.carrier.TeamID:
		return intent.AttackSpace(s.support(pl))
	default:
		return s.defend(pl)
	}
}

// defend scores press, mark and recover for a player without the ball.
func (s *scene) defend(pl match.Player) intent.Action {
	traits := pl.Persona.Traits()
	var cands []utility.Candidate

	if s.hasPress[pl.TeamID] && s.presser[pl.TeamID] == pl.ID {
		cands = append(cands, utility.Candidate{
			Kind:     utility.KindPress,
			TargetID: s.carrier.ID,
			Utility:  utility.Press(pl.Position, s.carrier.Position, traits, pl.Stamina),
		})
	}
	if opp, ok := s.nearestUnmarked(pl); ok {
		closeness := 1 - geom.Clamp01(pl.Position.Distance(opp.Position)/traits.VisionRange)
		cands = append(cands, utility.Candidate{
			Kind:     utility.KindCover,
			TargetID: opp.ID,
			Utility:  closeness * (0.5 + 0.5*pl.Persona.Discipline),
		})
	}
	cands = append(cands, utility.Candidate{Kind: utility.KindReturnPosition, TargetID: pl.ID, Utility: 0.2})

	best, _ := utility.Select(cands)
	switch best.Kind {
	case utility.KindPress:
		return intent.Press(s.carrier.Position)
	case utility.KindCover:
		s.marked[best.TargetID] = true
		return intent.MarkPlayer(best.TargetID)
	default:
		return intent.BlockSpace(s.blockPoint(pl))
	}
}

func (s *scene) nearestUnmarked(pl match.Player) (match.Player, bool) {
	var out match.Player
	found := false
	var bestD float32
	for _, o := range s.c.Players {
		if o.TeamID == pl.TeamID || o.HasBall || s.marked[o.ID] {
			continue
		}
		d := pl.Position.Distance(o.Position)
		if !found || d < bestD {
			out, bestD, found = o, d, true
		}
	}
	return out, found
}

// attackDir is +1 when team attacks toward y=height.
func attackDir(team uint8) float32 {
	if team == match.TeamHome {
		return 1
	}
	return -1
}

func (s *scene) ownGoal(team uint8) geom.Vec2 {
	return match.AttackingGoal(1-team, s.cfg.Field.Width, s.cfg.Field.Height)
}

// support pushes an attacker forward, further when the team is set up to attack.
func (s *scene) support(pl match.Player) geom.Vec2 {
	balance := s.c.Tactics.AttackDefenseBalance
	step := s.cfg.AdvanceStep * (0.5 + balance)
	t := pl.Position.Add(geom.V(0, attackDir(pl.TeamID)*step))
	// Stay level with or ahead of the ball.
	if attackDir(pl.TeamID)*(t.Y-s.ball.Y) < 0 {
		t.Y = s.ball.Y
	}
	return t.Clamp(s.cfg.Field.Width, s.cfg.Field.Height)
}

// shape keeps a loose line between the ball and the player's own goal.
func (s *scene) shape(pl match.Player) geom.Vec2 {
	goal := s.ownGoal(pl.TeamID)
	k := 0.35 + 0.3*s.c.Tactics.AttackDefenseBalance
	y := goal.Y + (s.ball.Y-goal.Y)*k
	return geom.V(pl.Position.X, y).Clamp(s.cfg.Field.Width, s.cfg.Field.Height)
}

// blockPoint sits on the carrier-to-goal line, a third of the way from goal.
func (s *scene) blockPoint(pl match.Player) geom.Vec2 {
	goal := s.ownGoal(pl.TeamID)
	return goal.Add(s.carrier.Position.Sub(goal).Scale(1.0 / 3)).Clamp(s.cfg.Field.Width, s.cfg.Field.Height)
}
