package match

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"matchsim.ai/internal/sim/geom"
	"matchsim.ai/internal/sim/intent"
	"matchsim.ai/internal/sim/tuning"
)

type Config struct {
	ID     string
	Tuning tuning.Tuning
}

// Decider is consulted by the match loop once per tick. Both methods run on
// the loop goroutine and must not block.
type Decider interface {
	// Collect hands over a completed plan's intents, at most once per cycle.
	Collect() ([]intent.Intent, bool)
	// Tick may start a planning cycle using m as the snapshot source.
	Tick(nowMS uint64, m *Match)
}

type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte
}

// Match is a single-threaded authoritative simulation.
// All state must be accessed only from the match loop goroutine.
type Match struct {
	cfg    Config
	t      tuning.Tuning
	logger *log.Logger

	tick atomic.Uint64

	players []Player
	roster  []RosterEntry
	slots   map[uint32]geom.Vec2
	ball    Ball
	state   State
	intents *intent.Manager
	events  *eventLog

	decider Decider

	possessionSinceMS uint64
	lastToucher       *uint32
	pendingKick       *kickInfo
	lastPass          *passInfo
	finished          bool

	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	observers     map[string]chan []byte

	metrics atomic.Value
	stop    chan struct{}
}

type kickInfo struct {
	EventID  string
	KickerID uint32
	TeamID   uint8
	Type     EventType
}

type passInfo struct {
	PasserID   uint32
	ReceiverID uint32
}

// New validates the squad and places the ball with the first home player.
func New(cfg Config, players []Player, logger *log.Logger) (*Match, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("match: no players")
	}
	seen := map[uint32]bool{}
	slots := map[uint32]geom.Vec2{}
	var roster []RosterEntry
	for _, p := range players {
		if seen[p.ID] {
			return nil, fmt.Errorf("match: duplicate player id %d", p.ID)
		}
		if p.TeamID != TeamHome && p.TeamID != TeamAway {
			return nil, fmt.Errorf("match: player %d has bad team %d", p.ID, p.TeamID)
		}
		seen[p.ID] = true
		slots[p.ID] = p.Position
		roster = append(roster, RosterEntry{ID: p.ID, TeamID: p.TeamID, Role: p.Role})
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	t := cfg.Tuning
	m := &Match{
		cfg:           cfg,
		t:             t,
		logger:        logger,
		players:       append([]Player(nil), players...),
		roster:        roster,
		slots:         slots,
		state:         State{Period: PeriodH1},
		intents:       intent.NewManager([2]float32{t.Baseline.HomeX, t.Baseline.AwayX}),
		events:        newEventLog(t.Events.LogCap),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		observers:     map[string]chan []byte{},
		stop:          make(chan struct{}),
	}
	m.kickoff(TeamHome)
	m.publishMetrics(0)
	return m, nil
}

// NewFiveASide is New with the standard ten-player setup.
func NewFiveASide(cfg Config, logger *log.Logger) (*Match, error) {
	return New(cfg, FiveASide(), logger)
}

func (m *Match) SetDecider(d Decider) { m.decider = d }

func (m *Match) ObserverJoin() chan<- ObserverJoinRequest { return m.observerJoin }
func (m *Match) ObserverLeave() chan<- string             { return m.observerLeave }

func (m *Match) ID() string               { return m.cfg.ID }
func (m *Match) Tuning() tuning.Tuning    { return m.t }
func (m *Match) CurrentTick() uint64      { return m.tick.Load() }
func (m *Match) Finished() bool           { return m.finished }
func (m *Match) Intents() *intent.Manager { return m.intents }

func (m *Match) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(m.t.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case req := <-m.observerJoin:
			m.observers[req.SessionID] = req.Out
		case id := <-m.observerLeave:
			delete(m.observers, id)
		case <-ticker.C:
			m.Step()
			if m.finished {
				m.logger.Printf("full time: home %d - %d away", m.state.HomeScore, m.state.AwayScore)
				return nil
			}
		}
	}
}

func (m *Match) Stop() { close(m.stop) }

// Step advances the match by one fixed tick.
func (m *Match) Step() {
	if m.finished {
		return
	}
	start := time.Now()

	if m.decider != nil {
		if batch, ok := m.decider.Collect(); ok {
			m.intents.Merge(batch)
		}
	}

	m.state.TimeMS += m.t.TickMs()
	m.intents.Expire(m.state.TimeMS)

	dt := m.t.TickDt()
	m.movePlayers(dt)
	m.carrierAction()
	m.resolvePossession(dt)
	m.checkGoal()
	m.advancePeriod()

	if m.decider != nil && !m.finished {
		m.decider.Tick(m.state.TimeMS, m)
	}

	m.tick.Add(1)
	m.broadcastFrame()
	m.publishMetrics(float64(time.Since(start).Microseconds()) / 1000)
}

func (m *Match) movePlayers(dt float32) {
	ph := m.t.Physics
	pv := pitch{m}

	moved := make([]geom.Vec2, len(m.players))
	for i, p := range m.players {
		if p.HasBall {
			moved[i] = p.Position
			continue
		}
		target, _, ok := m.intents.ResolveTarget(p.ID, pv)
		if !ok {
			target = p.Position
		}
		moved[i] = MoveTowards(p.Position, target, p.MaxSpeed(ph.BaseSpeed), dt)
	}

	// Avoidance runs against everyone's post-move position.
	others := make([]geom.Vec2, 0, len(m.players))
	for i := range m.players {
		p := &m.players[i]
		if p.HasBall {
			continue
		}
		others = others[:0]
		for j := range moved {
			if j != i {
				others = append(others, moved[j])
			}
		}
		next := AvoidCollision(moved[i], others, ph.MinDistance, ph.AvoidanceStep).Clamp(m.t.Field.Width, m.t.Field.Height)
		if d := next.Distance(p.Position); d > 0.01 {
			p.Stamina = geom.Clamp01(p.Stamina - d*ph.StaminaPerMeter)
		} else {
			p.Stamina = geom.Clamp01(p.Stamina + ph.StaminaRecovery*dt)
		}
		p.Position = next
	}
}

func (m *Match) resolvePossession(dt float32) {
	prev, hadPrev := m.ball.OwnerID()
	id, ok := FindOwner(m.ball.Position, m.players, m.t.Physics.PossessionRadius)
	if !ok {
		m.ball.Owner = nil
		for i := range m.players {
			m.players[i].HasBall = false
		}
		UpdateBall(&m.ball, dt, m.t.Physics.BallFriction, m.t.Field.Width, m.t.Field.Height)
		return
	}

	m.ball.Owner = u32(id)
	m.ball.Velocity = geom.Vec2{}
	for i := range m.players {
		p := &m.players[i]
		p.HasBall = p.ID == id
		if p.HasBall {
			p.Position = m.ball.Position
		}
	}
	if !hadPrev || prev != id {
		m.onPossessionChange(prev, hadPrev, id)
	}
}

func (m *Match) onPossessionChange(prev uint32, hadPrev bool, id uint32) {
	now := m.state.TimeMS
	owner := m.player(id)
	m.possessionSinceMS = now
	m.lastToucher = u32(id)

	if k := m.pendingKick; k != nil {
		m.pendingKick = nil
		ev := m.events.byID(k.EventID)
		sameTeam := owner.TeamID == k.TeamID
		switch k.Type {
		case EventPass:
			if sameTeam && id != k.KickerID {
				m.lastPass = &passInfo{PasserID: k.KickerID, ReceiverID: id}
				if ev != nil {
					ev.Outcome = OutcomeComplete
				}
			} else if ev != nil {
				ev.Outcome = OutcomeIncomplete
			}
		case EventShot:
			if ev != nil {
				ev.Outcome = OutcomeFailure
			}
		}
		if !sameTeam {
			m.emitTurnover(owner, k.KickerID)
		}
		return
	}

	if hadPrev {
		if p := m.player(prev); p != nil && p.TeamID != owner.TeamID {
			m.emitTurnover(owner, prev)
		}
	}
}

func (m *Match) emitTurnover(winner *Player, loserID uint32) {
	m.lastPass = nil
	m.events.append(m.newEvent(EventTurnover, winner.TeamID, winner.ID, winner.Position, EventPayload{
		OnPlayerID: u32(loserID),
	}, OutcomeSuccess))
}

// checkGoal scores a ball on or past a goal line inside the goal mouth.
// A carried ball counts too: the carrier is clamped to the pitch, so an owned
// ball only reaches the line when it is walked in.
func (m *Match) checkGoal() {
	f := m.t.Field
	half := f.GoalWidth / 2
	cx := f.Width / 2
	pos := m.ball.Position
	if pos.X < cx-half || pos.X > cx+half {
		return
	}
	switch {
	case pos.Y >= f.Height:
		m.scoreGoal(TeamHome)
	case pos.Y <= 0:
		m.scoreGoal(TeamAway)
	}
}

func (m *Match) scoreGoal(team uint8) {
	if team == TeamHome {
		m.state.HomeScore++
	} else {
		m.state.AwayScore++
	}

	payload := EventPayload{}
	scorer := uint32(0)
	if m.lastToucher != nil {
		scorer = *m.lastToucher
		payload.ScorerID = u32(scorer)
	}
	if k := m.pendingKick; k != nil {
		if ev := m.events.byID(k.EventID); ev != nil && k.Type == EventShot {
			ev.Outcome = OutcomeSuccess
		}
	}
	if lp := m.lastPass; lp != nil && lp.ReceiverID == scorer {
		if p := m.player(lp.PasserID); p != nil && p.TeamID == team {
			payload.AssistID = u32(lp.PasserID)
		}
	}
	m.events.append(m.newEvent(EventGoal, team, scorer, m.ball.Position, payload, OutcomeSuccess))
	m.logger.Printf("goal t=%dms team=%d scorer=%d score=%d-%d", m.state.TimeMS, team, scorer, m.state.HomeScore, m.state.AwayScore)

	for i := range m.players {
		p := &m.players[i]
		if p.TeamID == team {
			p.Morale = geom.Clamp01(p.Morale + 0.05)
		} else {
			p.Morale = geom.Clamp01(p.Morale - 0.05)
		}
	}
	m.kickoff(1 - team)
}

func (m *Match) advancePeriod() {
	length := uint64(m.t.MatchLengthMs)
	if length == 0 {
		return
	}
	if m.state.Period == PeriodH1 && m.state.TimeMS >= length/2 {
		m.state.Period = PeriodH2
		m.kickoff(TeamAway)
		m.logger.Printf("half time: home %d - %d away", m.state.HomeScore, m.state.AwayScore)
	}
	if m.state.TimeMS >= length {
		m.finished = true
	}
}

// kickoff resets everyone to their starting slot and gives the ball to the
// first player of team.
func (m *Match) kickoff(team uint8) {
	m.ball.Velocity = geom.Vec2{}
	m.ball.Owner = nil
	m.pendingKick = nil
	m.lastPass = nil
	m.lastToucher = nil
	for i := range m.players {
		p := &m.players[i]
		p.Position = m.slots[p.ID]
		p.HasBall = false
	}
	for i := range m.players {
		p := &m.players[i]
		if p.TeamID == team {
			p.HasBall = true
			m.ball.Owner = u32(p.ID)
			m.ball.Position = p.Position
			m.lastToucher = u32(p.ID)
			break
		}
	}
	m.possessionSinceMS = m.state.TimeMS
}

func (m *Match) player(id uint32) *Player {
	for i := range m.players {
		if m.players[i].ID == id {
			return &m.players[i]
		}
	}
	return nil
}

// AttackingGoal is the goal centre team attacks: home toward y=height, away toward y=0.
func (m *Match) AttackingGoal(team uint8) geom.Vec2 {
	return AttackingGoal(team, m.t.Field.Width, m.t.Field.Height)
}

func AttackingGoal(team uint8, width, height float32) geom.Vec2 {
	if team == TeamHome {
		return geom.Vec2{X: width / 2, Y: height}
	}
	return geom.Vec2{X: width / 2, Y: 0}
}

// pitch adapts Match to intent.Pitch.
type pitch struct{ m *Match }

func (p pitch) BallPosition() geom.Vec2 { return p.m.ball.Position }
func (p pitch) BallOwned() bool         { return p.m.ball.Owner != nil }
func (p pitch) Player(id uint32) (intent.PlayerView, bool) {
	pl := p.m.player(id)
	if pl == nil {
		return intent.PlayerView{}, false
	}
	return intent.PlayerView{Position: pl.Position, TeamID: pl.TeamID}, true
}
