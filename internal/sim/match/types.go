package match

import (
	"matchsim.ai/internal/sim/geom"
	"matchsim.ai/internal/sim/utility"
)

const (
	TeamHome uint8 = 0
	TeamAway uint8 = 1
)

// Persona holds per-player behavioural parameters. Values are in [0,1]
// except VisionRange, which is in meters. Immutable after setup.
type Persona struct {
	RiskAppetite      float32           `json:"risk_appetite"`
	PressingIntensity float32           `json:"pressing_intensity"`
	VisionRange       float32           `json:"vision_range"`
	Patience          float32           `json:"patience"`
	WorkRate          float32           `json:"work_rate"`
	PatternPreference PatternPreference `json:"pattern_preference"`
	Discipline        float32           `json:"discipline"`
	Aggression        float32           `json:"aggression"`
	Confidence        float32           `json:"confidence"`
}

type PatternPreference struct {
	SwitchPlay  float32 `json:"switch_play"`
	ThroughBall float32 `json:"through_ball"`
	CutBack     float32 `json:"cut_back"`
}

func DefaultPersona() Persona {
	return Persona{
		RiskAppetite:      0.5,
		PressingIntensity: 0.5,
		VisionRange:       15,
		Patience:          0.5,
		WorkRate:          0.5,
		PatternPreference: PatternPreference{SwitchPlay: 0.5, ThroughBall: 0.5, CutBack: 0.5},
		Discipline:        0.5,
		Aggression:        0.5,
		Confidence:        0.5,
	}
}

func (p Persona) Traits() utility.Traits {
	return utility.Traits{
		RiskAppetite:      p.RiskAppetite,
		PressingIntensity: p.PressingIntensity,
		VisionRange:       p.VisionRange,
		Confidence:        p.Confidence,
	}
}

type Player struct {
	ID       uint32    `json:"id"`
	TeamID   uint8     `json:"team_id"`
	Role     string    `json:"role"`
	Position geom.Vec2 `json:"position"`
	Stamina  float32   `json:"stamina"`
	Morale   float32   `json:"morale"`
	HasBall  bool      `json:"has_ball"`
	Persona  Persona   `json:"persona"`
}

// MaxSpeed is in meters per second.
func (p Player) MaxSpeed(base float32) float32 { return base * p.Persona.WorkRate }

// Ball.Owner is nil for a free ball.
type Ball struct {
	Position geom.Vec2 `json:"position"`
	Velocity geom.Vec2 `json:"velocity"`
	Owner    *uint32   `json:"owner,omitempty"`
}

func (b Ball) OwnerID() (uint32, bool) {
	if b.Owner == nil {
		return 0, false
	}
	return *b.Owner, true
}

type Period string

const (
	PeriodH1        Period = "H1"
	PeriodH2        Period = "H2"
	PeriodExtraTime Period = "ExtraTime"
)

type State struct {
	Period    Period `json:"period"`
	TimeMS    uint64 `json:"time_ms"`
	HomeScore uint32 `json:"home_score"`
	AwayScore uint32 `json:"away_score"`
}

// TacticalSettings is the coach-level instruction set handed to planners.
type TacticalSettings struct {
	AttackDefenseBalance float32      `json:"attack_defense_balance"`
	PressingIntensity    float32      `json:"pressing_intensity"`
	PlayerRoles          []PlayerRole `json:"player_roles"`
}

type PlayerRole struct {
	PlayerID uint32 `json:"player_id"`
	RoleName string `json:"role_name"`
}
