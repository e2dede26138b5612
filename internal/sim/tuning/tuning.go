package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	DecisionIntervalMs int `yaml:"decision_interval_ms"`
	PlannerTimeoutMs   int `yaml:"planner_timeout_ms"`
	MatchLengthMs      int `yaml:"match_length_ms"`

	Field    Field    `yaml:"field"`
	Physics  Physics  `yaml:"physics"`
	Kick     Kick     `yaml:"kick"`
	Events   Events   `yaml:"events"`
	Baseline Baseline `yaml:"baseline"`
	Tactics  Tactics  `yaml:"tactics"`
}

type Field struct {
	Width     float32 `yaml:"width"`
	Height    float32 `yaml:"height"`
	GoalWidth float32 `yaml:"goal_width"`
}

type Physics struct {
	BaseSpeed        float32 `yaml:"base_speed"`
	PossessionRadius float32 `yaml:"possession_radius"`
	MinDistance      float32 `yaml:"min_distance"`
	AvoidanceStep    float32 `yaml:"avoidance_step"`
	BallFriction     float32 `yaml:"ball_friction"`
	StaminaPerMeter  float32 `yaml:"stamina_per_meter"`
	StaminaRecovery  float32 `yaml:"stamina_recovery_per_s"`
}

type Kick struct {
	PassSpeed float32 `yaml:"pass_speed"`
	ShotSpeed float32 `yaml:"shot_speed"`
	Threshold float32 `yaml:"threshold"`
	MinHoldMs int     `yaml:"min_hold_ms"`
	Disabled  bool    `yaml:"disabled"`
}

type Events struct {
	LogCap        int `yaml:"log_cap"`
	ContextRecent int `yaml:"context_recent"`
}

type Baseline struct {
	HomeX float32 `yaml:"home_x"`
	AwayX float32 `yaml:"away_x"`
}

type Tactics struct {
	AttackDefenseBalance float32      `yaml:"attack_defense_balance"`
	PressingIntensity    float32      `yaml:"pressing_intensity"`
	PlayerRoles          []PlayerRole `yaml:"player_roles"`
}

type PlayerRole struct {
	PlayerID uint32 `yaml:"player_id"`
	RoleName string `yaml:"role_name"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         10,
		DecisionIntervalMs: 1000,
		PlannerTimeoutMs:   5000,
		MatchLengthMs:      0,
		Field:              Field{Width: 68, Height: 105, GoalWidth: 7.32},
		Physics: Physics{
			BaseSpeed:        5,
			PossessionRadius: 1.5,
			MinDistance:      1,
			AvoidanceStep:    0.5,
			BallFriction:     0.95,
			StaminaPerMeter:  0.002,
			StaminaRecovery:  0.01,
		},
		Kick:     Kick{PassSpeed: 18, ShotSpeed: 25, Threshold: 0.25, MinHoldMs: 800},
		Events:   Events{LogCap: 50, ContextRecent: 5},
		Baseline: Baseline{HomeX: 10, AwayX: 58},
		Tactics:  Tactics{AttackDefenseBalance: 0.5, PressingIntensity: 0.5},
	}
}

// Load reads a tuning file over Defaults, so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz))
	}
	if t.DecisionIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("decision_interval_ms must be > 0"))
	}
	if t.PlannerTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("planner_timeout_ms must be >= 0"))
	}
	if t.Field.Width <= 0 || t.Field.Height <= 0 {
		errs = append(errs, fmt.Errorf("field dimensions must be > 0"))
	}
	if t.Physics.PossessionRadius <= 0 || t.Physics.MinDistance <= 0 {
		errs = append(errs, fmt.Errorf("possession_radius and min_distance must be > 0"))
	}
	if t.Physics.BallFriction < 0 {
		errs = append(errs, fmt.Errorf("ball_friction must be >= 0"))
	}
	if t.Events.LogCap <= 0 || t.Events.ContextRecent < 0 {
		errs = append(errs, fmt.Errorf("events: log_cap must be > 0 and context_recent >= 0"))
	}
	if t.Tactics.AttackDefenseBalance < 0 || t.Tactics.AttackDefenseBalance > 1 ||
		t.Tactics.PressingIntensity < 0 || t.Tactics.PressingIntensity > 1 {
		errs = append(errs, fmt.Errorf("tactics values must be in [0,1]"))
	}
	return errors.Join(errs...)
}

// TickDt is the fixed step in seconds.
func (t Tuning) TickDt() float32 { return 1 / float32(t.TickRateHz) }

// TickMs is the fixed step in whole milliseconds.
func (t Tuning) TickMs() uint64 { return uint64(1000 / t.TickRateHz) }
