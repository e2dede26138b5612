// Package utility scores candidate on-ball and off-ball actions.
//
// Every function here is pure: inputs are value snapshots, nothing is mutated,
// and all of them are safe to call from any goroutine.
package utility

import "matchsim.ai/internal/sim/geom"

const (
	MaxShootDistance    float32 = 20
	MaxPressDistance    float32 = 5
	LongPassFraction    float32 = 0.7
	PassLaneWidth       float32 = 2
	BlockingPenalty     float32 = 0.3
	PressureRadius      float32 = 5
	PressurePerDefender float32 = 0.3
)

// Traits is the persona subset the scores depend on.
type Traits struct {
	RiskAppetite      float32
	PressingIntensity float32
	VisionRange       float32
	Confidence        float32
}

// Pass scores a pass from `from` to `to` toward attackingGoal.
func Pass(from, to, attackingGoal geom.Vec2, opponents []geom.Vec2, tr Traits) float32 {
	dist := from.Distance(to)
	maxDist := tr.VisionRange

	var distanceScore float32
	if dist <= maxDist && maxDist > 0 {
		distanceScore = 1 - dist/maxDist
	}

	risk := 1 - tr.RiskAppetite
	if dist > maxDist*LongPassFraction {
		risk = tr.RiskAppetite
	}

	clear := 1 - BlockingRisk(from, to, opponents)
	gain := ForwardGain(from, to, attackingGoal)

	return distanceScore * risk * clear * (0.7 + 0.3*gain)
}

// Shoot scores a shot at goal. The angle term is flat for now.
func Shoot(from, goal geom.Vec2, opponents []geom.Vec2, tr Traits) float32 {
	dist := from.Distance(goal)
	if dist > MaxShootDistance {
		return 0
	}
	distanceScore := 1 - dist/MaxShootDistance
	angleScore := float32(1)
	return distanceScore * angleScore * tr.Confidence * (1 - DefensivePressure(from, opponents))
}

// Press scores closing down a target.
func Press(from, target geom.Vec2, tr Traits, stamina float32) float32 {
	dist := from.Distance(target)
	if dist > MaxPressDistance {
		return 0
	}
	return (1 - dist/MaxPressDistance) * tr.PressingIntensity * stamina
}

// BlockingRisk counts opponents within PassLaneWidth of the pass line, PressurePerDefender each, capped at 1.
func BlockingRisk(from, to geom.Vec2, opponents []geom.Vec2) float32 {
	var risk float32
	for _, o := range opponents {
		if geom.DistanceToSegment(from, to, o) < PassLaneWidth {
			risk += BlockingPenalty
		}
	}
	if risk > 1 {
		return 1
	}
	return risk
}

// ForwardGain is the fraction of the remaining distance to goal the pass covers, in [0,1].
func ForwardGain(from, to, goal geom.Vec2) float32 {
	fromDist := from.Distance(goal)
	if fromDist <= 0 {
		return 0
	}
	return geom.Clamp01((fromDist - to.Distance(goal)) / fromDist)
}

// DefensivePressure accumulates (1 - d/5)*0.3 per opponent inside 5 units, capped at 1.
func DefensivePressure(pos geom.Vec2, opponents []geom.Vec2) float32 {
	var p float32
	for _, o := range opponents {
		d := pos.Distance(o)
		if d < PressureRadius {
			p += (1 - d/PressureRadius) * PressurePerDefender
		}
	}
	if p > 1 {
		return 1
	}
	return p
}
