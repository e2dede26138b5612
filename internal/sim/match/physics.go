package match

import "matchsim.ai/internal/sim/geom"

// MoveTowards advances pos toward target by at most maxSpeed*dt without overshooting.
func MoveTowards(pos, target geom.Vec2, maxSpeed, dt float32) geom.Vec2 {
	dir := target.Sub(pos)
	dist := dir.Length()
	if dist < 0.01 {
		return pos
	}
	step := maxSpeed * dt
	if step > dist {
		step = dist
	}
	return pos.Add(dir.Normalize().Scale(step))
}

// AvoidCollision nudges pos away from every neighbour closer than minDist.
// Repulsions are weighted by (1 - d/minDist), averaged, and applied as a
// fixed step along the resulting direction. Coincident points are ignored.
func AvoidCollision(pos geom.Vec2, others []geom.Vec2, minDist, step float32) geom.Vec2 {
	var avoid geom.Vec2
	n := 0
	for _, o := range others {
		d := pos.Distance(o)
		if d < minDist && d > 0.01 {
			strength := 1 - d/minDist
			avoid = avoid.Add(pos.Sub(o).Normalize().Scale(strength))
			n++
		}
	}
	if n == 0 {
		return pos
	}
	avoid = avoid.Scale(1 / float32(n))
	return pos.Add(avoid.Normalize().Scale(step))
}

// UpdateBall applies friction, integrates velocity, and clamps to the field.
func UpdateBall(b *Ball, dt, friction, width, height float32) {
	decay := 1 - friction*dt
	if decay < 0 {
		decay = 0
	}
	b.Velocity = b.Velocity.Scale(decay)
	b.Position = b.Position.Add(b.Velocity.Scale(dt)).Clamp(width, height)
}

// FindOwner returns the first player, in slice order, within radius of the ball.
// Ties are not broken by distance.
func FindOwner(ball geom.Vec2, players []Player, radius float32) (uint32, bool) {
	for _, p := range players {
		if ball.Distance(p.Position) < radius {
			return p.ID, true
		}
	}
	return 0, false
}
