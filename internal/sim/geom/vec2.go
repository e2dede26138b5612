package geom

import "math"

// Vec2 is a point or displacement on the pitch, in meters.
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func V(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2         { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2         { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(k float32) Vec2    { return Vec2{X: v.X * k, Y: v.Y * k} }
func (v Vec2) Dot(o Vec2) float32      { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Distance(o Vec2) float32 { return v.Sub(o).Length() }

func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Normalize returns the unit vector in v's direction. The zero vector normalizes to itself.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l > 0 {
		return Vec2{X: v.X / l, Y: v.Y / l}
	}
	return Vec2{}
}

// Clamp keeps v inside [0,w] x [0,h].
func (v Vec2) Clamp(w, h float32) Vec2 {
	return Vec2{X: clamp(v.X, 0, w), Y: clamp(v.Y, 0, h)}
}

// DistanceToSegment returns the distance from p to the segment a-b.
// Degenerate segments (shorter than 0.1) collapse to the point a.
func DistanceToSegment(a, b, p Vec2) float32 {
	ab := b.Sub(a)
	ap := p.Sub(a)
	abSq := ab.Dot(ab)
	if abSq < 0.01 {
		return a.Distance(p)
	}
	t := clamp(ap.Dot(ab)/abSq, 0, 1)
	return a.Add(ab.Scale(t)).Distance(p)
}

func Clamp01(x float32) float32 { return clamp(x, 0, 1) }

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
