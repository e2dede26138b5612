package geom

import (
	"math"
	"testing"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

func TestVec2_DistanceLength(t *testing.T) {
	a := V(0, 0)
	b := V(3, 4)
	if d := a.Distance(b); !near(d, 5) {
		t.Fatalf("distance: got %v want 5", d)
	}
	if l := b.Length(); !near(l, 5) {
		t.Fatalf("length: got %v want 5", l)
	}
}

func TestVec2_NormalizeZero(t *testing.T) {
	if n := (Vec2{}).Normalize(); n != (Vec2{}) {
		t.Fatalf("zero normalize: got %+v", n)
	}
	n := V(10, 0).Normalize()
	if !near(n.X, 1) || n.Y != 0 {
		t.Fatalf("normalize: got %+v", n)
	}
}

func TestDistanceToSegment(t *testing.T) {
	a, b := V(0, 0), V(10, 0)
	if d := DistanceToSegment(a, b, V(5, 2)); !near(d, 2) {
		t.Fatalf("mid: got %v", d)
	}
	if d := DistanceToSegment(a, b, V(-3, 4)); !near(d, 5) {
		t.Fatalf("before a: got %v", d)
	}
	if d := DistanceToSegment(a, a, V(0, 1)); !near(d, 1) {
		t.Fatalf("degenerate: got %v", d)
	}
}

func TestClamp(t *testing.T) {
	got := V(-1, 200).Clamp(68, 105)
	if got != V(0, 105) {
		t.Fatalf("clamp: got %+v", got)
	}
}
