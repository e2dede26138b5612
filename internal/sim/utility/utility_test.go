package utility

import (
	"math"
	"testing"

	"matchsim.ai/internal/sim/geom"
)

func approx(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

var baseTraits = Traits{RiskAppetite: 0.5, PressingIntensity: 0.5, VisionRange: 15, Confidence: 0.5}

func TestCutoffsAreExactlyZero(t *testing.T) {
	from := geom.V(34, 50)
	goal := geom.V(34, 105)

	for _, d := range []float32{15.01, 20, 60} {
		if u := Pass(from, geom.V(34+d, 50), goal, nil, baseTraits); u != 0 {
			t.Fatalf("pass beyond vision (%v): got %v", d, u)
		}
	}
	if u := Shoot(geom.V(34, 84.9), goal, nil, baseTraits); u != 0 {
		t.Fatalf("shot beyond 20: got %v", u)
	}
	if u := Press(from, geom.V(34, 55.01), baseTraits, 1); u != 0 {
		t.Fatalf("press beyond 5: got %v", u)
	}
}

func TestPass_ShortVsLongRisk(t *testing.T) {
	from := geom.V(34, 50)
	goal := geom.V(34, 105)
	cautious := baseTraits
	cautious.RiskAppetite = 0.2

	short := Pass(from, geom.V(39, 50), goal, nil, cautious) // 5 < 10.5
	long := Pass(from, geom.V(46, 50), goal, nil, cautious)  // 12 > 10.5

	// short: (1-5/15)*(0.8)*1*(0.7+0.3*gain)
	wantShort := (1 - float32(5)/15) * 0.8 * (0.7 + 0.3*ForwardGain(from, geom.V(39, 50), goal))
	if !approx(short, wantShort) {
		t.Fatalf("short pass: got %v want %v", short, wantShort)
	}
	wantLong := (1 - float32(12)/15) * 0.2 * (0.7 + 0.3*ForwardGain(from, geom.V(46, 50), goal))
	if !approx(long, wantLong) {
		t.Fatalf("long pass: got %v want %v", long, wantLong)
	}
}

func TestPass_ForwardGainBonus(t *testing.T) {
	from := geom.V(34, 50)
	goal := geom.V(34, 105)
	fwd := Pass(from, geom.V(34, 58), goal, nil, baseTraits)
	back := Pass(from, geom.V(34, 42), goal, nil, baseTraits)
	if fwd <= back {
		t.Fatalf("forward pass should score higher: fwd=%v back=%v", fwd, back)
	}
	// Backward pass gets exactly the 0.7 floor.
	want := (1 - float32(8)/15) * 0.5 * 0.7
	if !approx(back, want) {
		t.Fatalf("backward pass: got %v want %v", back, want)
	}
}

func TestBlockingRisk(t *testing.T) {
	from, to := geom.V(0, 0), geom.V(10, 0)
	opps := []geom.Vec2{geom.V(5, 1), geom.V(5, -1.5), geom.V(5, 3)}
	if r := BlockingRisk(from, to, opps); !approx(r, 0.6) {
		t.Fatalf("risk: got %v want 0.6", r)
	}
	many := []geom.Vec2{geom.V(1, 0), geom.V(2, 0), geom.V(3, 0), geom.V(4, 0)}
	if r := BlockingRisk(from, to, many); r != 1 {
		t.Fatalf("risk should cap at 1: %v", r)
	}
	if u := Pass(from, to, geom.V(34, 105), many, baseTraits); u != 0 {
		t.Fatalf("fully blocked lane should be 0: %v", u)
	}
}

func TestShoot(t *testing.T) {
	goal := geom.V(34, 105)
	from := geom.V(34, 95)
	clear := Shoot(from, goal, nil, baseTraits)
	if !approx(clear, 0.5*0.5) {
		t.Fatalf("clear shot: got %v", clear)
	}
	pressured := Shoot(from, goal, []geom.Vec2{geom.V(34, 96)}, baseTraits)
	wantPressure := (1 - float32(1)/5) * 0.3
	if !approx(pressured, 0.25*(1-wantPressure)) {
		t.Fatalf("pressured shot: got %v", pressured)
	}
}

func TestDefensivePressureCaps(t *testing.T) {
	pos := geom.V(0, 0)
	var opps []geom.Vec2
	for i := 0; i < 10; i++ {
		opps = append(opps, pos)
	}
	if p := DefensivePressure(pos, opps); p != 1 {
		t.Fatalf("pressure cap: %v", p)
	}
}

func TestPress(t *testing.T) {
	u := Press(geom.V(0, 0), geom.V(0, 2.5), Traits{PressingIntensity: 0.8}, 0.5)
	if !approx(u, 0.5*0.8*0.5) {
		t.Fatalf("press: got %v", u)
	}
}

func TestSelect(t *testing.T) {
	if _, ok := Select(nil); ok {
		t.Fatalf("empty set should not select")
	}
	got, ok := Select([]Candidate{
		{Kind: KindHold, Utility: 0.2},
		{Kind: KindPassSafe, TargetID: 3, Utility: 0.6},
		{Kind: KindShoot, Utility: 0.6},
		{Kind: KindPress, Utility: -0.1},
	})
	if !ok || got.Kind != KindPassSafe || got.TargetID != 3 {
		t.Fatalf("select: %+v", got)
	}
}
