package utility

// Kind names a discrete candidate action.
type Kind string

const (
	KindHold           Kind = "HOLD"
	KindPassSafe       Kind = "PASS_SAFE"
	KindPassRisk       Kind = "PASS_RISK"
	KindShoot          Kind = "SHOOT"
	KindPress          Kind = "PRESS"
	KindReturnPosition Kind = "RETURN_POSITION"
	KindCover          Kind = "COVER"
)

// Candidate is a scored option. Target is the receiving player for passes.
type Candidate struct {
	Kind     Kind
	TargetID uint32
	Utility  float32
}

// Select returns the highest-utility candidate; the earliest wins ties.
func Select(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Utility > best.Utility {
			best = c
		}
	}
	return best, true
}
