package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuningYAML(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning.yaml: %v", err)
	}
	if tu.TickRateHz != 10 || tu.DecisionIntervalMs != 1000 {
		t.Fatalf("cadence: tick=%d interval=%d", tu.TickRateHz, tu.DecisionIntervalMs)
	}
	if tu.Field.Width != 68 || tu.Field.Height != 105 {
		t.Fatalf("field: %+v", tu.Field)
	}
	if len(tu.Tactics.PlayerRoles) == 0 {
		t.Fatalf("expected player roles from config")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.TickRateHz != 20 || tu.TickMs() != 50 {
		t.Fatalf("override not applied: %+v", tu)
	}
	if tu.Physics.PossessionRadius != 1.5 || tu.Baseline.AwayX != 58 {
		t.Fatalf("defaults lost: %+v", tu.Physics)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tu := Defaults()
	tu.TickRateHz = 0
	tu.Tactics.PressingIntensity = 2
	if err := tu.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
