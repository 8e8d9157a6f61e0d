package sim

import "testing"

type nopLog struct{}

func (nopLog) Debugf(string, ...any)         {}
func (nopLog) Debugw(string, map[string]any) {}
func (nopLog) Infof(string, ...any)          {}
func (nopLog) Warnf(string, ...any)          {}
func (nopLog) Errorf(string, ...any)         {}

func TestBuildScenarioDefaults(t *testing.T) {
	s, err := BuildScenario(ScenarioConfig{}, nopLog{})
	if err != nil {
		t.Fatalf("build scenario: %v", err)
	}
	if s.ActionDim() != 2 {
		t.Fatalf("expected 2 chargers by default, got %d", s.ActionDim())
	}

	obs := s.Observation()
	if want := 3 + featuresPerCharger*2; len(obs) != want {
		t.Fatalf("expected observation of size %d, got %d", want, len(obs))
	}
	if obs[s.HourIndex()] != 1 {
		t.Fatalf("expected hour 1 at start, got %v", obs[s.HourIndex()])
	}
	for d, idx := range s.SoCIndices() {
		if idx >= len(obs) {
			t.Fatalf("soc index %d for dim %d out of range", idx, d)
		}
		if soc := obs[idx]; soc < 0 || soc > 1 {
			t.Fatalf("soc observation %v outside [0,1]", soc)
		}
	}
}

func TestScenarioConfigValidation(t *testing.T) {
	cfg := ScenarioConfig{}
	cfg.SetDefaults()
	cfg.BaseLoadKWh = []float64{1, 2, 3}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for short base load profile")
	}
}

func TestScenarioStep(t *testing.T) {
	s, err := BuildScenario(ScenarioConfig{}, nopLog{})
	if err != nil {
		t.Fatalf("build scenario: %v", err)
	}

	if _, err := s.Step([]float64{0.1}); err == nil {
		t.Fatalf("expected error for action count mismatch")
	}

	net, err := s.Step([]float64{0.1, 0.1})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	// Base load plus two charging draws.
	if net <= 0 {
		t.Fatalf("expected positive net consumption, got %v", net)
	}
	if s.TimeStep() != 1 {
		t.Fatalf("expected time step 1, got %d", s.TimeStep())
	}
	if s.Hour() != 2 {
		t.Fatalf("expected hour 2, got %d", s.Hour())
	}
}

func TestScenarioEpisodeEndsAndResets(t *testing.T) {
	cfg := ScenarioConfig{EpisodeLengthSteps: 24}
	s, err := BuildScenario(cfg, nopLog{})
	if err != nil {
		t.Fatalf("build scenario: %v", err)
	}

	actions := make([]float64, s.ActionDim())
	for !s.Done() {
		if _, err := s.Step(actions); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if s.TimeStep() != 24 {
		t.Fatalf("expected 24 steps, got %d", s.TimeStep())
	}

	s.Reset()
	if s.TimeStep() != 0 || s.Done() {
		t.Fatalf("expected rewound scenario after reset")
	}
	if got := len(s.Chargers()[0].ConsumptionHistory()); got != 1 {
		t.Fatalf("expected charger history truncated, got %d slots", got)
	}
}

func TestScenarioActionBounds(t *testing.T) {
	s, err := BuildScenario(ScenarioConfig{}, nopLog{})
	if err != nil {
		t.Fatalf("build scenario: %v", err)
	}
	low, high := s.ActionBounds()
	if len(low) != s.ActionDim() || len(high) != s.ActionDim() {
		t.Fatalf("bounds size mismatch")
	}
	for d := range low {
		if low[d] != -high[d] {
			t.Fatalf("expected symmetric bounds, got [%v, %v]", low[d], high[d])
		}
		if high[d] <= 0 || high[d] > 1 {
			t.Fatalf("high bound %v outside (0, 1]", high[d])
		}
	}
}
