package agent

import (
	"math"
	"testing"
)

func TestCubicReward(t *testing.T) {
	rewards := CubicReward([]float64{-2, 0, 3})

	if got := rewards[0]; got != -8 {
		t.Fatalf("net consumption -2: expected -8, got %v", got)
	}
	if got := rewards[1]; got != 0 {
		t.Fatalf("zero demand: expected 0, got %v", got)
	}
	// Net generation earns nothing.
	if got := rewards[2]; got != 0 {
		t.Fatalf("net generation: expected 0, got %v", got)
	}
}

func TestSharedReward(t *testing.T) {
	demand := []float64{-4, -6}
	rewards := SharedReward(demand)

	// District total is 10; each agent's quadratic term is scaled by it.
	if want := -0.01 * 16 * 10; math.Abs(rewards[0]-want) > 1e-12 {
		t.Fatalf("agent 0: expected %v, got %v", want, rewards[0])
	}
	if want := -0.01 * 36 * 10; math.Abs(rewards[1]-want) > 1e-12 {
		t.Fatalf("agent 1: expected %v, got %v", want, rewards[1])
	}
}

func TestSharedRewardZeroWhenDistrictGenerates(t *testing.T) {
	rewards := SharedReward([]float64{5, 3})
	for i, r := range rewards {
		if r != 0 {
			t.Fatalf("agent %d: generating district must yield 0, got %v", i, r)
		}
	}
}
