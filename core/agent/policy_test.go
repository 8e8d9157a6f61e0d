package agent

import (
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func testSpace() ActionSpace {
	return ActionSpace{Low: []float64{-0.25, -0.25}, High: []float64{0.25, 0.25}}
}

func TestGaussianPolicyActionsWithinBounds(t *testing.T) {
	space := testSpace()
	p := NewGaussianPolicy(4, 16, space, rand.New(rand.NewSource(42)))

	states := [][]float64{
		{0, 0, 0, 0},
		{1, -1, 0.5, 12},
		{100, -100, 3, 24},
		{-5, 5, 0.01, 1},
	}
	for _, s := range states {
		sr := p.Sample(mat.NewDense(1, 4, s))
		for d := 0; d < len(space.Low); d++ {
			a := sr.Actions.At(0, d)
			if a < space.Low[d] || a > space.High[d] {
				t.Fatalf("action %v outside [%v, %v] for state %v", a, space.Low[d], space.High[d], s)
			}
			m := sr.Mean.At(0, d)
			if m < space.Low[d] || m > space.High[d] {
				t.Fatalf("mean action %v outside bounds for state %v", m, s)
			}
		}
	}
}

func TestGaussianPolicyMeanIsDeterministic(t *testing.T) {
	p := NewGaussianPolicy(3, 8, testSpace(), rand.New(rand.NewSource(9)))
	state := mat.NewDense(1, 3, []float64{0.3, -0.7, 5})

	first := p.Sample(state)
	second := p.Sample(state)
	for d := 0; d < 2; d++ {
		if first.Mean.At(0, d) != second.Mean.At(0, d) {
			t.Fatalf("mean action changed between calls: %v vs %v",
				first.Mean.At(0, d), second.Mean.At(0, d))
		}
	}
}

func TestDeterministicPolicyZeroLogProb(t *testing.T) {
	space := testSpace()
	p := NewDeterministicPolicy(3, 8, space, rand.New(rand.NewSource(11)))
	sr := p.Sample(mat.NewDense(1, 3, []float64{1, 2, 3}))

	if got := sr.LogProb.At(0, 0); got != 0 {
		t.Fatalf("deterministic policy log-prob must be zero, got %v", got)
	}
	// Clipped noise of +-0.25 around the squashed mean can leave the
	// declared bounds by at most the clip radius.
	for d := 0; d < len(space.Low); d++ {
		a := sr.Actions.At(0, d)
		if a < space.Low[d]-0.25 || a > space.High[d]+0.25 {
			t.Fatalf("noisy action %v too far outside bounds", a)
		}
	}
}
