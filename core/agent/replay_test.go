package agent

import (
	"errors"
	"testing"

	"golang.org/x/exp/rand"
)

func transitionWithReward(r float64) Transition {
	return Transition{
		State:     []float64{r, 0},
		Action:    []float64{0.5},
		Reward:    r,
		NextState: []float64{r, 1},
		Mask:      1,
	}
}

func TestReplayBufferRingSemantics(t *testing.T) {
	buf, err := NewReplayBuffer(4, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	for i := 0; i < 10; i++ {
		buf.Push(transitionWithReward(float64(i)))
	}
	if buf.Len() != 4 {
		t.Fatalf("expected len 4 got %d", buf.Len())
	}

	// The four most recent pushes (6..9) must be the survivors.
	batch, err := buf.Sample(4)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	rows, _ := batch.Rewards.Dims()
	seen := map[float64]bool{}
	for i := 0; i < rows; i++ {
		seen[batch.Rewards.At(i, 0)] = true
	}
	for _, want := range []float64{6, 7, 8, 9} {
		if !seen[want] {
			t.Fatalf("expected reward %v among survivors, got %v", want, seen)
		}
	}
}

func TestReplayBufferSampleDistinct(t *testing.T) {
	buf, err := NewReplayBuffer(100, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	for i := 0; i < 20; i++ {
		buf.Push(transitionWithReward(float64(i)))
	}

	batch, err := buf.Sample(20)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	rows, _ := batch.Rewards.Dims()
	seen := map[float64]bool{}
	for i := 0; i < rows; i++ {
		r := batch.Rewards.At(i, 0)
		if seen[r] {
			t.Fatalf("duplicate transition %v in one batch", r)
		}
		seen[r] = true
	}
}

func TestReplayBufferInsufficientSamples(t *testing.T) {
	buf, err := NewReplayBuffer(8, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	buf.Push(transitionWithReward(1))

	if _, err := buf.Sample(2); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestReplayBufferOwnsCopies(t *testing.T) {
	buf, err := NewReplayBuffer(2, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	state := []float64{1, 2}
	buf.Push(Transition{State: state, Action: []float64{0}, NextState: []float64{3, 4}, Mask: 1})
	state[0] = 99

	batch, err := buf.Sample(1)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if got := batch.States.At(0, 0); got != 1 {
		t.Fatalf("buffer shares caller memory: got %v", got)
	}
}
