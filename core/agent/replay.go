package agent

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientSamples is returned when a batch larger than the stored
// transition count is requested.
var ErrInsufficientSamples = errors.New("replay: not enough stored transitions")

// Transition is one stored experience tuple. The buffer owns all copies.
type Transition struct {
	State     []float64
	Action    []float64
	Reward    float64
	NextState []float64
	// Mask is 0 when the episode terminated at this step, 1 otherwise. It
	// gates the bootstrapped value in the critic target.
	Mask float64
}

// ReplayBuffer is a fixed-capacity ring of transitions. Once full, pushes
// overwrite the oldest slot.
type ReplayBuffer struct {
	capacity int
	buf      []Transition
	pos      int
	rng      *rand.Rand
}

// NewReplayBuffer creates a buffer holding at most capacity transitions.
func NewReplayBuffer(capacity int, rng *rand.Rand) (*ReplayBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("replay: capacity must be positive, got %d", capacity)
	}
	return &ReplayBuffer{capacity: capacity, rng: rng}, nil
}

// Len returns the number of currently stored transitions.
func (b *ReplayBuffer) Len() int { return len(b.buf) }

// Capacity returns the maximum number of stored transitions.
func (b *ReplayBuffer) Capacity() int { return b.capacity }

// Push stores a transition, overwriting the oldest slot once at capacity.
// Slices are copied so later caller mutation cannot corrupt the buffer.
func (b *ReplayBuffer) Push(t Transition) {
	cp := Transition{
		State:     append([]float64(nil), t.State...),
		Action:    append([]float64(nil), t.Action...),
		Reward:    t.Reward,
		NextState: append([]float64(nil), t.NextState...),
		Mask:      t.Mask,
	}
	if len(b.buf) < b.capacity {
		b.buf = append(b.buf, cp)
	} else {
		b.buf[b.pos] = cp
	}
	b.pos = (b.pos + 1) % b.capacity
}

// Batch holds a sampled minibatch as dense matrices, one row per transition.
// Rewards and Masks are column vectors.
type Batch struct {
	States     *mat.Dense
	Actions    *mat.Dense
	Rewards    *mat.Dense
	NextStates *mat.Dense
	Masks      *mat.Dense
}

// Sample draws batchSize distinct transitions uniformly at random. It fails
// with ErrInsufficientSamples when fewer transitions are stored.
func (b *ReplayBuffer) Sample(batchSize int) (Batch, error) {
	if batchSize <= 0 {
		return Batch{}, fmt.Errorf("replay: batch size must be positive, got %d", batchSize)
	}
	if batchSize > len(b.buf) {
		return Batch{}, fmt.Errorf("%w: want %d, have %d", ErrInsufficientSamples, batchSize, len(b.buf))
	}

	stateDim := len(b.buf[0].State)
	actionDim := len(b.buf[0].Action)
	batch := Batch{
		States:     mat.NewDense(batchSize, stateDim, nil),
		Actions:    mat.NewDense(batchSize, actionDim, nil),
		Rewards:    mat.NewDense(batchSize, 1, nil),
		NextStates: mat.NewDense(batchSize, stateDim, nil),
		Masks:      mat.NewDense(batchSize, 1, nil),
	}
	for i, idx := range b.rng.Perm(len(b.buf))[:batchSize] {
		t := b.buf[idx]
		batch.States.SetRow(i, t.State)
		batch.Actions.SetRow(i, t.Action)
		batch.Rewards.Set(i, 0, t.Reward)
		batch.NextStates.SetRow(i, t.NextState)
		batch.Masks.Set(i, 0, t.Mask)
	}
	return batch, nil
}
