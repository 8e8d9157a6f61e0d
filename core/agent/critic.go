package agent

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// qHead is one state-action value estimator: concat(state, action) through
// two hidden ReLU layers to a scalar.
type qHead struct {
	l1, l2, l3 *dense
	a1, a2     *relu
}

func newQHead(stateDim, actionDim, hidden int, rng *rand.Rand) *qHead {
	return &qHead{
		l1: newDense(stateDim+actionDim, hidden, rng),
		l2: newDense(hidden, hidden, rng),
		l3: newDense(hidden, 1, rng),
		a1: &relu{},
		a2: &relu{},
	}
}

func (q *qHead) forward(xu *mat.Dense) *mat.Dense {
	h := q.a1.forward(q.l1.forward(xu))
	h = q.a2.forward(q.l2.forward(h))
	return q.l3.forward(h)
}

// backward propagates an output gradient down to the concatenated input.
func (q *qHead) backward(g *mat.Dense) *mat.Dense {
	gh := q.l3.backward(g)
	gh = q.l2.backward(q.a2.backward(gh))
	return q.l1.backward(q.a1.backward(gh))
}

func (q *qHead) params() []*mat.Dense {
	return append(append(q.l1.params(), q.l2.params()...), q.l3.params()...)
}

func (q *qHead) grads() []*mat.Dense {
	return append(append(q.l1.grads(), q.l2.grads()...), q.l3.grads()...)
}

// QNetwork is a twin critic: two independent estimators evaluated in one
// call. Taking the minimum of the two during target computation counteracts
// the overestimation bias of single-critic Q-learning.
type QNetwork struct {
	stateDim  int
	actionDim int
	q1, q2    *qHead
}

// NewQNetwork builds a twin critic with the given layout.
func NewQNetwork(stateDim, actionDim, hidden int, rng *rand.Rand) *QNetwork {
	return &QNetwork{
		stateDim:  stateDim,
		actionDim: actionDim,
		q1:        newQHead(stateDim, actionDim, hidden, rng),
		q2:        newQHead(stateDim, actionDim, hidden, rng),
	}
}

// Forward evaluates both estimators on a batch, returning column vectors
// (Q1, Q2). Inputs are cached for a subsequent backward pass.
func (q *QNetwork) Forward(states, actions *mat.Dense) (*mat.Dense, *mat.Dense) {
	rows, _ := states.Dims()
	xu := mat.NewDense(rows, q.stateDim+q.actionDim, nil)
	xu.Augment(states, actions)
	return q.q1.forward(xu), q.q2.forward(xu)
}

// backward propagates per-head output gradients and returns the gradient
// with respect to the action columns of the input. Parameter gradients are
// accumulated on the way down.
func (q *QNetwork) backward(g1, g2 *mat.Dense) *mat.Dense {
	gin1 := q.q1.backward(g1)
	gin2 := q.q2.backward(g2)
	rows, _ := gin1.Dims()
	ga := mat.NewDense(rows, q.actionDim, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < q.actionDim; j++ {
			ga.Set(i, j, gin1.At(i, q.stateDim+j)+gin2.At(i, q.stateDim+j))
		}
	}
	return ga
}

// Params returns all trainable parameters in a stable order.
func (q *QNetwork) Params() []*mat.Dense {
	return append(q.q1.params(), q.q2.params()...)
}

func (q *QNetwork) gradients() []*mat.Dense {
	return append(q.q1.grads(), q.q2.grads()...)
}

func (q *QNetwork) zeroGrads() {
	zeroAll(q.gradients())
}

// HardUpdate copies source parameters into target, used once at
// construction so the target starts as an exact copy.
func HardUpdate(target, source *QNetwork) {
	hardCopy(target.Params(), source.Params())
}

// SoftUpdate drifts target parameters toward source via exponential moving
// average with coefficient tau.
func SoftUpdate(target, source *QNetwork, tau float64) {
	polyakMix(target.Params(), source.Params(), tau)
}
