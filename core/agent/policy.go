package agent

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Numeric guards for the squashed-Gaussian math.
const (
	logSigMin  = -20.0
	logSigMax  = 2.0
	logEpsilon = 1e-6
)

const halfLog2Pi = 0.9189385332046727 // 0.5 * ln(2*pi)

// SampleResult is the outcome of one policy query on a batch of states.
type SampleResult struct {
	// Actions are stochastic samples rescaled to the action bounds.
	Actions *mat.Dense
	// LogProb is the per-row summed log-probability of Actions.
	LogProb *mat.Dense
	// Mean is the deterministic action (squashed mean, rescaled), used in
	// evaluation mode.
	Mean *mat.Dense
}

// Policy maps states to bounded actions. Sample caches intermediate values;
// backward consumes the cache of the most recent Sample call.
type Policy interface {
	Sample(states *mat.Dense) *SampleResult
	Params() []*mat.Dense
	backward(gAction, gLogProb *mat.Dense)
	gradients() []*mat.Dense
	zeroGrads()
}

// GaussianPolicy is a stochastic policy: a two-hidden-layer trunk with mean
// and log-std heads, sampled via the reparameterization trick and squashed
// with tanh before rescaling to the action bounds.
type GaussianPolicy struct {
	l1, l2     *dense
	a1, a2     *relu
	meanHead   *dense
	logStdHead *dense

	scale, bias []float64
	normal      distuv.Normal

	// caches from the last Sample call
	y       *mat.Dense // tanh of the pre-squash sample
	sigEps  *mat.Dense // std * noise, i.e. sample minus mean
	clamped *mat.Dense // 1 where the log-std clamp was active
}

// NewGaussianPolicy builds a policy for the given state size and action
// space.
func NewGaussianPolicy(stateDim, hidden int, space ActionSpace, rng *rand.Rand) *GaussianPolicy {
	scale, bias := space.scaleBias()
	return &GaussianPolicy{
		l1:         newDense(stateDim, hidden, rng),
		l2:         newDense(hidden, hidden, rng),
		a1:         &relu{},
		a2:         &relu{},
		meanHead:   newDense(hidden, space.Dim(), rng),
		logStdHead: newDense(hidden, space.Dim(), rng),
		scale:      scale,
		bias:       bias,
		normal:     distuv.Normal{Mu: 0, Sigma: 1, Src: rng},
	}
}

// forward computes mean and clamped log-std for a batch of states.
func (p *GaussianPolicy) forward(states *mat.Dense) (mean, logStd *mat.Dense) {
	h := p.a1.forward(p.l1.forward(states))
	h = p.a2.forward(p.l2.forward(h))
	mean = p.meanHead.forward(h)
	logStd = p.logStdHead.forward(h)

	rows, cols := logStd.Dims()
	p.clamped = mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := logStd.At(i, j)
			if v < logSigMin {
				logStd.Set(i, j, logSigMin)
				p.clamped.Set(i, j, 1)
			} else if v > logSigMax {
				logStd.Set(i, j, logSigMax)
				p.clamped.Set(i, j, 1)
			}
		}
	}
	return mean, logStd
}

// Sample draws a reparameterized action per row: x ~ Normal(mean, std) via
// noise drawn once, squashed with tanh, rescaled, with the
// change-of-variables correction applied to the log-probability.
func (p *GaussianPolicy) Sample(states *mat.Dense) *SampleResult {
	mean, logStd := p.forward(states)
	rows, dims := mean.Dims()

	actions := mat.NewDense(rows, dims, nil)
	detAction := mat.NewDense(rows, dims, nil)
	logProb := mat.NewDense(rows, 1, nil)
	p.y = mat.NewDense(rows, dims, nil)
	p.sigEps = mat.NewDense(rows, dims, nil)

	for i := 0; i < rows; i++ {
		var lp float64
		for j := 0; j < dims; j++ {
			mu := mean.At(i, j)
			ls := logStd.At(i, j)
			std := math.Exp(ls)
			eps := p.normal.Rand()
			x := mu + std*eps
			y := math.Tanh(x)
			p.y.Set(i, j, y)
			p.sigEps.Set(i, j, std*eps)

			actions.Set(i, j, y*p.scale[j]+p.bias[j])
			detAction.Set(i, j, math.Tanh(mu)*p.scale[j]+p.bias[j])

			lp += -0.5*eps*eps - ls - halfLog2Pi
			lp -= math.Log(p.scale[j]*(1-y*y) + logEpsilon)
		}
		logProb.Set(i, 0, lp)
	}
	return &SampleResult{Actions: actions, LogProb: logProb, Mean: detAction}
}

// backward consumes the cache of the last Sample call. gAction is the loss
// gradient with respect to the rescaled action, gLogProb with respect to the
// summed log-probability (one value per row).
func (p *GaussianPolicy) backward(gAction, gLogProb *mat.Dense) {
	rows, dims := p.y.Dims()
	gMean := mat.NewDense(rows, dims, nil)
	gLogStd := mat.NewDense(rows, dims, nil)

	for i := 0; i < rows; i++ {
		dL := gLogProb.At(i, 0)
		for j := 0; j < dims; j++ {
			y := p.y.At(i, j)
			s := p.scale[j]
			oneMinusY2 := 1 - y*y
			u := s*oneMinusY2 + logEpsilon

			// d action / dx and d logProb / dx, with x the pre-squash
			// sample; x depends on the mean head directly and on the
			// log-std head through std*eps.
			dx := gAction.At(i, j)*s*oneMinusY2 + dL*(2*s*y*oneMinusY2/u)
			gMean.Set(i, j, dx)
			gls := dx*p.sigEps.At(i, j) - dL
			if p.clamped.At(i, j) == 1 {
				gls = 0
			}
			gLogStd.Set(i, j, gls)
		}
	}

	gh := p.meanHead.backward(gMean)
	gh.Add(gh, p.logStdHead.backward(gLogStd))
	gh = p.l2.backward(p.a2.backward(gh))
	p.l1.backward(p.a1.backward(gh))
}

// Params returns all trainable parameters in a stable order.
func (p *GaussianPolicy) Params() []*mat.Dense {
	params := append(p.l1.params(), p.l2.params()...)
	params = append(params, p.meanHead.params()...)
	return append(params, p.logStdHead.params()...)
}

func (p *GaussianPolicy) gradients() []*mat.Dense {
	grads := append(p.l1.grads(), p.l2.grads()...)
	grads = append(grads, p.meanHead.grads()...)
	return append(grads, p.logStdHead.grads()...)
}

func (p *GaussianPolicy) zeroGrads() { zeroAll(p.gradients()) }

// DeterministicPolicy squashes the trunk mean and adds zero-mean Gaussian
// exploration noise (std 0.1, clipped to +/-0.25). Its log-probability is
// defined as zero.
type DeterministicPolicy struct {
	l1, l2   *dense
	a1, a2   *relu
	meanHead *dense

	scale, bias []float64
	noise       distuv.Normal

	y *mat.Dense
}

// NewDeterministicPolicy builds the deterministic policy variant.
func NewDeterministicPolicy(stateDim, hidden int, space ActionSpace, rng *rand.Rand) *DeterministicPolicy {
	scale, bias := space.scaleBias()
	return &DeterministicPolicy{
		l1:       newDense(stateDim, hidden, rng),
		l2:       newDense(hidden, hidden, rng),
		a1:       &relu{},
		a2:       &relu{},
		meanHead: newDense(hidden, space.Dim(), rng),
		scale:    scale,
		bias:     bias,
		noise:    distuv.Normal{Mu: 0, Sigma: 0.1, Src: rng},
	}
}

// Sample returns the squashed mean plus clipped exploration noise. LogProb
// is zero by definition.
func (p *DeterministicPolicy) Sample(states *mat.Dense) *SampleResult {
	h := p.a1.forward(p.l1.forward(states))
	h = p.a2.forward(p.l2.forward(h))
	mean := p.meanHead.forward(h)

	rows, dims := mean.Dims()
	actions := mat.NewDense(rows, dims, nil)
	detAction := mat.NewDense(rows, dims, nil)
	p.y = mat.NewDense(rows, dims, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < dims; j++ {
			y := math.Tanh(mean.At(i, j))
			p.y.Set(i, j, y)
			m := y*p.scale[j] + p.bias[j]
			detAction.Set(i, j, m)
			n := p.noise.Rand()
			if n > 0.25 {
				n = 0.25
			} else if n < -0.25 {
				n = -0.25
			}
			actions.Set(i, j, m+n)
		}
	}
	return &SampleResult{Actions: actions, LogProb: mat.NewDense(rows, 1, nil), Mean: detAction}
}

// backward ignores gLogProb: the exploration noise is additive and the
// log-probability is constant.
func (p *DeterministicPolicy) backward(gAction, _ *mat.Dense) {
	rows, dims := p.y.Dims()
	gMean := mat.NewDense(rows, dims, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < dims; j++ {
			y := p.y.At(i, j)
			gMean.Set(i, j, gAction.At(i, j)*p.scale[j]*(1-y*y))
		}
	}
	gh := p.meanHead.backward(gMean)
	gh = p.l2.backward(p.a2.backward(gh))
	p.l1.backward(p.a1.backward(gh))
}

// Params returns all trainable parameters in a stable order.
func (p *DeterministicPolicy) Params() []*mat.Dense {
	params := append(p.l1.params(), p.l2.params()...)
	return append(params, p.meanHead.params()...)
}

func (p *DeterministicPolicy) gradients() []*mat.Dense {
	grads := append(p.l1.grads(), p.l2.grads()...)
	return append(grads, p.meanHead.grads()...)
}

func (p *DeterministicPolicy) zeroGrads() { zeroAll(p.gradients()) }
