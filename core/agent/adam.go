package agent

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// adam implements the Adam optimizer over a fixed list of parameter
// matrices.
type adam struct {
	lr   float64
	t    int
	m, v []*mat.Dense
}

func newAdam(params []*mat.Dense, lr float64) *adam {
	o := &adam{lr: lr}
	for _, p := range params {
		rows, cols := p.Dims()
		o.m = append(o.m, mat.NewDense(rows, cols, nil))
		o.v = append(o.v, mat.NewDense(rows, cols, nil))
	}
	return o
}

// step applies one update in place and leaves the gradients untouched; the
// caller is responsible for zeroing them before the next backward pass.
func (o *adam) step(params, grads []*mat.Dense) {
	o.t++
	c1 := 1 - math.Pow(adamBeta1, float64(o.t))
	c2 := 1 - math.Pow(adamBeta2, float64(o.t))
	for i, p := range params {
		g := grads[i]
		m := o.m[i]
		v := o.v[i]
		rows, cols := p.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				gv := g.At(r, c)
				mv := adamBeta1*m.At(r, c) + (1-adamBeta1)*gv
				vv := adamBeta2*v.At(r, c) + (1-adamBeta2)*gv*gv
				m.Set(r, c, mv)
				v.Set(r, c, vv)
				p.Set(r, c, p.At(r, c)-o.lr*(mv/c1)/(math.Sqrt(vv/c2)+adamEps))
			}
		}
	}
}

// scalarAdam is an Adam optimizer for a single scalar, used for the log of
// the entropy temperature.
type scalarAdam struct {
	lr   float64
	t    int
	m, v float64
}

func newScalarAdam(lr float64) *scalarAdam {
	return &scalarAdam{lr: lr}
}

func (o *scalarAdam) step(param *float64, grad float64) {
	o.t++
	o.m = adamBeta1*o.m + (1-adamBeta1)*grad
	o.v = adamBeta2*o.v + (1-adamBeta2)*grad*grad
	mHat := o.m / (1 - math.Pow(adamBeta1, float64(o.t)))
	vHat := o.v / (1 - math.Pow(adamBeta2, float64(o.t)))
	*param -= o.lr * mHat / (math.Sqrt(vHat) + adamEps)
}
