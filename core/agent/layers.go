package agent

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// dense is a fully connected layer operating on row-major batches. It caches
// its input during the forward pass and accumulates parameter gradients
// during the backward pass.
type dense struct {
	w  *mat.Dense // in x out
	b  *mat.Dense // 1 x out
	gw *mat.Dense
	gb *mat.Dense
	in *mat.Dense
}

// newDense builds a layer with Xavier-uniform weights and zero biases.
func newDense(in, out int, rng *rand.Rand) *dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return &dense{
		w:  mat.NewDense(in, out, data),
		b:  mat.NewDense(1, out, nil),
		gw: mat.NewDense(in, out, nil),
		gb: mat.NewDense(1, out, nil),
	}
}

func (d *dense) forward(x *mat.Dense) *mat.Dense {
	d.in = x
	rows, _ := x.Dims()
	_, out := d.w.Dims()
	y := mat.NewDense(rows, out, nil)
	y.Mul(x, d.w)
	for i := 0; i < rows; i++ {
		for j := 0; j < out; j++ {
			y.Set(i, j, y.At(i, j)+d.b.At(0, j))
		}
	}
	return y
}

// backward accumulates parameter gradients and returns the gradient with
// respect to the layer input.
func (d *dense) backward(g *mat.Dense) *mat.Dense {
	rows, out := g.Dims()
	in, _ := d.w.Dims()

	var gw mat.Dense
	gw.Mul(d.in.T(), g)
	d.gw.Add(d.gw, &gw)

	for j := 0; j < out; j++ {
		sum := d.gb.At(0, j)
		for i := 0; i < rows; i++ {
			sum += g.At(i, j)
		}
		d.gb.Set(0, j, sum)
	}

	gin := mat.NewDense(rows, in, nil)
	gin.Mul(g, d.w.T())
	return gin
}

func (d *dense) params() []*mat.Dense { return []*mat.Dense{d.w, d.b} }
func (d *dense) grads() []*mat.Dense  { return []*mat.Dense{d.gw, d.gb} }

// relu applies max(0, x) element-wise, caching the activation mask.
type relu struct {
	mask *mat.Dense
}

func (r *relu) forward(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	y := mat.NewDense(rows, cols, nil)
	r.mask = mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := x.At(i, j); v > 0 {
				y.Set(i, j, v)
				r.mask.Set(i, j, 1)
			}
		}
	}
	return y
}

func (r *relu) backward(g *mat.Dense) *mat.Dense {
	rows, cols := g.Dims()
	gin := mat.NewDense(rows, cols, nil)
	gin.MulElem(g, r.mask)
	return gin
}

func zeroAll(grads []*mat.Dense) {
	for _, g := range grads {
		g.Zero()
	}
}

// hardCopy copies source parameters into target parameters.
func hardCopy(target, source []*mat.Dense) {
	for i := range target {
		target[i].Copy(source[i])
	}
}

// polyakMix moves target parameters toward source parameters:
// target = (1-tau)*target + tau*source.
func polyakMix(target, source []*mat.Dense, tau float64) {
	for i := range target {
		t := target[i]
		s := source[i]
		rows, cols := t.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				t.Set(r, c, t.At(r, c)*(1-tau)+s.At(r, c)*tau)
			}
		}
	}
}
