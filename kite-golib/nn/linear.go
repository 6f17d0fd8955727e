package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Linear computes x*W^T + b
type Linear struct {
	// W is [out x in]
	W *mat.Dense
	// B is [1 x out], nil when the layer has no bias
	B *mat.Dense
}

// NewLinear allocates a Linear layer with weights drawn from U(-1/sqrt(in), 1/sqrt(in))
func NewLinear(in, out int, bias bool, rng *rand.Rand) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	l := &Linear{W: Uniform(out, in, bound, rng)}
	if bias {
		l.B = Uniform(1, out, bound, rng)
	}
	return l
}

// In is the input width
func (l *Linear) In() int {
	_, c := l.W.Dims()
	return c
}

// Out is the output width
func (l *Linear) Out() int {
	r, _ := l.W.Dims()
	return r
}

// Forward applies the layer to every row of x
func (l *Linear) Forward(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != l.In() {
		return nil, errors.Shapef("linear", "input width %d, expected %d", cols, l.In())
	}

	out := mat.NewDense(rows, l.Out(), nil)
	out.Mul(x, l.W.T())
	if l.B != nil {
		b := l.B.RawRowView(0)
		for i := 0; i < rows; i++ {
			floats.Add(out.RawRowView(i), b)
		}
	}
	return out, nil
}

// Params lists the weight and, if present, the bias
func (l *Linear) Params(prefix string) []Param {
	params := []Param{{Name: "weight", Value: l.W}}
	if l.B != nil {
		params = append(params, Param{Name: "bias", Value: l.B})
	}
	return prefixed(prefix, params...)
}
