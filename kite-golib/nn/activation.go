package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ReLU applies max(0, x) elementwise in place
func ReLU(m *mat.Dense) *mat.Dense {
	m.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, m)
	return m
}

// Tanh applies tanh elementwise in place
func Tanh(m *mat.Dense) *mat.Dense {
	m.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, m)
	return m
}

// Sigmoid applies the logistic function elementwise in place
func Sigmoid(m *mat.Dense) *mat.Dense {
	m.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, m)
	return m
}

// Uniform returns a [rows x cols] matrix with entries drawn from U(-bound, bound)
func Uniform(rows, cols int, bound float64, rng *rand.Rand) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (2*rng.Float64() - 1) * bound
	}
	return mat.NewDense(rows, cols, data)
}

// Dropout zeroes entries with probability 1-Keep and scales survivors by 1/Keep
type Dropout struct {
	Keep float64
}

// Apply returns a new matrix with dropout applied; with Keep >= 1 it is a copy of x
func (d Dropout) Apply(x *mat.Dense, rng *rand.Rand) *mat.Dense {
	out := mat.DenseCopyOf(x)
	if d.Keep >= 1 {
		return out
	}
	scale := 1 / d.Keep
	out.Apply(func(_, _ int, v float64) float64 {
		if rng.Float64() >= d.Keep {
			return 0
		}
		return v * scale
	}, out)
	return out
}
