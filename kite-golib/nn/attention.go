package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// SoftmaxSequence normalizes scores across the steps of seq, independently for
// every batch row and feature column.
func SoftmaxSequence(seq Sequence) (Sequence, error) {
	batch, width, err := seq.Dims()
	if err != nil {
		return nil, errors.Wrapf(err, "softmax")
	}

	out := make(Sequence, len(seq))
	for t := range out {
		out[t] = mat.NewDense(batch, width, nil)
	}
	for b := 0; b < batch; b++ {
		for j := 0; j < width; j++ {
			peak := math.Inf(-1)
			for _, step := range seq {
				peak = math.Max(peak, step.At(b, j))
			}
			var sum float64
			for t, step := range seq {
				e := math.Exp(step.At(b, j) - peak)
				out[t].Set(b, j, e)
				sum += e
			}
			for t := range seq {
				out[t].Set(b, j, out[t].At(b, j)/sum)
			}
		}
	}
	return out, nil
}

// AttentionPool returns the sum over steps of weights[t] * values[t]. Weights are
// used as given, callers normalize them first. A weight step may be [batch x 1], in
// which case it scales the whole row.
func AttentionPool(values, weights Sequence) (*mat.Dense, error) {
	if len(values) == 0 {
		return nil, errors.InvalidInputf("attention pool", "empty sequence")
	}
	if len(weights) != len(values) {
		return nil, errors.Shapef("attention pool", "%d weight steps for %d value steps", len(weights), len(values))
	}
	batch, width, err := values.Dims()
	if err != nil {
		return nil, errors.Wrapf(err, "attention pool values")
	}
	wb, ww, err := weights.Dims()
	if err != nil {
		return nil, errors.Wrapf(err, "attention pool weights")
	}
	if wb != batch || (ww != width && ww != 1) {
		return nil, errors.Shapef("attention pool", "weights %dx%d for values %dx%d", wb, ww, batch, width)
	}

	out := mat.NewDense(batch, width, nil)
	for t := range values {
		for b := 0; b < batch; b++ {
			dst, v, w := out.RawRowView(b), values[t].RawRowView(b), weights[t].RawRowView(b)
			if ww == 1 {
				floats.AddScaled(dst, w[0], v)
				continue
			}
			for j := range dst {
				dst[j] += w[j] * v[j]
			}
		}
	}
	return out, nil
}

// Attention scores each step with tanh(Proj(x)) followed by Combine, normalizes the
// scores across steps and pools the steps with them.
type Attention struct {
	Proj    *Linear
	Combine *Linear
}

// NewAttention allocates an attention block over [batch x width] steps
func NewAttention(width int, rng *rand.Rand) *Attention {
	return &Attention{
		Proj:    NewLinear(width, width, true, rng),
		Combine: NewLinear(width, width, false, rng),
	}
}

// Weights returns the normalized per-step, per-feature attention weights
func (a *Attention) Weights(seq Sequence) (Sequence, error) {
	if len(seq) == 0 {
		return nil, errors.InvalidInputf("attention", "empty sequence")
	}
	scores := make(Sequence, len(seq))
	for t, step := range seq {
		proj, err := a.Proj.Forward(step)
		if err != nil {
			return nil, errors.Wrapf(err, "attention projection")
		}
		if scores[t], err = a.Combine.Forward(Tanh(proj)); err != nil {
			return nil, errors.Wrapf(err, "attention combine")
		}
	}
	return SoftmaxSequence(scores)
}

// Pool reduces seq to one [batch x width] matrix
func (a *Attention) Pool(seq Sequence) (*mat.Dense, error) {
	weights, err := a.Weights(seq)
	if err != nil {
		return nil, err
	}
	return AttentionPool(seq, weights)
}

// Params lists both projections
func (a *Attention) Params(prefix string) []Param {
	return append(a.Proj.Params(prefix+".proj"), a.Combine.Params(prefix+".combine")...)
}
