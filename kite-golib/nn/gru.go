package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// GRUCell is one direction of a gated recurrent layer. Gates are stacked in
// reset, update, new order:
//
//   r  = sigmoid(W_ir x + b_ir + W_hr h + b_hr)
//   z  = sigmoid(W_iz x + b_iz + W_hz h + b_hz)
//   n  = tanh(W_in x + b_in + r * (W_hn h + b_hn))
//   h' = (1 - z) * n + z * h
type GRUCell struct {
	// IH maps the input to the stacked gates, W is [3*hidden x in]
	IH *Linear
	// HH maps the previous state to the stacked gates, W is [3*hidden x hidden]
	HH *Linear
}

// NewGRUCell allocates a cell with weights drawn from U(-1/sqrt(hidden), 1/sqrt(hidden))
func NewGRUCell(in, hidden int, rng *rand.Rand) *GRUCell {
	bound := 1 / math.Sqrt(float64(hidden))
	return &GRUCell{
		IH: &Linear{W: Uniform(3*hidden, in, bound, rng), B: Uniform(1, 3*hidden, bound, rng)},
		HH: &Linear{W: Uniform(3*hidden, hidden, bound, rng), B: Uniform(1, 3*hidden, bound, rng)},
	}
}

// Hidden is the state width
func (c *GRUCell) Hidden() int {
	return c.HH.In()
}

// Step advances the state h by one input x; both are batched by row
func (c *GRUCell) Step(x, h *mat.Dense) (*mat.Dense, error) {
	gi, err := c.IH.Forward(x)
	if err != nil {
		return nil, errors.Wrapf(err, "gru input")
	}
	gh, err := c.HH.Forward(h)
	if err != nil {
		return nil, errors.Wrapf(err, "gru state")
	}

	batch, hidden := h.Dims()
	out := mat.NewDense(batch, hidden, nil)
	for b := 0; b < batch; b++ {
		in, st := gi.RawRowView(b), gh.RawRowView(b)
		prev, next := h.RawRowView(b), out.RawRowView(b)
		for j := 0; j < hidden; j++ {
			r := sigmoid(in[j] + st[j])
			z := sigmoid(in[hidden+j] + st[hidden+j])
			n := math.Tanh(in[2*hidden+j] + r*st[2*hidden+j])
			next[j] = (1-z)*n + z*prev[j]
		}
	}
	return out, nil
}

// Params lists the cell parameters
func (c *GRUCell) Params(prefix string) []Param {
	return append(c.IH.Params(prefix+".ih"), c.HH.Params(prefix+".hh")...)
}

// BiGRU runs one GRUCell forward in time and another backward, concatenating
// their outputs at every step
type BiGRU struct {
	Fwd *GRUCell
	Bwd *GRUCell
}

// NewBiGRU allocates both directions
func NewBiGRU(in, hidden int, rng *rand.Rand) *BiGRU {
	return &BiGRU{
		Fwd: NewGRUCell(in, hidden, rng),
		Bwd: NewGRUCell(in, hidden, rng),
	}
}

// Hidden is the per-direction state width; outputs are twice as wide
func (g *BiGRU) Hidden() int {
	return g.Fwd.Hidden()
}

// Forward runs both directions over seq starting from h0 and returns the per-step
// outputs [batch x 2*hidden] along with the final state of each direction.
func (g *BiGRU) Forward(seq Sequence, h0 HiddenState) (Sequence, HiddenState, error) {
	batch, _, err := seq.Dims()
	if err != nil {
		return nil, HiddenState{}, errors.Wrapf(err, "bigru")
	}
	hb, hidden, err := h0.Dims()
	if err != nil {
		return nil, HiddenState{}, errors.Wrapf(err, "bigru")
	}
	if hb != batch || hidden != g.Hidden() {
		return nil, HiddenState{}, errors.Shapef("bigru", "hidden state %dx%d, expected %dx%d", hb, hidden, batch, g.Hidden())
	}

	fwd := make(Sequence, len(seq))
	h := h0[0]
	for t := 0; t < len(seq); t++ {
		if h, err = g.Fwd.Step(seq[t], h); err != nil {
			return nil, HiddenState{}, err
		}
		fwd[t] = h
	}
	last := h

	bwd := make(Sequence, len(seq))
	h = h0[1]
	for t := len(seq) - 1; t >= 0; t-- {
		if h, err = g.Bwd.Step(seq[t], h); err != nil {
			return nil, HiddenState{}, err
		}
		bwd[t] = h
	}

	out := make(Sequence, len(seq))
	for t := range seq {
		if out[t], err = HConcat(fwd[t], bwd[t]); err != nil {
			return nil, HiddenState{}, err
		}
	}
	return out, HiddenState{last, h}, nil
}

// Params lists both directions
func (g *BiGRU) Params(prefix string) []Param {
	return append(g.Fwd.Params(prefix+".fwd"), g.Bwd.Params(prefix+".bwd")...)
}
