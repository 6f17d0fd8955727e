// Package nn implements the inference-time building blocks of recurrent attention
// encoders on top of gonum matrices: linear and embedding layers, a bidirectional GRU,
// softmax over a sequence and attention pooling.
//
// Batched values are row-major *mat.Dense matrices with one row per batch element.
// Sequences are time-major: one [batch x width] matrix per step.
package nn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Sequence is a time-major sequence of [batch x width] matrices
type Sequence []*mat.Dense

// Dims returns the batch size and width shared by every step, or a ShapeError if the
// steps disagree. An empty sequence is an InvalidInputError.
func (s Sequence) Dims() (batch, width int, err error) {
	if len(s) == 0 {
		return 0, 0, errors.InvalidInputf("sequence", "empty sequence")
	}
	batch, width = s[0].Dims()
	for t, step := range s[1:] {
		if r, c := step.Dims(); r != batch || c != width {
			return 0, 0, errors.Shapef("sequence", "step %d is %dx%d, step 0 is %dx%d", t+1, r, c, batch, width)
		}
	}
	return batch, width, nil
}

// HiddenState holds the forward and backward hidden states of a bidirectional
// recurrent layer, each [batch x hidden]
type HiddenState [2]*mat.Dense

// ZeroHidden returns a zero-initialized HiddenState
func ZeroHidden(batch, hidden int) HiddenState {
	return HiddenState{mat.NewDense(batch, hidden, nil), mat.NewDense(batch, hidden, nil)}
}

// Dims returns the batch size and hidden size of the state
func (h HiddenState) Dims() (batch, hidden int, err error) {
	if h[0] == nil || h[1] == nil {
		return 0, 0, errors.InvalidInputf("hidden state", "missing direction")
	}
	batch, hidden = h[0].Dims()
	if r, c := h[1].Dims(); r != batch || c != hidden {
		return 0, 0, errors.Shapef("hidden state", "backward %dx%d, forward %dx%d", r, c, batch, hidden)
	}
	return batch, hidden, nil
}

// Param is a named parameter matrix
type Param struct {
	Name  string
	Value *mat.Dense
}

func prefixed(prefix string, params ...Param) []Param {
	for i := range params {
		params[i].Name = prefix + "." + params[i].Name
	}
	return params
}

// HConcat concatenates matrices with the same number of rows along columns
func HConcat(ms ...mat.Matrix) (*mat.Dense, error) {
	if len(ms) == 0 {
		return nil, errors.InvalidInputf("concat", "nothing to concatenate")
	}
	rows, cols := ms[0].Dims()
	for _, m := range ms[1:] {
		r, c := m.Dims()
		if r != rows {
			return nil, errors.Shapef("concat", "%d rows, expected %d", r, rows)
		}
		cols += c
	}

	out := mat.NewDense(rows, cols, nil)
	var off int
	for _, m := range ms {
		_, c := m.Dims()
		out.Slice(0, rows, off, off+c).(*mat.Dense).Copy(m)
		off += c
	}
	return out, nil
}
