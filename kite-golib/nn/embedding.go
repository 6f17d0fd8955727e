package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Embedding is a [vocab x dim] lookup table
type Embedding struct {
	Table *mat.Dense
}

// NewEmbedding allocates a table with entries drawn from N(0, 1)
func NewEmbedding(vocab, dim int, rng *rand.Rand) *Embedding {
	data := make([]float64, vocab*dim)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return &Embedding{Table: mat.NewDense(vocab, dim, data)}
}

// Dim is the width of an embedding vector
func (e *Embedding) Dim() int {
	_, c := e.Table.Dims()
	return c
}

// Vocab is the number of rows in the table
func (e *Embedding) Vocab() int {
	r, _ := e.Table.Dims()
	return r
}

// Lookup embeds a [batch x tokens] block of ids as a sequence of tokens steps,
// each [batch x dim].
func (e *Embedding) Lookup(ids [][]int) (Sequence, error) {
	if len(ids) == 0 {
		return nil, errors.InvalidInputf("embedding", "empty batch")
	}
	steps := len(ids[0])
	if steps == 0 {
		return nil, errors.InvalidInputf("embedding", "empty token sequence")
	}
	for b, row := range ids {
		if len(row) != steps {
			return nil, errors.Shapef("embedding", "row %d has %d tokens, row 0 has %d", b, len(row), steps)
		}
	}

	vocab, dim := e.Vocab(), e.Dim()
	seq := make(Sequence, steps)
	for t := range seq {
		step := mat.NewDense(len(ids), dim, nil)
		for b, row := range ids {
			id := row[t]
			if id < 0 || id >= vocab {
				return nil, errors.InvalidInputf("embedding", "token id %d outside vocabulary of %d", id, vocab)
			}
			copy(step.RawRowView(b), e.Table.RawRowView(id))
		}
		seq[t] = step
	}
	return seq, nil
}

// Params lists the table
func (e *Embedding) Params(prefix string) []Param {
	return prefixed(prefix, Param{Name: "weight", Value: e.Table})
}
