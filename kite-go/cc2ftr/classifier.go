package cc2ftr

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/nn"
)

// Classifier maps combined diff vectors to a probability per commit
type Classifier struct {
	Dropout nn.Dropout
	FC1     *nn.Linear
	FC2     *nn.Linear
}

// NewClassifier allocates a binary classifier head
func NewClassifier(in, hidden int, keep float64, rng *rand.Rand) *Classifier {
	return &Classifier{
		Dropout: nn.Dropout{Keep: keep},
		FC1:     nn.NewLinear(in, 2*hidden, true, rng),
		FC2:     nn.NewLinear(2*hidden, 1, true, rng),
	}
}

// Forward returns sigmoid(FC2(relu(FC1(x)))). Dropout is applied to x only when rng is
// non-nil.
func (c *Classifier) Forward(x *mat.Dense, rng *rand.Rand) ([]float64, error) {
	if rng != nil {
		x = c.Dropout.Apply(x, rng)
	}
	hidden, err := c.FC1.Forward(x)
	if err != nil {
		return nil, errors.Wrapf(err, "classifier fc1")
	}
	logits, err := c.FC2.Forward(nn.ReLU(hidden))
	if err != nil {
		return nil, errors.Wrapf(err, "classifier fc2")
	}
	if _, cls := logits.Dims(); cls != 1 {
		return nil, errors.Shapef("classifier", "%d classes cannot be squeezed", cls)
	}
	return mat.Col(nil, 0, nn.Sigmoid(logits)), nil
}

// Params lists both layers
func (c *Classifier) Params(prefix string) []nn.Param {
	return append(c.FC1.Params(prefix+".fc1"), c.FC2.Params(prefix+".fc2")...)
}
