package cc2ftr

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/nn"
)

const cosineEps = 1e-6

// DiffCombiner compares the added and removed vectors of a batch of commits
type DiffCombiner struct {
	batch int
	embed int

	Standard  *nn.Linear // [removed, added] -> embed
	TensorOne *nn.Linear // removed -> embed
	TensorTwo *nn.Linear // removed -> embed
	TensorV   *nn.Linear // [removed, added] -> 2
}

// NewDiffCombiner allocates the learned comparison layers for vectors of width embed
func NewDiffCombiner(batch, embed int, rng *rand.Rand) *DiffCombiner {
	return &DiffCombiner{
		batch:     batch,
		embed:     embed,
		Standard:  nn.NewLinear(2*embed, embed, true, rng),
		TensorOne: nn.NewLinear(embed, embed, true, rng),
		TensorTwo: nn.NewLinear(embed, embed, true, rng),
		TensorV:   nn.NewLinear(2*embed, 2, true, rng),
	}
}

// Width of the combined vector: subtraction, multiplication, cosine, euclidean,
// standard projection and the two bilinear slots.
func (d *DiffCombiner) Width() int {
	return 3*d.embed + 4
}

// Combine returns the [batch x Width()] comparison of added and removed
func (d *DiffCombiner) Combine(added, removed *mat.Dense) (*mat.Dense, error) {
	if err := d.check(added, removed); err != nil {
		return nil, err
	}

	standard, err := d.StandardProjection(added, removed)
	if err != nil {
		return nil, err
	}
	tensor, err := d.TensorLayer(added, removed)
	if err != nil {
		return nil, err
	}
	cos, err := CosineSimilarity(added, removed, d.batch)
	if err != nil {
		return nil, err
	}
	euc, err := EuclideanDistance(added, removed, d.batch)
	if err != nil {
		return nil, err
	}

	out, err := nn.HConcat(Subtraction(added, removed), Multiplication(added, removed), cos, euc, standard, tensor)
	if err != nil {
		return nil, errors.Wrapf(err, "diff combiner")
	}
	if _, c := out.Dims(); c != d.Width() {
		return nil, errors.Shapef("diff combiner", "combined width %d, expected %d", c, d.Width())
	}
	return out, nil
}

// StandardProjection is relu(Standard([removed, added]))
func (d *DiffCombiner) StandardProjection(added, removed *mat.Dense) (*mat.Dense, error) {
	cat, err := nn.HConcat(removed, added)
	if err != nil {
		return nil, err
	}
	out, err := d.Standard.Forward(cat)
	if err != nil {
		return nil, errors.Wrapf(err, "standard projection")
	}
	return nn.ReLU(out), nil
}

// TensorLayer is the bilinear tensor layer:
//
//   relu([sum(TensorOne(removed) * added), sum(TensorTwo(removed) * added)] + TensorV([removed, added]))
func (d *DiffCombiner) TensorLayer(added, removed *mat.Dense) (*mat.Dense, error) {
	one, err := d.TensorOne.Forward(removed)
	if err != nil {
		return nil, errors.Wrapf(err, "tensor layer")
	}
	two, err := d.TensorTwo.Forward(removed)
	if err != nil {
		return nil, errors.Wrapf(err, "tensor layer")
	}
	cat, err := nn.HConcat(removed, added)
	if err != nil {
		return nil, err
	}
	out, err := d.TensorV.Forward(cat)
	if err != nil {
		return nil, errors.Wrapf(err, "tensor layer")
	}

	batch, _ := added.Dims()
	for b := 0; b < batch; b++ {
		a := added.RawRowView(b)
		row := out.RawRowView(b)
		row[0] += floats.Dot(one.RawRowView(b), a)
		row[1] += floats.Dot(two.RawRowView(b), a)
	}
	return nn.ReLU(out), nil
}

// Params lists the learned comparison layers
func (d *DiffCombiner) Params(prefix string) []nn.Param {
	var params []nn.Param
	params = append(params, d.Standard.Params(prefix+".standard")...)
	params = append(params, d.TensorOne.Params(prefix+".tensor_one")...)
	params = append(params, d.TensorTwo.Params(prefix+".tensor_two")...)
	return append(params, d.TensorV.Params(prefix+".tensor_v")...)
}

func (d *DiffCombiner) check(added, removed *mat.Dense) error {
	ar, ac := added.Dims()
	rr, rc := removed.Dims()
	if ar != d.batch || rr != d.batch {
		return errors.Shapef("diff combiner", "batch of %d added and %d removed, expected %d", ar, rr, d.batch)
	}
	if ac != d.embed || rc != d.embed {
		return errors.Shapef("diff combiner", "width %d added and %d removed, expected %d", ac, rc, d.embed)
	}
	return nil
}

// Subtraction is added - removed
func Subtraction(added, removed mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Sub(added, removed)
	return &out
}

// Multiplication is the elementwise product of added and removed
func Multiplication(added, removed mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.MulElem(added, removed)
	return &out
}

// CosineSimilarity returns the row-wise cosine similarity reshaped to [batch x 1].
// The norm product is clamped to at least 1e-6.
func CosineSimilarity(added, removed *mat.Dense, batch int) (*mat.Dense, error) {
	return rowwise("cosine similarity", added, removed, batch, func(a, r []float64) float64 {
		return floats.Dot(a, r) / math.Max(floats.Norm(a, 2)*floats.Norm(r, 2), cosineEps)
	})
}

// EuclideanDistance returns the row-wise L2 distance reshaped to [batch x 1]
func EuclideanDistance(added, removed *mat.Dense, batch int) (*mat.Dense, error) {
	return rowwise("euclidean distance", added, removed, batch, func(a, r []float64) float64 {
		return floats.Distance(a, r, 2)
	})
}

func rowwise(op string, added, removed *mat.Dense, batch int, f func(a, r []float64) float64) (*mat.Dense, error) {
	ar, ac := added.Dims()
	rr, rc := removed.Dims()
	if ar != batch || rr != batch {
		return nil, errors.Shapef(op, "%d and %d rows cannot be viewed as [%d x 1]", ar, rr, batch)
	}
	if ac != rc {
		return nil, errors.Shapef(op, "width %d against %d", ac, rc)
	}
	out := mat.NewDense(batch, 1, nil)
	for b := 0; b < batch; b++ {
		out.Set(b, 0, f(added.RawRowView(b), removed.RawRowView(b)))
	}
	return out, nil
}
