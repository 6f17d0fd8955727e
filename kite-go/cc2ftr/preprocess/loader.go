package preprocess

import (
	"math/rand"

	"github.com/kiteco/cc2ftr/kite-go/cc2ftr"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Batch is a fixed size group of examples ready for the model. The last batch of a
// dataset is padded with empty commits; only the first Size rows are real.
type Batch struct {
	Size      int
	IDs       []string
	Labels    []float64
	MsgLabels [][]float64
	Added     cc2ftr.CommitInput
	Removed   cc2ftr.CommitInput
}

// Loader slices a Dataset into batches
type Loader struct {
	ds        *Dataset
	batchSize int
	order     []int
}

// NewLoader creates a loader visiting examples in dataset order
func NewLoader(ds *Dataset, batchSize int) (*Loader, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	order := make([]int, ds.Len())
	for i := range order {
		order[i] = i
	}
	return &Loader{ds: ds, batchSize: batchSize, order: order}, nil
}

// Shuffle permutes the order in which examples are visited
func (l *Loader) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(l.order), func(i, j int) {
		l.order[i], l.order[j] = l.order[j], l.order[i]
	})
}

// Len is the number of batches
func (l *Loader) Len() int {
	return (len(l.order) + l.batchSize - 1) / l.batchSize
}

// Batch returns batch i
func (l *Loader) Batch(i int) (Batch, error) {
	if i < 0 || i >= l.Len() {
		return Batch{}, errors.Errorf("batch %d out of range [0, %d)", i, l.Len())
	}
	layout := l.ds.Layout
	start := i * l.batchSize

	b := Batch{
		IDs:       make([]string, l.batchSize),
		Labels:    make([]float64, l.batchSize),
		MsgLabels: make([][]float64, l.batchSize),
	}
	added := make([]int, 0, l.batchSize*layout.Size())
	removed := make([]int, 0, l.batchSize*layout.Size())
	for k := 0; k < l.batchSize; k++ {
		if start+k >= len(l.order) {
			b.MsgLabels[k] = make([]float64, len(l.ds.Dict.Msg))
			added = append(added, l.ds.padding...)
			removed = append(removed, l.ds.padding...)
			continue
		}
		ex := l.ds.Examples[l.order[start+k]]
		b.Size++
		b.IDs[k] = ex.ID
		b.Labels[k] = ex.Label
		b.MsgLabels[k] = ex.MsgLabels
		added = append(added, ex.Added...)
		removed = append(removed, ex.Removed...)
	}

	var err error
	if b.Added, err = cc2ftr.NewCommitInputFromBuffer(l.batchSize, layout.Hunks, layout.Lines, layout.Tokens, added); err != nil {
		return Batch{}, err
	}
	if b.Removed, err = cc2ftr.NewCommitInputFromBuffer(l.batchSize, layout.Hunks, layout.Lines, layout.Tokens, removed); err != nil {
		return Batch{}, err
	}
	return b, nil
}
