package cc2ftr

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/serialization"
)

// Tensor is a serializable row-major matrix
type Tensor struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// NewTensor copies m
func NewTensor(m *mat.Dense) Tensor {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return Tensor{Rows: r, Cols: c, Data: data}
}

// Checkpoint is a snapshot of a model's hyperparameters and parameters
type Checkpoint struct {
	HParams HParams           `json:"hparams"`
	Params  map[string]Tensor `json:"params"`
}

// Checkpoint snapshots the current parameters
func (m *Model) Checkpoint() Checkpoint {
	params := make(map[string]Tensor)
	for _, p := range m.Parameters() {
		params[p.Name] = NewTensor(p.Value)
	}
	return Checkpoint{HParams: m.hp, Params: params}
}

// SetParameters overwrites every parameter of m with the tensor of the same name.
// Nothing is written unless every tensor is present and has the right shape.
func (m *Model) SetParameters(params map[string]Tensor) error {
	modelParams := m.Parameters()
	for _, p := range modelParams {
		t, ok := params[p.Name]
		if !ok {
			return errors.Errorf("missing parameter %s", p.Name)
		}
		r, c := p.Value.Dims()
		if t.Rows != r || t.Cols != c || len(t.Data) != r*c {
			return errors.Shapef("set parameters", "%s is %dx%d with %d values, model expects %dx%d", p.Name, t.Rows, t.Cols, len(t.Data), r, c)
		}
	}
	for _, p := range modelParams {
		t := params[p.Name]
		p.Value.Copy(mat.NewDense(t.Rows, t.Cols, t.Data))
	}
	return nil
}

// SaveCheckpoint writes the model to path; the extension picks the encoding
// (.gob or .json) and optional compression (.gz or .sz).
func SaveCheckpoint(path string, m *Model) error {
	if err := serialization.Encode(path, m.Checkpoint()); err != nil {
		return errors.Wrapf(err, "error saving checkpoint to %s", path)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint
func LoadCheckpoint(path string) (Checkpoint, error) {
	var c Checkpoint
	if err := serialization.Decode(path, &c); err != nil {
		return Checkpoint{}, errors.Wrapf(err, "error loading checkpoint from %s", path)
	}
	return c, nil
}

// NewModelFromCheckpoint rebuilds a model from its saved hyperparameters and
// parameters. Options are applied as in NewModel; pretrained mode still needs
// WithPretrained.
func NewModelFromCheckpoint(path string, opts ...Option) (*Model, error) {
	c, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	m, err := NewModel(c.HParams, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid checkpoint %s", path)
	}
	if err := m.SetParameters(c.Params); err != nil {
		return nil, errors.Wrapf(err, "invalid checkpoint %s", path)
	}
	return m, nil
}
