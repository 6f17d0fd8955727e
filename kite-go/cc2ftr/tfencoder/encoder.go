// Package tfencoder runs a frozen pretrained transformer graph as the word level
// encoder of a cc2ftr model.
package tfencoder

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/tensorflow"
)

// Config names the graph and its operations
type Config struct {
	// Graph is the path of the frozen GraphDef, local, HTTP or S3
	Graph string `json:"graph" yaml:"graph"`

	InputIDs      string `json:"input_ids" yaml:"input_ids"`
	AttentionMask string `json:"attention_mask" yaml:"attention_mask"`
	Pooled        string `json:"pooled" yaml:"pooled"`

	// Width of the pooled output
	Width int `json:"width" yaml:"width"`
	// PadID marks padding positions, they are masked out
	PadID int `json:"pad_id" yaml:"pad_id"`
}

// DefaultConfig for a RoBERTa style export
func DefaultConfig(graph string) Config {
	return Config{
		Graph:         graph,
		InputIDs:      "input_ids",
		AttentionMask: "attention_mask",
		Pooled:        "pooler_output",
		Width:         768,
		PadID:         1,
	}
}

type runner interface {
	Run(feeds map[string]interface{}, fetches []string) (map[string]interface{}, error)
	Unload()
}

// Encoder implements cc2ftr.PretrainedEncoder
type Encoder struct {
	cfg   Config
	model runner
}

// New encoder, the graph is loaded on the first call to Pooled
func New(cfg Config) (*Encoder, error) {
	switch {
	case cfg.Graph == "":
		return nil, errors.Configf("graph", "path is required")
	case cfg.InputIDs == "", cfg.Pooled == "":
		return nil, errors.Configf("graph", "input and output op names are required")
	case cfg.Width <= 0:
		return nil, errors.Configf("width", "must be positive, got %d", cfg.Width)
	}
	return &Encoder{cfg: cfg, model: tensorflow.NewModel(cfg.Graph)}, nil
}

// Width of the pooled output
func (e *Encoder) Width() int {
	return e.cfg.Width
}

// Pooled runs the graph on a batch of equally long id sequences
func (e *Encoder) Pooled(ids [][]int) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, errors.InvalidInputf("tfencoder", "empty batch")
	}
	n := len(ids[0])
	inputs := make([][]int32, len(ids))
	mask := make([][]int32, len(ids))
	for i, row := range ids {
		if len(row) != n {
			return nil, errors.Shapef("tfencoder", "row %d has %d ids, expected %d", i, len(row), n)
		}
		inputs[i] = make([]int32, n)
		mask[i] = make([]int32, n)
		for j, id := range row {
			inputs[i][j] = int32(id)
			if id != e.cfg.PadID {
				mask[i][j] = 1
			}
		}
	}

	feeds := map[string]interface{}{e.cfg.InputIDs: inputs}
	if e.cfg.AttentionMask != "" {
		feeds[e.cfg.AttentionMask] = mask
	}
	res, err := e.model.Run(feeds, []string{e.cfg.Pooled})
	if err != nil {
		return nil, err
	}

	pooled, ok := res[e.cfg.Pooled].([][]float32)
	if !ok {
		return nil, errors.Errorf("unexpected type %T for %s", res[e.cfg.Pooled], e.cfg.Pooled)
	}
	if len(pooled) != len(ids) {
		return nil, errors.Shapef("tfencoder", "got %d pooled rows for %d inputs", len(pooled), len(ids))
	}

	out := mat.NewDense(len(ids), e.cfg.Width, nil)
	for i, row := range pooled {
		if len(row) != e.cfg.Width {
			return nil, errors.Shapef("tfencoder", "pooled width %d, expected %d", len(row), e.cfg.Width)
		}
		for j, v := range row {
			out.Set(i, j, float64(v))
		}
	}
	return out, nil
}

// Unload releases the graph and session
func (e *Encoder) Unload() {
	e.model.Unload()
}
