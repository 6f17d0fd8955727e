package cc2ftr

import (
	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/serialization"
)

// WordMode selects the encoder that turns the tokens of one line into a vector
type WordMode string

const (
	// WordModeRecurrent embeds tokens and pools them with a bidirectional GRU and attention
	WordModeRecurrent WordMode = "recurrent"
	// WordModePretrained uses the pooled output of an injected pretrained encoder
	WordModePretrained WordMode = "pretrained"
)

// HunkReduction selects how hunk vectors are reduced to one vector per commit side
type HunkReduction string

const (
	// HunkReductionMean averages hunk vectors
	HunkReductionMean HunkReduction = "mean"
	// HunkReductionAttention runs the hunk encoder over hunk vectors
	HunkReductionAttention HunkReduction = "attention"
)

// DeviceCPU is the only supported compute device
const DeviceCPU = "cpu"

// HParams holds the hyperparameters of a model
type HParams struct {
	VocabSize           int           `json:"vocab_code" yaml:"vocab_code"`
	BatchSize           int           `json:"batch_size" yaml:"batch_size"`
	EmbedSize           int           `json:"embed_size" yaml:"embed_size"`
	PretrainedEmbedSize int           `json:"pretrained_embed_size" yaml:"pretrained_embed_size"`
	HiddenSize          int           `json:"hidden_size" yaml:"hidden_size"`
	ClassNum            int           `json:"class_num" yaml:"class_num"`
	DropoutKeepProb     float64       `json:"dropout_keep_prob" yaml:"dropout_keep_prob"`
	Device              string        `json:"device" yaml:"device"`
	WordMode            WordMode      `json:"word_mode" yaml:"word_mode"`
	HunkReduction       HunkReduction `json:"hunk_reduction" yaml:"hunk_reduction"`
	Seed                int64         `json:"seed" yaml:"seed"`
}

// DefaultHParams returns a small recurrent configuration
func DefaultHParams() HParams {
	return HParams{
		VocabSize:           50265,
		BatchSize:           16,
		EmbedSize:           64,
		PretrainedEmbedSize: 768,
		HiddenSize:          32,
		ClassNum:            1,
		DropoutKeepProb:     0.5,
		Device:              DeviceCPU,
		WordMode:            WordModeRecurrent,
		HunkReduction:       HunkReductionMean,
		Seed:                42,
	}
}

// NewHParams loads HParams from a .json or .yaml file (local, HTTP or S3, optionally
// compressed); fields missing from the file keep their defaults.
func NewHParams(path string) (HParams, error) {
	params := DefaultHParams()
	if err := serialization.Decode(path, &params); err != nil {
		return HParams{}, errors.Wrapf(err, "error reading params from '%s'", path)
	}
	if err := params.Validate(); err != nil {
		return HParams{}, errors.Wrapf(err, "invalid params in '%s'", path)
	}
	return params, nil
}

// CombinedWidth is the width of the diff feature vector, 3*EmbedSize + 4
func (h HParams) CombinedWidth() int {
	return 3*h.EmbedSize + 4
}

// Validate checks that the hyperparameters describe a buildable model
func (h HParams) Validate() error {
	switch {
	case h.BatchSize <= 0:
		return errors.Configf("batch_size", "must be positive, got %d", h.BatchSize)
	case h.HiddenSize <= 0:
		return errors.Configf("hidden_size", "must be positive, got %d", h.HiddenSize)
	case h.EmbedSize != 2*h.HiddenSize:
		// sentence vectors are 2*hidden wide and feed the combiner directly
		return errors.Configf("embed_size", "must be 2*hidden_size (%d), got %d", 2*h.HiddenSize, h.EmbedSize)
	case h.ClassNum != 1:
		return errors.Configf("class_num", "only binary classification (1) is supported, got %d", h.ClassNum)
	case h.DropoutKeepProb <= 0 || h.DropoutKeepProb > 1:
		return errors.Configf("dropout_keep_prob", "must be in (0, 1], got %v", h.DropoutKeepProb)
	case h.Device != "" && h.Device != DeviceCPU:
		return errors.Configf("device", "unsupported device %q", h.Device)
	}

	switch h.WordMode {
	case WordModeRecurrent:
		if h.VocabSize <= 0 {
			return errors.Configf("vocab_code", "must be positive, got %d", h.VocabSize)
		}
	case WordModePretrained:
		if h.PretrainedEmbedSize <= 0 {
			return errors.Configf("pretrained_embed_size", "must be positive, got %d", h.PretrainedEmbedSize)
		}
	default:
		return errors.Configf("word_mode", "unknown mode %q", h.WordMode)
	}

	switch h.HunkReduction {
	case HunkReductionMean, HunkReductionAttention:
	default:
		return errors.Configf("hunk_reduction", "unknown reduction %q", h.HunkReduction)
	}
	return nil
}
