package cc2ftr

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/nn"
)

// HiddenStates holds the initial recurrent state of each encoder level. Every field
// is a [batch x hidden] pair, zeroed before each pass.
type HiddenStates struct {
	Hunk     nn.HiddenState
	Sentence nn.HiddenState
	// Word is only read by the recurrent word encoder
	Word nn.HiddenState
}

// Option configures a Model at construction
type Option func(*Model)

// WithPretrained sets the encoder used in the pretrained word mode
func WithPretrained(enc PretrainedEncoder) Option {
	return func(m *Model) {
		m.pretrained = enc
	}
}

// WithRand replaces the source used for parameter initialization and dropout
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) {
		m.rng = rng
	}
}

// Model is the hierarchical commit encoder with its diff classifier. Parameters are
// only read during a forward pass, so an inference-mode Model may be shared between
// goroutines; a Model in training mode may not, since dropout draws from its source.
type Model struct {
	hp         HParams
	pretrained PretrainedEncoder
	rng        *rand.Rand
	training   bool

	Word       LineEncoder
	Sentence   *SentenceEncoder
	Hunk       *HunkEncoder
	Combiner   *DiffCombiner
	Classifier *Classifier
}

// NewModel validates hp and allocates every layer
func NewModel(hp HParams, opts ...Option) (*Model, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	m := &Model{hp: hp}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(hp.Seed))
	}

	switch hp.WordMode {
	case WordModePretrained:
		if m.pretrained == nil {
			return nil, errors.Configf("word_mode", "pretrained mode requires a pretrained encoder")
		}
		if w := m.pretrained.Width(); w != hp.PretrainedEmbedSize {
			return nil, errors.Configf("pretrained_embed_size", "encoder width is %d, configured %d", w, hp.PretrainedEmbedSize)
		}
		m.Word = pretrainedLines{enc: m.pretrained}
	default:
		m.Word = NewWordEncoder(hp.VocabSize, hp.EmbedSize, hp.HiddenSize, m.rng)
	}

	m.Sentence = NewSentenceEncoder(m.Word.Width(), hp.HiddenSize, m.rng)
	m.Hunk = NewHunkEncoder(m.Sentence.Width(), hp.HiddenSize, m.rng)
	m.Combiner = NewDiffCombiner(hp.BatchSize, hp.EmbedSize, m.rng)
	m.Classifier = NewClassifier(m.Combiner.Width(), hp.HiddenSize, hp.DropoutKeepProb, m.rng)
	if err := m.checkWidths(); err != nil {
		return nil, err
	}
	return m, nil
}

// HParams the model was built with
func (m *Model) HParams() HParams {
	return m.hp
}

// SetTraining toggles dropout in the classifier head
func (m *Model) SetTraining(training bool) {
	m.training = training
}

// Training reports whether dropout is active
func (m *Model) Training() bool {
	return m.training
}

// InitHidden returns zeroed hidden states for every level
func (m *Model) InitHidden() HiddenStates {
	return HiddenStates{
		Hunk:     nn.ZeroHidden(m.hp.BatchSize, m.hp.HiddenSize),
		Sentence: nn.ZeroHidden(m.hp.BatchSize, m.hp.HiddenSize),
		Word:     nn.ZeroHidden(m.hp.BatchSize, m.hp.HiddenSize),
	}
}

// ForwardCode encodes one commit side into a [batch x embed] matrix. Line vectors are
// written into a buffer indexed by (hunk, line), each hunk's lines are pooled by the
// sentence encoder, and hunk vectors are reduced according to HParams.HunkReduction.
func (m *Model) ForwardCode(x CommitInput, hs HiddenStates) (*mat.Dense, error) {
	batch, hunks, lines, _ := x.Dims()
	if batch != m.hp.BatchSize {
		return nil, errors.Shapef("forward code", "batch of %d, model expects %d", batch, m.hp.BatchSize)
	}
	if hunks == 0 || lines == 0 {
		return nil, errors.InvalidInputf("forward code", "commit with %d hunks of %d lines", hunks, lines)
	}

	buf := make(nn.Sequence, hunks*lines)
	for h := 0; h < hunks; h++ {
		for l := 0; l < lines; l++ {
			vec, err := m.Word.EncodeLines(x.LineBatch(h, l), hs.Word)
			if err != nil {
				return nil, errors.Wrapf(err, "hunk %d line %d", h, l)
			}
			buf[h*lines+l] = vec
		}
	}

	hunkVecs := make(nn.Sequence, hunks)
	for h := range hunkVecs {
		vec, _, err := m.Sentence.Encode(buf[h*lines:(h+1)*lines], hs.Sentence)
		if err != nil {
			return nil, errors.Wrapf(err, "sentence encoder, hunk %d", h)
		}
		hunkVecs[h] = vec
	}

	if m.hp.HunkReduction == HunkReductionAttention {
		vec, _, err := m.Hunk.Encode(hunkVecs, hs.Hunk)
		if err != nil {
			return nil, errors.Wrapf(err, "hunk encoder")
		}
		return vec, nil
	}
	return meanOf(hunkVecs)
}

// ForwardCommitEmbeds returns [added, removed] side by side, [batch x 2*embed]
func (m *Model) ForwardCommitEmbeds(added, removed CommitInput, hs HiddenStates) (*mat.Dense, error) {
	a, r, err := m.forwardSides(added, removed, hs)
	if err != nil {
		return nil, err
	}
	return nn.HConcat(a, r)
}

// ForwardCommitEmbedsDiff returns the combined comparison features, [batch x 3*embed+4]
func (m *Model) ForwardCommitEmbedsDiff(added, removed CommitInput, hs HiddenStates) (*mat.Dense, error) {
	a, r, err := m.forwardSides(added, removed, hs)
	if err != nil {
		return nil, err
	}
	return m.Combiner.Combine(a, r)
}

// Forward returns the probability of each commit in the batch
func (m *Model) Forward(added, removed CommitInput, hs HiddenStates) ([]float64, error) {
	diff, err := m.ForwardCommitEmbedsDiff(added, removed, hs)
	if err != nil {
		return nil, err
	}
	var rng *rand.Rand
	if m.training {
		rng = m.rng
	}
	return m.Classifier.Forward(diff, rng)
}

// Parameters lists every learned matrix under a stable name
func (m *Model) Parameters() []nn.Param {
	var params []nn.Param
	if w, ok := m.Word.(*WordEncoder); ok {
		params = append(params, w.Params("word")...)
	}
	params = append(params, m.Sentence.Params("sent")...)
	params = append(params, m.Hunk.Params("hunk")...)
	params = append(params, m.Combiner.Params("combine")...)
	return append(params, m.Classifier.Params("classifier")...)
}

func (m *Model) forwardSides(added, removed CommitInput, hs HiddenStates) (*mat.Dense, *mat.Dense, error) {
	a, err := m.ForwardCode(added, hs)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "added code")
	}
	r, err := m.ForwardCode(removed, hs)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "removed code")
	}
	return a, r, nil
}

func (m *Model) checkWidths() error {
	if w := m.Sentence.Width(); w != m.hp.EmbedSize {
		return errors.Shapef("model", "sentence width %d, embed size %d", w, m.hp.EmbedSize)
	}
	if in := m.Classifier.FC1.In(); in != m.Combiner.Width() {
		return errors.Shapef("model", "classifier input %d, combined width %d", in, m.Combiner.Width())
	}
	return nil
}

func meanOf(seq nn.Sequence) (*mat.Dense, error) {
	batch, width, err := seq.Dims()
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(batch, width, nil)
	for _, step := range seq {
		out.Add(out, step)
	}
	out.Scale(1/float64(len(seq)), out)
	return out, nil
}
