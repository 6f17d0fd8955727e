package cc2ftr

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/nn"
)

// LineEncoder turns the tokens at one (hunk, line) position of every commit in a batch
// into one vector per commit.
type LineEncoder interface {
	// EncodeLines maps [batch][tokens] ids to a [batch x Width()] matrix
	EncodeLines(ids [][]int, h nn.HiddenState) (*mat.Dense, error)
	Width() int
}

// RecurrentEncoder runs a bidirectional GRU over a sequence and pools its outputs
// with learned attention.
type RecurrentEncoder struct {
	GRU       *nn.BiGRU
	Attention *nn.Attention
}

// NewRecurrentEncoder allocates an encoder over steps of width in
func NewRecurrentEncoder(in, hidden int, rng *rand.Rand) *RecurrentEncoder {
	return &RecurrentEncoder{
		GRU:       nn.NewBiGRU(in, hidden, rng),
		Attention: nn.NewAttention(2*hidden, rng),
	}
}

// Width of the pooled output
func (r *RecurrentEncoder) Width() int {
	return 2 * r.GRU.Hidden()
}

// Encode pools seq into a [batch x Width()] matrix, starting the GRU from h
func (r *RecurrentEncoder) Encode(seq nn.Sequence, h nn.HiddenState) (*mat.Dense, nn.HiddenState, error) {
	if len(seq) == 0 {
		return nil, nn.HiddenState{}, errors.InvalidInputf("recurrent encoder", "empty sequence")
	}
	out, last, err := r.GRU.Forward(seq, h)
	if err != nil {
		return nil, nn.HiddenState{}, err
	}
	pooled, err := r.Attention.Pool(out)
	if err != nil {
		return nil, nn.HiddenState{}, err
	}
	return pooled, last, nil
}

// Params lists the GRU and attention parameters
func (r *RecurrentEncoder) Params(prefix string) []nn.Param {
	return append(r.GRU.Params(prefix+".gru"), r.Attention.Params(prefix+".attn")...)
}

// WordEncoder embeds token ids and pools them into one vector per line
type WordEncoder struct {
	Embed *nn.Embedding
	*RecurrentEncoder
}

// NewWordEncoder allocates a word encoder over a vocabulary of the given size
func NewWordEncoder(vocab, embed, hidden int, rng *rand.Rand) *WordEncoder {
	return &WordEncoder{
		Embed:            nn.NewEmbedding(vocab, embed, rng),
		RecurrentEncoder: NewRecurrentEncoder(embed, hidden, rng),
	}
}

// EncodeLines implements LineEncoder
func (w *WordEncoder) EncodeLines(ids [][]int, h nn.HiddenState) (*mat.Dense, error) {
	seq, err := w.Embed.Lookup(ids)
	if err != nil {
		return nil, errors.Wrapf(err, "word encoder")
	}
	pooled, _, err := w.Encode(seq, h)
	if err != nil {
		return nil, errors.Wrapf(err, "word encoder")
	}
	return pooled, nil
}

// Params lists the embedding table followed by the recurrent stack
func (w *WordEncoder) Params(prefix string) []nn.Param {
	return append(w.Embed.Params(prefix+".embed"), w.RecurrentEncoder.Params(prefix)...)
}

// SentenceEncoder pools the line vectors of one hunk into a hunk vector
type SentenceEncoder struct {
	*RecurrentEncoder
}

// NewSentenceEncoder allocates a sentence encoder over line vectors of width in
func NewSentenceEncoder(in, hidden int, rng *rand.Rand) *SentenceEncoder {
	return &SentenceEncoder{NewRecurrentEncoder(in, hidden, rng)}
}

// HunkEncoder pools the hunk vectors of one commit side into a single vector
type HunkEncoder struct {
	*RecurrentEncoder
}

// NewHunkEncoder allocates a hunk encoder over hunk vectors of width in
func NewHunkEncoder(in, hidden int, rng *rand.Rand) *HunkEncoder {
	return &HunkEncoder{NewRecurrentEncoder(in, hidden, rng)}
}
