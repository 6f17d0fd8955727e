package bpe

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/fileutil"
)

// SpaceMarker prefixes every word that follows whitespace, matching byte-level BPE vocabularies
const SpaceMarker = "Ġ"

// SpecialTokens names the control tokens of a vocabulary
type SpecialTokens struct {
	CLS string `json:"cls"`
	SEP string `json:"sep"`
	EOS string `json:"eos"`
	PAD string `json:"pad"`
	UNK string `json:"unk"`
}

// DefaultSpecialTokens are the control tokens used by RoBERTa-style code vocabularies
var DefaultSpecialTokens = SpecialTokens{
	CLS: "<s>",
	SEP: "</s>",
	EOS: "</s>",
	PAD: "<pad>",
	UNK: "<unk>",
}

// Encoder splits text into the shortest sequence of vocabulary entries per word
type Encoder struct {
	vocab   map[string]int
	inverse map[int]string
	// longest entry, in runes
	maxLen int

	cls, sep, eos, pad, unk int
}

// NewEncoder reads a JSON vocabulary (token -> id) from a local, HTTP or S3 path
func NewEncoder(path string, special SpecialTokens) (*Encoder, error) {
	r, err := fileutil.NewReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening vocab %s", path)
	}
	defer r.Close()

	var vocab map[string]int
	if err := json.NewDecoder(r).Decode(&vocab); err != nil {
		return nil, errors.Wrapf(err, "error decoding vocab %s", path)
	}
	return NewEncoderFromVocab(vocab, special)
}

// NewEncoderFromVocab builds an Encoder; every special token must be present in vocab
func NewEncoderFromVocab(vocab map[string]int, special SpecialTokens) (*Encoder, error) {
	e := &Encoder{
		vocab:   vocab,
		inverse: make(map[int]string, len(vocab)),
	}
	for tok, id := range vocab {
		e.inverse[id] = tok
		if n := utf8.RuneCountInString(tok); n > e.maxLen {
			e.maxLen = n
		}
	}

	for _, s := range []struct {
		tok string
		dst *int
	}{
		{special.CLS, &e.cls},
		{special.SEP, &e.sep},
		{special.EOS, &e.eos},
		{special.PAD, &e.pad},
		{special.UNK, &e.unk},
	} {
		id, ok := vocab[s.tok]
		if !ok {
			return nil, errors.Errorf("special token %q missing from vocab", s.tok)
		}
		*s.dst = id
	}
	return e, nil
}

// Size of the vocabulary
func (e *Encoder) Size() int {
	return len(e.vocab)
}

// CLS id
func (e *Encoder) CLS() int { return e.cls }

// SEP id
func (e *Encoder) SEP() int { return e.sep }

// EOS id
func (e *Encoder) EOS() int { return e.eos }

// PAD id
func (e *Encoder) PAD() int { return e.pad }

// UNK id
func (e *Encoder) UNK() int { return e.unk }

// Token returns the vocabulary entry for id
func (e *Encoder) Token(id int) (string, bool) {
	tok, ok := e.inverse[id]
	return tok, ok
}

// Tokenize splits text on whitespace and segments every word; words after the
// first carry the space marker.
func (e *Encoder) Tokenize(text string) []string {
	var tokens []string
	for i, w := range strings.Fields(text) {
		if i > 0 {
			w = SpaceMarker + w
		}
		tokens = append(tokens, e.encodeWord(w)...)
	}
	return tokens
}

// Encode tokenizes text and maps the tokens to ids, unknown pieces map to UNK
func (e *Encoder) Encode(text string) []int {
	tokens := e.Tokenize(text)
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		id, ok := e.vocab[tok]
		if !ok {
			id = e.unk
		}
		ids = append(ids, id)
	}
	return ids
}

type subSolution struct {
	length int
	// start of the last piece
	from int
}

// encodeWord finds the segmentation of word into the fewest vocabulary entries. Runes
// that no entry covers become single pieces that later map to UNK.
func (e *Encoder) encodeWord(word string) []string {
	if _, ok := e.vocab[word]; ok {
		return []string{word}
	}

	// offsets[i] is the byte offset of rune i; an invalid byte counts as one rune
	offsets := make([]int, 0, utf8.RuneCountInString(word)+1)
	for off := range word {
		offsets = append(offsets, off)
	}
	offsets = append(offsets, len(word))
	n := len(offsets) - 1

	best := make([]subSolution, n+1)
	for i := 1; i <= n; i++ {
		// an uncovered rune costs more than any covered segmentation of it
		best[i] = subSolution{length: best[i-1].length + n + 1, from: i - 1}
		lo := i - e.maxLen
		if lo < 0 {
			lo = 0
		}
		for j := lo; j < i; j++ {
			if _, ok := e.vocab[word[offsets[j]:offsets[i]]]; !ok {
				continue
			}
			if cand := best[j].length + 1; cand < best[i].length {
				best[i] = subSolution{length: cand, from: j}
			}
		}
	}

	var pieces []string
	for i := n; i > 0; i = best[i].from {
		pieces = append(pieces, word[offsets[best[i].from]:offsets[i]])
	}
	for l, r := 0, len(pieces)-1; l < r; l, r = l+1, r-1 {
		pieces[l], pieces[r] = pieces[r], pieces[l]
	}
	return pieces
}
