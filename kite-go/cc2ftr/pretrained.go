package cc2ftr

import (
	"encoding/binary"

	"github.com/dgryski/go-spooky"
	lru "github.com/hashicorp/golang-lru"
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/nn"
)

// PretrainedEncoder is a contextual encoder run over already tokenized ids. Pooled
// returns one [len(ids) x Width()] row per input sequence.
type PretrainedEncoder interface {
	Pooled(ids [][]int) (*mat.Dense, error)
	Width() int
}

// pretrainedLines adapts a PretrainedEncoder to LineEncoder; it keeps no recurrent
// state, so the word hidden state is ignored.
type pretrainedLines struct {
	enc PretrainedEncoder
}

func (p pretrainedLines) Width() int {
	return p.enc.Width()
}

func (p pretrainedLines) EncodeLines(ids [][]int, _ nn.HiddenState) (*mat.Dense, error) {
	if len(ids) == 0 {
		return nil, errors.InvalidInputf("pretrained encoder", "empty batch")
	}
	for _, row := range ids {
		if len(row) == 0 {
			return nil, errors.InvalidInputf("pretrained encoder", "empty token sequence")
		}
	}
	out, err := p.enc.Pooled(ids)
	if err != nil {
		return nil, errors.Wrapf(err, "pretrained encoder")
	}
	if r, c := out.Dims(); r != len(ids) || c != p.enc.Width() {
		return nil, errors.Shapef("pretrained encoder", "pooled output %dx%d for %d rows of width %d", r, c, len(ids), p.enc.Width())
	}
	return out, nil
}

// CachedPretrained memoizes pooled vectors per token sequence. Lines such as blank
// padding lines repeat across commits, so only unseen rows reach the wrapped encoder.
type CachedPretrained struct {
	enc   PretrainedEncoder
	cache *lru.Cache
}

// NewCachedPretrained wraps enc with an LRU cache holding up to size rows
func NewCachedPretrained(enc PretrainedEncoder, size int) (*CachedPretrained, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating pretrained cache")
	}
	return &CachedPretrained{enc: enc, cache: cache}, nil
}

// Width implements PretrainedEncoder
func (c *CachedPretrained) Width() int {
	return c.enc.Width()
}

// Len is the number of cached rows
func (c *CachedPretrained) Len() int {
	return c.cache.Len()
}

// Pooled implements PretrainedEncoder
func (c *CachedPretrained) Pooled(ids [][]int) (*mat.Dense, error) {
	width := c.enc.Width()
	out := mat.NewDense(len(ids), width, nil)

	type pending struct {
		key  uint64
		rows []int
	}
	var misses [][]int
	byKey := make(map[uint64]*pending)
	var order []*pending

	for i, row := range ids {
		key := hashIDs(row)
		if v, ok := c.cache.Get(key); ok {
			out.SetRow(i, v.([]float64))
			continue
		}
		if p, ok := byKey[key]; ok {
			p.rows = append(p.rows, i)
			continue
		}
		p := &pending{key: key, rows: []int{i}}
		byKey[key] = p
		order = append(order, p)
		misses = append(misses, row)
	}
	if len(misses) == 0 {
		return out, nil
	}

	computed, err := c.enc.Pooled(misses)
	if err != nil {
		return nil, err
	}
	if r, cols := computed.Dims(); r != len(misses) || cols != width {
		return nil, errors.Shapef("pretrained cache", "pooled output %dx%d for %d rows of width %d", r, cols, len(misses), width)
	}
	for i, p := range order {
		vec := mat.Row(nil, i, computed)
		c.cache.Add(p.key, vec)
		for _, r := range p.rows {
			out.SetRow(r, vec)
		}
	}
	return out, nil
}

func hashIDs(ids []int) uint64 {
	buf := make([]byte, 0, len(ids)*binary.MaxVarintLen64)
	var tmp [binary.MaxVarintLen64]byte
	for _, id := range ids {
		n := binary.PutVarint(tmp[:], int64(id))
		buf = append(buf, tmp[:n]...)
	}
	return spooky.Hash64(buf)
}
