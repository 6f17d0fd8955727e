package tfencoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

type fakeGraph struct {
	feeds    map[string]interface{}
	out      interface{}
	unloaded bool
}

func (f *fakeGraph) Run(feeds map[string]interface{}, fetches []string) (map[string]interface{}, error) {
	f.feeds = feeds
	return map[string]interface{}{fetches[0]: f.out}, nil
}

func (f *fakeGraph) Unload() {
	f.unloaded = true
}

func newTestEncoder(out interface{}) (*Encoder, *fakeGraph) {
	cfg := DefaultConfig("graph.pb")
	cfg.Width = 2
	g := &fakeGraph{out: out}
	return &Encoder{cfg: cfg, model: g}, g
}

func TestPooled(t *testing.T) {
	enc, g := newTestEncoder([][]float32{{1, 2}, {3, 4}})

	out, err := enc.Pooled([][]int{{0, 7, 2, 1}, {0, 2, 1, 1}})
	require.NoError(t, err)

	assert.Equal(t, [][]int32{{0, 7, 2, 1}, {0, 2, 1, 1}}, g.feeds["input_ids"])
	assert.Equal(t, [][]int32{{1, 1, 1, 0}, {1, 1, 0, 0}}, g.feeds["attention_mask"])

	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, out.At(1, 1))

	enc.Unload()
	assert.True(t, g.unloaded)
}

func TestPooledErrors(t *testing.T) {
	enc, _ := newTestEncoder([][]float32{{1, 2}})

	_, err := enc.Pooled(nil)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = enc.Pooled([][]int{{0, 2}, {0}})
	assert.True(t, errors.IsShapeError(err))

	// one pooled row for two inputs
	_, err = enc.Pooled([][]int{{0, 2}, {0, 2}})
	assert.True(t, errors.IsShapeError(err))

	enc, _ = newTestEncoder([][]float32{{1, 2, 3}})
	_, err = enc.Pooled([][]int{{0, 2}})
	assert.True(t, errors.IsShapeError(err))

	enc, _ = newTestEncoder([]float32{1, 2})
	_, err = enc.Pooled([][]int{{0, 2}})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.IsConfigError(err))

	cfg := DefaultConfig("graph.pb")
	cfg.Width = 0
	_, err = New(cfg)
	assert.True(t, errors.IsConfigError(err))

	enc, err := New(DefaultConfig("graph.pb"))
	require.NoError(t, err)
	assert.Equal(t, 768, enc.Width())
}
