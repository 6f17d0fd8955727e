package cc2ftr

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultHParams().Validate())

	for name, mutate := range map[string]func(*HParams){
		"embed":     func(h *HParams) { h.EmbedSize = h.HiddenSize },
		"classes":   func(h *HParams) { h.ClassNum = 2 },
		"device":    func(h *HParams) { h.Device = "cuda" },
		"batch":     func(h *HParams) { h.BatchSize = 0 },
		"keep":      func(h *HParams) { h.DropoutKeepProb = 0 },
		"mode":      func(h *HParams) { h.WordMode = "bert" },
		"reduction": func(h *HParams) { h.HunkReduction = "max" },
		"vocab":     func(h *HParams) { h.VocabSize = 0 },
	} {
		hp := DefaultHParams()
		mutate(&hp)
		err := hp.Validate()
		assert.True(t, errors.IsConfigError(err), "%s: %v", name, err)
	}

	hp := DefaultHParams()
	hp.Device = ""
	assert.NoError(t, hp.Validate())

	_, err := NewModel(HParams{})
	assert.True(t, errors.IsConfigError(err))
}

func TestNewHParams(t *testing.T) {
	dir, err := ioutil.TempDir("", "hparams")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "hp.yaml")
	contents := "batch_size: 4\nhidden_size: 8\nembed_size: 16\nword_mode: pretrained\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))

	hp, err := NewHParams(path)
	require.NoError(t, err)
	assert.Equal(t, 4, hp.BatchSize)
	assert.Equal(t, 16, hp.EmbedSize)
	assert.Equal(t, WordModePretrained, hp.WordMode)
	assert.Equal(t, DefaultHParams().VocabSize, hp.VocabSize)
	assert.Equal(t, 3*16+4, hp.CombinedWidth())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, ioutil.WriteFile(bad, []byte(`{"hidden_size": 8, "embed_size": 10}`), 0644))
	_, err = NewHParams(bad)
	assert.True(t, errors.IsConfigError(err))

	_, err = NewHParams(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestCommitInput(t *testing.T) {
	x, err := NewCommitInput([][][][]int{
		{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}},
		{{{9, 10}, {11, 12}}, {{13, 14}, {15, 16}}},
	})
	require.NoError(t, err)

	b, h, l, tok := x.Dims()
	assert.Equal(t, []int{2, 2, 2, 2}, []int{b, h, l, tok})
	assert.Equal(t, []int{7, 8}, x.Line(0, 1, 1))
	assert.Equal(t, [][]int{{3, 4}, {11, 12}}, x.LineBatch(0, 1))

	swapped, err := x.WithHunkOrder([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{5, 6}, {13, 14}}, swapped.LineBatch(0, 0))
	assert.Equal(t, []int{1, 2}, x.Line(0, 0, 0))

	_, err = x.WithHunkOrder([]int{0, 0})
	assert.True(t, errors.IsInvalidInput(err))
	_, err = x.WithHunkOrder([]int{0})
	assert.True(t, errors.IsShapeError(err))
}

func TestCommitInputErrors(t *testing.T) {
	_, err := NewCommitInput(nil)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = NewCommitInput([][][][]int{{}})
	assert.True(t, errors.IsInvalidInput(err))

	_, err = NewCommitInput([][][][]int{{{{}}}})
	assert.True(t, errors.IsInvalidInput(err))

	// ragged hunks
	_, err = NewCommitInput([][][][]int{{{{1}}}, {{{1}}, {{2}}}})
	assert.True(t, errors.IsShapeError(err))

	// ragged lines
	_, err = NewCommitInput([][][][]int{{{{1}, {2}}}, {{{1}}}})
	assert.True(t, errors.IsShapeError(err))

	// ragged tokens
	_, err = NewCommitInput([][][][]int{{{{1, 2}}}, {{{1}}}})
	assert.True(t, errors.IsShapeError(err))

	_, err = NewCommitInputFromBuffer(1, 1, 1, 2, []int{1})
	assert.True(t, errors.IsShapeError(err))
}
