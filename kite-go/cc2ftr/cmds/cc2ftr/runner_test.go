package main

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/cc2ftr/kite-go/cc2ftr"
	"github.com/kiteco/cc2ftr/kite-go/cc2ftr/preprocess"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/serialization"
)

func writeFixtures(t *testing.T, dir string) ModelArgs {
	hp := cc2ftr.DefaultHParams()
	hp.VocabSize = 50
	hp.BatchSize = 2
	hp.HiddenSize = 3
	hp.EmbedSize = 6

	model, err := cc2ftr.NewModel(hp, cc2ftr.WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	args := defaultModelArgs()
	args.Checkpoint = filepath.Join(dir, "model.gob.gz")
	require.NoError(t, cc2ftr.SaveCheckpoint(args.Checkpoint, model))

	records := []preprocess.Record{
		{ID: "a", Label: 1, Message: "fix nil check", Hunks: []preprocess.Hunk{
			{Added: []string{"if err != nil", "return err"}, Removed: []string{"return nil"}},
		}},
		{ID: "b", Message: "refactor", Hunks: []preprocess.Hunk{
			{Added: []string{"return nil"}},
			{Removed: []string{"if err"}},
		}},
		{ID: "c", Message: "fix return"},
	}
	args.Records = filepath.Join(dir, "records.json")
	require.NoError(t, preprocess.WriteRecords(args.Records, records))

	args.Dict = filepath.Join(dir, "dict.json")
	require.NoError(t, preprocess.BuildDictionary(records, 0, 0).Save(args.Dict))

	vocab := map[string]int{"<s>": 0, "<pad>": 1, "</s>": 2, "<unk>": 3, "re": 4, "return": 5, "Ġnil": 6, "if": 7, "Ġerr": 8}
	buf, err := json.Marshal(vocab)
	require.NoError(t, err)
	args.Vocab = filepath.Join(dir, "vocab.json")
	require.NoError(t, ioutil.WriteFile(args.Vocab, buf, 0644))

	args.MsgLength = 4
	args.Hunks = 2
	args.Lines = 2
	args.Tokens = 6
	args.Workers = 2
	return args
}

func TestPredict(t *testing.T) {
	dir, err := ioutil.TempDir("", "cc2ftr-cmd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	args := &predictArgs{ModelArgs: writeFixtures(t, dir), Threshold: 0.5}
	args.Out = filepath.Join(dir, "predictions.json")
	require.NoError(t, args.Validate())
	require.NoError(t, args.Handle(context.Background()))

	var preds []prediction
	require.NoError(t, serialization.Decode(args.Out, func(p *prediction) {
		preds = append(preds, *p)
	}))
	require.Len(t, preds, 3)
	assert.Equal(t, "a", preds[0].ID)
	assert.Equal(t, 1.0, preds[0].Label)
	assert.Equal(t, "c", preds[2].ID)
	for _, p := range preds {
		assert.True(t, p.Prob > 0 && p.Prob < 1, "prob %f", p.Prob)
	}
}

func TestExtract(t *testing.T) {
	dir, err := ioutil.TempDir("", "cc2ftr-cmd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	fixtures := writeFixtures(t, dir)

	for mode, width := range map[string]int{"diff": 3*6 + 4, "embeds": 2 * 6} {
		for _, red := range []string{"mean", "attention"} {
			args := &extractArgs{ModelArgs: fixtures, Mode: mode}
			args.Reduction = red
			args.Out = filepath.Join(dir, mode+"-"+red+".json")
			require.NoError(t, args.Validate())
			require.NoError(t, args.Handle(context.Background()))

			var rows []features
			require.NoError(t, serialization.Decode(args.Out, func(f *features) {
				rows = append(rows, *f)
			}))
			require.Len(t, rows, 3)
			for _, r := range rows {
				assert.Len(t, r.Features, width)
			}
		}
	}

	args := &extractArgs{ModelArgs: fixtures, Mode: "raw"}
	assert.True(t, errors.IsConfigError(args.Validate()))

	args = &extractArgs{ModelArgs: fixtures, Mode: "diff"}
	args.Reduction = "max"
	assert.True(t, errors.IsConfigError(args.Validate()))
}

func TestExtractShuffled(t *testing.T) {
	dir, err := ioutil.TempDir("", "cc2ftr-cmd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	args := &extractArgs{ModelArgs: writeFixtures(t, dir), Mode: "embeds"}
	args.Shuffle = 3
	args.Out = filepath.Join(dir, "shuffled.json")
	require.NoError(t, args.Handle(context.Background()))

	var ids []string
	require.NoError(t, serialization.Decode(args.Out, func(f *features) {
		ids = append(ids, f.ID)
	}))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
}

func TestCanceled(t *testing.T) {
	dir, err := ioutil.TempDir("", "cc2ftr-cmd")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	args := &predictArgs{ModelArgs: writeFixtures(t, dir), Threshold: 0.5}
	args.Out = filepath.Join(dir, "predictions.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, args.Handle(ctx))
}

func TestSummarize(t *testing.T) {
	s, err := summarize([]float64{0.1, 0.2, 0.6, 0.9}, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, s.Mean, 1e-9)
	assert.InDelta(t, 0.4, s.Median, 1e-9)
	assert.Equal(t, 2, s.Positive)

	_, err = summarize(nil, 0.5)
	assert.Error(t, err)
}
