package preprocess

import (
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/cc2ftr/kite-golib/bpe"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

func testTokenizer(t *testing.T) *bpe.Encoder {
	enc, err := bpe.NewEncoderFromVocab(map[string]int{
		"<s>": 0, "<pad>": 1, "</s>": 2, "<unk>": 3,
		"re": 4, "return": 5, "Ġnil": 6, "if": 7, "Ġerr": 8,
	}, bpe.DefaultSpecialTokens)
	require.NoError(t, err)
	return enc
}

func testRecords() []Record {
	return []Record{
		{ID: "a", Label: 1, Message: "Fix nil bug", Hunks: []Hunk{{Added: []string{"return nil"}, Removed: []string{"return err"}}}},
		{ID: "b", Label: 0, Message: "fix typo", Hunks: []Hunk{{Added: []string{"if err"}}}},
		{ID: "c", Label: 0, Message: "Add return", Hunks: []Hunk{{Removed: []string{"re"}}, {Added: []string{"return"}}}},
	}
}

func tempDir(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "preprocess")
	require.NoError(t, err)
	return dir, func() { os.RemoveAll(dir) }
}

func TestPadMessage(t *testing.T) {
	assert.Equal(t, "Fix the bug <NULL> <NULL>", PadMessage("Fix the bug", 5))
	assert.Equal(t, "Fix the", PadMessage("Fix  the bug", 2))
	assert.Equal(t, "Fix the", PadMessage("Fix the", 2))
	assert.Equal(t, "<NULL> <NULL>", PadMessage("", 2))
}

func TestMapMessage(t *testing.T) {
	vocab := map[string]int{NullToken: 0, "fix": 1, "bug": 2, "typo": 3}
	ids, err := MapMessage("Fix the BUG <NULL>", vocab)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2, 0}, ids)

	labels, err := MultiHotLabels(ids, len(vocab))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 0}, labels)

	_, err = MultiHotLabels([]int{4}, len(vocab))
	assert.True(t, errors.IsInvalidInput(err))

	_, err = MapMessage("fix", map[string]int{"fix": 0})
	assert.Error(t, err)
}

func TestBuildDictionary(t *testing.T) {
	d := BuildDictionary(testRecords(), 0, 0)
	assert.Equal(t, map[string]int{NullToken: 0, "fix": 1, "add": 2, "bug": 3, "nil": 4, "return": 5, "typo": 6}, d.Msg)
	assert.Equal(t, 0, d.Code[NullToken])
	assert.Equal(t, 1, d.Code["return"])
	assert.Equal(t, 2, d.Code["err"])

	capped := BuildDictionary(testRecords(), 2, 3)
	assert.Equal(t, map[string]int{NullToken: 0, "fix": 1}, capped.Msg)
	assert.Len(t, capped.Code, 3)

	dir, cleanup := tempDir(t)
	defer cleanup()
	path := filepath.Join(dir, "dict.json.gz")
	require.NoError(t, d.Save(path))
	loaded, err := LoadDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, Dictionary{Msg: map[string]int{"x": 0}}.Save(bad))
	_, err = LoadDictionary(bad)
	assert.Error(t, err)
}

func TestLineCode(t *testing.T) {
	tok := testTokenizer(t)
	assert.Equal(t, []int{0, 5, 6, 2, 1, 1}, LineCode(tok, "  return nil ", 6))
	assert.Equal(t, []int{0, 5, 6}, LineCode(tok, "return nil", 3))
	assert.Equal(t, []int{0, 2, 1}, LineCode(tok, "", 3))
}

func TestFlatCode(t *testing.T) {
	tok := testTokenizer(t)
	hunks := []Hunk{
		{Added: []string{"return", "nil"}, Removed: []string{"if err"}},
		{Added: []string{"re"}},
	}
	assert.Equal(t, []int{0, 5, 6, 2, 4, 2, 2}, FlatCode(tok, hunks, Added))
	assert.Equal(t, []int{0, 7, 8, 2, 2, 2}, FlatCode(tok, hunks, Removed))

	layout := FlatLayout(4)
	require.NoError(t, layout.Validate())
	assert.Equal(t, []int{0, 5, 6, 2}, layout.Encode(tok, hunks, Added))
	assert.Equal(t, []int{0, 2, 1, 1}, layout.Encode(tok, nil, Added))
}

func TestHierarchicalLayout(t *testing.T) {
	tok := testTokenizer(t)
	layout := HierarchicalLayout(2, 2, 4)
	require.NoError(t, layout.Validate())
	assert.Equal(t, 16, layout.Size())

	hunks := []Hunk{
		{Added: []string{"return nil"}},
		{Added: []string{"if err", "re", "return"}},
		{Added: []string{"dropped"}},
	}
	assert.Equal(t, []int{
		0, 5, 6, 2, 0, 2, 1, 1,
		0, 7, 8, 2, 0, 4, 2, 1,
	}, layout.Encode(tok, hunks, Added))

	assert.Error(t, HierarchicalLayout(0, 1, 1).Validate())
	assert.Error(t, Layout{Flat: true, Hunks: 2, Lines: 1, Tokens: 4}.Validate())
}

func TestHunksFromContents(t *testing.T) {
	before := "a := 1\nb := 2\nc := 3\n"
	after := "a := 1\nb := 20\nc := 3\n\nd := 4\n"

	hunks := HunksFromContents(before, after)
	require.Len(t, hunks, 2)
	assert.Equal(t, []string{"b := 20"}, hunks[0].Added)
	assert.Equal(t, []string{"b := 2"}, hunks[0].Removed)
	assert.Equal(t, []string{"d := 4"}, hunks[1].Added)
	assert.Empty(t, hunks[1].Removed)

	assert.Empty(t, HunksFromContents(before, before))
}

func TestRecordsRoundTrip(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	for _, name := range []string{"records.json", "records.gob.gz", "records.json.sz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteRecords(path, testRecords()))
		records, err := ReadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, testRecords(), records, name)
	}
}

func TestDatasetAndLoader(t *testing.T) {
	records := testRecords()
	dict := BuildDictionary(records, 0, 0)
	ds, err := NewDataset(records, dict, testTokenizer(t), Options{
		MsgLength: 4,
		Layout:    HierarchicalLayout(2, 1, 4),
		Workers:   2,
	})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	ex := ds.Examples[0]
	assert.Equal(t, "a", ex.ID)
	assert.Equal(t, 1.0, ex.Label)
	assert.Equal(t, []int{dict.Msg["fix"], dict.Msg["nil"], dict.Msg["bug"], 0}, ex.Message)
	assert.Equal(t, []int{0, 5, 6, 2, 0, 2, 1, 1}, ex.Added)
	assert.Equal(t, []int{0, 5, 8, 2, 0, 2, 1, 1}, ex.Removed)

	loader, err := NewLoader(ds, 2)
	require.NoError(t, err)
	require.Equal(t, 2, loader.Len())

	first, err := loader.Batch(0)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Size)
	assert.Equal(t, []string{"a", "b"}, first.IDs)
	assert.Equal(t, []float64{1, 0}, first.Labels)

	last, err := loader.Batch(1)
	require.NoError(t, err)
	assert.Equal(t, 1, last.Size)
	assert.Equal(t, []string{"c", ""}, last.IDs)
	b, h, l, tok := last.Added.Dims()
	assert.Equal(t, []int{2, 2, 1, 4}, []int{b, h, l, tok})
	// padding rows hold empty lines
	assert.Equal(t, []int{0, 2, 1, 1}, last.Added.Line(1, 0, 0))
	assert.Equal(t, []int{0, 4, 2, 1}, last.Removed.Line(0, 0, 0))
	assert.Len(t, last.MsgLabels[1], len(dict.Msg))

	_, err = loader.Batch(2)
	assert.Error(t, err)

	loader.Shuffle(rand.New(rand.NewSource(1)))
	var ids []string
	for i := 0; i < loader.Len(); i++ {
		batch, err := loader.Batch(i)
		require.NoError(t, err)
		ids = append(ids, batch.IDs[:batch.Size]...)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestLoadTrainAndPredict(t *testing.T) {
	dir, cleanup := tempDir(t)
	defer cleanup()

	records := testRecords()
	train, test, dictPath := filepath.Join(dir, "train.json"), filepath.Join(dir, "test.json"), filepath.Join(dir, "dict.json")
	require.NoError(t, WriteRecords(train, records[:2]))
	require.NoError(t, WriteRecords(test, records[2:]))
	require.NoError(t, BuildDictionary(records, 0, 0).Save(dictPath))

	opts := Options{MsgLength: 3, Layout: FlatLayout(8)}
	ds, err := LoadTrain(train, test, dictPath, testTokenizer(t), opts)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, "c", ds.Examples[2].ID)

	ds, err = LoadPredict(test, dictPath, testTokenizer(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	records[0].Label = 2
	require.NoError(t, WriteRecords(train, records[:2]))
	_, err = LoadTrain(train, test, dictPath, testTokenizer(t), opts)
	assert.Error(t, err)

	_, err = LoadPredict(test, dictPath, testTokenizer(t), Options{MsgLength: 3})
	assert.Error(t, err)
}
