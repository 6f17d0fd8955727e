package serialization

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hunk struct {
	Added   []string `json:"added" yaml:"added"`
	Removed []string `json:"removed" yaml:"removed"`
}

type commit struct {
	ID    string  `json:"id" yaml:"id"`
	Label float64 `json:"label" yaml:"label"`
	Hunks []hunk  `json:"hunks" yaml:"hunks"`
}

func gzipString(x string) []byte {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	w.Write([]byte(x))
	w.Close()
	return b.Bytes()
}

func TestJSONStream(t *testing.T) {
	var commits []*commit
	d := []byte(`{"id": "a1", "label": 1}{"id": "b2", "label": 0}`)
	err := decodeAs(bytes.NewBuffer(d), "foo.json", func(c *commit) {
		commits = append(commits, c)
	})
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "b2", commits[1].ID)
}

func TestGzippedJSON(t *testing.T) {
	var commits []*commit
	d := gzipString(`{"id": "a1"}{"id": "b2"}{"id": "c3"}`)
	err := decodeAs(bytes.NewBuffer(d), "s3://bucket/bar.json.gz", func(c *commit) {
		commits = append(commits, c)
	})
	require.NoError(t, err)
	assert.Len(t, commits, 3)
}

func TestHandlerStop(t *testing.T) {
	var seen int
	d := []byte(`{"id": "a1"}{"id": "b2"}{"id": "c3"}`)
	err := decodeAs(bytes.NewBuffer(d), "foo.json", func(c *commit) error {
		seen++
		if seen == 2 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestDecodeOneYAML(t *testing.T) {
	var c commit
	d := []byte("id: x\nlabel: 1\nhunks:\n  - added: [\"a := 1\"]\n    removed: [\"a := 2\"]\n")
	err := decodeAs(bytes.NewBuffer(d), "foo.yaml", &c)
	require.NoError(t, err)
	assert.Equal(t, "x", c.ID)
	require.Len(t, c.Hunks, 1)
	assert.Equal(t, []string{"a := 2"}, c.Hunks[0].Removed)
}

func TestUnknownExtension(t *testing.T) {
	var c commit
	err := decodeAs(bytes.NewBufferString("{}"), "foo.pkl", &c)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "serialization")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	orig := commit{
		ID:    "deadbeef",
		Label: 1,
		Hunks: []hunk{{Added: []string{"return nil"}, Removed: []string{"return err"}}},
	}

	for _, name := range []string{"c.json", "c.gob.gz", "c.yaml", "c.json.sz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Encode(path, orig), name)

		var got commit
		require.NoError(t, Decode(path, &got), name)
		assert.Equal(t, orig, got, name)
	}
}
