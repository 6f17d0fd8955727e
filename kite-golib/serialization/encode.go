package serialization

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/kiteco/cc2ftr/kite-golib/fileutil"
	yaml "gopkg.in/yaml.v2"
)

// Encode writes the object to the path, using the format specified by the file
// extension, which can be .json, .gob, .yml, or .yaml. The path may
// additionally have a .gz or .sz suffix, in which case the stream will be compressed.
func Encode(path string, obj interface{}) (err error) {
	enc, err := NewEncoder(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()
	return enc.Encode(obj)
}

// Encoder is an interface that matches gob.Encoder, json.Encoder, and yaml.Encoder
type Encoder interface {
	// Encode adds an item to the stream
	Encode(interface{}) error
}

// EncodeCloser is an encoder that can also close its underlying stream
type EncodeCloser struct {
	encoder Encoder
	closers []io.Closer
}

// Encode writes an object to the underlying stream
func (e *EncodeCloser) Encode(x interface{}) error {
	return e.encoder.Encode(x)
}

// Close flushes and closes the underlying streams
func (e *EncodeCloser) Close() error {
	var closeErr error
	// We must close in reverse order
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// NewEncoder opens the specified local or S3 path and returns an encoder that writes in
// the format specified by the file extension.
func NewEncoder(path string) (*EncodeCloser, error) {
	f, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return nil, err
	}
	inpath := path

	var w io.Writer = f
	closers := []io.Closer{f}

	switch {
	case strings.HasSuffix(path, ".gz"):
		path = strings.TrimSuffix(path, ".gz")
		gz := gzip.NewWriter(f)
		w = gz
		closers = append(closers, gz)
	case strings.HasSuffix(path, ".sz"):
		path = strings.TrimSuffix(path, ".sz")
		sz := snappy.NewBufferedWriter(f)
		w = sz
		closers = append(closers, sz)
	}

	var e Encoder
	switch {
	case strings.HasSuffix(path, ".json"):
		e = json.NewEncoder(w)
	case strings.HasSuffix(path, ".gob"):
		e = gob.NewEncoder(w)
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		ye := yaml.NewEncoder(w)
		e = ye
		closers = append(closers, ye)
	default:
		f.Close()
		return nil, fmt.Errorf("could not find encoder for %s", inpath)
	}

	return &EncodeCloser{
		encoder: e,
		closers: closers,
	}, nil
}
