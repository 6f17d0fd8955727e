package fileutil

import (
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// NewReader opens a local or remote path for reading. Paths like
// "s3://bucket/path/to/object" are read from S3, http(s) URLs are fetched,
// anything else is opened from the local filesystem.
func NewReader(path string) (io.ReadCloser, error) {
	switch {
	case IsS3URI(path):
		return newS3Reader(path)
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		resp, err := http.Get(path)
		if err != nil {
			return nil, errors.Wrapf(err, "error getting %s", path)
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(ioutil.Discard, resp.Body)
			resp.Body.Close()
			return nil, errors.Errorf("error getting %s: status code %d", path, resp.StatusCode)
		}
		return resp.Body, nil
	default:
		return os.Open(path)
	}
}

// NamedWriteCloser is a file-like object extending io.WriteCloser with a string Name() similar to os.File.Name()
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// NewBufferedWriter opens a local or remote path for writing. If the path starts with
// "s3://", then this will write to a local buffer, copying to s3 on close. Otherwise,
// this will write to the local FS, creating parent directories as needed.
func NewBufferedWriter(path string) (NamedWriteCloser, error) {
	if IsS3URI(path) {
		return newBufferedS3Writer(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// ReadFile reads the contents of a local or remote path.
func ReadFile(path string) ([]byte, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// Exists reports whether a local path exists; remote paths are assumed to exist
// and fail when opened.
func Exists(p string) bool {
	if IsS3URI(p) || strings.Contains(p, "://") {
		return true
	}
	_, err := os.Stat(p)
	return err == nil
}

// Join is a url.URL scheme-safe join method. This allows for joining of local
// files as well as URI's.
func Join(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	u, err := url.Parse(parts[0])
	if err != nil || u.Scheme == "" {
		return filepath.Join(parts...)
	}
	elems := append([]string{u.Path}, parts[1:]...)
	u.Path = path.Join(elems...)
	return u.String()
}
