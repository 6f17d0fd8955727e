// Package preprocess turns commit records into padded token id batches for the cc2ftr
// model: message vocabularies and multi-hot labels, BPE tokenized code in a
// hierarchical (hunk, line, token) or flat layout, and fixed size batches.
package preprocess

import (
	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/serialization"
)

// Hunk is a contiguous block of changed lines
type Hunk struct {
	Added   []string `json:"added_code" yaml:"added_code"`
	Removed []string `json:"removed_code" yaml:"removed_code"`
}

// Side selects the added or removed lines of a hunk
type Side int

const (
	// Added lines
	Added Side = iota
	// Removed lines
	Removed
)

func (s Side) String() string {
	if s == Added {
		return "added"
	}
	return "removed"
}

// Lines of the hunk on the given side
func (h Hunk) Lines(s Side) []string {
	if s == Added {
		return h.Added
	}
	return h.Removed
}

// Record is one labeled commit
type Record struct {
	ID      string `json:"id" yaml:"id"`
	Label   int    `json:"label" yaml:"label"`
	Message string `json:"message" yaml:"message"`
	Hunks   []Hunk `json:"hunks" yaml:"hunks"`
}

// ReadRecords loads a stream of records from a local, HTTP or S3 path
func ReadRecords(path string) ([]Record, error) {
	var records []Record
	err := serialization.Decode(path, func(r *Record) {
		records = append(records, *r)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error reading records")
	}
	return records, nil
}

// WriteRecords writes records as a stream that ReadRecords can read back
func WriteRecords(path string, records []Record) (err error) {
	enc, err := serialization.NewEncoder(path)
	if err != nil {
		return errors.Wrapf(err, "error creating %s", path)
	}
	defer errors.Defer(&err, enc.Close)

	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return errors.Wrapf(err, "error writing record %s", r.ID)
		}
	}
	return nil
}
