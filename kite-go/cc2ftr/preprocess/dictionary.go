package preprocess

import (
	"sort"
	"strings"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/serialization"
)

// NullToken pads messages and stands in for unknown words
const NullToken = "<NULL>"

// Dictionary maps message words and code tokens to ids
type Dictionary struct {
	Msg  map[string]int `json:"msg" yaml:"msg"`
	Code map[string]int `json:"code" yaml:"code"`
}

// BuildDictionary counts lower-cased message words and whitespace separated code tokens
// across records. Ids are assigned by decreasing frequency, ties broken alphabetically,
// after NullToken which is always 0. A positive max caps the size of a vocabulary,
// NullToken included.
func BuildDictionary(records []Record, maxMsg, maxCode int) Dictionary {
	msg := make(map[string]int)
	code := make(map[string]int)
	for _, r := range records {
		for _, w := range strings.Fields(r.Message) {
			msg[strings.ToLower(w)]++
		}
		for _, h := range r.Hunks {
			for _, s := range []Side{Added, Removed} {
				for _, line := range h.Lines(s) {
					for _, tok := range strings.Fields(line) {
						code[tok]++
					}
				}
			}
		}
	}
	return Dictionary{
		Msg:  vocabulary(msg, maxMsg),
		Code: vocabulary(code, maxCode),
	}
}

func vocabulary(counts map[string]int, max int) map[string]int {
	delete(counts, NullToken)
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if max > 0 && len(words) > max-1 {
		words = words[:max-1]
	}

	vocab := map[string]int{NullToken: 0}
	for i, w := range words {
		vocab[w] = i + 1
	}
	return vocab
}

// LoadDictionary reads a dictionary file
func LoadDictionary(path string) (Dictionary, error) {
	var d Dictionary
	if err := serialization.Decode(path, &d); err != nil {
		return Dictionary{}, errors.Wrapf(err, "error loading dictionary")
	}
	if _, ok := d.Msg[NullToken]; !ok {
		return Dictionary{}, errors.Errorf("dictionary %s has no %s message entry", path, NullToken)
	}
	return d, nil
}

// Save writes the dictionary to path
func (d Dictionary) Save(path string) error {
	return errors.WrapfOrNil(serialization.Encode(path, d), "error saving dictionary")
}
