package preprocess

import (
	"strings"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// PadMessage truncates msg to length words, or pads it with NullToken up to length
func PadMessage(msg string, length int) string {
	words := strings.Fields(msg)
	if len(words) > length {
		words = words[:length]
	}
	for len(words) < length {
		words = append(words, NullToken)
	}
	return strings.Join(words, " ")
}

// MapMessage looks up the lower-cased words of a padded message; unknown words map to
// the NullToken id.
func MapMessage(padded string, vocab map[string]int) ([]int, error) {
	null, ok := vocab[NullToken]
	if !ok {
		return nil, errors.Errorf("message vocabulary has no %s entry", NullToken)
	}
	words := strings.Fields(padded)
	ids := make([]int, len(words))
	for i, w := range words {
		id, ok := vocab[strings.ToLower(w)]
		if !ok {
			id = null
		}
		ids[i] = id
	}
	return ids, nil
}

// MultiHotLabels sets a 1 at every id present in ids
func MultiHotLabels(ids []int, size int) ([]float64, error) {
	labels := make([]float64, size)
	for _, id := range ids {
		if id < 0 || id >= size {
			return nil, errors.InvalidInputf("multi-hot labels", "id %d outside vocabulary of %d", id, size)
		}
		labels[id] = 1
	}
	return labels, nil
}
