package preprocess

import (
	"strings"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Tokenizer encodes code text into vocabulary ids; *bpe.Encoder implements it
type Tokenizer interface {
	Encode(text string) []int
	CLS() int
	SEP() int
	EOS() int
	PAD() int
}

// Layout describes the padded shape of one commit side. A flat layout holds the whole
// side in a single line of a single hunk.
type Layout struct {
	Flat   bool `json:"flat"`
	Hunks  int  `json:"hunks"`
	Lines  int  `json:"lines"`
	Tokens int  `json:"tokens"`
}

// HierarchicalLayout pads every side to hunks x lines x tokens
func HierarchicalLayout(hunks, lines, tokens int) Layout {
	return Layout{Hunks: hunks, Lines: lines, Tokens: tokens}
}

// FlatLayout pads every side to one sequence of maxLen tokens
func FlatLayout(maxLen int) Layout {
	return Layout{Flat: true, Hunks: 1, Lines: 1, Tokens: maxLen}
}

// Validate checks the layout dimensions
func (l Layout) Validate() error {
	if l.Hunks <= 0 || l.Lines <= 0 || l.Tokens <= 0 {
		return errors.Errorf("layout needs positive dimensions, got %d hunks, %d lines, %d tokens", l.Hunks, l.Lines, l.Tokens)
	}
	if l.Flat && (l.Hunks != 1 || l.Lines != 1) {
		return errors.Errorf("flat layout must have a single hunk and line")
	}
	return nil
}

// Size is the number of ids in one padded side
func (l Layout) Size() int {
	return l.Hunks * l.Lines * l.Tokens
}

// Encode tokenizes one side of a commit into exactly l.Size() ids, row-major in
// (hunk, line, token) order.
func (l Layout) Encode(tok Tokenizer, hunks []Hunk, side Side) []int {
	if l.Flat {
		return padTo(FlatCode(tok, hunks, side), l.Tokens, tok.PAD())
	}

	ids := make([]int, 0, l.Size())
	emptyLine := LineCode(tok, "", l.Tokens)
	for h := 0; h < l.Hunks; h++ {
		var lines []string
		if h < len(hunks) {
			lines = hunks[h].Lines(side)
		}
		for i := 0; i < l.Lines; i++ {
			if i < len(lines) {
				ids = append(ids, LineCode(tok, lines[i], l.Tokens)...)
			} else {
				ids = append(ids, emptyLine...)
			}
		}
	}
	return ids
}

// LineCode encodes one line as [cls] tokens [eos], truncated or padded to length
func LineCode(tok Tokenizer, line string, length int) []int {
	ids := []int{tok.CLS()}
	ids = append(ids, tok.Encode(strings.TrimSpace(line))...)
	ids = append(ids, tok.EOS())
	return padTo(ids, length, tok.PAD())
}

// FlatCode encodes a whole side as [cls] hunk1 [sep] hunk2 [sep] ... [eos], where each
// hunk's lines are joined by spaces. The result is not padded.
func FlatCode(tok Tokenizer, hunks []Hunk, side Side) []int {
	ids := []int{tok.CLS()}
	for _, h := range hunks {
		ids = append(ids, tok.Encode(strings.Join(h.Lines(side), " "))...)
		ids = append(ids, tok.SEP())
	}
	return append(ids, tok.EOS())
}

func padTo(ids []int, length, pad int) []int {
	if len(ids) >= length {
		return ids[:length]
	}
	for len(ids) < length {
		ids = append(ids, pad)
	}
	return ids
}
