package cc2ftr

import (
	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// CommitInput holds the token ids of one commit side for a whole batch, laid out as
// [batch, hunk, line, token] in a single row-major buffer.
type CommitInput struct {
	batch, hunks, lines, tokens int
	ids                         []int
}

// NewCommitInput flattens nested ids; every commit must have the same number of hunks,
// every hunk the same number of lines and every line the same number of tokens.
func NewCommitInput(ids [][][][]int) (CommitInput, error) {
	if len(ids) == 0 {
		return CommitInput{}, errors.InvalidInputf("commit input", "empty batch")
	}
	hunks := len(ids[0])
	var lines, tokens int
	if hunks > 0 {
		lines = len(ids[0][0])
		if lines > 0 {
			tokens = len(ids[0][0][0])
		}
	}

	buf := make([]int, 0, len(ids)*hunks*lines*tokens)
	for b, commit := range ids {
		if len(commit) != hunks {
			return CommitInput{}, errors.Shapef("commit input", "commit %d has %d hunks, commit 0 has %d", b, len(commit), hunks)
		}
		for h, hunk := range commit {
			if len(hunk) != lines {
				return CommitInput{}, errors.Shapef("commit input", "commit %d hunk %d has %d lines, expected %d", b, h, len(hunk), lines)
			}
			for l, line := range hunk {
				if len(line) != tokens {
					return CommitInput{}, errors.Shapef("commit input", "commit %d hunk %d line %d has %d tokens, expected %d", b, h, l, len(line), tokens)
				}
				buf = append(buf, line...)
			}
		}
	}
	return NewCommitInputFromBuffer(len(ids), hunks, lines, tokens, buf)
}

// NewCommitInputFromBuffer wraps an existing row-major buffer without copying
func NewCommitInputFromBuffer(batch, hunks, lines, tokens int, ids []int) (CommitInput, error) {
	if batch <= 0 {
		return CommitInput{}, errors.InvalidInputf("commit input", "empty batch")
	}
	if hunks <= 0 || lines <= 0 || tokens <= 0 {
		return CommitInput{}, errors.InvalidInputf("commit input", "empty commit: %d hunks, %d lines, %d tokens", hunks, lines, tokens)
	}
	if len(ids) != batch*hunks*lines*tokens {
		return CommitInput{}, errors.Shapef("commit input", "buffer of %d ids for %dx%dx%dx%d", len(ids), batch, hunks, lines, tokens)
	}
	return CommitInput{batch: batch, hunks: hunks, lines: lines, tokens: tokens, ids: ids}, nil
}

// Dims returns the four dimensions of the input
func (c CommitInput) Dims() (batch, hunks, lines, tokens int) {
	return c.batch, c.hunks, c.lines, c.tokens
}

// Line returns the tokens of commit b at (hunk, line); the slice aliases the buffer
func (c CommitInput) Line(b, hunk, line int) []int {
	start := ((b*c.hunks+hunk)*c.lines + line) * c.tokens
	return c.ids[start : start+c.tokens]
}

// LineBatch gathers the tokens at (hunk, line) for every commit in the batch
func (c CommitInput) LineBatch(hunk, line int) [][]int {
	out := make([][]int, c.batch)
	for b := range out {
		out[b] = c.Line(b, hunk, line)
	}
	return out
}

// WithHunkOrder returns a copy of the input whose hunks are permuted: hunk i of the
// result is hunk order[i] of c.
func (c CommitInput) WithHunkOrder(order []int) (CommitInput, error) {
	if len(order) != c.hunks {
		return CommitInput{}, errors.Shapef("commit input", "permutation of %d hunks for %d", len(order), c.hunks)
	}
	seen := make(map[int]bool, len(order))
	for _, h := range order {
		if h < 0 || h >= c.hunks || seen[h] {
			return CommitInput{}, errors.InvalidInputf("commit input", "invalid hunk permutation %v", order)
		}
		seen[h] = true
	}

	ids := make([]int, 0, len(c.ids))
	for b := 0; b < c.batch; b++ {
		for _, h := range order {
			for l := 0; l < c.lines; l++ {
				ids = append(ids, c.Line(b, h, l)...)
			}
		}
	}
	return NewCommitInputFromBuffer(c.batch, c.hunks, c.lines, c.tokens, ids)
}
