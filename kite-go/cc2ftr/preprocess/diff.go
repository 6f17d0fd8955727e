package preprocess

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// HunksFromContents diffs two versions of a file line by line. Every run of deletions
// and insertions between unchanged lines becomes one hunk; lines are trimmed and
// blank lines dropped.
func HunksFromContents(before, after string) []Hunk {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var hunks []Hunk
	var cur Hunk
	flush := func() {
		if len(cur.Added) > 0 || len(cur.Removed) > 0 {
			hunks = append(hunks, cur)
		}
		cur = Hunk{}
	}

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
		case diffmatchpatch.DiffDelete:
			cur.Removed = append(cur.Removed, CodeLines(d.Text)...)
		case diffmatchpatch.DiffInsert:
			cur.Added = append(cur.Added, CodeLines(d.Text)...)
		}
	}
	flush()
	return hunks
}

// CodeLines splits text into trimmed, non-blank lines
func CodeLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
