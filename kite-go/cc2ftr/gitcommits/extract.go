// Package gitcommits reads commit records from a local git repository
package gitcommits

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/kiteco/cc2ftr/kite-go/cc2ftr/preprocess"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

// Options for Extract
type Options struct {
	// Revision to walk history from, HEAD if empty
	Revision string
	// MaxCommits stops the walk after this many records, 0 for no limit
	MaxCommits int
	// MaxChangesPerCommit skips commits touching more files, 0 for no limit
	MaxChangesPerCommit int
}

// Extract walks the history of the repository at path, newest first, and returns one
// record per non-merge commit that changes at least one text line. Records carry the
// commit hash as ID and a zero label.
func Extract(ctx context.Context, path string, opts Options) ([]preprocess.Record, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening repository %s", path)
	}

	rev := opts.Revision
	if rev == "" {
		rev = "HEAD"
	}
	from, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, errors.Wrapf(err, "error resolving %s", rev)
	}

	commits, err := repo.Log(&git.LogOptions{
		From:  *from,
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error reading log")
	}
	defer commits.Close()

	var records []preprocess.Record
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.MaxCommits > 0 && len(records) >= opts.MaxCommits {
			return storer.ErrStop
		}
		if c.NumParents() > 1 {
			// skip merge commits
			return nil
		}

		hunks, err := commitHunks(ctx, c, opts.MaxChangesPerCommit)
		if err != nil {
			return errors.Wrapf(err, "commit %s", c.Hash)
		}
		if len(hunks) == 0 {
			return nil
		}
		records = append(records, preprocess.Record{
			ID:      c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			Hunks:   hunks,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// commitHunks diffs c against its parent, or against an empty tree for a root commit
func commitHunks(ctx context.Context, c *object.Commit, maxChanges int) ([]preprocess.Hunk, error) {
	to, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var from *object.Tree
	if c.NumParents() == 1 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if from, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, from, to, &object.DiffTreeOptions{})
	if err != nil {
		return nil, err
	}
	if maxChanges > 0 && len(changes) > maxChanges {
		return nil, nil
	}

	var hunks []preprocess.Hunk
	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before, after, err := changeContents(change)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", change)
		}
		hunks = append(hunks, preprocess.HunksFromContents(before, after)...)
	}
	return hunks, nil
}

// changeContents returns both sides of a changed file, empty for a side that does not
// exist. Binary files yield two empty sides.
func changeContents(change *object.Change) (before, after string, err error) {
	from, to, err := change.Files()
	if err != nil {
		return "", "", err
	}
	for _, f := range []*object.File{from, to} {
		if f == nil {
			continue
		}
		if binary, err := f.IsBinary(); err != nil || binary {
			return "", "", err
		}
	}
	if from != nil {
		if before, err = from.Contents(); err != nil {
			return "", "", err
		}
	}
	if to != nil {
		if after, err = to.Contents(); err != nil {
			return "", "", err
		}
	}
	return before, after, nil
}
