package main

import (
	"context"
	"fmt"

	humanize "github.com/dustin/go-humanize"

	"github.com/kiteco/cc2ftr/kite-go/cc2ftr/gitcommits"
	"github.com/kiteco/cc2ftr/kite-go/cc2ftr/preprocess"
	"github.com/kiteco/cc2ftr/kite-golib/cmdline"
)

var gitCommitsCmd = cmdline.Command{
	Name:     "git-commits",
	Synopsis: "extract commit records from a local git repository",
	Args:     &gitCommitsArgs{},
}

type gitCommitsArgs struct {
	Repo       string `arg:"required" help:"path of the repository"`
	Out        string `arg:"required" help:"record file, the extension picks the encoding"`
	Revision   string `help:"revision to walk history from, HEAD by default"`
	MaxCommits int    `help:"stop after this many commits"`
	MaxChanges int    `help:"skip commits touching more files"`
	Label      int    `help:"label assigned to every record"`
}

func (args *gitCommitsArgs) Validate() error {
	if args.Label != 0 && args.Label != 1 {
		return fmt.Errorf("label must be 0 or 1, got %d", args.Label)
	}
	return nil
}

func (args *gitCommitsArgs) Handle(ctx context.Context) error {
	records, err := gitcommits.Extract(ctx, args.Repo, gitcommits.Options{
		Revision:            args.Revision,
		MaxCommits:          args.MaxCommits,
		MaxChangesPerCommit: args.MaxChanges,
	})
	if err != nil {
		return err
	}
	for i := range records {
		records[i].Label = args.Label
	}
	if err := preprocess.WriteRecords(args.Out, records); err != nil {
		return err
	}
	logger.Infow("wrote records", "count", humanize.Comma(int64(len(records))), "out", args.Out)
	return nil
}

var buildDictionaryCmd = cmdline.Command{
	Name:     "build-dictionary",
	Synopsis: "build message and code vocabularies from record files",
	Args:     &buildDictionaryArgs{},
}

type buildDictionaryArgs struct {
	Records []string `arg:"positional,required" help:"record files"`
	Out     string   `arg:"required" help:"dictionary file"`
	MaxMsg  int      `help:"largest message vocabulary, 0 for no limit"`
	MaxCode int      `help:"largest code vocabulary, 0 for no limit"`
}

func (args *buildDictionaryArgs) Handle(ctx context.Context) error {
	var records []preprocess.Record
	for _, path := range args.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		rs, err := preprocess.ReadRecords(path)
		if err != nil {
			return err
		}
		records = append(records, rs...)
	}

	dict := preprocess.BuildDictionary(records, args.MaxMsg, args.MaxCode)
	if err := dict.Save(args.Out); err != nil {
		return err
	}
	logger.Infow("wrote dictionary",
		"records", humanize.Comma(int64(len(records))),
		"msg", humanize.Comma(int64(len(dict.Msg))),
		"code", humanize.Comma(int64(len(dict.Code))),
		"out", args.Out)
	return nil
}
