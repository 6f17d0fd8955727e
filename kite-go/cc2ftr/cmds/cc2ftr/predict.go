package main

import (
	"context"

	humanize "github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"

	"github.com/kiteco/cc2ftr/kite-golib/cmdline"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

var predictCmd = cmdline.Command{
	Name:     "predict",
	Synopsis: "score commits with a trained model",
	Args:     &predictArgs{ModelArgs: defaultModelArgs(), Threshold: 0.5},
}

type predictArgs struct {
	ModelArgs
	Threshold float64 `help:"probability at which a commit counts as positive"`
}

type prediction struct {
	ID    string  `json:"id"`
	Label float64 `json:"label"`
	Prob  float64 `json:"prob"`
}

func (args *predictArgs) Handle(ctx context.Context) error {
	r, err := newRunner(args.ModelArgs)
	if err != nil {
		return err
	}
	defer r.close()

	var probs []float64
	n, err := writeRows(ctx, r, args.Out, "scoring", forwardProbs, func(id string, label float64, vals []float64) interface{} {
		probs = append(probs, vals[0])
		return prediction{ID: id, Label: label, Prob: vals[0]}
	})
	if err != nil {
		return err
	}

	s, err := summarize(probs, args.Threshold)
	if err != nil {
		return err
	}
	logger.Infow("scored commits",
		"commits", humanize.Comma(int64(n)),
		"positive", humanize.Comma(int64(s.Positive)),
		"mean", s.Mean,
		"median", s.Median,
		"p90", s.P90,
		"out", args.Out)
	return nil
}

// scoreSummary describes the distribution of predicted probabilities
type scoreSummary struct {
	Mean, Median, P90 float64
	Positive          int
}

func summarize(probs []float64, threshold float64) (scoreSummary, error) {
	if len(probs) == 0 {
		return scoreSummary{}, errors.Errorf("no commits were scored")
	}
	var s scoreSummary
	var err error
	if s.Mean, err = stats.Mean(probs); err != nil {
		return scoreSummary{}, err
	}
	if s.Median, err = stats.Median(probs); err != nil {
		return scoreSummary{}, err
	}
	if s.P90, err = stats.Percentile(probs, 90); err != nil {
		return scoreSummary{}, err
	}
	for _, p := range probs {
		if p >= threshold {
			s.Positive++
		}
	}
	return s, nil
}

var extractCmd = cmdline.Command{
	Name:     "extract",
	Synopsis: "write per-commit feature vectors of a trained model",
	Args:     &extractArgs{ModelArgs: defaultModelArgs(), Mode: "diff"},
}

type extractArgs struct {
	ModelArgs
	Mode string `help:"diff for the combined comparison features, embeds for both side vectors"`
}

type features struct {
	ID       string    `json:"id"`
	Label    float64   `json:"label"`
	Features []float64 `json:"features"`
}

func (args *extractArgs) Validate() error {
	if _, err := args.forward(); err != nil {
		return err
	}
	return args.ModelArgs.Validate()
}

func (args *extractArgs) forward() (forwardFunc, error) {
	switch args.Mode {
	case "diff":
		return forwardDiff, nil
	case "embeds":
		return forwardEmbeds, nil
	default:
		return nil, errors.Configf("mode", "unknown mode %q, expected diff or embeds", args.Mode)
	}
}

func (args *extractArgs) Handle(ctx context.Context) error {
	forward, err := args.forward()
	if err != nil {
		return err
	}
	r, err := newRunner(args.ModelArgs)
	if err != nil {
		return err
	}
	defer r.close()

	hp := r.model.HParams()
	width := hp.CombinedWidth()
	if args.Mode == "embeds" {
		width = 2 * hp.EmbedSize
	}

	n, err := writeRows(ctx, r, args.Out, "extracting", forward, func(id string, label float64, vals []float64) interface{} {
		return features{ID: id, Label: label, Features: vals}
	})
	if err != nil {
		return err
	}
	logger.Infow("extracted features",
		"commits", humanize.Comma(int64(n)),
		"mode", args.Mode,
		"width", width,
		"reduction", hp.HunkReduction,
		"out", args.Out)
	return nil
}
