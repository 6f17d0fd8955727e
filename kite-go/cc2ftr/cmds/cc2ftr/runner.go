package main

import (
	"context"
	"math/rand"

	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"gonum.org/v1/gonum/mat"

	"github.com/kiteco/cc2ftr/kite-go/cc2ftr"
	"github.com/kiteco/cc2ftr/kite-go/cc2ftr/preprocess"
	"github.com/kiteco/cc2ftr/kite-go/cc2ftr/tfencoder"
	"github.com/kiteco/cc2ftr/kite-golib/bpe"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/kitelog"
	"github.com/kiteco/cc2ftr/kite-golib/serialization"
)

// ModelArgs are shared by every command that runs a trained model over records
type ModelArgs struct {
	Checkpoint string `arg:"required" help:"model checkpoint"`
	Dict       string `arg:"required" help:"dictionary file"`
	Vocab      string `arg:"required" help:"BPE code vocabulary, JSON token to id"`
	Records    string `arg:"required" help:"commit records"`
	Out        string `arg:"required" help:"output file, .json for JSON lines"`

	Reduction  string `help:"override the hunk reduction of the checkpoint: mean or attention"`
	MsgLength  int    `help:"words per message"`
	Hunks      int    `help:"hunks per commit side"`
	Lines      int    `help:"lines per hunk"`
	Tokens     int    `help:"tokens per line"`
	FlatLength int    `help:"encode each side as a single sequence of this many tokens"`
	Graph      string `help:"frozen pretrained graph, required for pretrained checkpoints"`
	CacheSize  int    `help:"pooled rows kept for the pretrained encoder"`
	Workers    int    `help:"tokenizing workers, 0 for one per CPU"`
	Shuffle    int64  `help:"visit commits in an order shuffled with this seed, 0 keeps record order"`
}

func defaultModelArgs() ModelArgs {
	return ModelArgs{
		MsgLength: 256,
		Hunks:     8,
		Lines:     10,
		Tokens:    64,
		CacheSize: 1 << 16,
	}
}

func (args *ModelArgs) Validate() error {
	switch cc2ftr.HunkReduction(args.Reduction) {
	case "", cc2ftr.HunkReductionMean, cc2ftr.HunkReductionAttention:
	default:
		return errors.Configf("reduction", "unknown hunk reduction %q", args.Reduction)
	}
	return args.layout().Validate()
}

func (args *ModelArgs) layout() preprocess.Layout {
	if args.FlatLength > 0 {
		return preprocess.FlatLayout(args.FlatLength)
	}
	return preprocess.HierarchicalLayout(args.Hunks, args.Lines, args.Tokens)
}

// runner owns a loaded model and the batches it is run over
type runner struct {
	model     *cc2ftr.Model
	loader    *preprocess.Loader
	durations kitelog.Durations
	cleanup   []func()
}

func newRunner(args ModelArgs) (*runner, error) {
	r := &runner{}

	var model *cc2ftr.Model
	err := r.durations.Time("load model", func() error {
		var err error
		model, err = r.loadModel(args)
		return err
	})
	if err != nil {
		r.close()
		return nil, err
	}
	r.model = model

	var ds *preprocess.Dataset
	err = r.durations.Time("preprocess", func() error {
		tok, err := bpe.NewEncoder(args.Vocab, bpe.DefaultSpecialTokens)
		if err != nil {
			return err
		}
		ds, err = preprocess.LoadPredict(args.Records, args.Dict, tok, preprocess.Options{
			MsgLength: args.MsgLength,
			Layout:    args.layout(),
			Workers:   args.Workers,
		})
		return err
	})
	if err != nil {
		r.close()
		return nil, err
	}

	if r.loader, err = preprocess.NewLoader(ds, model.HParams().BatchSize); err != nil {
		r.close()
		return nil, err
	}
	if args.Shuffle != 0 {
		r.loader.Shuffle(rand.New(rand.NewSource(args.Shuffle)))
	}
	logger.Infow("loaded records", "commits", ds.Len(), "batches", r.loader.Len())
	return r, nil
}

func (r *runner) loadModel(args ModelArgs) (*cc2ftr.Model, error) {
	c, err := cc2ftr.LoadCheckpoint(args.Checkpoint)
	if err != nil {
		return nil, err
	}
	hp := c.HParams
	if args.Reduction != "" {
		hp.HunkReduction = cc2ftr.HunkReduction(args.Reduction)
	}

	var opts []cc2ftr.Option
	if hp.WordMode == cc2ftr.WordModePretrained {
		if args.Graph == "" {
			return nil, errors.Configf("graph", "required for a %s checkpoint", hp.WordMode)
		}
		cfg := tfencoder.DefaultConfig(args.Graph)
		cfg.Width = hp.PretrainedEmbedSize
		enc, err := tfencoder.New(cfg)
		if err != nil {
			return nil, err
		}
		r.cleanup = append(r.cleanup, enc.Unload)

		cached, err := cc2ftr.NewCachedPretrained(enc, args.CacheSize)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cc2ftr.WithPretrained(cached))
	}

	model, err := cc2ftr.NewModel(hp, opts...)
	if err != nil {
		return nil, err
	}
	if err := model.SetParameters(c.Params); err != nil {
		return nil, errors.Wrapf(err, "invalid checkpoint %s", args.Checkpoint)
	}
	return model, nil
}

// each calls f with every batch and the rows the model computed for it. Padding rows
// of the final batch are dropped. It stops between batches once ctx is canceled.
func (r *runner) each(ctx context.Context, desc string, forward forwardFunc, f func(preprocess.Batch, *mat.Dense) error) error {
	var runErr error
	err := tqdm.With(iterators.Interval(0, r.loader.Len()), desc, func(v interface{}) (brk bool) {
		if runErr = ctx.Err(); runErr != nil {
			return true
		}
		b, err := r.loader.Batch(v.(int))
		if err != nil {
			runErr = err
			return true
		}

		var out *mat.Dense
		err = r.durations.Time("forward", func() error {
			var err error
			out, err = forward(r.model, b)
			return err
		})
		if err != nil {
			runErr = errors.Wrapf(err, "batch %d", v.(int))
			return true
		}

		rows := out.Slice(0, b.Size, 0, out.RawMatrix().Cols).(*mat.Dense)
		if runErr = f(b, rows); runErr != nil {
			return true
		}
		return false
	})
	if runErr != nil {
		return runErr
	}
	return err
}

func (r *runner) close() {
	for _, f := range r.cleanup {
		f()
	}
	if len(r.durations) > 0 {
		r.durations.Flush(logger)
	}
}

// forwardFunc runs one batch through the model, returning one row per commit
type forwardFunc func(*cc2ftr.Model, preprocess.Batch) (*mat.Dense, error)

func forwardProbs(m *cc2ftr.Model, b preprocess.Batch) (*mat.Dense, error) {
	probs, err := m.Forward(b.Added, b.Removed, m.InitHidden())
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(probs), 1, probs), nil
}

func forwardDiff(m *cc2ftr.Model, b preprocess.Batch) (*mat.Dense, error) {
	return m.ForwardCommitEmbedsDiff(b.Added, b.Removed, m.InitHidden())
}

func forwardEmbeds(m *cc2ftr.Model, b preprocess.Batch) (*mat.Dense, error) {
	return m.ForwardCommitEmbeds(b.Added, b.Removed, m.InitHidden())
}

// writeRows streams one value per commit to path
func writeRows(ctx context.Context, r *runner, path, desc string, forward forwardFunc, row func(id string, label float64, vals []float64) interface{}) (n int, err error) {
	enc, err := serialization.NewEncoder(path)
	if err != nil {
		return 0, errors.Wrapf(err, "error creating %s", path)
	}
	defer errors.Defer(&err, enc.Close)

	err = r.each(ctx, desc, forward, func(b preprocess.Batch, rows *mat.Dense) error {
		for i := 0; i < b.Size; i++ {
			if err := enc.Encode(row(b.IDs[i], b.Labels[i], mat.Row(nil, i, rows))); err != nil {
				return errors.Wrapf(err, "error writing %s", b.IDs[i])
			}
			n++
		}
		return nil
	})
	return n, err
}
