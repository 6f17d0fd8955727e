package preprocess

import (
	"runtime"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/workerpool"
)

// Options controls how records are turned into examples
type Options struct {
	// MsgLength is the number of words messages are padded or truncated to
	MsgLength int
	Layout    Layout
	// Workers tokenizing records in parallel, defaults to the number of CPUs
	Workers int
}

// Example is one preprocessed commit
type Example struct {
	ID        string
	Label     float64
	Message   []int
	MsgLabels []float64
	// Added and Removed hold Layout.Size() ids each
	Added   []int
	Removed []int
}

// Dataset is a list of examples sharing a dictionary and layout
type Dataset struct {
	Examples []Example
	Dict     Dictionary
	Layout   Layout
	// padding is the encoding of a side without hunks, used to fill partial batches
	padding []int
}

// LoadTrain reads the train and test splits, concatenated in that order, and requires
// every record to carry a 0/1 label.
func LoadTrain(trainPath, testPath, dictPath string, tok Tokenizer, opts Options) (*Dataset, error) {
	train, err := ReadRecords(trainPath)
	if err != nil {
		return nil, err
	}
	test, err := ReadRecords(testPath)
	if err != nil {
		return nil, err
	}
	records := append(train, test...)
	for _, r := range records {
		if r.Label != 0 && r.Label != 1 {
			return nil, errors.Errorf("record %s has label %d, expected 0 or 1", r.ID, r.Label)
		}
	}

	dict, err := LoadDictionary(dictPath)
	if err != nil {
		return nil, err
	}
	return NewDataset(records, dict, tok, opts)
}

// LoadPredict reads a single split; labels are kept as given but not required
func LoadPredict(path, dictPath string, tok Tokenizer, opts Options) (*Dataset, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}
	dict, err := LoadDictionary(dictPath)
	if err != nil {
		return nil, err
	}
	return NewDataset(records, dict, tok, opts)
}

// NewDataset pads and maps messages and tokenizes both sides of every record
func NewDataset(records []Record, dict Dictionary, tok Tokenizer, opts Options) (*Dataset, error) {
	if err := opts.Layout.Validate(); err != nil {
		return nil, err
	}
	if opts.MsgLength <= 0 {
		return nil, errors.Errorf("message length must be positive, got %d", opts.MsgLength)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	examples := make([]Example, len(records))
	jobs := make([]workerpool.Job, 0, len(records))
	for i := range records {
		i := i
		jobs = append(jobs, func() error {
			ex, err := newExample(records[i], dict, tok, opts)
			if err != nil {
				return errors.Wrapf(err, "record %s", records[i].ID)
			}
			examples[i] = ex
			return nil
		})
	}

	pool := workerpool.New(workers)
	defer pool.Stop()
	pool.Add(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}

	return &Dataset{
		Examples: examples,
		Dict:     dict,
		Layout:   opts.Layout,
		padding:  opts.Layout.Encode(tok, nil, Added),
	}, nil
}

func newExample(r Record, dict Dictionary, tok Tokenizer, opts Options) (Example, error) {
	msg, err := MapMessage(PadMessage(r.Message, opts.MsgLength), dict.Msg)
	if err != nil {
		return Example{}, err
	}
	labels, err := MultiHotLabels(msg, len(dict.Msg))
	if err != nil {
		return Example{}, err
	}
	return Example{
		ID:        r.ID,
		Label:     float64(r.Label),
		Message:   msg,
		MsgLabels: labels,
		Added:     opts.Layout.Encode(tok, r.Hunks, Added),
		Removed:   opts.Layout.Encode(tok, r.Hunks, Removed),
	}, nil
}

// Len is the number of examples
func (d *Dataset) Len() int {
	return len(d.Examples)
}
