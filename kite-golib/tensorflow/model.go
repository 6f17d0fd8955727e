package tensorflow

import (
	tf "github.com/kiteco/tensorflow/tensorflow/go"

	"github.com/kiteco/cc2ftr/kite-golib/errors"
	"github.com/kiteco/cc2ftr/kite-golib/fileutil"
	"github.com/kiteco/cc2ftr/kite-golib/lazy"
)

// Model wraps a frozen Tensorflow graph (a GraphDef with variables replaced by
// constants). The graph and session are created on first use.
type Model struct {
	*lazy.Loader
	session *tf.Session
	graph   *tf.Graph
}

// NewModel prepares a model read from a local, HTTP or S3 path. Nothing is read until
// the first Run.
func NewModel(path string) *Model {
	m := &Model{}

	load := func() error {
		data, err := fileutil.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "error reading graph definition")
		}

		graph := tf.NewGraph()
		if err := graph.Import(data, ""); err != nil {
			return errors.Wrapf(err, "error importing graph")
		}

		sess, err := tf.NewSession(graph, nil)
		if err != nil {
			graph.Delete()
			return errors.Wrapf(err, "error creating session")
		}

		m.graph = graph
		m.session = sess
		return nil
	}

	unload := func() {
		if m.session != nil {
			m.session.Close()
		}
		if m.graph != nil {
			m.graph.Delete()
		}
		m.session = nil
		m.graph = nil
	}

	m.Loader = lazy.NewLoader(load, unload)
	return m
}

// Run feeds values to the named operations and returns the first output of every
// fetched operation, keyed by name.
func (m *Model) Run(feeds map[string]interface{}, fetches []string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := m.Loader.Do(func() error {
		var err error
		out, err = m.run(feeds, fetches)
		return err
	})
	return out, err
}

func (m *Model) run(feeds map[string]interface{}, fetches []string) (map[string]interface{}, error) {
	tfFeeds := make(map[tf.Output]*tf.Tensor)
	// Cleanup tensors
	defer func() {
		for _, t := range tfFeeds {
			t.Delete()
		}
	}()

	for op, val := range feeds {
		out, err := m.tfOut(op)
		if err != nil {
			return nil, err
		}
		tensor, err := tf.NewTensor(val)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating tensor for %s", op)
		}
		tfFeeds[out] = tensor
	}

	var tfFetches []tf.Output
	for _, op := range fetches {
		out, err := m.tfOut(op)
		if err != nil {
			return nil, err
		}
		tfFetches = append(tfFetches, out)
	}

	res, err := m.session.Run(tfFeeds, tfFetches, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "error running model")
	}
	defer func() {
		for _, t := range res {
			t.Delete()
		}
	}()

	out := make(map[string]interface{}, len(fetches))
	for i, op := range fetches {
		out[op] = res[i].Value()
	}
	return out, nil
}

func (m *Model) tfOut(opName string) (tf.Output, error) {
	op := m.graph.Operation(opName)
	if op == nil {
		return tf.Output{}, errors.Errorf("could not find op with name: %s", opName)
	}
	return op.Output(0), nil
}
