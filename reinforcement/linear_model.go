package reinforcement

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Defaults for the linear approximator.
const (
	DefaultBatchSize    = 128
	DefaultEpochs       = 60
	DefaultLearningRate = 0.05
)

// LinearModel approximates the action-value function with one linear unit per action over
// a one-hot encoding of the observation: a feature for every (element, value) pair plus a bias.
//
// Updates are collected until BatchSize of them are pending, and then the weights are fitted
// to them for Epochs passes of gradient descent on the squared error. Until that flush,
// reads do not reflect pending updates.
type LinearModel struct {
	indexer *Indexer

	BatchSize    int
	Epochs       int
	LearningRate float64

	features int
	weights  *mat.Dense // actions x features

	pending int
	xs      *mat.Dense // BatchSize x features
	ys      *mat.Dense // BatchSize x actions
}

// NewLinearModel returns a zero-weight linear model for the space and action count.
func NewLinearModel(space Space, actions int, batchSize int) *LinearModel {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	features := space.Size()*(space.High+1) + 1
	return &LinearModel{
		indexer:      NewIndexer(space, actions),
		BatchSize:    batchSize,
		Epochs:       DefaultEpochs,
		LearningRate: DefaultLearningRate,
		features:     features,
		weights:      mat.NewDense(actions, features, nil),
		xs:           mat.NewDense(batchSize, features, nil),
		ys:           mat.NewDense(batchSize, actions, nil),
	}
}

// ActionCount returns the number of actions.
func (lm *LinearModel) ActionCount() int {
	return lm.indexer.Actions()
}

// Pending returns the number of updates collected since the last fit.
func (lm *LinearModel) Pending() int {
	return lm.pending
}

// encode writes the one-hot features of obs into dst, which must have lm.features elements.
func (lm *LinearModel) encode(obs Observation, dst []float64) error {
	if err := lm.indexer.Validate(obs); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 0
	}
	stride := lm.indexer.Space().High + 1
	for i, v := range obs {
		dst[i*stride+v] = 1
	}
	dst[len(dst)-1] = 1
	return nil
}

// StateValues predicts the value of every action in obs.
func (lm *LinearModel) StateValues(obs Observation) ([]float64, error) {
	x := make([]float64, lm.features)
	if err := lm.encode(obs, x); err != nil {
		return nil, err
	}
	var out mat.VecDense
	out.MulVec(lm.weights, mat.NewVecDense(lm.features, x))
	return mat.Col(nil, 0, &out), nil
}

// ActionValue predicts the value of a single action in obs.
func (lm *LinearModel) ActionValue(obs Observation, action Action) (float64, error) {
	if action < 0 || int(action) >= lm.ActionCount() {
		return 0, fmt.Errorf("%w: action %d outside [0, %d)", ErrInvalidShape, action, lm.ActionCount())
	}
	values, err := lm.StateValues(obs)
	if err != nil {
		return 0, err
	}
	return values[action], nil
}

// UpdateActionValue queues a training target: the current predictions for obs with the
// given action's value replaced. The weights are fitted once the batch is full.
func (lm *LinearModel) UpdateActionValue(obs Observation, action Action, value float64) error {
	targets, err := lm.StateValues(obs)
	if err != nil {
		return err
	}
	if action < 0 || int(action) >= len(targets) {
		return fmt.Errorf("%w: action %d outside [0, %d)", ErrInvalidShape, action, len(targets))
	}
	targets[action] = value

	// encode cannot fail here, StateValues already validated obs.
	_ = lm.encode(obs, lm.xs.RawRowView(lm.pending))
	lm.ys.SetRow(lm.pending, targets)
	lm.pending++

	if lm.pending == lm.BatchSize {
		lm.Flush()
	}
	return nil
}

// Flush fits the weights to the pending updates and clears them.
func (lm *LinearModel) Flush() {
	if lm.pending == 0 {
		return
	}
	n := lm.pending
	xs := lm.xs.Slice(0, n, 0, lm.features)
	ys := lm.ys.Slice(0, n, 0, lm.ActionCount())

	var residual, grad mat.Dense
	for epoch := 0; epoch < lm.Epochs; epoch++ {
		residual.Mul(xs, lm.weights.T())
		residual.Sub(&residual, ys)
		grad.Mul(residual.T(), xs)
		grad.Scale(lm.LearningRate/float64(n), &grad)
		lm.weights.Sub(lm.weights, &grad)
	}
	lm.pending = 0
}

type linearDocument struct {
	Kind         string      `yaml:"kind"`
	Dims         []int       `yaml:"dims"`
	High         int         `yaml:"high"`
	Actions      int         `yaml:"actions"`
	BatchSize    int         `yaml:"batchSize"`
	Epochs       int         `yaml:"epochs"`
	LearningRate float64     `yaml:"learningRate"`
	Weights      [][]float64 `yaml:"weights"`
}

const linearKind = "linear-model"

// Save writes the hyper-parameters and weights as YAML. Pending updates are not saved.
func (lm *LinearModel) Save(w io.Writer) error {
	space := lm.indexer.Space()
	doc := linearDocument{
		Kind:         linearKind,
		Dims:         space.Dims,
		High:         space.High,
		Actions:      lm.ActionCount(),
		BatchSize:    lm.BatchSize,
		Epochs:       lm.Epochs,
		LearningRate: lm.LearningRate,
	}
	for a := 0; a < lm.ActionCount(); a++ {
		doc.Weights = append(doc.Weights, mat.Row(nil, a, lm.weights))
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("save linear model: %w", err)
	}
	return nil
}

// LoadLinearModel reads a model written by Save.
func LoadLinearModel(r io.Reader) (*LinearModel, error) {
	doc := linearDocument{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("load linear model: %w", err)
	}
	if doc.Kind != linearKind {
		return nil, fmt.Errorf("load linear model: unexpected kind %q", doc.Kind)
	}
	lm := NewLinearModel(Space{Dims: doc.Dims, High: doc.High}, doc.Actions, doc.BatchSize)
	lm.Epochs = doc.Epochs
	lm.LearningRate = doc.LearningRate
	if len(doc.Weights) != doc.Actions {
		return nil, fmt.Errorf("load linear model: %w: %d weight rows, want %d",
			ErrInvalidShape, len(doc.Weights), doc.Actions)
	}
	for a, row := range doc.Weights {
		if len(row) != lm.features {
			return nil, fmt.Errorf("load linear model: %w: %d weights, want %d",
				ErrInvalidShape, len(row), lm.features)
		}
		lm.weights.SetRow(a, row)
	}
	return lm, nil
}
