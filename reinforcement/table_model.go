package reinforcement

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"cleanbot/atomic_float"

	"gopkg.in/yaml.v3"
)

// TableModel is an exact lookup table of state-action values. Rows are created lazily
// on first touch and hold the initial value until updated, which is indistinguishable
// from a dense table sized to every state-action pair.
//
// Training is single-writer. The mutex only guards the row map so that views may read
// while a trainer inserts rows; the cells themselves are atomic floats.
type TableModel struct {
	indexer *Indexer
	initial float64

	mu   sync.RWMutex
	rows map[Key]*tableRow
}

type tableRow struct {
	obs    Observation
	values []*atomic_float.AtomicFloat64
}

// NewTableModel returns a table for the given observation space and action count with
// every value at zero.
func NewTableModel(space Space, actions int) *TableModel {
	return NewTableModelWithDefault(space, actions, 0)
}

// NewTableModelWithDefault returns a table whose untouched entries read as initial.
func NewTableModelWithDefault(space Space, actions int, initial float64) *TableModel {
	return &TableModel{
		indexer: NewIndexer(space, actions),
		initial: initial,
		rows:    map[Key]*tableRow{},
	}
}

// ActionCount returns the number of actions per state.
func (tm *TableModel) ActionCount() int {
	return tm.indexer.Actions()
}

// Indexer returns the indexer that keys this table.
func (tm *TableModel) Indexer() *Indexer {
	return tm.indexer
}

// Len returns the number of states that have been written.
func (tm *TableModel) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.rows)
}

func (tm *TableModel) lookup(obs Observation) (*tableRow, error) {
	key, err := tm.indexer.Key(obs)
	if err != nil {
		return nil, err
	}
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.rows[key], nil
}

func (tm *TableModel) row(obs Observation) (*tableRow, error) {
	key, err := tm.indexer.Key(obs)
	if err != nil {
		return nil, err
	}

	tm.mu.RLock()
	row, ok := tm.rows[key]
	tm.mu.RUnlock()
	if ok {
		return row, nil
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if row, ok = tm.rows[key]; !ok {
		row = newTableRow(obs.Clone(), tm.indexer.Actions(), tm.initial)
		tm.rows[key] = row
	}
	return row, nil
}

func newTableRow(obs Observation, actions int, initial float64) *tableRow {
	row := &tableRow{
		obs:    obs,
		values: make([]*atomic_float.AtomicFloat64, actions),
	}
	for i := range row.values {
		row.values[i] = atomic_float.NewAtomicFloat64(initial)
	}
	return row
}

// StateValues returns a copy of the action values of obs.
func (tm *TableModel) StateValues(obs Observation) ([]float64, error) {
	row, err := tm.lookup(obs)
	if err != nil {
		return nil, err
	}
	values := make([]float64, tm.indexer.Actions())
	for i := range values {
		if row == nil {
			values[i] = tm.initial
		} else {
			values[i] = row.values[i].AtomicRead()
		}
	}
	return values, nil
}

// ActionValue returns the value of a single state-action pair.
func (tm *TableModel) ActionValue(obs Observation, action Action) (float64, error) {
	if err := tm.checkAction(action); err != nil {
		return 0, err
	}
	row, err := tm.lookup(obs)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return tm.initial, nil
	}
	return row.values[action].AtomicRead(), nil
}

// UpdateActionValue replaces the value of a state-action pair.
func (tm *TableModel) UpdateActionValue(obs Observation, action Action, value float64) error {
	if err := tm.checkAction(action); err != nil {
		return err
	}
	row, err := tm.row(obs)
	if err != nil {
		return err
	}
	row.values[action].AtomicSet(value)
	return nil
}

func (tm *TableModel) checkAction(action Action) error {
	if action < 0 || int(action) >= tm.indexer.Actions() {
		return fmt.Errorf("%w: action %d outside [0, %d)", ErrInvalidShape, action, tm.indexer.Actions())
	}
	return nil
}

// Visit calls fn for every written state with a snapshot of its action values.
// States are visited in key order so output built from them is stable.
func (tm *TableModel) Visit(fn func(obs Observation, values []float64)) {
	tm.mu.RLock()
	keys := make([]Key, 0, len(tm.rows))
	for key := range tm.rows {
		keys = append(keys, key)
	}
	rows := make([]*tableRow, 0, len(keys))
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		rows = append(rows, tm.rows[key])
	}
	tm.mu.RUnlock()

	for _, row := range rows {
		values := make([]float64, len(row.values))
		for i, v := range row.values {
			values[i] = v.AtomicRead()
		}
		fn(row.obs, values)
	}
}

type tableDocument struct {
	Kind    string      `yaml:"kind"`
	Dims    []int       `yaml:"dims"`
	High    int         `yaml:"high"`
	Actions int         `yaml:"actions"`
	Initial float64     `yaml:"initial"`
	Rows    []tableYaml `yaml:"rows"`
}

type tableYaml struct {
	Observation []int     `yaml:"observation,flow"`
	Values      []float64 `yaml:"values,flow"`
}

const tableKind = "table-model"

// Save writes the table as a YAML document.
func (tm *TableModel) Save(w io.Writer) error {
	space := tm.indexer.Space()
	doc := tableDocument{
		Kind:    tableKind,
		Dims:    space.Dims,
		High:    space.High,
		Actions: tm.indexer.Actions(),
		Initial: tm.initial,
	}
	tm.Visit(func(obs Observation, values []float64) {
		doc.Rows = append(doc.Rows, tableYaml{Observation: obs, Values: values})
	})

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("save table model: %w", err)
	}
	return nil
}

// LoadTableModel reads a table written by Save.
func LoadTableModel(r io.Reader) (*TableModel, error) {
	doc := tableDocument{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("load table model: %w", err)
	}
	if doc.Kind != tableKind {
		return nil, fmt.Errorf("load table model: unexpected kind %q", doc.Kind)
	}

	tm := NewTableModelWithDefault(Space{Dims: doc.Dims, High: doc.High}, doc.Actions, doc.Initial)
	for _, row := range doc.Rows {
		if len(row.Values) != doc.Actions {
			return nil, fmt.Errorf("load table model: %w: row has %d values, want %d",
				ErrInvalidShape, len(row.Values), doc.Actions)
		}
		for action, val := range row.Values {
			if err := tm.UpdateActionValue(Observation(row.Observation), Action(action), val); err != nil {
				return nil, fmt.Errorf("load table model: %w", err)
			}
		}
	}
	return tm, nil
}
