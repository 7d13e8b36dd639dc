package reinforcement

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Observation is a row-major flattening of the environment's grid of small non-negative
// integers. Environments hand out fresh slices and nothing downstream mutates them.
type Observation []int

// Clone returns a copy of the observation.
func (obs Observation) Clone() Observation {
	return append(Observation(nil), obs...)
}

// Action identifies one of an environment's discrete actions, 0..n-1.
type Action int

// Space declares the structure of the observations an environment produces:
// the grid dimensions and the largest value any element may take.
type Space struct {
	Dims []int
	High int
}

// Size is the number of elements in an observation of this space.
func (sp Space) Size() int {
	n := 1
	for _, d := range sp.Dims {
		n *= d
	}
	return n
}

// Key is a hashable, injective encoding of an observation or an observation-action pair.
type Key string

// ErrInvalidShape is returned when an observation (or action) does not fit the declared space.
var ErrInvalidShape = errors.New("invalid observation shape")

// Indexer maps observations, and observation-action pairs, to table keys.
type Indexer struct {
	space   Space
	actions int
}

// NewIndexer returns an indexer for the given observation space and action count.
func NewIndexer(space Space, actions int) *Indexer {
	return &Indexer{
		space:   space,
		actions: actions,
	}
}

// Space returns the declared observation space.
func (ix *Indexer) Space() Space {
	return ix.space
}

// Actions returns the number of actions.
func (ix *Indexer) Actions() int {
	return ix.actions
}

// Validate checks that obs matches the declared space.
func (ix *Indexer) Validate(obs Observation) error {
	if len(obs) != ix.space.Size() {
		return fmt.Errorf("%w: got %d elements, want %d", ErrInvalidShape, len(obs), ix.space.Size())
	}
	for i, v := range obs {
		if v < 0 || v > ix.space.High {
			return fmt.Errorf("%w: element %d is %d, outside [0, %d]", ErrInvalidShape, i, v, ix.space.High)
		}
	}
	return nil
}

// Key returns the key of an observation.
func (ix *Indexer) Key(obs Observation) (Key, error) {
	if err := ix.Validate(obs); err != nil {
		return "", err
	}
	return Key(appendElems(make([]byte, 0, len(obs)), obs)), nil
}

// ActionKey returns the key of an observation-action pair.
// Observations have a fixed length, so appending the action keeps the encoding injective.
func (ix *Indexer) ActionKey(obs Observation, action Action) (Key, error) {
	if err := ix.Validate(obs); err != nil {
		return "", err
	}
	if action < 0 || int(action) >= ix.actions {
		return "", fmt.Errorf("%w: action %d outside [0, %d)", ErrInvalidShape, action, ix.actions)
	}
	buf := appendElems(make([]byte, 0, len(obs)+1), obs)
	buf = binary.AppendUvarint(buf, uint64(action))
	return Key(buf), nil
}

// Uvarints are prefix-free, so the concatenation is uniquely decodable.
func appendElems(buf []byte, obs Observation) []byte {
	for _, v := range obs {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	return buf
}
