// Package expreplay implements a bounded experience replay buffer for
// transitions of agent-environment interaction
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/curiogrid/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Config implements a specific configuration of a replay buffer
type Config struct {
	Capacity int
}

// Create creates and returns the replay buffer with the specified Config
func (c Config) Create(featureSize int, seed uint64) (*Buffer, error) {
	return New(c.Capacity, featureSize, seed)
}

// Buffer is a ring buffer of transitions. Once full, each Add overwrites
// the oldest transition. Transitions are stored flattened so that sampling
// a batch only copies float64 slices.
type Buffer struct {
	stateCache     []float64
	nextStateCache []float64
	actionCache    []int
	rewardCache    []float64

	head   int // Index at which the next transition is written
	length int

	capacity    int
	featureSize int

	rng *rand.Rand

	// swapped holds the displaced entries of a sparse Fisher-Yates
	// shuffle, reused between calls to Sample
	swapped map[int]int
}

// New creates and returns a new Buffer holding at most capacity
// transitions whose observations have featureSize entries. The seed
// determines the sequence of batches returned by Sample.
func New(capacity, featureSize int, seed uint64) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1, got %v", capacity)
	}
	if featureSize < 1 {
		return nil, fmt.Errorf("new: feature size must be >= 1, got %v",
			featureSize)
	}

	return &Buffer{
		stateCache:     make([]float64, capacity*featureSize),
		nextStateCache: make([]float64, capacity*featureSize),
		actionCache:    make([]int, capacity),
		rewardCache:    make([]float64, capacity),
		capacity:       capacity,
		featureSize:    featureSize,
		rng:            rand.New(rand.NewSource(seed)),
		swapped:        make(map[int]int),
	}, nil
}

// Add adds a transition to the buffer, evicting the oldest transition if
// the buffer is full
func (b *Buffer) Add(t timestep.Transition) error {
	if t.State == nil || t.NextState == nil ||
		t.State.Len() != b.featureSize || t.NextState.Len() != b.featureSize {
		return &ExpReplayError{
			Op:  "add",
			Err: fmt.Errorf("%w: want(%v)", errFeatureSize, b.featureSize),
		}
	}

	index := b.head
	start := index * b.featureSize
	for i := 0; i < b.featureSize; i++ {
		b.stateCache[start+i] = t.State.AtVec(i)
		b.nextStateCache[start+i] = t.NextState.AtVec(i)
	}
	b.actionCache[index] = t.Action
	b.rewardCache[index] = t.Reward

	b.head = (b.head + 1) % b.capacity
	if b.length < b.capacity {
		b.length++
	}
	return nil
}

// physical converts the logical index i, counted from the oldest stored
// transition, to an index into the caches
func (b *Buffer) physical(i int) int {
	oldest := (b.head - b.length + b.capacity) % b.capacity
	return (oldest + i) % b.capacity
}

// Sample returns min(n, Len()) distinct transitions drawn uniformly at
// random without replacement. Sampling an empty buffer returns an empty
// batch.
func (b *Buffer) Sample(n int) (Batch, error) {
	if n < 0 {
		return Batch{}, &ExpReplayError{
			Op:  "sample",
			Err: fmt.Errorf("%w: %v", errBatchSize, n),
		}
	}
	if n > b.length {
		n = b.length
	}

	batch := newBatch(n, b.featureSize)
	for i := 0; i < n; i++ {
		// Partial Fisher-Yates over the logical indices [0, length),
		// touching only the k entries that are swapped
		j := i + b.rng.Intn(b.length-i)
		chosen := b.lookup(j)
		b.swapped[j] = b.lookup(i)

		b.copyInto(&batch, i, b.physical(chosen))
	}

	for k := range b.swapped {
		delete(b.swapped, k)
	}
	return batch, nil
}

func (b *Buffer) lookup(i int) int {
	if v, ok := b.swapped[i]; ok {
		return v
	}
	return i
}

// copyInto copies the transition at cache index index into row row of
// batch
func (b *Buffer) copyInto(batch *Batch, row, index int) {
	src := index * b.featureSize
	dst := row * b.featureSize
	copy(batch.States[dst:dst+b.featureSize],
		b.stateCache[src:src+b.featureSize])
	copy(batch.NextStates[dst:dst+b.featureSize],
		b.nextStateCache[src:src+b.featureSize])
	batch.Actions[row] = b.actionCache[index]
	batch.Rewards[row] = b.rewardCache[index]
}

// At returns the i-th oldest transition in the buffer
func (b *Buffer) At(i int) (timestep.Transition, error) {
	if i < 0 || i >= b.length {
		return timestep.Transition{}, &ExpReplayError{
			Op:  "at",
			Err: fmt.Errorf("%w: %v not in [0, %v)", errIndex, i, b.length),
		}
	}

	index := b.physical(i)
	start := index * b.featureSize
	state := make([]float64, b.featureSize)
	nextState := make([]float64, b.featureSize)
	copy(state, b.stateCache[start:start+b.featureSize])
	copy(nextState, b.nextStateCache[start:start+b.featureSize])

	return timestep.Transition{
		State:     mat.NewVecDense(b.featureSize, state),
		Action:    b.actionCache[index],
		Reward:    b.rewardCache[index],
		NextState: mat.NewVecDense(b.featureSize, nextState),
	}, nil
}

// Len returns the number of transitions in the buffer
func (b *Buffer) Len() int {
	return b.length
}

// Capacity returns the maximum number of transitions in the buffer
func (b *Buffer) Capacity() int {
	return b.capacity
}

// FeatureSize returns the length of the observations stored
func (b *Buffer) FeatureSize() int {
	return b.featureSize
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer | Len: %v  |  Capacity: %v  |  Features: %v",
		b.length, b.capacity, b.featureSize)
}
