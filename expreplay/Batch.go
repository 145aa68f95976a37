package expreplay

// Batch is a batch of transitions sampled from a Buffer. States and
// NextStates are stored row-major, one row of FeatureSize entries per
// transition.
type Batch struct {
	States      []float64
	Actions     []int
	Rewards     []float64
	NextStates  []float64
	FeatureSize int
}

func newBatch(n, featureSize int) Batch {
	return Batch{
		States:      make([]float64, n*featureSize),
		Actions:     make([]int, n),
		Rewards:     make([]float64, n),
		NextStates:  make([]float64, n*featureSize),
		FeatureSize: featureSize,
	}
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.Actions)
}

// OneHotActions returns the batch actions one-hot encoded over numActions
// actions, row-major
func (b Batch) OneHotActions(numActions int) []float64 {
	oneHot := make([]float64, b.Len()*numActions)
	for i, a := range b.Actions {
		oneHot[i*numActions+a] = 1.0
	}
	return oneHot
}
