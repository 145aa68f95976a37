package expreplay

import (
	"testing"

	"github.com/samuelfneumann/curiogrid/timestep"
	"gonum.org/v1/gonum/mat"
)

// transition returns a transition whose features and reward all equal id
func transition(id, featureSize int) timestep.Transition {
	state := mat.NewVecDense(featureSize, nil)
	next := mat.NewVecDense(featureSize, nil)
	for i := 0; i < featureSize; i++ {
		state.SetVec(i, float64(id))
		next.SetVec(i, float64(id)+0.5)
	}
	return timestep.Transition{
		State:     state,
		Action:    id % 4,
		Reward:    float64(id),
		NextState: next,
	}
}

func TestEviction(t *testing.T) {
	const capacity = 3
	b, err := New(capacity, 2, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 4; i++ {
		if err := b.Add(transition(i, 2)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	if b.Len() != capacity {
		t.Fatalf("Len() = %d, want %d", b.Len(), capacity)
	}
	for i, want := range []float64{2, 3, 4} {
		tr, err := b.At(i)
		if err != nil {
			t.Fatalf("at %d: %v", i, err)
		}
		if tr.Reward != want || tr.State.AtVec(1) != want ||
			tr.NextState.AtVec(0) != want+0.5 {
			t.Errorf("At(%d) = %v, want entry %v", i, tr, want)
		}
	}

	if _, err := b.At(capacity); !IsIndexOutOfRange(err) {
		t.Errorf("expected index error, got %v", err)
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	tests := []struct {
		added, capacity, n, want int
	}{
		{0, 5, 3, 0},
		{2, 5, 3, 2},
		{5, 5, 3, 3},
		{8, 5, 5, 5},
		{8, 5, 100, 5},
	}

	for _, test := range tests {
		b, err := New(test.capacity, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < test.added; i++ {
			if err := b.Add(transition(i, 1)); err != nil {
				t.Fatal(err)
			}
		}

		for trial := 0; trial < 20; trial++ {
			batch, err := b.Sample(test.n)
			if err != nil {
				t.Fatalf("sample: %v", err)
			}
			if batch.Len() != test.want {
				t.Fatalf("sample(%d) with %d entries returned %d, want %d",
					test.n, b.Len(), batch.Len(), test.want)
			}

			seen := make(map[float64]bool)
			for _, r := range batch.Rewards {
				if seen[r] {
					t.Fatalf("entry %v sampled twice", r)
				}
				seen[r] = true

				if r < float64(test.added-b.Len()) {
					t.Fatalf("sampled evicted entry %v", r)
				}
			}
		}
	}
}

func TestSampleCoversBuffer(t *testing.T) {
	b, err := New(10, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := b.Add(transition(i, 1)); err != nil {
			t.Fatal(err)
		}
	}

	counts := make([]int, 10)
	for trial := 0; trial < 2000; trial++ {
		batch, err := b.Sample(2)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range batch.Rewards {
			counts[int(r)]++
		}
	}

	// Each entry is expected 400 times
	for i, c := range counts {
		if c < 250 || c > 550 {
			t.Errorf("entry %d sampled %d times, expected about 400", i, c)
		}
	}
}

func TestSampleDeterminism(t *testing.T) {
	b1, _ := New(20, 1, 11)
	b2, _ := New(20, 1, 11)
	for i := 0; i < 20; i++ {
		b1.Add(transition(i, 1))
		b2.Add(transition(i, 1))
	}

	for trial := 0; trial < 5; trial++ {
		s1, _ := b1.Sample(5)
		s2, _ := b2.Sample(5)
		for i := range s1.Rewards {
			if s1.Rewards[i] != s2.Rewards[i] {
				t.Fatalf("equal seeds produced different batches")
			}
		}
	}
}

func TestBatchContents(t *testing.T) {
	b, _ := New(1, 3, 0)
	if err := b.Add(transition(7, 3)); err != nil {
		t.Fatal(err)
	}

	batch, err := b.Sample(1)
	if err != nil {
		t.Fatal(err)
	}
	if batch.Len() != 1 || batch.FeatureSize != 3 {
		t.Fatalf("batch has %d rows of %d features, want 1 of 3", batch.Len(),
			batch.FeatureSize)
	}
	if batch.States[2] != 7 || batch.NextStates[0] != 7.5 {
		t.Errorf("batch does not hold the stored transition")
	}

	oneHot := batch.OneHotActions(4)
	if len(oneHot) != 4 || oneHot[3] != 1 || oneHot[0] != 0 {
		t.Errorf("one-hot action = %v, want action 3", oneHot)
	}

	empty := newBatch(0, 3)
	if len(empty.OneHotActions(4)) != 0 {
		t.Errorf("empty batch should have no one-hot actions")
	}
}

func TestErrors(t *testing.T) {
	if _, err := New(0, 2, 0); err == nil {
		t.Errorf("expected error for zero capacity")
	}

	b, _ := New(2, 2, 0)
	if err := b.Add(transition(0, 3)); !IsFeatureSizeMismatch(err) {
		t.Errorf("expected feature size error, got %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("failed add should not store the transition")
	}
	if _, err := b.Sample(-1); err == nil {
		t.Errorf("expected error for negative batch size")
	}
}

func BenchmarkSample(b *testing.B) {
	buffer, _ := New(10000, 64, 0)
	for i := 0; i < 10000; i++ {
		buffer.Add(transition(i, 64))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := buffer.Sample(32); err != nil {
			b.Fatal(err)
		}
	}
}
