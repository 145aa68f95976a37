package gridworld

import (
	"encoding/gob"
	"fmt"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Map bundles the per-cell cost and risk fields of a RiskGrid together
// with its goal cell. Both fields are Size x Size and non-negative.
type Map struct {
	Size int
	Cost *mat.Dense
	Risk *mat.Dense
	Goal Position
}

// NewMap returns a map with all-zero cost and risk and the goal in the
// bottom right corner
func NewMap(size int) Map {
	return Map{
		Size: size,
		Cost: mat.NewDense(size, size, nil),
		Risk: mat.NewDense(size, size, nil),
		Goal: Position{size - 1, size - 1},
	}
}

// GenerateMap draws a new map whose costs and risks are uniform in [0, 1).
// The origin and the goal cell carry zero cost and risk.
func GenerateMap(size int, src rand.Source) Map {
	m := NewMap(size)
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}

	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			m.Cost.Set(r, c, u.Rand())
			m.Risk.Set(r, c, u.Rand())
		}
	}

	for _, p := range []Position{{0, 0}, m.Goal} {
		m.Cost.Set(p.Row, p.Col, 0)
		m.Risk.Set(p.Row, p.Col, 0)
	}
	return m
}

// Clone returns a deep copy of the map
func (m Map) Clone() Map {
	return Map{
		Size: m.Size,
		Cost: mat.DenseCopyOf(m.Cost),
		Risk: mat.DenseCopyOf(m.Risk),
		Goal: m.Goal,
	}
}

// Validate checks that the map fields have the correct shape, are
// non-negative, and that the goal lies inside the grid
func (m Map) Validate() error {
	if m.Size < 1 {
		return fmt.Errorf("validate: map size must be positive, got %v",
			m.Size)
	}
	if m.Cost == nil || m.Risk == nil {
		return fmt.Errorf("validate: map is missing a cost or risk field")
	}

	for name, field := range map[string]*mat.Dense{"cost": m.Cost,
		"risk": m.Risk} {
		if r, c := field.Dims(); r != m.Size || c != m.Size {
			return fmt.Errorf("validate: %v field has shape (%d, %d), "+
				"want (%d, %d)", name, r, c, m.Size, m.Size)
		}
		if mat.Min(field) < 0 {
			return fmt.Errorf("validate: %v field has negative entries", name)
		}
	}

	if !m.Goal.In(m.Size) {
		return fmt.Errorf("validate: goal %v outside of %dx%d grid", m.Goal,
			m.Size, m.Size)
	}
	return nil
}

// mapRecord is the on-disk representation of a Map
type mapRecord struct {
	Size     int
	Cost     []float64
	Risk     []float64
	GoalRow  int
	GoalCol  int
	Checksum float64
}

// Save gob-encodes the map to the file at path
func (m Map) Save(path string) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("save: %v", err)
	}

	record := mapRecord{
		Size:    m.Size,
		Cost:    mat.DenseCopyOf(m.Cost).RawMatrix().Data,
		Risk:    mat.DenseCopyOf(m.Risk).RawMatrix().Data,
		GoalRow: m.Goal.Row,
		GoalCol: m.Goal.Col,
	}
	record.Checksum = floats.Sum(record.Cost) + floats.Sum(record.Risk)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create map file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(record); err != nil {
		return fmt.Errorf("save: could not encode map: %v", err)
	}
	return nil
}

// LoadMap loads a map previously saved with Save
func LoadMap(path string) (Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return Map{}, fmt.Errorf("loadMap: could not open map file: %v", err)
	}
	defer file.Close()

	var record mapRecord
	if err := gob.NewDecoder(file).Decode(&record); err != nil {
		return Map{}, fmt.Errorf("loadMap: could not decode map: %v", err)
	}

	n := record.Size * record.Size
	if record.Size < 1 || len(record.Cost) != n || len(record.Risk) != n {
		return Map{}, fmt.Errorf("loadMap: corrupt map of size %d with "+
			"%d costs and %d risks", record.Size, len(record.Cost),
			len(record.Risk))
	}

	sum := floats.Sum(record.Cost) + floats.Sum(record.Risk)
	if sum != record.Checksum {
		return Map{}, fmt.Errorf("loadMap: checksum mismatch: got %v, "+
			"want %v", sum, record.Checksum)
	}

	m := Map{
		Size: record.Size,
		Cost: mat.NewDense(record.Size, record.Size, record.Cost),
		Risk: mat.NewDense(record.Size, record.Size, record.Risk),
		Goal: Position{record.GoalRow, record.GoalCol},
	}
	return m, m.Validate()
}
