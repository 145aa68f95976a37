package gridworld

import (
	"fmt"
	"math"
)

// Action is a movement in the grid
type Action int

const (
	Up Action = iota
	Down
	Left
	Right
)

// NumActions is the number of distinct actions in a RiskGrid
const NumActions = 4

// Actions lists all actions in the order in which ties are broken
var Actions = []Action{Up, Down, Left, Right}

// Delta returns the (row, column) displacement of an action
func (a Action) Delta() (int, int) {
	switch a {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	panic(fmt.Sprintf("delta: invalid action %d", int(a)))
}

// Valid returns whether an action is one of the four moves
func (a Action) Valid() bool {
	return a >= Up && a <= Right
}

func (a Action) String() string {
	switch a {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Position is a (row, column) cell in the grid
type Position struct {
	Row, Col int
}

// Move returns the position one action away. The result may lie outside
// the grid.
func (p Position) Move(a Action) Position {
	dr, dc := a.Delta()
	return Position{p.Row + dr, p.Col + dc}
}

// In returns whether the position lies within a size x size grid
func (p Position) In(size int) bool {
	return p.Row >= 0 && p.Row < size && p.Col >= 0 && p.Col < size
}

// Index returns the row-major flat index of the position
func (p Position) Index(size int) int {
	return p.Row*size + p.Col
}

// Distance returns the Euclidean distance between two positions
func (p Position) Distance(other Position) float64 {
	dr := float64(p.Row - other.Row)
	dc := float64(p.Col - other.Col)
	return math.Hypot(dr, dc)
}

func (p Position) String() string {
	return fmt.Sprintf("[%d, %d]", p.Row, p.Col)
}
