// Package checkpointer implements periodic saving of serializable
// objects during training
package checkpointer

import (
	"io"
)

// Serializable is an object that can be saved
type Serializable interface {
	Save(w io.Writer) error
}

// Checkpointer checkpoints serializable objects at the end of episodes
type Checkpointer interface {
	Checkpoint(episode int) error
}
