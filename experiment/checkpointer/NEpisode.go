package checkpointer

import (
	"fmt"
	"os"
)

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	object   Serializable // Object to save

	// filename returns the filename of the file to save the object in.
	//
	// If each serialized object should be saved in a separate file with
	// each file having an incremented number as a suffix (e.g.
	// file1.bin, file2.bin, ..., fileK.bin), use FilenameEnumerator.
	// If the filename does not matter, use UniqueFilename, for example:
	//
	//	n, err := NewNEpisode(10, object, UniqueFilename(dir, "ckpt", ".bin"))
	filename func() string
}

// NewNEpisode returns a checkpointer that checkpoints every n episodes
func NewNEpisode(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNEpisode: interval must be positive")
	}
	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if episode is a positive multiple
// of the interval. Episodes are counted from 1.
func (n *nEpisode) Checkpoint(episode int) error {
	if episode < 1 || episode%n.interval != 0 {
		return nil
	}

	file, err := os.Create(n.filename())
	if err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}
	if err := n.object.Save(file); err != nil {
		file.Close()
		return fmt.Errorf("checkpoint: %v", err)
	}
	return file.Close()
}
