package checkpointer

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// FilenameEnumerator returns a function returning filenames with an
// increasing counter suffix: filename(start+1)extension,
// filename(start+2)extension, and so on.
func FilenameEnumerator(start int, filename, extension string) func() string {
	i := start
	return func() string {
		i++
		return fmt.Sprintf("%v%v%v", filename, i, extension)
	}
}

// UniqueFilename returns a function returning a new filename in dir on
// each call, made unique by a random UUID
func UniqueFilename(dir, prefix, extension string) func() string {
	return func() string {
		name := fmt.Sprintf("%v-%v%v", prefix, uuid.NewString(), extension)
		return filepath.Join(dir, name)
	}
}
