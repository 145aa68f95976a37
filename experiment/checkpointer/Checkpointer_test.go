package checkpointer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type counter struct {
	saves int
}

func (c *counter) Save(w io.Writer) error {
	c.saves++
	_, err := fmt.Fprintf(w, "save %d", c.saves)
	return err
}

func TestNEpisode(t *testing.T) {
	dir := t.TempDir()
	obj := &counter{}
	c, err := NewNEpisode(3, obj,
		FilenameEnumerator(0, filepath.Join(dir, "ckpt"), ".bin"))
	if err != nil {
		t.Fatal(err)
	}

	for ep := 1; ep <= 7; ep++ {
		if err := c.Checkpoint(ep); err != nil {
			t.Fatalf("checkpoint: %v", err)
		}
	}

	if obj.saves != 2 {
		t.Errorf("saves: want(2) have(%v)", obj.saves)
	}
	for i, want := range []string{"save 1", "save 2"} {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("ckpt%d.bin",
			i+1)))
		if err != nil {
			t.Fatalf("could not read checkpoint: %v", err)
		}
		if string(data) != want {
			t.Errorf("checkpoint %d: want(%q) have(%q)", i+1, want, data)
		}
	}
}

func TestNEpisodeInterval(t *testing.T) {
	if _, err := NewNEpisode(0, &counter{}, UniqueFilename(".", "x", ".bin")); err == nil {
		t.Errorf("expected error for zero interval")
	}
}

func TestFilenameEnumerator(t *testing.T) {
	next := FilenameEnumerator(4, "run", ".gob")
	for _, want := range []string{"run5.gob", "run6.gob"} {
		if got := next(); got != want {
			t.Errorf("want(%v) have(%v)", want, got)
		}
	}
}

func TestUniqueFilename(t *testing.T) {
	next := UniqueFilename("out", "weights", ".gob")
	a, b := next(), next()
	if a == b {
		t.Errorf("filenames not unique: %v", a)
	}
	if filepath.Dir(a) != "out" || filepath.Ext(a) != ".gob" {
		t.Errorf("unexpected filename %v", a)
	}
}
